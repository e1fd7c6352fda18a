package handler

import (
	"context"
	"net/url"
	"strconv"

	"github.com/kataras/iris/v12"
	"github.com/zerok-ai/zk-console-feed/client"
	"github.com/zerok-ai/zk-console-feed/common"
	"github.com/zerok-ai/zk-console-feed/metrics"
	"github.com/zerok-ai/zk-console-feed/model"
	"github.com/zerok-ai/zk-console-feed/traces"
	"github.com/zerok-ai/zk-console-feed/utils"
	logger "github.com/zerok-ai/zk-utils-go/logs"
)

var traceLogTag = "TraceHandler"

// TraceListResponse is the trace summary listing served to the console.
type TraceListResponse struct {
	Traces []model.TraceSummary `json:"traces"`
}

// FlatSpanRow is one span of the assembled tree rendered for timeline views,
// ordered parent before child.
type FlatSpanRow struct {
	SpanId       string           `json:"spanId"`
	ParentSpanId string           `json:"parentSpanId,omitempty"`
	Name         string           `json:"name"`
	Kind         model.SpanKind   `json:"kind"`
	Status       model.SpanStatus `json:"status"`
	Depth        int              `json:"depth"`
	DurationMs   *int64           `json:"durationMs,omitempty"`
	RiskScore    *float64         `json:"riskScore,omitempty"`
}

// TraceDetailResponse is the assembled trace envelope served to the console.
type TraceDetailResponse struct {
	TraceId           string                     `json:"trace_id"`
	Summary           model.TraceSummary         `json:"summary"`
	Roots             []*model.SpanNode          `json:"roots"`
	Flattened         []FlatSpanRow              `json:"flattened"`
	UnlinkedDecisions []model.GovernanceDecision `json:"unlinked_decisions"`
}

type TraceHandler struct {
	apiClient *client.GovernanceApiClient
	assembler *traces.Assembler
}

func NewTraceHandler(apiClient *client.GovernanceApiClient, assembler *traces.Assembler) *TraceHandler {
	return &TraceHandler{
		apiClient: apiClient,
		assembler: assembler,
	}
}

// ListTraces serves trace summaries straight from the gateway.
func (th *TraceHandler) ListTraces(ctx iris.Context) {
	filter := parseTraceFilter(ctx.Request().URL.Query())
	summaries, err := th.apiClient.ListTraces(ctx.Request().Context(), filter)
	if err != nil {
		logger.Error(traceLogTag, "Error while listing traces ", err)
		ctx.StatusCode(iris.StatusBadGateway)
		ctx.JSON(iris.Map{"error": err.Error()})
		return
	}
	if summaries == nil {
		summaries = make([]model.TraceSummary, 0)
	}
	ctx.StatusCode(iris.StatusOK)
	ctx.JSON(TraceListResponse{Traces: summaries})
}

// GetTrace fetches one trace from the gateway and assembles its span tree.
func (th *TraceHandler) GetTrace(ctx iris.Context) {
	traceId := ctx.Params().Get("traceId")
	if len(traceId) == 0 {
		ctx.StatusCode(iris.StatusBadRequest)
		ctx.JSON(iris.Map{"error": "traceId is required"})
		return
	}

	response, err := th.assembleTrace(ctx.Request().Context(), traceId)
	if err != nil {
		logger.Error(traceLogTag, "Error while fetching trace ", traceId, " from gateway ", err)
		ctx.StatusCode(iris.StatusBadGateway)
		ctx.JSON(iris.Map{"error": err.Error()})
		return
	}
	ctx.StatusCode(iris.StatusOK)
	ctx.JSON(response)
}

func (th *TraceHandler) assembleTrace(ctx context.Context, traceId string) (*TraceDetailResponse, error) {
	metrics.TotalTraceFetches.WithLabelValues(podIp).Inc()
	detail, err := th.apiClient.GetTrace(ctx, traceId)
	if err != nil {
		metrics.TotalTraceFetchErrors.WithLabelValues(podIp).Inc()
		return nil, err
	}

	assembled := th.assembler.Assemble(traceId, detail.Spans, detail.Decisions)
	return &TraceDetailResponse{
		TraceId:           assembled.TraceId,
		Summary:           assembled.Summary,
		Roots:             assembled.Roots,
		Flattened:         flattenRows(assembled.Flattened),
		UnlinkedDecisions: assembled.UnlinkedDecisions,
	}, nil
}

func flattenRows(nodes []*model.SpanNode) []FlatSpanRow {
	rows := make([]FlatSpanRow, 0, len(nodes))
	for _, node := range nodes {
		rows = append(rows, FlatSpanRow{
			SpanId:       node.SpanId,
			ParentSpanId: node.ParentSpanId,
			Name:         node.Name,
			Kind:         node.Kind,
			Status:       node.Status,
			Depth:        node.Depth,
			DurationMs:   node.DurationMs(),
			RiskScore:    utils.GetSpanAttrValue[float64](node.Attributes, common.SpanAttrRiskScore),
		})
	}
	return rows
}

func parseTraceFilter(query url.Values) client.TraceFilter {
	filter := client.TraceFilter{
		AgentId: query.Get(common.QueryParamAgentId),
	}
	if raw := query.Get(common.QueryParamHasBlocks); len(raw) > 0 {
		hasBlocks, err := strconv.ParseBool(raw)
		if err != nil {
			logger.Warn(traceLogTag, "Ignoring invalid has_blocks filter ", raw)
		} else {
			filter.HasBlocks = &hasBlocks
		}
	}
	return filter
}
