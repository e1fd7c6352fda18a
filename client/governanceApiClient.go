package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	retry "github.com/avast/retry-go"
	jsoniter "github.com/json-iterator/go"
	"github.com/zerok-ai/zk-console-feed/common"
	"github.com/zerok-ai/zk-console-feed/config"
	"github.com/zerok-ai/zk-console-feed/model"
	logger "github.com/zerok-ai/zk-utils-go/logs"
)

var governanceApiLogTag = "GovernanceApiClient"

var jsonApi = jsoniter.ConfigCompatibleWithStandardLibrary

// TraceFilter narrows the trace list endpoint. Zero values mean no filter.
type TraceFilter struct {
	AgentId   string
	HasBlocks *bool
}

// GovernanceApiClient is the REST side of the governance gateway. The push
// stream is opened separately from StreamURL; REST calls authenticate with a
// bearer header, the stream URL carries the token as a query parameter
// because the stream transport cannot set headers.
type GovernanceApiClient struct {
	baseUrl       string
	authToken     string
	httpClient    *http.Client
	retryAttempts uint
	retryDelay    time.Duration
}

func NewGovernanceApiClient(cfg config.GatewayConfig) (*GovernanceApiClient, error) {
	if len(cfg.BaseUrl) == 0 {
		return nil, fmt.Errorf("gateway baseUrl is required")
	}
	attempts := cfg.RetryAttempts
	if attempts < 1 {
		//retry.Attempts(0) retries forever.
		attempts = 1
	}
	return &GovernanceApiClient{
		baseUrl:   strings.TrimRight(cfg.BaseUrl, "/"),
		authToken: cfg.AuthToken,
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.RequestTimeoutSeconds) * time.Second,
		},
		retryAttempts: uint(attempts),
		retryDelay:    time.Duration(cfg.RetryDelayMs) * time.Millisecond,
	}, nil
}

// StreamURL is the push subscription endpoint with the auth token appended.
func (c *GovernanceApiClient) StreamURL() string {
	streamUrl := c.baseUrl + common.StreamPath
	if len(c.authToken) > 0 {
		streamUrl += "?" + common.QueryParamToken + "=" + url.QueryEscape(c.authToken)
	}
	return streamUrl
}

// ListActions returns the most recent evaluated actions, most-recent-first.
func (c *GovernanceApiClient) ListActions(ctx context.Context, limit int) ([]model.ActionEvent, error) {
	actionsUrl := c.baseUrl + common.ActionsPath
	if limit > 0 {
		actionsUrl += "?" + common.QueryParamLimit + "=" + strconv.Itoa(limit)
	}
	var body struct {
		Actions []model.ActionEvent `json:"actions"`
	}
	if err := c.getJSON(ctx, actionsUrl, &body); err != nil {
		return nil, err
	}
	return body.Actions, nil
}

func (c *GovernanceApiClient) FetchStreamStats(ctx context.Context) (model.StreamStats, error) {
	var stats model.StreamStats
	err := c.getJSON(ctx, c.baseUrl+common.StreamStatusPath, &stats)
	return stats, err
}

func (c *GovernanceApiClient) ListTraces(ctx context.Context, filter TraceFilter) ([]model.TraceSummary, error) {
	params := url.Values{}
	if len(filter.AgentId) > 0 {
		params.Set(common.QueryParamAgentId, filter.AgentId)
	}
	if filter.HasBlocks != nil {
		params.Set(common.QueryParamHasBlocks, strconv.FormatBool(*filter.HasBlocks))
	}
	tracesUrl := c.baseUrl + common.TracesPath
	if len(params) > 0 {
		tracesUrl += "?" + params.Encode()
	}
	var body struct {
		Traces []model.TraceSummary `json:"traces"`
	}
	if err := c.getJSON(ctx, tracesUrl, &body); err != nil {
		return nil, err
	}
	return body.Traces, nil
}

func (c *GovernanceApiClient) GetTrace(ctx context.Context, traceId string) (*model.TraceDetail, error) {
	var detail model.TraceDetail
	err := c.getJSON(ctx, c.baseUrl+common.TracesPath+"/"+url.PathEscape(traceId), &detail)
	if err != nil {
		return nil, err
	}
	return &detail, nil
}

func (c *GovernanceApiClient) getJSON(ctx context.Context, rawUrl string, out interface{}) error {
	err := retry.Do(
		func() error {
			return c.doGetJSON(ctx, rawUrl, out)
		},
		retry.Attempts(c.retryAttempts),
		retry.Delay(c.retryDelay),
		retry.DelayType(retry.FixedDelay),
	)
	if err != nil {
		logger.Error(governanceApiLogTag, "gateway GET failed: ", rawUrl, err)
	}
	return err
}

func (c *GovernanceApiClient) doGetJSON(ctx context.Context, rawUrl string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawUrl, nil)
	if err != nil {
		return err
	}
	if len(c.authToken) > 0 {
		req.Header.Set("Authorization", "Bearer "+c.authToken)
	}
	req.Header.Set("Accept", "application/json")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("gateway returned status %d for %s", resp.StatusCode, req.URL.Path)
	}
	if err := jsonApi.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding gateway response for %s: %w", req.URL.Path, err)
	}
	return nil
}
