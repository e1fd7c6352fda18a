package model

import "time"

// GovernanceDecision is a decision record associated with a trace. SpanId is
// empty when the producer could not attribute the decision to a span.
type GovernanceDecision struct {
	Id             string    `json:"id"`
	TraceId        string    `json:"traceId"`
	SpanId         string    `json:"spanId,omitempty"`
	Tool           string    `json:"tool"`
	Decision       Decision  `json:"decision"`
	RiskScore      int       `json:"riskScore"`
	Explanation    string    `json:"explanation,omitempty"`
	PolicyIds      []string  `json:"policyIds,omitempty"`
	AgentId        string    `json:"agentId,omitempty"`
	ConversationId string    `json:"conversationId,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
}

// TraceSummary is one row of the gateway's trace list endpoint. The same
// shape is derived locally when a fetched trace is assembled.
type TraceSummary struct {
	TraceId         string    `json:"traceId"`
	Name            string    `json:"name"`
	AgentId         string    `json:"agentId,omitempty"`
	StartTime       time.Time `json:"startTime"`
	DurationMs      int64     `json:"durationMs"`
	SpanCount       int       `json:"spanCount"`
	GovernanceCount int       `json:"governanceCount"`
	HasErrors       bool      `json:"hasErrors"`
	HasBlocks       bool      `json:"hasBlocks"`
}

// TraceDetail is the gateway's trace detail response: the flat span list for
// one trace plus every decision recorded against it.
type TraceDetail struct {
	TraceId   string               `json:"traceId"`
	Spans     []Span               `json:"spans"`
	Decisions []GovernanceDecision `json:"decisions"`
}
