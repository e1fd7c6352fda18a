package common

const (
	//Stream event names sent by the governance gateway.
	StreamEventConnected       = "connected"
	StreamEventActionEvaluated = "action_evaluated"

	//Gateway API paths.
	ActionsPath      = "/api/v1/actions"
	StreamPath       = "/api/v1/stream"
	StreamStatusPath = "/api/v1/stream/status"
	TracesPath       = "/api/v1/traces"

	//Query parameter names. The stream transport cannot carry headers, so the
	//auth token travels as a query parameter on the stream URL only.
	QueryParamToken     = "token"
	QueryParamLimit     = "limit"
	QueryParamAgentId   = "agent_id"
	QueryParamHasBlocks = "has_blocks"

	//Span attribute keys.
	SpanAttrTool      = "tool"
	SpanAttrDecision  = "decision"
	SpanAttrRiskScore = "risk_score"
	SpanAttrAgentId   = "agent_id"
)
