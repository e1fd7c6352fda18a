package model

// SpanKind classifies what part of an agent run a span covers.
type SpanKind string

const (

	// SpanKindAgent Indicates a top-level agent execution step.
	SpanKindAgent SpanKind = "agent"

	// SpanKindLlm Indicates a model inference call.
	SpanKindLlm SpanKind = "llm"

	// SpanKindTool Indicates a tool invocation made by the agent.
	SpanKindTool SpanKind = "tool"

	// SpanKindGovernance Indicates a policy evaluation of an agent action.
	//Governance spans carry the evaluated tool and decision in their attributes.
	SpanKindGovernance SpanKind = "governance"

	// SpanKindRetrieval Indicates a retrieval or search call feeding the agent context.
	SpanKindRetrieval SpanKind = "retrieval"

	// SpanKindChain Indicates an orchestration step grouping child spans.
	SpanKindChain SpanKind = "chain"

	// SpanKindCustom Indicates an application-defined span.
	SpanKindCustom SpanKind = "custom"
)

// SpanStatus is the terminal status of a span.
type SpanStatus string

const (
	SpanStatusOk    SpanStatus = "ok"
	SpanStatusError SpanStatus = "error"
)
