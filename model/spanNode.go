package model

// SpanNode places a span in its assembled trace tree. Children are ordered
// by ascending start time, input order breaking ties. Depth is 0 for roots.
// Nodes are built fresh on every assembly and never mutated afterwards.
type SpanNode struct {
	Span     `json:"span"`
	Depth    int         `json:"depth"`
	Children []*SpanNode `json:"children"`
}

// AssembledTrace is the in-memory result of assembling one trace: the span
// tree, its pre-order flattening (the same nodes, indented reading order),
// decisions no governance span represents, and the derived summary.
type AssembledTrace struct {
	TraceId           string
	Summary           TraceSummary
	Roots             []*SpanNode
	Flattened         []*SpanNode
	UnlinkedDecisions []GovernanceDecision
}
