package model

import "time"

// Span is one unit of execution within an agent trace, as returned by the
// gateway's trace detail endpoint. ParentSpanId may reference a span missing
// from the batch; tree assembly promotes such spans to roots.
type Span struct {
	TraceId      string                 `json:"traceId"`
	SpanId       string                 `json:"spanId"`
	ParentSpanId string                 `json:"parentSpanId,omitempty"`
	Kind         SpanKind               `json:"kind"`
	Name         string                 `json:"name"`
	Status       SpanStatus             `json:"status"`
	StartTime    time.Time              `json:"startTime"`
	EndTime      *time.Time             `json:"endTime,omitempty"`
	Attributes   map[string]interface{} `json:"attributes,omitempty"`
	Input        string                 `json:"input,omitempty"`
	Output       string                 `json:"output,omitempty"`
	Events       []SpanEvent            `json:"events,omitempty"`
}

type SpanEvent struct {
	Name       string                 `json:"name"`
	Timestamp  time.Time              `json:"timestamp"`
	Attributes map[string]interface{} `json:"attributes,omitempty"`
}

// DurationMs is nil while the span is still open.
func (s Span) DurationMs() *int64 {
	if s.EndTime == nil {
		return nil
	}
	ms := s.EndTime.Sub(s.StartTime).Milliseconds()
	return &ms
}
