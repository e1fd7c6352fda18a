package model

import (
	"math"
	"strconv"
	"time"
)

// Decision is the verdict the governance service attached to an agent action.
type Decision string

const (
	DecisionAllow  Decision = "allow"
	DecisionReview Decision = "review"
	DecisionBlock  Decision = "block"
)

// ActionEvent is one evaluated agent action as reported by the governance
// gateway, on both the push stream and the actions list endpoint.
// Timestamp is unix seconds; the push source emits whole seconds while the
// list endpoint keeps sub-second precision. Events are read-only once decoded.
type ActionEvent struct {
	Tool           string   `json:"tool"`
	Decision       Decision `json:"decision"`
	RiskScore      int      `json:"riskScore"`
	Explanation    string   `json:"explanation,omitempty"`
	PolicyIds      []string `json:"policyIds,omitempty"`
	AgentId        string   `json:"agentId,omitempty"`
	ConversationId string   `json:"conversationId,omitempty"`
	Timestamp      float64  `json:"timestamp"`
}

func (e ActionEvent) Time() time.Time {
	sec, frac := math.Modf(e.Timestamp)
	return time.Unix(int64(sec), int64(frac*float64(time.Second)))
}

// SecondBucket floors the event timestamp to whole seconds, the resolution
// shared by the push and poll sources.
func (e ActionEvent) SecondBucket() int64 {
	return int64(math.Floor(e.Timestamp))
}

// DedupKey identifies the same underlying action observed on both sources.
// No stable id is present on both paths today, so the key is a heuristic:
// two distinct same-tool same-decision actions inside one second collapse.
func (e ActionEvent) DedupKey() string {
	return e.Tool + "|" + string(e.Decision) + "|" + strconv.FormatInt(e.SecondBucket(), 10)
}
