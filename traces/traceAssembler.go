package traces

import (
	"sort"
	"time"

	"github.com/zerok-ai/zk-console-feed/common"
	"github.com/zerok-ai/zk-console-feed/model"
	"github.com/zerok-ai/zk-console-feed/utils"
)

// Assembler turns the gateway's flat span batches into renderable trees and
// correlates decision records to governance spans by tool and time
// proximity. Assemble is a pure function of its inputs; nothing is shared
// between calls. Span batches arrive in no particular order and may name
// parents that never arrived.
type Assembler struct {
	linkWindow time.Duration
}

// NewAssembler takes the decision link window, the largest gap between a
// governance span's start and a decision's creation still treated as the
// same activity.
func NewAssembler(linkWindow time.Duration) *Assembler {
	return &Assembler{linkWindow: linkWindow}
}

func (a *Assembler) Assemble(traceId string, spans []model.Span, decisions []model.GovernanceDecision) model.AssembledTrace {
	roots := buildTree(spans)
	flattened := flatten(roots)
	unlinked := a.unlinkedDecisions(spans, decisions)
	return model.AssembledTrace{
		TraceId:           traceId,
		Summary:           deriveSummary(traceId, spans, decisions, unlinked),
		Roots:             roots,
		Flattened:         flattened,
		UnlinkedDecisions: unlinked,
	}
}

// buildTree indexes spans by id, attaches each span to its parent when the
// parent is in the batch, and promotes the rest to roots. A span naming
// itself as parent counts as dangling. Sibling groups come out sorted by
// ascending start time, batch order breaking ties.
func buildTree(spans []model.Span) []*model.SpanNode {
	nodes := make([]*model.SpanNode, len(spans))
	index := make(map[string]*model.SpanNode, len(spans))
	for i, span := range spans {
		node := &model.SpanNode{Span: span, Children: []*model.SpanNode{}}
		nodes[i] = node
		index[span.SpanId] = node
	}

	roots := make([]*model.SpanNode, 0, len(nodes))
	for _, node := range nodes {
		parentId := node.Span.ParentSpanId
		if len(parentId) == 0 || parentId == node.Span.SpanId {
			roots = append(roots, node)
			continue
		}
		parent, ok := index[parentId]
		if !ok {
			roots = append(roots, node)
			continue
		}
		parent.Children = append(parent.Children, node)
	}

	sortSiblings(roots)
	setDepth(roots, 0)
	return roots
}

func sortSiblings(nodes []*model.SpanNode) {
	sort.SliceStable(nodes, func(i, j int) bool {
		return nodes[i].Span.StartTime.Before(nodes[j].Span.StartTime)
	})
	for _, node := range nodes {
		sortSiblings(node.Children)
	}
}

func setDepth(nodes []*model.SpanNode, depth int) {
	for _, node := range nodes {
		node.Depth = depth
		setDepth(node.Children, depth+1)
	}
}

// flatten walks the tree pre-order, parent immediately followed by its full
// subtree, preserving the indented reading order for the console.
func flatten(roots []*model.SpanNode) []*model.SpanNode {
	flattened := make([]*model.SpanNode, 0)
	var walk func(nodes []*model.SpanNode)
	walk = func(nodes []*model.SpanNode) {
		for _, node := range nodes {
			flattened = append(flattened, node)
			walk(node.Children)
		}
	}
	walk(roots)
	return flattened
}

// unlinkedDecisions keeps every decision no governance span represents, so
// governance activity is never silently hidden. A decision outside the link
// window for a real match shows up twice, which is harmless.
func (a *Assembler) unlinkedDecisions(spans []model.Span, decisions []model.GovernanceDecision) []model.GovernanceDecision {
	unlinked := make([]model.GovernanceDecision, 0)
	for _, decision := range decisions {
		if !a.isRepresented(spans, decision) {
			unlinked = append(unlinked, decision)
		}
	}
	return unlinked
}

func (a *Assembler) isRepresented(spans []model.Span, decision model.GovernanceDecision) bool {
	for _, span := range spans {
		if span.Kind != model.SpanKindGovernance {
			continue
		}
		if utils.GetStringAttr(span.Attributes, common.SpanAttrTool) != decision.Tool {
			continue
		}
		if utils.AbsDuration(span.StartTime, decision.CreatedAt) <= a.linkWindow {
			return true
		}
	}
	return false
}

func deriveSummary(traceId string, spans []model.Span, decisions []model.GovernanceDecision, unlinked []model.GovernanceDecision) model.TraceSummary {
	summary := model.TraceSummary{
		TraceId:         traceId,
		SpanCount:       len(spans),
		GovernanceCount: len(unlinked),
	}

	var earliest, latest time.Time
	for i, span := range spans {
		if i == 0 {
			summary.Name = span.Name
			earliest = span.StartTime
			latest = span.StartTime
		}
		if span.StartTime.Before(earliest) {
			earliest = span.StartTime
			summary.Name = span.Name
		}
		end := span.StartTime
		if span.EndTime != nil {
			end = *span.EndTime
		}
		if end.After(latest) {
			latest = end
		}

		if span.Kind == model.SpanKindGovernance {
			summary.GovernanceCount++
			if utils.GetStringAttr(span.Attributes, common.SpanAttrDecision) == string(model.DecisionBlock) {
				summary.HasBlocks = true
			}
		}
		if span.Status == model.SpanStatusError {
			summary.HasErrors = true
		}
		if len(summary.AgentId) == 0 {
			summary.AgentId = utils.GetStringAttr(span.Attributes, common.SpanAttrAgentId)
		}
	}
	summary.StartTime = earliest
	summary.DurationMs = latest.Sub(earliest).Milliseconds()

	for _, decision := range decisions {
		if decision.Decision == model.DecisionBlock {
			summary.HasBlocks = true
		}
		if len(summary.AgentId) == 0 {
			summary.AgentId = decision.AgentId
		}
	}
	return summary
}
