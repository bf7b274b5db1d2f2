package pipeline

import (
	"context"

	"github.com/cadforge/pipeline/design"
	"github.com/dshills/langgraph-go/graph"
	"github.com/dshills/langgraph-go/graph/emit"
)

// FinalizeSuccessNode seals a completed design record (§4.15): emits
// status:completed, a completion event carrying the final artifact path,
// and done. Terminal.
type FinalizeSuccessNode struct {
	deps *Deps
}

func NewFinalizeSuccessNode(deps *Deps) *FinalizeSuccessNode {
	return &FinalizeSuccessNode{deps: deps}
}

func (n *FinalizeSuccessNode) Run(ctx context.Context, state design.PipelineState) graph.NodeResult[design.PipelineState] {
	record := state.Record
	record.Status = design.StatusCompleted
	record.FinalCode = state.WinnerCode
	record.FinalArtifactPath = state.PreviousArtifactPath
	record.UpdatedAt = nowUTC()

	events := []emit.Event{
		n.deps.emitEvent(record.ID, EvtStatusCompleted, map[string]interface{}{"design_id": record.ID}),
		n.deps.emitEvent(record.ID, EvtCompletion, map[string]interface{}{
			"text":          "design completed",
			"artifact_path": record.FinalArtifactPath,
		}),
		n.deps.emitEvent(record.ID, EvtDone, nil),
	}

	return graph.NodeResult[design.PipelineState]{
		Delta: design.PipelineState{
			Record:   record,
			Events:   events,
			Terminal: true,
		},
		Route: graph.Stop(),
	}
}

// FinalizeFailedNode seals a failed design record (§4.15, §7): emits
// status:failed with a reason, a completion event carrying that reason, and
// done. Terminal. The failure reason comes from failureReason: "no valid
// proposals" when the current round has none, otherwise "round budget
// exhausted". AccumulatedFeedback is not part of the reason.
type FinalizeFailedNode struct {
	deps *Deps
}

func NewFinalizeFailedNode(deps *Deps) *FinalizeFailedNode {
	return &FinalizeFailedNode{deps: deps}
}

func (n *FinalizeFailedNode) Run(ctx context.Context, state design.PipelineState) graph.NodeResult[design.PipelineState] {
	record := state.Record
	record.Status = design.StatusFailed
	record.UpdatedAt = nowUTC()

	reason := failureReason(state)

	events := []emit.Event{
		n.deps.emitEvent(record.ID, EvtStatusFailed, map[string]interface{}{
			"design_id":  record.ID,
			"reason":     reason,
			"max_rounds": n.deps.Config.MaxRounds,
		}),
		n.deps.emitEvent(record.ID, EvtCompletion, map[string]interface{}{
			"text":   "design failed",
			"reason": reason,
		}),
		n.deps.emitEvent(record.ID, EvtDone, nil),
	}

	return graph.NodeResult[design.PipelineState]{
		Delta: design.PipelineState{
			Record:   record,
			Events:   events,
			Terminal: true,
		},
		Route: graph.Stop(),
	}
}

// failureReason distinguishes the two terminal-failure causes named in §7:
// every proposal in the round failed or was never valid ("no valid
// proposals"), versus the round budget running out with every round
// producing feedback but no passing winner ("round budget exhausted").
func failureReason(state design.PipelineState) string {
	round := state.Record.CurrentRound()
	if round == nil || len(validProposals(round)) == 0 {
		return "no valid proposals"
	}
	return "round budget exhausted"
}
