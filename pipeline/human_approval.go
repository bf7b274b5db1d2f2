package pipeline

import (
	"context"

	"github.com/cadforge/pipeline/design"
	"github.com/dshills/langgraph-go/graph"
	"github.com/dshills/langgraph-go/graph/emit"
)

// HumanApprovalNode requests human sign-off on the round's winner and
// suspends the run (§4.12), mirroring
// examples/human_in_the_loop/main.go's ApprovalGateNode: it returns
// graph.Stop() with PipelineState.Interrupt populated rather than calling
// out to a human itself. The caller resumes by loading the persisted
// state, applying an ApprovalReply, and re-entering the engine via
// RunWithCheckpoint — see cmd/cadforge-pipeline.
type HumanApprovalNode struct {
	deps *Deps
}

func NewHumanApprovalNode(deps *Deps) *HumanApprovalNode {
	return &HumanApprovalNode{deps: deps}
}

func (n *HumanApprovalNode) Run(ctx context.Context, state design.PipelineState) graph.NodeResult[design.PipelineState] {
	record := state.Record
	round := record.CurrentRound()
	artifactPath := state.PreviousArtifactPath

	record.Status = design.StatusAwaitingApproval
	record.UpdatedAt = nowUTC()

	payload := &design.InterruptPayload{
		DesignID:     record.ID,
		WinnerID:     state.WinnerID,
		Code:         state.WinnerCode,
		ArtifactPath: artifactPath,
	}

	evt := n.deps.emitEvent(record.ID, EvtApprovalRequested, map[string]interface{}{
		"design_id":     record.ID,
		"winner_id":     state.WinnerID,
		"artifact_path": artifactPath,
		"round":         round.RoundNumber,
	})

	return graph.NodeResult[design.PipelineState]{
		Delta: design.PipelineState{
			Record:    record,
			Events:    []emit.Event{evt},
			Interrupt: payload,
		},
		Route: graph.Stop(),
	}
}

// ApplyApprovalReply folds an externally-supplied ApprovalReply into state
// as the resumed pipeline's starting delta (§4.12): approved advances to
// the learner, rejected seals the design as failed with the feedback as the
// reason. Called by the resuming caller, not registered as a graph node,
// since the reply arrives out-of-band from whatever transport carries
// resume(thread_id, reply) in the embedding application.
func ApplyApprovalReply(deps *Deps, state design.PipelineState, reply design.ApprovalReply) design.PipelineState {
	record := state.Record
	record.UpdatedAt = nowUTC()

	round := record.CurrentRound()
	if round != nil {
		approved := reply.Approved
		round.HumanApproved = &approved
	}

	deps.emitEvent(record.ID, EvtApprovalResponse, map[string]interface{}{
		"design_id": record.ID,
		"approved":  reply.Approved,
		"feedback":  reply.Feedback,
	})

	if !reply.Approved {
		record.Status = design.StatusFailed
		state.Record = record
		state.Terminal = true
		state.Events = append(state.Events, deps.emitEvent(record.ID, EvtStatusFailed, map[string]interface{}{
			"design_id": record.ID,
			"reason":    reply.Feedback,
		}))
		return state
	}

	state.Record = record
	state.Interrupt = nil
	return state
}
