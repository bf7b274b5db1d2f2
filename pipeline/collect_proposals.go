package pipeline

import (
	"context"

	"github.com/cadforge/pipeline/design"
	"github.com/dshills/langgraph-go/graph"
	"github.com/dshills/langgraph-go/graph/emit"
)

// CollectProposalsNode folds the fan-out's settled proposals into the
// current Round and decides whether the round has anything worth
// evaluating (§4.6). A round with zero valid proposals (completed with
// non-empty code, see validProposals) cannot be scored or merged, so it
// routes straight to the failed finalizer rather than to the sandbox
// evaluator.
type CollectProposalsNode struct {
	deps *Deps
}

func NewCollectProposalsNode(deps *Deps) *CollectProposalsNode {
	return &CollectProposalsNode{deps: deps}
}

func (n *CollectProposalsNode) Run(ctx context.Context, state design.PipelineState) graph.NodeResult[design.PipelineState] {
	record := state.Record
	round := record.CurrentRound()
	if round == nil {
		return graph.NodeResult[design.PipelineState]{
			Err: &graph.NodeError{Message: "collect_proposals: no open round", NodeID: NodeCollectProposals},
		}
	}

	round.Proposals = state.ProposalResults

	record.UpdatedAt = nowUTC()

	if len(validProposals(round)) == 0 {
		record.Status = design.StatusFailed
		return graph.NodeResult[design.PipelineState]{
			Delta: design.PipelineState{
				Record: record,
				Events: []emit.Event{n.deps.emitEvent(record.ID, EvtStatusFailed, map[string]interface{}{
					"reason": "no valid proposals",
					"round":  state.CurrentRound,
				})},
			},
			Route: graph.Goto(NodeFinalizeFailed),
		}
	}

	return graph.NodeResult[design.PipelineState]{
		Delta: design.PipelineState{
			Record: record,
		},
		Route: graph.Goto(NodeSandbox),
	}
}
