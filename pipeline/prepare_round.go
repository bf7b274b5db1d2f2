package pipeline

import (
	"context"

	"github.com/cadforge/pipeline/design"
	"github.com/dshills/langgraph-go/graph"
	"github.com/dshills/langgraph-go/graph/emit"
)

// PrepareRoundNode opens the next Round (§4.4). The new Round carries only
// its number and timestamp; any prior winner code and accumulated critique
// feedback stay in PipelineState, and the round:started event reports
// whether they are present. It also
// resets the round-scoped accumulator fields (Critiques, ProposalResults,
// FidelityResults) via ClearRoundAccumulators so prior-round data never
// bleeds into the new round's fan-out.
type PrepareRoundNode struct {
	deps *Deps
}

func NewPrepareRoundNode(deps *Deps) *PrepareRoundNode {
	return &PrepareRoundNode{deps: deps}
}

func (n *PrepareRoundNode) Run(ctx context.Context, state design.PipelineState) graph.NodeResult[design.PipelineState] {
	record := state.Record
	roundNumber := len(record.Rounds) + 1

	round := design.Round{
		RoundNumber: roundNumber,
		Timestamp:   nowUTC(),
	}
	record.Rounds = append(record.Rounds, round)
	record.Status = design.StatusProposing
	record.UpdatedAt = nowUTC()

	evt := n.deps.emitEvent(record.ID, EvtRoundStarted, map[string]interface{}{
		"round":               roundNumber,
		"has_prior_winner":    state.WinnerCode != "",
		"feedback_carried_in": len(state.AccumulatedFeedback),
	})

	return graph.NodeResult[design.PipelineState]{
		Delta: design.PipelineState{
			Record:                 record,
			CurrentRound:           roundNumber,
			Events:                 []emit.Event{evt},
			ClearRoundAccumulators: true,
		},
		Route: graph.Goto(NodeProposalFanOut),
	}
}
