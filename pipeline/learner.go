package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/cadforge/pipeline/adapters/llm"
	"github.com/cadforge/pipeline/design"
	"github.com/dshills/langgraph-go/graph"
	"github.com/dshills/langgraph-go/graph/emit"
	"github.com/dshills/langgraph-go/graph/model"
	"github.com/cadforge/pipeline/jsonextract"
)

// LearnerNode asks the supervisor-class model to extract patterns and
// anti-patterns from the round's proposals and its winner (§4.13). A parse
// failure is never fatal: the node emits EvtLearningFailed, keeps the raw
// reply as LearnerData, and proceeds rather than blocking the run.
// LearnerData is empty only when no learner model is configured or the
// model call errors.
type LearnerNode struct {
	deps *Deps
}

func NewLearnerNode(deps *Deps) *LearnerNode {
	return &LearnerNode{deps: deps}
}

func (n *LearnerNode) Run(ctx context.Context, state design.PipelineState) graph.NodeResult[design.PipelineState] {
	record := state.Record
	round := record.CurrentRound()
	if round == nil {
		return graph.NodeResult[design.PipelineState]{
			Err: &graph.NodeError{Message: "learner: no open round", NodeID: NodeLearner},
		}
	}

	var events []emit.Event
	events = append(events, n.deps.emitEvent(record.ID, EvtLearningRunning, map[string]interface{}{"round": round.RoundNumber}))

	var learnerData string
	if n.deps.LearnerModel == nil {
		events = append(events, n.deps.emitEvent(record.ID, EvtLearningFailed, map[string]interface{}{"reason": "no learner model configured"}))
	} else {
		messages := []model.Message{
			llm.System("You extract reusable patterns and anti-patterns from a round of competing CAD-code proposals. Respond with a single JSON object containing \"patterns\" and \"anti_patterns\" arrays of strings."),
			llm.User(buildLearnerPrompt(record, round)),
		}
		out := llm.SafeChat(ctx, n.deps.LearnerModel, messages, nil)
		if llm.IsError(out) {
			events = append(events, n.deps.emitEvent(record.ID, EvtLearningFailed, map[string]interface{}{"reason": out.Text}))
		} else {
			parsed := jsonextract.Parse(out.Text)
			if !parsed.OK() {
				events = append(events, n.deps.emitEvent(record.ID, EvtLearningFailed, map[string]interface{}{"reason": "unparseable learner reply"}))
			} else {
				learnerData = out.Text
			}
		}
	}

	events = append(events, n.deps.emitEvent(record.ID, EvtLearningCompleted, map[string]interface{}{"round": round.RoundNumber}))

	return graph.NodeResult[design.PipelineState]{
		Delta: design.PipelineState{
			LearnerData: learnerData,
			Events:      events,
		},
		Route: graph.Goto(NodeVaultIndex),
	}
}

func buildLearnerPrompt(record design.DesignRecord, round *design.Round) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Specification:\n%s\n\nRound %d proposals:\n", record.Specification, round.RoundNumber)
	for _, p := range round.Proposals {
		blended := 0.0
		if p.Fidelity != nil {
			blended = p.Fidelity.BlendedScore
		}
		fmt.Fprintf(&b, "- model=%s status=%s blended_score=%.2f winner=%v\n", p.Model, p.Status, blended, p.ID == round.WinnerID)
	}
	return b.String()
}
