package pipeline

import (
	"context"
	"fmt"
	"sync"

	"github.com/cadforge/pipeline/adapters/llm"
	"github.com/cadforge/pipeline/design"
	"github.com/dshills/langgraph-go/graph"
	"github.com/dshills/langgraph-go/graph/emit"
	"github.com/dshills/langgraph-go/graph/model"
	"github.com/cadforge/pipeline/jsonextract"
)

// judgeCriticName is the CriticModel value recorded for the judge-as-critic
// pass, distinguishing it from peer-model critiques in the persisted record.
const judgeCriticName = "judge"

// CritiqueFanOutNode dispatches |models|×|valid| peer critiques, excluding
// self-critique, plus one judge-as-critic invocation per valid proposal
// (§4.8). This intentionally duplicates the judge's role with the
// standalone fidelity-fan-out judge pass later in the pipeline — the spec's
// Open Question on judge-as-critic duplication is preserved as directed
// ("do not guess"), not resolved away.
type CritiqueFanOutNode struct {
	deps *Deps
}

func NewCritiqueFanOutNode(deps *Deps) *CritiqueFanOutNode {
	return &CritiqueFanOutNode{deps: deps}
}

type critiqueTask struct {
	criticModel string
	criticClient llm.Client
	target      design.Proposal
}

func (n *CritiqueFanOutNode) Run(ctx context.Context, state design.PipelineState) graph.NodeResult[design.PipelineState] {
	record := state.Record
	round := record.CurrentRound()
	if round == nil {
		return graph.NodeResult[design.PipelineState]{
			Err: &graph.NodeError{Message: "critique_fan_out: no open round", NodeID: NodeCritiqueFanOut},
		}
	}

	valid := validProposals(round)
	startEvt := n.deps.emitEvent(record.ID, EvtDebateRunning, map[string]interface{}{
		"round": round.RoundNumber,
		"valid": len(valid),
	})

	var tasks []critiqueTask
	for _, target := range valid {
		for _, agent := range n.deps.Config.ProposalAgents {
			if agent.Model == target.Model {
				continue // §4.8: a model does not critique its own proposal.
			}
			tasks = append(tasks, critiqueTask{
				criticModel:  agent.Model,
				criticClient: n.deps.ProposalModels[agent.Model],
				target:       *target,
			})
		}
		tasks = append(tasks, critiqueTask{
			criticModel:  judgeCriticName,
			criticClient: n.deps.JudgeModel,
			target:       *target,
		})
	}

	var wg sync.WaitGroup
	sem := make(chan struct{}, n.deps.concurrency())
	results := make(chan design.Critique, len(tasks))

	for _, t := range tasks {
		wg.Add(1)
		go func(task critiqueTask) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			results <- n.critique(ctx, record, task)
		}(t)
	}

	wg.Wait()
	close(results)

	critiques := make([]design.Critique, 0, len(tasks))
	for c := range results {
		critiques = append(critiques, c)
	}

	return graph.NodeResult[design.PipelineState]{
		Delta: design.PipelineState{
			Critiques: critiques,
			Events: []emit.Event{startEvt, n.deps.emitEvent(record.ID, EvtDebateCompleted, map[string]interface{}{
				"round": round.RoundNumber,
				"count": len(critiques),
			})},
		},
		Route: graph.Goto(NodeCollectCritiques),
	}
}

func (n *CritiqueFanOutNode) critique(ctx context.Context, record design.DesignRecord, task critiqueTask) design.Critique {
	c := design.Critique{
		CriticModel:      task.criticModel,
		TargetProposalID: task.target.ID,
		Timestamp:        nowUTC(),
	}

	if task.criticClient == nil {
		c.RawText = "Error: no client configured for critic " + task.criticModel
		return c
	}

	messages := []model.Message{
		llm.System("You are reviewing a competing model's CAD-code proposal. Respond with a single JSON object containing \"strengths\", \"weaknesses\", \"suggested_fixes\", and \"fidelity_concerns\" arrays of strings."),
		llm.User(buildCritiquePrompt(record, task.target)),
	}

	out := llm.SafeChat(ctx, task.criticClient, messages, nil)
	c.RawText = out.Text
	if llm.IsError(out) {
		return c
	}

	parsed := jsonextract.Parse(out.Text)
	c.Strengths = parsed.StringSlice("strengths")
	c.Weaknesses = parsed.StringSlice("weaknesses")
	c.SuggestedFixes = parsed.StringSlice("suggested_fixes")
	c.FidelityConcerns = parsed.StringSlice("fidelity_concerns")
	return c
}

func buildCritiquePrompt(record design.DesignRecord, target design.Proposal) string {
	return fmt.Sprintf(
		"Specification:\n%s\n\nProposal to review (model %s):\n%s\n\nReasoning given by the proposer:\n%s",
		record.Specification, target.Model, target.Code, target.Reasoning,
	)
}

// CollectCritiquesNode attaches each dispatched Critique to its target
// proposal's CritiquesReceived list (§4.8 "The collector node attaches each
// Critique to its target_proposal_id").
type CollectCritiquesNode struct {
	deps *Deps
}

func NewCollectCritiquesNode(deps *Deps) *CollectCritiquesNode {
	return &CollectCritiquesNode{deps: deps}
}

func (n *CollectCritiquesNode) Run(ctx context.Context, state design.PipelineState) graph.NodeResult[design.PipelineState] {
	record := state.Record
	round := record.CurrentRound()
	if round == nil {
		return graph.NodeResult[design.PipelineState]{
			Err: &graph.NodeError{Message: "collect_critiques: no open round", NodeID: NodeCollectCritiques},
		}
	}

	byTarget := make(map[string][]design.Critique, len(round.Proposals))
	for _, c := range state.Critiques {
		byTarget[c.TargetProposalID] = append(byTarget[c.TargetProposalID], c)
	}
	for i := range round.Proposals {
		round.Proposals[i].CritiquesReceived = byTarget[round.Proposals[i].ID]
	}

	return graph.NodeResult[design.PipelineState]{
		Delta: design.PipelineState{
			Record: record,
		},
		Route: graph.Goto(NodeFidelityFanOut),
	}
}
