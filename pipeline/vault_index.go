package pipeline

import (
	"context"
	"fmt"

	"github.com/cadforge/pipeline/adapters/vault"
	"github.com/cadforge/pipeline/design"
	"github.com/dshills/langgraph-go/graph"
	"github.com/dshills/langgraph-go/graph/emit"
)

// VaultIndexNode builds learning chunks from the round's outcome and hands
// them to the vault indexer (§4.14): winning code, failed attempts with
// their errors, critique feedback, and a high-level prompt->geometry
// summary. A vault failure is never fatal — it emits EvtLearningFailed and
// lets the run proceed to finalize.
type VaultIndexNode struct {
	deps *Deps
}

func NewVaultIndexNode(deps *Deps) *VaultIndexNode {
	return &VaultIndexNode{deps: deps}
}

func (n *VaultIndexNode) Run(ctx context.Context, state design.PipelineState) graph.NodeResult[design.PipelineState] {
	record := state.Record
	round := record.CurrentRound()
	if round == nil {
		return graph.NodeResult[design.PipelineState]{
			Err: &graph.NodeError{Message: "vault_index: no open round", NodeID: NodeVaultIndex},
		}
	}

	var events []emit.Event

	if n.deps.Vault != nil {
		chunks := buildLearningChunks(record, round, state.LearnerData)
		if err := n.deps.Vault.Index(ctx, chunks); err != nil {
			events = append(events, n.deps.emitEvent(record.ID, EvtLearningFailed, map[string]interface{}{"reason": err.Error()}))
		}
	}

	next := NodeFinalizeSuccess
	if state.WinnerCode == "" {
		next = NodeFinalizeFailed
	}

	return graph.NodeResult[design.PipelineState]{
		Delta: design.PipelineState{Events: events},
		Route: graph.Goto(next),
	}
}

func buildLearningChunks(record design.DesignRecord, round *design.Round, learnerData string) []vault.Chunk {
	var chunks []vault.Chunk

	for _, p := range round.Proposals {
		switch p.Status {
		case design.ProposalSelected:
			chunks = append(chunks, vault.Chunk{
				Text: fmt.Sprintf("Winning CAD code for prompt %q (model %s):\n%s", record.Prompt, p.Model, p.Code),
				Metadata: map[string]any{
					"design_id": record.ID, "round": round.RoundNumber, "proposal_id": p.ID, "kind": "winner",
				},
			})
		case design.ProposalFailed:
			errText := ""
			if p.SandboxEval != nil {
				errText = p.SandboxEval.ExecutionError
			}
			chunks = append(chunks, vault.Chunk{
				Text: fmt.Sprintf("Failed attempt (model %s) for prompt %q: %s", p.Model, record.Prompt, errText),
				Metadata: map[string]any{
					"design_id": record.ID, "round": round.RoundNumber, "proposal_id": p.ID, "kind": "failure",
				},
			})
		}
		for _, c := range p.CritiquesReceived {
			if len(c.Weaknesses) == 0 {
				continue
			}
			chunks = append(chunks, vault.Chunk{
				Text: fmt.Sprintf("Critique feedback on proposal %s (model %s) from %s: %v", p.ID, p.Model, c.CriticModel, c.Weaknesses),
				Metadata: map[string]any{
					"design_id": record.ID, "round": round.RoundNumber, "proposal_id": p.ID, "kind": "critique",
				},
			})
		}
	}

	chunks = append(chunks, vault.Chunk{
		Text: fmt.Sprintf("Prompt: %s\nSpecification: %s\nLearner notes: %s", record.Prompt, record.Specification, learnerData),
		Metadata: map[string]any{
			"design_id": record.ID, "round": round.RoundNumber, "kind": "summary",
		},
	})

	return chunks
}
