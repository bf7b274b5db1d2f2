package pipeline

import (
	"context"
	"testing"

	"github.com/cadforge/pipeline/adapters/llm"
	"github.com/cadforge/pipeline/config"
	"github.com/cadforge/pipeline/design"
	"github.com/dshills/langgraph-go/graph/model"
)

func TestCritiqueFanOutNode_NoOpenRound(t *testing.T) {
	node := NewCritiqueFanOutNode(testDeps())
	result := node.Run(context.Background(), design.PipelineState{Record: design.DesignRecord{ID: "d1"}})
	if result.Err == nil {
		t.Fatal("expected error for a record with no open round")
	}
}

func TestCritiqueFanOutNode_ExcludesSelfCritiqueIncludesJudge(t *testing.T) {
	deps := testDeps()
	deps.Config = config.PipelineConfig{ProposalAgents: []config.ProposalAgent{
		{Model: "model-a"}, {Model: "model-b"},
	}}
	critiqueOut := model.ChatOut{Text: `{"strengths": ["clean"], "weaknesses": ["thin wall"], "suggested_fixes": [], "fidelity_concerns": []}`}
	deps.ProposalModels = map[string]llm.Client{
		"model-a": llm.NewMock(critiqueOut),
		"model-b": llm.NewMock(critiqueOut),
	}
	deps.JudgeModel = llm.NewMock(critiqueOut)

	state := design.PipelineState{
		Record: design.DesignRecord{
			ID: "d1",
			Rounds: []design.Round{{RoundNumber: 1, Proposals: []design.Proposal{
				{ID: "p1", Model: "model-a", Status: design.ProposalCompleted, Code: "module a() {}"},
				{ID: "p2", Model: "model-b", Status: design.ProposalCompleted, Code: "module b() {}"},
			}}},
		},
	}

	node := NewCritiqueFanOutNode(deps)
	result := node.Run(context.Background(), state)

	if result.Err != nil {
		t.Fatalf("Run() error = %v", result.Err)
	}
	// Each proposal gets: the other proposal agent's model + the judge = 2
	// critiques, for 2 proposals = 4 total.
	if len(result.Delta.Critiques) != 4 {
		t.Fatalf("len(Critiques) = %d, want 4", len(result.Delta.Critiques))
	}
	for _, c := range result.Delta.Critiques {
		if c.TargetProposalID == "p1" && c.CriticModel == "model-a" {
			t.Error("model-a critiqued its own proposal p1")
		}
		if c.TargetProposalID == "p2" && c.CriticModel == "model-b" {
			t.Error("model-b critiqued its own proposal p2")
		}
	}
	if result.Route.To != NodeCollectCritiques {
		t.Errorf("Route.To = %q, want %q", result.Route.To, NodeCollectCritiques)
	}
}

func TestCritiqueFanOutNode_MissingCriticClientProducesErrorCritique(t *testing.T) {
	deps := testDeps()
	deps.Config = config.PipelineConfig{ProposalAgents: []config.ProposalAgent{
		{Model: "model-a"}, {Model: "model-b"},
	}}
	deps.ProposalModels = map[string]llm.Client{} // no clients configured

	state := design.PipelineState{
		Record: design.DesignRecord{
			ID: "d1",
			Rounds: []design.Round{{RoundNumber: 1, Proposals: []design.Proposal{
				{ID: "p1", Model: "model-a", Status: design.ProposalCompleted, Code: "module a() {}"},
			}}},
		},
	}

	node := NewCritiqueFanOutNode(deps)
	result := node.Run(context.Background(), state)

	for _, c := range result.Delta.Critiques {
		if len(c.RawText) < 6 || c.RawText[:6] != "Error:" {
			t.Errorf("critique from %q = %+v, want Error: prefix for missing client", c.CriticModel, c)
		}
	}
}

func TestCollectCritiquesNode_AttachesCritiquesToTarget(t *testing.T) {
	state := design.PipelineState{
		Record: design.DesignRecord{
			ID: "d1",
			Rounds: []design.Round{{RoundNumber: 1, Proposals: []design.Proposal{
				{ID: "p1"}, {ID: "p2"},
			}}},
		},
		Critiques: []design.Critique{
			{CriticModel: "model-b", TargetProposalID: "p1", Weaknesses: []string{"thin wall"}},
			{CriticModel: "judge", TargetProposalID: "p1", Weaknesses: []string{"tolerance too tight"}},
			{CriticModel: "model-a", TargetProposalID: "p2"},
		},
	}

	node := NewCollectCritiquesNode(testDeps())
	result := node.Run(context.Background(), state)

	if result.Err != nil {
		t.Fatalf("Run() error = %v", result.Err)
	}
	round := result.Delta.Record.CurrentRound()
	p1 := round.Proposals[0]
	if len(p1.CritiquesReceived) != 2 {
		t.Errorf("p1.CritiquesReceived = %v, want 2", p1.CritiquesReceived)
	}
	p2 := round.Proposals[1]
	if len(p2.CritiquesReceived) != 1 {
		t.Errorf("p2.CritiquesReceived = %v, want 1", p2.CritiquesReceived)
	}
	if result.Route.To != NodeFidelityFanOut {
		t.Errorf("Route.To = %q, want %q", result.Route.To, NodeFidelityFanOut)
	}
}

func TestCollectCritiquesNode_NoOpenRound(t *testing.T) {
	node := NewCollectCritiquesNode(testDeps())
	result := node.Run(context.Background(), design.PipelineState{Record: design.DesignRecord{ID: "d1"}})
	if result.Err == nil {
		t.Fatal("expected error for a record with no open round")
	}
}
