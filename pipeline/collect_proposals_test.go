package pipeline

import (
	"context"
	"testing"

	"github.com/cadforge/pipeline/design"
)

func TestCollectProposalsNode_NoOpenRound(t *testing.T) {
	node := NewCollectProposalsNode(testDeps())
	result := node.Run(context.Background(), design.PipelineState{Record: design.DesignRecord{ID: "d1"}})
	if result.Err == nil {
		t.Fatal("expected error for a record with no open round")
	}
}

func TestCollectProposalsNode_AllFailed_RoutesToFinalizeFailed(t *testing.T) {
	state := design.PipelineState{
		Record: design.DesignRecord{
			ID:     "d1",
			Rounds: []design.Round{{RoundNumber: 1}},
		},
		ProposalResults: []design.Proposal{
			{ID: "p1", Status: design.ProposalFailed},
			{ID: "p2", Status: design.ProposalFailed},
		},
	}
	node := NewCollectProposalsNode(testDeps())
	result := node.Run(context.Background(), state)

	if result.Err != nil {
		t.Fatalf("Run() error = %v", result.Err)
	}
	if result.Delta.Record.Status != design.StatusFailed {
		t.Errorf("Status = %q, want %q", result.Delta.Record.Status, design.StatusFailed)
	}
	if result.Route.To != NodeFinalizeFailed {
		t.Errorf("Route.To = %q, want %q", result.Route.To, NodeFinalizeFailed)
	}
}

func TestCollectProposalsNode_SomeCompleted_RoutesToSandbox(t *testing.T) {
	state := design.PipelineState{
		Record: design.DesignRecord{
			ID:     "d1",
			Rounds: []design.Round{{RoundNumber: 1}},
		},
		ProposalResults: []design.Proposal{
			{ID: "p1", Status: design.ProposalFailed},
			{ID: "p2", Status: design.ProposalCompleted, Code: "module x() {}"},
		},
	}
	node := NewCollectProposalsNode(testDeps())
	result := node.Run(context.Background(), state)

	if result.Err != nil {
		t.Fatalf("Run() error = %v", result.Err)
	}
	if len(result.Delta.Record.CurrentRound().Proposals) != 2 {
		t.Errorf("len(Proposals) = %d, want 2", len(result.Delta.Record.CurrentRound().Proposals))
	}
	if result.Route.To != NodeSandbox {
		t.Errorf("Route.To = %q, want %q", result.Route.To, NodeSandbox)
	}
}
