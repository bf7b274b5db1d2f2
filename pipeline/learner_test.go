package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/cadforge/pipeline/adapters/llm"
	"github.com/cadforge/pipeline/design"
	"github.com/dshills/langgraph-go/graph/model"
)

func TestLearnerNode_NoOpenRound(t *testing.T) {
	node := NewLearnerNode(testDeps())
	result := node.Run(context.Background(), design.PipelineState{Record: design.DesignRecord{ID: "d1"}})
	if result.Err == nil {
		t.Fatal("expected error for a record with no open round")
	}
}

func TestLearnerNode_NoLearnerModel_EmptyLearnerData(t *testing.T) {
	state := design.PipelineState{
		Record: design.DesignRecord{ID: "d1", Rounds: []design.Round{{RoundNumber: 1}}},
	}
	node := NewLearnerNode(testDeps())
	result := node.Run(context.Background(), state)

	if result.Err != nil {
		t.Fatalf("Run() error = %v", result.Err)
	}
	if result.Delta.LearnerData != "" {
		t.Errorf("LearnerData = %q, want empty", result.Delta.LearnerData)
	}
	if result.Route.To != NodeVaultIndex {
		t.Errorf("Route.To = %q, want %q", result.Route.To, NodeVaultIndex)
	}
}

func TestLearnerNode_ModelSucceeds_CapturesReply(t *testing.T) {
	deps := testDeps()
	deps.LearnerModel = llm.NewMock(model.ChatOut{
		Text: `{"patterns": ["fillet corners"], "anti_patterns": ["sharp internal corners"]}`,
	})
	state := design.PipelineState{
		Record: design.DesignRecord{ID: "d1", Rounds: []design.Round{{RoundNumber: 1}}},
	}

	node := NewLearnerNode(deps)
	result := node.Run(context.Background(), state)

	if result.Delta.LearnerData == "" {
		t.Error("LearnerData is empty, want the model's raw reply captured")
	}
}

func TestLearnerNode_ModelErrors_ProceedsWithEmptyData(t *testing.T) {
	deps := testDeps()
	deps.LearnerModel = &erroringClient{err: errors.New("learner unavailable")}
	state := design.PipelineState{
		Record: design.DesignRecord{ID: "d1", Rounds: []design.Round{{RoundNumber: 1}}},
	}

	node := NewLearnerNode(deps)
	result := node.Run(context.Background(), state)

	if result.Err != nil {
		t.Fatalf("Run() error = %v", result.Err)
	}
	if result.Delta.LearnerData != "" {
		t.Errorf("LearnerData = %q, want empty on model error", result.Delta.LearnerData)
	}
	if result.Route.To != NodeVaultIndex {
		t.Errorf("Route.To = %q, want %q (learner failure is never fatal)", result.Route.To, NodeVaultIndex)
	}
}
