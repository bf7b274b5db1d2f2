package pipeline

import (
	"context"

	"github.com/dshills/langgraph-go/graph/model"
)

// erroringClient is a minimal llm.Client that always fails, for exercising
// the fallback paths every node takes on a collaborator error.
type erroringClient struct {
	err error
}

func (c *erroringClient) Chat(ctx context.Context, messages []model.Message, tools []model.ToolSpec) (model.ChatOut, error) {
	return model.ChatOut{}, c.err
}
