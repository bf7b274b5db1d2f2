// Package llm narrows the teacher's graph/model.ChatModel port to the exact
// contract spec §6 describes for the LLM Adapter: "call(messages, system,
// tools?) -> { content_blocks, usage? }... The adapter never raises; errors
// surface as a single text block whose text begins with Error:".
package llm

import (
	"context"

	"github.com/dshills/langgraph-go/graph/model"
)

// Client is the narrow LLM port the pipeline consumes. It is satisfied
// directly by graph/model.ChatModel implementations (anthropic, openai,
// google, mock) — no adaptation needed for the happy path, since the
// teacher's adapters already speak this shape.
type Client interface {
	Chat(ctx context.Context, messages []model.Message, tools []model.ToolSpec) (model.ChatOut, error)
}

// SafeChat calls client.Chat and, per §6, never returns an error to the
// caller: a failed call becomes a ChatOut whose Text begins with "Error:",
// which callers can detect with IsError.
func SafeChat(ctx context.Context, client Client, messages []model.Message, tools []model.ToolSpec) model.ChatOut {
	out, err := client.Chat(ctx, messages, tools)
	if err != nil {
		return model.ChatOut{Text: "Error: " + err.Error()}
	}
	return out
}

// IsError reports whether a ChatOut produced by SafeChat represents a
// collaborator failure rather than a model reply.
func IsError(out model.ChatOut) bool {
	return len(out.Text) >= 6 && out.Text[:6] == "Error:"
}

// System builds the system-role message conventionally placed first in a
// conversation, matching graph/model.Message's role constants.
func System(text string) model.Message {
	return model.Message{Role: model.RoleSystem, Content: text}
}

// User builds a user-role message.
func User(text string) model.Message {
	return model.Message{Role: model.RoleUser, Content: text}
}

// Assistant builds an assistant-role message, used to replay prior turns
// when building the bounded tool-loop's local history (§4.5).
func Assistant(text string) model.Message {
	return model.Message{Role: model.RoleAssistant, Content: text}
}
