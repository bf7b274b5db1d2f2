package llm

import (
	"github.com/dshills/langgraph-go/graph/model"
)

// Mock re-exports graph/model.MockChatModel under this package for test
// construction convenience, so pipeline tests depend only on adapters/llm,
// not on the graph package directly.
type Mock = model.MockChatModel

// NewMock returns a Client that replies with each of responses in turn,
// repeating the last reply once exhausted, grounded on graph/model.Mock's
// scripted-response style.
func NewMock(responses ...model.ChatOut) *Mock {
	return &model.MockChatModel{Responses: responses}
}
