package sandbox

import (
	"context"
	"sync"
)

// MockExecutor returns scripted results in sequence, repeating the last once
// exhausted — grounded on graph/model.MockChatModel's scripted-response
// style, applied here to the sandbox port.
type MockExecutor struct {
	Results []Result
	Err     error

	mu    sync.Mutex
	calls int
}

var _ Executor = (*MockExecutor)(nil)

// Execute implements Executor.
func (m *MockExecutor) Execute(ctx context.Context, code string, outputPath string) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return Result{}, m.Err
	}
	if len(m.Results) == 0 {
		return Result{}, nil
	}
	idx := m.calls
	if idx >= len(m.Results) {
		idx = len(m.Results) - 1
	}
	m.calls++
	return m.Results[idx], nil
}

// CallCount returns how many times Execute returned a scripted result;
// calls that fail on a cancelled context or Err, or find no Results, are
// not counted.
func (m *MockExecutor) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}
