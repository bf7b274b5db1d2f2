package vault

import (
	"context"
	"sync"
)

// Mock records indexed chunks and returns scripted search results.
type Mock struct {
	SearchResults []SearchResult
	Err           error

	mu      sync.Mutex
	Indexed []Chunk
}

var _ Indexer = (*Mock)(nil)

func (m *Mock) Index(ctx context.Context, chunks []Chunk) error {
	if m.Err != nil {
		return m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Indexed = append(m.Indexed, chunks...)
	return nil
}

func (m *Mock) Search(ctx context.Context, query string, limit int) ([]SearchResult, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	if limit > 0 && limit < len(m.SearchResults) {
		return m.SearchResults[:limit], nil
	}
	return m.SearchResults, nil
}
