// Package vault narrows the out-of-scope knowledge-vault collaborator to
// the port spec §6 describes: "index(chunks) and search(query, limit) ->
// results."
package vault

import "context"

// Chunk is one learning chunk built from a design record (§4.14: "winning
// code, failed attempts with their errors, critique feedback for refined
// rounds, a high-level prompt->geometry summary").
type Chunk struct {
	Text     string
	Metadata map[string]any
}

// SearchResult is one match returned by Search.
type SearchResult struct {
	Text  string
	Score float64
}

// Indexer is the vault port consumed by the vault-index node (§4.14) and,
// for context retrieval, by the supervisor node (§4.3 "optional kb_context
// snippet").
type Indexer interface {
	Index(ctx context.Context, chunks []Chunk) error
	Search(ctx context.Context, query string, limit int) ([]SearchResult, error)
}
