// Package embedder adapts the embedding collaborator (spec §6.1: "text →
// vector of dimension D, D constant system-wide") into two concrete
// implementations: a dependency-free deterministic embedder for tests and
// offline use, and an HTTP client against an Ollama-compatible embedding
// server.
package embedder

import "context"

// Embedder generates vector embeddings for text. Dimensions is constant
// for the lifetime of an Embedder instance.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	ModelName() string
	Close() error
}
