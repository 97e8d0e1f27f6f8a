package indexer

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/aman-labs/coderetrieval/internal/model"
	"github.com/aman-labs/coderetrieval/internal/vectorstore"
)

// ErrNilEmbedder is returned when attempting to create a VectorIndexer
// without an embedder.
var ErrNilEmbedder = errors.New("embedder is required")

// ErrNilVectorStore is returned when attempting to create a VectorIndexer
// without a vector store.
var ErrNilVectorStore = errors.New("vector store is required")

// Embedder is the embedding collaborator a VectorIndexer needs: batch text
// to dense vectors (spec §6.1).
type Embedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// VectorIndexer provides semantic indexing for code chunks.
//
// It generates embeddings via an [Embedder] and stores them in a
// [vectorstore.Store]. This enables semantic similarity search over
// indexed content.
//
// VectorIndexer is safe for concurrent use. All methods may be called
// from multiple goroutines simultaneously.
type VectorIndexer struct {
	embedder Embedder
	store    *vectorstore.Store
	mu       sync.RWMutex
	closed   bool
}

// VectorOption configures a VectorIndexer.
type VectorOption func(*VectorIndexer)

// WithEmbedder sets the embedder for generating embeddings.
//
// This is a required option; NewVectorIndexer will return an error
// if no embedder is provided.
func WithEmbedder(e Embedder) VectorOption {
	return func(v *VectorIndexer) {
		v.embedder = e
	}
}

// WithVectorStore sets the vector store backend.
//
// This is a required option; NewVectorIndexer will return an error
// if no store is provided.
func WithVectorStore(s *vectorstore.Store) VectorOption {
	return func(v *VectorIndexer) {
		v.store = s
	}
}

// NewVectorIndexer creates a new vector indexer with the given options.
//
//	indexer, err := NewVectorIndexer(
//	    WithEmbedder(embedder),
//	    WithVectorStore(vectorStore),
//	)
//
// Returns ErrNilEmbedder if no embedder is provided.
// Returns ErrNilVectorStore if no store is provided.
func NewVectorIndexer(opts ...VectorOption) (*VectorIndexer, error) {
	v := &VectorIndexer{}

	for _, opt := range opts {
		opt(v)
	}

	if v.embedder == nil {
		return nil, ErrNilEmbedder
	}
	if v.store == nil {
		return nil, ErrNilVectorStore
	}

	return v, nil
}

// Index generates embeddings for chunks and stores them in the vector store.
//
// The process:
//  1. Extract text content from chunks
//  2. Generate embeddings via embedder.EmbedBatch()
//  3. Upsert one vectorstore.Entry per chunk, keyed by its vector entry ID
//
// Empty or nil slices are no-ops that return nil.
// This method is thread-safe.
func (v *VectorIndexer) Index(ctx context.Context, chunks []*model.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
	}

	embeddings, err := v.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return fmt.Errorf("vector embed: %w", err)
	}
	if len(embeddings) != len(chunks) {
		return fmt.Errorf("vector embed: got %d embeddings for %d chunks", len(embeddings), len(chunks))
	}

	entries := make([]vectorstore.Entry, len(chunks))
	for i, c := range chunks {
		ve := model.VectorEntryFromChunk(c, embeddings[i])
		entries[i] = vectorstore.Entry{ID: ve.ID, Vector: ve.Vector, Metadata: ve.Metadata}
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	if err := v.store.UpsertBatch(ctx, entries); err != nil {
		return fmt.Errorf("vector store upsert: %w", err)
	}

	return nil
}

// DeleteByFile removes every vector indexed for path.
//
// A path with nothing indexed is a no-op (returns 0, nil).
// This method is thread-safe.
func (v *VectorIndexer) DeleteByFile(ctx context.Context, path string) (int, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	ids := v.store.IDsForFilePath(path)
	if len(ids) == 0 {
		return 0, nil
	}

	n, err := v.store.DeleteBatch(ctx, ids)
	if err != nil {
		return 0, fmt.Errorf("vector delete: %w", err)
	}

	return n, nil
}

// Clear removes nothing: the vector store has no bulk-wipe operation, so
// Clear returns nil and every stored vector stays in place. Closing the
// indexer and building a new store is the way to reset it.
//
// This method is thread-safe.
func (v *VectorIndexer) Clear(ctx context.Context) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	// The store exposes no bulk-wipe primitive; Close+recreate is the
	// documented reset path, so Clear here is intentionally a no-op that
	// callers should not rely on for a hard reset.
	return nil
}

// Stats returns current index statistics.
//
// This method is thread-safe.
func (v *VectorIndexer) Stats() IndexStats {
	v.mu.RLock()
	defer v.mu.RUnlock()

	return IndexStats{ChunkCount: v.store.Count()}
}

// Close releases all resources held by the indexer.
//
// This method is idempotent; calling it multiple times is safe.
// This method is thread-safe.
func (v *VectorIndexer) Close() error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.closed {
		return nil
	}
	v.closed = true

	if err := v.store.Close(); err != nil {
		return fmt.Errorf("vector close: %w", err)
	}

	return nil
}

// Ensure VectorIndexer implements Indexer at compile time.
var _ Indexer = (*VectorIndexer)(nil)
