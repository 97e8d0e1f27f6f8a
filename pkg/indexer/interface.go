package indexer

import (
	"context"

	"github.com/aman-labs/coderetrieval/internal/model"
)

// Indexer defines the contract for indexing operations.
//
// Implementations must be thread-safe for concurrent use.
// All methods accept a context for cancellation and timeout support.
//
// The Indexer interface operates on [model.Chunk] (domain model),
// abstracting away the underlying storage mechanism.
type Indexer interface {
	// Index adds chunks to the index.
	//
	// Behavior:
	//   - Idempotent: re-indexing the same chunk ID updates the content
	//   - Thread-safe: may be called concurrently
	//   - Empty slice is a no-op (returns nil)
	Index(ctx context.Context, chunks []*model.Chunk) error

	// DeleteByFile removes every chunk previously indexed for path and
	// returns how many were removed.
	//
	// Behavior:
	//   - No-op for a path with nothing indexed (returns 0, nil)
	//   - Thread-safe: may be called concurrently
	DeleteByFile(ctx context.Context, path string) (int, error)

	// Clear removes all indexed content.
	//
	// This is a destructive operation that cannot be undone.
	Clear(ctx context.Context) error

	// Stats returns current index statistics.
	//
	// The returned stats are a snapshot; values may change
	// immediately after the call if other goroutines modify the index.
	Stats() IndexStats

	// Close releases all resources held by the indexer.
	//
	// Behavior:
	//   - Safe to call multiple times (idempotent)
	//   - After Close, other methods may return errors
	Close() error
}

// IndexStats holds statistics about an index.
type IndexStats struct {
	// ChunkCount is the number of indexed chunks.
	ChunkCount int
}
