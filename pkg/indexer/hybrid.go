package indexer

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/aman-labs/coderetrieval/internal/model"
)

// ErrNoIndexers is returned when attempting to create a HybridIndexer
// without any indexers.
var ErrNoIndexers = errors.New("at least one indexer is required")

// HybridIndexer composes a keyword and a vector indexer.
//
// It fans out Index/DeleteByFile to both, best-effort on delete and
// fail-fast on index. A vector failure after a successful keyword write
// is not rolled back, so the chunks then exist on the keyword side only.
// Either indexer may be nil to support keyword-only or vector-only modes.
//
// HybridIndexer is safe for concurrent use. All methods may be called
// from multiple goroutines simultaneously.
type HybridIndexer struct {
	keyword Indexer // May be nil for vector-only mode
	vector  Indexer // May be nil for keyword-only mode
	mu      sync.RWMutex
	closed  bool
}

// HybridOption configures a HybridIndexer.
type HybridOption func(*HybridIndexer)

// WithKeyword sets the keyword indexer component.
//
// Pass nil to operate in vector-only mode.
func WithKeyword(idx Indexer) HybridOption {
	return func(h *HybridIndexer) {
		h.keyword = idx
	}
}

// WithVector sets the vector indexer component.
//
// Pass nil to operate in keyword-only mode.
func WithVector(idx Indexer) HybridOption {
	return func(h *HybridIndexer) {
		h.vector = idx
	}
}

// NewHybridIndexer creates a hybrid indexer from components.
//
// At least one indexer must be provided. Returns ErrNoIndexers if both
// are nil.
func NewHybridIndexer(opts ...HybridOption) (*HybridIndexer, error) {
	h := &HybridIndexer{}

	for _, opt := range opts {
		opt(h)
	}

	if h.keyword == nil && h.vector == nil {
		return nil, ErrNoIndexers
	}

	return h, nil
}

// Index sends chunks to both indexers sequentially.
//
// Keyword is indexed first, then vector. If either fails, the operation
// fails fast and returns immediately.
//
// Empty or nil slices are no-ops that return nil.
// This method is thread-safe.
func (h *HybridIndexer) Index(ctx context.Context, chunks []*model.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.keyword != nil {
		if err := h.keyword.Index(ctx, chunks); err != nil {
			return fmt.Errorf("hybrid keyword index: %w", err)
		}
	}
	if h.vector != nil {
		if err := h.vector.Index(ctx, chunks); err != nil {
			return fmt.Errorf("hybrid vector index: %w", err)
		}
	}

	return nil
}

// DeleteByFile removes path's chunks from both indexers.
//
// Best-effort: both indexers are attempted even if one fails. Returns the
// keyword side's count, or the vector side's count when the keyword side
// failed or removed nothing.
//
// This method is thread-safe.
func (h *HybridIndexer) DeleteByFile(ctx context.Context, path string) (int, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	var errs []error
	count := 0

	if h.keyword != nil {
		n, err := h.keyword.DeleteByFile(ctx, path)
		if err != nil {
			errs = append(errs, fmt.Errorf("hybrid keyword delete: %w", err))
		} else {
			count = n
		}
	}
	if h.vector != nil {
		n, err := h.vector.DeleteByFile(ctx, path)
		if err != nil {
			errs = append(errs, fmt.Errorf("hybrid vector delete: %w", err))
		} else if count == 0 {
			count = n
		}
	}

	if len(errs) > 0 {
		return count, errors.Join(errs...)
	}
	return count, nil
}

// Clear calls Clear on both indexers; what is removed is up to each
// (VectorIndexer.Clear removes nothing).
//
// Uses fail-fast: if keyword clear fails, vector clear is not attempted.
// This method is thread-safe.
func (h *HybridIndexer) Clear(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.keyword != nil {
		if err := h.keyword.Clear(ctx); err != nil {
			return fmt.Errorf("hybrid keyword clear: %w", err)
		}
	}
	if h.vector != nil {
		if err := h.vector.Clear(ctx); err != nil {
			return fmt.Errorf("hybrid vector clear: %w", err)
		}
	}

	return nil
}

// Stats returns combined statistics from both indexers.
//
// ChunkCount is the maximum of both (should be equal if consistent).
// This method is thread-safe.
func (h *HybridIndexer) Stats() IndexStats {
	h.mu.RLock()
	defer h.mu.RUnlock()

	var stats IndexStats
	if h.keyword != nil {
		stats = h.keyword.Stats()
	}
	if h.vector != nil {
		if vs := h.vector.Stats(); vs.ChunkCount > stats.ChunkCount {
			stats.ChunkCount = vs.ChunkCount
		}
	}

	return stats
}

// Close releases resources from both indexers.
//
// Both indexers are closed even if one fails. Errors are accumulated and
// returned as a joined error. Idempotent.
// This method is thread-safe.
func (h *HybridIndexer) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil
	}
	h.closed = true

	var errs []error
	if h.keyword != nil {
		if err := h.keyword.Close(); err != nil {
			errs = append(errs, fmt.Errorf("hybrid keyword close: %w", err))
		}
	}
	if h.vector != nil {
		if err := h.vector.Close(); err != nil {
			errs = append(errs, fmt.Errorf("hybrid vector close: %w", err))
		}
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// Ensure HybridIndexer implements Indexer at compile time.
var _ Indexer = (*HybridIndexer)(nil)
