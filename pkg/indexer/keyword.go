package indexer

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/aman-labs/coderetrieval/internal/keywordindex"
	"github.com/aman-labs/coderetrieval/internal/model"
)

// ErrNilKeywordIndex is returned when attempting to create a KeywordIndexer
// without an index.
var ErrNilKeywordIndex = errors.New("keyword index is required")

// KeywordIndexer provides bleve-backed keyword indexing for code chunks.
//
// It wraps a [keywordindex.Index] and provides a higher-level interface
// that operates on [model.Chunk] objects (domain model) rather than the
// index's internal document representation.
//
// KeywordIndexer is safe for concurrent use. All methods may be called
// from multiple goroutines simultaneously.
type KeywordIndexer struct {
	index  *keywordindex.Index
	mu     sync.RWMutex
	closed bool
}

// Option configures a KeywordIndexer.
type Option func(*KeywordIndexer)

// WithIndex sets the keyword index backend.
//
// This is a required option; NewKeywordIndexer will return an error
// if no index is provided.
func WithIndex(idx *keywordindex.Index) Option {
	return func(i *KeywordIndexer) {
		i.index = idx
	}
}

// NewKeywordIndexer creates a new keyword indexer with the given options.
//
//	indexer, err := NewKeywordIndexer(WithIndex(idx))
//
// Returns ErrNilKeywordIndex if no index is provided.
func NewKeywordIndexer(opts ...Option) (*KeywordIndexer, error) {
	i := &KeywordIndexer{}

	for _, opt := range opts {
		opt(i)
	}

	if i.index == nil {
		return nil, ErrNilKeywordIndex
	}

	return i, nil
}

// Index adds chunks to the keyword index.
//
// Empty or nil slices are no-ops that return nil.
// This method is thread-safe.
func (i *KeywordIndexer) Index(ctx context.Context, chunks []*model.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	i.mu.Lock()
	defer i.mu.Unlock()

	if err := i.index.AddChunks(ctx, chunks); err != nil {
		return fmt.Errorf("keyword index: %w", err)
	}

	return nil
}

// DeleteByFile removes every chunk indexed for path.
//
// A path with nothing indexed is a no-op (returns 0, nil).
// This method is thread-safe.
func (i *KeywordIndexer) DeleteByFile(ctx context.Context, path string) (int, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	n, err := i.index.RemoveByFile(ctx, path)
	if err != nil {
		return 0, fmt.Errorf("keyword delete: %w", err)
	}

	return n, nil
}

// Clear removes all content from the keyword index.
//
// It collects every document ID, recovers each ID's file path, and removes
// each file's chunks once via RemoveByFile; an empty ID is skipped. It
// stops at the first removal error.
//
// This method is thread-safe.
func (i *KeywordIndexer) Clear(ctx context.Context) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	ids, err := i.index.AllIDs(ctx)
	if err != nil {
		return fmt.Errorf("keyword get all IDs: %w", err)
	}
	if len(ids) == 0 {
		return nil
	}

	seen := map[string]struct{}{}
	for _, id := range ids {
		filePath := filePathFromDocumentID(id)
		if filePath == "" {
			continue
		}
		if _, ok := seen[filePath]; ok {
			continue
		}
		seen[filePath] = struct{}{}
		if _, err := i.index.RemoveByFile(ctx, filePath); err != nil {
			return fmt.Errorf("keyword clear: %w", err)
		}
	}

	return nil
}

// Stats returns current index statistics.
//
// This method is thread-safe.
func (i *KeywordIndexer) Stats() IndexStats {
	i.mu.RLock()
	defer i.mu.RUnlock()

	ids, err := i.index.AllIDs(context.Background())
	if err != nil {
		return IndexStats{}
	}
	return IndexStats{ChunkCount: len(ids)}
}

// Close releases all resources held by the indexer.
//
// This method is idempotent; calling it multiple times is safe.
// This method is thread-safe.
func (i *KeywordIndexer) Close() error {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.closed {
		return nil
	}
	i.closed = true

	if err := i.index.Close(); err != nil {
		return fmt.Errorf("keyword close: %w", err)
	}

	return nil
}

// filePathFromDocumentID recovers a chunk's source file from a document ID
// built by model.NewChunkID (file_path:entity_name:start_line:end_line).
func filePathFromDocumentID(id string) string {
	for i := 0; i < len(id); i++ {
		if id[i] == ':' {
			return id[:i]
		}
	}
	return id
}

// Ensure KeywordIndexer implements Indexer at compile time.
var _ Indexer = (*KeywordIndexer)(nil)
