// Package vectorstore adapts coder/hnsw into the engine's vector-search
// contract: dimension-checked upserts with metadata, similarity search with
// an optional threshold, and a file_path side index for bulk invalidation
// when a source file changes.
package vectorstore

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/coder/hnsw"

	retrievalerrors "github.com/aman-labs/coderetrieval/internal/errors"
	"github.com/aman-labs/coderetrieval/internal/model"
)

// DefaultBatchSize is the default grouping size for batched upserts.
const DefaultBatchSize = 100

// Entry is a single vector to upsert, carrying its chunk metadata.
type Entry struct {
	ID       string
	Vector   []float32
	Metadata map[string]string
}

// SearchHit is a single vector search result.
type SearchHit struct {
	ID         string
	Vector     []float32
	Metadata   map[string]string
	Similarity float32
}

// Store is the vector store adapter backing C7.
type Store struct {
	mu         sync.RWMutex
	graph      *hnsw.Graph[uint64]
	dimensions int
	batchSize  int
	closed     bool

	idMap   map[string]uint64
	keyMap  map[uint64]string
	meta    map[string]map[string]string
	updated map[string]time.Time
	nextKey uint64

	// filePathIndex supports bulk invalidation: file_path -> set of vector IDs.
	filePathIndex map[string]map[string]struct{}
}

// Config configures a new Store.
type Config struct {
	Dimensions int
	EfSearch   int
	BatchSize  int
}

// New creates a vector store with the given fixed dimension D and search
// parameters.
func New(cfg Config) (*Store, error) {
	if cfg.Dimensions <= 0 {
		return nil, retrievalerrors.ValidationError(retrievalerrors.ErrCodeConfigInvalid, "vectorstore: dimensions must be positive")
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.EfSearch <= 0 {
		cfg.EfSearch = 20
	}

	graph := hnsw.NewGraph[uint64]()
	graph.Distance = hnsw.CosineDistance
	graph.M = 16
	graph.EfSearch = cfg.EfSearch
	graph.Ml = 0.25

	return &Store{
		graph:         graph,
		dimensions:    cfg.Dimensions,
		batchSize:     cfg.BatchSize,
		idMap:         make(map[string]uint64),
		keyMap:        make(map[uint64]string),
		meta:          make(map[string]map[string]string),
		updated:       make(map[string]time.Time),
		filePathIndex: make(map[string]map[string]struct{}),
	}, nil
}

// Upsert validates the vector's dimension and inserts or overwrites the
// row for id, bumping its updated_at.
func (s *Store) Upsert(ctx context.Context, id string, vector []float32, metadata map[string]string) error {
	if len(vector) != s.dimensions {
		return retrievalerrors.ValidationError(retrievalerrors.ErrCodeVectorBackend,
			fmt.Sprintf("vectorstore: vector dimension %d != expected %d", len(vector), s.dimensions))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return retrievalerrors.ValidationError(retrievalerrors.ErrCodeVectorBackend, "vectorstore: store is closed")
	}

	s.upsertLocked(id, vector, metadata)
	return nil
}

func (s *Store) upsertLocked(id string, vector []float32, metadata map[string]string) {
	if existingKey, exists := s.idMap[id]; exists {
		s.removeFromFilePathIndex(id, s.meta[id])
		delete(s.keyMap, existingKey)
		delete(s.idMap, id)
	}

	vec := make([]float32, len(vector))
	copy(vec, vector)
	normalizeInPlace(vec)

	key := s.nextKey
	s.nextKey++
	s.graph.Add(hnsw.MakeNode(key, vec))

	s.idMap[id] = key
	s.keyMap[key] = id
	s.meta[id] = metadata
	s.updated[id] = time.Now()
	s.addToFilePathIndex(id, metadata)
}

// UpsertChunk upserts a chunk's embedding, deriving the vector ID and
// metadata from the chunk itself.
func (s *Store) UpsertChunk(ctx context.Context, c *model.Chunk, vector []float32) error {
	entry := model.VectorEntryFromChunk(c, vector)
	return s.Upsert(ctx, entry.ID, entry.Vector, entry.Metadata)
}

// UpsertBatch groups entries into batches of Config.BatchSize and upserts
// each batch transactionally; a failure in any entry raises a backend
// error without partially applying the rest of that batch.
func (s *Store) UpsertBatch(ctx context.Context, entries []Entry) error {
	if len(entries) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return retrievalerrors.ValidationError(retrievalerrors.ErrCodeVectorBackend, "vectorstore: store is closed")
	}

	for start := 0; start < len(entries); start += s.batchSize {
		end := start + s.batchSize
		if end > len(entries) {
			end = len(entries)
		}
		for _, e := range entries[start:end] {
			if len(e.Vector) != s.dimensions {
				return retrievalerrors.BackendError(retrievalerrors.ErrCodeVectorBackend,
					fmt.Sprintf("vectorstore: batch upsert failed, vector %q has dimension %d != expected %d", e.ID, len(e.Vector), s.dimensions), nil)
			}
		}
		for _, e := range entries[start:end] {
			s.upsertLocked(e.ID, e.Vector, e.Metadata)
		}
	}
	return nil
}

// Search returns the k nearest neighbors to query, descending by
// similarity (1 - cosine_distance). When threshold is non-nil, only hits
// with similarity >= threshold are returned.
func (s *Store) Search(ctx context.Context, query []float32, k int, threshold *float32) ([]SearchHit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, retrievalerrors.ValidationError(retrievalerrors.ErrCodeVectorBackend, "vectorstore: store is closed")
	}
	if len(query) != s.dimensions {
		return nil, retrievalerrors.ValidationError(retrievalerrors.ErrCodeVectorBackend,
			fmt.Sprintf("vectorstore: query dimension %d != expected %d", len(query), s.dimensions))
	}
	if s.graph.Len() == 0 {
		return []SearchHit{}, nil
	}

	normalized := make([]float32, len(query))
	copy(normalized, query)
	normalizeInPlace(normalized)

	nodes := s.graph.Search(normalized, k)

	hits := make([]SearchHit, 0, len(nodes))
	for _, node := range nodes {
		id, ok := s.keyMap[node.Key]
		if !ok {
			continue // lazily deleted
		}
		distance := s.graph.Distance(normalized, node.Value)
		similarity := 1.0 - distance
		if threshold != nil && similarity < *threshold {
			continue
		}
		hits = append(hits, SearchHit{
			ID:         id,
			Vector:     node.Value,
			Metadata:   s.meta[id],
			Similarity: similarity,
		})
	}

	sort.Slice(hits, func(i, j int) bool { return hits[i].Similarity > hits[j].Similarity })
	return hits, nil
}

// Delete removes id, returning whether it was present.
func (s *Store) Delete(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false, retrievalerrors.ValidationError(retrievalerrors.ErrCodeVectorBackend, "vectorstore: store is closed")
	}

	key, exists := s.idMap[id]
	if !exists {
		return false, nil
	}
	s.removeFromFilePathIndex(id, s.meta[id])
	delete(s.keyMap, key)
	delete(s.idMap, id)
	delete(s.meta, id)
	delete(s.updated, id)
	return true, nil
}

// DeleteBatch removes each of ids, returning the count actually removed.
func (s *Store) DeleteBatch(ctx context.Context, ids []string) (int, error) {
	count := 0
	for _, id := range ids {
		removed, err := s.Delete(ctx, id)
		if err != nil {
			return count, err
		}
		if removed {
			count++
		}
	}
	return count, nil
}

// IDsForFilePath returns the vector IDs whose metadata file_path matches
// path, for bulk invalidation when a file is re-indexed.
func (s *Store) IDsForFilePath(path string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	set, ok := s.filePathIndex[path]
	if !ok {
		return nil
	}
	ids := make([]string, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Count returns the number of live vectors.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.idMap)
}

// Close releases the store's resources.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	s.graph = nil
	return nil
}

func (s *Store) addToFilePathIndex(id string, metadata map[string]string) {
	path, ok := metadata["file_path"]
	if !ok || path == "" {
		return
	}
	set, ok := s.filePathIndex[path]
	if !ok {
		set = make(map[string]struct{})
		s.filePathIndex[path] = set
	}
	set[id] = struct{}{}
}

func (s *Store) removeFromFilePathIndex(id string, metadata map[string]string) {
	if metadata == nil {
		return
	}
	path, ok := metadata["file_path"]
	if !ok || path == "" {
		return
	}
	if set, ok := s.filePathIndex[path]; ok {
		delete(set, id)
		if len(set) == 0 {
			delete(s.filePathIndex, path)
		}
	}
}

func normalizeInPlace(v []float32) {
	var sumSquares float64
	for _, val := range v {
		sumSquares += float64(val) * float64(val)
	}
	if sumSquares == 0 {
		return
	}
	inv := float32(1.0 / math.Sqrt(sumSquares))
	for i := range v {
		v[i] *= inv
	}
}
