package retrieval

import (
	"context"
	"fmt"
	"sync"

	"github.com/aman-labs/coderetrieval/internal/chunkproducer"
	"github.com/aman-labs/coderetrieval/internal/config"
	"github.com/aman-labs/coderetrieval/internal/embedder"
	"github.com/aman-labs/coderetrieval/internal/graph"
	"github.com/aman-labs/coderetrieval/internal/keywordindex"
	"github.com/aman-labs/coderetrieval/internal/model"
	"github.com/aman-labs/coderetrieval/internal/orchestrator"
	"github.com/aman-labs/coderetrieval/internal/vectorstore"
	"github.com/aman-labs/coderetrieval/pkg/indexer"
)

// Service is the end-to-end entry point: index source files and search
// across them with the hybrid keyword/vector/graph pipeline.
//
// Service is safe for concurrent use.
type Service struct {
	hybrid   *indexer.HybridIndexer
	producer *chunkproducer.Producer
	search   *orchestrator.Orchestrator
	embed    embedder.Embedder

	mu     sync.Mutex
	closed bool
}

// Options lets callers override the collaborators a Service wires; any
// left nil fall back to the reference implementations built from cfg.
type Options struct {
	Embedder     embedder.Embedder
	GraphBackend graph.Backend
}

// New builds a Service from cfg, using the static embedder and an empty
// in-memory graph backend by default. Pass Options to override either.
func New(cfg *config.Config, opts Options) (*Service, error) {
	keyword, err := keywordindex.New(cfg.Index.Directory, keywordindex.BoostWeights{
		EntityName: cfg.Boost.EntityName,
		DocSummary: cfg.Boost.DocSummary,
		Content:    cfg.Boost.Content,
	})
	if err != nil {
		return nil, fmt.Errorf("retrieval: keyword index: %w", err)
	}

	emb := opts.Embedder
	if emb == nil {
		emb = embedder.NewStaticEmbedder(embedder.DefaultStaticDimensions)
	}

	vector, err := vectorstore.New(vectorstore.Config{
		Dimensions: emb.Dimensions(),
		EfSearch:   cfg.Vector.EfSearch,
		BatchSize:  cfg.Vector.BatchSize,
	})
	if err != nil {
		return nil, fmt.Errorf("retrieval: vector store: %w", err)
	}

	ki, err := indexer.NewKeywordIndexer(indexer.WithIndex(keyword))
	if err != nil {
		return nil, fmt.Errorf("retrieval: %w", err)
	}
	vi, err := indexer.NewVectorIndexer(indexer.WithEmbedder(emb), indexer.WithVectorStore(vector))
	if err != nil {
		return nil, fmt.Errorf("retrieval: %w", err)
	}
	hybrid, err := indexer.NewHybridIndexer(indexer.WithKeyword(ki), indexer.WithVector(vi))
	if err != nil {
		return nil, fmt.Errorf("retrieval: %w", err)
	}

	backend := opts.GraphBackend
	if backend == nil {
		backend = graph.NewMemoryBackend()
	}

	return &Service{
		hybrid:   hybrid,
		producer: chunkproducer.NewProducer(),
		search:   orchestrator.New(keyword, vector, emb, graph.NewAdapter(backend)),
		embed:    emb,
	}, nil
}

// IndexFile chunks a single source file via the reference chunk producer
// and indexes the resulting chunks into both the keyword and vector
// indices. Returns the produced chunks for callers that also want to
// register them with a graph backend.
func (s *Service) IndexFile(ctx context.Context, path string, content []byte) ([]*model.Chunk, error) {
	chunks, err := s.producer.Produce(ctx, &chunkproducer.FileInput{Path: path, Content: content})
	if err != nil {
		return nil, fmt.Errorf("retrieval: produce chunks for %q: %w", path, err)
	}
	if err := s.hybrid.Index(ctx, chunks); err != nil {
		return nil, fmt.Errorf("retrieval: index %q: %w", path, err)
	}
	return chunks, nil
}

// DeleteFile removes every chunk indexed for path from both indices.
func (s *Service) DeleteFile(ctx context.Context, path string) (int, error) {
	return s.hybrid.DeleteByFile(ctx, path)
}

// Search runs the hybrid search pipeline for req.
func (s *Service) Search(ctx context.Context, req orchestrator.Request) (*orchestrator.Response, error) {
	return s.search.Search(ctx, req)
}

// Stats returns the aggregated index statistics across both backends.
func (s *Service) Stats() indexer.IndexStats {
	return s.hybrid.Stats()
}

// Close releases every resource the service owns. Idempotent.
func (s *Service) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true

	s.producer.Close()
	if err := s.embed.Close(); err != nil {
		return fmt.Errorf("retrieval: close embedder: %w", err)
	}
	if err := s.hybrid.Close(); err != nil {
		return fmt.Errorf("retrieval: close indexer: %w", err)
	}
	return nil
}
