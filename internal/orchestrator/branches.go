package orchestrator

import (
	"context"
	"sync"

	"github.com/aman-labs/coderetrieval/internal/fusion"
	"github.com/aman-labs/coderetrieval/internal/keywordindex"
	"github.com/aman-labs/coderetrieval/internal/model"
	"github.com/aman-labs/coderetrieval/internal/queryparse"
)

// branchSet accumulates the results of each fan-out branch and tracks
// which branches actually ran and which failed, so the caller can tell
// "no results" from "every branch errored" (spec §7 policy R3).
type branchSet struct {
	o       *Orchestrator
	req     Request
	parsed  queryparse.ParsedQuery
	weights model.Weights
	depth   int

	mu            sync.Mutex
	keywordHits   []*fusion.NormalizedKeywordHit
	vectorHits    []*fusion.NormalizedVectorHit
	graphEntities []model.GraphRelatedEntity
	facets        map[string][]keywordindex.FacetValue

	ran        map[string]bool
	failed     map[string]bool
	keywordErr error
}

func newBranchSet(o *Orchestrator, req Request, parsed queryparse.ParsedQuery, weights model.Weights, depth int) *branchSet {
	return &branchSet{
		o:       o,
		req:     req,
		parsed:  parsed,
		weights: weights,
		depth:   depth,
		facets:  map[string][]keywordindex.FacetValue{},
		ran:     map[string]bool{},
		failed:  map[string]bool{},
	}
}

func (b *branchSet) mark(name string, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.ran[name] = true
	if err != nil {
		b.failed[name] = true
	}
}

// allFailed reports whether every branch that ran for this request's mode
// failed, meaning the request produced no usable signal at all.
func (b *branchSet) allFailed(req Request) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.ran) == 0 {
		return false
	}
	for name := range b.ran {
		if !b.failed[name] {
			return false
		}
	}
	return true
}

// keywordFailed reports whether the keyword branch ran and failed. Per
// spec §7 R3, keyword is the primary system: unlike vector/graph/facets,
// its failure fails the whole request (unless mode is VECTOR, where the
// keyword branch never runs at all).
func (b *branchSet) keywordFailed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.failed["keyword"]
}

// keywordError returns the error the keyword branch failed with, if any.
func (b *branchSet) keywordError() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.keywordErr
}

func (b *branchSet) runKeyword(ctx context.Context) error {
	docs, err := b.o.keyword.SearchWithScores(ctx, b.parsed, b.req.Limit, b.req.Filters)
	b.mark("keyword", err)
	if err != nil {
		b.mu.Lock()
		b.keywordErr = err
		b.mu.Unlock()
		return nil // isolate: don't fail the whole errgroup, R3 is enforced by the caller
	}

	hits := make([]*fusion.NormalizedKeywordHit, len(docs))
	for i, d := range docs {
		hits[i] = &fusion.NormalizedKeywordHit{Document: d.Document, Score: d.Score, FieldMatch: d.FieldMatch}
	}
	fusion.Normalize(hits)

	b.mu.Lock()
	b.keywordHits = hits
	b.mu.Unlock()
	return nil
}

func (b *branchSet) runVector(ctx context.Context) error {
	if b.o.embedder == nil || b.o.vector == nil {
		b.mark("vector", nil)
		return nil
	}

	embedding, err := b.o.embedder.Embed(ctx, b.req.Query)
	if err != nil {
		b.mark("vector", err)
		return nil
	}

	results, err := b.o.vector.Search(ctx, embedding, b.req.Limit, nil)
	b.mark("vector", err)
	if err != nil {
		return nil
	}

	hits := make([]*fusion.NormalizedVectorHit, len(results))
	for i, r := range results {
		hits[i] = &fusion.NormalizedVectorHit{ID: r.ID, Vector: r.Vector, Metadata: r.Metadata, Score: float64(r.Similarity)}
	}
	fusion.Normalize(hits)

	b.mu.Lock()
	b.vectorHits = hits
	b.mu.Unlock()
	return nil
}

func (b *branchSet) runGraph(ctx context.Context) error {
	entities, err := b.o.graph.FindRelated(ctx, b.parsed, b.req.Filters, b.depth)
	b.mark("graph", err)
	if err != nil {
		return nil
	}

	b.mu.Lock()
	b.graphEntities = entities
	b.mu.Unlock()
	return nil
}

func (b *branchSet) runFacets(ctx context.Context) error {
	facetLimit := b.req.FacetLimit
	if facetLimit <= 0 {
		facetLimit = 10
	}
	facets, err := b.o.keyword.ComputeFacets(ctx, b.req.Query, b.req.Filters, facetLimit)
	b.mark("facets", err)
	if err != nil {
		return nil
	}

	b.mu.Lock()
	b.facets = facets
	b.mu.Unlock()
	return nil
}
