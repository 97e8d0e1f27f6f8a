// Package orchestrator drives the search pipeline end to end: classify,
// filter, fan out to keyword/vector/graph branches in parallel, normalize,
// merge, and assemble facets (spec §4.12).
package orchestrator

import (
	"context"
	"sort"

	"golang.org/x/sync/errgroup"

	retrievalerrors "github.com/aman-labs/coderetrieval/internal/errors"
	"github.com/aman-labs/coderetrieval/internal/filter"
	"github.com/aman-labs/coderetrieval/internal/fusion"
	"github.com/aman-labs/coderetrieval/internal/graph"
	"github.com/aman-labs/coderetrieval/internal/keywordindex"
	"github.com/aman-labs/coderetrieval/internal/merge"
	"github.com/aman-labs/coderetrieval/internal/model"
	"github.com/aman-labs/coderetrieval/internal/queryparse"
	"github.com/aman-labs/coderetrieval/internal/vectorstore"
)

// Mode selects which retrieval branches a request fans out to.
type Mode string

const (
	ModeHybrid Mode = "HYBRID"
	ModeKeyword Mode = "KEYWORD"
	ModeVector Mode = "VECTOR"
)

// Embedder is the minimal embedding collaborator the orchestrator needs.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// KeywordSearcher is the subset of *keywordindex.Index the orchestrator
// drives. Defined as an interface so the pipeline can be exercised against
// fakes without a live Bleve index.
type KeywordSearcher interface {
	SearchWithScores(ctx context.Context, parsed queryparse.ParsedQuery, limit int, filters model.SearchFilters) ([]keywordindex.ScoredDocument, error)
	LookupByEntityNames(ctx context.Context, names []string, limit int, filters model.SearchFilters) ([]keywordindex.ScoredDocument, error)
	ComputeFacets(ctx context.Context, queryStr string, filters model.SearchFilters, facetLimit int) (map[string][]keywordindex.FacetValue, error)
}

// VectorSearcher is the subset of *vectorstore.Store the orchestrator drives.
type VectorSearcher interface {
	Search(ctx context.Context, query []float32, k int, threshold *float32) ([]vectorstore.SearchHit, error)
}

// Request is the wire-level search request (spec §6.2).
type Request struct {
	Query             string
	Limit             int
	Mode              Mode
	Filters           model.SearchFilters
	Transitive        bool
	Depth             int
	IncludeFieldMatch bool
	FacetLimit        int
	Weights           model.Weights
}

// FacetBucket is a single facet value and its count.
type FacetBucket struct {
	Value string
	Count int
}

// Response is the wire-level search response (spec §6.2).
type Response struct {
	Results []model.MergedResult
	Total   int
	Facets  map[string][]FacetBucket
}

// Orchestrator is the C12 search pipeline driver.
type Orchestrator struct {
	keyword  KeywordSearcher
	vector   VectorSearcher
	embedder Embedder
	graph    *graph.Adapter
}

// New builds an Orchestrator over the given collaborators. graphAdapter may
// be nil, in which case transitive queries degrade to an empty entity list.
func New(keyword KeywordSearcher, vector VectorSearcher, embedder Embedder, graphAdapter *graph.Adapter) *Orchestrator {
	if graphAdapter == nil {
		graphAdapter = graph.NewAdapter(nil)
	}
	return &Orchestrator{keyword: keyword, vector: vector, embedder: embedder, graph: graphAdapter}
}

// Search runs the full pipeline for req.
func (o *Orchestrator) Search(ctx context.Context, req Request) (*Response, error) {
	if req.Limit <= 0 {
		return &Response{Results: []model.MergedResult{}, Facets: map[string][]FacetBucket{}}, nil
	}

	parsed, err := parseWithFallback(req.Query)
	if err != nil {
		return nil, retrievalerrors.ValidationError(retrievalerrors.ErrCodeInvalidQuery, "orchestrator: "+err.Error())
	}

	if err := filter.Validate(req.Filters); err != nil {
		return nil, err
	}

	weights := req.Weights
	if weights.KeywordWeight == 0 && weights.VectorWeight == 0 {
		weights = model.DefaultWeights()
	}
	if err := weights.Validate(); err != nil {
		return nil, err
	}

	depth := graph.ClampDepth(req.Depth)

	branches := newBranchSet(o, req, parsed, weights, depth)
	g, gctx := errgroup.WithContext(ctx)

	if req.Mode == ModeHybrid || req.Mode == ModeKeyword {
		g.Go(func() error { return branches.runKeyword(gctx) })
	}
	if req.Mode == ModeHybrid || req.Mode == ModeVector {
		g.Go(func() error { return branches.runVector(gctx) })
	}
	if req.Transitive {
		g.Go(func() error { return branches.runGraph(gctx) })
	}
	if req.Mode != ModeVector {
		g.Go(func() error { return branches.runFacets(gctx) })
	}

	// Every branch records its own failure and returns nil, so the policy
	// below is decided from the branch set, not from g.Wait's result.
	_ = g.Wait()
	if branches.allFailed(req) {
		return nil, retrievalerrors.BackendError(retrievalerrors.ErrCodeMergeFailed, "orchestrator: all retrieval branches failed", branches.keywordError())
	}
	// At least one branch succeeded; degrade gracefully (§7 R3) — except
	// the keyword branch, which is the primary system: its failure fails
	// the request outright unless mode is VECTOR (where it never ran).
	if req.Mode != ModeVector && branches.keywordFailed() {
		return nil, retrievalerrors.BackendError(retrievalerrors.ErrCodeKeywordIndexIO, "orchestrator: keyword branch failed", branches.keywordError())
	}

	merged := merge.Merge(branches.keywordHits, branches.vectorHits, weights)

	if len(branches.graphEntities) > 0 {
		merged = o.resolveTransitive(ctx, merged, branches.graphEntities, req, weights)
	}

	facets := map[string][]FacetBucket{}
	if req.Mode != ModeVector {
		for field, values := range branches.facets {
			bucket := make([]FacetBucket, 0, len(values))
			for _, v := range values {
				bucket = append(bucket, FacetBucket{Value: v.Value, Count: v.Count})
			}
			facets[field] = bucket
		}
	}

	if len(merged) > req.Limit {
		merged = merged[:req.Limit]
	}

	return &Response{Results: merged, Total: len(merged), Facets: facets}, nil
}

// parseWithFallback classifies raw, retrying via the §4.5 fallback cascade
// (quoted phrase, escaped, split-union, term-OR, in order) when the primary
// parse fails, so a malformed query still gets a usable dispatch shape
// instead of hard-failing the request. Returns the primary parse error only
// if every fallback stage also fails to produce a parseable candidate.
func parseWithFallback(raw string) (queryparse.ParsedQuery, error) {
	parsed, err := queryparse.Parse(raw)
	if err == nil {
		return parsed, nil
	}

	for _, stage := range queryparse.FallbackCascade(raw) {
		for _, candidate := range stage.Queries {
			if reparsed, rerr := queryparse.Parse(candidate); rerr == nil {
				return reparsed, nil
			}
		}
	}
	return queryparse.ParsedQuery{}, err
}

func (o *Orchestrator) resolveTransitive(ctx context.Context, merged []model.MergedResult, entities []model.GraphRelatedEntity, req Request, weights model.Weights) []model.MergedResult {
	names := make([]string, len(entities))
	pathByName := make(map[string][]string, len(entities))
	for i, e := range entities {
		names[i] = e.EntityName
		pathByName[e.EntityName] = e.RelationshipPath
	}

	docs, err := o.keyword.LookupByEntityNames(ctx, names, req.Limit, req.Filters)
	if err != nil {
		return merged
	}

	hits := make([]*fusion.NormalizedKeywordHit, len(docs))
	for i, d := range docs {
		hits[i] = &fusion.NormalizedKeywordHit{Document: d.Document, Score: d.Score, FieldMatch: d.FieldMatch}
	}
	fusion.Normalize(hits)

	graphResults := merge.Merge(hits, nil, weights)
	for i := range graphResults {
		if path, ok := pathByName[entityNameOf(graphResults[i])]; ok {
			graphResults[i].RelationshipPath = path
			graphResults[i].IsTransitive = true
		}
	}

	byID := make(map[string]model.MergedResult, len(merged)+len(graphResults))
	order := make([]string, 0, len(merged)+len(graphResults))
	for _, r := range merged {
		byID[r.ChunkID] = r
		order = append(order, r.ChunkID)
	}
	for _, r := range graphResults {
		if _, ok := byID[r.ChunkID]; ok {
			continue
		}
		byID[r.ChunkID] = r
		order = append(order, r.ChunkID)
	}

	out := make([]model.MergedResult, 0, len(order))
	for _, id := range order {
		out = append(out, byID[id])
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CombinedScore != out[j].CombinedScore {
			return out[i].CombinedScore > out[j].CombinedScore
		}
		return out[i].ChunkID < out[j].ChunkID
	})
	return out
}

func entityNameOf(r model.MergedResult) string {
	if r.KeywordDoc != nil {
		return r.KeywordDoc.EntityName
	}
	return ""
}
