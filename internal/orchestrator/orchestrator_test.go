package orchestrator

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aman-labs/coderetrieval/internal/graph"
	"github.com/aman-labs/coderetrieval/internal/keywordindex"
	"github.com/aman-labs/coderetrieval/internal/model"
	"github.com/aman-labs/coderetrieval/internal/queryparse"
	"github.com/aman-labs/coderetrieval/internal/vectorstore"
)

type fakeKeyword struct {
	docs       []keywordindex.ScoredDocument
	byNameDocs []keywordindex.ScoredDocument
	facets     map[string][]keywordindex.FacetValue
	searchErr  error
	lookupErr  error
	facetsErr  error
}

func (f *fakeKeyword) SearchWithScores(ctx context.Context, parsed queryparse.ParsedQuery, limit int, filters model.SearchFilters) ([]keywordindex.ScoredDocument, error) {
	return f.docs, f.searchErr
}

func (f *fakeKeyword) LookupByEntityNames(ctx context.Context, names []string, limit int, filters model.SearchFilters) ([]keywordindex.ScoredDocument, error) {
	return f.byNameDocs, f.lookupErr
}

func (f *fakeKeyword) ComputeFacets(ctx context.Context, queryStr string, filters model.SearchFilters, facetLimit int) (map[string][]keywordindex.FacetValue, error) {
	return f.facets, f.facetsErr
}

type fakeVector struct {
	hits []vectorstore.SearchHit
	err  error
}

func (f *fakeVector) Search(ctx context.Context, query []float32, k int, threshold *float32) ([]vectorstore.SearchHit, error) {
	return f.hits, f.err
}

type fakeEmbedder struct {
	vec []float32
	err error
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return f.vec, f.err
}

type fakeGraphBackend struct {
	entities []model.GraphRelatedEntity
}

func (f *fakeGraphBackend) Closure(ctx context.Context, anchor string, kind graph.EdgeKind, depth int) ([]model.GraphRelatedEntity, error) {
	return f.entities, nil
}

func docHit(_, file, entity string, score float64) keywordindex.ScoredDocument {
	return keywordindex.ScoredDocument{
		Document: &model.IndexDocument{FilePath: file, EntityName: entity},
		Score:    score,
	}
}

func TestSearch_LimitZero_ReturnsEmptyWithoutDispatching(t *testing.T) {
	kw := &fakeKeyword{searchErr: errors.New("should not be called")}
	o := New(kw, &fakeVector{}, &fakeEmbedder{}, nil)

	resp, err := o.Search(context.Background(), Request{Query: "foo", Limit: 0, Mode: ModeHybrid})
	require.NoError(t, err)
	assert.Empty(t, resp.Results)
}

func TestSearch_KeywordMode_SkipsVectorBranch(t *testing.T) {
	kw := &fakeKeyword{docs: []keywordindex.ScoredDocument{docHit("d1", "a.go", "Foo", 2.0)}}
	vec := &fakeVector{err: errors.New("vector branch must not run")}
	o := New(kw, vec, nil, nil)

	resp, err := o.Search(context.Background(), Request{Query: "foo", Limit: 10, Mode: ModeKeyword})
	require.NoError(t, err)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, "a.go:Foo", resp.Results[0].ChunkID)
	assert.False(t, resp.Results[0].FromBothSources)
}

func TestSearch_VectorMode_SkipsKeywordAndFacets(t *testing.T) {
	kw := &fakeKeyword{searchErr: errors.New("keyword branch must not run")}
	vec := &fakeVector{hits: []vectorstore.SearchHit{{ID: "v1", Similarity: 0.9, Metadata: map[string]string{"file_path": "b.go"}}}}
	o := New(kw, vec, &fakeEmbedder{vec: []float32{0.1, 0.2}}, nil)

	resp, err := o.Search(context.Background(), Request{Query: "foo", Limit: 10, Mode: ModeVector})
	require.NoError(t, err)
	require.Len(t, resp.Results, 1)
	assert.Empty(t, resp.Facets)
}

func TestSearch_HybridMode_MergesBothSources(t *testing.T) {
	kw := &fakeKeyword{
		docs:   []keywordindex.ScoredDocument{docHit("shared", "a.go", "Foo", 1.0)},
		facets: map[string][]keywordindex.FacetValue{"language": {{Value: "go", Count: 1}}},
	}
	vec := &fakeVector{hits: []vectorstore.SearchHit{{ID: "shared-vec", Similarity: 0.5, Metadata: map[string]string{"file_path": "a.go", "entity_name": "Foo"}}}}
	o := New(kw, vec, &fakeEmbedder{vec: []float32{0.1}}, nil)

	resp, err := o.Search(context.Background(), Request{Query: "foo", Limit: 10, Mode: ModeHybrid})
	require.NoError(t, err)
	require.NotEmpty(t, resp.Results)
	assert.Contains(t, resp.Facets, "language")
}

func TestSearch_PartialBranchFailure_StillReturnsKeywordResults(t *testing.T) {
	kw := &fakeKeyword{docs: []keywordindex.ScoredDocument{docHit("d1", "a.go", "Foo", 1.0)}}
	vec := &fakeVector{err: errors.New("vector backend down")}
	o := New(kw, vec, &fakeEmbedder{vec: []float32{0.1}}, nil)

	resp, err := o.Search(context.Background(), Request{Query: "foo", Limit: 10, Mode: ModeHybrid})
	require.NoError(t, err)
	assert.Len(t, resp.Results, 1)
}

func TestSearch_KeywordBranchFails_FailsRequestEvenWithVectorResults(t *testing.T) {
	// §7 R3: keyword is the primary system. A failing keyword branch fails
	// the whole request, even when the vector branch succeeds — unlike a
	// failing vector branch, which degrades gracefully (see
	// TestSearch_PartialBranchFailure_StillReturnsKeywordResults above).
	kw := &fakeKeyword{searchErr: errors.New("keyword backend down")}
	vec := &fakeVector{hits: []vectorstore.SearchHit{{ID: "v1", Similarity: 0.9, Metadata: map[string]string{"file_path": "b.go"}}}}
	o := New(kw, vec, &fakeEmbedder{vec: []float32{0.1}}, nil)

	_, err := o.Search(context.Background(), Request{Query: "foo", Limit: 10, Mode: ModeHybrid})
	assert.Error(t, err)
}

func TestSearch_AllBranchesFail_ReturnsHardError(t *testing.T) {
	kw := &fakeKeyword{searchErr: errors.New("keyword down"), facetsErr: errors.New("facets down")}
	vec := &fakeVector{err: errors.New("vector down")}
	o := New(kw, vec, &fakeEmbedder{vec: []float32{0.1}}, nil)

	_, err := o.Search(context.Background(), Request{Query: "foo", Limit: 10, Mode: ModeHybrid})
	assert.Error(t, err)
}

func TestSearch_MalformedFieldQuery_RecoversViaFallbackCascade(t *testing.T) {
	// "field:" fails the primary field-qualified parse (blank value), but
	// the §4.5 fallback cascade's first stage (wrap as a quoted phrase)
	// always succeeds, so the request still returns results rather than
	// hard-failing.
	kw := &fakeKeyword{docs: []keywordindex.ScoredDocument{docHit("d1", "a.go", "Foo", 1.0)}}
	o := New(kw, &fakeVector{}, &fakeEmbedder{}, nil)
	resp, err := o.Search(context.Background(), Request{Query: "field:", Limit: 10, Mode: ModeHybrid})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Results)
}

func TestSearch_TransitiveImplements_AnnotatesRelationshipPath(t *testing.T) {
	backend := &fakeGraphBackend{entities: []model.GraphRelatedEntity{
		{EntityName: "Impl", EntityType: "class", SourceFile: "impl.go", RelationshipPath: []string{"IMPLEMENTS"}},
	}}
	kw := &fakeKeyword{
		docs:       []keywordindex.ScoredDocument{docHit("d1", "a.go", "Base", 1.0)},
		byNameDocs: []keywordindex.ScoredDocument{docHit("d2", "impl.go", "Impl", 0.8)},
	}
	o := New(kw, &fakeVector{}, nil, graph.NewAdapter(backend))

	resp, err := o.Search(context.Background(), Request{
		Query: "implements:Base", Limit: 10, Mode: ModeKeyword, Transitive: true, Depth: 3,
	})
	require.NoError(t, err)

	var found bool
	for _, r := range resp.Results {
		if r.IsTransitive {
			found = true
			assert.Equal(t, []string{"IMPLEMENTS"}, r.RelationshipPath)
		}
	}
	assert.True(t, found, "expected at least one transitive result")
}

func TestSearch_DepthDefaultsWhenUnset(t *testing.T) {
	backend := &fakeGraphBackend{}
	o := New(&fakeKeyword{}, &fakeVector{}, nil, graph.NewAdapter(backend))
	resp, err := o.Search(context.Background(), Request{Query: "implements:Base", Limit: 10, Mode: ModeKeyword, Transitive: true})
	require.NoError(t, err)
	assert.Empty(t, resp.Results)
}

func TestSearch_NonStructuralTransitiveQuery_YieldsNoGraphEntities(t *testing.T) {
	backend := &fakeGraphBackend{entities: []model.GraphRelatedEntity{{EntityName: "ShouldNotAppear"}}}
	kw := &fakeKeyword{docs: []keywordindex.ScoredDocument{docHit("d1", "a.go", "Foo", 1.0)}}
	o := New(kw, &fakeVector{}, nil, graph.NewAdapter(backend))

	resp, err := o.Search(context.Background(), Request{Query: "plain query", Limit: 10, Mode: ModeKeyword, Transitive: true})
	require.NoError(t, err)
	for _, r := range resp.Results {
		assert.False(t, r.IsTransitive)
	}
}

func TestSearch_WeightsDefaultedWhenZero(t *testing.T) {
	kw := &fakeKeyword{docs: []keywordindex.ScoredDocument{docHit("d1", "a.go", "Foo", 1.0)}}
	o := New(kw, &fakeVector{}, nil, nil)

	resp, err := o.Search(context.Background(), Request{Query: "foo", Limit: 10, Mode: ModeKeyword})
	require.NoError(t, err)
	require.Len(t, resp.Results, 1)
	assert.InDelta(t, model.DefaultWeights().KeywordWeight, resp.Results[0].CombinedScore, 1e-9)
}

func TestSearch_InvalidWeights_ReturnsError(t *testing.T) {
	o := New(&fakeKeyword{}, &fakeVector{}, nil, nil)
	_, err := o.Search(context.Background(), Request{
		Query: "foo", Limit: 10, Mode: ModeKeyword,
		Weights: model.Weights{KeywordWeight: 0.9, VectorWeight: 0.9},
	})
	assert.Error(t, err)
}

func TestSearch_LimitTruncatesMergedResults(t *testing.T) {
	kw := &fakeKeyword{docs: []keywordindex.ScoredDocument{
		docHit("d1", "a.go", "Foo", 1.0),
		docHit("d2", "b.go", "Bar", 0.5),
		docHit("d3", "c.go", "Baz", 0.2),
	}}
	o := New(kw, &fakeVector{}, nil, nil)

	resp, err := o.Search(context.Background(), Request{Query: "foo", Limit: 2, Mode: ModeKeyword})
	require.NoError(t, err)
	assert.Len(t, resp.Results, 2)
}
