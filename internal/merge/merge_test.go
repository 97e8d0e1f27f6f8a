package merge

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aman-labs/coderetrieval/internal/fusion"
	"github.com/aman-labs/coderetrieval/internal/model"
)

func TestCanonicalKeywordID_PrefersDocumentID(t *testing.T) {
	doc := &model.IndexDocument{DocumentID: "doc-1", FilePath: "a.go", EntityName: "Foo"}
	assert.Equal(t, "doc-1", CanonicalKeywordID(doc))
}

func TestCanonicalKeywordID_FallsBackToFilePathAndEntityName(t *testing.T) {
	doc := &model.IndexDocument{FilePath: "a.go", EntityName: "Foo"}
	assert.Equal(t, "a.go:Foo", CanonicalKeywordID(doc))
}

func TestCanonicalKeywordID_FallsBackToFilePath(t *testing.T) {
	doc := &model.IndexDocument{FilePath: "a.go"}
	assert.Equal(t, "a.go", CanonicalKeywordID(doc))
}

func TestCanonicalKeywordID_FallsBackToHash(t *testing.T) {
	doc := &model.IndexDocument{Content: "some content"}
	id := CanonicalKeywordID(doc)
	assert.NotEmpty(t, id)
	assert.NotEqual(t, "some content", id)
}

func TestCanonicalVectorID_ReconstructsFullKey(t *testing.T) {
	meta := map[string]string{"file_path": "a.go", "entity_name": "Foo", "start_line": "10", "end_line": "20"}
	assert.Equal(t, "a.go:Foo:10:20", CanonicalVectorID("vec-id", meta))
}

func TestCanonicalVectorID_DegradesToFilePathAndEntityName(t *testing.T) {
	meta := map[string]string{"file_path": "a.go", "entity_name": "Foo"}
	assert.Equal(t, "a.go:Foo", CanonicalVectorID("vec-id", meta))
}

func TestCanonicalVectorID_DegradesToFilePath(t *testing.T) {
	meta := map[string]string{"file_path": "a.go"}
	assert.Equal(t, "a.go", CanonicalVectorID("vec-id", meta))
}

func TestCanonicalVectorID_DegradesToOwnID(t *testing.T) {
	assert.Equal(t, "vec-id", CanonicalVectorID("vec-id", nil))
}

func TestMerge_SameChunkBothSources_FusesAndSetsFlag(t *testing.T) {
	doc := &model.IndexDocument{FilePath: "a.go", EntityName: "Foo"}
	kw := []*fusion.NormalizedKeywordHit{{Document: doc, Score: 1.0, FieldMatch: map[string][]string{"content": {"foo"}}}}
	vec := []*fusion.NormalizedVectorHit{{ID: "vec-1", Score: 1.0, Metadata: map[string]string{"file_path": "a.go", "entity_name": "Foo"}}}

	weights := model.Weights{KeywordWeight: 0.6, VectorWeight: 0.4}
	results := Merge(kw, vec, weights)

	require.Len(t, results, 1)
	assert.True(t, results[0].FromBothSources)
	assert.InDelta(t, 1.0, results[0].CombinedScore, 1e-9)
	assert.Equal(t, map[string][]string{"content": {"foo"}}, results[0].FieldMatch)
}

func TestMerge_DistinctChunks_KeptSeparate(t *testing.T) {
	docC := &model.IndexDocument{FilePath: "c.go", EntityName: "C"}
	kw := []*fusion.NormalizedKeywordHit{{Document: docC, Score: 1.0}}
	vec := []*fusion.NormalizedVectorHit{{ID: "vec-d", Score: 1.0, Metadata: map[string]string{"file_path": "d.go", "entity_name": "D"}}}

	weights := model.Weights{KeywordWeight: 0.5, VectorWeight: 0.5}
	results := Merge(kw, vec, weights)

	require.Len(t, results, 2)
	assert.InDelta(t, results[0].CombinedScore, results[1].CombinedScore, 1e-9)
	assert.Less(t, results[0].ChunkID, results[1].ChunkID)
}

func TestMerge_SortsByScoreDescendingThenChunkIDAscending(t *testing.T) {
	docA := &model.IndexDocument{FilePath: "a.go"}
	docB := &model.IndexDocument{FilePath: "b.go"}
	kw := []*fusion.NormalizedKeywordHit{
		{Document: docA, Score: 0.2},
		{Document: docB, Score: 0.9},
	}
	weights := model.Weights{KeywordWeight: 1.0, VectorWeight: 0.0}
	results := Merge(kw, nil, weights)

	require.Len(t, results, 2)
	assert.Equal(t, "b.go", results[0].ChunkID)
	assert.Equal(t, "a.go", results[1].ChunkID)
}

func TestMerge_EmptyInputs_ReturnsEmptySlice(t *testing.T) {
	results := Merge(nil, nil, model.DefaultWeights())
	assert.Empty(t, results)
}

func TestMerge_KeywordOnly_PreservesFieldMatch(t *testing.T) {
	doc := &model.IndexDocument{FilePath: "a.go"}
	kw := []*fusion.NormalizedKeywordHit{{Document: doc, Score: 1.0, FieldMatch: map[string][]string{"entity_name": {"a"}}}}
	results := Merge(kw, nil, model.DefaultWeights())
	require.Len(t, results, 1)
	assert.False(t, results[0].FromBothSources)
	assert.Equal(t, map[string][]string{"entity_name": {"a"}}, results[0].FieldMatch)
}
