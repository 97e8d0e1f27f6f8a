package indexer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aman-labs/coderetrieval/internal/keywordindex"
	"github.com/aman-labs/coderetrieval/internal/model"
	"github.com/aman-labs/coderetrieval/internal/vectorstore"
)

type stubEmbedder struct{ dims int }

func (s *stubEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		v := make([]float32, s.dims)
		v[0] = 1
		out[i] = v
	}
	return out, nil
}

func newTestChunk(path, name string, start, end int) *model.Chunk {
	return &model.Chunk{
		ChunkID:    model.NewChunkID(path, name, start, end),
		Content:    "func " + name + "() {}",
		Language:   "go",
		EntityType: "function",
		EntityName: name,
		SourceFile: path,
		StartLine:  start,
		EndLine:    end,
	}
}

func newKeywordIndexer(t *testing.T) *KeywordIndexer {
	t.Helper()
	idx, err := keywordindex.New("", keywordindex.DefaultBoostWeights())
	require.NoError(t, err)
	ki, err := NewKeywordIndexer(WithIndex(idx))
	require.NoError(t, err)
	return ki
}

func newVectorIndexer(t *testing.T) *VectorIndexer {
	t.Helper()
	store, err := vectorstore.New(vectorstore.Config{Dimensions: 4, BatchSize: 10})
	require.NoError(t, err)
	vi, err := NewVectorIndexer(WithEmbedder(&stubEmbedder{dims: 4}), WithVectorStore(store))
	require.NoError(t, err)
	return vi
}

func TestNewKeywordIndexer_RequiresIndex(t *testing.T) {
	_, err := NewKeywordIndexer()
	assert.ErrorIs(t, err, ErrNilKeywordIndex)
}

func TestKeywordIndexer_IndexAndDeleteByFile(t *testing.T) {
	ki := newKeywordIndexer(t)
	defer ki.Close()

	chunks := []*model.Chunk{newTestChunk("a.go", "Foo", 1, 3), newTestChunk("a.go", "Bar", 5, 7)}
	require.NoError(t, ki.Index(context.Background(), chunks))
	assert.Equal(t, 2, ki.Stats().ChunkCount)

	n, err := ki.DeleteByFile(context.Background(), "a.go")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, 0, ki.Stats().ChunkCount)
}

func TestKeywordIndexer_Index_EmptyIsNoOp(t *testing.T) {
	ki := newKeywordIndexer(t)
	defer ki.Close()
	assert.NoError(t, ki.Index(context.Background(), nil))
}

func TestNewVectorIndexer_RequiresEmbedderAndStore(t *testing.T) {
	_, err := NewVectorIndexer()
	assert.ErrorIs(t, err, ErrNilEmbedder)

	store, _ := vectorstore.New(vectorstore.Config{Dimensions: 4, BatchSize: 10})
	_, err = NewVectorIndexer(WithVectorStore(store))
	assert.ErrorIs(t, err, ErrNilEmbedder)

	_, err = NewVectorIndexer(WithEmbedder(&stubEmbedder{dims: 4}))
	assert.ErrorIs(t, err, ErrNilVectorStore)
}

func TestVectorIndexer_IndexAndDeleteByFile(t *testing.T) {
	vi := newVectorIndexer(t)
	defer vi.Close()

	chunks := []*model.Chunk{newTestChunk("b.go", "Baz", 1, 2)}
	require.NoError(t, vi.Index(context.Background(), chunks))
	assert.Equal(t, 1, vi.Stats().ChunkCount)

	n, err := vi.DeleteByFile(context.Background(), "b.go")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 0, vi.Stats().ChunkCount)
}

func TestNewHybridIndexer_RequiresAtLeastOne(t *testing.T) {
	_, err := NewHybridIndexer()
	assert.ErrorIs(t, err, ErrNoIndexers)
}

func TestHybridIndexer_IndexesBothAndAggregatesStats(t *testing.T) {
	ki := newKeywordIndexer(t)
	defer ki.Close()
	vi := newVectorIndexer(t)
	defer vi.Close()

	h, err := NewHybridIndexer(WithKeyword(ki), WithVector(vi))
	require.NoError(t, err)
	defer h.Close()

	chunks := []*model.Chunk{newTestChunk("c.go", "Quux", 1, 4)}
	require.NoError(t, h.Index(context.Background(), chunks))
	assert.Equal(t, 1, h.Stats().ChunkCount)

	n, err := h.DeleteByFile(context.Background(), "c.go")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestHybridIndexer_KeywordOnlyMode(t *testing.T) {
	ki := newKeywordIndexer(t)
	defer ki.Close()

	h, err := NewHybridIndexer(WithKeyword(ki))
	require.NoError(t, err)
	defer h.Close()

	chunks := []*model.Chunk{newTestChunk("d.go", "Quux", 1, 1)}
	require.NoError(t, h.Index(context.Background(), chunks))
	assert.Equal(t, 1, h.Stats().ChunkCount)
}

func TestHybridIndexer_Close_IsIdempotent(t *testing.T) {
	ki := newKeywordIndexer(t)
	h, err := NewHybridIndexer(WithKeyword(ki))
	require.NoError(t, err)

	assert.NoError(t, h.Close())
	assert.NoError(t, h.Close())
}
