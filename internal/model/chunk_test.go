package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewChunkID_Deterministic(t *testing.T) {
	id1 := NewChunkID("pkg/foo.go", "Foo.Bar", 10, 20)
	id2 := NewChunkID("pkg/foo.go", "Foo.Bar", 10, 20)
	assert.Equal(t, id1, id2)
	assert.Equal(t, "pkg/foo.go:Foo.Bar:10:20", id1)
}

func TestChunk_Validate_RejectsInvertedLines(t *testing.T) {
	c := &Chunk{ChunkID: "x", StartLine: 20, EndLine: 10}
	require.Error(t, c.Validate())
}

func TestChunk_Validate_RejectsInvertedBytes(t *testing.T) {
	c := &Chunk{ChunkID: "x", StartLine: 1, EndLine: 2, StartByte: 50, EndByte: 10}
	require.Error(t, c.Validate())
}

func TestChunk_Validate_RejectsEmptyID(t *testing.T) {
	c := &Chunk{StartLine: 1, EndLine: 2}
	require.Error(t, c.Validate())
}

func TestChunk_Validate_AcceptsWellFormed(t *testing.T) {
	c := &Chunk{ChunkID: "x", StartLine: 1, EndLine: 1, StartByte: 0, EndByte: 10}
	require.NoError(t, c.Validate())
}

func TestChunk_WithRepository_UsesExplicitValueWhenSet(t *testing.T) {
	c := &Chunk{SourceFile: "a/b/c.go", Repository: "explicit-repo"}
	assert.Equal(t, "explicit-repo", c.WithRepository())
}

func TestChunk_WithRepository_FallsBackToExtraction(t *testing.T) {
	c := &Chunk{SourceFile: "github.com/acme/widgets/src/main.go"}
	assert.Equal(t, "acme/widgets", c.WithRepository())
}
