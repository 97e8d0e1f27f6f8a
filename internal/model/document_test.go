package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToDocument_MapsCoreFields(t *testing.T) {
	c := &Chunk{
		ChunkID:    "f.go:Foo:1:5",
		Content:    "func Foo() {}",
		Language:   "go",
		EntityType: "function",
		EntityName: "Foo",
		SourceFile: "pkg/f.go",
		Repository: "acme/widgets",
		StartLine:  1, EndLine: 5, StartByte: 0, EndByte: 30,
	}

	doc := ToDocument(c)

	assert.Equal(t, c.ChunkID, doc.DocumentID)
	assert.Equal(t, c.Content, doc.Content)
	assert.Equal(t, c.EntityName, doc.EntityName)
	assert.Equal(t, c.EntityName, doc.EntityNameKeyword)
	assert.Equal(t, c.Language, doc.Language)
	assert.Equal(t, c.EntityType, doc.EntityType)
	assert.Equal(t, c.SourceFile, doc.FilePath)
	assert.Equal(t, "acme/widgets", doc.Repository)
	assert.Equal(t, 1, doc.StartLine)
	assert.Equal(t, 5, doc.EndLine)
	assert.Nil(t, doc.Meta)
}

func TestToDocument_DocSummaryAttributeBecomesDedicatedField(t *testing.T) {
	c := &Chunk{
		ChunkID:    "f.go:Foo:1:5",
		SourceFile: "pkg/f.go",
		Attributes: map[string]string{
			"doc_summary": "Does the foo thing.",
			"visibility":  "public",
		},
	}

	doc := ToDocument(c)

	assert.Equal(t, "Does the foo thing.", doc.DocSummary)
	require.NotNil(t, doc.Meta)
	assert.Equal(t, "public", doc.Meta["meta_visibility"])
	_, hasDocSummaryMeta := doc.Meta["meta_doc_summary"]
	assert.False(t, hasDocSummaryMeta)
}

func TestToDocument_RepositoryFallsBackToExtraction(t *testing.T) {
	c := &Chunk{
		ChunkID:    "f.go:Foo:1:5",
		SourceFile: "github.com/acme/widgets/f.go",
	}
	doc := ToDocument(c)
	assert.Equal(t, "acme/widgets", doc.Repository)
}

func TestMetaFieldNames_SortedAndComplete(t *testing.T) {
	doc := &IndexDocument{Meta: map[string]string{
		"meta_zeta":  "1",
		"meta_alpha": "2",
	}}
	assert.Equal(t, []string{"meta_alpha", "meta_zeta"}, doc.MetaFieldNames())
}

func TestNewVectorEntryID_Deterministic(t *testing.T) {
	id1 := NewVectorEntryID("pkg/f.go", 1, 0, 30)
	id2 := NewVectorEntryID("pkg/f.go", 1, 0, 30)
	assert.Equal(t, id1, id2)
	assert.Equal(t, "pkg/f.go:1:0:30", id1)
}

func TestVectorEntryFromChunk_CarriesPostFilterMetadata(t *testing.T) {
	c := &Chunk{
		ChunkID:    "f.go:Foo:1:5",
		SourceFile: "pkg/f.go",
		Language:   "go",
		EntityType: "function",
		StartLine:  1, StartByte: 0, EndByte: 30,
	}
	entry := VectorEntryFromChunk(c, []float32{0.1, 0.2})

	assert.Equal(t, "pkg/f.go:1:0:30", entry.ID)
	assert.Equal(t, []float32{0.1, 0.2}, entry.Vector)
	assert.Equal(t, "f.go:Foo:1:5", entry.Metadata["chunk_id"])
	assert.Equal(t, "go", entry.Metadata["language"])
	assert.Equal(t, "function", entry.Metadata["entity_type"])
}
