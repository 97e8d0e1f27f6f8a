package model

import (
	"fmt"
	"sort"
	"strings"
)

// DocSummaryAttribute is the recognized chunk attribute key that becomes the
// tokenized doc_summary field; every other attribute becomes keyword
// metadata under the meta_ namespace.
const DocSummaryAttribute = "doc_summary"

// MetaFieldPrefix namespaces dynamic chunk attributes as keyword fields.
const MetaFieldPrefix = "meta_"

// IndexDocument is the deterministic projection of a Chunk into the shape
// the keyword index stores: tokenized text fields, keyword fields, and
// stored-only position data.
type IndexDocument struct {
	DocumentID string

	// Tokenized, stored, positions+offsets.
	Content string
	// Tokenized, stored, positions only.
	EntityName string
	DocSummary string

	// Keyword fields: stored, indexed, not tokenized, docs-only postings.
	EntityNameKeyword string
	Language          string
	EntityType        string
	FilePath          string
	Repository        string
	Meta              map[string]string // meta_<key> -> value

	// Stored-only fields.
	StartLine int
	EndLine   int
	StartByte int
	EndByte   int
}

// ToDocument deterministically maps a chunk into its index document.
func ToDocument(c *Chunk) *IndexDocument {
	doc := &IndexDocument{
		DocumentID:        c.ChunkID,
		Content:           c.Content,
		EntityName:        c.EntityName,
		EntityNameKeyword: c.EntityName,
		Language:          c.Language,
		EntityType:        c.EntityType,
		FilePath:          c.SourceFile,
		Repository:        c.WithRepository(),
		StartLine:         c.StartLine,
		EndLine:           c.EndLine,
		StartByte:         c.StartByte,
		EndByte:           c.EndByte,
	}

	if len(c.Attributes) == 0 {
		return doc
	}

	doc.Meta = make(map[string]string, len(c.Attributes))
	for key, value := range c.Attributes {
		if key == DocSummaryAttribute {
			doc.DocSummary = value
			continue
		}
		doc.Meta[MetaFieldPrefix+key] = value
	}
	if len(doc.Meta) == 0 {
		doc.Meta = nil
	}

	return doc
}

// MetaFieldNames returns the document's meta_* field names in sorted order,
// for deterministic faceting and index-schema enumeration.
func (d *IndexDocument) MetaFieldNames() []string {
	names := make([]string, 0, len(d.Meta))
	for name := range d.Meta {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// VectorEntry is a single embedded chunk: a stable ID, its dense vector, and
// enough chunk metadata to post-filter search results without a join.
type VectorEntry struct {
	ID       string
	Vector   []float32
	Metadata map[string]string
}

// NewVectorEntryID builds the vector store's identifier for a chunk:
// sourceFile:startLine:startByte:endByte.
func NewVectorEntryID(sourceFile string, startLine, startByte, endByte int) string {
	return fmt.Sprintf("%s:%d:%d:%d", sourceFile, startLine, startByte, endByte)
}

// VectorEntryFromChunk builds a VectorEntry for a chunk's embedding,
// carrying the metadata needed for post-filtering by language, repository,
// entity type, and file path, plus the entity name and line range from
// which the merger rebuilds the chunk ID.
func VectorEntryFromChunk(c *Chunk, vector []float32) *VectorEntry {
	return &VectorEntry{
		ID:     NewVectorEntryID(c.SourceFile, c.StartLine, c.StartByte, c.EndByte),
		Vector: vector,
		Metadata: map[string]string{
			"chunk_id":    c.ChunkID,
			"language":    c.Language,
			"entity_type": c.EntityType,
			"entity_name": c.EntityName,
			"file_path":   c.SourceFile,
			"repository":  c.WithRepository(),
			"start_line":  fmt.Sprint(c.StartLine),
			"end_line":    fmt.Sprint(c.EndLine),
		},
	}
}

// String renders a document for debug logging in a stable, sorted form.
func (d *IndexDocument) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "IndexDocument{id=%s, file=%s, entity=%s}", d.DocumentID, d.FilePath, d.EntityName)
	return b.String()
}
