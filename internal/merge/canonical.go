// Package merge canonicalizes chunk IDs across the keyword and vector
// result lists and fuses them into a single deduplicated, deterministically
// ordered result sequence.
package merge

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/aman-labs/coderetrieval/internal/fusion"
	"github.com/aman-labs/coderetrieval/internal/model"
)

// CanonicalKeywordID derives the canonical chunk ID for a keyword hit:
// document_id if present, else file_path:entity_name, else file_path,
// else a deterministic hash of the document.
func CanonicalKeywordID(doc *model.IndexDocument) string {
	if doc == nil {
		return ""
	}
	if doc.DocumentID != "" {
		return doc.DocumentID
	}
	if doc.FilePath != "" && doc.EntityName != "" {
		return doc.FilePath + ":" + doc.EntityName
	}
	if doc.FilePath != "" {
		return doc.FilePath
	}
	return hashDocument(doc)
}

// CanonicalVectorID derives the canonical chunk ID for a vector hit:
// reconstructed file_path:entity_name:start_line:end_line from metadata,
// degrading to file_path:entity_name, then file_path, then the vector's
// own id.
func CanonicalVectorID(id string, metadata map[string]string) string {
	filePath := metadata["file_path"]
	entityName := metadata["entity_name"]
	startLine := metadata["start_line"]
	endLine := metadata["end_line"]

	if filePath != "" && entityName != "" && startLine != "" && endLine != "" {
		return fmt.Sprintf("%s:%s:%s:%s", filePath, entityName, startLine, endLine)
	}
	if filePath != "" && entityName != "" {
		return filePath + ":" + entityName
	}
	if filePath != "" {
		return filePath
	}
	return id
}

func hashDocument(doc *model.IndexDocument) string {
	h := sha256.New()
	h.Write([]byte(doc.Content))
	h.Write([]byte(doc.EntityName))
	h.Write([]byte(doc.FilePath))
	return hex.EncodeToString(h.Sum(nil))
}

// entry accumulates the sources contributing to a single canonical chunk
// ID before final fusion.
type entry struct {
	chunkID         string
	keyword         *fusion.NormalizedKeywordHit
	vector          *fusion.NormalizedVectorHit
	fromBothSources bool
}

func (e *entry) toMergedResult(weights model.Weights) model.MergedResult {
	result := model.MergedResult{
		ChunkID:         e.chunkID,
		FromBothSources: e.keyword != nil && e.vector != nil,
	}

	switch {
	case e.keyword != nil && e.vector != nil:
		result.KeywordDoc = e.keyword.Document
		result.FieldMatch = e.keyword.FieldMatch
		var vectorEntry model.VectorEntry
		vectorEntry.ID = e.vector.ID
		vectorEntry.Vector = e.vector.Vector
		vectorEntry.Metadata = e.vector.Metadata
		result.VectorEntry = &vectorEntry
		result.CombinedScore = fusion.Combine(e.keyword.Score, e.vector.Score, weights)
	case e.keyword != nil:
		result.KeywordDoc = e.keyword.Document
		result.FieldMatch = e.keyword.FieldMatch
		result.CombinedScore = fusion.Combine(e.keyword.Score, 0, weights)
	case e.vector != nil:
		var vectorEntry model.VectorEntry
		vectorEntry.ID = e.vector.ID
		vectorEntry.Vector = e.vector.Vector
		vectorEntry.Metadata = e.vector.Metadata
		result.VectorEntry = &vectorEntry
		result.CombinedScore = fusion.Combine(0, e.vector.Score, weights)
	}
	return result
}
