// Package model defines the data types shared across the retrieval engine:
// chunks, index documents, vector entries, filters, weights, and merged
// results, plus the repository-extraction cascade used to populate a
// chunk's Repository field from its source path.
package model

import "fmt"

// Chunk is the indexable unit produced by a chunk producer.
type Chunk struct {
	ChunkID    string
	Content    string
	Language   string
	EntityType string
	EntityName string
	SourceFile string
	Repository string
	StartLine  int
	EndLine    int
	StartByte  int
	EndByte    int
	Attributes map[string]string
}

// NewChunkID builds the stable chunk identifier: sourceFile:entityName:startLine:endLine.
func NewChunkID(sourceFile, entityName string, startLine, endLine int) string {
	return fmt.Sprintf("%s:%s:%d:%d", sourceFile, entityName, startLine, endLine)
}

// Validate checks the chunk's structural invariants: start_line <= end_line,
// start_byte <= end_byte, and a deterministic, non-empty chunk ID.
func (c *Chunk) Validate() error {
	if c.ChunkID == "" {
		return fmt.Errorf("chunk: empty chunk_id")
	}
	if c.StartLine > c.EndLine {
		return fmt.Errorf("chunk %s: start_line %d > end_line %d", c.ChunkID, c.StartLine, c.EndLine)
	}
	if c.StartByte > c.EndByte {
		return fmt.Errorf("chunk %s: start_byte %d > end_byte %d", c.ChunkID, c.StartByte, c.EndByte)
	}
	return nil
}

// WithRepository returns the chunk's Repository if set, else resolves it via
// the repository-extraction cascade over SourceFile, which yields the
// sentinel "unknown" when extraction fails. The chunk itself is not modified.
func (c *Chunk) WithRepository() string {
	if c.Repository != "" {
		return c.Repository
	}
	return ExtractRepository(c.SourceFile)
}
