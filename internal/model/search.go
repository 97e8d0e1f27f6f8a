package model

import "fmt"

// SearchFilters is the ordered sequence of filter dimensions applied to a
// search: values within one dimension are OR'd together, dimensions are
// AND'd against each other. FilePaths matches by prefix; the rest match
// exactly.
type SearchFilters struct {
	Languages   []string
	Repositories []string
	FilePaths   []string
	EntityTypes []string
}

// IsEmpty reports whether no filter dimension constrains the search.
func (f SearchFilters) IsEmpty() bool {
	return len(f.Languages) == 0 && len(f.Repositories) == 0 &&
		len(f.FilePaths) == 0 && len(f.EntityTypes) == 0
}

// Weights controls the hybrid keyword/vector score blend. Both components
// must lie in [0,1] and sum to 1 within WeightSumTolerance.
type Weights struct {
	KeywordWeight float64
	VectorWeight  float64
}

// WeightSumTolerance is the maximum allowed deviation of
// KeywordWeight+VectorWeight from 1.0.
const WeightSumTolerance = 1e-9

// DefaultWeights returns the engine's default keyword/vector balance.
func DefaultWeights() Weights {
	return Weights{KeywordWeight: 0.6, VectorWeight: 0.4}
}

// Validate checks that both weights lie in [0,1] and sum to 1 within
// WeightSumTolerance.
func (w Weights) Validate() error {
	if w.KeywordWeight < 0 || w.KeywordWeight > 1 {
		return fmt.Errorf("weights: keyword_weight %v out of range [0,1]", w.KeywordWeight)
	}
	if w.VectorWeight < 0 || w.VectorWeight > 1 {
		return fmt.Errorf("weights: vector_weight %v out of range [0,1]", w.VectorWeight)
	}
	sum := w.KeywordWeight + w.VectorWeight
	delta := sum - 1.0
	if delta < 0 {
		delta = -delta
	}
	if delta > WeightSumTolerance {
		return fmt.Errorf("weights: keyword_weight+vector_weight = %v, must sum to 1 within %v", sum, WeightSumTolerance)
	}
	return nil
}

// GraphRelatedEntity is a single node returned by the transitive-closure
// graph adapter: an entity related to the query root, annotated with the
// path of relationships traversed to reach it.
type GraphRelatedEntity struct {
	EntityName       string
	EntityType       string
	SourceFile       string
	RelationshipPath []string
}

// MergedResult is a single fused search hit: the keyword and/or vector
// evidence for a chunk, combined into one normalized score.
type MergedResult struct {
	ChunkID          string
	KeywordDoc       *IndexDocument
	VectorEntry      *VectorEntry
	CombinedScore    float64
	FromBothSources  bool
	FieldMatch       map[string][]string // field name -> sorted matched terms
	IsTransitive     bool                // true when reached via graph closure resolution
	RelationshipPath []string            // edge-kind path from the structural query's anchor, when is_transitive
}

// Validate checks that at least one of KeywordDoc/VectorEntry is present
// and the combined score lies in [0,1].
func (m *MergedResult) Validate() error {
	if m.KeywordDoc == nil && m.VectorEntry == nil {
		return fmt.Errorf("merged result %s: neither keyword_doc nor vector_entry present", m.ChunkID)
	}
	if m.CombinedScore < 0 || m.CombinedScore > 1 {
		return fmt.Errorf("merged result %s: combined_score %v out of range [0,1]", m.ChunkID, m.CombinedScore)
	}
	return nil
}
