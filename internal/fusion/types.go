package fusion

import "github.com/aman-labs/coderetrieval/internal/model"

// NormalizedKeywordHit wraps a keyword-index hit with a score fusion can
// mutate in place during normalization.
type NormalizedKeywordHit struct {
	Document   *model.IndexDocument
	Score      float64
	FieldMatch map[string][]string
}

func (h *NormalizedKeywordHit) GetScore() float64  { return h.Score }
func (h *NormalizedKeywordHit) SetScore(s float64) { h.Score = s }

// NormalizedVectorHit wraps a vector-store hit with a score fusion can
// mutate in place during normalization.
type NormalizedVectorHit struct {
	ID       string
	Vector   []float32
	Metadata map[string]string
	Score    float64
}

func (h *NormalizedVectorHit) GetScore() float64  { return h.Score }
func (h *NormalizedVectorHit) SetScore(s float64) { h.Score = s }
