// Package fusion normalizes per-source result scores and combines them
// into a single hybrid score via weighted linear combination.
package fusion

import "github.com/aman-labs/coderetrieval/internal/model"

// Scored is anything carrying a mutable score, so Normalize can operate
// generically over keyword hits, vector hits, or any other scored list.
type Scored interface {
	GetScore() float64
	SetScore(float64)
}

// Normalize min-max scales scores to [0,1] in place, returning the same
// slice for chaining. Null/empty input yields an empty slice. A single
// item, or a list where every score is equal, normalizes to 1.0 for each
// item (avoids a divide-by-zero and reflects "this was the only/best
// signal available").
func Normalize[T Scored](items []T) []T {
	if len(items) == 0 {
		return items
	}
	if len(items) == 1 {
		items[0].SetScore(1.0)
		return items
	}

	min, max := items[0].GetScore(), items[0].GetScore()
	for _, it := range items[1:] {
		s := it.GetScore()
		if s < min {
			min = s
		}
		if s > max {
			max = s
		}
	}

	if max == min {
		for _, it := range items {
			it.SetScore(1.0)
		}
		return items
	}

	span := max - min
	for _, it := range items {
		it.SetScore((it.GetScore() - min) / span)
	}
	return items
}

// Combine applies the weighted linear hybrid scorer:
// combine(k,v,w) = w.KeywordWeight*k + w.VectorWeight*v.
// Callers validate weights via model.Weights.Validate before calling.
func Combine(keywordScore, vectorScore float64, weights model.Weights) float64 {
	return weights.KeywordWeight*keywordScore + weights.VectorWeight*vectorScore
}
