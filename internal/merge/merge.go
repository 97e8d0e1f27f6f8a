package merge

import (
	"sort"

	"github.com/aman-labs/coderetrieval/internal/fusion"
	"github.com/aman-labs/coderetrieval/internal/model"
)

// Merge combines a normalized keyword hit list and a normalized vector hit
// list into a deduplicated, deterministically ordered sequence of merged
// results. Both input lists are expected to already be normalized (C8).
func Merge(keywordHits []*fusion.NormalizedKeywordHit, vectorHits []*fusion.NormalizedVectorHit, weights model.Weights) []model.MergedResult {
	byID := make(map[string]*entry)
	order := make([]string, 0, len(keywordHits)+len(vectorHits))

	for _, hit := range keywordHits {
		id := CanonicalKeywordID(hit.Document)
		e, ok := byID[id]
		if !ok {
			e = &entry{chunkID: id}
			byID[id] = e
			order = append(order, id)
		}
		e.keyword = hit
	}

	for _, hit := range vectorHits {
		id := CanonicalVectorID(hit.ID, hit.Metadata)
		e, ok := byID[id]
		if !ok {
			e = &entry{chunkID: id}
			byID[id] = e
			order = append(order, id)
		}
		e.vector = hit
	}

	results := make([]model.MergedResult, 0, len(order))
	for _, id := range order {
		results = append(results, byID[id].toMergedResult(weights))
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].CombinedScore != results[j].CombinedScore {
			return results[i].CombinedScore > results[j].CombinedScore
		}
		return results[i].ChunkID < results[j].ChunkID
	})

	return results
}
