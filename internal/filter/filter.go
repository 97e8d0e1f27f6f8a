// Package filter builds score-neutral metadata filter clauses for the
// keyword index, plus WithoutDimension, the per-dimension filter view the
// keyword index uses when it recomputes each facet. Filters prune the
// candidate set; they never influence ranking.
package filter

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search/query"
	lru "github.com/hashicorp/golang-lru/v2"

	retrievalerrors "github.com/aman-labs/coderetrieval/internal/errors"
	"github.com/aman-labs/coderetrieval/internal/model"
)

// queryCacheSize bounds the number of distinct filter shapes cached at once.
const queryCacheSize = 256

var queryCache, _ = lru.New[string, query.Query](queryCacheSize)

// Dimension names as they appear on an IndexDocument.
const (
	FieldLanguage   = "language"
	FieldRepository = "repository"
	FieldEntityType = "entity_type"
	FieldFilePath   = "file_path"
)

// Validate checks the invariant that every non-empty filter dimension
// carries at least one non-blank value.
func Validate(f model.SearchFilters) error {
	for _, dim := range [][]string{f.Languages, f.Repositories, f.FilePaths, f.EntityTypes} {
		if dim == nil {
			continue
		}
		if len(dim) == 0 {
			return retrievalerrors.ValidationError(retrievalerrors.ErrCodeInvalidQuery,
				"filter dimension present but empty")
		}
		for _, v := range dim {
			if strings.TrimSpace(v) == "" {
				return retrievalerrors.ValidationError(retrievalerrors.ErrCodeInvalidQuery,
					"filter dimension contains a blank value")
			}
		}
	}
	return nil
}

// BuildQuery builds the bleve filter query for a set of search filters:
// dimensions are AND'd together, values within one dimension are OR'd.
// Returns (nil, nil) when filters are empty — callers should skip
// conjoining a nil filter query. Results are cached by filter shape.
func BuildQuery(f model.SearchFilters) (query.Query, error) {
	if err := Validate(f); err != nil {
		return nil, err
	}
	if f.IsEmpty() {
		return nil, nil
	}

	key := shapeKey(f)
	if cached, ok := queryCache.Get(key); ok {
		return cached, nil
	}

	var conjuncts []query.Query
	if q := exactOrClause(FieldLanguage, f.Languages); q != nil {
		conjuncts = append(conjuncts, q)
	}
	if q := exactOrClause(FieldRepository, f.Repositories); q != nil {
		conjuncts = append(conjuncts, q)
	}
	if q := exactOrClause(FieldEntityType, f.EntityTypes); q != nil {
		conjuncts = append(conjuncts, q)
	}
	if q := prefixOrClause(FieldFilePath, f.FilePaths); q != nil {
		conjuncts = append(conjuncts, q)
	}

	var built query.Query
	switch len(conjuncts) {
	case 0:
		built = nil
	case 1:
		built = conjuncts[0]
	default:
		built = bleve.NewConjunctionQuery(conjuncts...)
	}

	queryCache.Add(key, built)
	return built, nil
}

func exactOrClause(field string, values []string) query.Query {
	if len(values) == 0 {
		return nil
	}
	disjuncts := make([]query.Query, 0, len(values))
	for _, v := range values {
		tq := bleve.NewTermQuery(v)
		tq.SetField(field)
		disjuncts = append(disjuncts, tq)
	}
	if len(disjuncts) == 1 {
		return disjuncts[0]
	}
	return bleve.NewDisjunctionQuery(disjuncts...)
}

func prefixOrClause(field string, values []string) query.Query {
	if len(values) == 0 {
		return nil
	}
	disjuncts := make([]query.Query, 0, len(values))
	for _, v := range values {
		pq := bleve.NewPrefixQuery(v)
		pq.SetField(field)
		disjuncts = append(disjuncts, pq)
	}
	if len(disjuncts) == 1 {
		return disjuncts[0]
	}
	return bleve.NewDisjunctionQuery(disjuncts...)
}

// WithoutDimension returns a copy of f with the named facet dimension
// cleared, used when recomputing a facet so that selecting one of its own
// values doesn't zero out its own count.
func WithoutDimension(f model.SearchFilters, dimension string) model.SearchFilters {
	clone := f
	switch dimension {
	case FieldLanguage:
		clone.Languages = nil
	case FieldRepository:
		clone.Repositories = nil
	case FieldEntityType:
		clone.EntityTypes = nil
	case FieldFilePath:
		clone.FilePaths = nil
	}
	return clone
}

// shapeKey produces a stable cache key for a filter's shape, independent of
// input ordering within a dimension.
func shapeKey(f model.SearchFilters) string {
	h := sha256.New()
	for _, dim := range [][]string{f.Languages, f.Repositories, f.FilePaths, f.EntityTypes} {
		sorted := append([]string{}, dim...)
		sort.Strings(sorted)
		h.Write([]byte(strings.Join(sorted, "\x1f")))
		h.Write([]byte{0x1e})
	}
	return hex.EncodeToString(h.Sum(nil))
}
