// Package graph adapts a dependency/inheritance relation graph into the
// bounded transitive-closure operation the search orchestrator uses for
// structural queries (implements:/extends:/usages:). The graph itself is
// an external collaborator (spec §1/§6.1); this package owns only the
// traversal contract, not persistence.
package graph

import (
	"context"

	retrievalerrors "github.com/aman-labs/coderetrieval/internal/errors"
	"github.com/aman-labs/coderetrieval/internal/model"
	"github.com/aman-labs/coderetrieval/internal/queryparse"
)

// EdgeKind names a directed relation between two entities.
type EdgeKind string

const (
	EdgeImplements EdgeKind = "IMPLEMENTS"
	EdgeExtends    EdgeKind = "EXTENDS"
)

// MinDepth and MaxDepth bound the depth parameter accepted by FindRelated.
const (
	MinDepth     = 1
	MaxDepth     = 10
	DefaultDepth = 5
)

// ClampDepth clamps depth into [MinDepth, MaxDepth], defaulting to
// DefaultDepth when depth is zero.
func ClampDepth(depth int) int {
	if depth == 0 {
		return DefaultDepth
	}
	if depth < MinDepth {
		return MinDepth
	}
	if depth > MaxDepth {
		return MaxDepth
	}
	return depth
}

// node is one entity in the in-memory graph.
type node struct {
	name       string
	entityType string
	sourceFile string
}

// Backend is a bounded transitive-closure provider over IMPLEMENTS/EXTENDS
// edges. Query and the backend unavailability handling is done by Adapter;
// a Backend is expected to simply perform the traversal.
type Backend interface {
	// Closure returns entities reachable from anchor by following edges of
	// kind, up to depth hops, along with the relationship path (edge-kind
	// sequence) by which each was first reached.
	Closure(ctx context.Context, anchor string, kind EdgeKind, depth int) ([]model.GraphRelatedEntity, error)
}

// Adapter is the C11 entry point: FindRelated dispatches on the query's C4
// classification and degrades to an empty result (not a hard failure) when
// the backend is unavailable.
type Adapter struct {
	backend Backend
}

// NewAdapter wraps backend. A nil backend is valid: FindRelated then
// always degrades to empty results.
func NewAdapter(backend Backend) *Adapter {
	return &Adapter{backend: backend}
}

// FindRelated dispatches on the parsed query's structural predicate:
// implements:X runs the implements closure, extends:X the extends closure,
// usages:X unions both (deduplicated by entity name), and anything else
// returns an empty list. depth is clamped to [1,10], defaulting to 5.
func (a *Adapter) FindRelated(ctx context.Context, parsed queryparse.ParsedQuery, filters model.SearchFilters, depth int) ([]model.GraphRelatedEntity, error) {
	if parsed.Kind != queryparse.KindStructural || parsed.Structural == nil {
		return []model.GraphRelatedEntity{}, nil
	}
	if a.backend == nil {
		return []model.GraphRelatedEntity{}, nil
	}

	depth = ClampDepth(depth)
	anchor := parsed.Structural.Name

	var entities []model.GraphRelatedEntity
	var err error
	switch parsed.Structural.Kind {
	case queryparse.PredicateImplements:
		entities, err = a.closureOrEmpty(ctx, anchor, EdgeImplements, depth)
	case queryparse.PredicateExtends:
		entities, err = a.closureOrEmpty(ctx, anchor, EdgeExtends, depth)
	case queryparse.PredicateUsages:
		implements, iErr := a.closureOrEmpty(ctx, anchor, EdgeImplements, depth)
		extends, eErr := a.closureOrEmpty(ctx, anchor, EdgeExtends, depth)
		if iErr != nil && eErr != nil {
			return []model.GraphRelatedEntity{}, nil
		}
		entities = dedupeByEntityName(append(implements, extends...))
	default:
		return []model.GraphRelatedEntity{}, nil
	}

	if err != nil {
		return []model.GraphRelatedEntity{}, nil
	}
	return applyFilters(entities, filters), nil
}

func (a *Adapter) closureOrEmpty(ctx context.Context, anchor string, kind EdgeKind, depth int) ([]model.GraphRelatedEntity, error) {
	entities, err := a.backend.Closure(ctx, anchor, kind, depth)
	if err != nil {
		return nil, retrievalerrors.BackendError(retrievalerrors.ErrCodeGraphUnavailable, "graph: closure query failed", err)
	}
	return entities, nil
}

func dedupeByEntityName(entities []model.GraphRelatedEntity) []model.GraphRelatedEntity {
	seen := make(map[string]struct{}, len(entities))
	out := make([]model.GraphRelatedEntity, 0, len(entities))
	for _, e := range entities {
		if _, ok := seen[e.EntityName]; ok {
			continue
		}
		seen[e.EntityName] = struct{}{}
		out = append(out, e)
	}
	return out
}

func applyFilters(entities []model.GraphRelatedEntity, filters model.SearchFilters) []model.GraphRelatedEntity {
	if filters.IsEmpty() {
		return entities
	}
	out := make([]model.GraphRelatedEntity, 0, len(entities))
	for _, e := range entities {
		if matchesFilters(e, filters) {
			out = append(out, e)
		}
	}
	return out
}

func matchesFilters(e model.GraphRelatedEntity, filters model.SearchFilters) bool {
	if len(filters.EntityTypes) > 0 && !contains(filters.EntityTypes, e.EntityType) {
		return false
	}
	if len(filters.FilePaths) > 0 && !anyPrefix(filters.FilePaths, e.SourceFile) {
		return false
	}
	return true
}

func contains(values []string, v string) bool {
	for _, x := range values {
		if x == v {
			return true
		}
	}
	return false
}

func anyPrefix(prefixes []string, s string) bool {
	for _, p := range prefixes {
		if len(s) >= len(p) && s[:len(p)] == p {
			return true
		}
	}
	return false
}
