// Package queryparse classifies a raw query string into the shape the
// search orchestrator dispatches on: structural predicates, field-qualified
// syntax, wildcards, phrases, or plain multi-field terms, plus the parse
// failure fallback cascade.
package queryparse

import "strings"

// PredicateKind names a recognized structural predicate.
type PredicateKind string

const (
	PredicateImplements PredicateKind = "implements"
	PredicateExtends    PredicateKind = "extends"
	PredicateUsages     PredicateKind = "usages"
)

// StructuralPredicate is a recognized implements:/extends:/usages: query,
// consumed by the graph closure adapter.
type StructuralPredicate struct {
	Kind PredicateKind
	Name string
}

var predicatePrefixes = []PredicateKind{PredicateImplements, PredicateExtends, PredicateUsages}

// ParseStructural recognizes at most one structural predicate at the start
// of raw: the literal prefix plus the first whitespace-delimited token.
// Trailing terms are ignored. A blank extracted name is rejected (ok=false).
func ParseStructural(raw string) (*StructuralPredicate, bool) {
	for _, kind := range predicatePrefixes {
		prefix := string(kind) + ":"
		if !strings.HasPrefix(raw, prefix) {
			continue
		}
		rest := raw[len(prefix):]
		name := firstToken(rest)
		if name == "" {
			return nil, false
		}
		return &StructuralPredicate{Kind: kind, Name: name}, true
	}
	return nil, false
}

func firstToken(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}
