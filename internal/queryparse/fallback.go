package queryparse

import (
	"strings"

	"github.com/aman-labs/coderetrieval/internal/tokenize"
)

// reservedChars must be escaped when retrying a query after a parse
// failure; backslash is escaped first so escaping itself isn't doubled.
var reservedChars = []string{`\`, "+", "-", "&&", "||", "!", "(", ")", "{", "}", "[", "]", "^", `"`, "~", "*", "?", ":"}

// FallbackStage names one step of the parse-failure fallback cascade.
type FallbackStage string

const (
	StageQuotedPhrase FallbackStage = "quoted_phrase"
	StageEscaped      FallbackStage = "escaped"
	StageSplitUnion   FallbackStage = "split_union"
	StageTermOr       FallbackStage = "term_or"
)

// Fallback is one candidate retry, carrying one or more query strings to
// OR together across the default searchable fields. Configured boosts are
// preserved by every stage since none of them change which fields are
// searched.
type Fallback struct {
	Stage   FallbackStage
	Queries []string
}

// FallbackCascade returns the ordered fallback cascade for a query that
// failed its primary parse: (a) wrap as a phrase, (b) escape reserved
// characters, (c) split on comma/semicolon as a union, (d) term-OR across
// tokens.
func FallbackCascade(raw string) []Fallback {
	return []Fallback{
		{Stage: StageQuotedPhrase, Queries: []string{`"` + raw + `"`}},
		{Stage: StageEscaped, Queries: []string{EscapeReserved(raw)}},
		{Stage: StageSplitUnion, Queries: splitUnion(raw)},
		{Stage: StageTermOr, Queries: termOr(raw)},
	}
}

// EscapeReserved backslash-escapes every reserved query-syntax character.
func EscapeReserved(s string) string {
	for _, r := range reservedChars {
		s = strings.ReplaceAll(s, r, `\`+r)
	}
	return s
}

// splitUnion splits raw on commas or semicolons into trimmed, non-blank
// parts.
func splitUnion(raw string) []string {
	parts := strings.FieldsFunc(raw, func(r rune) bool { return r == ',' || r == ';' })
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// termOr tokenizes raw and returns its terms in token order, to be OR'd
// across tokens and fields with boosts applied per field. Terms are
// deduplicated only within one word, so a repeated word repeats its terms.
func termOr(raw string) []string {
	tokens := tokenize.Tokenize(raw)
	out := make([]string, 0, len(tokens))
	for _, t := range tokens {
		out = append(out, t.Term)
	}
	return out
}
