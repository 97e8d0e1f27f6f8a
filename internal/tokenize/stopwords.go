package tokenize

// codeStopWords are language-noise tokens common across source files:
// declaration keywords and the handful of generic identifiers that show up
// in nearly every function and carry no retrieval signal on their own.
var codeStopWords = []string{
	"var", "let", "const", "func", "function", "def", "class",
	"return", "if", "else", "for", "while", "switch", "case",
	"break", "continue", "import", "package", "from", "as",
	"public", "private", "protected", "static", "final", "interface",
	"struct", "enum", "type", "new", "this", "self", "super",
	"try", "catch", "finally", "throw", "throws",
	"data", "result", "value", "item", "key", "err", "ctx", "tmp",
}

// englishStopWords are common English function words that add noise to
// identifiers and doc comments without aiding retrieval.
var englishStopWords = []string{
	"a", "an", "the", "and", "or", "but", "not", "is", "are", "was",
	"were", "be", "been", "being", "of", "in", "on", "at", "to", "for",
	"with", "by", "from", "up", "down", "out", "over", "under", "again",
	"then", "once", "here", "there", "when", "where", "why", "how",
	"all", "any", "both", "each", "few", "more", "most", "other", "some",
	"such", "no", "nor", "too", "very", "can", "will", "just", "than",
	"it", "its", "that", "this", "these", "those", "which", "who",
	"what", "do", "does", "did", "have", "has", "had",
}

// DefaultStopWords is the combined English and code-noise stop-word set
// used by Tokenize.
var DefaultStopWords = BuildStopWordMap(append(append([]string{}, codeStopWords...), englishStopWords...))

// BuildStopWordMap converts a stop-word list into a lookup set.
func BuildStopWordMap(words []string) map[string]struct{} {
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}
