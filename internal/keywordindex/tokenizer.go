package keywordindex

import (
	"strings"

	"github.com/blevesearch/bleve/v2/analysis"
	"github.com/blevesearch/bleve/v2/registry"

	"github.com/aman-labs/coderetrieval/internal/tokenize"
)

// codeTokenizerConstructor adapts the engine's code-aware tokenizer
// (identifier re-splitting, acronym boundaries, stop-word removal) into a
// bleve analysis.Tokenizer.
func codeTokenizerConstructor(_ map[string]interface{}, _ *registry.Cache) (analysis.Tokenizer, error) {
	return &bleveCodeTokenizer{}, nil
}

type bleveCodeTokenizer struct{}

// Tokenize runs the shared tokenize.Tokenize pipeline and converts its
// Token stream into bleve's analysis.TokenStream, preserving byte offsets
// and positions (1-indexed, as bleve expects).
func (t *bleveCodeTokenizer) Tokenize(input []byte) analysis.TokenStream {
	tokens := tokenize.Tokenize(string(input))

	result := make(analysis.TokenStream, 0, len(tokens))
	for _, tok := range tokens {
		result = append(result, &analysis.Token{
			Term:     []byte(tok.Term),
			Start:    tok.Start,
			End:      tok.End,
			Position: tok.Position + 1,
			Type:     analysis.AlphaNumeric,
		})
	}
	return result
}

// codeStopFilterConstructor builds a filter that drops every token whose
// lowercased term is in tokenize.DefaultStopWords. tokenize.Tokenize
// already removes stop words before tokens reach bleve, so on this
// analyzer's own tokens it removes nothing further; it still catches
// mixed-case stop words from other tokenizers it is combined with.
func codeStopFilterConstructor(_ map[string]interface{}, _ *registry.Cache) (analysis.TokenFilter, error) {
	return &bleveCodeStopFilter{stopWords: tokenize.DefaultStopWords}, nil
}

type bleveCodeStopFilter struct {
	stopWords map[string]struct{}
}

func (f *bleveCodeStopFilter) Filter(input analysis.TokenStream) analysis.TokenStream {
	result := make(analysis.TokenStream, 0, len(input))
	for _, token := range input {
		term := strings.ToLower(string(token.Term))
		if _, isStop := f.stopWords[term]; !isStop {
			result = append(result, token)
		}
	}
	return result
}
