package keywordindex

import (
	"fmt"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/custom"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/token/lowercase"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/registry"
)

// Field names as stored on the bleve document.
const (
	FieldContent           = "content"
	FieldEntityName        = "entity_name"
	FieldDocSummary        = "doc_summary"
	FieldEntityNameKeyword = "entity_name_keyword"
	FieldLanguage          = "language"
	FieldEntityType        = "entity_type"
	FieldFilePath          = "file_path"
	FieldRepository        = "repository"
)

const (
	codeTokenizerName  = "coderetrieval_code_tokenizer"
	codeStopFilterName = "coderetrieval_code_stop"
	codeAnalyzerName   = "coderetrieval_code_analyzer"
)

func init() {
	_ = registry.RegisterTokenizer(codeTokenizerName, codeTokenizerConstructor)
	_ = registry.RegisterTokenFilter(codeStopFilterName, codeStopFilterConstructor)
}

// createIndexMapping builds the multi-field mapping implementing spec §4.2's
// field-type policy: tokenized text fields with positions, untokenized
// keyword fields, and stored-only numeric fields.
func createIndexMapping() (*mapping.IndexMappingImpl, error) {
	im := bleve.NewIndexMapping()

	if err := im.AddCustomAnalyzer(codeAnalyzerName, map[string]interface{}{
		"type":      custom.Name,
		"tokenizer": codeTokenizerName,
		"token_filters": []string{
			lowercase.Name,
			codeStopFilterName,
		},
	}); err != nil {
		return nil, fmt.Errorf("keywordindex: failed to register code analyzer: %w", err)
	}

	docMapping := bleve.NewDocumentMapping()

	docMapping.AddFieldMappingsAt(FieldContent, tokenizedFieldMapping(true))
	docMapping.AddFieldMappingsAt(FieldEntityName, tokenizedFieldMapping(false))
	docMapping.AddFieldMappingsAt(FieldDocSummary, tokenizedFieldMapping(false))

	docMapping.AddFieldMappingsAt(FieldEntityNameKeyword, keywordFieldMapping())
	docMapping.AddFieldMappingsAt(FieldLanguage, keywordFieldMapping())
	docMapping.AddFieldMappingsAt(FieldEntityType, keywordFieldMapping())
	docMapping.AddFieldMappingsAt(FieldFilePath, keywordFieldMapping())
	docMapping.AddFieldMappingsAt(FieldRepository, keywordFieldMapping())

	// Stored-only numeric fields: not indexed, just carried for retrieval.
	for _, field := range []string{"start_line", "end_line", "start_byte", "end_byte"} {
		numMapping := bleve.NewNumericFieldMapping()
		numMapping.Index = false
		numMapping.Store = true
		docMapping.AddFieldMappingsAt(field, numMapping)
	}

	// Dynamic meta_<key> fields (unknown at mapping time) fall through to
	// the document mapping's default analyzer, which we set to keyword so
	// they behave like the other keyword fields.
	docMapping.Dynamic = true
	docMapping.DefaultAnalyzer = keyword.Name

	im.DefaultMapping = docMapping
	im.DefaultAnalyzer = codeAnalyzerName

	return im, nil
}

func tokenizedFieldMapping(withOffsets bool) *mapping.FieldMapping {
	fm := bleve.NewTextFieldMapping()
	fm.Analyzer = codeAnalyzerName
	fm.Store = true
	fm.Index = true
	fm.IncludeTermVectors = true
	if withOffsets {
		fm.IncludeInAll = true
	}
	return fm
}

func keywordFieldMapping() *mapping.FieldMapping {
	fm := bleve.NewTextFieldMapping()
	fm.Analyzer = keyword.Name
	fm.Store = true
	fm.Index = true
	fm.IncludeTermVectors = false
	return fm
}
