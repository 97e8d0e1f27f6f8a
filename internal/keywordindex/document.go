package keywordindex

import "github.com/aman-labs/coderetrieval/internal/model"

// toBleveDoc flattens an IndexDocument into the map bleve indexes,
// expanding dynamic meta_* fields alongside the fixed schema.
func toBleveDoc(doc *model.IndexDocument) map[string]interface{} {
	m := map[string]interface{}{
		FieldContent:           doc.Content,
		FieldEntityName:        doc.EntityName,
		FieldDocSummary:        doc.DocSummary,
		FieldEntityNameKeyword: doc.EntityNameKeyword,
		FieldLanguage:          doc.Language,
		FieldEntityType:        doc.EntityType,
		FieldFilePath:          doc.FilePath,
		FieldRepository:        doc.Repository,
		"start_line":           doc.StartLine,
		"end_line":             doc.EndLine,
		"start_byte":           doc.StartByte,
		"end_byte":             doc.EndByte,
	}
	for key, value := range doc.Meta {
		m[key] = value
	}
	return m
}
