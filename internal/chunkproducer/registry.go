// Package chunkproducer is a reference implementation of the chunk
// producer collaborator (spec §6.1): it parses source files with
// tree-sitter and emits one model.Chunk per top-level declaration, so
// integration tests and the demo driver have something real to index.
// The core engine is agnostic to this package; any producer emitting
// model.Chunk values works.
package chunkproducer

import (
	"strings"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/python"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"
)

// LanguageConfig names the tree-sitter node types that mark a top-level
// declaration worth chunking, per language.
type LanguageConfig struct {
	Name           string
	Extensions     []string
	FunctionTypes  []string
	MethodTypes    []string
	ClassTypes     []string
	InterfaceTypes []string
	TypeDefTypes   []string
	NameField      string
}

// allDeclarationTypes returns every node type this config treats as a
// chunkable declaration.
func (c *LanguageConfig) allDeclarationTypes() []string {
	var out []string
	out = append(out, c.FunctionTypes...)
	out = append(out, c.MethodTypes...)
	out = append(out, c.ClassTypes...)
	out = append(out, c.InterfaceTypes...)
	out = append(out, c.TypeDefTypes...)
	return out
}

// entityTypeFor classifies a node type against this config's declaration
// kinds, returning the spec's entity_type vocabulary.
func (c *LanguageConfig) entityTypeFor(nodeType string) string {
	switch {
	case contains(c.FunctionTypes, nodeType):
		return "function"
	case contains(c.MethodTypes, nodeType):
		return "method"
	case contains(c.ClassTypes, nodeType):
		return "class"
	case contains(c.InterfaceTypes, nodeType):
		return "interface"
	case contains(c.TypeDefTypes, nodeType):
		return "type"
	default:
		return "unknown"
	}
}

func contains(values []string, v string) bool {
	for _, x := range values {
		if x == v {
			return true
		}
	}
	return false
}

// LanguageRegistry maps file extensions and language names to tree-sitter
// grammars and their declaration-node configuration.
type LanguageRegistry struct {
	mu          sync.RWMutex
	configs     map[string]*LanguageConfig
	extToLang   map[string]string
	tsLanguages map[string]*sitter.Language
}

// NewLanguageRegistry returns a registry pre-populated with Go,
// TypeScript, JavaScript, and Python.
func NewLanguageRegistry() *LanguageRegistry {
	r := &LanguageRegistry{
		configs:     make(map[string]*LanguageConfig),
		extToLang:   make(map[string]string),
		tsLanguages: make(map[string]*sitter.Language),
	}
	r.registerGo()
	r.registerTypeScript()
	r.registerJavaScript()
	r.registerPython()
	return r
}

func (r *LanguageRegistry) register(config *LanguageConfig, tsLang *sitter.Language) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.configs[config.Name] = config
	r.tsLanguages[config.Name] = tsLang
	for _, ext := range config.Extensions {
		r.extToLang[ext] = config.Name
	}
}

// GetByExtension returns the language config for a file extension (with or
// without the leading dot).
func (r *LanguageRegistry) GetByExtension(ext string) (*LanguageConfig, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ext = strings.ToLower(ext)
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	name, ok := r.extToLang[ext]
	if !ok {
		return nil, false
	}
	config, ok := r.configs[name]
	return config, ok
}

// GetTreeSitterLanguage returns the tree-sitter grammar for a language
// name.
func (r *LanguageRegistry) GetTreeSitterLanguage(name string) (*sitter.Language, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	lang, ok := r.tsLanguages[name]
	return lang, ok
}

// SupportedExtensions returns every registered file extension.
func (r *LanguageRegistry) SupportedExtensions() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	exts := make([]string, 0, len(r.extToLang))
	for ext := range r.extToLang {
		exts = append(exts, ext)
	}
	return exts
}

func (r *LanguageRegistry) registerGo() {
	r.register(&LanguageConfig{
		Name:          "go",
		Extensions:    []string{".go"},
		FunctionTypes: []string{"function_declaration"},
		MethodTypes:   []string{"method_declaration"},
		TypeDefTypes:  []string{"type_declaration"},
		NameField:     "name",
	}, golang.GetLanguage())
}

func (r *LanguageRegistry) registerTypeScript() {
	ts := &LanguageConfig{
		Name:           "typescript",
		Extensions:     []string{".ts"},
		FunctionTypes:  []string{"function_declaration"},
		MethodTypes:    []string{"method_definition"},
		ClassTypes:     []string{"class_declaration"},
		InterfaceTypes: []string{"interface_declaration"},
		TypeDefTypes:   []string{"type_alias_declaration"},
		NameField:      "name",
	}
	r.register(ts, typescript.GetLanguage())
	r.register(&LanguageConfig{
		Name:           "tsx",
		Extensions:     []string{".tsx"},
		FunctionTypes:  ts.FunctionTypes,
		MethodTypes:    ts.MethodTypes,
		ClassTypes:     ts.ClassTypes,
		InterfaceTypes: ts.InterfaceTypes,
		TypeDefTypes:   ts.TypeDefTypes,
		NameField:      ts.NameField,
	}, tsx.GetLanguage())
}

func (r *LanguageRegistry) registerJavaScript() {
	js := &LanguageConfig{
		Name:          "javascript",
		Extensions:    []string{".js", ".mjs"},
		FunctionTypes: []string{"function_declaration", "function"},
		MethodTypes:   []string{"method_definition"},
		ClassTypes:    []string{"class_declaration"},
		NameField:     "name",
	}
	r.register(js, javascript.GetLanguage())
	r.register(&LanguageConfig{
		Name:          "jsx",
		Extensions:    []string{".jsx"},
		FunctionTypes: js.FunctionTypes,
		MethodTypes:   js.MethodTypes,
		ClassTypes:    js.ClassTypes,
		NameField:     js.NameField,
	}, javascript.GetLanguage())
}

func (r *LanguageRegistry) registerPython() {
	r.register(&LanguageConfig{
		Name:          "python",
		Extensions:    []string{".py"},
		FunctionTypes: []string{"function_definition"},
		ClassTypes:    []string{"class_definition"},
		NameField:     "name",
	}, python.GetLanguage())
}

var defaultRegistry = NewLanguageRegistry()

// DefaultRegistry returns the package-wide language registry.
func DefaultRegistry() *LanguageRegistry {
	return defaultRegistry
}
