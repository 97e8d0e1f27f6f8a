package chunkproducer

import (
	"context"
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/aman-labs/coderetrieval/internal/model"
)

// FileInput is a single source file to chunk.
type FileInput struct {
	Path     string
	Content  []byte
	Language string
}

// Producer implements the chunk producer collaborator: one model.Chunk
// per top-level function/method/class/interface/type declaration found by
// tree-sitter. Nodes outside any registered declaration type are skipped,
// matching the spec's framing of the chunk producer as a pure, swappable
// upstream stage.
type Producer struct {
	parser   *sitter.Parser
	registry *LanguageRegistry
}

// NewProducer returns a Producer using the default language registry.
func NewProducer() *Producer {
	return &Producer{parser: sitter.NewParser(), registry: DefaultRegistry()}
}

// Close releases the underlying tree-sitter parser.
func (p *Producer) Close() {
	if p.parser != nil {
		p.parser.Close()
	}
}

// SupportedExtensions returns the file extensions this producer can chunk.
func (p *Producer) SupportedExtensions() []string {
	return p.registry.SupportedExtensions()
}

// Produce parses file and returns one chunk per top-level declaration.
func (p *Producer) Produce(ctx context.Context, file *FileInput) ([]*model.Chunk, error) {
	config, ok := p.registry.GetByExtension(extensionOf(file.Path))
	if !ok {
		return nil, fmt.Errorf("chunkproducer: unsupported file %q", file.Path)
	}

	lang, ok := p.registry.GetTreeSitterLanguage(config.Name)
	if !ok {
		return nil, fmt.Errorf("chunkproducer: no grammar for language %q", config.Name)
	}
	p.parser.SetLanguage(lang)

	tree, err := p.parser.ParseCtx(ctx, nil, file.Content)
	if err != nil {
		return nil, fmt.Errorf("chunkproducer: parse %q: %w", file.Path, err)
	}
	if tree == nil {
		return nil, fmt.Errorf("chunkproducer: parse %q: nil tree", file.Path)
	}

	declTypes := config.allDeclarationTypes()
	var chunks []*model.Chunk
	walk(tree.RootNode(), func(n *sitter.Node) bool {
		if !contains(declTypes, n.Type()) {
			return true
		}
		chunk := p.buildChunk(n, file, config)
		if chunk != nil {
			chunks = append(chunks, chunk)
		}
		return false // don't descend into a declaration's own body for nested chunks
	})

	return chunks, nil
}

func (p *Producer) buildChunk(n *sitter.Node, file *FileInput, config *LanguageConfig) *model.Chunk {
	name := entityName(n, config, file.Content)
	if name == "" {
		return nil
	}

	startLine := int(n.StartPoint().Row) + 1
	endLine := int(n.EndPoint().Row) + 1

	c := &model.Chunk{
		ChunkID:    model.NewChunkID(file.Path, name, startLine, endLine),
		Content:    string(file.Content[n.StartByte():n.EndByte()]),
		Language:   config.Name,
		EntityType: config.entityTypeFor(n.Type()),
		EntityName: name,
		SourceFile: file.Path,
		StartLine:  startLine,
		EndLine:    endLine,
		StartByte:  int(n.StartByte()),
		EndByte:    int(n.EndByte()),
	}
	c.Repository = c.WithRepository()
	return c
}

func entityName(n *sitter.Node, config *LanguageConfig, source []byte) string {
	nameNode := n.ChildByFieldName(config.NameField)
	if nameNode == nil {
		// A Go type_declaration carries its name on its type_spec child.
		for i := 0; i < int(n.NamedChildCount()); i++ {
			if c := n.NamedChild(i).ChildByFieldName(config.NameField); c != nil {
				nameNode = c
				break
			}
		}
	}
	if nameNode == nil {
		return ""
	}
	return string(source[nameNode.StartByte():nameNode.EndByte()])
}

func walk(n *sitter.Node, fn func(*sitter.Node) bool) {
	if n == nil || !fn(n) {
		return
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		walk(n.Child(i), fn)
	}
}

func extensionOf(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '.' {
			return path[i:]
		}
		if path[i] == '/' {
			break
		}
	}
	return ""
}
