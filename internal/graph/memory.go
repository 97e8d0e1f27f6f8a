package graph

import (
	"context"

	"github.com/aman-labs/coderetrieval/internal/model"
)

// edge is a directed relation from child to parent/interface: child
// IMPLEMENTS or EXTENDS parent.
type edge struct {
	child  string
	parent string
	kind   EdgeKind
}

// MemoryBackend is an in-memory Backend: a small adjacency-list graph
// useful for tests and as a reference implementation of the traversal
// contract before a real graph store is wired in.
type MemoryBackend struct {
	nodes map[string]node
	// edgesByParent[kind][parent] -> children that declare parent via kind.
	edgesByParent map[EdgeKind]map[string][]string
}

// NewMemoryBackend returns an empty in-memory graph.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		nodes: make(map[string]node),
		edgesByParent: map[EdgeKind]map[string][]string{
			EdgeImplements: make(map[string][]string),
			EdgeExtends:    make(map[string][]string),
		},
	}
}

// AddEntity registers an entity's metadata so closures can report its type
// and source file.
func (b *MemoryBackend) AddEntity(name, entityType, sourceFile string) {
	b.nodes[name] = node{name: name, entityType: entityType, sourceFile: sourceFile}
}

// AddEdge records that child relates to parent via kind (child IMPLEMENTS
// parent, or child EXTENDS parent).
func (b *MemoryBackend) AddEdge(child, parent string, kind EdgeKind) {
	b.edgesByParent[kind][parent] = append(b.edgesByParent[kind][parent], child)
}

// Closure performs a breadth-first traversal from anchor along edges of
// kind, up to depth hops, returning each reached entity's relationship
// path. Visited entities are tracked by name so cycles terminate and
// entities reachable via multiple paths are reported once, via whichever
// path reached them first.
func (b *MemoryBackend) Closure(ctx context.Context, anchor string, kind EdgeKind, depth int) ([]model.GraphRelatedEntity, error) {
	type frontierItem struct {
		name string
		path []string
	}

	visited := map[string]struct{}{anchor: {}}
	frontier := []frontierItem{{name: anchor, path: nil}}
	var result []model.GraphRelatedEntity

	for hop := 0; hop < depth && len(frontier) > 0; hop++ {
		var next []frontierItem
		for _, item := range frontier {
			children := b.edgesByParent[kind][item.name]
			for _, child := range children {
				if _, seen := visited[child]; seen {
					continue
				}
				visited[child] = struct{}{}
				path := append(append([]string{}, item.path...), string(kind))

				n := b.nodes[child]
				result = append(result, model.GraphRelatedEntity{
					EntityName:       child,
					EntityType:       n.entityType,
					SourceFile:       n.sourceFile,
					RelationshipPath: path,
				})
				next = append(next, frontierItem{name: child, path: path})
			}
		}
		frontier = next
	}

	if result == nil {
		result = []model.GraphRelatedEntity{}
	}
	return result, nil
}
