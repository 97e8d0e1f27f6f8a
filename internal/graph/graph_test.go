package graph

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aman-labs/coderetrieval/internal/model"
	"github.com/aman-labs/coderetrieval/internal/queryparse"
)

func structuralQuery(t *testing.T, raw string) queryparse.ParsedQuery {
	t.Helper()
	pq, err := queryparse.Parse(raw)
	require.NoError(t, err)
	return pq
}

func TestClampDepth_DefaultsWhenZero(t *testing.T) {
	assert.Equal(t, DefaultDepth, ClampDepth(0))
}

func TestClampDepth_ClampsBelowMin(t *testing.T) {
	assert.Equal(t, MinDepth, ClampDepth(-3))
}

func TestClampDepth_ClampsAboveMax(t *testing.T) {
	assert.Equal(t, MaxDepth, ClampDepth(50))
}

func TestClampDepth_PassesThroughValidValue(t *testing.T) {
	assert.Equal(t, 3, ClampDepth(3))
}

func TestFindRelated_NonStructuralQuery_ReturnsEmpty(t *testing.T) {
	backend := NewMemoryBackend()
	adapter := NewAdapter(backend)

	entities, err := adapter.FindRelated(context.Background(), structuralQuery(t, "plain query"), model.SearchFilters{}, 5)
	require.NoError(t, err)
	assert.Empty(t, entities)
}

func TestFindRelated_NilBackend_ReturnsEmptyNotError(t *testing.T) {
	adapter := NewAdapter(nil)
	entities, err := adapter.FindRelated(context.Background(), structuralQuery(t, "implements:Runnable"), model.SearchFilters{}, 5)
	require.NoError(t, err)
	assert.Empty(t, entities)
}

func TestFindRelated_Implements_FindsDirectAndTransitiveChildren(t *testing.T) {
	backend := NewMemoryBackend()
	backend.AddEntity("Task", "class", "task.go")
	backend.AddEntity("AsyncTask", "class", "async.go")
	backend.AddEdge("Task", "Runnable", EdgeImplements)
	backend.AddEdge("AsyncTask", "Task", EdgeImplements)

	adapter := NewAdapter(backend)
	entities, err := adapter.FindRelated(context.Background(), structuralQuery(t, "implements:Runnable"), model.SearchFilters{}, 5)
	require.NoError(t, err)

	names := entityNames(entities)
	assert.Contains(t, names, "Task")
	assert.Contains(t, names, "AsyncTask")
}

func TestFindRelated_Implements_DepthBoundsTraversal(t *testing.T) {
	backend := NewMemoryBackend()
	backend.AddEdge("Task", "Runnable", EdgeImplements)
	backend.AddEdge("AsyncTask", "Task", EdgeImplements)

	adapter := NewAdapter(backend)
	entities, err := adapter.FindRelated(context.Background(), structuralQuery(t, "implements:Runnable"), model.SearchFilters{}, 1)
	require.NoError(t, err)

	names := entityNames(entities)
	assert.Contains(t, names, "Task")
	assert.NotContains(t, names, "AsyncTask")
}

func TestFindRelated_Extends_FindsChildren(t *testing.T) {
	backend := NewMemoryBackend()
	backend.AddEdge("DerivedHandler", "BaseHandler", EdgeExtends)

	adapter := NewAdapter(backend)
	entities, err := adapter.FindRelated(context.Background(), structuralQuery(t, "extends:BaseHandler"), model.SearchFilters{}, 5)
	require.NoError(t, err)
	assert.Equal(t, []string{"DerivedHandler"}, entityNames(entities))
}

func TestFindRelated_Usages_UnionsImplementsAndExtendsDeduped(t *testing.T) {
	backend := NewMemoryBackend()
	backend.AddEdge("Task", "Logger", EdgeImplements)
	backend.AddEdge("Task", "Logger", EdgeExtends)

	adapter := NewAdapter(backend)
	entities, err := adapter.FindRelated(context.Background(), structuralQuery(t, "usages:Logger"), model.SearchFilters{}, 5)
	require.NoError(t, err)
	assert.Equal(t, []string{"Task"}, entityNames(entities))
}

func TestFindRelated_DedupesAcrossMultiplePaths(t *testing.T) {
	backend := NewMemoryBackend()
	backend.AddEdge("A", "Root", EdgeImplements)
	backend.AddEdge("B", "Root", EdgeImplements)
	backend.AddEdge("C", "A", EdgeImplements)
	backend.AddEdge("C", "B", EdgeImplements)

	adapter := NewAdapter(backend)
	entities, err := adapter.FindRelated(context.Background(), structuralQuery(t, "implements:Root"), model.SearchFilters{}, 5)
	require.NoError(t, err)

	count := 0
	for _, e := range entities {
		if e.EntityName == "C" {
			count++
		}
	}
	assert.Equal(t, 1, count)
}

func TestFindRelated_AppliesEntityTypeFilter(t *testing.T) {
	backend := NewMemoryBackend()
	backend.AddEntity("Task", "class", "task.go")
	backend.AddEntity("Runner", "interface", "runner.go")
	backend.AddEdge("Task", "Root", EdgeImplements)
	backend.AddEdge("Runner", "Root", EdgeImplements)

	adapter := NewAdapter(backend)
	entities, err := adapter.FindRelated(context.Background(), structuralQuery(t, "implements:Root"), model.SearchFilters{EntityTypes: []string{"class"}}, 5)
	require.NoError(t, err)
	assert.Equal(t, []string{"Task"}, entityNames(entities))
}

func entityNames(entities []model.GraphRelatedEntity) []string {
	out := make([]string, 0, len(entities))
	for _, e := range entities {
		out = append(out, e.EntityName)
	}
	return out
}
