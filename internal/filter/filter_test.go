package filter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aman-labs/coderetrieval/internal/model"
)

func TestBuildQuery_EmptyFilters_ReturnsNilQuery(t *testing.T) {
	q, err := BuildQuery(model.SearchFilters{})
	require.NoError(t, err)
	assert.Nil(t, q)
}

func TestBuildQuery_SingleDimensionSingleValue(t *testing.T) {
	q, err := BuildQuery(model.SearchFilters{Languages: []string{"go"}})
	require.NoError(t, err)
	require.NotNil(t, q)
}

func TestBuildQuery_MultipleDimensions_Conjoined(t *testing.T) {
	q, err := BuildQuery(model.SearchFilters{
		Languages:   []string{"go", "java"},
		EntityTypes: []string{"function"},
	})
	require.NoError(t, err)
	require.NotNil(t, q)
}

func TestBuildQuery_RejectsEmptyDimensionValues(t *testing.T) {
	_, err := BuildQuery(model.SearchFilters{Languages: []string{}})
	require.Error(t, err)
}

func TestBuildQuery_RejectsBlankValue(t *testing.T) {
	_, err := BuildQuery(model.SearchFilters{Languages: []string{"  "}})
	require.Error(t, err)
}

func TestBuildQuery_CachesByShape(t *testing.T) {
	f := model.SearchFilters{Repositories: []string{"acme/widgets"}}
	q1, err := BuildQuery(f)
	require.NoError(t, err)
	q2, err := BuildQuery(f)
	require.NoError(t, err)
	assert.Same(t, q1, q2)
}

func TestBuildQuery_ShapeIndependentOfValueOrder(t *testing.T) {
	a, err := BuildQuery(model.SearchFilters{Languages: []string{"go", "java"}})
	require.NoError(t, err)
	b, err := BuildQuery(model.SearchFilters{Languages: []string{"java", "go"}})
	require.NoError(t, err)
	assert.Same(t, a, b)
}

func TestWithoutDimension_ClearsOnlyNamedDimension(t *testing.T) {
	f := model.SearchFilters{
		Languages:   []string{"go"},
		Repositories: []string{"acme/widgets"},
	}
	cleared := WithoutDimension(f, FieldLanguage)
	assert.Nil(t, cleared.Languages)
	assert.Equal(t, []string{"acme/widgets"}, cleared.Repositories)
}

func TestValidate_AcceptsEmptyFilters(t *testing.T) {
	require.NoError(t, Validate(model.SearchFilters{}))
}
