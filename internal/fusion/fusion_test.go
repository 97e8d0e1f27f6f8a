package fusion

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/aman-labs/coderetrieval/internal/model"
)

func kw(score float64) *NormalizedKeywordHit {
	return &NormalizedKeywordHit{Score: score}
}

func TestNormalize_EmptyInput_ReturnsEmpty(t *testing.T) {
	out := Normalize([]*NormalizedKeywordHit{})
	assert.Empty(t, out)
}

func TestNormalize_SingleItem_ScoresOne(t *testing.T) {
	items := []*NormalizedKeywordHit{kw(3.7)}
	out := Normalize(items)
	assert.Equal(t, 1.0, out[0].Score)
}

func TestNormalize_AllEqual_ScoresOne(t *testing.T) {
	items := []*NormalizedKeywordHit{kw(5), kw(5), kw(5)}
	out := Normalize(items)
	for _, it := range out {
		assert.Equal(t, 1.0, it.Score)
	}
}

func TestNormalize_MinMaxScaling(t *testing.T) {
	items := []*NormalizedKeywordHit{kw(0), kw(5), kw(10)}
	out := Normalize(items)
	assert.Equal(t, 0.0, out[0].Score)
	assert.Equal(t, 0.5, out[1].Score)
	assert.Equal(t, 1.0, out[2].Score)
}

func TestNormalize_PreservesOrder(t *testing.T) {
	items := []*NormalizedKeywordHit{kw(10), kw(0), kw(5)}
	out := Normalize(items)
	assert.Equal(t, 1.0, out[0].Score)
	assert.Equal(t, 0.0, out[1].Score)
	assert.Equal(t, 0.5, out[2].Score)
}

func TestNormalize_IdempotentOnAlreadyNormalized(t *testing.T) {
	items := []*NormalizedKeywordHit{kw(0), kw(0.5), kw(1)}
	first := Normalize(items)
	scoresBefore := []float64{first[0].Score, first[1].Score, first[2].Score}
	second := Normalize(first)
	assert.InDeltaSlice(t, scoresBefore, []float64{second[0].Score, second[1].Score, second[2].Score}, 1e-9)
}

func TestCombine_WeightedLinearCombination(t *testing.T) {
	w := model.Weights{KeywordWeight: 0.6, VectorWeight: 0.4}
	got := Combine(1.0, 0.5, w)
	assert.InDelta(t, 0.8, got, 1e-9)
}

func TestCombine_ZeroWeightsYieldZero(t *testing.T) {
	w := model.Weights{KeywordWeight: 0, VectorWeight: 0}
	assert.Equal(t, 0.0, Combine(1.0, 1.0, w))
}

func TestCombine_StaysWithinUnitRangeForValidInputs(t *testing.T) {
	w := model.DefaultWeights()
	got := Combine(1.0, 1.0, w)
	assert.InDelta(t, 1.0, got, 1e-9)
	got = Combine(0.0, 0.0, w)
	assert.InDelta(t, 0.0, got, 1e-9)
}
