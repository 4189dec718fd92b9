package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"listing-fraud-detector/models"
)

func TestLabelBoundaries(t *testing.T) {
	tests := []struct {
		score float64
		want  models.Label
	}{
		{0, models.LabelSafe},
		{0.3999, models.LabelSafe},
		{0.4, models.LabelSuspicious},
		{0.6999, models.LabelSuspicious},
		{0.7, models.LabelHighRisk},
		{1, models.LabelHighRisk},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Label(tt.score), "score %v", tt.score)
	}
}

func TestExplainRanksByContribution(t *testing.T) {
	fv := models.FeatureVector{"a": 1, "b": 0.5, "c": 0.2, "d": 0.9, "e": 0.1, "f": 0.8, "g": 0}
	importances := map[string]float64{"a": 0.1, "b": 1, "c": 1, "d": 0.5, "e": 1, "f": 0.5, "g": 1}

	v := Explain(0.55, fv, importances)

	assert.Equal(t, models.LabelSuspicious, v.Label)
	assert.Equal(t, 0.55, v.Score)
	require.Len(t, v.Explanation, 5)
	names := make([]string, len(v.Explanation))
	for i, c := range v.Explanation {
		names[i] = c.Feature
	}
	assert.Equal(t, []string{"b", "d", "f", "c", "a"}, names)
	assert.InDelta(t, 0.45, v.Explanation[1].Contribution, 1e-9)
}

func TestExplainBreaksTiesByName(t *testing.T) {
	fv := models.FeatureVector{"zeta": 1, "alpha": 1, "mid": 1}
	v := Explain(0.9, fv, map[string]float64{"zeta": 0.5, "alpha": 0.5, "mid": 0.5})

	require.Len(t, v.Explanation, 3)
	assert.Equal(t, "alpha", v.Explanation[0].Feature)
	assert.Equal(t, "mid", v.Explanation[1].Feature)
	assert.Equal(t, "zeta", v.Explanation[2].Feature)
}

func TestExplainOnlyUsesMappedFeatures(t *testing.T) {
	fv := models.FeatureVector{"a": 1, "b": 1}
	v := Explain(0.1, fv, map[string]float64{"a": 0.3, "missing": 1})

	require.Len(t, v.Explanation, 1)
	assert.Equal(t, "a", v.Explanation[0].Feature)
}

func TestExplainClampsContributions(t *testing.T) {
	fv := models.FeatureVector{"big": 1, "neg": 1}
	v := Explain(0.8, fv, map[string]float64{"big": 3, "neg": -2})

	require.Len(t, v.Explanation, 2)
	assert.Equal(t, models.Contribution{Feature: "big", Contribution: 1}, v.Explanation[0])
	assert.Equal(t, models.Contribution{Feature: "neg", Contribution: 0}, v.Explanation[1])
}

func TestExplainDefaultsToUniformImportance(t *testing.T) {
	e := newTestExtractor(t)
	fv, err := e.Extract(baseListing())
	require.NoError(t, err)

	v := Explain(0.2, fv, nil)

	require.Len(t, v.Explanation, 5)
	w := 1 / float64(len(FeatureNames))
	// rating_normalized (0.9) is the largest feature of the base listing.
	assert.Equal(t, FeatRatingNormalized, v.Explanation[0].Feature)
	assert.InDelta(t, 0.9*w, v.Explanation[0].Contribution, 1e-12)
	for i := 1; i < len(v.Explanation); i++ {
		assert.GreaterOrEqual(t, v.Explanation[i-1].Contribution, v.Explanation[i].Contribution)
	}
}

func TestUniformImportances(t *testing.T) {
	w := UniformImportances(models.FeatureVector{"a": 0, "b": 0, "c": 0, "d": 0})
	assert.Equal(t, map[string]float64{"a": 0.25, "b": 0.25, "c": 0.25, "d": 0.25}, w)
	assert.Empty(t, UniformImportances(nil))
}
