package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"listing-fraud-detector/apperrors"
	"listing-fraud-detector/config"
	"listing-fraud-detector/models"
	"listing-fraud-detector/services"
	"listing-fraud-detector/utils"
)

func TestLoadClassifierFallsBackToMock(t *testing.T) {
	cfg := &config.Config{MockSeed: 7, ModelVersion: "v0.1"}

	clf, loaded, err := loadClassifier(cfg, filepath.Join(t.TempDir(), "absent.json"), utils.NewNopLogger())
	require.NoError(t, err)
	assert.False(t, loaded)
	assert.IsType(t, &services.MockClassifier{}, clf)
	assert.Equal(t, "v0.1", clf.Version())
}

func TestLoadClassifierRejectsBrokenArtifact(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"version": "x", "feature_names": ["a"]}`), 0o644))

	_, _, err := loadClassifier(&config.Config{}, path, utils.NewNopLogger())
	require.Error(t, err)
	assert.True(t, apperrors.IsConfiguration(err))
}

func TestAppendTextFeatures(t *testing.T) {
	listings := []*models.Listing{
		{Title: "cheap phone case", Description: "brand new case"},
		{Title: "phone charger", Description: ""},
	}
	matrix := [][]float64{{1}, {2}}

	columns, out, err := appendTextFeatures([]string{"f"}, matrix, listings, 10)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"f",
		"title_tfidf_case", "title_tfidf_charger", "title_tfidf_cheap", "title_tfidf_phone",
		"description_tfidf_brand", "description_tfidf_case", "description_tfidf_new",
	}, columns)
	for _, row := range out {
		assert.Len(t, row, len(columns))
	}
	assert.Equal(t, 1.0, out[0][0])
	assert.Equal(t, []float64{0, 0, 0}, out[1][5:])
}

func TestSplit(t *testing.T) {
	fake := true
	labeled := []*models.LabeledListing{
		{Listing: &models.Listing{Title: "a"}, IsFake: &fake},
		{Listing: &models.Listing{Title: "b"}},
	}

	listings, labels := split(labeled)
	require.Len(t, listings, 2)
	assert.Equal(t, "b", listings[1].Title)
	assert.Same(t, &fake, labels[0])
	assert.Nil(t, labels[1])
}
