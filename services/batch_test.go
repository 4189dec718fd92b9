package services

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"listing-fraud-detector/apperrors"
	"listing-fraud-detector/models"
)

func TestExtractBatchMatchesSingleExtraction(t *testing.T) {
	e := newTestExtractor(t)

	listings := make([]*models.Listing, 50)
	for i := range listings {
		l := baseListing()
		l.Price = float64(10 + i*37)
		l.ReviewCount = i
		l.Title = fmt.Sprintf("Listing %d FREE!!", i)
		if i%3 == 0 {
			l.Images = nil
			l.Description = ""
		}
		listings[i] = l
	}

	batch, err := e.ExtractBatch(listings, 4)
	require.NoError(t, err)
	require.Len(t, batch, len(listings))

	for i, l := range listings {
		single, err := e.Extract(l)
		require.NoError(t, err)
		assert.Equal(t, single, batch[i], "row %d", i)
		assert.Equal(t, FeatureNames, batch[i].Names(), "row %d", i)
	}
}

func TestExtractBatchSingleRowParity(t *testing.T) {
	e := newTestExtractor(t)
	l := baseListing()

	batch, err := e.ExtractBatch([]*models.Listing{l}, 0)
	require.NoError(t, err)
	single, err := e.Extract(l)
	require.NoError(t, err)

	assert.Equal(t, single, batch[0])
}

func TestExtractBatchReportsFailingRow(t *testing.T) {
	e := newTestExtractor(t)

	_, err := e.ExtractBatch([]*models.Listing{baseListing(), nil, baseListing()}, 2)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "row 1")
	assert.True(t, apperrors.IsInputShape(err))
}

func TestExtractBatchEmpty(t *testing.T) {
	e := newTestExtractor(t)
	out, err := e.ExtractBatch(nil, 2)
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestMatrixUsesCanonicalColumnOrder(t *testing.T) {
	rows := Matrix([]models.FeatureVector{{"b": 2, "a": 1, "c": 3}})
	assert.Equal(t, [][]float64{{1, 2, 3}}, rows)
}
