package services

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"listing-fraud-detector/models"
	"listing-fraud-detector/policy"
	"listing-fraud-detector/utils"
)

func newTestLogger(t *testing.T) *utils.Logger {
	return utils.NewLoggerFrom(zaptest.NewLogger(t))
}

func newTestExtractor(t *testing.T) *Extractor {
	t.Helper()
	e, err := NewExtractor(policy.Default())
	require.NoError(t, err)
	return e
}

func baseListing() *models.Listing {
	return &models.Listing{
		Title:       "Wireless Noise Cancelling Headphones",
		Description: "Over-ear headphones with 30 hour battery life.",
		Price:       350,
		Seller:      "AudioHouse",
		Rating:      4.5,
		ReviewCount: 4500,
		Category:    "electronics",
		Country:     "US",
		Images:      []string{"a.jpg", "b.jpg", "c.jpg"},
	}
}
