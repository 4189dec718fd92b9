package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"listing-fraud-detector/apperrors"
	"listing-fraud-detector/models"
)

func rawRow(title, price, rating, reviews string) *models.RawListing {
	return &models.RawListing{
		Title:          title,
		RawPrice:       price,
		Seller:         "Acme Direct",
		RawRating:      rating,
		RawReviewCount: reviews,
		Category:       " Electronics ",
		Country:        "us",
		Images:         []string{"a.jpg", " ", "b.jpg"},
		ScrapedAt:      time.Now(),
		Source:         "dataset",
	}
}

func TestParsePrice(t *testing.T) {
	tests := []struct {
		raw  string
		want float64
		ok   bool
	}{
		{"120", 120, true},
		{"$1,299.99", 1299.99, true},
		{"USD 99", 99, true},
		{"฿3,500", 3500, true},
		{"12.345", 12.345, true},
		{"59.999", 59.999, true},
		{"€ 12,500.50", 12500.5, true},
		{"", 0, false},
		{"free", 0, false},
		{"0", 0, false},
		{"0.00", 0, false},
		{"-5", 0, false},
		{"$-5", 0, false},
		{"+5", 0, false},
		{"1.5e3", 0, false},
		{"12abc", 0, false},
		{"4.5.6", 0, false},
		{"1,2,3", 0, false},
		{"12 34", 0, false},
	}
	for _, tt := range tests {
		got, ok := parsePrice(tt.raw)
		assert.Equal(t, tt.ok, ok, "parsePrice(%q)", tt.raw)
		assert.Equal(t, tt.want, got, "parsePrice(%q)", tt.raw)
	}
}

func TestParseRating(t *testing.T) {
	tests := []struct {
		raw  string
		want float64
		ok   bool
	}{
		{"4.85", 4.85, true},
		{"5", 5, true},
		{"3.5 out of 5 stars", 3.5, true},
		{"", 0, true},
		{"6.0", 6, false},
		{"New", 0, false},
		{"NaN", 0, false},
	}
	for _, tt := range tests {
		got, ok := parseRating(tt.raw)
		assert.Equal(t, tt.ok, ok, "parseRating(%q)", tt.raw)
		if tt.ok {
			assert.Equal(t, tt.want, got, "parseRating(%q)", tt.raw)
		}
	}
}

func TestParseCount(t *testing.T) {
	tests := []struct {
		raw  string
		want int
		ok   bool
	}{
		{"12", 12, true},
		{"1,204 ratings", 1204, true},
		{"", 0, true},
		{"-3", 0, false},
		{"many", 0, false},
	}
	for _, tt := range tests {
		got, ok := parseCount(tt.raw)
		assert.Equal(t, tt.ok, ok, "parseCount(%q)", tt.raw)
		assert.Equal(t, tt.want, got, "parseCount(%q)", tt.raw)
	}
}

func TestCleanerParseKeepsTextVerbatim(t *testing.T) {
	c := NewCleaner(newTestLogger(t))

	l, err := c.Parse(rawRow("  Smart   Watch\tPro ", "$249.00", "4.7", "1,020"))
	require.NoError(t, err)

	assert.Equal(t, "  Smart   Watch\tPro ", l.Title)
	assert.Equal(t, 249.0, l.Price)
	assert.Equal(t, 4.7, l.Rating)
	assert.Equal(t, 1020, l.ReviewCount)
	assert.Equal(t, " Electronics ", l.Category)
	assert.Equal(t, "us", l.Country)
	assert.Equal(t, []string{"a.jpg", " ", "b.jpg"}, l.Images)
}

func TestCleanerParseRejectsBadFields(t *testing.T) {
	c := NewCleaner(newTestLogger(t))

	tests := []struct {
		name  string
		row   *models.RawListing
		field string
	}{
		{"price", rawRow("Watch", "abc", "4", "1"), "price"},
		{"rating", rawRow("Watch", "10", "7.5", "1"), "rating"},
		{"reviews", rawRow("Watch", "10", "4", "-1"), "review_count"},
		{"title", rawRow("", "10", "4", "1"), "title"},
		{"signed price", rawRow("Watch", "$-10", "4", "1"), "price"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.Parse(tt.row)
			require.Error(t, err)
			assert.True(t, apperrors.IsValidation(err))
			var appErr *apperrors.AppError
			require.ErrorAs(t, err, &appErr)
			assert.Equal(t, tt.field, appErr.Field)
		})
	}
}

func TestCleanerDropsInvalidRows(t *testing.T) {
	c := NewCleaner(newTestLogger(t))
	fake := rawRow("Replica watch", "15", "5", "2")
	fake.RawLabel = "1"
	badLabel := rawRow("Watch", "150", "4", "10")
	badLabel.RawLabel = "maybe"

	cleaned := c.Clean([]*models.RawListing{
		rawRow("Watch", "", "4", "10"),
		fake,
		badLabel,
		rawRow("Plain watch", "150", "4", "10"),
	})

	require.Len(t, cleaned, 2)
	require.NotNil(t, cleaned[0].IsFake)
	assert.True(t, *cleaned[0].IsFake)
	assert.Nil(t, cleaned[1].IsFake)
}

func TestCleanerDeduplicatesURL(t *testing.T) {
	c := NewCleaner(newTestLogger(t))
	a := rawRow("A", "10", "4", "1")
	a.URL = "https://shop.example/p/1"
	b := rawRow("B", "10", "4", "1")
	b.URL = "https://shop.example/p/1"
	noURL1 := rawRow("C", "10", "4", "1")
	noURL2 := rawRow("D", "10", "4", "1")

	cleaned := c.Clean([]*models.RawListing{a, b, noURL1, noURL2})
	assert.Len(t, cleaned, 3)
}

func TestCleanerValidateTypedListing(t *testing.T) {
	c := NewCleaner(newTestLogger(t))
	l := baseListing()
	require.NoError(t, c.Validate(l))

	l.Price = 0
	err := c.Validate(l)
	assert.True(t, apperrors.IsValidation(err))
}
