package storage

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"listing-fraud-detector/models"
)

const sampleDataset = `title,description,price,seller,rating,review_count,category,country,images,is_fake
"Apple iPhone 14, 128GB",Brand new sealed,799.00,Apple Official Store,4.8,5120,electronics,US,a.jpg|b.jpg|c.jpg,0
REPLICA Rolex!!! cheap,,49.99,watch_mall88,5.0,3,watches,CN,,1
  Pro  Case," Brand new	sealed",12.50,shop,4.1,7,electronics,US,,
`

func readAll(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return rows
}

func TestParseDataset(t *testing.T) {
	rows, err := ParseDataset(strings.NewReader(sampleDataset), "sample")
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, "Apple iPhone 14, 128GB", rows[0].Title)
	assert.Equal(t, "799.00", rows[0].RawPrice)
	assert.Equal(t, []string{"a.jpg", "b.jpg", "c.jpg"}, rows[0].Images)
	assert.Equal(t, "0", rows[0].RawLabel)
	assert.Equal(t, "sample", rows[0].Source)

	assert.Equal(t, " Brand new\tsealed", rows[2].Description)
	assert.Equal(t, "  Pro  Case", rows[2].Title)

	assert.Empty(t, rows[1].Description)
	assert.Nil(t, rows[1].Images)
	assert.Equal(t, "1", rows[1].RawLabel)
}

func TestParseDatasetRequiresColumns(t *testing.T) {
	_, err := ParseDataset(strings.NewReader("title,price\nx,1\n"), "bad")
	assert.ErrorContains(t, err, `missing column "description"`)
}

func TestReadDatasetMissingFile(t *testing.T) {
	_, err := ReadDataset(filepath.Join(t.TempDir(), "none.csv"))
	assert.Error(t, err)
}

func TestCSVWriterRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "raw.csv")
	w, err := NewCSVWriter(path)
	require.NoError(t, err)

	raw := []*models.RawListing{{
		Title:          "Leather Wallet",
		RawPrice:       "$35",
		Seller:         "Crafts Direct",
		RawRating:      "4.6",
		RawReviewCount: "210 ratings",
		Category:       "clothing",
		Country:        "GB",
		Images:         []string{"https://img/1.jpg", "https://img/2.jpg"},
		URL:            "https://shop.example/p/9",
		ScrapedAt:      time.Now(),
		Source:         "shop.example",
	}}
	require.NoError(t, w.WriteRaw(raw))
	require.NoError(t, w.Close())

	back, err := ReadDataset(path)
	require.NoError(t, err)
	require.Len(t, back, 1)
	assert.Equal(t, raw[0].Title, back[0].Title)
	assert.Equal(t, raw[0].Images, back[0].Images)
	assert.Equal(t, raw[0].URL, back[0].URL)
	assert.Empty(t, back[0].RawLabel)
}

func TestMatrixWriter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "matrix.csv")
	w, err := NewMatrixWriter(path, []string{"a", "b"})
	require.NoError(t, err)

	yes, no := true, false
	require.NoError(t, w.WriteRows([][]float64{{0.5, 1}, {0, 0.25}, {1, 1}}, []*bool{&yes, &no, nil}))
	assert.Error(t, w.WriteRows([][]float64{{1}}, []*bool{nil}))
	assert.Error(t, w.WriteRows([][]float64{{1, 2}}, nil))
	require.NoError(t, w.Close())

	assert.Equal(t, [][]string{
		{"a", "b", "is_fake"},
		{"0.5", "1", "1"},
		{"0", "0.25", "0"},
		{"1", "1", ""},
	}, readAll(t, path))
}

func TestVerdictCSVWriter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "verdicts.csv")
	w, err := NewVerdictCSVWriter(path)
	require.NoError(t, err)

	id := uuid.New()
	require.NoError(t, w.Write([]*models.VerdictRecord{{
		ID:           id,
		Title:        "Replica watch",
		Price:        49.5,
		Score:        0.91234,
		Label:        models.LabelHighRisk,
		Explanation:  []models.Contribution{{Feature: "no_images", Contribution: 0.5}, {Feature: "zero_reviews", Contribution: 0.25}},
		ModelVersion: "v0.1",
		CreatedAt:    time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}}))
	require.NoError(t, w.Close())

	rows := readAll(t, path)
	require.Len(t, rows, 2)
	assert.Equal(t, id.String(), rows[1][0])
	assert.Equal(t, "49.50", rows[1][5])
	assert.Equal(t, "0.9123", rows[1][6])
	assert.Equal(t, "high_risk", rows[1][7])
	assert.Equal(t, "no_images=0.5000;zero_reviews=0.2500", rows[1][8])
	assert.Equal(t, "2024-05-01T12:00:00Z", rows[1][10])
}
