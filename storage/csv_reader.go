package storage

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"listing-fraud-detector/models"
)

// ImageSeparator joins image references inside a single CSV cell.
const ImageSeparator = "|"

var datasetColumns = []string{
	"title", "description", "price", "seller", "rating",
	"review_count", "category", "country", "images",
}

// ReadDataset reads a listing dataset CSV. The header must name every
// listing column; an "is_fake" column and a "url" column are optional.
func ReadDataset(path string) ([]*models.RawListing, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("csv: open %q: %w", path, err)
	}
	defer f.Close()
	return ParseDataset(f, path)
}

// ParseDataset reads dataset rows from r; source tags each row.
func ParseDataset(r io.Reader, source string) ([]*models.RawListing, error) {
	// Cells are kept verbatim, leading spaces included.
	reader := csv.NewReader(r)

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("csv: read header: %w", err)
	}
	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, col := range datasetColumns {
		if _, ok := idx[col]; !ok {
			return nil, fmt.Errorf("csv: missing column %q", col)
		}
	}

	cell := func(row []string, col string) string {
		i, ok := idx[col]
		if !ok || i >= len(row) {
			return ""
		}
		return row[i]
	}

	now := time.Now()
	var listings []*models.RawListing
	for line := 2; ; line++ {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("csv: line %d: %w", line, err)
		}

		listings = append(listings, &models.RawListing{
			Title:          cell(row, "title"),
			Description:    cell(row, "description"),
			RawPrice:       cell(row, "price"),
			Seller:         cell(row, "seller"),
			RawRating:      cell(row, "rating"),
			RawReviewCount: cell(row, "review_count"),
			Category:       cell(row, "category"),
			Country:        cell(row, "country"),
			Images:         splitImages(cell(row, "images")),
			URL:            cell(row, "url"),
			RawLabel:       cell(row, "is_fake"),
			ScrapedAt:      now,
			Source:         source,
		})
	}
	return listings, nil
}

func splitImages(cell string) []string {
	if strings.TrimSpace(cell) == "" {
		return nil
	}
	return strings.Split(cell, ImageSeparator)
}
