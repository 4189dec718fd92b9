package services

import (
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"

	"listing-fraud-detector/models"
)

// ExtractBatch runs Extract over every listing on up to workers goroutines.
// Row i of the result is the vector of listings[i]. The first failing row
// aborts the batch with its index in the error.
func (e *Extractor) ExtractBatch(listings []*models.Listing, workers int) ([]models.FeatureVector, error) {
	if workers < 1 {
		workers = runtime.GOMAXPROCS(0)
	}

	out := make([]models.FeatureVector, len(listings))
	var g errgroup.Group
	g.SetLimit(workers)

	for i, l := range listings {
		i, l := i, l
		g.Go(func() error {
			fv, err := e.Extract(l)
			if err != nil {
				return fmt.Errorf("row %d: %w", i, err)
			}
			out[i] = fv
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// Matrix lays vectors out as rows in canonical column order.
func Matrix(vectors []models.FeatureVector) [][]float64 {
	rows := make([][]float64, len(vectors))
	for i, fv := range vectors {
		rows[i] = fv.Values()
	}
	return rows
}
