package storage

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"listing-fraud-detector/models"
)

// csvFile is a header-first CSV file that is safe for concurrent writers.
type csvFile struct {
	mu     sync.Mutex
	file   *os.File
	writer *csv.Writer
}

// createCSV creates (or truncates) the file at path and writes the header
// row. Intermediate directories are created automatically.
func createCSV(path string, header []string) (*csvFile, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("csv: create output dir: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("csv: create file %q: %w", path, err)
	}

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("csv: write header: %w", err)
	}
	w.Flush()

	return &csvFile{file: f, writer: w}, nil
}

func (c *csvFile) writeRows(rows [][]string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, row := range rows {
		if err := c.writer.Write(row); err != nil {
			return fmt.Errorf("csv: write row: %w", err)
		}
	}
	c.writer.Flush()
	return c.writer.Error()
}

// Close flushes and closes the underlying file.
func (c *csvFile) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.writer.Flush()
	return c.file.Close()
}

// CSVWriter writes raw (uncleaned) listings in the dataset layout, so its
// output can be fed back to ReadDataset.
type CSVWriter struct {
	*csvFile
}

func NewCSVWriter(path string) (*CSVWriter, error) {
	header := append(append([]string{}, datasetColumns...), "url", "source", "scraped_at")
	f, err := createCSV(path, header)
	if err != nil {
		return nil, err
	}
	return &CSVWriter{f}, nil
}

func (c *CSVWriter) WriteRaw(listings []*models.RawListing) error {
	rows := make([][]string, 0, len(listings))
	for _, l := range listings {
		rows = append(rows, []string{
			l.Title,
			l.Description,
			l.RawPrice,
			l.Seller,
			l.RawRating,
			l.RawReviewCount,
			l.Category,
			l.Country,
			strings.Join(l.Images, ImageSeparator),
			l.URL,
			l.Source,
			l.ScrapedAt.Format(time.RFC3339),
		})
	}
	return c.writeRows(rows)
}

// MatrixWriter writes a training matrix: one column per feature in the
// given order, optional extra columns, then the label.
type MatrixWriter struct {
	*csvFile
	columns int
}

func NewMatrixWriter(path string, columns []string) (*MatrixWriter, error) {
	header := append(append([]string{}, columns...), "is_fake")
	f, err := createCSV(path, header)
	if err != nil {
		return nil, err
	}
	return &MatrixWriter{csvFile: f, columns: len(columns)}, nil
}

// WriteRows writes value rows with their labels. A nil label is written
// as an empty cell.
func (m *MatrixWriter) WriteRows(values [][]float64, labels []*bool) error {
	if len(values) != len(labels) {
		return fmt.Errorf("csv: %d rows but %d labels", len(values), len(labels))
	}

	rows := make([][]string, len(values))
	for i, vals := range values {
		if len(vals) != m.columns {
			return fmt.Errorf("csv: row %d has %d values, want %d", i, len(vals), m.columns)
		}
		row := make([]string, 0, len(vals)+1)
		for _, v := range vals {
			row = append(row, strconv.FormatFloat(v, 'g', -1, 64))
		}
		rows[i] = append(row, formatLabel(labels[i]))
	}
	return m.writeRows(rows)
}

// VerdictCSVWriter writes scored listings.
type VerdictCSVWriter struct {
	*csvFile
}

func NewVerdictCSVWriter(path string) (*VerdictCSVWriter, error) {
	f, err := createCSV(path, []string{
		"id", "title", "seller", "category", "country", "price",
		"score", "label", "top_features", "model_version", "created_at",
	})
	if err != nil {
		return nil, err
	}
	return &VerdictCSVWriter{f}, nil
}

func (v *VerdictCSVWriter) Write(records []*models.VerdictRecord) error {
	rows := make([][]string, 0, len(records))
	for _, r := range records {
		features := make([]string, len(r.Explanation))
		for i, c := range r.Explanation {
			features[i] = fmt.Sprintf("%s=%.4f", c.Feature, c.Contribution)
		}
		rows = append(rows, []string{
			r.ID.String(),
			r.Title,
			r.Seller,
			r.Category,
			r.Country,
			strconv.FormatFloat(r.Price, 'f', 2, 64),
			strconv.FormatFloat(r.Score, 'f', 4, 64),
			string(r.Label),
			strings.Join(features, ";"),
			r.ModelVersion,
			r.CreatedAt.Format(time.RFC3339),
		})
	}
	return v.writeRows(rows)
}

func formatLabel(b *bool) string {
	switch {
	case b == nil:
		return ""
	case *b:
		return "1"
	default:
		return "0"
	}
}
