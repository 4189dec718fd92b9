package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"listing-fraud-detector/apperrors"
	"listing-fraud-detector/models"
)

// verdictRow is the gorm model behind the sqlite verdicts table.
type verdictRow struct {
	ID           string `gorm:"primaryKey;size:36"`
	Title        string `gorm:"not null"`
	Seller       string
	Category     string `gorm:"index;size:64"`
	Country      string `gorm:"size:8"`
	Price        float64
	Score        float64   `gorm:"not null"`
	Label        string    `gorm:"index;size:16;not null"`
	Explanation  string    `gorm:"type:text"`
	ModelVersion string    `gorm:"size:64"`
	CreatedAt    time.Time `gorm:"index"`
}

func (verdictRow) TableName() string { return "verdicts" }

// SQLiteStore persists verdicts to a local SQLite file through gorm.
type SQLiteStore struct {
	db *gorm.DB
}

// NewSQLiteStore opens (creating if needed) the database at path and
// migrates the verdicts table.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("sqlite: create dir: %w", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, apperrors.NewStorageError("DB_OPEN_FAILED", "open sqlite database").WithCause(err)
	}

	if err := db.AutoMigrate(&verdictRow{}); err != nil {
		return nil, fmt.Errorf("sqlite: migrate: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Write(records []*models.VerdictRecord) error {
	if len(records) == 0 {
		return nil
	}

	rows := make([]verdictRow, 0, len(records))
	for _, r := range records {
		explanation, err := json.Marshal(r.Explanation)
		if err != nil {
			return fmt.Errorf("sqlite: encode explanation: %w", err)
		}
		rows = append(rows, verdictRow{
			ID:           r.ID.String(),
			Title:        r.Title,
			Seller:       r.Seller,
			Category:     r.Category,
			Country:      r.Country,
			Price:        r.Price,
			Score:        r.Score,
			Label:        string(r.Label),
			Explanation:  string(explanation),
			ModelVersion: r.ModelVersion,
			CreatedAt:    r.CreatedAt,
		})
	}

	err := s.db.Clauses(clause.OnConflict{DoNothing: true}).CreateInBatches(rows, insertBatchSize).Error
	if err != nil {
		return apperrors.NewStorageError("WRITE_FAILED", "insert verdicts").WithCause(err)
	}
	return nil
}

// FetchRecent returns the newest verdicts first.
func (s *SQLiteStore) FetchRecent(limit int) ([]*models.VerdictRecord, error) {
	var rows []verdictRow
	if err := s.db.Order("created_at desc").Limit(limit).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("sqlite: fetch recent: %w", err)
	}

	records := make([]*models.VerdictRecord, 0, len(rows))
	for _, row := range rows {
		r := &models.VerdictRecord{
			Title:        row.Title,
			Seller:       row.Seller,
			Category:     row.Category,
			Country:      row.Country,
			Price:        row.Price,
			Score:        row.Score,
			ModelVersion: row.ModelVersion,
			CreatedAt:    row.CreatedAt,
		}
		if err := decodeRecord(r, row.ID, row.Label, []byte(row.Explanation)); err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, nil
}

func (s *SQLiteStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
