package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"

	"listing-fraud-detector/apperrors"
	"listing-fraud-detector/models"
	"listing-fraud-detector/utils"
)

const (
	insertBatchSize = 50
	verdictColumns  = 11
)

// PostgresWriter persists verdicts to PostgreSQL.
type PostgresWriter struct {
	db *sql.DB
}

// NewPostgresWriter opens a connection to PostgreSQL, waits for it to accept
// pings, runs schema migrations, and returns a ready-to-use PostgresWriter.
func NewPostgresWriter(ctx context.Context, dsn string, retry *utils.RetryConfig) (*PostgresWriter, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}

	if err := retry.Do(ctx, "postgres-ping", func() error { return db.PingContext(ctx) }); err != nil {
		_ = db.Close()
		return nil, apperrors.NewStorageError("DB_UNREACHABLE", "postgres did not answer").WithCause(err)
	}

	pw := &PostgresWriter{db: db}
	if err := pw.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: migrate: %w", err)
	}
	return pw, nil
}

func (pw *PostgresWriter) migrate() error {
	_, err := pw.db.Exec(`
		CREATE TABLE IF NOT EXISTS verdicts (
			id            UUID          PRIMARY KEY,
			title         TEXT          NOT NULL,
			seller        TEXT          NOT NULL DEFAULT '',
			category      VARCHAR(64)   NOT NULL DEFAULT '',
			country       VARCHAR(8)    NOT NULL DEFAULT '',
			price         NUMERIC(12,2) NOT NULL DEFAULT 0,
			score         NUMERIC(6,5)  NOT NULL,
			label         VARCHAR(16)   NOT NULL,
			explanation   JSONB         NOT NULL DEFAULT '[]',
			model_version VARCHAR(64)   NOT NULL DEFAULT '',
			created_at    TIMESTAMPTZ   NOT NULL DEFAULT NOW()
		);

		CREATE INDEX IF NOT EXISTS idx_verdicts_label      ON verdicts(label);
		CREATE INDEX IF NOT EXISTS idx_verdicts_category   ON verdicts(category);
		CREATE INDEX IF NOT EXISTS idx_verdicts_created_at ON verdicts(created_at DESC);
	`)
	return err
}

// Write batch-inserts verdicts. Records already stored are left untouched.
func (pw *PostgresWriter) Write(records []*models.VerdictRecord) error {
	for i := 0; i < len(records); i += insertBatchSize {
		end := min(i+insertBatchSize, len(records))
		if err := pw.insertBatch(records[i:end]); err != nil {
			return apperrors.NewStorageError("WRITE_FAILED", "insert verdicts").WithCause(err)
		}
	}
	return nil
}

func (pw *PostgresWriter) insertBatch(batch []*models.VerdictRecord) error {
	valueStrings := make([]string, 0, len(batch))
	valueArgs := make([]any, 0, len(batch)*verdictColumns)

	for idx, r := range batch {
		explanation, err := json.Marshal(r.Explanation)
		if err != nil {
			return fmt.Errorf("postgres: encode explanation: %w", err)
		}

		placeholders := make([]string, verdictColumns)
		for c := range placeholders {
			placeholders[c] = fmt.Sprintf("$%d", idx*verdictColumns+c+1)
		}
		valueStrings = append(valueStrings, "("+strings.Join(placeholders, ",")+")")
		valueArgs = append(valueArgs,
			r.ID.String(), r.Title, r.Seller, r.Category, r.Country, r.Price,
			r.Score, string(r.Label), string(explanation), r.ModelVersion, r.CreatedAt)
	}

	query := fmt.Sprintf(`
		INSERT INTO verdicts (id, title, seller, category, country, price,
			score, label, explanation, model_version, created_at)
		VALUES %s
		ON CONFLICT (id) DO NOTHING
	`, strings.Join(valueStrings, ","))

	_, err := pw.db.Exec(query, valueArgs...)
	return err
}

// FetchRecent returns the newest verdicts first.
func (pw *PostgresWriter) FetchRecent(limit int) ([]*models.VerdictRecord, error) {
	rows, err := pw.db.Query(`
		SELECT id, title, seller, category, country, price, score, label,
		       explanation, model_version, created_at
		FROM verdicts
		ORDER BY created_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: fetch recent: %w", err)
	}
	defer rows.Close()

	var records []*models.VerdictRecord
	for rows.Next() {
		r := &models.VerdictRecord{}
		var id, label string
		var explanation []byte
		if err := rows.Scan(
			&id, &r.Title, &r.Seller, &r.Category, &r.Country, &r.Price,
			&r.Score, &label, &explanation, &r.ModelVersion, &r.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("postgres: scan row: %w", err)
		}
		if err := decodeRecord(r, id, label, explanation); err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

func (pw *PostgresWriter) Close() error {
	return pw.db.Close()
}

// Ping reports whether the database is reachable.
func (pw *PostgresWriter) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return pw.db.PingContext(ctx)
}
