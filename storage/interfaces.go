package storage

import "listing-fraud-detector/models"

// VerdictWriter is the interface any verdict storage backend must satisfy.
type VerdictWriter interface {
	Write(records []*models.VerdictRecord) error
	FetchRecent(limit int) ([]*models.VerdictRecord, error)
	Close() error
}

// RawListingWriter is the interface for persisting unprocessed listing data.
type RawListingWriter interface {
	WriteRaw(listings []*models.RawListing) error
	Close() error
}
