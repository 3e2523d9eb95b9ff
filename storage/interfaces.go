package storage

import (
	"context"

	"autoria-scraper/models"
)

// ListingStore is the dedup-on-write contract the crawl pipeline depends on.
type ListingStore interface {
	// InsertIfAbsent stores r unless a record with the same URL exists.
	// It reports whether a row was inserted. Existing rows are never updated.
	InsertIfAbsent(ctx context.Context, r *models.ListingRecord) (bool, error)
	Close() error
}

// ListingReader exposes stored listings to the export and insight jobs.
type ListingReader interface {
	FetchAll(ctx context.Context) ([]*models.ListingRecord, error)
	Count(ctx context.Context) (int, error)
}

// ListingRowWriter is the interface for writing listings to a flat file.
type ListingRowWriter interface {
	WriteRecords(listings []*models.ListingRecord) error
	Close() error
}
