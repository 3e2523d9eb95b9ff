package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"autoria-scraper/models"
)

// ErrUnsupportedDatabase is returned for a DATABASE_URL no backend understands.
var ErrUnsupportedDatabase = errors.New("unsupported database url")

// dialect carries the SQL that differs between backends.
type dialect struct {
	name      string
	schema    string
	insert    string
	selectAll string
	count     string
}

var (
	_ ListingStore  = (*SQLStore)(nil)
	_ ListingReader = (*SQLStore)(nil)
)

// SQLStore persists listings in the cars table of a relational database.
type SQLStore struct {
	db      *sql.DB
	dialect dialect
}

// Open picks a backend from the URL scheme: postgres:// and postgresql://
// use PostgreSQL, sqlite:// and file: use SQLite.
func Open(ctx context.Context, databaseURL string) (*SQLStore, error) {
	switch {
	case strings.HasPrefix(databaseURL, "postgres://"), strings.HasPrefix(databaseURL, "postgresql://"):
		return NewPostgresStore(ctx, databaseURL)
	case strings.HasPrefix(databaseURL, "sqlite://"):
		return NewSQLiteStore(strings.TrimPrefix(databaseURL, "sqlite://"))
	case strings.HasPrefix(databaseURL, "file:"):
		return NewSQLiteStore(databaseURL)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedDatabase, redact(databaseURL))
	}
}

// Driver names the backend ("postgres" or "sqlite").
func (s *SQLStore) Driver() string {
	return s.dialect.name
}

// Migrate creates the cars table and its indexes if they do not exist.
func (s *SQLStore) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, s.dialect.schema); err != nil {
		return fmt.Errorf("%s: migrate: %w", s.dialect.name, err)
	}
	return nil
}

// InsertIfAbsent inserts r in one statement; a URL conflict leaves the
// existing row untouched and reports false.
func (s *SQLStore) InsertIfAbsent(ctx context.Context, r *models.ListingRecord) (bool, error) {
	if err := r.Validate(); err != nil {
		return false, fmt.Errorf("%s: insert: %w", s.dialect.name, err)
	}

	res, err := s.db.ExecContext(ctx, s.dialect.insert,
		r.URL, r.Title, r.PriceUSD, r.OdometerKm, r.SellerName, r.PhoneDigits,
		r.ImageURL, r.ImageCount, r.PlateNumber, r.VIN, r.DiscoveredAt.UTC(),
	)
	if err != nil {
		return false, fmt.Errorf("%s: insert %q: %w", s.dialect.name, r.URL, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%s: rows affected: %w", s.dialect.name, err)
	}
	return n == 1, nil
}

// FetchAll retrieves all stored listings ordered by id.
func (s *SQLStore) FetchAll(ctx context.Context) ([]*models.ListingRecord, error) {
	rows, err := s.db.QueryContext(ctx, s.dialect.selectAll)
	if err != nil {
		return nil, fmt.Errorf("%s: fetch all: %w", s.dialect.name, err)
	}
	defer rows.Close()

	var listings []*models.ListingRecord
	for rows.Next() {
		l := &models.ListingRecord{}
		if err := rows.Scan(
			&l.ID, &l.URL, &l.Title, &l.PriceUSD, &l.OdometerKm, &l.SellerName,
			&l.PhoneDigits, &l.ImageURL, &l.ImageCount, &l.PlateNumber, &l.VIN, &l.DiscoveredAt,
		); err != nil {
			return nil, fmt.Errorf("%s: scan row: %w", s.dialect.name, err)
		}
		listings = append(listings, l)
	}
	return listings, rows.Err()
}

// Count returns the number of stored listings.
func (s *SQLStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, s.dialect.count).Scan(&n); err != nil {
		return 0, fmt.Errorf("%s: count: %w", s.dialect.name, err)
	}
	return n, nil
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}

// redact hides the password part of a connection URL for log output.
func redact(databaseURL string) string {
	at := strings.LastIndex(databaseURL, "@")
	scheme := strings.Index(databaseURL, "://")
	if at < 0 || scheme < 0 || at < scheme {
		return databaseURL
	}
	creds := databaseURL[scheme+3 : at]
	if colon := strings.Index(creds, ":"); colon >= 0 {
		creds = creds[:colon] + ":***"
	}
	return databaseURL[:scheme+3] + creds + databaseURL[at:]
}
