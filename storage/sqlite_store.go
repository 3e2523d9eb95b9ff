package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"
)

var sqliteDialect = dialect{
	name: "sqlite",
	schema: `
		CREATE TABLE IF NOT EXISTS cars (
			id             INTEGER  PRIMARY KEY AUTOINCREMENT,
			url            TEXT     UNIQUE NOT NULL,
			title          TEXT     NOT NULL,
			price_usd      INTEGER  NOT NULL DEFAULT 0,
			odometer       INTEGER  NOT NULL DEFAULT 0,
			username       TEXT     NOT NULL DEFAULT '',
			phone_number   TEXT     NOT NULL DEFAULT '',
			image_url      TEXT     NOT NULL DEFAULT '',
			images_count   INTEGER  NOT NULL DEFAULT 0,
			car_number     TEXT     NOT NULL DEFAULT '',
			car_vin        TEXT     NOT NULL DEFAULT '',
			datetime_found DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);

		CREATE INDEX IF NOT EXISTS idx_cars_price_usd      ON cars(price_usd);
		CREATE INDEX IF NOT EXISTS idx_cars_datetime_found ON cars(datetime_found);
	`,
	insert: `
		INSERT INTO cars (url, title, price_usd, odometer, username, phone_number,
			image_url, images_count, car_number, car_vin, datetime_found)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (url) DO NOTHING
	`,
	selectAll: `
		SELECT id, url, title, price_usd, odometer, username, phone_number,
			image_url, images_count, car_number, car_vin, datetime_found
		FROM cars
		ORDER BY id
	`,
	count: `SELECT COUNT(*) FROM cars`,
}

// NewSQLiteStore opens (or creates) a SQLite database file. A file: DSN is
// passed to the driver untouched; a plain path gets its directory created.
func NewSQLiteStore(path string) (*SQLStore, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite: %w: empty path", ErrUnsupportedDatabase)
	}

	dsn := path
	if !strings.HasPrefix(path, "file:") && path != ":memory:" {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("sqlite: create dir: %w", err)
			}
		}
		dsn = path + "?mode=rwc"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w", err)
	}
	db.SetMaxOpenConns(1) // SQLite only supports one writer
	db.SetMaxIdleConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: ping: %w", err)
	}
	if path != ":memory:" {
		if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("sqlite: enable WAL: %w", err)
		}
	}
	return &SQLStore{db: db, dialect: sqliteDialect}, nil
}
