package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

// pingAttempts and pingInterval bound the wait for a database that is still
// starting, as happens under docker compose.
const (
	pingAttempts = 10
	pingInterval = 2 * time.Second
)

var postgresDialect = dialect{
	name: "postgres",
	schema: `
		CREATE TABLE IF NOT EXISTS cars (
			id             SERIAL PRIMARY KEY,
			url            TEXT        UNIQUE NOT NULL,
			title          TEXT        NOT NULL,
			price_usd      INTEGER     NOT NULL DEFAULT 0,
			odometer       INTEGER     NOT NULL DEFAULT 0,
			username       TEXT        NOT NULL DEFAULT '',
			phone_number   TEXT        NOT NULL DEFAULT '',
			image_url      TEXT        NOT NULL DEFAULT '',
			images_count   INTEGER     NOT NULL DEFAULT 0,
			car_number     TEXT        NOT NULL DEFAULT '',
			car_vin        TEXT        NOT NULL DEFAULT '',
			datetime_found TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE INDEX IF NOT EXISTS idx_cars_price_usd      ON cars(price_usd);
		CREATE INDEX IF NOT EXISTS idx_cars_datetime_found ON cars(datetime_found);
	`,
	insert: `
		INSERT INTO cars (url, title, price_usd, odometer, username, phone_number,
			image_url, images_count, car_number, car_vin, datetime_found)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
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

// NewPostgresStore opens a PostgreSQL connection and waits until it answers.
// The schema is created by Migrate.
func NewPostgresStore(ctx context.Context, dsn string) (*SQLStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}

	for i := 0; i < pingAttempts; i++ {
		if err = db.PingContext(ctx); err == nil {
			break
		}
		select {
		case <-ctx.Done():
			_ = db.Close()
			return nil, fmt.Errorf("postgres: ping: %w", ctx.Err())
		case <-time.After(pingInterval):
		}
	}
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: ping failed after retries: %w", err)
	}

	return &SQLStore{db: db, dialect: postgresDialect}, nil
}
