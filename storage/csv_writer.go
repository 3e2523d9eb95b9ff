package storage

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"sync"
	"time"

	"autoria-scraper/models"
)

// csvHeader mirrors the cars table column order.
var csvHeader = []string{
	"id", "url", "title", "price_usd", "odometer", "username", "phone_number",
	"image_url", "images_count", "car_number", "car_vin", "datetime_found",
}

var _ ListingRowWriter = (*CSVWriter)(nil)

// CSVWriter writes listings as CSV rows to an underlying writer.
// It is safe for concurrent use.
type CSVWriter struct {
	mu     sync.Mutex
	out    io.Writer
	writer *csv.Writer
}

// NewCSVWriter writes the header row to w and returns a writer for the
// records. If w is an io.Closer it is closed by Close.
func NewCSVWriter(w io.Writer) (*CSVWriter, error) {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return nil, fmt.Errorf("csv: write header: %w", err)
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return nil, fmt.Errorf("csv: write header: %w", err)
	}
	return &CSVWriter{out: w, writer: cw}, nil
}

// WriteRecords appends one row per listing.
func (c *CSVWriter) WriteRecords(listings []*models.ListingRecord) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, l := range listings {
		row := []string{
			strconv.FormatInt(l.ID, 10),
			l.URL,
			l.Title,
			strconv.Itoa(l.PriceUSD),
			strconv.Itoa(l.OdometerKm),
			l.SellerName,
			l.PhoneDigits,
			l.ImageURL,
			strconv.Itoa(l.ImageCount),
			l.PlateNumber,
			l.VIN,
			l.DiscoveredAt.UTC().Format(time.RFC3339),
		}
		if err := c.writer.Write(row); err != nil {
			return fmt.Errorf("csv: write row: %w", err)
		}
	}

	c.writer.Flush()
	return c.writer.Error()
}

// Close flushes pending rows and closes the underlying writer when it can be closed.
func (c *CSVWriter) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.writer.Flush()
	if err := c.writer.Error(); err != nil {
		return fmt.Errorf("csv: flush: %w", err)
	}
	if closer, ok := c.out.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}
