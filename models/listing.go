package models

import (
	"errors"
	"fmt"
	"net/url"
	"time"
)

// MaxOdometerKm is the ceiling applied to every odometer reading.
const MaxOdometerKm = 999_999

// ListingRecord is one car listing as stored in the database.
// Every field has a zero-value default; a field that could not be extracted
// stays empty instead of aborting the whole record.
type ListingRecord struct {
	ID           int64
	URL          string
	Title        string
	PriceUSD     int
	OdometerKm   int
	SellerName   string
	PhoneDigits  string
	ImageURL     string
	ImageCount   int
	PlateNumber  string
	VIN          string
	DiscoveredAt time.Time
}

var (
	ErrInvalidURL   = errors.New("listing url must be absolute http(s)")
	ErrEmptyTitle   = errors.New("listing title is empty")
	ErrNegativeData = errors.New("listing numeric field is negative")
)

// Validate checks the invariants the store relies on.
func (r *ListingRecord) Validate() error {
	u, err := url.Parse(r.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: %q", ErrInvalidURL, r.URL)
	}
	if r.Title == "" {
		return ErrEmptyTitle
	}
	if r.PriceUSD < 0 || r.OdometerKm < 0 || r.ImageCount < 0 {
		return ErrNegativeData
	}
	return nil
}

// InsightReport holds summary statistics over the stored listings.
type InsightReport struct {
	TotalListings   int
	WithPhone       int
	WithVIN         int
	WithPlate       int
	AveragePrice    float64
	MinPrice        int
	MaxPrice        int
	AverageOdometer float64
	MostExpensive   *ListingRecord
	TopSellers      []SellerCount
}

// SellerCount pairs a seller name with the number of listings it posted.
type SellerCount struct {
	Name  string
	Count int
}
