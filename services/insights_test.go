package services

import (
	"bytes"
	"testing"

	"autoria-scraper/models"
	"autoria-scraper/utils"
)

func sampleListings() []*models.ListingRecord {
	return []*models.ListingRecord{
		{Title: "Volkswagen Golf 2010", PriceUSD: 7000, OdometerKm: 180000, SellerName: "Андрій", PhoneDigits: "380671234567", VIN: "WVWZZZ1KZAW000001", URL: "https://auto.ria.com/uk/auto_vw_golf_1.html"},
		{Title: "Toyota Camry 2018", PriceUSD: 21000, OdometerKm: 60000, SellerName: "Андрій", PlateNumber: "AA 1234 BB", URL: "https://auto.ria.com/uk/auto_toyota_camry_2.html"},
		{Title: "Skoda Octavia 2015", PriceUSD: 11000, OdometerKm: 0, SellerName: "Олена", PhoneDigits: "380501112233", URL: "https://auto.ria.com/uk/auto_skoda_octavia_3.html"},
		{Title: "ВАЗ 2107 1990", PriceUSD: 0, OdometerKm: 300000, URL: "https://auto.ria.com/uk/auto_vaz_2107_4.html"},
	}
}

func TestInsightCounts(t *testing.T) {
	svc := NewInsightService(utils.NewNopLogger())
	r := svc.Generate(sampleListings())
	if r.TotalListings != 4 {
		t.Errorf("TotalListings: got %d, want 4", r.TotalListings)
	}
	if r.WithPhone != 2 {
		t.Errorf("WithPhone: got %d, want 2", r.WithPhone)
	}
	if r.WithVIN != 1 {
		t.Errorf("WithVIN: got %d, want 1", r.WithVIN)
	}
	if r.WithPlate != 1 {
		t.Errorf("WithPlate: got %d, want 1", r.WithPlate)
	}
}

func TestInsightPrices(t *testing.T) {
	svc := NewInsightService(utils.NewNopLogger())
	r := svc.Generate(sampleListings())
	if r.AveragePrice != 13000 {
		t.Errorf("AveragePrice: got %.2f, want 13000", r.AveragePrice)
	}
	if r.MinPrice != 7000 {
		t.Errorf("MinPrice: got %d, want 7000", r.MinPrice)
	}
	if r.MaxPrice != 21000 {
		t.Errorf("MaxPrice: got %d, want 21000", r.MaxPrice)
	}
	if r.AverageOdometer != 180000 {
		t.Errorf("AverageOdometer: got %.2f, want 180000", r.AverageOdometer)
	}
}

func TestInsightMostExpensive(t *testing.T) {
	svc := NewInsightService(utils.NewNopLogger())
	r := svc.Generate(sampleListings())
	if r.MostExpensive == nil {
		t.Fatal("MostExpensive should not be nil")
	}
	if r.MostExpensive.Title != "Toyota Camry 2018" {
		t.Errorf("MostExpensive: got %q, want %q", r.MostExpensive.Title, "Toyota Camry 2018")
	}
}

func TestInsightTopSellers(t *testing.T) {
	svc := NewInsightService(utils.NewNopLogger())
	r := svc.Generate(sampleListings())
	if len(r.TopSellers) != 2 {
		t.Fatalf("TopSellers len: got %d, want 2", len(r.TopSellers))
	}
	if r.TopSellers[0].Name != "Андрій" || r.TopSellers[0].Count != 2 {
		t.Errorf("TopSellers[0]: got %+v, want Андрій/2", r.TopSellers[0])
	}
}

func TestInsightEmptyInput(t *testing.T) {
	svc := NewInsightService(utils.NewNopLogger())
	r := svc.Generate(nil)
	if r.TotalListings != 0 {
		t.Errorf("expected 0 total listings for empty input")
	}
	if r.MostExpensive != nil {
		t.Errorf("expected no most expensive listing for empty input")
	}
}

func TestInsightPrint(t *testing.T) {
	svc := NewInsightService(utils.NewNopLogger())
	var buf bytes.Buffer
	svc.Print(&buf, svc.Generate(sampleListings()))

	out := buf.String()
	for _, want := range []string{"Total listings stored : 4", "Maximum price : $21000", "Toyota Camry 2018"} {
		if !bytes.Contains([]byte(out), []byte(want)) {
			t.Errorf("report output missing %q", want)
		}
	}
}
