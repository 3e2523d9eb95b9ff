package services

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"autoria-scraper/models"
	"autoria-scraper/utils"
)

const topSellersLimit = 5

type InsightService struct {
	logger *utils.Logger
}

func NewInsightService(logger *utils.Logger) *InsightService {
	return &InsightService{logger: logger}
}

func (s *InsightService) Generate(listings []*models.ListingRecord) *models.InsightReport {
	report := &models.InsightReport{}

	if len(listings) == 0 {
		return report
	}

	report.TotalListings = len(listings)

	var priced []*models.ListingRecord
	var odometerTotal, odometerCount int
	sellers := make(map[string]int)

	for _, l := range listings {
		if l.PhoneDigits != "" {
			report.WithPhone++
		}
		if l.VIN != "" {
			report.WithVIN++
		}
		if l.PlateNumber != "" {
			report.WithPlate++
		}
		if l.PriceUSD > 0 {
			priced = append(priced, l)
		}
		if l.OdometerKm > 0 {
			odometerTotal += l.OdometerKm
			odometerCount++
		}
		if l.SellerName != "" {
			sellers[l.SellerName]++
		}
	}

	// Price stats (only listings with price > 0)
	if len(priced) > 0 {
		report.MinPrice = priced[0].PriceUSD
		report.MaxPrice = priced[0].PriceUSD
		report.MostExpensive = priced[0]
		total := 0
		for _, l := range priced {
			total += l.PriceUSD
			if l.PriceUSD < report.MinPrice {
				report.MinPrice = l.PriceUSD
			}
			if l.PriceUSD > report.MaxPrice {
				report.MaxPrice = l.PriceUSD
				report.MostExpensive = l
			}
		}
		report.AveragePrice = round2(float64(total) / float64(len(priced)))
	}

	if odometerCount > 0 {
		report.AverageOdometer = round2(float64(odometerTotal) / float64(odometerCount))
	}

	for name, cnt := range sellers {
		report.TopSellers = append(report.TopSellers, models.SellerCount{Name: name, Count: cnt})
	}
	sort.Slice(report.TopSellers, func(i, j int) bool {
		if report.TopSellers[i].Count != report.TopSellers[j].Count {
			return report.TopSellers[i].Count > report.TopSellers[j].Count
		}
		return report.TopSellers[i].Name < report.TopSellers[j].Name
	})
	if len(report.TopSellers) > topSellersLimit {
		report.TopSellers = report.TopSellers[:topSellersLimit]
	}

	s.logger.Debug("[insights] Generated report over %d listings", report.TotalListings)
	return report
}

func (s *InsightService) Print(w io.Writer, r *models.InsightReport) {
	sep := strings.Repeat("═", 54)
	thin := strings.Repeat("─", 54)

	fmt.Fprintf(w, "\n%s\n", sep)
	fmt.Fprintf(w, "  AUTO.RIA LISTINGS INSIGHTS\n")
	fmt.Fprintf(w, "%s\n\n", sep)

	fmt.Fprintf(w, "  Overview\n")
	fmt.Fprintf(w, "  %s\n", thin)
	fmt.Fprintf(w, "  Total listings stored : %d\n", r.TotalListings)
	fmt.Fprintf(w, "  With phone number     : %d\n", r.WithPhone)
	fmt.Fprintf(w, "  With VIN              : %d\n", r.WithVIN)
	fmt.Fprintf(w, "  With plate number     : %d\n", r.WithPlate)
	fmt.Fprintln(w)

	fmt.Fprintf(w, "  Price Statistics (USD)\n")
	fmt.Fprintf(w, "  %s\n", thin)
	if r.AveragePrice > 0 {
		fmt.Fprintf(w, "  Average price : $%.2f\n", r.AveragePrice)
		fmt.Fprintf(w, "  Minimum price : $%d\n", r.MinPrice)
		fmt.Fprintf(w, "  Maximum price : $%d\n", r.MaxPrice)
	} else {
		fmt.Fprintf(w, "  No price data available\n")
	}
	if r.AverageOdometer > 0 {
		fmt.Fprintf(w, "  Average odometer : %.0f km\n", r.AverageOdometer)
	}
	fmt.Fprintln(w)

	if r.MostExpensive != nil {
		fmt.Fprintf(w, "  Most Expensive Listing\n")
		fmt.Fprintf(w, "  %s\n", thin)
		fmt.Fprintf(w, "  %s\n", truncate(r.MostExpensive.Title, 50))
		fmt.Fprintf(w, "  Price : $%d\n", r.MostExpensive.PriceUSD)
		fmt.Fprintf(w, "  URL   : %s\n", r.MostExpensive.URL)
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "  Top Sellers\n")
	fmt.Fprintf(w, "  %s\n", thin)
	if len(r.TopSellers) == 0 {
		fmt.Fprintf(w, "  No seller data\n")
	} else {
		for i, sc := range r.TopSellers {
			bar := strings.Repeat("█", sc.Count)
			fmt.Fprintf(w, "  %d. %-30s %s (%d)\n", i+1, truncate(sc.Name, 28), bar, sc.Count)
		}
	}

	fmt.Fprintf(w, "\n%s\n\n", sep)
}

func round2(f float64) float64 {
	return float64(int(f*100+0.5)) / 100
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}
