package autoria

import (
	"bytes"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"autoria-scraper/models"
	"autoria-scraper/services"
	"autoria-scraper/utils"
)

// fieldRule fills one optional field of a record from a parsed detail page.
// A rule that finds nothing leaves the field at its zero value.
type fieldRule struct {
	name  string
	apply func(doc *goquery.Document, rec *models.ListingRecord)
}

// detailRules run after the title check, each independently of the others.
var detailRules = []fieldRule{
	{name: "price", apply: extractPrice},
	{name: "odometer", apply: extractOdometer},
	{name: "seller", apply: extractSeller},
	{name: "images", apply: extractImages},
	{name: "plate", apply: extractPlate},
	{name: "vin", apply: extractVIN},
}

// ExtractListingLinks returns the detail links found on a listing page,
// resolved against base and sorted. An empty result means the listing has
// run out of pages.
func ExtractListingLinks(markup []byte, base string) []string {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(markup))
	if err != nil {
		return nil
	}
	baseURL, err := url.Parse(base)
	if err != nil {
		return nil
	}

	links := utils.NewURLSet()
	for _, strategy := range linkStrategies {
		doc.Find(strategy.selector).Each(func(_ int, s *goquery.Selection) {
			href, ok := s.Attr("href")
			if !ok || !strings.Contains(href, detailMarker) {
				return
			}
			if abs := resolveLink(baseURL, href); abs != "" {
				links.Add(abs)
			}
		})
	}
	return links.Sorted()
}

func resolveLink(base *url.URL, href string) string {
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return ""
	}
	abs := base.ResolveReference(ref)
	if abs.Scheme != "http" && abs.Scheme != "https" {
		return ""
	}
	abs.Fragment = ""
	return abs.String()
}

// ExtractDetailFields builds a record from a detail page. It reports false
// when the page has no title, which marks a removed listing or a redirect to
// some other page. The phone field is left for the resolver.
func ExtractDetailFields(markup []byte, pageURL string) (*models.ListingRecord, bool) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(markup))
	if err != nil {
		return nil, false
	}

	title := services.NormalizeText(doc.Find(titleSelector).First().Text())
	if title == "" {
		return nil, false
	}

	rec := &models.ListingRecord{
		URL:          pageURL,
		Title:        title,
		DiscoveredAt: time.Now().UTC(),
	}
	for _, rule := range detailRules {
		rule.apply(doc, rec)
	}
	return rec, true
}

func extractPrice(doc *goquery.Document, rec *models.ListingRecord) {
	if sel := doc.Find(priceSelector).First(); sel.Length() > 0 {
		rec.PriceUSD = services.ParsePrice(sel.Text())
	}
}

func extractOdometer(doc *goquery.Document, rec *models.ListingRecord) {
	doc.Find(labelSelector).EachWithBreak(func(_ int, label *goquery.Selection) bool {
		if !strings.Contains(label.Text(), odometerLabel) {
			return true
		}
		if arg := label.NextAllFiltered(argumentSelector).First(); arg.Length() > 0 {
			rec.OdometerKm = services.NormalizeOdometer(arg.Text())
		}
		return false
	})
}

func extractSeller(doc *goquery.Document, rec *models.ListingRecord) {
	rec.SellerName = services.NormalizeText(doc.Find(sellerSelector).First().Text())
}

func extractImages(doc *goquery.Document, rec *models.ListingRecord) {
	images := doc.Find(photoSelector)
	rec.ImageCount = images.Length()
	if src, ok := images.First().Attr("src"); ok {
		rec.ImageURL = strings.TrimSpace(src)
	}
}

func extractPlate(doc *goquery.Document, rec *models.ListingRecord) {
	if sel := doc.Find(plateSelector).First(); sel.Length() > 0 {
		rec.PlateNumber = services.ExtractPlate(sel.Text())
	}
}

// extractVIN looks at every element with a text node mentioning VIN and
// takes the first 17-character VIN found in that element's text.
func extractVIN(doc *goquery.Document, rec *models.ListingRecord) {
	doc.Find("body *").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if s.Is("script, style") || !ownTextContains(s, vinToken) {
			return true
		}
		if vin := services.FindVIN(s.Text()); vin != "" {
			rec.VIN = vin
			return false
		}
		return true
	})
}

// ownTextContains reports whether any direct text child of s contains token,
// ignoring case.
func ownTextContains(s *goquery.Selection, token string) bool {
	found := false
	s.Contents().EachWithBreak(func(_ int, c *goquery.Selection) bool {
		if goquery.NodeName(c) == "#text" && strings.Contains(strings.ToLower(c.Text()), token) {
			found = true
			return false
		}
		return true
	})
	return found
}
