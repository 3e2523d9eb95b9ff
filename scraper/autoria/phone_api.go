package autoria

import (
	"bytes"
	"context"
	"encoding/json"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"autoria-scraper/fetch"
	"autoria-scraper/services"
	"autoria-scraper/utils"
)

// listingIDRegexp pulls the numeric id out of ".../auto_bmw_x5_35123456.html".
var listingIDRegexp = regexp.MustCompile(`_(\d+)\.html`)

// phonePayload is the response of the /users/phones endpoint.
type phonePayload struct {
	Phones []struct {
		PhoneFormatted string `json:"phoneFormatted"`
	} `json:"phones"`
	FormattedPhoneNumber string `json:"formattedPhoneNumber"`
}

// APIPhoneResolver asks the site's phone endpoint for the numbers using the
// hash and expiry tokens embedded in the detail page.
type APIPhoneResolver struct {
	fetcher *fetch.Fetcher
	logger  *utils.Logger
}

func NewAPIPhoneResolver(fetcher *fetch.Fetcher, logger *utils.Logger) *APIPhoneResolver {
	return &APIPhoneResolver{fetcher: fetcher, logger: logger}
}

func (r *APIPhoneResolver) Resolve(ctx context.Context, detailURL string, markup []byte) string {
	endpoint, ok := r.endpoint(detailURL, markup)
	if !ok {
		return ""
	}

	// One attempt only: the tokens expire, so a retry later is pointless.
	page, err := r.fetcher.Fetch(ctx, endpoint, 1)
	if err != nil {
		r.logger.Warn("[phone] Failed to get phone for %s: %v", detailURL, err)
		return ""
	}

	phones, err := parsePhonePayload(page.Body)
	if err != nil {
		r.logger.Warn("[phone] Failed to parse phone json for %s: %v", detailURL, err)
		return ""
	}
	return phones
}

// endpoint builds {scheme}://{host}/users/phones/{id}?hash=..&expires=..
func (r *APIPhoneResolver) endpoint(detailURL string, markup []byte) (string, bool) {
	m := listingIDRegexp.FindStringSubmatch(detailURL)
	if m == nil {
		r.logger.Warn("[phone] Could not extract listing id from url: %s", detailURL)
		return "", false
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(markup))
	if err != nil {
		return "", false
	}
	tokens := doc.Find(phoneTokensSelector).First()
	hash := strings.TrimSpace(tokens.AttrOr("data-hash", ""))
	expires := strings.TrimSpace(tokens.AttrOr("data-expires", ""))
	if hash == "" || expires == "" {
		r.logger.Warn("[phone] Could not find phone tokens for %s", detailURL)
		return "", false
	}

	base, err := url.Parse(detailURL)
	if err != nil {
		return "", false
	}
	u := url.URL{
		Scheme:   base.Scheme,
		Host:     base.Host,
		Path:     "/users/phones/" + m[1],
		RawQuery: url.Values{"hash": {hash}, "expires": {expires}}.Encode(),
	}
	return u.String(), true
}

// parsePhonePayload normalizes every phones[].phoneFormatted entry and falls
// back to the root formattedPhoneNumber when the list yields nothing.
func parsePhonePayload(body []byte) (string, error) {
	var p phonePayload
	if err := json.Unmarshal(body, &p); err != nil {
		return "", err
	}

	numbers := make([]string, 0, len(p.Phones))
	for _, phone := range p.Phones {
		if digits := services.PhoneFromFormatted(phone.PhoneFormatted); digits != "" {
			numbers = append(numbers, digits)
		}
	}
	if len(numbers) > 0 {
		return strings.Join(numbers, ","), nil
	}
	return services.PhoneFromFormatted(p.FormattedPhoneNumber), nil
}

func (r *APIPhoneResolver) Close() error { return nil }
