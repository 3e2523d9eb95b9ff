package autoria

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"autoria-scraper/config"
	"autoria-scraper/fetch"
	"autoria-scraper/models"
	"autoria-scraper/storage"
	"autoria-scraper/utils"
)

// ErrStartUnreachable is returned when the first listing page cannot be
// fetched at all. Every later failure only shortens the run.
var ErrStartUnreachable = errors.New("start page unreachable")

// Scraper walks the listing pages of auto.ria.com and stores every new car.
type Scraper struct {
	startURL string
	maxPages int
	fetcher  *fetch.Fetcher
	phones   PhoneResolver
	store    storage.ListingStore
	logger   *utils.Logger
}

// New creates a ready-to-use Scraper. The fetcher's limiter bounds every
// request the run makes, phone lookups included.
func New(cfg *config.Config, fetcher *fetch.Fetcher, phones PhoneResolver, store storage.ListingStore, logger *utils.Logger) *Scraper {
	if phones == nil {
		phones = NoPhoneResolver{}
	}
	return &Scraper{
		startURL: cfg.StartURL,
		maxPages: cfg.MaxPages,
		fetcher:  fetcher,
		phones:   phones,
		store:    store,
		logger:   logger,
	}
}

// RunFullCrawl traverses listing pages from page 1 until a page has no
// detail links, a listing page cannot be fetched, MaxPages is reached or ctx
// is cancelled. It returns the number of newly stored records.
func (s *Scraper) RunFullCrawl(ctx context.Context) (int, error) {
	log := s.logger.WithField("run_id", uuid.NewString())
	log.Info("[autoria] Starting scrape — start URL: %s", s.startURL)

	stored := 0
	for page := 1; ; page++ {
		if ctx.Err() != nil {
			log.Warn("[autoria] Cancelled before page %d", page)
			break
		}
		if s.maxPages > 0 && page > s.maxPages {
			log.Info("[autoria] Reached page limit %d", s.maxPages)
			break
		}

		pageURL, err := listingPageURL(s.startURL, page)
		if err != nil {
			return 0, fmt.Errorf("%w: %w", ErrStartUnreachable, err)
		}
		log.Info("[autoria] Processing page %d: %s", page, pageURL)

		listing, err := s.fetcher.Fetch(ctx, pageURL, 0)
		if err != nil {
			if page == 1 && ctx.Err() == nil {
				return 0, fmt.Errorf("%w: %s: %w", ErrStartUnreachable, pageURL, err)
			}
			log.Error("[autoria] Failed to get page %d: %v", page, err)
			break
		}

		links := ExtractListingLinks(listing.Body, pageURL)
		if len(links) == 0 {
			log.Info("[autoria] No more pages to process")
			break
		}
		log.Info("[autoria] Page %d — %d detail links", page, len(links))

		records := s.scrapeDetails(ctx, log, links)
		saved := s.persist(ctx, log, records)
		stored += saved
		log.Info("[autoria] Page %d done — %d/%d saved, %d total", page, saved, len(links), stored)
	}

	log.Info("[autoria] Scraping completed. Total cars saved: %d", stored)
	return stored, nil
}

// scrapeDetails fetches and extracts every link concurrently and waits for
// all of them. Links that yield nothing are dropped from the result.
func (s *Scraper) scrapeDetails(ctx context.Context, log *utils.Logger, links []string) []*models.ListingRecord {
	results := make([]*models.ListingRecord, len(links))

	var g errgroup.Group
	for i, link := range links {
		i, link := i, link
		g.Go(func() error {
			results[i] = s.scrapeDetail(ctx, log, link)
			return nil
		})
	}
	_ = g.Wait()

	records := make([]*models.ListingRecord, 0, len(results))
	for _, r := range results {
		if r != nil {
			records = append(records, r)
		}
	}
	return records
}

func (s *Scraper) scrapeDetail(ctx context.Context, log *utils.Logger, link string) *models.ListingRecord {
	page, err := s.fetcher.Fetch(ctx, link, 0)
	if err != nil {
		if errors.Is(err, fetch.ErrNotFound) {
			log.Debug("[autoria] Listing gone: %s", link)
		} else {
			log.Error("[autoria] Error processing %s: %v", link, err)
		}
		return nil
	}

	rec, ok := ExtractDetailFields(page.Body, link)
	if !ok {
		log.Warn("[autoria] No title found for %s", link)
		return nil
	}
	rec.PhoneDigits = s.phones.Resolve(ctx, link, page.Body)
	return rec
}

// persist stores records one by one. A failed insert is logged and skipped.
// Inserts are not tied to ctx so a page that finished scraping is saved even
// during shutdown.
func (s *Scraper) persist(ctx context.Context, log *utils.Logger, records []*models.ListingRecord) int {
	ctx = context.WithoutCancel(ctx)

	saved := 0
	for _, rec := range records {
		inserted, err := s.store.InsertIfAbsent(ctx, rec)
		if err != nil {
			log.Error("[autoria] DB error for %s: %v", rec.URL, err)
			continue
		}
		if !inserted {
			log.Debug("[autoria] Already stored: %s", rec.URL)
			continue
		}
		saved++
		log.Info("[autoria] Saved: %s", rec.Title)
	}
	return saved
}

// listingPageURL sets the page query parameter on the start URL, keeping any
// filters it already carries.
func listingPageURL(startURL string, page int) (string, error) {
	u, err := url.Parse(startURL)
	if err != nil {
		return "", fmt.Errorf("parse start url: %w", err)
	}
	q := u.Query()
	q.Set("page", strconv.Itoa(page))
	u.RawQuery = q.Encode()
	return u.String(), nil
}
