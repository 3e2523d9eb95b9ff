package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"autoria-scraper/utils"
)

var (
	// ErrNotFound is the terminal 404 outcome. It is never retried.
	ErrNotFound = errors.New("page not found")
	// ErrUnexpectedStatus wraps any status other than 200 and 404.
	ErrUnexpectedStatus = errors.New("unexpected HTTP status")
	// ErrRetryFailed is returned once every attempt for a URL has failed.
	ErrRetryFailed = utils.ErrRetryFailed
)

// maxBodyBytes caps how much of a response is read into memory.
const maxBodyBytes = 10 << 20

// Page is a successfully fetched response body.
type Page struct {
	URL  string
	Body []byte
}

// Options configures a Fetcher.
type Options struct {
	UserAgent      string
	RequestTimeout time.Duration
	RetryAttempts  int
	RetryDelay     time.Duration
}

// Fetcher performs GET requests gated by a shared Limiter, retrying
// transient failures with linear back-off.
type Fetcher struct {
	client  *http.Client
	limiter *utils.Limiter
	opts    Options
	log     *utils.Logger
}

// NewFetcher creates a Fetcher. The limiter is shared with every other
// component issuing requests so the concurrency ceiling holds system-wide.
func NewFetcher(client *http.Client, limiter *utils.Limiter, opts Options, log *utils.Logger) *Fetcher {
	if client == nil {
		client = NewClient(opts.RequestTimeout)
	}
	if opts.RetryAttempts < 1 {
		opts.RetryAttempts = 1
	}
	return &Fetcher{client: client, limiter: limiter, opts: opts, log: log}
}

// DefaultAttempts returns the configured attempt count.
func (f *Fetcher) DefaultAttempts() int {
	return f.opts.RetryAttempts
}

// Fetch GETs rawURL with up to maxAttempts attempts (0 means the configured
// default). It returns ErrNotFound for a 404 and an ErrRetryFailed-wrapped
// error once attempts are exhausted.
//
// In-flight requests are not tied to ctx: cancelling ctx stops further
// attempts and back-off sleeps, but a request already on the wire runs until
// it completes or hits the request timeout.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string, maxAttempts int) (*Page, error) {
	if maxAttempts <= 0 {
		maxAttempts = f.opts.RetryAttempts
	}

	retry := &utils.RetryConfig{
		MaxAttempts: maxAttempts,
		BaseDelay:   f.opts.RetryDelay,
		Logger:      f.log,
	}

	var page *Page
	err := retry.Do(ctx, "fetch "+rawURL, func(attempt int) error {
		if err := ctx.Err(); err != nil {
			return utils.Permanent(err)
		}
		p, err := f.attempt(ctx, rawURL)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return utils.Permanent(err)
			}
			return err
		}
		page = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return page, nil
}

func (f *Fetcher) attempt(ctx context.Context, rawURL string) (*Page, error) {
	if err := f.limiter.Acquire(ctx); err != nil {
		return nil, err
	}
	defer f.limiter.Release()

	reqCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), f.opts.RequestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, utils.Permanent(fmt.Errorf("build request: %w", err))
	}
	if f.opts.UserAgent != "" {
		req.Header.Set("User-Agent", f.opts.UserAgent)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
		if err != nil {
			return nil, fmt.Errorf("read body: %w", err)
		}
		f.log.Debug("[fetch] %s -> 200 (%d bytes)", rawURL, len(body))
		return &Page{URL: rawURL, Body: body}, nil
	case http.StatusNotFound:
		_, _ = io.Copy(io.Discard, resp.Body)
		f.log.Warn("[fetch] Page not found: %s", rawURL)
		return nil, fmt.Errorf("%w: %s", ErrNotFound, rawURL)
	default:
		_, _ = io.Copy(io.Discard, resp.Body)
		f.log.Warn("[fetch] Unexpected status %d on %s", resp.StatusCode, rawURL)
		return nil, fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode)
	}
}
