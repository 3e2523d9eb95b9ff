package autoria

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/chromedp/chromedp"

	"autoria-scraper/services"
	"autoria-scraper/utils"
)

// BrowserPhoneResolver reveals the phone by clicking through the detail page
// in headless Chrome. One browser process is shared by all calls and calls
// are serialized; the browser starts on first use and is restarted after it
// breaks.
type BrowserPhoneResolver struct {
	chromeBin string
	userAgent string
	timeout   time.Duration
	logger    *utils.Logger

	mu            sync.Mutex
	browserCtx    context.Context
	cancelBrowser context.CancelFunc
	cancelAlloc   context.CancelFunc
}

func NewBrowserPhoneResolver(chromeBin, userAgent string, timeout time.Duration, logger *utils.Logger) *BrowserPhoneResolver {
	return &BrowserPhoneResolver{
		chromeBin: chromeBin,
		userAgent: userAgent,
		timeout:   timeout,
		logger:    logger,
	}
}

func (r *BrowserPhoneResolver) Resolve(ctx context.Context, detailURL string, _ []byte) string {
	if ctx.Err() != nil {
		return ""
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.start(); err != nil {
		r.logger.Error("[phone] Browser start failed: %v", err)
		r.stop()
		return ""
	}

	text, err := r.reveal(detailURL)
	if err != nil {
		if isDriverError(err) {
			r.logger.Error("[phone] Browser error on %s, restarting on next use: %v", detailURL, err)
			r.stop()
			return ""
		}
		r.logger.Debug("[phone] Reveal timed out on %s, reading the element directly", detailURL)
		text, err = r.scrapeDirect(detailURL)
	}
	if err != nil {
		if isDriverError(err) {
			r.stop()
		}
		r.logger.Warn("[phone] No phone for %s: %v", detailURL, err)
		return ""
	}

	return services.PhoneFromFormatted(text)
}

// Close shuts the browser down. The resolver can still be used afterwards.
func (r *BrowserPhoneResolver) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stop()
	return nil
}

// start launches the browser if it is not already running. Caller holds mu.
func (r *BrowserPhoneResolver) start() error {
	if r.browserCtx != nil {
		return nil
	}

	chromeBin := r.chromeBin
	if chromeBin == "" {
		chromeBin = findChromeBinary()
	}
	r.logger.Info("[phone] Starting browser: %s", chromeBin)

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-setuid-sandbox", true),
		chromedp.UserAgent(r.userAgent),
	)
	if chromeBin != "" {
		opts = append(opts, chromedp.ExecPath(chromeBin))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), opts...)
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(string, ...interface{}) {}))
	r.browserCtx, r.cancelBrowser, r.cancelAlloc = browserCtx, cancelBrowser, cancelAlloc

	// Running with no actions starts the process so launch errors show up here.
	if err := chromedp.Run(browserCtx); err != nil {
		return fmt.Errorf("launch browser: %w", err)
	}
	return nil
}

// stop tears the browser down. Caller holds mu.
func (r *BrowserPhoneResolver) stop() {
	if r.cancelBrowser != nil {
		r.cancelBrowser()
	}
	if r.cancelAlloc != nil {
		r.cancelAlloc()
	}
	r.browserCtx, r.cancelBrowser, r.cancelAlloc = nil, nil, nil
}

func (r *BrowserPhoneResolver) reveal(detailURL string) (string, error) {
	tabCtx, cancelTab := chromedp.NewContext(r.browserCtx)
	defer cancelTab()
	tabCtx, cancel := context.WithTimeout(tabCtx, r.timeout)
	defer cancel()

	var text string
	err := chromedp.Run(tabCtx,
		chromedp.Navigate(detailURL),
		chromedp.Click(revealPhoneSelector, chromedp.ByQuery),
		chromedp.WaitVisible(revealedPhoneSelector, chromedp.ByQuery),
		chromedp.Text(revealedPhoneSelector, &text, chromedp.ByQuery),
	)
	if err == nil && services.DigitsOnly(text) == "" {
		err = errPhoneMissing
	}
	return text, err
}

// scrapeDirect reads the phone element without clicking, for pages that
// render the number up front.
func (r *BrowserPhoneResolver) scrapeDirect(detailURL string) (string, error) {
	tabCtx, cancelTab := chromedp.NewContext(r.browserCtx)
	defer cancelTab()
	tabCtx, cancel := context.WithTimeout(tabCtx, r.timeout)
	defer cancel()

	var text string
	if err := chromedp.Run(tabCtx,
		chromedp.Navigate(detailURL),
		chromedp.TextContent(revealedPhoneSelector, &text, chromedp.ByQuery),
	); err != nil {
		return "", err
	}
	if services.DigitsOnly(text) == "" {
		return "", errPhoneMissing
	}
	return text, nil
}

// errPhoneMissing means the page loaded but showed no number.
var errPhoneMissing = errors.New("phone element is empty")

// isDriverError separates a broken browser from a page that simply did not
// show the phone in time.
func isDriverError(err error) bool {
	return err != nil && !errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, errPhoneMissing)
}

// findChromeBinary locates a Chrome or Chromium binary.
func findChromeBinary() string {
	if bin := os.Getenv("CHROME_BIN"); bin != "" {
		return bin
	}

	for _, name := range []string{"google-chrome-stable", "google-chrome", "chromium", "chromium-browser"} {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}

	for _, p := range []string{
		"/usr/bin/google-chrome-stable",
		"/usr/bin/chromium",
		"/snap/bin/chromium",
		"/opt/google/chrome/google-chrome",
	} {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}
