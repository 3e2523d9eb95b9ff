package autoria

import (
	"context"
	"fmt"

	"autoria-scraper/config"
	"autoria-scraper/fetch"
	"autoria-scraper/utils"
)

// PhoneResolver looks up the seller phone for a detail page. Resolve never
// fails: anything that goes wrong yields "". The result is normalized digits,
// comma-joined when the listing has several numbers.
type PhoneResolver interface {
	Resolve(ctx context.Context, detailURL string, markup []byte) string
	Close() error
}

// NewPhoneResolver returns the resolver selected by cfg.PhoneStrategy.
func NewPhoneResolver(cfg *config.Config, fetcher *fetch.Fetcher, logger *utils.Logger) (PhoneResolver, error) {
	switch cfg.PhoneStrategy {
	case config.PhoneStrategyAPI:
		return NewAPIPhoneResolver(fetcher, logger), nil
	case config.PhoneStrategyBrowser:
		return NewBrowserPhoneResolver(cfg.ChromeBin, cfg.UserAgent, cfg.BrowserTimeout, logger), nil
	case config.PhoneStrategyNone:
		return NoPhoneResolver{}, nil
	default:
		return nil, fmt.Errorf("%w: unknown phone strategy %q", config.ErrInvalidConfig, cfg.PhoneStrategy)
	}
}

// NoPhoneResolver leaves every phone empty.
type NoPhoneResolver struct{}

func (NoPhoneResolver) Resolve(context.Context, string, []byte) string { return "" }
func (NoPhoneResolver) Close() error                                    { return nil }
