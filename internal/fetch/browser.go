package fetch

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/oyilmaz/priceradar/internal/browser"
)

// BrowserFetcher renders pages in a headless browser for marketplaces
// whose prices exist only after script execution. One browser instance
// is held process-wide: it is created lazily on first use, navigation
// is serialized through the mutex (a single session is unsafe for
// concurrent use), and Close tears it down at batch end.
type BrowserFetcher struct {
	mu         sync.Mutex
	browser    *browser.Browser
	opts       *browser.Options
	renderWait time.Duration
	logger     *slog.Logger
}

func NewBrowserFetcher(opts *browser.Options, renderWait time.Duration) *BrowserFetcher {
	if opts == nil {
		opts = browser.DefaultOptions()
	}
	if renderWait <= 0 {
		renderWait = 5 * time.Second
	}
	return &BrowserFetcher{
		opts:       opts,
		renderWait: renderWait,
		logger:     slog.Default().With("component", "browser_fetcher"),
	}
}

func (f *BrowserFetcher) Fetch(ctx context.Context, pageURL string) (*Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.ensureBrowser(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransport, err)
	}

	timeout := f.opts.Timeout
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < timeout {
			timeout = remaining
		}
	}
	if timeout <= 0 {
		return nil, fmt.Errorf("%w: no time budget left", ErrTimeout)
	}

	page, err := f.browser.NewPage(timeout)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransport, err)
	}
	defer page.Close()

	_, err = page.Goto(pageURL, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
		Timeout:   playwright.Float(float64(timeout.Milliseconds())),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTimeout, err)
	}

	// A small scroll before reading: lazily rendered price blocks
	// appear once the viewport moves. Failure is not fatal, the page
	// may simply be done already.
	if err := f.browser.HumanizeInteraction(page); err != nil {
		f.logger.Debug("page interaction failed", "url", pageURL, "error", err)
	}

	// Give client-side rendering a short, fixed window. Fail fast
	// rather than stall the whole pool.
	page.WaitForTimeout(float64(f.renderWait.Milliseconds()))

	blocked, err := f.browser.IsBlocked(page)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransport, err)
	}
	if blocked {
		return nil, fmt.Errorf("%w: interstitial page", ErrBlocked)
	}

	content, err := page.Content()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransport, err)
	}

	return &Result{
		HTML:       content,
		StatusCode: 200,
		FinalURL:   page.URL(),
	}, nil
}

func (f *BrowserFetcher) ensureBrowser() error {
	if f.browser != nil {
		return nil
	}
	f.logger.Info("starting headless browser")
	b, err := browser.New(f.opts)
	if err != nil {
		return err
	}
	f.browser = b
	return nil
}

// Close shuts the shared browser down. Safe to call when it was never
// started.
func (f *BrowserFetcher) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.browser == nil {
		return nil
	}
	err := f.browser.Close()
	f.browser = nil
	return err
}
