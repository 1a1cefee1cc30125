package extract

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/oyilmaz/priceradar/internal/fetch"
	"github.com/oyilmaz/priceradar/internal/models"
)

// Extractor derives a price and title from one marketplace URL,
// bounded by the marketplace's attempt budget.
type Extractor interface {
	Marketplace() models.Marketplace
	Extract(ctx context.Context, pageURL string) *models.ExtractionOutcome
}

// Site bundles everything that differs between marketplaces: the fetch
// strategy, the retry budget, the pacing, and the extraction rules.
type Site struct {
	Marketplace models.Marketplace
	Rules       SiteRules

	// MaxRetries is the number of re-attempts after the first try.
	// Zero means exactly one attempt; some marketplaces deliberately
	// get no retries because re-rendering is expensive with little
	// marginal benefit.
	MaxRetries int

	Timeout      time.Duration
	FinalTimeout time.Duration // longer budget for the last attempt, optional

	InitialDelay time.Duration
	RetryDelay   time.Duration

	// Bot-block backoff window, jittered per attempt.
	BotBackoffMin time.Duration
	BotBackoffMax time.Duration

	Fetcher fetch.Fetcher
	// FinalFetcher, when set, replaces Fetcher on the last attempt
	// (plain HTTP first, headless render as the closing move).
	FinalFetcher fetch.Fetcher

	DefaultCurrency string
}

type siteExtractor struct {
	site   Site
	logger *slog.Logger
}

// NewSiteExtractor builds an extractor from a site description.
func NewSiteExtractor(site Site) Extractor {
	if site.DefaultCurrency == "" {
		site.DefaultCurrency = "TRY"
	}
	if site.Timeout <= 0 {
		site.Timeout = 15 * time.Second
	}
	return &siteExtractor{
		site:   site,
		logger: slog.Default().With("component", "extractor", "marketplace", string(site.Marketplace)),
	}
}

func (e *siteExtractor) Marketplace() models.Marketplace {
	return e.site.Marketplace
}

func (e *siteExtractor) Extract(ctx context.Context, pageURL string) *models.ExtractionOutcome {
	var last *models.ExtractionOutcome

	for attempt := 0; attempt <= e.site.MaxRetries; attempt++ {
		if err := e.pace(ctx, attempt); err != nil {
			return timeoutOutcome(err)
		}

		final := attempt == e.site.MaxRetries

		timeout := e.site.Timeout
		if final && e.site.FinalTimeout > 0 {
			timeout = e.site.FinalTimeout
		}
		fetcher := e.site.Fetcher
		if final && e.site.FinalFetcher != nil {
			fetcher = e.site.FinalFetcher
		}

		fetchCtx, cancel := context.WithTimeout(ctx, timeout)
		result, err := fetcher.Fetch(fetchCtx, pageURL)
		cancel()

		if err != nil {
			status := fetch.Classify(err)
			last = &models.ExtractionOutcome{
				Status:  status,
				Message: err.Error(),
			}
			e.logger.Warn("fetch failed",
				"url", pageURL,
				"attempt", attempt+1,
				"status", string(status))

			if final || !fetch.Retryable(status) {
				return last
			}
			if status == models.StatusBotBlocked {
				if err := e.botBackoff(ctx); err != nil {
					return timeoutOutcome(err)
				}
			}
			continue
		}

		doc, err := ParseDocument(result.HTML)
		if err != nil {
			last = &models.ExtractionOutcome{
				Status:  models.StatusTransportError,
				Message: fmt.Sprintf("parse document: %v", err),
			}
			if final {
				return last
			}
			continue
		}

		title := doc.Title(e.site.Rules)
		price, currency := doc.Price(e.site.Rules)
		if price == nil {
			last = &models.ExtractionOutcome{
				Title:   title,
				Status:  models.StatusNotFound,
				Message: "no valid price token on page",
			}
			if final {
				return last
			}
			continue
		}

		if currency == "" {
			currency = e.site.DefaultCurrency
		}
		e.logger.Debug("price extracted", "url", pageURL, "price", *price, "attempt", attempt+1)
		return &models.ExtractionOutcome{
			Price:    price,
			Currency: currency,
			Title:    title,
			Status:   models.StatusSuccess,
		}
	}

	return last
}

// pace sleeps the configured delay before an attempt, giving up when
// the context expires first.
func (e *siteExtractor) pace(ctx context.Context, attempt int) error {
	delay := e.site.InitialDelay
	if attempt > 0 {
		delay = e.site.RetryDelay
	}
	return sleep(ctx, delay)
}

func (e *siteExtractor) botBackoff(ctx context.Context) error {
	minB, maxB := e.site.BotBackoffMin, e.site.BotBackoffMax
	if minB <= 0 || maxB <= minB {
		return nil
	}
	delay := minB + time.Duration(rand.Int63n(int64(maxB-minB)))
	e.logger.Info("backing off after block", "delay", delay)
	return sleep(ctx, delay)
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

func timeoutOutcome(err error) *models.ExtractionOutcome {
	return &models.ExtractionOutcome{
		Status:  models.StatusTimeout,
		Message: err.Error(),
	}
}
