package fetch

import (
	"context"
	"errors"
	"net"
	"net/url"

	"github.com/oyilmaz/priceradar/internal/models"
)

var (
	ErrBlocked   = errors.New("blocked by marketplace anti-bot")
	ErrNotFound  = errors.New("page not found")
	ErrTimeout   = errors.New("fetch timed out")
	ErrTransport = errors.New("transport error")
)

// Result is one fetched document.
type Result struct {
	HTML       string
	StatusCode int
	FinalURL   string
}

// Fetcher retrieves a single page. Implementations differ in how hard
// they try to look like a real browser.
type Fetcher interface {
	Fetch(ctx context.Context, pageURL string) (*Result, error)
}

// Classify maps a fetch error onto the extraction failure taxonomy.
func Classify(err error) models.ExtractionStatus {
	switch {
	case err == nil:
		return models.StatusSuccess
	case errors.Is(err, ErrBlocked):
		return models.StatusBotBlocked
	case errors.Is(err, ErrNotFound):
		return models.StatusNotFound
	case errors.Is(err, ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return models.StatusTimeout
	default:
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return models.StatusTimeout
		}
		var urlErr *url.Error
		if errors.As(err, &urlErr) && urlErr.Timeout() {
			return models.StatusTimeout
		}
		return models.StatusTransportError
	}
}

// Retryable reports whether an error class is worth another attempt.
// NotFound is terminal for a URL; blocks are retried by callers with
// escalating backoff within their budget.
func Retryable(status models.ExtractionStatus) bool {
	switch status {
	case models.StatusTimeout, models.StatusTransportError, models.StatusBotBlocked:
		return true
	default:
		return false
	}
}
