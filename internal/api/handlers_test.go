package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oyilmaz/priceradar/internal/classify"
	"github.com/oyilmaz/priceradar/internal/extract"
	"github.com/oyilmaz/priceradar/internal/models"
	"github.com/oyilmaz/priceradar/internal/resolver"
	"github.com/oyilmaz/priceradar/internal/validate"
)

type fakeBackend struct {
	items []classify.Item
	err   error
}

func (f *fakeBackend) Search(context.Context, string) ([]classify.Item, error) {
	return f.items, f.err
}

type fakeExtractor struct {
	outcome *models.ExtractionOutcome
}

func (f *fakeExtractor) Marketplace() models.Marketplace { return models.MarketplaceTrendyol }

func (f *fakeExtractor) Extract(context.Context, string) *models.ExtractionOutcome {
	return f.outcome
}

func newTestHandlers(backend resolver.SearchBackend, outcome *models.ExtractionOutcome) *Handlers {
	registry := extract.Registry{
		models.MarketplaceTrendyol: &fakeExtractor{outcome: outcome},
	}
	r := resolver.New(backend, nil, registry, validate.NewPriceValidator(validate.DefaultTolerance), nil, resolver.Options{})
	return NewHandlers(r, slog.Default())
}

const productURL = "https://www.trendyol.com/canon/powershot-g7x-mark-iii-p-32041243"

func TestSearchAndRedirect(t *testing.T) {
	h := newTestHandlers(
		&fakeBackend{items: []classify.Item{{Link: productURL}}},
		&models.ExtractionOutcome{
			Price:    models.Float64Ptr(24999),
			Currency: "TRY",
			Title:    "Canon PowerShot G7X Mark III",
			Status:   models.StatusSuccess,
		},
	)

	req := httptest.NewRequest("GET", "/search-and-redirect?product=Canon+G7X&marketplace=Trendyol", nil)
	w := httptest.NewRecorder()
	h.SearchAndRedirect(w, req)

	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, productURL, w.Header().Get("Location"))
}

func TestSearchAndRedirectNotFound(t *testing.T) {
	h := newTestHandlers(
		&fakeBackend{items: []classify.Item{{Link: productURL}}},
		&models.ExtractionOutcome{Status: models.StatusNotFound},
	)

	req := httptest.NewRequest("GET", "/search-and-redirect?product=Canon+G7X&marketplace=Trendyol", nil)
	w := httptest.NewRecorder()
	h.SearchAndRedirect(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSearchAndRedirectUpstreamError(t *testing.T) {
	h := newTestHandlers(&fakeBackend{err: errors.New("api quota exceeded")}, nil)

	req := httptest.NewRequest("GET", "/search-and-redirect?product=Canon+G7X&marketplace=Trendyol", nil)
	w := httptest.NewRecorder()
	h.SearchAndRedirect(w, req)

	assert.Equal(t, http.StatusBadGateway, w.Code)
}

func TestSearchAndRedirectUpstreamTimeout(t *testing.T) {
	h := newTestHandlers(&fakeBackend{err: context.DeadlineExceeded}, nil)

	req := httptest.NewRequest("GET", "/search-and-redirect?product=Canon+G7X&marketplace=Trendyol", nil)
	w := httptest.NewRecorder()
	h.SearchAndRedirect(w, req)

	assert.Equal(t, http.StatusGatewayTimeout, w.Code)
}

func TestSearchAndRedirectValidatesInput(t *testing.T) {
	h := newTestHandlers(&fakeBackend{}, nil)

	tests := []struct {
		name   string
		target string
	}{
		{"missing product", "/search-and-redirect?marketplace=Trendyol"},
		{"unknown marketplace", "/search-and-redirect?product=Canon&marketplace=Ebay"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", tt.target, nil)
			w := httptest.NewRecorder()
			h.SearchAndRedirect(w, req)
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestResolveReturnsJSON(t *testing.T) {
	h := newTestHandlers(
		&fakeBackend{items: []classify.Item{{Link: productURL}}},
		&models.ExtractionOutcome{
			Price:    models.Float64Ptr(24999),
			Currency: "TRY",
			Title:    "Canon PowerShot G7X Mark III",
			Status:   models.StatusSuccess,
		},
	)

	req := httptest.NewRequest("GET", "/api/v1/resolve?product=Canon+G7X&marketplace=Trendyol&reference_price=25000", nil)
	w := httptest.NewRecorder()
	h.Resolve(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var resp ResolveResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, productURL, resp.URL)
	require.NotNil(t, resp.Price)
	assert.InDelta(t, 24999.0, *resp.Price, 0.001)
}
