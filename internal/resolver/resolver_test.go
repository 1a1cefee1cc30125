package resolver

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oyilmaz/priceradar/internal/classify"
	"github.com/oyilmaz/priceradar/internal/extract"
	"github.com/oyilmaz/priceradar/internal/models"
	"github.com/oyilmaz/priceradar/internal/search"
	"github.com/oyilmaz/priceradar/internal/validate"
)

type fakeBackend struct {
	items []classify.Item
	err   error
}

func (f *fakeBackend) Search(context.Context, string) ([]classify.Item, error) {
	return f.items, f.err
}

type fakeDirect struct {
	result *search.DirectResult
	err    error
	calls  int
}

func (f *fakeDirect) Search(context.Context, models.Marketplace, models.ProductRecord) (*search.DirectResult, error) {
	f.calls++
	return f.result, f.err
}

// fakeExtractor maps URLs to canned outcomes and records visit order.
type fakeExtractor struct {
	marketplace models.Marketplace
	outcomes    map[string]*models.ExtractionOutcome
	visited     []string
}

func (f *fakeExtractor) Marketplace() models.Marketplace { return f.marketplace }

func (f *fakeExtractor) Extract(_ context.Context, pageURL string) *models.ExtractionOutcome {
	f.visited = append(f.visited, pageURL)
	if outcome, ok := f.outcomes[pageURL]; ok {
		return outcome
	}
	return &models.ExtractionOutcome{Status: models.StatusNotFound, Message: "no valid price token on page"}
}

func newTestResolver(backend SearchBackend, direct DirectSearcher, extractor extract.Extractor) *Resolver {
	registry := extract.Registry{extractor.Marketplace(): extractor}
	return New(backend, direct, registry, validate.NewPriceValidator(validate.DefaultTolerance), nil, Options{})
}

func success(price float64, title string) *models.ExtractionOutcome {
	return &models.ExtractionOutcome{
		Price:    models.Float64Ptr(price),
		Currency: "TRY",
		Title:    title,
		Status:   models.StatusSuccess,
	}
}

func TestResolvePicksOrganicProductPageOverSponsoredCategory(t *testing.T) {
	productURL := "https://www.trendyol.com/canon/powershot-g7x-mark-iii-p-32041243"
	backend := &fakeBackend{items: []classify.Item{
		{
			Link:    "https://www.trendyol.com/sr?q=canon&sst=BEST_SELLER",
			Title:   "Canon Kamera Modelleri - Sponsorlu",
			Snippet: "Reklam",
		},
		{
			Link:  productURL,
			Title: "Canon PowerShot G7X Mark III Fiyatı",
		},
	}}
	extractor := &fakeExtractor{
		marketplace: models.MarketplaceTrendyol,
		outcomes: map[string]*models.ExtractionOutcome{
			productURL: success(24999, "Canon PowerShot G7X Mark III"),
		},
	}
	r := newTestResolver(backend, nil, extractor)

	result := r.Resolve(context.Background(), models.ProductRecord{Name: "Canon Powershot G7X Mark III"}, models.MarketplaceTrendyol)

	require.True(t, result.Success)
	assert.Equal(t, productURL, result.URL)
	require.NotNil(t, result.Price)
	assert.InDelta(t, 24999.0, *result.Price, 0.001)
	// The sponsored category link must never be fetched.
	assert.Equal(t, []string{productURL}, extractor.visited)
}

func TestResolveSkipsCandidateFailingValidation(t *testing.T) {
	cheapURL := "https://www.trendyol.com/aksesuar/g7x-kilif-p-1"
	goodURL := "https://www.trendyol.com/canon/powershot-g7x-p-2"
	backend := &fakeBackend{items: []classify.Item{
		{Link: cheapURL},
		{Link: goodURL},
	}}
	extractor := &fakeExtractor{
		marketplace: models.MarketplaceTrendyol,
		outcomes: map[string]*models.ExtractionOutcome{
			cheapURL: success(299, "G7X Kılıf"),
			goodURL:  success(24999, "Canon PowerShot G7X Mark III"),
		},
	}
	r := newTestResolver(backend, nil, extractor)

	result := r.Resolve(context.Background(), models.ProductRecord{
		Name:           "Canon Powershot G7X Mark III",
		ReferencePrice: models.Float64Ptr(25000),
	}, models.MarketplaceTrendyol)

	require.True(t, result.Success)
	assert.Equal(t, goodURL, result.URL)
	assert.Equal(t, []string{cheapURL, goodURL}, extractor.visited)
}

func TestResolveAmazonSimilarityGate(t *testing.T) {
	wrongURL := "https://www.amazon.com.tr/dp/B001WRONG"
	rightURL := "https://www.amazon.com.tr/dp/B002RIGHT"
	backend := &fakeBackend{items: []classify.Item{
		{Link: wrongURL},
		{Link: rightURL},
	}}
	extractor := &fakeExtractor{
		marketplace: models.MarketplaceAmazon,
		outcomes: map[string]*models.ExtractionOutcome{
			wrongURL: success(24999, "Nikon Coolpix P950 Kompakt Fotoğraf Makinesi"),
			rightURL: success(24999, "Canon PowerShot G7X Mark III Dijital Kamera"),
		},
	}
	r := newTestResolver(backend, nil, extractor)

	result := r.Resolve(context.Background(), models.ProductRecord{Name: "Canon PowerShot G7X Mark III"}, models.MarketplaceAmazon)

	require.True(t, result.Success)
	assert.Equal(t, rightURL, result.URL)
}

func TestResolveFallsBackToDirectSearch(t *testing.T) {
	backend := &fakeBackend{err: search.ErrNoResults}
	direct := &fakeDirect{result: &search.DirectResult{
		URL:   "https://www.amazon.com.tr/dp/B002RIGHT",
		Price: models.Float64Ptr(24999),
		Title: "Canon PowerShot G7X Mark III Dijital Kamera",
	}}
	extractor := &fakeExtractor{marketplace: models.MarketplaceAmazon}
	r := newTestResolver(backend, direct, extractor)

	result := r.Resolve(context.Background(), models.ProductRecord{Name: "Canon PowerShot G7X Mark III"}, models.MarketplaceAmazon)

	require.True(t, result.Success)
	assert.Equal(t, 1, direct.calls)
	require.NotNil(t, result.Price)
	assert.InDelta(t, 24999.0, *result.Price, 0.001)
	assert.Equal(t, "TRY", result.Currency)
}

func TestResolveNoSearchResultsAndNoDirectHit(t *testing.T) {
	backend := &fakeBackend{err: search.ErrNoResults}
	direct := &fakeDirect{err: search.ErrDirectSearchFailed}
	extractor := &fakeExtractor{marketplace: models.MarketplaceTrendyol}
	r := newTestResolver(backend, direct, extractor)

	result := r.Resolve(context.Background(), models.ProductRecord{Name: "Nonexistent Gadget"}, models.MarketplaceTrendyol)

	assert.False(t, result.Success)
	assert.Equal(t, ReasonNoSearchResults, result.Error)
}

func TestResolveNoMarketplaceLinks(t *testing.T) {
	backend := &fakeBackend{items: []classify.Item{
		{Link: "https://www.epey.com/canon-g7x"},
		{Link: "https://www.cimri.com/kamera"},
	}}
	direct := &fakeDirect{err: search.ErrDirectSearchFailed}
	extractor := &fakeExtractor{marketplace: models.MarketplaceTrendyol}
	r := newTestResolver(backend, direct, extractor)

	result := r.Resolve(context.Background(), models.ProductRecord{Name: "Canon G7X"}, models.MarketplaceTrendyol)

	assert.False(t, result.Success)
	assert.Equal(t, ReasonNoLinks, result.Error)
}

func TestResolveValidationFailureReported(t *testing.T) {
	url := "https://www.trendyol.com/canon/g7x-p-1"
	backend := &fakeBackend{items: []classify.Item{{Link: url}}}
	extractor := &fakeExtractor{
		marketplace: models.MarketplaceTrendyol,
		outcomes: map[string]*models.ExtractionOutcome{
			url: success(500, "Canon PowerShot G7X Mark III"),
		},
	}
	direct := &fakeDirect{err: search.ErrDirectSearchFailed}
	r := newTestResolver(backend, direct, extractor)

	result := r.Resolve(context.Background(), models.ProductRecord{
		Name:           "Canon PowerShot G7X Mark III",
		ReferencePrice: models.Float64Ptr(25000),
	}, models.MarketplaceTrendyol)

	assert.False(t, result.Success)
	assert.Equal(t, ReasonValidationFailed, result.Error)
}

func TestResolveDirectHitTitleGateOnlyAppliesToAmazon(t *testing.T) {
	// A result-card title this terse scores far below the reject
	// threshold against the full product name.
	terseHit := &search.DirectResult{
		URL:   "https://www.trendyol.com/sr?q=canon",
		Price: models.Float64Ptr(24999),
		Title: "Yedek Parça Aksesuar Seti",
	}
	product := models.ProductRecord{Name: "Canon PowerShot G7X Mark III"}

	backend := &fakeBackend{err: search.ErrNoResults}
	trendyol := newTestResolver(backend, &fakeDirect{result: terseHit}, &fakeExtractor{marketplace: models.MarketplaceTrendyol})
	amazon := newTestResolver(backend, &fakeDirect{result: terseHit}, &fakeExtractor{marketplace: models.MarketplaceAmazon})

	result := trendyol.Resolve(context.Background(), product, models.MarketplaceTrendyol)
	require.True(t, result.Success, "non-Amazon direct hit must not be title-gated")
	require.NotNil(t, result.Price)
	assert.InDelta(t, 24999.0, *result.Price, 0.001)

	result = amazon.Resolve(context.Background(), product, models.MarketplaceAmazon)
	assert.False(t, result.Success, "Amazon direct hit with a dissimilar title must be rejected")
}

func TestResolveLowConfidenceBand(t *testing.T) {
	pageURL := "https://www.amazon.com.tr/dp/B002RIGHT"
	product := models.ProductRecord{Name: "Canon PowerShot G7X Mark III"}

	// The one-sided color word holds the title's score below 0.95 while
	// the matched model code keeps it well above 0.60.
	newAmazonResolver := func(opts Options) *Resolver {
		extractor := &fakeExtractor{
			marketplace: models.MarketplaceAmazon,
			outcomes: map[string]*models.ExtractionOutcome{
				pageURL: success(24999, "Canon PowerShot G7X Mark III Siyah"),
			},
		}
		registry := extract.Registry{models.MarketplaceAmazon: extractor}
		backend := &fakeBackend{items: []classify.Item{{Link: pageURL}}}
		return New(backend, nil, registry, validate.NewPriceValidator(validate.DefaultTolerance), nil, opts)
	}

	r := newAmazonResolver(Options{SimilarityReject: 0.40, SimilarityConfident: 0.95})
	result := r.Resolve(context.Background(), product, models.MarketplaceAmazon)
	require.True(t, result.Success)
	assert.True(t, result.LowConfidence, "score inside the band must flag the result")

	r = newAmazonResolver(Options{})
	result = r.Resolve(context.Background(), product, models.MarketplaceAmazon)
	require.True(t, result.Success)
	assert.False(t, result.LowConfidence, "score at or above the confident threshold must clear the flag")
}

func TestResolveDirectHitMustPassValidation(t *testing.T) {
	backend := &fakeBackend{err: search.ErrNoResults}
	direct := &fakeDirect{result: &search.DirectResult{
		Price: models.Float64Ptr(100),
		Title: "Canon PowerShot G7X Mark III",
	}}
	extractor := &fakeExtractor{marketplace: models.MarketplaceTrendyol}
	r := newTestResolver(backend, direct, extractor)

	result := r.Resolve(context.Background(), models.ProductRecord{
		Name:           "Canon PowerShot G7X Mark III",
		ReferencePrice: models.Float64Ptr(25000),
	}, models.MarketplaceTrendyol)

	assert.False(t, result.Success)
}
