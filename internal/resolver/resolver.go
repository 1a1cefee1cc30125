package resolver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/oyilmaz/priceradar/internal/cache"
	"github.com/oyilmaz/priceradar/internal/classify"
	"github.com/oyilmaz/priceradar/internal/extract"
	"github.com/oyilmaz/priceradar/internal/models"
	"github.com/oyilmaz/priceradar/internal/search"
	"github.com/oyilmaz/priceradar/internal/similarity"
	"github.com/oyilmaz/priceradar/internal/validate"
)

// Terminal failure reasons attached to unresolved pairs. These are
// data, not errors: a failed pair is still a reported outcome.
const (
	ReasonNoSearchResults  = "no search results"
	ReasonNoLinks          = "no marketplace links and direct search failed"
	ReasonValidationFailed = "price validation failed"
	ReasonSimilarityTooLow = "similarity too low"
	ReasonNoValidPrice     = "no valid price found and direct search failed"
	ReasonUpstreamError    = "search backend error"
	ReasonUpstreamTimeout  = "search backend timeout"
	ReasonUnknownExtractor = "no extractor for marketplace"
)

// SearchBackend produces raw candidate items for a query.
type SearchBackend interface {
	Search(ctx context.Context, query string) ([]classify.Item, error)
}

// DirectSearcher is the storefront fallback when web search yields
// nothing usable.
type DirectSearcher interface {
	Search(ctx context.Context, marketplace models.Marketplace, product models.ProductRecord) (*search.DirectResult, error)
}

// Options carry the similarity thresholds; zero values fall back to
// the standard policy.
type Options struct {
	SimilarityReject    float64 // below this a candidate is dropped
	SimilarityConfident float64 // below this a result is flagged low-confidence
}

// Resolver runs the per-pair state machine: query search, classify and
// rank candidates, walk them through extraction and validation, and
// fall back to the marketplace's own search when nothing passes.
type Resolver struct {
	backend   SearchBackend
	direct    DirectSearcher
	registry  extract.Registry
	validator *validate.PriceValidator
	cache     *cache.Cache
	opts      Options
	logger    *slog.Logger
}

func New(backend SearchBackend, direct DirectSearcher, registry extract.Registry, validator *validate.PriceValidator, resultCache *cache.Cache, opts Options) *Resolver {
	if opts.SimilarityReject <= 0 {
		opts.SimilarityReject = 0.40
	}
	if opts.SimilarityConfident <= 0 {
		opts.SimilarityConfident = 0.60
	}
	return &Resolver{
		backend:   backend,
		direct:    direct,
		registry:  registry,
		validator: validator,
		cache:     resultCache,
		opts:      opts,
		logger:    slog.Default().With("component", "resolver"),
	}
}

// Resolve settles one product×marketplace pair. It never returns an
// error: every outcome, including failure, is a ResolvedResult.
func (r *Resolver) Resolve(ctx context.Context, product models.ProductRecord, marketplace models.Marketplace) *models.ResolvedResult {
	if cached, ok := r.cache.Get(ctx, marketplace, product.Name); ok {
		r.logger.Debug("cache hit", "product", product.Name, "marketplace", string(marketplace))
		return cached
	}

	result := r.resolve(ctx, product, marketplace)
	result.ResolvedAt = time.Now().UTC()
	r.cache.Set(ctx, result)
	return result
}

func (r *Resolver) resolve(ctx context.Context, product models.ProductRecord, marketplace models.Marketplace) *models.ResolvedResult {
	extractor, ok := r.registry[marketplace]
	if !ok {
		return r.failure(product, marketplace, ReasonUnknownExtractor)
	}

	query := fmt.Sprintf("%s %s", product.Name, marketplace)
	items, err := r.backend.Search(ctx, query)
	if err != nil {
		switch {
		case errors.Is(err, search.ErrNoResults):
			// Nothing indexed for the query; the storefront may still
			// know the product.
			if result := r.directFallback(ctx, product, marketplace); result != nil {
				return result
			}
			return r.failure(product, marketplace, ReasonNoSearchResults)
		case errors.Is(err, context.DeadlineExceeded):
			return r.failure(product, marketplace, ReasonUpstreamTimeout)
		default:
			r.logger.Warn("search backend failed", "query", query, "error", err)
			return r.failure(product, marketplace, ReasonUpstreamError)
		}
	}

	candidates := classify.Rank(items, marketplace)
	if len(candidates) == 0 {
		if result := r.directFallback(ctx, product, marketplace); result != nil {
			return result
		}
		return r.failure(product, marketplace, ReasonNoLinks)
	}

	lastReason := ReasonNoValidPrice
	for _, candidate := range candidates {
		outcome := extractor.Extract(ctx, candidate.ResolvedURL)
		if !outcome.Found() {
			r.logger.Debug("candidate yielded no price",
				"url", candidate.ResolvedURL,
				"status", string(outcome.Status))
			continue
		}

		if !r.validator.IsValid(outcome.Price, product.ReferencePrice) {
			r.logger.Debug("candidate price outside tolerance",
				"url", candidate.ResolvedURL,
				"price", *outcome.Price)
			lastReason = ReasonValidationFailed
			continue
		}

		lowConfidence := false
		if marketplace == models.MarketplaceAmazon && outcome.Title != "" {
			score := similarity.Score(product.Name, outcome.Title)
			if score < r.opts.SimilarityReject {
				r.logger.Debug("candidate title too dissimilar",
					"url", candidate.ResolvedURL,
					"title", outcome.Title,
					"score", score)
				lastReason = ReasonSimilarityTooLow
				continue
			}
			lowConfidence = score < r.opts.SimilarityConfident
		}

		return &models.ResolvedResult{
			ProductName:   product.Name,
			Marketplace:   marketplace,
			URL:           candidate.ResolvedURL,
			Price:         outcome.Price,
			Currency:      outcome.Currency,
			Title:         outcome.Title,
			Success:       true,
			LowConfidence: lowConfidence,
		}
	}

	if result := r.directFallback(ctx, product, marketplace); result != nil {
		return result
	}
	return r.failure(product, marketplace, lastReason)
}

// directFallback runs the storefront search and applies the same
// validator and similarity policy before accepting. Nil means the
// fallback produced nothing acceptable.
func (r *Resolver) directFallback(ctx context.Context, product models.ProductRecord, marketplace models.Marketplace) *models.ResolvedResult {
	if r.direct == nil {
		return nil
	}

	hit, err := r.direct.Search(ctx, marketplace, product)
	if err != nil || hit == nil || hit.Price == nil {
		return nil
	}

	if !r.validator.IsValid(hit.Price, product.ReferencePrice) {
		r.logger.Debug("direct hit outside tolerance",
			"marketplace", string(marketplace),
			"price", *hit.Price)
		return nil
	}

	// Same policy as the candidate walk: only Amazon gets the title
	// gate. Result cards on the Turkish storefronts truncate titles
	// hard enough to sink genuine matches.
	lowConfidence := false
	if marketplace == models.MarketplaceAmazon && hit.Title != "" {
		score := similarity.Score(product.Name, hit.Title)
		if score < r.opts.SimilarityReject {
			return nil
		}
		lowConfidence = score < r.opts.SimilarityConfident
	}

	currency := hit.Currency
	if currency == "" {
		currency = "TRY"
	}
	return &models.ResolvedResult{
		ProductName:   product.Name,
		Marketplace:   marketplace,
		URL:           hit.URL,
		Price:         hit.Price,
		Currency:      currency,
		Title:         hit.Title,
		Success:       true,
		LowConfidence: lowConfidence,
	}
}

func (r *Resolver) failure(product models.ProductRecord, marketplace models.Marketplace, reason string) *models.ResolvedResult {
	r.logger.Info("pair unresolved",
		"product", product.Name,
		"marketplace", string(marketplace),
		"reason", reason)
	return &models.ResolvedResult{
		ProductName: product.Name,
		Marketplace: marketplace,
		Success:     false,
		Error:       reason,
	}
}
