package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/oyilmaz/priceradar/internal/fetch"
	"github.com/oyilmaz/priceradar/internal/models"
	"github.com/oyilmaz/priceradar/internal/normalize"
	"github.com/oyilmaz/priceradar/internal/similarity"
)

// ErrDirectSearchFailed means the storefront search produced no usable card.
var ErrDirectSearchFailed = errors.New("direct marketplace search failed")

// DirectResult is a hit from a marketplace's own storefront search.
// URL may be empty when the storefront renders prices without stable
// product links on the result page.
type DirectResult struct {
	URL      string
	Price    *float64
	Currency string
	Title    string
}

// amazonBases covers the storefronts the resolver can be pointed at;
// "tr" is the default.
var amazonBases = map[string]string{
	"tr":  "https://www.amazon.com.tr",
	"com": "https://www.amazon.com",
	"de":  "https://www.amazon.de",
	"uk":  "https://www.amazon.co.uk",
	"fr":  "https://www.amazon.fr",
}

type directSite struct {
	fetcher  fetch.Fetcher
	base     string
	search   string // one %s slot for the escaped query
	cards    []string
	titles   []string
	prices   []string
	link     string
	maxCards int
}

// Direct searches a marketplace's own storefront when the web search
// comes up empty, scoring result cards against the wanted product name
// and returning the best match.
type Direct struct {
	sites  map[models.Marketplace]directSite
	logger *slog.Logger
}

// DirectDeps picks the fetch strategy per storefront, mirroring the
// extractor wiring: plain for Trendyol and Amazon, fingerprint for
// Teknosa, headless browser for Hepsiburada.
type DirectDeps struct {
	Plain         fetch.Fetcher
	Fingerprint   fetch.Fetcher
	Browser       fetch.Fetcher
	AmazonCountry string
}

func NewDirect(deps DirectDeps) *Direct {
	amazonBase, ok := amazonBases[deps.AmazonCountry]
	if !ok {
		amazonBase = amazonBases["tr"]
	}

	return &Direct{
		logger: slog.Default().With("component", "direct-search"),
		sites: map[models.Marketplace]directSite{
			models.MarketplaceTrendyol: {
				fetcher:  deps.Plain,
				base:     "https://www.trendyol.com",
				search:   "https://www.trendyol.com/sr?q=%s",
				cards:    []string{"div.p-card-wrppr", "div[class*='product-card']"},
				titles:   []string{".prdct-desc-cntnr-name", "span.prdct-desc-cntnr-ttl", "h3"},
				prices:   []string{".prc-box-dscntd", ".prc-box-sllng", "div[class*='price']"},
				link:     "a",
				maxCards: 20,
			},
			models.MarketplaceHepsiburada: {
				fetcher:  deps.Browser,
				base:     "https://www.hepsiburada.com",
				search:   "https://www.hepsiburada.com/ara?q=%s",
				cards:    []string{"li[class*='productListContent']", "div[class*='productCard']"},
				titles:   []string{"h3[data-test-id='product-card-name']", "h3", "span[title]"},
				prices:   []string{"div[data-test-id='price-current-price']", "div[data-test-id='final-price']", "div[class*='price']"},
				link:     "a",
				maxCards: 20,
			},
			models.MarketplaceTeknosa: {
				fetcher:  deps.Fingerprint,
				base:     "https://www.teknosa.com",
				search:   "https://www.teknosa.com/arama/?s=%s",
				cards:    []string{"div.prd", "div[class*='product-item']"},
				titles:   []string{".prd-title", "h3", "a[title]"},
				prices:   []string{".prd-prc", "[data-product-price]", "div[class*='price']"},
				link:     "a.prd-link",
				maxCards: 20,
			},
			models.MarketplaceAmazon: {
				fetcher:  deps.Plain,
				base:     amazonBase,
				search:   amazonBase + "/s?k=%s",
				cards:    []string{`div[data-component-type="s-search-result"]`, "div.s-result-item", "div[data-asin]"},
				titles:   []string{"h2 a.a-link-normal span", "h2 a.a-text-normal span", "h2 span", "h2 a"},
				prices:   []string{"span.a-price .a-offscreen", "span.a-price span[aria-hidden='true']", "span[data-a-color='price']", "span.a-price-whole"},
				link:     "h2 a",
				maxCards: 20,
			},
		},
	}
}

// Search queries the storefront, identifier first when the product
// carries one, then by name.
func (d *Direct) Search(ctx context.Context, marketplace models.Marketplace, product models.ProductRecord) (*DirectResult, error) {
	site, ok := d.sites[marketplace]
	if !ok || site.fetcher == nil {
		return nil, fmt.Errorf("%w: no storefront search for %s", ErrDirectSearchFailed, marketplace)
	}

	queries := make([]string, 0, 2)
	if strings.TrimSpace(product.ExternalID) != "" {
		queries = append(queries, strings.TrimSpace(product.ExternalID))
	}
	if strings.TrimSpace(product.Name) != "" {
		queries = append(queries, strings.TrimSpace(product.Name))
	}

	for _, query := range queries {
		best, err := d.searchOnce(ctx, site, query, product.Name)
		if err != nil {
			d.logger.Debug("storefront search attempt failed",
				"marketplace", string(marketplace),
				"query", query,
				"error", err)
			continue
		}
		if best != nil {
			d.logger.Info("storefront search matched",
				"marketplace", string(marketplace),
				"title", best.Title)
			return best, nil
		}
	}
	return nil, ErrDirectSearchFailed
}

func (d *Direct) searchOnce(ctx context.Context, site directSite, query, wantName string) (*DirectResult, error) {
	pageURL := fmt.Sprintf(site.search, url.QueryEscape(query))
	result, err := site.fetcher.Fetch(ctx, pageURL)
	if err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(result.HTML))
	if err != nil {
		return nil, fmt.Errorf("parse result page: %w", err)
	}

	var cards *goquery.Selection
	for _, selector := range site.cards {
		if s := doc.Find(selector); s.Length() > 0 {
			cards = s
			break
		}
	}
	if cards == nil {
		return nil, nil
	}

	var best *DirectResult
	bestScore := -1.0

	cards.EachWithBreak(func(i int, card *goquery.Selection) bool {
		if i >= site.maxCards {
			return false
		}

		title := firstText(card, site.titles)
		if title == "" {
			return true
		}

		candidate := &DirectResult{
			Title:    title,
			Currency: "TRY",
			URL:      cardLink(card, site),
			Price:    cardPrice(card, site.prices),
		}

		score := similarity.Score(wantName, title)
		if score > bestScore {
			bestScore = score
			best = candidate
		}
		return true
	})

	if best == nil || best.Price == nil {
		return nil, nil
	}
	return best, nil
}

func firstText(card *goquery.Selection, selectors []string) string {
	for _, selector := range selectors {
		if text := strings.TrimSpace(card.Find(selector).First().Text()); text != "" {
			return text
		}
	}
	return ""
}

func cardLink(card *goquery.Selection, site directSite) string {
	href, ok := card.Find(site.link).First().Attr("href")
	if !ok || href == "" {
		return ""
	}
	if !strings.HasPrefix(href, "http") {
		return site.base + href
	}
	return href
}

var cardNumberPattern = regexp.MustCompile(`\d{1,3}(?:\.\d{3})*(?:,\d{2})?`)

// cardPrice reads the price selectors first and falls back to the
// largest sufficiently large number in the card text, since result
// cards mix prices with ratings and installment counts.
func cardPrice(card *goquery.Selection, selectors []string) *float64 {
	for _, selector := range selectors {
		text := strings.TrimSpace(card.Find(selector).First().Text())
		if text == "" {
			continue
		}
		if value, err := normalize.DisplayPrice(text); err == nil {
			return &value
		}
	}

	best := 0.0
	for _, raw := range cardNumberPattern.FindAllString(card.Text(), -1) {
		value, err := normalize.DisplayPrice(raw)
		if err != nil || value < 100 {
			continue
		}
		if value > best {
			best = value
		}
	}
	if best == 0 {
		return nil
	}
	return &best
}
