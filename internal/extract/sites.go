package extract

import (
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/oyilmaz/priceradar/internal/fetch"
	"github.com/oyilmaz/priceradar/internal/models"
	"github.com/oyilmaz/priceradar/internal/normalize"
)

// Registry maps marketplaces to their extractor. Selection by lookup,
// not inheritance.
type Registry map[models.Marketplace]Extractor

// Deps are the shared fetch strategies the sites pick from.
type Deps struct {
	Plain       fetch.Fetcher
	Fingerprint fetch.Fetcher
	Browser     fetch.Fetcher
	Currency    string
}

// NewRegistry wires the four marketplace extractors. Each site keeps
// its own retry/latency trade-off: Trendyol and Amazon take a couple
// of cheap retries, Teknosa retries through its bot filter with
// backoff, Hepsiburada renders once in the browser and moves on.
func NewRegistry(deps Deps) Registry {
	return Registry{
		models.MarketplaceTrendyol:    NewTrendyol(deps),
		models.MarketplaceHepsiburada: NewHepsiburada(deps),
		models.MarketplaceTeknosa:     NewTeknosa(deps),
		models.MarketplaceAmazon:      NewAmazon(deps),
	}
}

func NewTrendyol(deps Deps) Extractor {
	return NewSiteExtractor(Site{
		Marketplace:     models.MarketplaceTrendyol,
		MaxRetries:      2,
		Timeout:         15 * time.Second,
		FinalTimeout:    25 * time.Second,
		InitialDelay:    300 * time.Millisecond,
		RetryDelay:      time.Second,
		Fetcher:         deps.Plain,
		DefaultCurrency: deps.Currency,
		Rules: SiteRules{
			PriceSelectors: []string{
				".pr-new-br",
				".pr-bx-w-dscntd",
				".prc-org",
				".prc-dsc",
				".product-price-container",
			},
		},
	})
}

func NewHepsiburada(deps Deps) Extractor {
	return NewSiteExtractor(Site{
		Marketplace: models.MarketplaceHepsiburada,
		// No retries: the page only renders client-side, and a second
		// render costs seconds for little gain.
		MaxRetries:      0,
		Timeout:         25 * time.Second,
		Fetcher:         deps.Browser,
		DefaultCurrency: deps.Currency,
		Rules: SiteRules{
			PriceSelectors: []string{
				"[data-test-id='price-current-price']",
				"span[data-test-id='price-current-price']",
				"[data-test-id='price']",
				"#offering-price",
				"span[class*='price'][class*='current']",
				"span[class*='current-price']",
			},
		},
	})
}

func NewTeknosa(deps Deps) Extractor {
	return NewSiteExtractor(Site{
		Marketplace:     models.MarketplaceTeknosa,
		MaxRetries:      3,
		Timeout:         15 * time.Second,
		InitialDelay:    300 * time.Millisecond,
		RetryDelay:      time.Second,
		BotBackoffMin:   2 * time.Second,
		BotBackoffMax:   5 * time.Second,
		Fetcher:         deps.Fingerprint,
		DefaultCurrency: deps.Currency,
		Rules: SiteRules{
			PriceAttributes: []string{
				"data-product-price",
				"data-price-with-discount",
				"data-price-without-discount",
			},
			PriceSelectors: []string{
				".prd-prc",
				".product-price",
				".price-tag",
			},
		},
	})
}

func NewAmazon(deps Deps) Extractor {
	return NewSiteExtractor(Site{
		Marketplace:  models.MarketplaceAmazon,
		MaxRetries:   2,
		Timeout:      15 * time.Second,
		FinalTimeout: 25 * time.Second,
		InitialDelay: 300 * time.Millisecond,
		RetryDelay:   time.Second,
		Fetcher:      deps.Plain,
		// Amazon hides the price from plain clients often enough that
		// the last attempt goes through the headless browser.
		FinalFetcher:    deps.Browser,
		DefaultCurrency: deps.Currency,
		Rules: SiteRules{
			PriceAttributes: []string{"data-asin-price"},
			PriceSelectors: []string{
				"#priceblock_ourprice",
				"#priceblock_dealprice",
				"#priceblock_saleprice",
				".a-price .a-offscreen",
				"span[data-asin-price]",
			},
			TitleSelectors: []string{
				"#productTitle",
				"h1#title",
				"span#productTitle",
			},
			ComposePrice: amazonWholeFraction,
		},
	})
}

// amazonWholeFraction combines the split whole/fraction price spans.
func amazonWholeFraction(doc *goquery.Document) *float64 {
	whole := strings.TrimSpace(doc.Find("span.a-price-whole").First().Text())
	if whole == "" {
		return nil
	}
	whole = strings.NewReplacer(".", "", ",", "").Replace(whole)

	fraction := strings.TrimSpace(doc.Find("span.a-price-fraction").First().Text())

	text := whole
	if fraction != "" {
		text = whole + "," + fraction
	}
	value, err := normalize.Price(text)
	if err != nil {
		return nil
	}
	return &value
}
