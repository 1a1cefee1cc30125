package classify

import (
	"net/url"
	"strings"

	"github.com/oyilmaz/priceradar/internal/models"
)

// Item is one raw search-backend result before classification.
type Item struct {
	Link        string `json:"link"`
	Title       string `json:"title"`
	Snippet     string `json:"snippet"`
	HTMLTitle   string `json:"htmlTitle"`
	HTMLSnippet string `json:"htmlSnippet"`
	DisplayLink string `json:"displayLink"`
}

var sponsoredDomains = []string{
	"googleadservices.com",
	"doubleclick.net",
	"googlesyndication.com",
	"/aclk",
	"adservice",
	"ads.google",
}

var sponsoredKeywords = []string{
	"sponsored",
	"advertisement",
	"ad",
	"reklam",
	"sponsorlu",
	"ilan",
	"promoted",
}

var amazonDomains = []string{
	"amazon.com",
	"amazon.com.tr",
	"amazon.co.uk",
	"amazon.de",
	"amazon.fr",
	"amazon.it",
	"amazon.es",
}

// ResolveRealURL unwraps search-engine redirect links. Targets can be
// percent-encoded twice (%25C3%25BC -> %C3%BC -> ü), so decoding is
// applied a second time when encoded characters remain.
func ResolveRealURL(raw string) string {
	if !strings.Contains(strings.ToLower(raw), "google.com/url") {
		return raw
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return raw
	}

	target := parsed.Query().Get("url")
	if target == "" {
		return raw
	}

	decoded, err := url.QueryUnescape(target)
	if err != nil {
		return target
	}
	if strings.Contains(decoded, "%") {
		if again, err := url.QueryUnescape(decoded); err == nil {
			decoded = again
		}
	}
	return decoded
}

// IsSponsored reports whether a search item is a paid placement, judged
// from ad-serving domains, sponsorship markers in the visible text, and
// ad-flavored display links.
func IsSponsored(item Item) bool {
	link := strings.ToLower(item.Link)
	for _, domain := range sponsoredDomains {
		if strings.Contains(link, domain) {
			return true
		}
	}

	allText := strings.ToLower(item.Title + " " + item.Snippet + " " + item.HTMLTitle + " " + item.HTMLSnippet)
	for _, keyword := range sponsoredKeywords {
		if containsWord(allText, keyword) {
			return true
		}
	}

	display := strings.ToLower(item.DisplayLink)
	for _, keyword := range []string{"ad", "ads", "reklam"} {
		if containsWord(display, keyword) {
			return true
		}
	}

	return false
}

// containsWord matches keyword as a whole token so that e.g. "ad" does
// not fire on "Adana" or "upload".
func containsWord(text, keyword string) bool {
	fields := strings.FieldsFunc(text, func(r rune) bool {
		return r == ' ' || r == '.' || r == ',' || r == '-' || r == '/' || r == ':' || r == '|' || r == '(' || r == ')'
	})
	for _, f := range fields {
		if f == keyword {
			return true
		}
	}
	return false
}

// MatchesMarketplace reports whether a resolved URL belongs to the
// marketplace's own domain(s).
func MatchesMarketplace(rawURL string, marketplace models.Marketplace) bool {
	link := strings.ToLower(rawURL)
	switch marketplace {
	case models.MarketplaceAmazon:
		for _, domain := range amazonDomains {
			if strings.Contains(link, domain) {
				return true
			}
		}
		return false
	case models.MarketplaceTrendyol:
		return strings.Contains(link, "trendyol.com")
	case models.MarketplaceHepsiburada:
		return strings.Contains(link, "hepsiburada.com")
	case models.MarketplaceTeknosa:
		return strings.Contains(link, "teknosa.com")
	}
	return false
}

// PageTypeFor classifies a marketplace URL as a product page, a
// category/listing page, or neither. Each site has its own URL grammar.
func PageTypeFor(rawURL string, marketplace models.Marketplace) models.PageType {
	link := strings.ToLower(rawURL)

	var product, category bool
	switch marketplace {
	case models.MarketplaceAmazon:
		product = containsAny(link, "/dp/", "/gp/product/", "/product/")
		category = containsAny(link, "/s?", "/s/", "/gp/browse/", "/b/")
	case models.MarketplaceTrendyol:
		product = containsAny(link, "/p/", "/brand/") || strings.Contains(link, "-p-")
		category = containsAny(link, "/sr", "/kategori", "/arama")
	case models.MarketplaceHepsiburada:
		category = containsAny(link, "/liste", "/kategori", "/arama", "-x-s", "-xc-", "/c-", "?sayfa=")
		product = containsAny(link, "/p/", "/urun/", "-pm-", "-p-") ||
			strings.Contains(strings.ToUpper(link), "-HB") ||
			(strings.Count(link, "-") >= 5 && !strings.Contains(link, "?sayfa="))
	case models.MarketplaceTeknosa:
		product = strings.Contains(link, "-p-")
		category = containsAny(link, "-bc-", "/magaza/", "/kategori/")
	}

	// Category grammar wins on overlap: a long slug inside a listing
	// path is still a listing.
	if category {
		return models.PageTypeCategory
	}
	if product {
		return models.PageTypeProduct
	}
	return models.PageTypeUnknown
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// Rank classifies raw search items for one marketplace and returns the
// candidates the orchestrator should try, highest priority first:
// product pages, then organic unknown-shape links, then category pages.
// Sponsored product pages are kept; sponsored category pages and
// sponsored ambiguous links are dropped (Hepsiburada keeps sponsored
// slugs with at least three dashes, which are product pages in
// practice). Links outside the marketplace are dropped.
func Rank(items []Item, marketplace models.Marketplace) []models.SearchCandidate {
	var productPages, normal, categoryPages []models.SearchCandidate

	for idx, item := range items {
		resolved := ResolveRealURL(item.Link)
		if !MatchesMarketplace(resolved, marketplace) {
			continue
		}

		candidate := models.SearchCandidate{
			RawURL:      item.Link,
			ResolvedURL: resolved,
			Title:       item.Title,
			Rank:        idx + 1,
			Sponsored:   IsSponsored(item),
			PageType:    PageTypeFor(resolved, marketplace),
		}

		switch {
		case candidate.Sponsored && candidate.PageType == models.PageTypeProduct:
			productPages = append(productPages, candidate)
		case candidate.Sponsored && candidate.PageType == models.PageTypeCategory:
			continue
		case candidate.Sponsored:
			if marketplace == models.MarketplaceHepsiburada &&
				strings.Count(strings.ToLower(resolved), "-") >= 3 {
				normal = append(normal, candidate)
				continue
			}
			continue
		case candidate.PageType == models.PageTypeProduct:
			productPages = append(productPages, candidate)
		case candidate.PageType == models.PageTypeCategory:
			categoryPages = append(categoryPages, candidate)
		default:
			normal = append(normal, candidate)
		}
	}

	ranked := make([]models.SearchCandidate, 0, len(productPages)+len(normal)+len(categoryPages))
	ranked = append(ranked, productPages...)
	ranked = append(ranked, normal...)
	ranked = append(ranked, categoryPages...)
	return ranked
}
