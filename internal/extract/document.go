package extract

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/oyilmaz/priceradar/internal/normalize"
)

// SiteRules parameterize the shared extraction ladder per marketplace.
type SiteRules struct {
	// PriceAttributes are element attributes that carry the price
	// directly (cheapest, most reliable pass).
	PriceAttributes []string
	// PriceSelectors are site-specific CSS selectors tried before the
	// generic *price* patterns.
	PriceSelectors []string
	// TitleSelectors are site-specific title selectors tried before
	// the shared h1 / JSON-LD / og:title / <title> ladder.
	TitleSelectors []string
	// ComposePrice is an optional extra pass for prices split across
	// elements (Amazon's whole/fraction spans).
	ComposePrice func(doc *goquery.Document) *float64
}

// Document wraps one fetched page.
type Document struct {
	doc *goquery.Document
}

func ParseDocument(html string) (*Document, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, err
	}
	return &Document{doc: doc}, nil
}

// Inline-script price keys seen across the supported marketplaces.
// A decimal part is required so ids and counts do not match.
var scriptPricePattern = regexp.MustCompile(`(?i)["']?(?:price|sellingPrice|discountedPrice|finalPrice|currentPrice|salePrice|offeringPrice|listPrice|priceAmount|displayPrice|productPrice|amount)["']?\s*:\s*["']?(\d{1,3}(?:\.\d{3})+(?:,\d+)?|\d+[.,]\d+)`)

var freeTextPricePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(\d{1,3}(?:\.\d{3})*(?:,\d{2})?)\s*(?:TL|₺|tl)`),
	regexp.MustCompile(`(?:TL|₺|tl)\s*(\d{1,3}(?:\.\d{3})*(?:,\d{2})?)`),
}

var genericPriceSelectors = []string{
	"span[class*='price']",
	"div[class*='price']",
	".price",
	".product-price",
	"[data-test*='price']",
	"[data-testid*='price']",
}

// Price walks the extraction ladder, first match wins: direct
// attributes, JSON-LD product data, inline scripts, CSS selectors
// (site-specific then generic), and finally a free-text scan picking
// the largest currency-tagged value.
func (d *Document) Price(rules SiteRules) (*float64, string) {
	if p := d.priceFromAttributes(rules.PriceAttributes); p != nil {
		return p, ""
	}
	if p, currency := d.priceFromJSONLD(); p != nil {
		return p, currency
	}
	if p := d.priceFromScripts(); p != nil {
		return p, ""
	}
	if p := d.priceFromSelectors(rules.PriceSelectors, false); p != nil {
		return p, ""
	}
	if rules.ComposePrice != nil {
		if p := rules.ComposePrice(d.doc); p != nil {
			return p, ""
		}
	}
	if p := d.priceFromSelectors(genericPriceSelectors, true); p != nil {
		return p, ""
	}
	return d.priceFromText(), ""
}

// Title walks the title ladder: site selectors, h1, JSON-LD name,
// og:title, then the document title.
func (d *Document) Title(rules SiteRules) string {
	for _, selector := range rules.TitleSelectors {
		if text := strings.TrimSpace(d.doc.Find(selector).First().Text()); text != "" {
			return text
		}
	}
	if text := strings.TrimSpace(d.doc.Find("h1").First().Text()); text != "" {
		return text
	}
	if name := d.nameFromJSONLD(); name != "" {
		return name
	}
	if content, ok := d.doc.Find(`meta[property="og:title"]`).First().Attr("content"); ok {
		if text := strings.TrimSpace(content); text != "" {
			return text
		}
	}
	return strings.TrimSpace(d.doc.Find("title").First().Text())
}

func (d *Document) priceFromAttributes(attributes []string) *float64 {
	var found *float64
	for _, attr := range attributes {
		d.doc.Find("[" + attr + "]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
			value, _ := s.Attr(attr)
			if p, err := normalize.Price(value); err == nil {
				found = &p
				return false
			}
			return true
		})
		if found != nil {
			return found
		}
	}
	return nil
}

type ldOffer struct {
	Price         ldNumber `json:"price"`
	PriceCurrency string   `json:"priceCurrency"`
}

// ldNumber accepts the price both as a JSON number and as the quoted
// string some storefronts emit.
type ldNumber string

func (n *ldNumber) UnmarshalJSON(data []byte) error {
	*n = ldNumber(strings.Trim(string(data), `"`))
	return nil
}

type ldProduct struct {
	Name   string          `json:"name"`
	Offers json.RawMessage `json:"offers"`
}

func (d *Document) priceFromJSONLD() (*float64, string) {
	var price *float64
	currency := ""

	d.doc.Find(`script[type="application/ld+json"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		var product ldProduct
		if err := json.Unmarshal([]byte(s.Text()), &product); err != nil {
			return true
		}
		if len(product.Offers) == 0 {
			return true
		}

		// offers is a single object or a list of them
		var offer ldOffer
		if err := json.Unmarshal(product.Offers, &offer); err != nil {
			var offers []ldOffer
			if err := json.Unmarshal(product.Offers, &offers); err != nil || len(offers) == 0 {
				return true
			}
			offer = offers[0]
		}

		value, err := strconv.ParseFloat(string(offer.Price), 64)
		if err != nil || !normalize.Plausible(value) {
			return true
		}
		price = &value
		currency = offer.PriceCurrency
		return false
	})

	return price, currency
}

func (d *Document) nameFromJSONLD() string {
	name := ""
	d.doc.Find(`script[type="application/ld+json"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		var product ldProduct
		if err := json.Unmarshal([]byte(s.Text()), &product); err != nil {
			return true
		}
		if product.Name != "" {
			name = product.Name
			return false
		}
		return true
	})
	return name
}

func (d *Document) priceFromScripts() *float64 {
	var found *float64
	d.doc.Find("script").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		text := s.Text()
		if text == "" {
			return true
		}
		for _, match := range scriptPricePattern.FindAllStringSubmatch(text, -1) {
			if p, err := normalize.Price(match[1]); err == nil {
				found = &p
				return false
			}
		}
		return true
	})
	return found
}

// priceFromSelectors reads element text under the given selectors. In
// the generic pass the text must carry a currency tag and stay short,
// otherwise unrelated numbers all over the page would match.
func (d *Document) priceFromSelectors(selectors []string, requireCurrency bool) *float64 {
	var found *float64
	for _, selector := range selectors {
		d.doc.Find(selector).EachWithBreak(func(_ int, s *goquery.Selection) bool {
			text := strings.TrimSpace(s.Text())
			if text == "" || len(text) < 3 {
				return true
			}
			if requireCurrency {
				lower := strings.ToLower(text)
				if (!strings.Contains(lower, "tl") && !strings.Contains(text, "₺")) || len(text) > 50 {
					return true
				}
			}
			if p, err := normalize.DisplayPrice(text); err == nil {
				found = &p
				return false
			}
			return true
		})
		if found != nil {
			return found
		}
	}
	return nil
}

// priceFromText is the last resort: scan the page text for
// currency-tagged numbers and take the largest plausible one. The
// price is usually the largest currency-tagged number on a product
// page.
func (d *Document) priceFromText() *float64 {
	text := d.doc.Text()

	best := 0.0
	found := false
	for _, pattern := range freeTextPricePatterns {
		for _, match := range pattern.FindAllStringSubmatch(text, -1) {
			raw := match[1]
			digits := strings.NewReplacer(".", "", ",", "").Replace(raw)
			if len(digits) < 3 {
				continue
			}
			value, err := normalize.DisplayPrice(raw)
			if err != nil {
				continue
			}
			if value > best {
				best = value
				found = true
			}
		}
	}

	if !found {
		return nil
	}
	return &best
}
