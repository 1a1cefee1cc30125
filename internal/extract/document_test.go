package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parse(t *testing.T, html string) *Document {
	t.Helper()
	doc, err := ParseDocument(html)
	require.NoError(t, err)
	return doc
}

func TestPriceFromDirectAttribute(t *testing.T) {
	doc := parse(t, `<html><body>
		<div class="product" data-product-price="12.499,25">Canon G7X</div>
	</body></html>`)

	price, _ := doc.Price(SiteRules{PriceAttributes: []string{"data-product-price"}})
	require.NotNil(t, price)
	assert.InDelta(t, 12499.25, *price, 0.001)
}

func TestPriceFromJSONLD(t *testing.T) {
	tests := []struct {
		name     string
		html     string
		expected float64
		currency string
	}{
		{
			name: "Offers as object",
			html: `<script type="application/ld+json">
				{"@type":"Product","name":"Canon G7X","offers":{"price":"18999.00","priceCurrency":"TRY"}}
			</script>`,
			expected: 18999.0,
			currency: "TRY",
		},
		{
			name: "Offers as list",
			html: `<script type="application/ld+json">
				{"@type":"Product","offers":[{"price":2499.90,"priceCurrency":"TRY"}]}
			</script>`,
			expected: 2499.90,
			currency: "TRY",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := parse(t, tt.html)
			price, currency := doc.Price(SiteRules{})
			require.NotNil(t, price)
			assert.InDelta(t, tt.expected, *price, 0.001)
			assert.Equal(t, tt.currency, currency)
		})
	}
}

func TestPriceFromInlineScript(t *testing.T) {
	doc := parse(t, `<html><head><script>
		window.__STATE__ = {"product":{"sellingPrice":"1299,90","id":987654}};
	</script></head><body></body></html>`)

	price, _ := doc.Price(SiteRules{})
	require.NotNil(t, price)
	assert.InDelta(t, 1299.90, *price, 0.001)
}

func TestPriceFromSiteSelector(t *testing.T) {
	doc := parse(t, `<html><body>
		<span class="prc-dsc">9.499 TL</span>
	</body></html>`)

	price, _ := doc.Price(SiteRules{PriceSelectors: []string{".prc-dsc"}})
	require.NotNil(t, price)
	assert.InDelta(t, 9499.0, *price, 0.001)
}

func TestPriceFromFreeTextPicksLargest(t *testing.T) {
	doc := parse(t, `<html><body>
		<p>Kargo bedeli 49,90 TL</p>
		<p>Canon PowerShot G7X Mark III 24.999,00 TL</p>
		<p>Taksit 2.083,25 TL</p>
	</body></html>`)

	price, _ := doc.Price(SiteRules{})
	require.NotNil(t, price)
	assert.InDelta(t, 24999.0, *price, 0.001)
}

func TestPriceAbsent(t *testing.T) {
	doc := parse(t, `<html><body><p>Bu ürün geçici olarak temin edilememektedir.</p></body></html>`)
	price, _ := doc.Price(SiteRules{})
	assert.Nil(t, price)
}

func TestPriceImplausibleValuesIgnored(t *testing.T) {
	doc := parse(t, `<html><body><script>var s={"price":"0,50"};</script></body></html>`)
	price, _ := doc.Price(SiteRules{})
	assert.Nil(t, price)
}

func TestAmazonWholeFractionComposition(t *testing.T) {
	doc := parse(t, `<html><body>
		<span class="a-price-whole">1.849</span><span class="a-price-fraction">99</span>
	</body></html>`)

	price := amazonWholeFraction(doc.doc)
	require.NotNil(t, price)
	assert.InDelta(t, 1849.99, *price, 0.001)
}

func TestTitleLadder(t *testing.T) {
	tests := []struct {
		name     string
		html     string
		rules    SiteRules
		expected string
	}{
		{
			name:     "Site selector wins",
			html:     `<span id="productTitle"> Canon G7X Mark III </span><h1>Other</h1>`,
			rules:    SiteRules{TitleSelectors: []string{"#productTitle"}},
			expected: "Canon G7X Mark III",
		},
		{
			name:     "h1 fallback",
			html:     `<h1>Canon PowerShot G7X</h1><title>page</title>`,
			expected: "Canon PowerShot G7X",
		},
		{
			name:     "JSON-LD name fallback",
			html:     `<script type="application/ld+json">{"name":"Canon G7X"}</script><title>page</title>`,
			expected: "Canon G7X",
		},
		{
			name:     "og:title fallback",
			html:     `<head><meta property="og:title" content="Canon G7X | Teknosa"/></head>`,
			expected: "Canon G7X | Teknosa",
		},
		{
			name:     "Document title last",
			html:     `<head><title>Canon G7X Fiyatı</title></head>`,
			expected: "Canon G7X Fiyatı",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := parse(t, tt.html)
			assert.Equal(t, tt.expected, doc.Title(tt.rules))
		})
	}
}
