package models

import (
	"strings"
	"time"
)

// Marketplace identifies one of the supported retail sites.
type Marketplace string

const (
	MarketplaceTrendyol    Marketplace = "Trendyol"
	MarketplaceHepsiburada Marketplace = "Hepsiburada"
	MarketplaceTeknosa     Marketplace = "Teknosa"
	MarketplaceAmazon      Marketplace = "Amazon"
)

// BatchOrder is the fixed order marketplaces are resolved in for one
// product. Checkpoint rows stay stable because of it.
var BatchOrder = []Marketplace{
	MarketplaceTeknosa,
	MarketplaceHepsiburada,
	MarketplaceTrendyol,
	MarketplaceAmazon,
}

// ParseMarketplace maps a marketplace name, in any casing, to its
// canonical form.
func ParseMarketplace(name string) (Marketplace, bool) {
	for _, m := range BatchOrder {
		if strings.EqualFold(string(m), name) {
			return m, true
		}
	}
	return "", false
}

// ProductRecord is one row of the input table. Immutable during a run.
type ProductRecord struct {
	Name           string   `json:"name"`
	ReferencePrice *float64 `json:"reference_price,omitempty"`
	ExternalID     string   `json:"external_id,omitempty"`
}

// PageType classifies what kind of marketplace page a URL points at.
type PageType string

const (
	PageTypeProduct  PageType = "product"
	PageTypeCategory PageType = "category"
	PageTypeUnknown  PageType = "unknown"
)

// SearchCandidate is a classified search-result link for one
// product×marketplace resolution. Transient, never persisted.
type SearchCandidate struct {
	RawURL      string   `json:"raw_url"`
	ResolvedURL string   `json:"resolved_url"`
	Title       string   `json:"title"`
	Rank        int      `json:"rank"`
	Sponsored   bool     `json:"sponsored"`
	PageType    PageType `json:"page_type"`
}

// ExtractionStatus is the terminal state of one extraction attempt chain.
type ExtractionStatus string

const (
	StatusSuccess        ExtractionStatus = "success"
	StatusNotFound       ExtractionStatus = "not_found"
	StatusBotBlocked     ExtractionStatus = "bot_blocked"
	StatusTimeout        ExtractionStatus = "timeout"
	StatusTransportError ExtractionStatus = "transport_error"
)

// ExtractionOutcome is what a price extractor produced for one URL.
type ExtractionOutcome struct {
	Price    *float64         `json:"price,omitempty"`
	Currency string           `json:"currency,omitempty"`
	Title    string           `json:"title,omitempty"`
	Status   ExtractionStatus `json:"status"`
	Message  string           `json:"message,omitempty"`
}

// Found reports whether the outcome carries a usable price.
func (o *ExtractionOutcome) Found() bool {
	return o != nil && o.Status == StatusSuccess && o.Price != nil
}

// ResolvedResult is the unit persisted per product×marketplace pair.
type ResolvedResult struct {
	ProductName   string      `json:"product_name"`
	Marketplace   Marketplace `json:"marketplace"`
	URL           string      `json:"url,omitempty"`
	Price         *float64    `json:"price,omitempty"`
	Currency      string      `json:"currency,omitempty"`
	Title         string      `json:"title,omitempty"`
	Success       bool        `json:"success"`
	LowConfidence bool        `json:"low_confidence,omitempty"`
	Error         string      `json:"error,omitempty"`
	ResolvedAt    time.Time   `json:"resolved_at"`
}

// Float64Ptr is a small helper for literal prices in tests and merges.
func Float64Ptr(v float64) *float64 {
	return &v
}
