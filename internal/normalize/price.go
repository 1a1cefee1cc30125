package normalize

import (
	"errors"
	"regexp"
	"strconv"
	"strings"
)

var (
	ErrEmptyPrice       = errors.New("empty price text")
	ErrUnparsablePrice  = errors.New("unparsable price text")
	ErrImplausiblePrice = errors.New("price outside plausible band")
)

// Plausible band for retail prices in TRY. Values outside it are noise
// picked up by the broad extraction passes, not prices.
const (
	MinPlausible = 1.0
	MaxPlausible = 1_000_000.0
)

var nonNumeric = regexp.MustCompile(`[^0-9.]`)

// Price parses a Turkish-formatted price string into a plain decimal.
// "12.499,25" and "12499,25" both yield 12499.25; "12499" yields 12499.
// The result must fall inside [MinPlausible, MaxPlausible].
func Price(text string) (float64, error) {
	cleaned := strings.TrimSpace(text)
	for _, tag := range []string{"TL", "tl", "₺", "TRY", "try"} {
		cleaned = strings.ReplaceAll(cleaned, tag, "")
	}
	cleaned = strings.TrimSpace(cleaned)
	if cleaned == "" {
		return 0, ErrEmptyPrice
	}

	// Dots are thousands separators only when a comma decimal is present.
	if strings.Contains(cleaned, ".") && strings.Contains(cleaned, ",") {
		cleaned = strings.ReplaceAll(cleaned, ".", "")
		cleaned = strings.ReplaceAll(cleaned, ",", ".")
	} else if strings.Contains(cleaned, ",") {
		cleaned = strings.ReplaceAll(cleaned, ",", ".")
	}

	cleaned = nonNumeric.ReplaceAllString(cleaned, "")
	if cleaned == "" || cleaned == "." {
		return 0, ErrUnparsablePrice
	}

	value, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, ErrUnparsablePrice
	}

	if !Plausible(value) {
		return 0, ErrImplausiblePrice
	}
	return value, nil
}

// DisplayPrice parses visible storefront price text, where dots are
// always thousands separators and the comma is the decimal: "9.499 TL"
// yields 9499, "12.499,25 TL" yields 12499.25. Price cannot be used
// for such text because it reads a lone dot as the decimal point.
func DisplayPrice(text string) (float64, error) {
	cleaned := strings.TrimSpace(text)
	for _, tag := range []string{"TL", "tl", "₺", "TRY", "try"} {
		cleaned = strings.ReplaceAll(cleaned, tag, "")
	}
	cleaned = strings.ReplaceAll(cleaned, ".", "")
	cleaned = strings.ReplaceAll(cleaned, ",", ".")
	cleaned = nonNumeric.ReplaceAllString(cleaned, "")
	if cleaned == "" {
		return 0, ErrEmptyPrice
	}
	value, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, ErrUnparsablePrice
	}
	if !Plausible(value) {
		return 0, ErrImplausiblePrice
	}
	return value, nil
}

// Plausible reports whether a parsed value can be a real price.
// Both boundaries are inclusive.
func Plausible(value float64) bool {
	return value >= MinPlausible && value <= MaxPlausible
}
