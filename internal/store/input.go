package store

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/oyilmaz/priceradar/internal/models"
	"github.com/oyilmaz/priceradar/internal/normalize"
)

// ReadProducts loads the input sheet. The first column is always the
// product name; the reference-price and identifier columns are found
// by fuzzy header matching, since the sheets come from several teams
// with no agreed header spelling.
func ReadProducts(path string) ([]models.ProductRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open input: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}
	if len(records) < 2 {
		return nil, fmt.Errorf("input %s has no product rows", path)
	}

	referenceCol := findReferenceColumn(records[0])
	idCol := findIdentifierColumn(records[0])

	products := make([]models.ProductRecord, 0, len(records)-1)
	for _, record := range records[1:] {
		if len(record) == 0 {
			continue
		}
		name := strings.TrimSpace(record[0])
		if name == "" {
			continue
		}

		product := models.ProductRecord{Name: name}
		if referenceCol >= 0 && referenceCol < len(record) {
			product.ReferencePrice = parseReference(record[referenceCol])
		}
		if idCol >= 0 && idCol < len(record) {
			product.ExternalID = strings.TrimSpace(record[idCol])
		}
		products = append(products, product)
	}

	if len(products) == 0 {
		return nil, fmt.Errorf("input %s has no product rows", path)
	}
	return products, nil
}

func findReferenceColumn(header []string) int {
	for i, h := range header {
		h = strings.ToLower(strings.TrimSpace(h))
		if strings.Contains(h, "mm price") || strings.Contains(h, "mm_price") ||
			strings.Contains(h, "mmprice") || strings.Contains(h, "reference price") {
			return i
		}
	}
	return -1
}

func findIdentifierColumn(header []string) int {
	lowered := make([]string, len(header))
	for i, h := range header {
		lowered[i] = strings.ToLower(strings.TrimSpace(h))
	}

	for i, h := range lowered {
		if h == "product sku" || h == "sku" {
			return i
		}
	}
	for _, keyword := range []string{"ean", "barkod", "barcode", "gtin"} {
		for i, h := range lowered {
			if strings.Contains(h, keyword) {
				return i
			}
		}
	}
	return -1
}

func parseReference(raw string) *float64 {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	// Exported sheets usually carry plain decimals; hand-edited ones
	// carry Turkish formatting.
	if value, err := strconv.ParseFloat(raw, 64); err == nil && value > 0 {
		return &value
	}
	if value, err := normalize.Price(raw); err == nil {
		return &value
	}
	return nil
}
