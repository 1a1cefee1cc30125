package store

import (
	"context"

	"github.com/oyilmaz/priceradar/internal/models"
)

// Store persists the horizontal result sheet: one row per product, one
// price column per marketplace.
//
// Merge never lets a null overwrite a price found on an earlier run; a
// new non-null price always wins. Flush checkpoints the merged state to
// durable storage, so a mid-run crash loses at most the products since
// the last flush.
type Store interface {
	Merge(ctx context.Context, results []*models.ResolvedResult) error
	Flush(ctx context.Context) error
	Close(ctx context.Context) error
}

// Row is one product line of the sheet.
type Row struct {
	ProductName string
	Prices      map[models.Marketplace]*float64
}

func newRow(name string) *Row {
	return &Row{
		ProductName: name,
		Prices:      make(map[models.Marketplace]*float64, len(models.BatchOrder)),
	}
}

// apply merges one resolution into the row under the non-null rule.
func (r *Row) apply(result *models.ResolvedResult) {
	if result.Price == nil {
		return
	}
	r.Prices[result.Marketplace] = result.Price
}
