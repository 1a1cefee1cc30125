package resolver

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oyilmaz/priceradar/internal/classify"
	"github.com/oyilmaz/priceradar/internal/extract"
	"github.com/oyilmaz/priceradar/internal/models"
	"github.com/oyilmaz/priceradar/internal/search"
	"github.com/oyilmaz/priceradar/internal/validate"
)

type fakeStore struct {
	mu      sync.Mutex
	merged  []*models.ResolvedResult
	merges  int
	flushes int
}

func (s *fakeStore) Merge(_ context.Context, results []*models.ResolvedResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.merged = append(s.merged, results...)
	s.merges++
	return nil
}

func (s *fakeStore) Flush(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flushes++
	return nil
}

func (s *fakeStore) Close(context.Context) error { return nil }

type panickingExtractor struct{ marketplace models.Marketplace }

func (e *panickingExtractor) Marketplace() models.Marketplace { return e.marketplace }

func (e *panickingExtractor) Extract(context.Context, string) *models.ExtractionOutcome {
	panic("selector index out of range")
}

func testProducts(names ...string) []models.ProductRecord {
	products := make([]models.ProductRecord, len(names))
	for i, name := range names {
		products[i] = models.ProductRecord{Name: name}
	}
	return products
}

func TestBatchReportsEveryPairAndCheckpoints(t *testing.T) {
	backend := &fakeBackend{err: search.ErrNoResults}
	extractor := &fakeExtractor{marketplace: models.MarketplaceTrendyol}
	r := newTestResolver(backend, nil, extractor)
	st := &fakeStore{}

	batch := NewBatch(r, st, BatchOptions{
		Concurrency:        2,
		CheckpointInterval: 2,
		Marketplaces:       []models.Marketplace{models.MarketplaceTrendyol},
		PairPause:          time.Millisecond,
	})

	summary, err := batch.Run(context.Background(), testProducts("a", "b", "c", "d", "e"))

	require.NoError(t, err)
	assert.Equal(t, 5, summary.Products)
	assert.Equal(t, 0, summary.ResolvedPairs)
	assert.Equal(t, 5, summary.FailedPairs)
	assert.Equal(t, 5, st.merges, "one merge per completed product")
	assert.Len(t, st.merged, 5)
	// Checkpoints after products 2 and 4, plus the final flush.
	assert.Equal(t, 3, st.flushes)
}

func TestBatchSurvivesPanickingExtractor(t *testing.T) {
	backend := &fakeBackend{items: []classify.Item{
		{Link: "https://www.trendyol.com/canon/g7x-p-1"},
	}}
	r := newTestResolver(backend, nil, &panickingExtractor{marketplace: models.MarketplaceTrendyol})
	st := &fakeStore{}

	batch := NewBatch(r, st, BatchOptions{
		Marketplaces: []models.Marketplace{models.MarketplaceTrendyol},
		PairPause:    time.Millisecond,
	})

	summary, err := batch.Run(context.Background(), testProducts("Canon G7X"))

	require.NoError(t, err)
	assert.Equal(t, 1, summary.FailedPairs)
	require.Len(t, st.merged, 1)
	assert.False(t, st.merged[0].Success)
	assert.Contains(t, st.merged[0].Error, "internal error")
}

func TestBatchRunsAllMarketplacesInFixedOrder(t *testing.T) {
	backend := &fakeBackend{err: search.ErrNoResults}
	registry := extract.Registry{}
	for _, m := range models.BatchOrder {
		registry[m] = &fakeExtractor{marketplace: m}
	}
	r := New(backend, nil, registry, validate.NewPriceValidator(validate.DefaultTolerance), nil, Options{})
	st := &fakeStore{}

	batch := NewBatch(r, st, BatchOptions{PairPause: time.Millisecond})

	summary, err := batch.Run(context.Background(), testProducts("Canon G7X"))

	require.NoError(t, err)
	assert.Equal(t, 4, summary.FailedPairs)
	require.Len(t, st.merged, 4)
	for i, m := range models.BatchOrder {
		assert.Equal(t, m, st.merged[i].Marketplace)
	}
}
