package resolver

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/oyilmaz/priceradar/internal/models"
	"github.com/oyilmaz/priceradar/internal/ratelimit"
	"github.com/oyilmaz/priceradar/internal/store"
)

// BatchOptions tune the batch run. Zero values mean the defaults the
// marketplaces tolerate.
type BatchOptions struct {
	// Concurrency bounds simultaneous resolutions. The limit is small
	// on purpose: the bottleneck is what the sites tolerate, not local
	// compute.
	Concurrency int
	// CheckpointInterval is how many completed products sit between
	// durable flushes.
	CheckpointInterval int
	// Marketplaces filters which sites run; empty means all four.
	Marketplaces []models.Marketplace
	// PairPause is the minimum gap between resolutions. The actual gap
	// is jittered up to half as much again.
	PairPause time.Duration
}

// BatchSummary is the run report.
type BatchSummary struct {
	RunID         string
	Products      int
	ResolvedPairs int
	FailedPairs   int
	Elapsed       time.Duration
}

// Batch walks the product list through the resolver and merges each
// product's results into the store. Products run concurrently under
// the limiter; within one product the marketplaces run sequentially in
// a fixed order so checkpoint rows stay stable.
type Batch struct {
	resolver *Resolver
	store    store.Store
	opts     BatchOptions
	limiter  ratelimit.Limiter
	logger   *slog.Logger
}

func NewBatch(r *Resolver, st store.Store, opts BatchOptions) *Batch {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 2
	}
	if opts.CheckpointInterval <= 0 {
		opts.CheckpointInterval = 5
	}
	if len(opts.Marketplaces) == 0 {
		opts.Marketplaces = models.BatchOrder
	}
	if opts.PairPause <= 0 {
		opts.PairPause = 300 * time.Millisecond
	}
	return &Batch{
		resolver: r,
		store:    st,
		opts:     opts,
		limiter:  ratelimit.NewJittered(opts.PairPause, opts.PairPause+opts.PairPause/2),
		logger:   slog.Default().With("component", "batch"),
	}
}

// Run processes every product and returns the summary. The context
// cancels the run between resolutions; completed products are already
// merged and survive in the last checkpoint.
func (b *Batch) Run(ctx context.Context, products []models.ProductRecord) (*BatchSummary, error) {
	runID := uuid.New().String()
	started := time.Now()
	b.logger.Info("batch started",
		"run_id", runID,
		"products", len(products),
		"marketplaces", len(b.opts.Marketplaces),
		"concurrency", b.opts.Concurrency)

	slots := make(chan struct{}, b.opts.Concurrency)
	var wg sync.WaitGroup

	var mu sync.Mutex
	summary := &BatchSummary{RunID: runID, Products: len(products)}
	completed := 0
	var mergeErr error

	for i := range products {
		product := products[i]
		wg.Add(1)
		go func() {
			defer wg.Done()

			results := b.resolveProduct(ctx, product, slots)

			mu.Lock()
			defer mu.Unlock()

			for _, result := range results {
				if result.Success {
					summary.ResolvedPairs++
				} else {
					summary.FailedPairs++
				}
			}
			if err := b.store.Merge(ctx, results); err != nil {
				b.logger.Error("merge failed", "product", product.Name, "error", err)
				if mergeErr == nil {
					mergeErr = err
				}
				return
			}

			completed++
			if completed%b.opts.CheckpointInterval == 0 {
				if err := b.store.Flush(ctx); err != nil {
					b.logger.Error("checkpoint failed", "error", err)
				} else {
					b.logger.Info("checkpoint written",
						"run_id", runID,
						"completed", completed,
						"total", len(products))
				}
			}
		}()
	}

	wg.Wait()

	if err := b.store.Flush(ctx); err != nil {
		return nil, fmt.Errorf("final flush: %w", err)
	}
	if mergeErr != nil {
		return nil, fmt.Errorf("merge results: %w", mergeErr)
	}

	summary.Elapsed = time.Since(started)
	b.logger.Info("batch finished",
		"run_id", runID,
		"resolved", summary.ResolvedPairs,
		"failed", summary.FailedPairs,
		"elapsed", summary.Elapsed.Round(time.Second))
	return summary, nil
}

func (b *Batch) resolveProduct(ctx context.Context, product models.ProductRecord, slots chan struct{}) []*models.ResolvedResult {
	results := make([]*models.ResolvedResult, 0, len(b.opts.Marketplaces))
	for _, marketplace := range b.opts.Marketplaces {
		select {
		case slots <- struct{}{}:
		case <-ctx.Done():
			return results
		}

		result := b.resolvePair(ctx, product, marketplace)
		<-slots

		results = append(results, result)
	}
	return results
}

// resolvePair guards one resolution against panics: a crashed
// extractor is a failed pair, never a dead batch.
func (b *Batch) resolvePair(ctx context.Context, product models.ProductRecord, marketplace models.Marketplace) (result *models.ResolvedResult) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("resolution panicked",
				"product", product.Name,
				"marketplace", string(marketplace),
				"panic", r)
			result = &models.ResolvedResult{
				ProductName: product.Name,
				Marketplace: marketplace,
				Success:     false,
				Error:       fmt.Sprintf("internal error: %v", r),
				ResolvedAt:  time.Now().UTC(),
			}
		}
	}()

	if err := b.limiter.Wait(ctx); err != nil {
		return &models.ResolvedResult{
			ProductName: product.Name,
			Marketplace: marketplace,
			Success:     false,
			Error:       "batch cancelled",
			ResolvedAt:  time.Now().UTC(),
		}
	}
	return b.resolver.Resolve(ctx, product, marketplace)
}
