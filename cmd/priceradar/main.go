package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/oyilmaz/priceradar/internal/browser"
	"github.com/oyilmaz/priceradar/internal/cache"
	"github.com/oyilmaz/priceradar/internal/config"
	"github.com/oyilmaz/priceradar/internal/extract"
	"github.com/oyilmaz/priceradar/internal/fetch"
	"github.com/oyilmaz/priceradar/internal/models"
	"github.com/oyilmaz/priceradar/internal/resolver"
	"github.com/oyilmaz/priceradar/internal/search"
	"github.com/oyilmaz/priceradar/internal/store"
	"github.com/oyilmaz/priceradar/internal/validate"
)

func main() {
	inputPath := flag.String("input", "", "input CSV with a product-name column")
	outputPath := flag.String("output", "", "output CSV path (default from STORE_PATH)")
	marketplace := flag.String("marketplace", "", "run a single marketplace (Teknosa, Hepsiburada, Trendyol, Amazon)")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to load config:", err)
		os.Exit(1)
	}

	// Setup logging
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel(cfg.Logging.Level),
	}))
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	if *inputPath == "" {
		logger.Error("-input is required")
		os.Exit(1)
	}
	if *outputPath != "" {
		cfg.Store.Path = *outputPath
	}

	marketplaces, err := selectMarketplaces(*marketplace, cfg.Batch.Marketplaces)
	if err != nil {
		logger.Error("invalid marketplace selection", "error", err)
		os.Exit(1)
	}

	products, err := store.ReadProducts(*inputPath)
	if err != nil {
		logger.Error("failed to read input", "error", err)
		os.Exit(1)
	}
	logger.Info("input loaded", "path", *inputPath, "products", len(products))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := openStore(ctx, cfg)
	if err != nil {
		logger.Error("failed to open result store", "error", err)
		os.Exit(1)
	}
	defer st.Close(context.Background())

	// Fetch strategies, shared by the extractors and the direct search
	plain := fetch.NewPlainClient(cfg.Fetch.RequestTimeout, cfg.Fetch.UserAgents)
	fingerprint := fetch.NewFingerprintClient(cfg.Fetch.RequestTimeout)
	headless := fetch.NewBrowserFetcher(&browser.Options{
		Headless:       cfg.Browser.Headless,
		Timeout:        cfg.Browser.RenderTimeout,
		ViewportWidth:  cfg.Browser.ViewportWidth,
		ViewportHeight: cfg.Browser.ViewportHeight,
		AcceptLanguage: cfg.Browser.AcceptLanguage,
		TimezoneID:     cfg.Browser.TimezoneID,
		Locale:         cfg.Browser.Locale,
	}, 0)
	defer headless.Close()

	registry := extract.NewRegistry(extract.Deps{
		Plain:       plain,
		Fingerprint: fingerprint,
		Browser:     headless,
		Currency:    cfg.Resolver.DefaultCurrency,
	})

	backend := search.NewClient(cfg.Search.Endpoint, cfg.Search.APIKey, cfg.Search.EngineID, cfg.Search.RequestTimeout)
	direct := search.NewDirect(search.DirectDeps{
		Plain:         plain,
		Fingerprint:   fingerprint,
		Browser:       headless,
		AmazonCountry: cfg.Resolver.AmazonCountry,
	})

	resultCache := cache.New(cfg.Cache.RedisAddr, cfg.Cache.RedisPassword, cfg.Cache.RedisDB, cfg.Cache.TTL)
	defer resultCache.Close()

	res := resolver.New(
		backend,
		direct,
		registry,
		validate.NewPriceValidator(cfg.Resolver.PriceTolerance),
		resultCache,
		resolver.Options{
			SimilarityReject:    cfg.Resolver.SimilarityReject,
			SimilarityConfident: cfg.Resolver.SimilarityConfident,
		},
	)

	batch := resolver.NewBatch(res, st, resolver.BatchOptions{
		Concurrency:        cfg.Batch.Concurrency,
		CheckpointInterval: cfg.Batch.CheckpointInterval,
		Marketplaces:       marketplaces,
	})

	summary, err := batch.Run(ctx, products)
	if err != nil {
		logger.Error("batch failed", "error", err)
		os.Exit(1)
	}

	logger.Info("done",
		"run_id", summary.RunID,
		"products", summary.Products,
		"resolved_pairs", summary.ResolvedPairs,
		"failed_pairs", summary.FailedPairs,
		"output", cfg.Store.Path)
}

func openStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	if cfg.Store.Backend == "postgres" {
		return store.NewPostgresStore(ctx, store.PostgresConfig{
			Host:     cfg.Database.Host,
			Port:     cfg.Database.Port,
			User:     cfg.Database.User,
			Password: cfg.Database.Password,
			Database: cfg.Database.DBName,
			MaxConns: 4,
			MinConns: 1,
		})
	}
	return store.NewCSVStore(cfg.Store.Path)
}

func selectMarketplaces(flagValue string, configured []string) ([]models.Marketplace, error) {
	names := configured
	if flagValue != "" {
		names = []string{flagValue}
	}
	if len(names) == 0 {
		return nil, nil // all four, in batch order
	}

	selected := make([]models.Marketplace, 0, len(names))
	for _, name := range names {
		m, ok := models.ParseMarketplace(strings.TrimSpace(name))
		if !ok {
			return nil, fmt.Errorf("unknown marketplace %q", name)
		}
		selected = append(selected, m)
	}
	return selected, nil
}

func logLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
