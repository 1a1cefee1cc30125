package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/oyilmaz/priceradar/internal/api"
	"github.com/oyilmaz/priceradar/internal/browser"
	"github.com/oyilmaz/priceradar/internal/cache"
	"github.com/oyilmaz/priceradar/internal/config"
	"github.com/oyilmaz/priceradar/internal/extract"
	"github.com/oyilmaz/priceradar/internal/fetch"
	"github.com/oyilmaz/priceradar/internal/resolver"
	"github.com/oyilmaz/priceradar/internal/search"
	"github.com/oyilmaz/priceradar/internal/validate"
)

func main() {
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

	// Fetch strategies
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

	handlers := api.NewHandlers(res, logger)

	// Setup Chi router
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(120 * time.Second))

	// CORS
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:*", "https://localhost:*"},
		AllowedMethods:   []string{"GET", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", handlers.Health)
	r.Get("/search-and-redirect", handlers.SearchAndRedirect)
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/resolve", handlers.Resolve)
	})

	// Start server
	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		<-sigChan

		logger.Info("shutting down server...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("server shutdown failed", "error", err)
		}
	}()

	logger.Info("server starting", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
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
