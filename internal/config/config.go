package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Server   ServerConfig
	Search   SearchConfig
	Fetch    FetchConfig
	Browser  BrowserConfig
	Resolver ResolverConfig
	Batch    BatchConfig
	Store    StoreConfig
	Cache    CacheConfig
	Database DatabaseConfig
	Logging  LoggingConfig
}

type ServerConfig struct {
	Port            string
	Host            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

type SearchConfig struct {
	APIKey         string
	EngineID       string
	Endpoint       string
	RequestTimeout time.Duration
}

type FetchConfig struct {
	RequestTimeout time.Duration
	UserAgents     []string
}

type BrowserConfig struct {
	Headless       bool
	RenderTimeout  time.Duration
	ViewportWidth  int
	ViewportHeight int
	AcceptLanguage string
	TimezoneID     string
	Locale         string
}

type ResolverConfig struct {
	DefaultCurrency     string
	AmazonCountry       string
	PriceTolerance      float64
	SimilarityReject    float64
	SimilarityConfident float64
}

type BatchConfig struct {
	Concurrency        int
	CheckpointInterval int
	Marketplaces       []string
}

type StoreConfig struct {
	Backend string // "csv" or "postgres"
	Path    string
}

type CacheConfig struct {
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	TTL           time.Duration
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type LoggingConfig struct {
	Level  string
	Format string
}

func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:            getEnvOrDefault("SERVER_PORT", "8080"),
			Host:            getEnvOrDefault("SERVER_HOST", "0.0.0.0"),
			ReadTimeout:     getDurationOrDefault("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    getDurationOrDefault("SERVER_WRITE_TIMEOUT", 120*time.Second),
			ShutdownTimeout: getDurationOrDefault("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Search: SearchConfig{
			APIKey:         os.Getenv("GOOGLE_API_KEY"),
			EngineID:       os.Getenv("GOOGLE_CSE_ID"),
			Endpoint:       getEnvOrDefault("GOOGLE_CSE_ENDPOINT", "https://www.googleapis.com/customsearch/v1"),
			RequestTimeout: getDurationOrDefault("SEARCH_REQUEST_TIMEOUT", 10*time.Second),
		},
		Fetch: FetchConfig{
			RequestTimeout: getDurationOrDefault("FETCH_REQUEST_TIMEOUT", 15*time.Second),
			UserAgents:     getStringSliceOrDefault("FETCH_USER_AGENTS", defaultUserAgents()),
		},
		Browser: BrowserConfig{
			Headless:       getBoolOrDefault("BROWSER_HEADLESS", true),
			RenderTimeout:  getDurationOrDefault("BROWSER_RENDER_TIMEOUT", 20*time.Second),
			ViewportWidth:  getIntOrDefault("BROWSER_VIEWPORT_WIDTH", 1920),
			ViewportHeight: getIntOrDefault("BROWSER_VIEWPORT_HEIGHT", 1080),
			AcceptLanguage: getEnvOrDefault("BROWSER_ACCEPT_LANGUAGE", "tr-TR,tr;q=0.9,en-US;q=0.8"),
			TimezoneID:     getEnvOrDefault("BROWSER_TIMEZONE", "Europe/Istanbul"),
			Locale:         getEnvOrDefault("BROWSER_LOCALE", "tr-TR"),
		},
		Resolver: ResolverConfig{
			DefaultCurrency:     getEnvOrDefault("DEFAULT_CURRENCY", "TRY"),
			AmazonCountry:       getEnvOrDefault("AMAZON_COUNTRY", "tr"),
			PriceTolerance:      getFloatOrDefault("PRICE_TOLERANCE", 0.35),
			SimilarityReject:    getFloatOrDefault("SIMILARITY_REJECT_THRESHOLD", 0.40),
			SimilarityConfident: getFloatOrDefault("SIMILARITY_CONFIDENT_THRESHOLD", 0.60),
		},
		Batch: BatchConfig{
			Concurrency:        getIntOrDefault("BATCH_CONCURRENCY", 2),
			CheckpointInterval: getIntOrDefault("BATCH_CHECKPOINT_INTERVAL", 5),
			Marketplaces:       getStringSliceOrDefault("BATCH_MARKETPLACES", []string{}),
		},
		Store: StoreConfig{
			Backend: getEnvOrDefault("STORE_BACKEND", "csv"),
			Path:    getEnvOrDefault("STORE_PATH", "results.csv"),
		},
		Cache: CacheConfig{
			RedisAddr:     getEnvOrDefault("REDIS_ADDR", ""),
			RedisPassword: getEnvOrDefault("REDIS_PASSWORD", ""),
			RedisDB:       getIntOrDefault("REDIS_DB", 0),
			TTL:           getDurationOrDefault("CACHE_TTL", 6*time.Hour),
		},
		Database: DatabaseConfig{
			Host:     getEnvOrDefault("DB_HOST", "localhost"),
			Port:     getIntOrDefault("DB_PORT", 5432),
			User:     getEnvOrDefault("DB_USER", "postgres"),
			Password: getEnvOrDefault("DB_PASSWORD", ""),
			DBName:   getEnvOrDefault("DB_NAME", "priceradar"),
			SSLMode:  getEnvOrDefault("DB_SSL_MODE", "disable"),
		},
		Logging: LoggingConfig{
			Level:  getEnvOrDefault("LOG_LEVEL", "info"),
			Format: getEnvOrDefault("LOG_FORMAT", "json"),
		},
	}

	return cfg, nil
}

// Validate checks the preconditions the pipeline cannot run without.
// Missing search credentials are fatal here, once, instead of failing
// every request later.
func (c *Config) Validate() error {
	if c.Search.APIKey == "" {
		return fmt.Errorf("GOOGLE_API_KEY is required")
	}
	if c.Search.EngineID == "" {
		return fmt.Errorf("GOOGLE_CSE_ID is required")
	}
	if c.Batch.Concurrency < 1 {
		return fmt.Errorf("BATCH_CONCURRENCY must be at least 1")
	}
	if c.Batch.CheckpointInterval < 1 {
		return fmt.Errorf("BATCH_CHECKPOINT_INTERVAL must be at least 1")
	}
	if c.Resolver.PriceTolerance <= 0 || c.Resolver.PriceTolerance >= 1 {
		return fmt.Errorf("PRICE_TOLERANCE must be in (0, 1)")
	}
	if c.Resolver.SimilarityReject > c.Resolver.SimilarityConfident {
		return fmt.Errorf("SIMILARITY_REJECT_THRESHOLD cannot exceed SIMILARITY_CONFIDENT_THRESHOLD")
	}
	if c.Store.Backend != "csv" && c.Store.Backend != "postgres" {
		return fmt.Errorf("STORE_BACKEND must be csv or postgres")
	}
	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getStringSliceOrDefault(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		return strings.Split(value, ",")
	}
	return defaultValue
}

func defaultUserAgents() []string {
	return []string{
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/119.0.0.0 Safari/537.36",
		"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	}
}
