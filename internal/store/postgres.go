package store

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/oyilmaz/priceradar/internal/models"
)

// PostgresConfig carries the connection settings for the database
// backend.
type PostgresConfig struct {
	Host        string
	Port        int
	User        string
	Password    string
	Database    string
	MaxConns    int32
	MinConns    int32
	MaxConnLife time.Duration
	MaxConnIdle time.Duration
}

// PostgresStore keeps one row per product×marketplace pair. The merge
// invariant lives in the upsert: COALESCE keeps the stored price when
// the new resolution found nothing.
type PostgresStore struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

func NewPostgresStore(ctx context.Context, cfg PostgresConfig) (*PostgresStore, error) {
	dsn := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Database)

	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	poolConfig.MaxConns = cfg.MaxConns
	poolConfig.MinConns = cfg.MinConns
	poolConfig.MaxConnLifetime = cfg.MaxConnLife
	poolConfig.MaxConnIdleTime = cfg.MaxConnIdle

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ensure schema: %w", err)
	}

	return &PostgresStore{
		pool:   pool,
		logger: slog.Default().With("component", "store"),
	}, nil
}

const schema = `CREATE TABLE IF NOT EXISTS resolved_prices (
	product_name   TEXT NOT NULL,
	marketplace    TEXT NOT NULL,
	url            TEXT,
	price          DOUBLE PRECISION,
	currency       TEXT,
	title          TEXT,
	low_confidence BOOLEAN NOT NULL DEFAULT FALSE,
	failure_reason TEXT,
	resolved_at    TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (product_name, marketplace)
)`

const upsertResultQuery = `
	INSERT INTO resolved_prices (
		product_name, marketplace, url, price, currency,
		title, low_confidence, failure_reason, resolved_at
	) VALUES (
		$1, $2, $3, $4, $5, $6, $7, $8, $9
	)
	ON CONFLICT (product_name, marketplace) DO UPDATE SET
		url            = COALESCE(NULLIF(EXCLUDED.url, ''), resolved_prices.url),
		price          = COALESCE(EXCLUDED.price, resolved_prices.price),
		currency       = COALESCE(NULLIF(EXCLUDED.currency, ''), resolved_prices.currency),
		title          = COALESCE(NULLIF(EXCLUDED.title, ''), resolved_prices.title),
		low_confidence = EXCLUDED.low_confidence,
		failure_reason = EXCLUDED.failure_reason,
		resolved_at    = EXCLUDED.resolved_at`

// Merge upserts every result inside one transaction, so a checkpoint
// is observed whole or not at all.
func (s *PostgresStore) Merge(ctx context.Context, results []*models.ResolvedResult) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil && rbErr != pgx.ErrTxClosed {
				s.logger.Error("tx rollback failed", "error", rbErr)
			}
		}
	}()

	for _, result := range results {
		if result == nil || result.ProductName == "" {
			continue
		}
		_, err = tx.Exec(ctx, upsertResultQuery,
			result.ProductName,
			string(result.Marketplace),
			result.URL,
			result.Price,
			result.Currency,
			result.Title,
			result.LowConfidence,
			result.Error,
			result.ResolvedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to upsert result: %w", err)
		}
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Flush is a no-op: every merge commits durably.
func (s *PostgresStore) Flush(context.Context) error {
	return nil
}

func (s *PostgresStore) Close(context.Context) error {
	s.pool.Close()
	return nil
}
