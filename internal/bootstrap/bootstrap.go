// Package bootstrap opens the external dependencies shared by the binaries.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/doujins-org/recokit/config"
	"github.com/doujins-org/recokit/embedder"
	"github.com/doujins-org/recokit/migrate"
	"github.com/doujins-org/recokit/pg"
)

// OpenStore connects to Postgres, applies migrations and returns the store.
// The caller closes the pool.
func OpenStore(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, *pg.Store, error) {
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("connect postgres: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("ping postgres: %w", err)
	}
	if err := migrate.ApplyPostgres(ctx, pool, cfg.Schema); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("migrate: %w", err)
	}
	st, err := pg.NewStore(pool, cfg.Schema)
	if err != nil {
		pool.Close()
		return nil, nil, err
	}
	return pool, st, nil
}

// OpenRedis returns nil when no REDIS_URL is configured or the server is
// unreachable; the embedding cache is optional.
func OpenRedis(ctx context.Context, cfg *config.Config, logger *slog.Logger) *redis.Client {
	if cfg.RedisURL == "" {
		return nil
	}
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.Warn("invalid REDIS_URL; embedding cache disabled", "error", err)
		return nil
	}
	client := redis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		logger.Warn("redis unreachable; embedding cache disabled", "error", err)
		_ = client.Close()
		return nil
	}
	return client
}

// ServiceEmbedder builds the OpenAI-compatible embedder, or returns nil when no
// API key is configured.
func ServiceEmbedder(cfg *config.Config) (embedder.Embedder, error) {
	if !cfg.EmbeddingServiceConfigured() {
		return nil, nil
	}
	dims := 0
	if cfg.EmbeddingDimensions != embedder.DefaultDimensions {
		dims = cfg.EmbeddingDimensions
	}
	emb, err := embedder.NewOpenAICompatible(embedder.OpenAICompatibleConfig{
		BaseURL:    cfg.OpenAIBaseURL,
		APIKey:     cfg.OpenAIAPIKey,
		Model:      cfg.EmbeddingModel,
		Dimensions: dims,
		Timeout:    cfg.EmbeddingTimeout,
	})
	if err != nil {
		return nil, err
	}
	return emb, nil
}
