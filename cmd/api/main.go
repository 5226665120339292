// Command api serves recommendations over HTTP.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/doujins-org/recokit/config"
	"github.com/doujins-org/recokit/embedder"
	"github.com/doujins-org/recokit/httpapi"
	"github.com/doujins-org/recokit/internal/bootstrap"
	"github.com/doujins-org/recokit/internal/logging"
	"github.com/doujins-org/recokit/metrics"
	"github.com/doujins-org/recokit/ranking"
	"github.com/doujins-org/recokit/recommend"
	"github.com/doujins-org/recokit/seed"
)

func main() {
	configPath := flag.String("config", "", "optional YAML config file")
	seedDemo := flag.Bool("seed", false, "load the demo catalog when the database has no friends")
	flag.Parse()

	cfg, errs := config.Load(*configPath)
	if len(errs) > 0 {
		for _, err := range errs {
			fmt.Fprintln(os.Stderr, "config:", err)
		}
		os.Exit(1)
	}

	logger := logging.New(cfg.Env)
	slog.SetDefault(logger)
	logger.Info("starting recokit api", "config", cfg.LogSummary())

	if err := run(cfg, *seedDemo, logger); err != nil {
		logger.Error("api stopped with error", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, seedDemo bool, logger *slog.Logger) error {
	ctx := context.Background()

	pool, st, err := bootstrap.OpenStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	if seedDemo {
		if err := seed.Ensure(ctx, st, time.Now(), logger); err != nil {
			return err
		}
	}

	m := metrics.New()
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	if err := m.Register(reg); err != nil {
		return fmt.Errorf("register metrics: %w", err)
	}

	primary, err := bootstrap.ServiceEmbedder(cfg)
	if err != nil {
		return fmt.Errorf("embedder: %w", err)
	}
	if primary == nil {
		logger.Warn("OPENAI_API_KEY not set; semantic ranking uses deterministic embeddings")
	} else if rdb := bootstrap.OpenRedis(ctx, cfg, logger); rdb != nil {
		defer rdb.Close()
		primary = embedder.NewCached(primary, rdb, cfg.EmbeddingCacheTTL, logger)
	}
	fb := embedder.NewFallback(primary, embedder.FallbackOptions{
		Timeout:    cfg.EmbeddingTimeout,
		Logger:     logger,
		OnFallback: func(error) { m.IncEmbeddingFallback() },
	})

	ranker := ranking.NewRanker(fb, ranking.Options{
		DefaultLimit: cfg.DefaultLimit,
		Confidence: ranking.ConfidenceThresholds{
			HighDistance:   cfg.ConfidenceDistanceHigh,
			MediumDistance: cfg.ConfidenceDistanceMed,
		},
		Logger: logger,
	})
	svc, err := recommend.New(recommend.Options{
		Store:    st,
		Ranker:   ranker,
		Embedder: fb,
		Metrics:  m,
		Logger:   logger,
	})
	if err != nil {
		return err
	}

	server := httpapi.New(svc, httpapi.Options{Logger: logger, Gatherer: reg})

	errCh := make(chan error, 1)
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Port)
		logger.Info("server starting", "address", addr)
		if err := server.Start(addr); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return err
	case <-quit:
	}

	logger.Info("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	logger.Info("server stopped")
	return nil
}
