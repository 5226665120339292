// Command indexer embeds products that have no stored embedding.
//
// Without -every it runs one bounded pass and exits; with it, it keeps running
// until interrupted. Indexing counters are served on -metrics-addr and, when
// -pushgateway is set, pushed after every one-shot pass.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/client_golang/prometheus/push"

	"github.com/doujins-org/recokit/config"
	"github.com/doujins-org/recokit/indexer"
	"github.com/doujins-org/recokit/internal/bootstrap"
	"github.com/doujins-org/recokit/internal/logging"
	"github.com/doujins-org/recokit/metrics"
)

const pushJob = "recokit_indexer"

type flags struct {
	every       time.Duration
	maxRuntime  time.Duration
	metricsAddr string
	pushgateway string
}

func main() {
	configPath := flag.String("config", "", "optional YAML config file")
	var f flags
	flag.DurationVar(&f.every, "every", 0, "run continuously with this interval between passes")
	flag.DurationVar(&f.maxRuntime, "max-runtime", 30*time.Second, "time budget for one pass")
	flag.StringVar(&f.metricsAddr, "metrics-addr", "", "serve /metrics on this address (e.g. :9102)")
	flag.StringVar(&f.pushgateway, "pushgateway", "", "Prometheus Pushgateway URL for one-shot runs")
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

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger, f); err != nil && ctx.Err() == nil {
		logger.Error("indexer failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger, f flags) error {
	emb, err := bootstrap.ServiceEmbedder(cfg)
	if err != nil {
		return err
	}
	if emb == nil {
		return fmt.Errorf("OPENAI_API_KEY is required to index products")
	}

	m := metrics.New()
	reg := prometheus.NewRegistry()
	if err := m.Register(reg); err != nil {
		return fmt.Errorf("register metrics: %w", err)
	}
	if f.metricsAddr != "" {
		srv := serveMetrics(f.metricsAddr, reg, logger)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	pool, st, err := bootstrap.OpenStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	opts := indexer.Options{
		BatchSize:  cfg.IndexBatchSize,
		MaxRuntime: f.maxRuntime,
		Logger:     logger,
		Metrics:    m,
	}
	if f.every > 0 {
		return indexer.Loop(ctx, st, emb, opts, f.every)
	}

	res, err := indexer.RunOnce(ctx, st, emb, opts)
	logger.Info("indexer pass done",
		"model", emb.Model(),
		"embedded", res.Embedded,
		"failed", res.Failed,
		"rate_limited", res.RateLimited,
		"interrupted", res.Interrupted,
	)
	if f.pushgateway != "" {
		if perr := pushMetrics(f.pushgateway, reg); perr != nil {
			logger.Warn("pushing metrics failed", "pushgateway", f.pushgateway, "error", perr)
		}
	}
	return err
}

func serveMetrics(addr string, g prometheus.Gatherer, logger *slog.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(g, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		logger.Info("metrics listener starting", "address", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics listener failed", "error", err)
		}
	}()
	return srv
}

// pushMetrics replaces this job's group on the Pushgateway with g's metrics.
func pushMetrics(url string, g prometheus.Gatherer) error {
	return push.New(url, pushJob).Gatherer(g).Push()
}
