// Package indexer embeds products that have no stored embedding yet. Once at
// least one embedding exists the recommendation service can rank in provider
// mode.
package indexer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/doujins-org/recokit/embedder"
	"github.com/doujins-org/recokit/metrics"
	"github.com/doujins-org/recokit/store"
)

// Store is the slice of store.Store the indexer writes through.
type Store interface {
	ProductsMissingEmbeddings(ctx context.Context, afterID int64, limit int) ([]store.Product, error)
	UpsertProductEmbedding(ctx context.Context, productID int64, model string, vec []float32) error
}

type Options struct {
	// PageSize is how many missing products are loaded per query.
	PageSize int
	// BatchSize is how many product documents go into one provider call.
	BatchSize   int
	MaxProducts int
	MaxRuntime  time.Duration

	Logger  *slog.Logger
	Metrics *metrics.Metrics
}

func (o *Options) withDefaults() Options {
	out := *o
	if out.PageSize <= 0 {
		out.PageSize = 500
	}
	if out.BatchSize <= 0 {
		out.BatchSize = 25
	}
	if out.MaxProducts <= 0 {
		out.MaxProducts = 50_000
	}
	if out.MaxRuntime <= 0 {
		out.MaxRuntime = 30 * time.Second
	}
	if out.Logger == nil {
		out.Logger = slog.Default()
	}
	return out
}

// Result summarizes one RunOnce pass.
type Result struct {
	Embedded int
	Failed   int
	// RateLimited is set when the provider answered 429 and the pass stopped early.
	RateLimited bool
	// Interrupted is set when a transient provider error stopped the pass early.
	Interrupted bool
}

// RunOnce performs a bounded amount of indexing work.
//
// Pages advance by product id, so each product is attempted at most once per
// pass. Batches rejected with a permanent error are skipped and counted as
// failed; those products stay unindexed until the next pass. A rate limit or
// transient provider error ends the pass so the next run retries.
func RunOnce(ctx context.Context, st Store, emb embedder.Embedder, opts Options) (Result, error) {
	if st == nil {
		return Result{}, fmt.Errorf("store is required")
	}
	if emb == nil {
		return Result{}, fmt.Errorf("embedder is required")
	}
	cfg := opts.withDefaults()
	start := time.Now()
	var res Result
	var cursor int64

	for {
		if time.Since(start) > cfg.MaxRuntime || res.Embedded+res.Failed >= cfg.MaxProducts {
			return res, nil
		}
		if err := ctx.Err(); err != nil {
			return res, err
		}

		page, err := st.ProductsMissingEmbeddings(ctx, cursor, cfg.PageSize)
		if err != nil {
			return res, fmt.Errorf("list missing embeddings: %w", err)
		}
		if len(page) == 0 {
			return res, nil
		}

		for i := 0; i < len(page); i += cfg.BatchSize {
			if time.Since(start) > cfg.MaxRuntime || res.Embedded+res.Failed >= cfg.MaxProducts {
				return res, nil
			}
			end := min(i+cfg.BatchSize, len(page))
			batch := page[i:end]
			cursor = batch[len(batch)-1].ID

			n, err := embedBatch(ctx, st, emb, batch)
			res.Embedded += n
			cfg.Metrics.AddIndexed("embedded", n)
			if err == nil {
				continue
			}
			if ctx.Err() != nil {
				return res, ctx.Err()
			}
			if isRateLimit(err) {
				cfg.Logger.Warn("indexer rate limited; stopping pass", "embedded", res.Embedded)
				res.RateLimited = true
				return res, nil
			}
			if isRetryable(err) {
				cfg.Logger.Warn("indexer provider error; stopping pass", "error", err, "embedded", res.Embedded)
				res.Interrupted = true
				return res, nil
			}
			failed := len(batch) - n
			res.Failed += failed
			cfg.Metrics.AddIndexed("failed", failed)
			cfg.Logger.Error("indexer batch failed", "error", err, "first_product_id", batch[0].ID, "size", len(batch))
		}
	}
}

// embedBatch returns how many products were stored before any error.
func embedBatch(ctx context.Context, st Store, emb embedder.Embedder, batch []store.Product) (int, error) {
	docs := make([]string, len(batch))
	for i, p := range batch {
		docs[i] = embedder.ProductDocument(p.Name, p.Brand, p.Category, p.Description)
	}
	vecs, err := emb.EmbedTexts(ctx, docs)
	if err != nil {
		return 0, err
	}
	if len(vecs) != len(batch) {
		return 0, fmt.Errorf("expected %d embeddings, got %d", len(batch), len(vecs))
	}
	for i, p := range batch {
		if err := st.UpsertProductEmbedding(ctx, p.ID, emb.Model(), vecs[i]); err != nil {
			return i, fmt.Errorf("store embedding for product %d: %w", p.ID, err)
		}
	}
	return len(batch), nil
}

// Loop calls RunOnce every interval until ctx is done. After a rate-limited or
// interrupted pass it waits with exponential backoff instead.
func Loop(ctx context.Context, st Store, emb embedder.Embedder, opts Options, every time.Duration) error {
	cfg := opts.withDefaults()
	if every <= 0 {
		every = time.Minute
	}
	backoffs := 0
	for {
		res, err := RunOnce(ctx, st, emb, cfg)
		if err != nil && ctx.Err() == nil {
			cfg.Logger.Error("indexer pass failed", "error", err)
		}
		cfg.Logger.Info("indexer pass done", "embedded", res.Embedded, "failed", res.Failed,
			"rate_limited", res.RateLimited, "interrupted", res.Interrupted)

		wait := every
		if res.RateLimited || res.Interrupted {
			backoffs++
			wait = expBackoff(every, backoffs, 10*every)
		} else {
			backoffs = 0
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
}

func isRateLimit(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode == 429
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode == 429
	}
	return false
}

// isRetryable treats 408, 429, 5xx and transport errors as transient.
func isRetryable(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return retryableStatus(apiErr.HTTPStatusCode)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return retryableStatus(reqErr.HTTPStatusCode)
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded)
}

func retryableStatus(code int) bool {
	if code == 429 || code == 408 {
		return true
	}
	return code >= 500 && code <= 599
}

func expBackoff(base time.Duration, attempt int, max time.Duration) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	mult := math.Pow(2, float64(attempt-1))
	d := time.Duration(float64(base) * mult)
	if d > max {
		return max
	}
	return d
}
