package embedder

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Source says which embedder produced a vector.
type Source string

const (
	SourceService       Source = "service"
	SourceDeterministic Source = "deterministic"
)

// Fallback embeds through a primary embedder and substitutes the deterministic
// vector on any failure. Errors are logged, never returned. A single attempt is
// made per call.
type Fallback struct {
	primary       Embedder
	deterministic *DeterministicEmbedder
	timeout       time.Duration
	logger        *slog.Logger
	onFallback    func(err error)
}

type FallbackOptions struct {
	// Timeout bounds each primary call. Defaults to 10s.
	Timeout time.Duration
	Logger  *slog.Logger
	// OnFallback is called every time the deterministic vector is substituted.
	OnFallback func(err error)
}

// NewFallback wraps primary, which may be nil. The deterministic vectors are
// sized to the primary's dimensions so both sources stay comparable.
func NewFallback(primary Embedder, opts FallbackOptions) *Fallback {
	dim := DefaultDimensions
	if primary != nil && primary.Dimensions() > 0 {
		dim = primary.Dimensions()
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Fallback{
		primary:       primary,
		deterministic: NewDeterministic(dim),
		timeout:       timeout,
		logger:        logger,
		onFallback:    opts.OnFallback,
	}
}

// Deterministic returns the embedder used on fallback.
func (f *Fallback) Deterministic() *DeterministicEmbedder { return f.deterministic }

// ServiceConfigured reports whether a primary embedder was supplied.
func (f *Fallback) ServiceConfigured() bool { return f.primary != nil }

// Embed returns a vector for text and the source that produced it.
func (f *Fallback) Embed(ctx context.Context, text string) ([]float32, Source) {
	if f.primary == nil {
		return f.deterministic.embed(text), SourceDeterministic
	}

	callCtx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	vec, err := f.primary.EmbedText(callCtx, text)
	if err == nil && len(vec) != f.deterministic.Dimensions() {
		err = fmt.Errorf("embedding has %d dimensions, want %d", len(vec), f.deterministic.Dimensions())
	}
	if err != nil {
		f.logger.Warn("embedding service failed; using deterministic fallback",
			"model", f.primary.Model(),
			"error", err,
		)
		if f.onFallback != nil {
			f.onFallback(err)
		}
		return f.deterministic.embed(text), SourceDeterministic
	}
	return vec, SourceService
}

func (e *DeterministicEmbedder) embed(text string) []float32 {
	return DeterministicVector(text, e.dimensions)
}
