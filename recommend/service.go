// Package recommend serves ranked product recommendations from a store.
package recommend

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/doujins-org/recokit/embedder"
	"github.com/doujins-org/recokit/internal/normalize"
	"github.com/doujins-org/recokit/internalerr"
	"github.com/doujins-org/recokit/metrics"
	"github.com/doujins-org/recokit/ranking"
	"github.com/doujins-org/recokit/store"
)

// DebugSearchLimit is the number of matches DebugSearch returns.
const DebugSearchLimit = 5

// Pinger is implemented by stores backed by a database connection.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Options struct {
	Store    store.Store
	Ranker   *ranking.Ranker
	Embedder *embedder.Fallback
	Metrics  *metrics.Metrics
	Logger   *slog.Logger
	// Now overrides the clock; used by tests.
	Now func() time.Time
}

type Service struct {
	store   store.Store
	ranker  *ranking.Ranker
	embed   *embedder.Fallback
	metrics *metrics.Metrics
	logger  *slog.Logger
	now     func() time.Time
}

func New(opts Options) (*Service, error) {
	if opts.Store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if opts.Ranker == nil {
		return nil, fmt.Errorf("ranker is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	embed := opts.Embedder
	if embed == nil {
		embed = embedder.NewFallback(nil, embedder.FallbackOptions{Logger: logger})
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		store:   opts.Store,
		ranker:  opts.Ranker,
		embed:   embed,
		metrics: opts.Metrics,
		logger:  logger,
		now:     now,
	}, nil
}

// Query is one recommendation request.
type Query struct {
	Text     string
	Category string
	// Limit <= 0 uses the ranker default.
	Limit int
}

// Recommend ranks the friend observations matching q.
func (s *Service) Recommend(ctx context.Context, q Query) (ranking.Result, error) {
	start := s.now()
	text := strings.TrimSpace(q.Text)

	cfg, err := s.embeddingConfig(ctx)
	if err != nil {
		return ranking.Result{}, err
	}
	mode := ranking.SelectMode(text, cfg)

	obs, err := s.store.ListObservations(ctx, store.ObservationFilter{
		Category:       q.Category,
		WithEmbeddings: mode == ranking.ModeSemanticProvider,
	})
	if err != nil {
		return ranking.Result{}, fmt.Errorf("list observations: %w", err)
	}

	res, err := s.ranker.Rank(ctx, ranking.Request{
		Query:        text,
		Observations: obs,
		Limit:        q.Limit,
		Embedding:    cfg,
		Now:          start,
	})
	if err != nil {
		return ranking.Result{}, err
	}

	elapsed := s.now().Sub(start)
	s.metrics.ObserveRecommendation(string(res.Mode), elapsed)
	s.logger.Debug("recommendations ranked",
		"mode", res.Mode,
		"category", q.Category,
		"observations", len(obs),
		"items", len(res.Items),
		"latency_ms", elapsed.Milliseconds(),
	)
	return res, nil
}

func (s *Service) embeddingConfig(ctx context.Context) (ranking.EmbeddingConfig, error) {
	cfg := ranking.EmbeddingConfig{ServiceAvailable: s.embed.ServiceConfigured()}
	if !cfg.ServiceAvailable {
		return cfg, nil
	}
	n, err := s.store.CountProductEmbeddings(ctx)
	if err != nil {
		return cfg, fmt.Errorf("count embeddings: %w", err)
	}
	cfg.PrecomputedEmbeddingsExist = n > 0
	return cfg, nil
}

func (s *Service) Friends(ctx context.Context) ([]store.Friend, error) {
	return s.store.ListFriends(ctx)
}

// Embedding status values reported by Stats.
const (
	EmbeddingStatusReady   = "ready"
	EmbeddingStatusPending = "pending"
)

type StatsReport struct {
	Counts          store.Stats `json:"counts"`
	EmbeddingStatus string      `json:"embeddingStatus"`
}

// Stats reports table counts; embeddings are ready once every product has one.
func (s *Service) Stats(ctx context.Context) (StatsReport, error) {
	st, err := s.store.Stats(ctx)
	if err != nil {
		return StatsReport{}, err
	}
	status := EmbeddingStatusPending
	if st.Embeddings == st.Products {
		status = EmbeddingStatusReady
	}
	return StatsReport{Counts: st, EmbeddingStatus: status}, nil
}

type DebugSearchResult struct {
	Query            string               `json:"query"`
	ServiceAvailable bool                 `json:"serviceAvailable"`
	EmbeddingsCount  int64                `json:"embeddingsCount"`
	Mode             ranking.Mode         `json:"mode"`
	Matches          []store.ProductMatch `json:"matches"`
}

// DebugSearch returns the products friends interacted with that are most
// similar to text, without social signals.
func (s *Service) DebugSearch(ctx context.Context, text string) (DebugSearchResult, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return DebugSearchResult{}, fmt.Errorf("query is required: %w", internalerr.ErrInvalidInput)
	}
	count, err := s.store.CountProductEmbeddings(ctx)
	if err != nil {
		return DebugSearchResult{}, fmt.Errorf("count embeddings: %w", err)
	}
	out := DebugSearchResult{
		Query:            text,
		ServiceAvailable: s.embed.ServiceConfigured(),
		EmbeddingsCount:  count,
		Mode:             ranking.ModeSemanticFallback,
	}

	if out.ServiceAvailable && count > 0 {
		vec, src := s.embed.Embed(ctx, text)
		if src == embedder.SourceService {
			matches, err := s.store.SimilarProducts(ctx, vec, DebugSearchLimit)
			if err != nil {
				return DebugSearchResult{}, fmt.Errorf("similar products: %w", err)
			}
			out.Mode = ranking.ModeSemanticProvider
			out.Matches = matches
			return out, nil
		}
	}

	s.logger.Warn("semantic provider unavailable; debug search using deterministic similarity", "query", text)
	matches, err := s.deterministicMatches(ctx, text)
	if err != nil {
		return DebugSearchResult{}, err
	}
	out.Matches = matches
	return out, nil
}

func (s *Service) deterministicMatches(ctx context.Context, text string) ([]store.ProductMatch, error) {
	products, err := s.store.ListEventProducts(ctx)
	if err != nil {
		return nil, fmt.Errorf("list event products: %w", err)
	}
	dim := s.embed.Deterministic().Dimensions()
	qv := embedder.DeterministicVector64(text, dim)

	out := make([]store.ProductMatch, 0, len(products))
	for _, p := range products {
		pv := embedder.DeterministicVector64(embedder.ProductDocument(p.Name, p.Brand, p.Category, p.Description), dim)
		sim, err := normalize.Cosine(qv, pv)
		if err != nil {
			return nil, fmt.Errorf("product %d: %w", p.ID, err)
		}
		out = append(out, store.ProductMatch{ID: p.ID, Name: p.Name, Similarity: sim})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Similarity > out[j].Similarity })
	if len(out) > DebugSearchLimit {
		out = out[:DebugSearchLimit]
	}
	return out, nil
}

// Event is an interaction to ingest.
type Event struct {
	FriendID  int64
	ProductID int64
	Type      ranking.EventType
	// At defaults to now.
	At time.Time
}

// RecordEvent stores e and returns its id.
func (s *Service) RecordEvent(ctx context.Context, e Event) (int64, error) {
	if e.FriendID <= 0 || e.ProductID <= 0 {
		return 0, fmt.Errorf("friend and product ids are required: %w", internalerr.ErrInvalidInput)
	}
	if e.Type != ranking.EventPurchase && e.Type != ranking.EventView {
		return 0, fmt.Errorf("event type %q: %w", e.Type, internalerr.ErrInvalidInput)
	}
	at := e.At
	if at.IsZero() {
		at = s.now()
	}
	id, err := s.store.RecordEvent(ctx, store.NewEvent{
		FriendID:  e.FriendID,
		ProductID: e.ProductID,
		EventType: e.Type,
		At:        at,
	})
	if err != nil {
		return 0, err
	}
	s.logger.Info("friend event recorded", "event_id", id, "friend_id", e.FriendID, "product_id", e.ProductID, "type", e.Type)
	return id, nil
}

// Health pings the store when it supports it.
func (s *Service) Health(ctx context.Context) error {
	if p, ok := s.store.(Pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}
