package ranking

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
)

// DefaultLimit is the page size when a request does not set one.
const DefaultLimit = 12

type Options struct {
	DefaultLimit int
	Confidence   ConfidenceThresholds
	Logger       *slog.Logger
}

func (o *Options) withDefaults() Options {
	out := *o
	if out.DefaultLimit <= 0 {
		out.DefaultLimit = DefaultLimit
	}
	if out.Confidence == (ConfidenceThresholds{}) {
		out.Confidence = DefaultConfidenceThresholds()
	}
	if out.Logger == nil {
		out.Logger = slog.Default()
	}
	return out
}

// Ranker turns observations into a ranked page. It holds no per-request state
// and is safe for concurrent use.
type Ranker struct {
	embed *embedder.Fallback
	opts  Options
}

// NewRanker returns a Ranker that embeds queries through embed. A nil embed
// behaves as if no embedding service were configured.
func NewRanker(embed *embedder.Fallback, opts Options) *Ranker {
	o := opts.withDefaults()
	if embed == nil {
		embed = embedder.NewFallback(nil, embedder.FallbackOptions{Logger: o.Logger})
	}
	return &Ranker{embed: embed, opts: o}
}

// SelectMode picks the scoring path. A blank query is social; otherwise the
// provider path needs both a configured service and stored product embeddings.
func SelectMode(query string, cfg EmbeddingConfig) Mode {
	if strings.TrimSpace(query) == "" {
		return ModeSocialOnly
	}
	if cfg.ServiceAvailable && cfg.PrecomputedEmbeddingsExist {
		return ModeSemanticProvider
	}
	return ModeSemanticFallback
}

// Rank extracts signals, keeps the best observation per product, fuses scores,
// sorts, diversifies and truncates. If the provider query embedding fails the
// request is served in ModeSemanticFallback and reported as such.
func (r *Ranker) Rank(ctx context.Context, req Request) (Result, error) {
	query := strings.TrimSpace(req.Query)
	mode := SelectMode(query, req.Embedding)
	now := req.Now
	if now.IsZero() {
		now = time.Now()
	}
	limit := req.Limit
	if limit <= 0 {
		limit = r.opts.DefaultLimit
	}

	var provider []float32
	if mode == ModeSemanticProvider {
		vec, src := r.embed.Embed(ctx, query)
		if src == embedder.SourceService {
			provider = vec
		} else {
			mode = ModeSemanticFallback
		}
	}
	var fallback []float64
	if mode == ModeSemanticFallback {
		fallback = embedder.DeterministicVector64(query, r.embed.Deterministic().Dimensions())
		r.opts.Logger.Debug("ranking with deterministic embeddings", "query", query)
	}

	cands := make([]Candidate, 0, len(req.Observations))
	productVecs := map[int64][]float64{}
	for _, o := range req.Observations {
		c := newCandidate(o, query, now)
		if mode != ModeSocialOnly {
			sim, ok, err := r.similarity(mode, o, provider, fallback, productVecs)
			if err != nil {
				return Result{}, err
			}
			if !ok {
				continue
			}
			c.Similarity = &sim
		}
		cands = append(cands, c)
	}

	cands = Dedupe(cands)
	if mode == ModeSocialOnly {
		for i := range cands {
			cands[i].Score = SocialScore(cands[i])
			cands[i].Confidence = ConfidenceSocial
		}
	} else {
		NormalizeSimilarity(cands)
		for i := range cands {
			cands[i].Score = SemanticScore(cands[i])
			cands[i].Confidence = r.opts.Confidence.Label(cands[i].Similarity)
		}
	}

	sort.SliceStable(cands, func(i, j int) bool { return cands[i].Score > cands[j].Score })
	cands = Diversify(cands)
	if len(cands) > limit {
		cands = cands[:limit]
	}

	return Result{Query: query, Mode: mode, Items: cands}, nil
}

// similarity compares o with the query. In provider mode ok is false when the
// product has no stored embedding, and a stored embedding of the wrong size is
// reported as internalerr.ErrInconsistentData. Fallback vectors are memoized per
// product and compared in float64.
func (r *Ranker) similarity(mode Mode, o Observation, provider []float32, fallback []float64, memo map[int64][]float64) (float64, bool, error) {
	if mode == ModeSemanticProvider {
		if len(o.Embedding) == 0 {
			return 0, false, nil
		}
		sim, err := normalize.Cosine(provider, o.Embedding)
		if err != nil {
			return 0, false, fmt.Errorf("product %d stored embedding: %w (%v)", o.ProductID, internalerr.ErrInconsistentData, err)
		}
		return sim, true, nil
	}
	pv, ok := memo[o.ProductID]
	if !ok {
		pv = embedder.DeterministicVector64(
			embedder.ProductDocument(o.Name, o.Brand, o.Category, o.Description),
			len(fallback),
		)
		memo[o.ProductID] = pv
	}
	sim, err := normalize.Cosine(fallback, pv)
	if err != nil {
		return 0, false, fmt.Errorf("product %d: %w", o.ProductID, err)
	}
	return sim, true, nil
}
