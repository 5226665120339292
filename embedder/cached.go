package embedder

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultCacheTTL = 24 * time.Hour

// Cached is a read-through Redis cache in front of another Embedder. Redis
// errors are logged and bypassed; only the inner embedder can fail a call.
type Cached struct {
	inner  Embedder
	client *redis.Client
	ttl    time.Duration
	prefix string
	logger *slog.Logger
}

var _ Embedder = (*Cached)(nil)

// NewCached wraps inner. A nil client disables caching.
func NewCached(inner Embedder, client *redis.Client, ttl time.Duration, logger *slog.Logger) *Cached {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Cached{
		inner:  inner,
		client: client,
		ttl:    ttl,
		prefix: "recokit:emb:",
		logger: logger,
	}
}

func (c *Cached) Model() string   { return c.inner.Model() }
func (c *Cached) Dimensions() int { return c.inner.Dimensions() }

func (c *Cached) EmbedText(ctx context.Context, text string) ([]float32, error) {
	vecs, err := c.EmbedTexts(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vecs) != 1 {
		return nil, fmt.Errorf("expected 1 embedding, got %d", len(vecs))
	}
	return vecs[0], nil
}

func (c *Cached) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	if c.client == nil {
		return c.inner.EmbedTexts(ctx, texts)
	}

	out := make([][]float32, len(texts))
	var missTexts []string
	var missIdx []int
	for i, t := range texts {
		raw, err := c.client.Get(ctx, c.key(t)).Bytes()
		if err != nil {
			if !errors.Is(err, redis.Nil) {
				c.logger.Warn("embedding cache read failed", "error", err)
			}
			missTexts = append(missTexts, t)
			missIdx = append(missIdx, i)
			continue
		}
		vec, err := decodeVector(raw)
		if err != nil || len(vec) != c.inner.Dimensions() {
			missTexts = append(missTexts, t)
			missIdx = append(missIdx, i)
			continue
		}
		out[i] = vec
	}
	if len(missTexts) == 0 {
		return out, nil
	}

	vecs, err := c.inner.EmbedTexts(ctx, missTexts)
	if err != nil {
		return nil, err
	}
	if len(vecs) != len(missTexts) {
		return nil, fmt.Errorf("expected %d embeddings, got %d", len(missTexts), len(vecs))
	}
	for j, vec := range vecs {
		out[missIdx[j]] = vec
		if err := c.client.Set(ctx, c.key(missTexts[j]), encodeVector(vec), c.ttl).Err(); err != nil {
			c.logger.Warn("embedding cache write failed", "error", err)
		}
	}
	return out, nil
}

func (c *Cached) key(text string) string {
	sum := sha256.Sum256([]byte(text))
	return c.prefix + c.inner.Model() + ":" + hex.EncodeToString(sum[:])
}

// encodeVector packs vec as little-endian float32 bits.
func encodeVector(vec []float32) []byte {
	buf := make([]byte, 4*len(vec))
	for i, v := range vec {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(v))
	}
	return buf
}

func decodeVector(buf []byte) ([]float32, error) {
	if len(buf) == 0 || len(buf)%4 != 0 {
		return nil, fmt.Errorf("invalid cached vector of %d bytes", len(buf))
	}
	out := make([]float32, len(buf)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[4*i:]))
	}
	return out, nil
}
