package embedder

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
)

const (
	lcgMultiplier = 1664525
	lcgIncrement  = 1013904223
	lcgModulus    = 1 << 32
)

// DeterministicModel is reported by DeterministicEmbedder.Model.
const DeterministicModel = "deterministic-sha256-lcg"

// DeterministicEmbedder derives a reproducible pseudo-vector from text. It needs
// no network and never fails, so it backs the semantic fallback mode.
type DeterministicEmbedder struct {
	dimensions int
}

func NewDeterministic(dimensions int) *DeterministicEmbedder {
	if dimensions <= 0 {
		dimensions = DefaultDimensions
	}
	return &DeterministicEmbedder{dimensions: dimensions}
}

func (e *DeterministicEmbedder) Model() string   { return DeterministicModel }
func (e *DeterministicEmbedder) Dimensions() int { return e.dimensions }

func (e *DeterministicEmbedder) EmbedText(_ context.Context, text string) ([]float32, error) {
	return DeterministicVector(text, e.dimensions), nil
}

func (e *DeterministicEmbedder) EmbedTexts(_ context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = DeterministicVector(t, e.dimensions)
	}
	return out, nil
}

// DeterministicVector64 seeds a 32-bit LCG with the first four bytes
// (big-endian) of sha256(text) and maps each successive state s to
// s/2^32*2-1, in [-1,1). Similarity on the fallback path is computed from
// these float64 components.
func DeterministicVector64(text string, dimensions int) []float64 {
	sum := sha256.Sum256([]byte(text))
	seed := binary.BigEndian.Uint32(sum[:4])
	out := make([]float64, dimensions)
	for i := range out {
		// uint32 arithmetic wraps at 2^32.
		seed = lcgMultiplier*seed + lcgIncrement
		out[i] = float64(seed)/lcgModulus*2 - 1
	}
	return out
}

// DeterministicVector is DeterministicVector64 narrowed to float32, the
// Embedder element type.
func DeterministicVector(text string, dimensions int) []float32 {
	wide := DeterministicVector64(text, dimensions)
	out := make([]float32, len(wide))
	for i, v := range wide {
		out[i] = float32(v)
	}
	return out
}
