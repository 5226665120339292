package embedder

import (
	"context"
	"math"
	"testing"
)

func TestDeterministicVector_KnownPrefix(t *testing.T) {
	// sha256("desk lamp") starts with 295a2500.
	want := []float64{0.7324471916, -0.8662540680, 0.9196319473, 0.8392114881}
	got := DeterministicVector("desk lamp", 4)
	for i := range want {
		if math.Abs(float64(got[i])-want[i]) > 1e-6 {
			t.Fatalf("component %d: got %v, want %v", i, got[i], want[i])
		}
	}
}

func TestDeterministicVector64_ExactComponents(t *testing.T) {
	want := []float64{0.7324471916072071, -0.866254067979753, 0.9196319472976029, 0.8392114881426096}
	got := DeterministicVector64("desk lamp", 4)
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("component %d: got %.17g, want %.17g", i, got[i], want[i])
		}
	}
	narrow := DeterministicVector("desk lamp", 4)
	for i := range want {
		if narrow[i] != float32(want[i]) {
			t.Fatalf("component %d: float32 form %v is not the narrowed float64 %v", i, narrow[i], float32(want[i]))
		}
	}
}

func TestDeterministicVector_Reproducible(t *testing.T) {
	a := DeterministicVector("Eden Skin Serum", DefaultDimensions)
	b := DeterministicVector("Eden Skin Serum", DefaultDimensions)
	if len(a) != DefaultDimensions {
		t.Fatalf("expected %d dims, got %d", DefaultDimensions, len(a))
	}
	for i := range a {
		if math.Float32bits(a[i]) != math.Float32bits(b[i]) {
			t.Fatalf("component %d differs: %v vs %v", i, a[i], b[i])
		}
		if a[i] < -1 || a[i] > 1 {
			t.Fatalf("component %d out of range: %v", i, a[i])
		}
	}

	c := DeterministicVector("Atlas Carry-On", DefaultDimensions)
	same := true
	for i := range a {
		if a[i] != c[i] {
			same = false
			break
		}
	}
	if same {
		t.Fatalf("different texts produced identical vectors")
	}
}

func TestDeterministicEmbedder_EmbedTexts(t *testing.T) {
	e := NewDeterministic(0)
	if e.Dimensions() != DefaultDimensions {
		t.Fatalf("expected default dimensions, got %d", e.Dimensions())
	}
	vecs, err := e.EmbedTexts(context.Background(), []string{"a", "b"})
	if err != nil {
		t.Fatalf("embed: %v", err)
	}
	if len(vecs) != 2 || len(vecs[0]) != DefaultDimensions {
		t.Fatalf("unexpected output shape")
	}
	single, _ := e.EmbedText(context.Background(), "a")
	for i := range single {
		if single[i] != vecs[0][i] {
			t.Fatalf("EmbedText and EmbedTexts disagree at %d", i)
		}
	}
}

func TestProductDocument(t *testing.T) {
	got := ProductDocument("Eden Skin Serum", "Eden", "Beauty", "Hydrating serum.")
	want := "Eden Skin Serum. Eden. Beauty. Hydrating serum."
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}
