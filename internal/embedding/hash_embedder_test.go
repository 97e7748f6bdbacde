package embedding

import (
	"context"
	"math"
	"testing"
)

func cosine(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	return dot / math.Sqrt(na*nb)
}

func TestHashEmbedder_DeterministicUnitVectors(t *testing.T) {
	ctx := context.Background()
	e := NewHashEmbedder(64)
	a, err := e.Embed(ctx, "The quick brown fox")
	if err != nil {
		t.Fatal(err)
	}
	b, _ := e.Embed(ctx, "the QUICK brown fox!")
	if len(a) != 64 {
		t.Fatalf("len = %d, want 64", len(a))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("case and punctuation changed the embedding at %d", i)
		}
	}
	var norm float64
	for _, v := range a {
		norm += float64(v) * float64(v)
	}
	if math.Abs(norm-1) > 1e-5 {
		t.Errorf("norm^2 = %f, want 1", norm)
	}
}

func TestHashEmbedder_SharedWordsAreCloser(t *testing.T) {
	ctx := context.Background()
	e := NewHashEmbedder(384)
	q, _ := e.Embed(ctx, "tokenized treasury bond compliance")
	near, _ := e.Embed(ctx, "compliance rules for a tokenized treasury bond")
	far, _ := e.Embed(ctx, "recipe for banana bread")
	if cosine(q, near) <= cosine(q, far) {
		t.Errorf("cos(near)=%f should exceed cos(far)=%f", cosine(q, near), cosine(q, far))
	}
}

func TestHashEmbedder_EmptyTextIsZero(t *testing.T) {
	e := NewHashEmbedder(8)
	v, err := e.Embed(context.Background(), "  ...  ")
	if err != nil {
		t.Fatal(err)
	}
	for _, x := range v {
		if x != 0 {
			t.Fatalf("expected zero vector, got %v", v)
		}
	}
}

func TestHashEmbedder_DefaultsAndBatch(t *testing.T) {
	e := NewHashEmbedder(0)
	if e.Dimensions() != DefaultDimensions {
		t.Errorf("Dimensions = %d, want %d", e.Dimensions(), DefaultDimensions)
	}
	out, err := e.EmbedBatch(context.Background(), []string{"a", "b"})
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 2 {
		t.Errorf("batch len = %d", len(out))
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := e.Embed(ctx, "x"); err == nil {
		t.Error("expected error for cancelled context")
	}
}

func TestTokens(t *testing.T) {
	got := Tokens("Hello, World! 42x")
	want := []string{"hello", "world", "42x"}
	if len(got) != len(want) {
		t.Fatalf("Tokens = %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Tokens[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}
