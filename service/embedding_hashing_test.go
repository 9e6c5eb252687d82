package service

import (
	"context"
	"math"
	"testing"
)

func TestHashingEmbeddingDeterministic(t *testing.T) {
	e := NewHashingEmbedding(32)
	ctx := context.Background()

	v1, err := e.Embed(ctx, "Title: Heat\nGenres: Action, Crime")
	if err != nil {
		t.Fatalf("Embed() error = %v", err)
	}
	v2, err := e.Embed(ctx, "Title: Heat\nGenres: Action, Crime")
	if err != nil {
		t.Fatalf("Embed() error = %v", err)
	}
	if len(v1) != 32 {
		t.Fatalf("len = %d, want 32", len(v1))
	}
	for i := range v1 {
		if v1[i] != v2[i] {
			t.Fatalf("non-deterministic at %d: %v != %v", i, v1[i], v2[i])
		}
	}
}

func TestHashingEmbeddingNormalized(t *testing.T) {
	e := NewHashingEmbedding(16)
	vec, err := e.Embed(context.Background(), "some long movie overview with many words")
	if err != nil {
		t.Fatalf("Embed() error = %v", err)
	}
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	if math.Abs(sum-1.0) > 1e-5 {
		t.Errorf("L2 norm^2 = %v, want 1", sum)
	}
}

func TestHashingEmbeddingDistinguishesTexts(t *testing.T) {
	e := NewHashingEmbedding(64)
	ctx := context.Background()
	a, _ := e.Embed(ctx, "space opera with lightsabers")
	b, _ := e.Embed(ctx, "romantic comedy in paris")
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	if dot > 0.99 {
		t.Errorf("unrelated texts nearly identical: dot = %v", dot)
	}
}

func TestHashingEmbeddingBatch(t *testing.T) {
	e := NewHashingEmbedding(16)
	vecs, err := e.EmbedBatch(context.Background(), []string{"a", "b", "c"})
	if err != nil {
		t.Fatalf("EmbedBatch() error = %v", err)
	}
	if len(vecs) != 3 {
		t.Fatalf("len = %d, want 3", len(vecs))
	}
}

func TestNewEmbeddingServiceFactory(t *testing.T) {
	svc, err := NewEmbeddingService(&EmbeddingConfig{Type: EmbeddingTypeHashing, Dimension: 8})
	if err != nil {
		t.Fatalf("NewEmbeddingService() error = %v", err)
	}
	if svc.Dimension() != 8 {
		t.Errorf("Dimension() = %d, want 8", svc.Dimension())
	}

	if _, err := NewEmbeddingService(&EmbeddingConfig{Type: "bogus"}); err == nil {
		t.Error("expected error for unknown type")
	}
	if _, err := NewEmbeddingService(nil); err == nil {
		t.Error("expected error for nil config")
	}
}
