package embedding

import (
	"context"
	"errors"
	"math"
	"testing"
)

func dot(a, b []float32) float64 {
	var s float64
	for i := range a {
		s += float64(a[i]) * float64(b[i])
	}
	return s
}

func TestMockEmbedder_Deterministic(t *testing.T) {
	e := NewMockEmbedder(256)
	ctx := context.Background()
	a, err := e.Embed(ctx, "IoT based smart irrigation")
	if err != nil {
		t.Fatal(err)
	}
	b, _ := e.Embed(ctx, "IoT based smart irrigation")
	if len(a) != 256 {
		t.Fatalf("len = %d", len(a))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatal("same text should embed identically")
		}
	}
	if n := math.Sqrt(dot(a, a)); math.Abs(n-1) > 1e-6 {
		t.Errorf("norm = %f, want 1", n)
	}
}

func TestMockEmbedder_LexicalOverlap(t *testing.T) {
	e := NewMockEmbedder(4096)
	ctx := context.Background()
	q, _ := e.Embed(ctx, "solar powered irrigation")
	near, _ := e.Embed(ctx, "solar irrigation controller")
	far, _ := e.Embed(ctx, "library management portal")
	if dot(q, near) <= dot(q, far) {
		t.Errorf("overlapping text should score higher: near=%f far=%f", dot(q, near), dot(q, far))
	}
}

func TestMockEmbedder_EmptyText(t *testing.T) {
	e := NewMockEmbedder(8)
	if _, err := e.Embed(context.Background(), "   "); !errors.Is(err, ErrEmptyText) {
		t.Errorf("expected ErrEmptyText, got %v", err)
	}
	if e.ModelID() != MockModelID {
		t.Errorf("ModelID() = %q", e.ModelID())
	}
}
