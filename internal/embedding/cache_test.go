package embedding

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
)

type countingEmbedder struct {
	*MockEmbedder
	calls atomic.Int64
	texts []string
}

func (c *countingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	c.calls.Add(1)
	c.texts = append(c.texts, text)
	return c.MockEmbedder.Embed(ctx, text)
}

func (c *countingEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return embedEach(ctx, c, texts)
}

func TestCachedEmbedder_HitsAndNormalization(t *testing.T) {
	inner := &countingEmbedder{MockEmbedder: NewMockEmbedder(64)}
	c, err := NewCachedEmbedder(inner, 8)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	a, err := c.Embed(ctx, "Smart  Attendance\tSystem")
	if err != nil {
		t.Fatal(err)
	}
	b, err := c.Embed(ctx, "  Smart Attendance System ")
	if err != nil {
		t.Fatal(err)
	}
	if inner.calls.Load() != 1 {
		t.Errorf("expected 1 inner call, got %d", inner.calls.Load())
	}
	if inner.texts[0] != "Smart Attendance System" {
		t.Errorf("inner embedder got %q, want normalized text", inner.texts[0])
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatal("cached vector differs")
		}
	}
	a[0] = 42
	again, _ := c.Embed(ctx, "Smart Attendance System")
	if again[0] == 42 {
		t.Error("cache returned a shared slice")
	}
}

func TestCachedEmbedder_Eviction(t *testing.T) {
	inner := &countingEmbedder{MockEmbedder: NewMockEmbedder(16)}
	c, err := NewCachedEmbedder(inner, 2)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	for _, s := range []string{"a", "b", "c"} {
		if _, err := c.Embed(ctx, s); err != nil {
			t.Fatal(err)
		}
	}
	if c.Len() != 2 {
		t.Errorf("Len() = %d, want 2", c.Len())
	}
	_, _ = c.Embed(ctx, "a")
	if inner.calls.Load() != 4 {
		t.Errorf("expected a to be evicted and re-embedded, calls = %d", inner.calls.Load())
	}
}

func TestCachedEmbedder_Batch(t *testing.T) {
	inner := &countingEmbedder{MockEmbedder: NewMockEmbedder(32)}
	c, _ := NewCachedEmbedder(inner, 16)
	ctx := context.Background()
	if _, err := c.Embed(ctx, "alpha"); err != nil {
		t.Fatal(err)
	}
	vecs, err := c.EmbedBatch(ctx, []string{"alpha", "beta", "gamma"})
	if err != nil {
		t.Fatal(err)
	}
	if len(vecs) != 3 {
		t.Fatalf("got %d vectors", len(vecs))
	}
	if inner.calls.Load() != 3 {
		t.Errorf("expected 3 inner calls (1 + 2 misses), got %d", inner.calls.Load())
	}
}

func TestCachedEmbedder_EmptyText(t *testing.T) {
	c, _ := NewCachedEmbedder(NewMockEmbedder(8), 4)
	if _, err := c.Embed(context.Background(), " \n\t "); !errors.Is(err, ErrEmptyText) {
		t.Errorf("expected ErrEmptyText, got %v", err)
	}
	if _, err := c.EmbedBatch(context.Background(), []string{"ok", ""}); !errors.Is(err, ErrEmptyText) {
		t.Errorf("expected ErrEmptyText from batch, got %v", err)
	}
}

func TestCachedEmbedder_DisabledCache(t *testing.T) {
	inner := &countingEmbedder{MockEmbedder: NewMockEmbedder(8)}
	c, err := NewCachedEmbedder(inner, 0)
	if err != nil {
		t.Fatal(err)
	}
	_, _ = c.Embed(context.Background(), "x")
	_, _ = c.Embed(context.Background(), "x")
	if inner.calls.Load() != 2 {
		t.Errorf("expected no caching, calls = %d", inner.calls.Load())
	}
	if c.ModelID() != MockModelID || c.Dimensions() != 8 {
		t.Error("wrapper should report inner model id and dimensions")
	}
}
