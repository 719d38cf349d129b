package embedding

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/hyperjump/fypmatch/pkg/utils"
)

// CachedEmbedder wraps an Embedder with an LRU cache keyed by model id and normalized text.
// Input is normalized before encoding, so texts that normalize equally share one vector.
type CachedEmbedder struct {
	next  Embedder
	cache *lru.Cache[string, []float32]
}

// NewCachedEmbedder wraps next with a cache of the given size. A size <= 0 disables caching
// but keeps normalization.
func NewCachedEmbedder(next Embedder, size int) (*CachedEmbedder, error) {
	c := &CachedEmbedder{next: next}
	if size > 0 {
		cache, err := lru.New[string, []float32](size)
		if err != nil {
			return nil, fmt.Errorf("failed to create embedding cache: %w", err)
		}
		c.cache = cache
	}
	return c, nil
}

// Embed returns the cached vector for text or encodes and caches it.
func (c *CachedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	normalized := utils.NormalizeText(text)
	if err := checkText(normalized); err != nil {
		return nil, err
	}
	key := c.key(normalized)
	if v, ok := c.get(key); ok {
		return v, nil
	}
	v, err := c.next.Embed(ctx, normalized)
	if err != nil {
		return nil, err
	}
	c.put(key, v)
	return cloneVector(v), nil
}

// EmbedBatch serves hits from the cache and sends the misses to the wrapped embedder in one batch.
func (c *CachedEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	var missIdx []int
	var missTexts []string
	for i, text := range texts {
		normalized := utils.NormalizeText(text)
		if err := checkText(normalized); err != nil {
			return nil, fmt.Errorf("text %d: %w", i, err)
		}
		if v, ok := c.get(c.key(normalized)); ok {
			out[i] = v
			continue
		}
		missIdx = append(missIdx, i)
		missTexts = append(missTexts, normalized)
	}
	if len(missTexts) == 0 {
		return out, nil
	}
	vecs, err := c.next.EmbedBatch(ctx, missTexts)
	if err != nil {
		return nil, err
	}
	if len(vecs) != len(missTexts) {
		return nil, fmt.Errorf("%w: batch returned %d vectors for %d texts", ErrModelUnavailable, len(vecs), len(missTexts))
	}
	for j, i := range missIdx {
		c.put(c.key(missTexts[j]), vecs[j])
		out[i] = cloneVector(vecs[j])
	}
	return out, nil
}

// Dimensions returns the wrapped embedder's dimension.
func (c *CachedEmbedder) Dimensions() int { return c.next.Dimensions() }

// ModelID returns the wrapped embedder's model id.
func (c *CachedEmbedder) ModelID() string { return c.next.ModelID() }

// Len returns the number of cached vectors.
func (c *CachedEmbedder) Len() int {
	if c.cache == nil {
		return 0
	}
	return c.cache.Len()
}

// Close purges the cache and closes the wrapped embedder.
func (c *CachedEmbedder) Close() error {
	if c.cache != nil {
		c.cache.Purge()
	}
	return c.next.Close()
}

func (c *CachedEmbedder) key(normalized string) string {
	return c.next.ModelID() + "|" + normalized
}

func (c *CachedEmbedder) get(key string) ([]float32, bool) {
	if c.cache == nil {
		return nil, false
	}
	v, ok := c.cache.Get(key)
	if !ok {
		return nil, false
	}
	return cloneVector(v), true
}

func (c *CachedEmbedder) put(key string, v []float32) {
	if c.cache != nil {
		c.cache.Add(key, cloneVector(v))
	}
}

func cloneVector(v []float32) []float32 {
	if v == nil {
		return nil
	}
	out := make([]float32, len(v))
	copy(out, v)
	return out
}
