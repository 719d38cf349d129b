// Package ranking scores a query vector against corpus entries and selects the top matches.
package ranking

import (
	"fmt"
	"sort"

	"github.com/hyperjump/fypmatch/internal/models"
	"github.com/hyperjump/fypmatch/internal/vector"
)

// ScoreAll returns the cosine similarity of query against every entry, in corpus order.
func ScoreAll(query []float32, entries []models.CorpusEntry) ([]models.SimilarityResult, error) {
	results := make([]models.SimilarityResult, len(entries))
	for i, e := range entries {
		score, err := vector.Cosine(query, e.Vector)
		if err != nil {
			return nil, fmt.Errorf("entry %d (%q): %w", i, e.Title, err)
		}
		results[i] = models.SimilarityResult{Label: e.Title, Score: score}
	}
	return results, nil
}

// TopK returns up to k results sorted by descending score. Equal scores keep corpus order.
// An empty corpus yields an empty, non-nil slice.
func TopK(query []float32, entries []models.CorpusEntry, k int) ([]models.SimilarityResult, error) {
	if k <= 0 {
		return nil, fmt.Errorf("k must be positive, got %d", k)
	}
	results, err := ScoreAll(query, entries)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if len(results) > k {
		results = results[:k]
	}
	return results, nil
}
