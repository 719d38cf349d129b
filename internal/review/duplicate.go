// Package review evaluates proposals: duplicate-title gate, rubric scoring, and supervisor matching.
package review

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/hyperjump/fypmatch/internal/embedding"
	"github.com/hyperjump/fypmatch/internal/models"
	"github.com/hyperjump/fypmatch/internal/vector"
)

// DuplicateResult is the outcome of comparing a title against prior titles.
type DuplicateResult struct {
	IsDuplicate  bool    `json:"is_duplicate"`
	MaxScore     float64 `json:"max_score"`
	MatchedTitle string  `json:"matched_title"`
}

// DuplicateGate flags titles whose similarity to any prior title reaches the threshold.
type DuplicateGate struct {
	embedder  embedding.Embedder
	threshold float64
}

// NewDuplicateGate returns a gate using threshold (inclusive).
func NewDuplicateGate(e embedding.Embedder, threshold float64) *DuplicateGate {
	return &DuplicateGate{embedder: e, threshold: threshold}
}

// Threshold returns the configured threshold.
func (g *DuplicateGate) Threshold() float64 {
	return g.threshold
}

// Check compares candidate against every non-blank prior title and returns the maximum similarity.
// An empty prior list is ErrInvalidInput: a maximum over nothing is undefined.
func (g *DuplicateGate) Check(ctx context.Context, candidate string, priorTitles []string) (DuplicateResult, error) {
	if strings.TrimSpace(candidate) == "" {
		return DuplicateResult{}, fmt.Errorf("%w: candidate title is empty", models.ErrInvalidInput)
	}
	priors := make([]string, 0, len(priorTitles))
	for _, p := range priorTitles {
		if strings.TrimSpace(p) != "" {
			priors = append(priors, p)
		}
	}
	if len(priors) == 0 {
		return DuplicateResult{}, fmt.Errorf("%w: no prior titles to compare against", models.ErrInvalidInput)
	}

	cand, err := g.embedder.Embed(ctx, candidate)
	if err != nil {
		return DuplicateResult{}, embedError("candidate title", err)
	}
	vecs, err := g.embedder.EmbedBatch(ctx, priors)
	if err != nil {
		return DuplicateResult{}, embedError("prior titles", err)
	}

	res := DuplicateResult{MaxScore: math.Inf(-1)}
	for i, v := range vecs {
		score, err := vector.Cosine(cand, v)
		if err != nil {
			return DuplicateResult{}, fmt.Errorf("prior title %q: %w", priors[i], err)
		}
		if score > res.MaxScore {
			res.MaxScore = score
			res.MatchedTitle = priors[i]
		}
	}
	res.IsDuplicate = res.MaxScore > g.threshold
	return res, nil
}

// embedError marks empty-text failures as invalid input and passes everything else through.
func embedError(what string, err error) error {
	if errors.Is(err, embedding.ErrEmptyText) {
		return fmt.Errorf("%w: %s: %w", models.ErrInvalidInput, what, err)
	}
	return fmt.Errorf("embed %s: %w", what, err)
}
