// Package suggest recommends project titles from the approved-proposal corpus.
package suggest

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/hyperjump/fypmatch/internal/corpus"
	"github.com/hyperjump/fypmatch/internal/embedding"
	"github.com/hyperjump/fypmatch/internal/models"
	"github.com/hyperjump/fypmatch/internal/ranking"
	"github.com/hyperjump/fypmatch/pkg/utils"
)

// DefaultK is used when neither the caller nor the config sets k.
const DefaultK = 3

// Suggester ranks corpus titles against a theme and tags.
type Suggester struct {
	embedder embedding.Embedder
	store    *corpus.Store
	defaultK int
	maxK     int
	logger   *zap.Logger
}

// Option configures a Suggester.
type Option func(*Suggester)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Suggester) {
		s.logger = utils.LoggerOrNop(l)
	}
}

// WithLimits sets the k used when the caller passes k <= 0 and the upper bound for k.
func WithLimits(defaultK, maxK int) Option {
	return func(s *Suggester) {
		if defaultK > 0 {
			s.defaultK = defaultK
		}
		if maxK > 0 {
			s.maxK = maxK
		}
	}
}

// New returns a Suggester reading from store.
func New(e embedding.Embedder, store *corpus.Store, opts ...Option) *Suggester {
	s := &Suggester{
		embedder: e,
		store:    store,
		defaultK: DefaultK,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Query builds the text encoded for a suggestion request: the theme followed by the tags.
func Query(theme string, tags []string) string {
	clean := make([]string, 0, len(tags))
	for _, t := range tags {
		if t = strings.TrimSpace(t); t != "" {
			clean = append(clean, t)
		}
	}
	theme = strings.TrimSpace(theme)
	if len(clean) == 0 {
		return theme
	}
	return theme + " " + strings.Join(clean, ", ")
}

// ParseTags splits a comma-separated tag string.
func ParseTags(s string) []string {
	var out []string
	for _, t := range strings.Split(s, ",") {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// SuggestTitles returns up to k corpus titles most similar to the theme and tags, best first.
// An empty theme is ErrInvalidInput. An empty corpus yields an empty result, not an error.
func (s *Suggester) SuggestTitles(ctx context.Context, theme string, tags []string, k int) ([]models.SimilarityResult, error) {
	if strings.TrimSpace(theme) == "" {
		return nil, fmt.Errorf("%w: theme cannot be empty", models.ErrInvalidInput)
	}
	if k <= 0 {
		k = s.defaultK
	}
	if s.maxK > 0 && k > s.maxK {
		k = s.maxK
	}

	snap := s.store.Current()
	if snap.Len() == 0 {
		s.logger.Debug("suggestion requested against empty corpus", zap.String("theme", theme))
		return []models.SimilarityResult{}, nil
	}

	query := Query(theme, tags)
	vec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		if errors.Is(err, embedding.ErrEmptyText) {
			return nil, fmt.Errorf("%w: %w", models.ErrInvalidInput, err)
		}
		return nil, fmt.Errorf("embed query: %w", err)
	}
	results, err := ranking.TopK(vec, snap.Entries, k)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("suggestions ranked",
		zap.String("query", query),
		zap.Int("corpus_size", snap.Len()),
		zap.Int("returned", len(results)))
	return results, nil
}
