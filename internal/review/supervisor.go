package review

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/hyperjump/fypmatch/internal/embedding"
	"github.com/hyperjump/fypmatch/internal/models"
	"github.com/hyperjump/fypmatch/internal/vector"
	"github.com/hyperjump/fypmatch/pkg/utils"
)

// SupervisorMatch is the best supervisor for a proposal. An empty SupervisorID means none.
type SupervisorMatch struct {
	SupervisorID string  `json:"supervisor_id,omitempty"`
	Score        float64 `json:"score"`
}

// SupervisorMatcher compares a proposal with each supervisor's joined expertise keywords.
type SupervisorMatcher struct {
	embedder embedding.Embedder
	logger   *zap.Logger
}

// NewSupervisorMatcher returns a matcher. A nil logger is replaced with a no-op logger.
func NewSupervisorMatcher(e embedding.Embedder, logger *zap.Logger) *SupervisorMatcher {
	return &SupervisorMatcher{embedder: e, logger: utils.LoggerOrNop(logger)}
}

// BestMatch returns the supervisor with the highest positive similarity. Supervisors are
// visited in ascending id order and ties keep the first one seen. Supervisors without keywords
// are skipped. When no supervisor scores above 0, or the map is empty, the result is no
// supervisor and a score of 0.
func (m *SupervisorMatcher) BestMatch(ctx context.Context, proposalText string, expertise models.ExpertiseMap) (SupervisorMatch, error) {
	ids := make([]string, 0, len(expertise))
	texts := make([]string, 0, len(expertise))
	for id, kws := range expertise {
		if id == "" || strings.TrimSpace(strings.Join(kws, " ")) == "" {
			m.logger.Debug("skipping supervisor without id or expertise", zap.String("supervisor_id", id))
			continue
		}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return SupervisorMatch{}, nil
	}
	sort.Strings(ids)
	for _, id := range ids {
		texts = append(texts, strings.Join(expertise[id], " "))
	}

	proposal, err := m.embedder.Embed(ctx, proposalText)
	if err != nil {
		return SupervisorMatch{}, embedError("proposal text", err)
	}
	vecs, err := m.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return SupervisorMatch{}, embedError("supervisor expertise", err)
	}

	var best SupervisorMatch
	for i, v := range vecs {
		score, err := vector.Cosine(proposal, v)
		if err != nil {
			return SupervisorMatch{}, fmt.Errorf("supervisor %q: %w", ids[i], err)
		}
		if score > best.Score {
			best = SupervisorMatch{SupervisorID: ids[i], Score: score}
		}
	}
	return best, nil
}
