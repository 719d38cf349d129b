package review

import (
	"context"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/hyperjump/fypmatch/internal/config"
	"github.com/hyperjump/fypmatch/internal/embedding"
	"github.com/hyperjump/fypmatch/internal/models"
	"github.com/hyperjump/fypmatch/internal/rubric"
	"github.com/hyperjump/fypmatch/pkg/utils"
)

// DuplicateMessage is the feedback returned when the title gate fails.
const DuplicateMessage = "Proposal title or functionality is too similar to a previous FYP."

const (
	passPrefix = "Positive feedback based on proposal content: "
	failPrefix = "Proposal failed due to the following issues: "
)

// Reviewer runs the duplicate gate, then the rubric and supervisor matcher, and builds a verdict.
type Reviewer struct {
	gate          *DuplicateGate
	scorer        *rubric.Scorer
	matcher       *SupervisorMatcher
	passThreshold int
	logger        *zap.Logger
}

// Option configures a Reviewer.
type Option func(*Reviewer)

// WithLogger sets the logger for the reviewer.
func WithLogger(l *zap.Logger) Option {
	return func(r *Reviewer) {
		r.logger = utils.LoggerOrNop(l)
	}
}

// WithScorer replaces the rubric scorer.
func WithScorer(s *rubric.Scorer) Option {
	return func(r *Reviewer) {
		if s != nil {
			r.scorer = s
		}
	}
}

// NewReviewer builds a reviewer sharing one embedder across its stages.
func NewReviewer(e embedding.Embedder, cfg config.ReviewConfig, opts ...Option) *Reviewer {
	threshold := cfg.DuplicateThreshold
	if threshold == 0 {
		threshold = config.DefaultDuplicateThreshold
	}
	pass := cfg.PassThreshold
	if pass == 0 {
		pass = config.DefaultPassThreshold
	}
	r := &Reviewer{
		gate:          NewDuplicateGate(e, threshold),
		scorer:        rubric.NewScorer(cfg.Rubric),
		passThreshold: pass,
		logger:        zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.matcher = NewSupervisorMatcher(e, r.logger)
	return r
}

// PassThreshold returns the minimum rubric score for a Pass.
func (r *Reviewer) PassThreshold() int {
	return r.passThreshold
}

// EvaluateProposal reviews one proposal.
func (r *Reviewer) EvaluateProposal(ctx context.Context, title, proposalText string, priorTitles []string, expertise models.ExpertiseMap) (*models.ReviewVerdict, error) {
	return r.Evaluate(ctx, &models.ReviewRequest{
		Title:        title,
		ProposalText: proposalText,
		PriorTitles:  priorTitles,
		Expertise:    expertise,
	})
}

// Evaluate reviews req. A duplicate title short-circuits: the rubric and supervisor matcher
// do not run and the verdict is Fail with no supervisor. Errors are returned instead of a
// verdict whenever any stage cannot be computed.
func (r *Reviewer) Evaluate(ctx context.Context, req *models.ReviewRequest) (*models.ReviewVerdict, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrInvalidInput, err)
	}
	log := r.logger.With(zap.String("title", req.Title))
	log.Debug("reviewing proposal", zap.Int("text_length", len(req.ProposalText)), zap.Int("prior_titles", len(req.PriorTitles)))

	dup, err := r.gate.Check(ctx, req.Title, req.PriorTitles)
	if err != nil {
		return nil, err
	}
	log.Debug("title match", zap.Float64("score", dup.MaxScore), zap.String("matched_title", dup.MatchedTitle))

	if dup.IsDuplicate {
		log.Info("duplicate title", zap.Float64("score", dup.MaxScore), zap.String("matched_title", dup.MatchedTitle))
		return &models.ReviewVerdict{
			Status:              models.ReviewFail,
			FeedbackLabel:       models.FeedbackPoor,
			FeedbackDescription: DuplicateMessage,
			Duplicate:           true,
			TitleMatchScore:     dup.MaxScore,
		}, nil
	}

	score := r.scorer.Score(req.ProposalText)
	match, err := r.matcher.BestMatch(ctx, req.ProposalText, req.Expertise)
	if err != nil {
		return nil, err
	}

	v := &models.ReviewVerdict{
		TitleMatchScore: dup.MaxScore,
		Score:           &score,
		SupervisorScore: match.Score,
	}
	if match.SupervisorID != "" {
		id := match.SupervisorID
		v.SuggestedSupervisorID = &id
	}
	if rubric.Passed(score.TotalScore, r.passThreshold) {
		v.Status = models.ReviewPass
		v.FeedbackLabel = models.FeedbackGood
		v.FeedbackDescription = passPrefix + strings.Join(score.ReasonsPresent, " ")
	} else {
		v.Status = models.ReviewFail
		v.FeedbackLabel = models.FeedbackPoor
		v.FeedbackDescription = failDescription(score, r.passThreshold)
	}

	log.Debug("review complete",
		zap.Int("total_score", score.TotalScore),
		zap.String("status", string(v.Status)),
		zap.String("supervisor_id", match.SupervisorID),
		zap.Float64("supervisor_score", match.Score))
	return v, nil
}

func failDescription(score models.SectionScore, threshold int) string {
	if len(score.ReasonsMissing) == 0 {
		return fmt.Sprintf("%sScore %d is below the pass threshold of %d.", failPrefix, score.TotalScore, threshold)
	}
	return failPrefix + capitalizeFirst(strings.Join(score.ReasonsMissing, ", ")) + "."
}

func capitalizeFirst(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}
