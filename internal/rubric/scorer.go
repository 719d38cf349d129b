package rubric

import (
	"fmt"
	"strings"

	"github.com/hyperjump/fypmatch/internal/config"
	"github.com/hyperjump/fypmatch/internal/models"
	"github.com/hyperjump/fypmatch/pkg/utils"
)

// RuleID identifies one rubric rule. The order of the constants is the order
// in which rules are applied and reasons are reported.
type RuleID int

const (
	RuleHardwareSoftware RuleID = iota
	RuleEmergingTech
	RuleProblemStatement
	RuleObjectives
	RuleDesign
	RuleLiteratureReview
	RuleSocialImpact
)

var ruleNames = [...]string{
	RuleHardwareSoftware: "hardware_software",
	RuleEmergingTech:     "emerging_tech",
	RuleProblemStatement: "problem_statement",
	RuleObjectives:       "objectives",
	RuleDesign:           "design",
	RuleLiteratureReview: "literature_review",
	RuleSocialImpact:     "social_impact",
}

func (r RuleID) String() string {
	if r < 0 || int(r) >= len(ruleNames) {
		return fmt.Sprintf("rule(%d)", int(r))
	}
	return ruleNames[r]
}

// EmergingTechKeywords are matched as case-insensitive substrings of the proposal.
var EmergingTechKeywords = []string{"ai", "iot", "blockchain", "machine learning", "deep learning"}

// SocialKeywords are matched as case-insensitive substrings of the proposal.
var SocialKeywords = []string{"social", "sustainability", "society", "green", "environment"}

// Outcome is the result of applying one rule.
type Outcome struct {
	Rule    RuleID
	Awarded int
	Present bool
	Reason  string
}

type rule struct {
	id     RuleID
	points int
	apply  func(doc *document) (bool, string)
}

// document carries the proposal text and its lowercased form through the rules.
type document struct {
	text  string
	lower string
}

// Scorer applies the rubric to proposal text.
type Scorer struct {
	rules     []rule
	extractor SectionExtractor
}

// Option configures a Scorer.
type Option func(*Scorer)

// WithExtractor replaces the section extractor.
func WithExtractor(e SectionExtractor) Option {
	return func(s *Scorer) {
		if e != nil {
			s.extractor = e
		}
	}
}

// NewScorer builds the rubric from cfg. Zero point values and minimums fall back to defaults.
func NewScorer(cfg config.RubricConfig, opts ...Option) *Scorer {
	d := config.DefaultRubric()
	pick := func(v, def int) int {
		if v == 0 {
			return def
		}
		return v
	}
	s := &Scorer{extractor: NewHeaderExtractor()}
	for _, opt := range opts {
		opt(s)
	}
	s.rules = []rule{
		{RuleHardwareSoftware, pick(cfg.HardwareSoftwarePoints, d.HardwareSoftwarePoints), hardwareSoftware},
		{RuleEmergingTech, pick(cfg.EmergingTechPoints, d.EmergingTechPoints), emergingTech},
		{RuleProblemStatement, pick(cfg.ProblemStatementPoints, d.ProblemStatementPoints),
			s.section("Problem Statement", pick(cfg.ProblemStatementMinWords, d.ProblemStatementMinWords),
				"Well-defined problem statement.",
				"problem statement section is missing or too brief")},
		{RuleObjectives, pick(cfg.ObjectivesPoints, d.ObjectivesPoints),
			s.section("Objectives", pick(cfg.ObjectivesMinWords, d.ObjectivesMinWords),
				"Objectives section is clearly defined.",
				"objectives section is missing or insufficient")},
		{RuleDesign, pick(cfg.DesignPoints, d.DesignPoints),
			s.section("Design", pick(cfg.DesignMinWords, d.DesignMinWords),
				"Includes design/architecture approach.",
				"design/architecture section is missing or too short")},
		{RuleLiteratureReview, pick(cfg.LiteratureReviewPoints, d.LiteratureReviewPoints),
			s.section("Literature Review", pick(cfg.LiteratureReviewMinWords, d.LiteratureReviewMinWords),
				"Covers literature review in detail.",
				"literature review section missing or too brief")},
		{RuleSocialImpact, pick(cfg.SocialImpactPoints, d.SocialImpactPoints), socialImpact},
	}
	return s
}

// MaxScore returns the sum of all rule points.
func (s *Scorer) MaxScore() int {
	total := 0
	for _, r := range s.rules {
		total += r.points
	}
	return total
}

// Evaluate applies every rule in order and returns the per-rule outcomes.
func (s *Scorer) Evaluate(text string) []Outcome {
	doc := &document{text: text, lower: strings.ToLower(text)}
	out := make([]Outcome, 0, len(s.rules))
	for _, r := range s.rules {
		ok, reason := r.apply(doc)
		o := Outcome{Rule: r.id, Present: ok, Reason: reason}
		if ok {
			o.Awarded = r.points
		}
		out = append(out, o)
	}
	return out
}

// Score applies the rubric and collects reasons in rule order.
func (s *Scorer) Score(text string) models.SectionScore {
	score := models.SectionScore{ReasonsPresent: []string{}, ReasonsMissing: []string{}}
	for _, o := range s.Evaluate(text) {
		score.TotalScore += o.Awarded
		if o.Present {
			score.ReasonsPresent = append(score.ReasonsPresent, o.Reason)
		} else {
			score.ReasonsMissing = append(score.ReasonsMissing, o.Reason)
		}
	}
	return score
}

// Passed reports whether total meets the pass threshold (inclusive).
func Passed(total, threshold int) bool {
	return total >= threshold
}

func (s *Scorer) section(name string, minWords int, present, missing string) func(*document) (bool, string) {
	return func(doc *document) (bool, string) {
		body := s.extractor.Extract(doc.text, name)
		if body != "" && utils.WordCount(body) >= minWords {
			return true, present
		}
		return false, missing
	}
}

func hardwareSoftware(doc *document) (bool, string) {
	hw := strings.Contains(doc.lower, "hardware")
	sw := strings.Contains(doc.lower, "software")
	switch {
	case hw && sw:
		return true, "Includes both hardware and software components."
	case !hw && !sw:
		return false, "missing both hardware and software components"
	case !hw:
		return false, "missing hardware component"
	default:
		return false, "missing software component"
	}
}

func emergingTech(doc *document) (bool, string) {
	var found []string
	for _, kw := range EmergingTechKeywords {
		if strings.Contains(doc.lower, kw) {
			found = append(found, strings.ToUpper(kw))
		}
	}
	if len(found) == 0 {
		return false, "no use of emerging technologies like AI, IoT, or Blockchain"
	}
	return true, "Uses emerging technologies: " + strings.Join(found, ", ") + "."
}

func socialImpact(doc *document) (bool, string) {
	for _, kw := range SocialKeywords {
		if strings.Contains(doc.lower, kw) {
			return true, "Addresses social or environmental needs."
		}
	}
	return false, "no reference to social impact or sustainability"
}
