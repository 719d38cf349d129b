package models

import (
	"fmt"
	"strings"
)

// ReviewStatus is the overall outcome of a proposal review.
type ReviewStatus string

const (
	ReviewPass ReviewStatus = "Pass"
	ReviewFail ReviewStatus = "Fail"
)

// FeedbackLabel summarizes review quality.
type FeedbackLabel string

const (
	FeedbackGood FeedbackLabel = "Good"
	FeedbackPoor FeedbackLabel = "Poor"
)

// SectionScore is the rubric outcome for one proposal. Reasons keep rule order.
type SectionScore struct {
	TotalScore     int      `json:"total_score"`
	ReasonsPresent []string `json:"reasons_present"`
	ReasonsMissing []string `json:"reasons_missing"`
}

// ReviewVerdict is the final decision for one proposal.
type ReviewVerdict struct {
	Status                ReviewStatus  `json:"status"`
	FeedbackLabel         FeedbackLabel `json:"feedback_label"`
	FeedbackDescription   string        `json:"feedback_description"`
	SuggestedSupervisorID *string       `json:"suggested_supervisor_id"`

	// Diagnostics; not part of the decision itself.
	Duplicate       bool          `json:"duplicate"`
	TitleMatchScore float64       `json:"title_match_score"`
	Score           *SectionScore `json:"rubric,omitempty"`
	SupervisorScore float64       `json:"supervisor_score,omitempty"`
}

// ReviewRequest is the input for a proposal review.
type ReviewRequest struct {
	Title        string       `json:"title"`
	ProposalText string       `json:"proposal_text"`
	PriorTitles  []string     `json:"prior_titles"`
	Expertise    ExpertiseMap `json:"expertise"`
}

// Validate checks that the request carries text to review and titles to compare against.
func (r *ReviewRequest) Validate() error {
	if strings.TrimSpace(r.Title) == "" {
		return fmt.Errorf("title cannot be empty")
	}
	if strings.TrimSpace(r.ProposalText) == "" {
		return fmt.Errorf("proposal_text cannot be empty")
	}
	if len(r.PriorTitles) == 0 {
		return fmt.Errorf("prior_titles cannot be empty")
	}
	return nil
}

// SuggestRequest is the input for title suggestions.
type SuggestRequest struct {
	Theme string   `json:"theme"`
	Tags  []string `json:"tags"`
	K     int      `json:"k,omitempty"`
}

// SuggestResponse is the response for a suggestion request.
type SuggestResponse struct {
	Suggestions []SimilarityResult `json:"suggestions"`
	QueryTime   int64              `json:"query_time_ms"`
}
