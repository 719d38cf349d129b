// Package cli formats review verdicts, suggestions and status for the fypmatch CLI.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/hyperjump/fypmatch/internal/models"
	"github.com/hyperjump/fypmatch/pkg/utils"
)

// OutputFormat selects how results are written.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// ParseOutputFormat validates a --output flag value.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch f := OutputFormat(strings.ToLower(strings.TrimSpace(s))); f {
	case "", OutputText:
		return OutputText, nil
	case OutputJSON:
		return f, nil
	default:
		return "", fmt.Errorf("unknown output format %q (want text or json)", s)
	}
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

const rule = "─────────────────────────────────────────────────────────"

// WriteVerdict writes a review verdict.
func WriteVerdict(w io.Writer, v *models.ReviewVerdict, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, v)
	}
	fmt.Fprintln(w, rule)
	fmt.Fprintf(w, "Status:     %s\n", v.Status)
	fmt.Fprintf(w, "Feedback:   %s\n", v.FeedbackLabel)
	supervisor := "-"
	if v.SuggestedSupervisorID != nil {
		supervisor = fmt.Sprintf("%s (%.4f)", *v.SuggestedSupervisorID, v.SupervisorScore)
	}
	fmt.Fprintf(w, "Supervisor: %s\n", supervisor)
	fmt.Fprintf(w, "Title match: %.4f", v.TitleMatchScore)
	if v.Duplicate {
		fmt.Fprint(w, " (duplicate)")
	}
	fmt.Fprintln(w)
	if v.Score != nil {
		fmt.Fprintf(w, "Rubric:     %d\n", v.Score.TotalScore)
		for _, r := range v.Score.ReasonsPresent {
			fmt.Fprintf(w, "  + %s\n", r)
		}
		for _, r := range v.Score.ReasonsMissing {
			fmt.Fprintf(w, "  - %s\n", r)
		}
	}
	fmt.Fprintln(w, rule)
	fmt.Fprintln(w, v.FeedbackDescription)
	return nil
}

// WriteSuggestions writes ranked title suggestions.
func WriteSuggestions(w io.Writer, resp *models.SuggestResponse, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, resp)
	}
	if len(resp.Suggestions) == 0 {
		fmt.Fprintln(w, "No suggestions: the corpus is empty.")
		return nil
	}
	fmt.Fprintf(w, "\n%d suggestions in %dms\n\n", len(resp.Suggestions), resp.QueryTime)
	for i, s := range resp.Suggestions {
		fmt.Fprintf(w, "%2d. %.4f  %s\n", i+1, s.Score, s.Label)
	}
	return nil
}

// WriteProposals writes a proposal listing.
func WriteProposals(w io.Writer, proposals []*models.Proposal, format OutputFormat) error {
	if format == OutputJSON {
		if proposals == nil {
			proposals = []*models.Proposal{}
		}
		return writeJSON(w, proposals)
	}
	for _, p := range proposals {
		fmt.Fprintf(w, "%-9s %s  %s\n", p.Status, utils.Truncate(p.ID, 20), utils.Truncate(p.Title, 60))
	}
	fmt.Fprintf(w, "%d proposals\n", len(proposals))
	return nil
}

// WriteStatus writes any status value. Text output lists top-level JSON fields as key: value lines.
func WriteStatus(w io.Writer, status interface{}, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, status)
	}
	b, err := json.Marshal(status)
	if err != nil {
		return err
	}
	var fields map[string]interface{}
	if err := json.Unmarshal(b, &fields); err != nil {
		return err
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		v := fields[k]
		switch val := v.(type) {
		case map[string]interface{}, []interface{}:
			compact, _ := json.Marshal(val)
			fmt.Fprintf(w, "%s: %s\n", k, compact)
		case float64:
			fmt.Fprintf(w, "%s: %v\n", k, int64(val))
		default:
			fmt.Fprintf(w, "%s: %v\n", k, val)
		}
	}
	return nil
}
