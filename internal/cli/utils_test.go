package cli

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/hyperjump/fypmatch/internal/models"
)

func TestParseOutputFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    OutputFormat
		wantErr bool
	}{
		{"", OutputText, false},
		{"text", OutputText, false},
		{" JSON ", OutputJSON, false},
		{"yaml", "", true},
	}
	for _, tt := range tests {
		got, err := ParseOutputFormat(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseOutputFormat(%q) = %q, %v", tt.in, got, err)
		}
	}
}

func TestWriteVerdict_Text(t *testing.T) {
	id := "t1"
	v := &models.ReviewVerdict{
		Status:                models.ReviewPass,
		FeedbackLabel:         models.FeedbackGood,
		FeedbackDescription:   "Positive feedback based on proposal content: Includes both hardware and software components.",
		SuggestedSupervisorID: &id,
		SupervisorScore:       0.5,
		TitleMatchScore:       0.25,
		Score: &models.SectionScore{
			TotalScore:     60,
			ReasonsPresent: []string{"Includes both hardware and software components."},
			ReasonsMissing: []string{"Design section missing or too brief."},
		},
	}
	var buf bytes.Buffer
	if err := WriteVerdict(&buf, v, OutputText); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{"Status:     Pass", "t1 (0.5000)", "Rubric:     60", "  + Includes both", "  - Design section", "Positive feedback"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestWriteVerdict_DuplicateJSON(t *testing.T) {
	v := &models.ReviewVerdict{Status: models.ReviewFail, FeedbackLabel: models.FeedbackPoor, Duplicate: true, TitleMatchScore: 0.93}
	var buf bytes.Buffer
	if err := WriteVerdict(&buf, v, OutputJSON); err != nil {
		t.Fatal(err)
	}
	var decoded map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("invalid JSON: %v\n%s", err, buf.String())
	}
	if decoded["suggested_supervisor_id"] != nil || decoded["status"] != "Fail" {
		t.Errorf("decoded = %v", decoded)
	}
	if _, ok := decoded["rubric"]; ok {
		t.Error("rubric should be omitted for duplicates")
	}

	buf.Reset()
	_ = WriteVerdict(&buf, v, OutputText)
	if !strings.Contains(buf.String(), "(duplicate)") || !strings.Contains(buf.String(), "Supervisor: -") {
		t.Errorf("text output:\n%s", buf.String())
	}
}

func TestWriteSuggestions(t *testing.T) {
	resp := &models.SuggestResponse{
		Suggestions: []models.SimilarityResult{{Label: "Smart Parking System", Score: 0.91}, {Label: "Campus Chatbot", Score: 0.4}},
		QueryTime:   3,
	}
	var buf bytes.Buffer
	if err := WriteSuggestions(&buf, resp, OutputText); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), " 1. 0.9100  Smart Parking System") {
		t.Errorf("text output:\n%s", buf.String())
	}

	buf.Reset()
	if err := WriteSuggestions(&buf, &models.SuggestResponse{Suggestions: []models.SimilarityResult{}}, OutputText); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "corpus is empty") {
		t.Errorf("empty output: %q", buf.String())
	}

	buf.Reset()
	if err := WriteSuggestions(&buf, resp, OutputJSON); err != nil {
		t.Fatal(err)
	}
	var decoded models.SuggestResponse
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil || len(decoded.Suggestions) != 2 {
		t.Errorf("json round trip: %v %+v", err, decoded)
	}
}

func TestWriteProposals(t *testing.T) {
	proposals := []*models.Proposal{{ID: "inline:1", Title: "Campus Chatbot", Status: models.StatusApproved}}
	var buf bytes.Buffer
	if err := WriteProposals(&buf, proposals, OutputText); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "approved  inline:1  Campus Chatbot") || !strings.Contains(buf.String(), "1 proposals") {
		t.Errorf("text output:\n%s", buf.String())
	}
	buf.Reset()
	_ = WriteProposals(&buf, nil, OutputJSON)
	if strings.TrimSpace(buf.String()) != "[]" {
		t.Errorf("empty json = %q", buf.String())
	}
}

func TestWriteStatus_Text(t *testing.T) {
	status := struct {
		Entries int            `json:"corpus_entries"`
		Model   string         `json:"embedding_model_id"`
		Counts  map[string]int `json:"proposals"`
	}{3, "mock-bow", map[string]int{"approved": 3}}
	var buf bytes.Buffer
	if err := WriteStatus(&buf, status, OutputText); err != nil {
		t.Fatal(err)
	}
	want := "corpus_entries: 3\nembedding_model_id: mock-bow\nproposals: {\"approved\":3}\n"
	if buf.String() != want {
		t.Errorf("got %q, want %q", buf.String(), want)
	}
}
