package review

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/hyperjump/fypmatch/internal/config"
	"github.com/hyperjump/fypmatch/internal/embedding"
	"github.com/hyperjump/fypmatch/internal/models"
	"github.com/hyperjump/fypmatch/internal/vector"
)

// recordingEmbedder wraps MockEmbedder and remembers every text it encoded.
type recordingEmbedder struct {
	*embedding.MockEmbedder
	mu    sync.Mutex
	texts []string
}

func newRecorder() *recordingEmbedder {
	return &recordingEmbedder{MockEmbedder: embedding.NewMockEmbedder(4096)}
}

func (r *recordingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	r.mu.Lock()
	r.texts = append(r.texts, text)
	r.mu.Unlock()
	return r.MockEmbedder.Embed(ctx, text)
}

func (r *recordingEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := r.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (r *recordingEmbedder) saw(text string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.texts {
		if t == text {
			return true
		}
	}
	return false
}

// fixedEmbedder maps known texts to fixed vectors.
type fixedEmbedder struct {
	vecs map[string][]float32
	err  error
}

func (f *fixedEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	if strings.TrimSpace(text) == "" {
		return nil, embedding.ErrEmptyText
	}
	v, ok := f.vecs[text]
	if !ok {
		return []float32{0, 0}, nil
	}
	return v, nil
}

func (f *fixedEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := f.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (f *fixedEmbedder) Dimensions() int { return 2 }
func (f *fixedEmbedder) ModelID() string { return "fixed" }
func (f *fixedEmbedder) Close() error    { return nil }

func words(n int) string {
	return strings.TrimSpace(strings.Repeat("word ", n))
}

// sixtyPointProposal earns hardware/software, emerging tech, problem statement,
// objectives and design points, and misses literature review and social impact.
func sixtyPointProposal() string {
	return "Summary: hardware sensors feed software dashboards using IoT.\n" +
		"Problem Statement:\n" + words(25) + "\n" +
		"Objectives:\n" + words(20) + "\n" +
		"Design:\n" + words(20) + "\n"
}

func TestDuplicateGate_ExactTitle(t *testing.T) {
	g := NewDuplicateGate(newRecorder(), 0.8)
	res, err := g.Check(context.Background(), "Smart Attendance System", []string{"Library Portal", "Smart Attendance System"})
	if err != nil {
		t.Fatal(err)
	}
	if !res.IsDuplicate || res.MatchedTitle != "Smart Attendance System" {
		t.Errorf("got %+v", res)
	}
	if res.MaxScore < 0.999999 {
		t.Errorf("MaxScore = %f, want ~1", res.MaxScore)
	}
}

func TestDuplicateGate_EmptyPriorTitles(t *testing.T) {
	g := NewDuplicateGate(newRecorder(), 0.8)
	for _, priors := range [][]string{nil, {}, {"  ", ""}} {
		_, err := g.Check(context.Background(), "Smart Attendance System", priors)
		if !errors.Is(err, models.ErrInvalidInput) {
			t.Errorf("priors %q: expected ErrInvalidInput, got %v", priors, err)
		}
	}
	if _, err := g.Check(context.Background(), " ", []string{"x"}); !errors.Is(err, models.ErrInvalidInput) {
		t.Errorf("blank candidate: expected ErrInvalidInput, got %v", err)
	}
}

func TestDuplicateGate_ThresholdExclusive(t *testing.T) {
	e := &fixedEmbedder{vecs: map[string][]float32{
		"candidate": {1, 0},
		"prior":     {4, 3},
	}}
	res, err := NewDuplicateGate(e, 0.8).Check(context.Background(), "candidate", []string{"prior"})
	if err != nil {
		t.Fatal(err)
	}
	if res.MaxScore != 0.8 {
		t.Fatalf("MaxScore = %v, want exactly 0.8", res.MaxScore)
	}
	if res.IsDuplicate {
		t.Errorf("score equal to threshold should not be a duplicate: %+v", res)
	}
	res, _ = NewDuplicateGate(e, 0.8-1e-6).Check(context.Background(), "candidate", []string{"prior"})
	if !res.IsDuplicate {
		t.Errorf("score above threshold should be a duplicate: %+v", res)
	}
}

func TestDuplicateGate_DimensionMismatch(t *testing.T) {
	e := &fixedEmbedder{vecs: map[string][]float32{
		"candidate": {1, 0},
		"prior":     {1, 0, 0},
	}}
	_, err := NewDuplicateGate(e, 0.8).Check(context.Background(), "candidate", []string{"prior"})
	if !errors.Is(err, vector.ErrDimensionMismatch) {
		t.Errorf("expected ErrDimensionMismatch, got %v", err)
	}
}

func TestSupervisorMatcher_BestMatch(t *testing.T) {
	m := NewSupervisorMatcher(newRecorder(), nil)
	expertise := models.ExpertiseMap{
		"t1": {"networking", "security"},
		"t2": {"machine learning", "ai"},
	}
	got, err := m.BestMatch(context.Background(), "an AI-based fraud detection system using machine learning", expertise)
	if err != nil {
		t.Fatal(err)
	}
	if got.SupervisorID != "t2" || got.Score <= 0 {
		t.Errorf("got %+v, want t2", got)
	}
}

func TestSupervisorMatcher_EmptyMap(t *testing.T) {
	rec := newRecorder()
	m := NewSupervisorMatcher(rec, nil)
	for _, ex := range []models.ExpertiseMap{nil, {}, {"t1": {}, "t2": {" "}}} {
		got, err := m.BestMatch(context.Background(), "anything", ex)
		if err != nil {
			t.Fatal(err)
		}
		if got.SupervisorID != "" || got.Score != 0 {
			t.Errorf("expected no supervisor, got %+v", got)
		}
	}
	if len(rec.texts) != 0 {
		t.Errorf("nothing should be embedded, got %q", rec.texts)
	}
}

func TestSupervisorMatcher_TiesKeepSortedOrder(t *testing.T) {
	m := NewSupervisorMatcher(newRecorder(), nil)
	expertise := models.ExpertiseMap{
		"zeta":  {"robotics"},
		"alpha": {"robotics"},
		"mid":   {"robotics"},
	}
	for i := 0; i < 20; i++ {
		got, err := m.BestMatch(context.Background(), "robotics arm", expertise)
		if err != nil {
			t.Fatal(err)
		}
		if got.SupervisorID != "alpha" {
			t.Fatalf("iteration %d: got %q, want alpha", i, got.SupervisorID)
		}
	}
}

func TestSupervisorMatcher_NoPositiveMatch(t *testing.T) {
	e := &fixedEmbedder{vecs: map[string][]float32{
		"blockchain voting ledger": {1, 0},
		"networking":               {0, 1},
		"databases":                {-1, 0},
	}}
	m := NewSupervisorMatcher(e, nil)
	got, err := m.BestMatch(context.Background(), "blockchain voting ledger", models.ExpertiseMap{
		"t1": {"networking"},
		"t2": {"databases"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if got.SupervisorID != "" || got.Score != 0 {
		t.Errorf("no positive similarity should yield no supervisor, got %+v", got)
	}
}

func TestReviewer_DuplicateShortCircuits(t *testing.T) {
	rec := newRecorder()
	r := NewReviewer(rec, config.ReviewConfig{})
	text := sixtyPointProposal()
	v, err := r.EvaluateProposal(context.Background(), "Smart Attendance System", text,
		[]string{"Smart Attendance System"},
		models.ExpertiseMap{"t1": {"attendance"}})
	if err != nil {
		t.Fatal(err)
	}
	if v.Status != models.ReviewFail || v.FeedbackLabel != models.FeedbackPoor {
		t.Errorf("got %s/%s", v.Status, v.FeedbackLabel)
	}
	if v.FeedbackDescription != DuplicateMessage {
		t.Errorf("description = %q", v.FeedbackDescription)
	}
	if v.SuggestedSupervisorID != nil || !v.Duplicate || v.Score != nil {
		t.Errorf("duplicate verdict should skip scoring and matching: %+v", v)
	}
	if rec.saw(text) {
		t.Error("proposal text must not be embedded when the title is a duplicate")
	}
}

func TestReviewer_PassAtThreshold(t *testing.T) {
	r := NewReviewer(newRecorder(), config.ReviewConfig{})
	v, err := r.EvaluateProposal(context.Background(), "Smart Farm Monitor", sixtyPointProposal(),
		[]string{"Library Management Portal"},
		models.ExpertiseMap{"t1": {"sensors", "dashboards"}, "t2": {"poetry"}})
	if err != nil {
		t.Fatal(err)
	}
	if v.Score == nil || v.Score.TotalScore != 60 {
		t.Fatalf("score = %+v, want 60", v.Score)
	}
	if v.Status != models.ReviewPass || v.FeedbackLabel != models.FeedbackGood {
		t.Errorf("got %s/%s", v.Status, v.FeedbackLabel)
	}
	want := "Positive feedback based on proposal content: " +
		"Includes both hardware and software components. " +
		"Uses emerging technologies: IOT. " +
		"Well-defined problem statement. " +
		"Objectives section is clearly defined. " +
		"Includes design/architecture approach."
	if v.FeedbackDescription != want {
		t.Errorf("description = %q\nwant %q", v.FeedbackDescription, want)
	}
	if v.SuggestedSupervisorID == nil || *v.SuggestedSupervisorID != "t1" {
		t.Errorf("supervisor = %v, want t1", v.SuggestedSupervisorID)
	}
}

func TestReviewer_FailBelowThreshold(t *testing.T) {
	cfg := config.ReviewConfig{Rubric: config.DefaultRubric()}
	cfg.Rubric.DesignPoints = 9
	r := NewReviewer(newRecorder(), cfg)
	v, err := r.EvaluateProposal(context.Background(), "Smart Farm Monitor", sixtyPointProposal(),
		[]string{"Library Management Portal"}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if v.Score.TotalScore != 59 {
		t.Fatalf("score = %d, want 59", v.Score.TotalScore)
	}
	if v.Status != models.ReviewFail || v.FeedbackLabel != models.FeedbackPoor {
		t.Errorf("got %s/%s", v.Status, v.FeedbackLabel)
	}
	want := "Proposal failed due to the following issues: " +
		"Literature review section missing or too brief, no reference to social impact or sustainability."
	if v.FeedbackDescription != want {
		t.Errorf("description = %q\nwant %q", v.FeedbackDescription, want)
	}
	if v.SuggestedSupervisorID != nil {
		t.Errorf("empty expertise should yield no supervisor, got %v", *v.SuggestedSupervisorID)
	}
}

func TestReviewer_FailWithNoMissingReasons(t *testing.T) {
	r := NewReviewer(newRecorder(), config.ReviewConfig{PassThreshold: 100})
	text := sixtyPointProposal() + "Literature Review:\n" + words(30) + "\nImpact: greener campus\n"
	v, err := r.EvaluateProposal(context.Background(), "Smart Farm Monitor", text, []string{"Library Management Portal"}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if v.Status != models.ReviewFail {
		t.Fatalf("status = %s", v.Status)
	}
	if v.FeedbackDescription != "Proposal failed due to the following issues: Score 80 is below the pass threshold of 100." {
		t.Errorf("description = %q", v.FeedbackDescription)
	}
}

func TestReviewer_Errors(t *testing.T) {
	ctx := context.Background()
	r := NewReviewer(newRecorder(), config.ReviewConfig{})
	if _, err := r.EvaluateProposal(ctx, "Title", "text", nil, nil); !errors.Is(err, models.ErrInvalidInput) {
		t.Errorf("empty priors: expected ErrInvalidInput, got %v", err)
	}
	if _, err := r.EvaluateProposal(ctx, "Title", "  ", []string{"x"}, nil); !errors.Is(err, models.ErrInvalidInput) {
		t.Errorf("empty text: expected ErrInvalidInput, got %v", err)
	}

	down := NewReviewer(&fixedEmbedder{err: embedding.ErrModelUnavailable}, config.ReviewConfig{})
	v, err := down.EvaluateProposal(ctx, "Title", "text", []string{"x"}, nil)
	if !errors.Is(err, embedding.ErrModelUnavailable) {
		t.Errorf("expected ErrModelUnavailable, got %v", err)
	}
	if v != nil {
		t.Error("no verdict should be produced when the model is unavailable")
	}
}
