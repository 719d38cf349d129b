package suggest

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/hyperjump/fypmatch/internal/corpus"
	"github.com/hyperjump/fypmatch/internal/embedding"
	"github.com/hyperjump/fypmatch/internal/models"
)

func newCorpus(t *testing.T, e embedding.Embedder, titles ...string) *corpus.Store {
	t.Helper()
	entries := make([]models.CorpusEntry, len(titles))
	for i, title := range titles {
		v, err := e.Embed(context.Background(), title)
		if err != nil {
			t.Fatal(err)
		}
		entries[i] = models.CorpusEntry{Title: title, Vector: v}
	}
	snap, err := corpus.NewSnapshot(e.ModelID(), entries)
	if err != nil {
		t.Fatal(err)
	}
	store := corpus.NewStore(e.ModelID())
	if err := store.Swap(snap); err != nil {
		t.Fatal(err)
	}
	return store
}

func TestSuggestTitles_TopThree(t *testing.T) {
	e := embedding.NewMockEmbedder(4096)
	store := newCorpus(t, e,
		"Library Management Portal",
		"IoT Solar Panel Monitoring with Sensors",
		"Renewable Energy Forecasting",
		"Online Food Ordering App",
		"Smart Sensors for Energy Monitoring",
	)
	s := New(e, store)
	got, err := s.SuggestTitles(context.Background(), "renewable energy IoT monitoring", []string{"solar", "sensors"}, 3)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 results, got %d", len(got))
	}
	for i := 1; i < len(got); i++ {
		if got[i].Score > got[i-1].Score {
			t.Errorf("results not descending: %+v", got)
		}
	}
	if got[0].Label != "IoT Solar Panel Monitoring with Sensors" {
		t.Errorf("top result = %q", got[0].Label)
	}
	for _, r := range got {
		if r.Label == "Library Management Portal" || r.Label == "Online Food Ordering App" {
			t.Errorf("unrelated title ranked: %+v", got)
		}
	}
}

func TestSuggestTitles_EmptyTheme(t *testing.T) {
	e := embedding.NewMockEmbedder(64)
	s := New(e, newCorpus(t, e, "A"))
	if _, err := s.SuggestTitles(context.Background(), "  ", []string{"x"}, 3); !errors.Is(err, models.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}

func TestSuggestTitles_EmptyCorpus(t *testing.T) {
	s := New(embedding.NewMockEmbedder(64), corpus.NewStore(embedding.MockModelID))
	got, err := s.SuggestTitles(context.Background(), "iot", nil, 3)
	if err != nil {
		t.Fatalf("empty corpus should not error: %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Errorf("expected empty result, got %#v", got)
	}
}

func TestSuggestTitles_KLimits(t *testing.T) {
	e := embedding.NewMockEmbedder(256)
	store := newCorpus(t, e, "a one", "b two", "c three", "d four", "e five")
	s := New(e, store, WithLimits(2, 4))
	got, _ := s.SuggestTitles(context.Background(), "one", nil, 0)
	if len(got) != 2 {
		t.Errorf("default k: got %d results", len(got))
	}
	got, _ = s.SuggestTitles(context.Background(), "one", nil, 100)
	if len(got) != 4 {
		t.Errorf("max k: got %d results", len(got))
	}
}

func TestQueryAndParseTags(t *testing.T) {
	if got := Query("renewable energy", []string{"solar", " ", "sensors"}); got != "renewable energy solar, sensors" {
		t.Errorf("Query() = %q", got)
	}
	if got := Query(" theme ", nil); got != "theme" {
		t.Errorf("Query() = %q", got)
	}
	if got := ParseTags(" solar, ,sensors ,"); !reflect.DeepEqual(got, []string{"solar", "sensors"}) {
		t.Errorf("ParseTags() = %q", got)
	}
}
