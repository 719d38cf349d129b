package embedding

import (
	"reflect"
	"testing"
)

func TestSimpleTokenizer_Tokenize(t *testing.T) {
	tok := &SimpleTokenizer{}
	ids, attn, types, err := tok.Tokenize("hello world", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(ids) != 10 || len(types) != 10 {
		t.Errorf("len(ids)=%d len(types)=%d", len(ids), len(types))
	}
	if ids[0] != 101 {
		t.Errorf("expected CLS 101, got %d", ids[0])
	}
	if ids[3] != 102 {
		t.Errorf("expected SEP 102 after two words, got %d", ids[3])
	}
	if attn[0] != 1 || attn[3] != 1 || attn[4] != 0 {
		t.Errorf("unexpected attention mask %v", attn)
	}
}

func TestSimpleTokenizer_Truncates(t *testing.T) {
	tok := &SimpleTokenizer{}
	ids, _, _, err := tok.Tokenize("a b c d e f g h i j k l", 4)
	if err != nil {
		t.Fatal(err)
	}
	if len(ids) != 4 {
		t.Fatalf("len(ids)=%d", len(ids))
	}
	if ids[3] != 102 {
		t.Errorf("expected SEP at last position, got %d", ids[3])
	}
}

func TestTerms(t *testing.T) {
	got := Terms("  An AI-based, IoT system!  ")
	want := []string{"an", "ai", "based", "iot", "system"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Terms() = %v, want %v", got, want)
	}
	if len(Terms("")) != 0 {
		t.Error("empty string should return no terms")
	}
}

func TestHashString(t *testing.T) {
	if HashString("abc") == HashString("abd") {
		t.Error("different strings should hash differently")
	}
	if HashString("abc") != HashString("abc") {
		t.Error("hash should be deterministic")
	}
}

func TestNewHFTokenizer_MissingFile(t *testing.T) {
	if _, err := NewHFTokenizer(t.TempDir() + "/missing.json"); err == nil {
		t.Error("expected error for missing tokenizer file")
	}
}
