// Package rubric scores proposal text against a fixed, ordered set of content rules.
package rubric

import (
	"regexp"
	"strings"
	"sync"
)

// SectionExtractor returns the body of a named section, or "" when the section is absent.
type SectionExtractor interface {
	Extract(text, name string) string
}

// nextHeader matches a line holding a short capitalized label followed by a colon,
// optionally numbered.
var nextHeader = regexp.MustCompile(`\n[ \t]*(?:\d+[.)]?[ \t]*)?[A-Z][A-Za-z ]{2,40}:`)

// HeaderExtractor finds sections by their header line. A header may be numbered
// ("3. Design:") and may carry a suffix before the colon ("Design and Architecture:").
// Lookup order: a colon-terminated header line, then a line holding only the name,
// then the first case-insensitive occurrence anywhere. Prose lines that merely start
// with the name ("Design and Development of ...") are never headers.
// The body runs until the next header-looking line or the end of the text.
type HeaderExtractor struct {
	mu       sync.Mutex
	patterns map[string]headerPatterns
}

type headerPatterns struct {
	colon *regexp.Regexp
	bare  *regexp.Regexp
}

// NewHeaderExtractor returns a HeaderExtractor.
func NewHeaderExtractor() *HeaderExtractor {
	return &HeaderExtractor{patterns: make(map[string]headerPatterns)}
}

// Extract returns the trimmed body of section name.
func (h *HeaderExtractor) Extract(text, name string) string {
	name = strings.TrimSpace(name)
	if name == "" || text == "" {
		return ""
	}
	start := -1
	p := h.pattern(name)
	if loc := p.colon.FindStringIndex(text); loc != nil {
		start = loc[1]
	} else if loc := p.bare.FindStringIndex(text); loc != nil {
		start = loc[1]
	} else if i := strings.Index(strings.ToLower(text), strings.ToLower(name)); i >= 0 {
		start = i + len(name)
		if start < len(text) && text[start] == ':' {
			start++
		}
	}
	if start < 0 {
		return ""
	}
	body := text[start:]
	if loc := nextHeader.FindStringIndex(body); loc != nil {
		body = body[:loc[0]]
	}
	return strings.TrimSpace(body)
}

func (h *HeaderExtractor) pattern(name string) headerPatterns {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.patterns == nil {
		h.patterns = make(map[string]headerPatterns)
	}
	if p, ok := h.patterns[name]; ok {
		return p
	}
	prefix := `(?im)^[ \t]*(?:\d+[.)]?[ \t]*)?` + regexp.QuoteMeta(name)
	p := headerPatterns{
		colon: regexp.MustCompile(prefix + `\b[^\n:]{0,40}:`),
		bare:  regexp.MustCompile(prefix + `[ \t]*$`),
	}
	h.patterns[name] = p
	return p
}
