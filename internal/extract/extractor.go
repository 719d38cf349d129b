// Package extract turns proposal documents and prior-title lists into plain text.
package extract

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// SupportedExtensions lists the formats the extractor understands.
var SupportedExtensions = []string{".pdf", ".docx", ".xlsx", ".txt", ".md"}

// Supported reports whether ext (with leading dot, any case) is a known format.
func Supported(ext string) bool {
	ext = strings.ToLower(ext)
	for _, e := range SupportedExtensions {
		if e == ext {
			return true
		}
	}
	return false
}

// Extractor extracts plain text from document files.
type Extractor struct{}

// NewExtractor returns a new Extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extract reads the file at path and returns its text content.
func (e *Extractor) Extract(path string) (string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read file: %w", err)
	}
	return e.ExtractBytes(content, strings.ToLower(filepath.Ext(path)))
}

// ExtractBytes extracts text from content based on the given extension.
// ext should include the leading dot (e.g. ".pdf"). Unknown extensions are read as plain text.
// Line structure is kept so section headers stay on their own lines.
func (e *Extractor) ExtractBytes(content []byte, ext string) (string, error) {
	switch strings.ToLower(ext) {
	case ".pdf":
		return extractPDF(content)
	case ".docx":
		return extractDOCX(content)
	case ".xlsx":
		return extractExcel(content)
	default:
		return extractPlain(content)
	}
}

// Titles reads a prior-project list at path. See TitlesBytes.
func (e *Extractor) Titles(path string) ([]string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	return e.TitlesBytes(content, strings.ToLower(filepath.Ext(path)))
}

// TitlesBytes returns one title per non-blank line. For spreadsheets the first non-empty
// cell of every row is used and a leading "Title" header row is dropped.
func (e *Extractor) TitlesBytes(content []byte, ext string) ([]string, error) {
	if strings.ToLower(ext) == ".xlsx" {
		return excelTitles(content)
	}
	text, err := e.ExtractBytes(content, ext)
	if err != nil {
		return nil, err
	}
	return Lines(text), nil
}

// Lines splits text into trimmed, non-blank lines.
func Lines(text string) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return out
}
