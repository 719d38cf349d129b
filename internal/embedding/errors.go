package embedding

import (
	"errors"
	"strings"
)

var (
	// ErrEmptyText is returned when the input is empty after trimming.
	ErrEmptyText = errors.New("embedding: text is empty")
	// ErrModelUnavailable is returned when the encoder cannot be loaded or reached.
	ErrModelUnavailable = errors.New("embedding: model unavailable")
)

func checkText(text string) error {
	if strings.TrimSpace(text) == "" {
		return ErrEmptyText
	}
	return nil
}
