// Package fileid derives stable identifiers for proposals and their contents.
package fileid

import (
	"crypto/sha256"
	"encoding/hex"
	"path/filepath"

	"github.com/google/uuid"
)

const (
	filePrefix   = "file:"
	inlinePrefix = "inline:"
)

// ProposalID returns a stable proposal ID for a file path.
// Equivalent paths (after filepath.Clean) yield the same ID.
func ProposalID(path string) string {
	hash := sha256.Sum256([]byte(filepath.Clean(path)))
	return filePrefix + hex.EncodeToString(hash[:])
}

// InlineID returns a fresh ID for a proposal that was submitted without a backing file.
func InlineID() string {
	return inlinePrefix + uuid.NewString()
}

// ContentHash fingerprints the text that is embedded for a proposal.
func ContentHash(text string) string {
	hash := sha256.Sum256([]byte(text))
	return hex.EncodeToString(hash[:])
}
