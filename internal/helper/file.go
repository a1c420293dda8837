package helper

import (
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// GenerateStoredID returns a random opaque file name. It never derives
// anything from client input.
func GenerateStoredID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// FileExtension returns the lower-case extension of name without the dot.
func FileExtension(name string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
}
