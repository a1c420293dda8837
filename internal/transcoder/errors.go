package transcoder

import (
	"RNChatMedia/internal/media"
	"errors"
	"fmt"
)

var ErrNoOutput = errors.New("transcoder produced no output")

// Error is a terminal transcode failure. Cause is opaque to callers of the
// upload endpoint; Stderr is kept for logs only.
type Error struct {
	Category media.Category
	Tool     string
	Cause    error
	Stderr   string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s transcode via %s failed: %v", e.Category, e.Tool, e.Cause)
}

func (e *Error) Unwrap() error {
	return e.Cause
}
