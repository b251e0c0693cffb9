package render

import (
	"fmt"
	"strings"

	"reelforge/internal/services"
)

// Error is a failed encode. Stderr holds the tail of ffmpeg's diagnostics.
type Error struct {
	Stderr string
	Err    error
}

func (e *Error) Error() string {
	if e.Stderr == "" {
		return fmt.Sprintf("render: %v", e.Err)
	}
	return fmt.Sprintf("render: %v: %s", e.Err, e.Stderr)
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{services.ErrRender}
	}
	return []error{services.ErrRender, e.Err}
}

// tail keeps the last lines of ffmpeg output, where the actual failure is.
func tail(output []byte, lines int) string {
	parts := strings.Split(strings.TrimSpace(string(output)), "\n")
	if len(parts) > lines {
		parts = parts[len(parts)-lines:]
	}
	return strings.TrimSpace(strings.Join(parts, "\n"))
}
