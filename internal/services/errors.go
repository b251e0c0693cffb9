package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrSynthesis          = errors.New("synthesis error")
	ErrSynthesisTimeout   = errors.New("synthesis timeout")
	ErrAlignmentDegraded  = errors.New("alignment degraded")
	ErrMissingAsset       = errors.New("missing asset")
	ErrUnresolvedMediaCue = errors.New("unresolved media cue")
	ErrRender             = errors.New("render error")
	ErrValidation         = errors.New("validation error")
	ErrConfiguration      = errors.New("configuration error")
	ErrInternal           = errors.New("internal error")
)

// Class is the caller-visible category of a failed request.
type Class string

const (
	ClassSynthesis        Class = "synthesis_error"
	ClassSynthesisTimeout Class = "synthesis_timeout"
	ClassMissingAsset     Class = "missing_asset"
	ClassRender           Class = "render_error"
	ClassValidation       Class = "validation_error"
	ClassInternal         Class = "internal_error"
)

// Wrap builds an error message that includes stage context while tagging it with
// the provided marker for later classification. The marker should be one of the
// exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrInternal
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// ErrorClass maps an error chain to its request failure class. Timeouts are
// checked before generic synthesis failures since a timed-out synthesis error
// carries both markers.
func ErrorClass(err error) Class {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrSynthesisTimeout):
		return ClassSynthesisTimeout
	case errors.Is(err, ErrSynthesis):
		return ClassSynthesis
	case errors.Is(err, ErrMissingAsset):
		return ClassMissingAsset
	case errors.Is(err, ErrRender):
		return ClassRender
	case errors.Is(err, ErrValidation):
		return ClassValidation
	default:
		return ClassInternal
	}
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
