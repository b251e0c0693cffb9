package server

import (
	"net/http"

	"reelforge/internal/services"
)

// statusForClass maps a failure class to an HTTP status. Backend failures
// are 502 so clients can tell them apart from server bugs.
func statusForClass(class services.Class) int {
	switch class {
	case services.ClassValidation:
		return http.StatusBadRequest
	case services.ClassSynthesis:
		return http.StatusBadGateway
	case services.ClassSynthesisTimeout:
		return http.StatusGatewayTimeout
	case services.ClassMissingAsset, services.ClassRender:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
