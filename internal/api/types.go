package api

import "reelforge/internal/dialogue"

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// MediaFile is an uploaded image or video. Data is standard base64.
type MediaFile struct {
	Filename string `json:"filename"`
	Type     string `json:"type,omitempty"`
	Data     string `json:"data"`
}

// RenderRequest is the body of POST /api/render.
type RenderRequest struct {
	Conversation []dialogue.Turn `json:"conversation"`
	MediaFiles   []MediaFile     `json:"mediaFiles,omitempty"`
}

// DialogueRequest is the body of POST /api/dialogue.
type DialogueRequest struct {
	Topic string                 `json:"topic"`
	Turns int                    `json:"turns,omitempty"`
	Media []dialogue.MediaOption `json:"media,omitempty"`
}

// DialogueResponse returns generated turns in render-request shape.
type DialogueResponse struct {
	Conversation []dialogue.Turn `json:"conversation"`
}

// RenderView is a transport-friendly history entry.
type RenderView struct {
	ID            string  `json:"id"`
	Status        string  `json:"status"`
	ErrorClass    string  `json:"errorClass,omitempty"`
	ErrorDetail   string  `json:"errorDetail,omitempty"`
	Turns         int     `json:"turns"`
	Segments      int     `json:"segments"`
	Words         int     `json:"words"`
	Overlays      int     `json:"overlays"`
	TotalDuration float64 `json:"totalDuration"`
	VideoBytes    int64   `json:"videoBytes"`
	Source        string  `json:"source,omitempty"`
	StartedAt     string  `json:"startedAt,omitempty"`
	FinishedAt    string  `json:"finishedAt,omitempty"`
	ElapsedMillis int64   `json:"elapsedMillis"`
}

// RenderListResponse wraps history rows.
type RenderListResponse struct {
	Renders []RenderView `json:"renders"`
}

// CheckView is one preflight check.
type CheckView struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail,omitempty"`
}

// DependencyStatus describes the availability of an external binary.
type DependencyStatus struct {
	Name        string `json:"name"`
	Command     string `json:"command"`
	Path        string `json:"path,omitempty"`
	Description string `json:"description,omitempty"`
	Optional    bool   `json:"optional"`
	Available   bool   `json:"available"`
	Detail      string `json:"detail,omitempty"`
}

// Backends summarizes which services the server talks to.
type Backends struct {
	TTS       string `json:"tts"`
	Alignment string `json:"alignment"`
	LLM       bool   `json:"llmConfigured"`
}

// HealthResponse is the body of GET /api/health.
type HealthResponse struct {
	Status       string             `json:"status"`
	Backends     Backends           `json:"backends"`
	Checks       []CheckView        `json:"checks"`
	Dependencies []DependencyStatus `json:"dependencies"`
	Endpoints    map[string]string  `json:"endpoints"`
}

// ErrorResponse is returned for every non-2xx response.
type ErrorResponse struct {
	Error     string `json:"error"`
	Class     string `json:"class,omitempty"`
	RequestID string `json:"requestId,omitempty"`
}
