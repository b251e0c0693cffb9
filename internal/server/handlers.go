package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"reelforge/internal/api"
	"reelforge/internal/dialogue"
	"reelforge/internal/history"
	"reelforge/internal/logging"
	"reelforge/internal/pipeline"
	"reelforge/internal/services"
)

const defaultHistoryLimit = 50

func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	if s.runner == nil {
		s.writeError(w, http.StatusServiceUnavailable, "renderer unavailable")
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxUploadBytes)
	var req api.RenderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.writeError(w, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit))
			return
		}
		s.writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}
	if len(req.Conversation) == 0 {
		s.writeError(w, http.StatusBadRequest, "no conversation provided")
		return
	}

	requestID := uuid.NewString()
	ctx := services.WithRequestID(r.Context(), requestID)
	library := api.DecodeMedia(req.MediaFiles, logging.WithContext(ctx, s.logger))

	result, err := s.runner.Run(ctx, pipeline.Request{
		ID:     requestID,
		Turns:  req.Conversation,
		Media:  library,
		Source: "api",
	})
	if err != nil {
		s.writePipelineError(w, requestID, err)
		return
	}

	w.Header().Set("Content-Type", "video/mp4")
	w.Header().Set("Content-Length", strconv.Itoa(len(result.Video)))
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="reelforge_%s.mp4"`, result.ID))
	w.Header().Set("X-Request-ID", result.ID)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(result.Video); err != nil {
		s.logger.Warn("client disconnected during video write",
			logging.String(logging.FieldRequestID, result.ID),
			logging.Error(err),
		)
	}
}

func (s *Server) writePipelineError(w http.ResponseWriter, requestID string, err error) {
	perr, ok := pipeline.AsError(err)
	if !ok {
		perr = &pipeline.Error{RequestID: requestID, Class: services.ErrorClass(err), Detail: err.Error(), Err: err}
	}
	w.Header().Set("X-Request-ID", requestID)
	s.writeJSON(w, statusForClass(perr.Class), api.ErrorResponse{
		Error:     perr.Detail,
		Class:     string(perr.Class),
		RequestID: requestID,
	})
}

func (s *Server) handleDialogue(w http.ResponseWriter, r *http.Request) {
	if s.generator == nil {
		s.writeError(w, http.StatusServiceUnavailable, "dialogue generation is not configured")
		return
	}
	var req api.DialogueRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}
	turns, err := s.generator.Generate(r.Context(), dialogue.Brief{
		Topic: req.Topic,
		Turns: req.Turns,
		Media: req.Media,
	})
	if err != nil {
		class := services.ErrorClass(err)
		status := http.StatusBadGateway
		if class == services.ClassValidation {
			status = http.StatusBadRequest
		} else if errors.Is(err, services.ErrConfiguration) {
			status = http.StatusServiceUnavailable
		}
		s.writeJSON(w, status, api.ErrorResponse{Error: err.Error(), Class: string(class)})
		return
	}
	s.writeJSON(w, http.StatusOK, api.DialogueResponse{Conversation: turns})
}

func (s *Server) handleRenders(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		s.writeJSON(w, http.StatusOK, api.RenderListResponse{Renders: []api.RenderView{}})
		return
	}
	limit := defaultHistoryLimit
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			s.writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = parsed
	}
	var statuses []string
	if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			switch status := strings.TrimSpace(part); status {
			case history.StatusSucceeded, history.StatusFailed:
				statuses = append(statuses, status)
			default:
				s.writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown status %q", status))
				return
			}
		}
	}
	entries, err := s.history.List(r.Context(), limit, statuses...)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, api.RenderListResponse{Renders: api.FromEntries(entries)})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := api.HealthResponse{
		Status: "healthy",
		Backends: api.Backends{
			TTS:       s.opts.TTSURL,
			Alignment: s.opts.AlignmentBackend,
			LLM:       s.opts.LLMConfigured,
		},
		Checks:       []api.CheckView{},
		Dependencies: []api.DependencyStatus{},
		Endpoints: map[string]string{
			"render":   "/api/render",
			"dialogue": "/api/dialogue",
			"renders":  "/api/renders",
			"health":   "/api/health",
			"metrics":  "/metrics",
		},
	}
	if s.health != nil {
		report := s.health(r.Context())
		resp.Checks, resp.Dependencies = api.FromReport(report)
		if !report.Ready() {
			resp.Status = "degraded"
		}
	}
	s.writeJSON(w, http.StatusOK, resp)
}
