package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"reelforge/internal/api"
	"reelforge/internal/dialogue"
	"reelforge/internal/history"
	"reelforge/internal/logging"
	"reelforge/internal/pipeline"
	"reelforge/internal/preflight"
)

// Runner executes render requests.
type Runner interface {
	Run(ctx context.Context, req pipeline.Request) (*pipeline.Result, error)
}

// Generator writes dialogues from a brief.
type Generator interface {
	Generate(ctx context.Context, brief dialogue.Brief) ([]dialogue.Turn, error)
}

// HistoryReader lists recorded renders.
type HistoryReader interface {
	List(ctx context.Context, limit int, statuses ...string) ([]history.Entry, error)
}

// Options configures the server.
type Options struct {
	Bind           string
	APIToken       string
	AllowedOrigins []string
	MaxUploadBytes int64
	// TTSURL and AlignmentBackend are echoed by the health endpoint.
	TTSURL           string
	AlignmentBackend string
	LLMConfigured    bool
}

// Server is the HTTP API.
type Server struct {
	opts      Options
	runner    Runner
	generator Generator
	history   HistoryReader
	health    func(context.Context) preflight.Report
	logger    *slog.Logger

	listener net.Listener
	server   *http.Server
}

// New builds a server. generator, history, and health may be nil; the
// corresponding endpoints then report 503 or an empty result.
func New(opts Options, runner Runner, generator Generator, hist HistoryReader, health func(context.Context) preflight.Report, logger *slog.Logger) *Server {
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 120 << 20
	}
	s := &Server{
		opts:      opts,
		runner:    runner,
		generator: generator,
		history:   hist,
		health:    health,
		logger:    logging.NewComponentLogger(logger, "api-server"),
	}
	s.server = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       2 * time.Minute,
		IdleTimeout:       60 * time.Second,
		// Renders run synchronously inside the request and can take minutes.
		WriteTimeout: 0,
	}
	return s
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	origins := s.opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := chi.NewRouter()
	r.Use(chimw.RealIP)
	r.Use(s.logRequests)
	r.Use(chimw.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		ExposedHeaders:   []string{"Content-Disposition", "X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/api/health", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(authMiddleware(s.opts.APIToken))
		r.Post("/api/render", s.handleRender)
		r.Post("/api/dialogue", s.handleDialogue)
		r.Get("/api/renders", s.handleRenders)
	})
	return r
}

// Start listens on the configured bind address and serves until ctx is done.
func (s *Server) Start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.opts.Bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("api server error", logging.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	s.logger.Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

// Addr returns the bound address once Start has succeeded.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Stop shuts the server down, giving in-flight requests five seconds.
func (s *Server) Stop() {
	if s == nil || s.server == nil {
		return
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = s.server.Shutdown(shutdownCtx)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Debug("http request",
			logging.String("method", r.Method),
			logging.String("path", r.URL.Path),
			logging.Int("status", ww.Status()),
			logging.Int("bytes", ww.BytesWritten()),
			logging.Duration("elapsed", time.Since(start)),
		)
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("failed to encode response", logging.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, api.ErrorResponse{Error: message})
}
