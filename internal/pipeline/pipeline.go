package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"reelforge/internal/dialogue"
	"reelforge/internal/history"
	"reelforge/internal/logging"
	"reelforge/internal/media/assets"
	"reelforge/internal/metrics"
	"reelforge/internal/render"
	"reelforge/internal/services"
	"reelforge/internal/timeline"
)

// Stage names used for logging context and latency metrics.
const (
	StageValidate = "validate"
	StageTimeline = "timeline"
	StagePlan     = "plan"
	StageRender   = "render"
)

// Assembler builds a timeline from dialogue.
type Assembler interface {
	Assemble(ctx context.Context, turns []dialogue.Turn, library *assets.Library) (*timeline.Timeline, error)
}

// Planner turns a timeline into renderer inputs inside a workspace.
type Planner interface {
	Plan(ctx context.Context, tl *timeline.Timeline, ws *render.Workspace) (*render.Plan, error)
}

// Renderer encodes a plan and returns the video bytes.
type Renderer interface {
	Render(ctx context.Context, plan *render.Plan) ([]byte, error)
}

// Recorder persists a summary of each finished request.
type Recorder interface {
	Record(ctx context.Context, entry history.Entry) error
}

// Request is one render job.
type Request struct {
	ID     string
	Turns  []dialogue.Turn
	Media  *assets.Library
	Source string
}

// Result is a finished render.
type Result struct {
	ID       string
	Video    []byte
	Timeline *timeline.Timeline
	Elapsed  time.Duration
}

// Options configures a Pipeline.
type Options struct {
	ScratchDir    string
	KeepWorkspace bool
	RenderTimeout time.Duration
	Art           render.ArtPaths
}

// Pipeline runs render requests.
type Pipeline struct {
	assembler Assembler
	planner   Planner
	renderer  Renderer
	recorder  Recorder
	opts      Options
	logger    *slog.Logger
	now       func() time.Time
}

// New wires the stages. recorder may be nil.
func New(assembler Assembler, planner Planner, renderer Renderer, recorder Recorder, opts Options, logger *slog.Logger) *Pipeline {
	if strings.TrimSpace(opts.ScratchDir) == "" {
		opts.ScratchDir = os.TempDir()
	}
	return &Pipeline{
		assembler: assembler,
		planner:   planner,
		renderer:  renderer,
		recorder:  recorder,
		opts:      opts,
		logger:    logging.NewComponentLogger(logger, "pipeline"),
		now:       time.Now,
	}
}

// Run executes req. Any failure is returned as *Error.
func (p *Pipeline) Run(ctx context.Context, req Request) (*Result, error) {
	id := strings.TrimSpace(req.ID)
	if id == "" {
		id = uuid.NewString()
	}
	ctx = services.WithRequestID(ctx, id)
	logger := logging.WithContext(ctx, p.logger)
	started := p.now()

	metrics.ActiveRenders.Inc()
	defer metrics.ActiveRenders.Dec()

	logger.Info("render started",
		logging.Int("turns", len(req.Turns)),
		logging.Int("media_files", req.Media.Len()),
		logging.String("source", req.Source),
	)

	tl, video, err := p.run(ctx, id, req, logger)
	finished := p.now()
	entry := history.Entry{
		ID:         id,
		Turns:      len(req.Turns),
		Source:     req.Source,
		StartedAt:  started,
		FinishedAt: finished,
	}
	if tl != nil {
		entry.Segments = len(tl.Segments)
		entry.Words = len(tl.Words)
		entry.Overlays = len(tl.Overlays)
		entry.TotalDuration = tl.TotalDuration
	}

	if err != nil {
		perr := newError(id, err)
		entry.Status = history.StatusFailed
		entry.ErrorClass = string(perr.Class)
		entry.ErrorDetail = perr.Detail
		p.record(ctx, entry, logger)
		metrics.RendersTotal.WithLabelValues(string(perr.Class)).Inc()
		if errors.Is(err, context.Canceled) {
			logger.Info("render canceled")
		} else {
			logging.ErrorWithContext(logger, "render failed", "render_failed",
				logging.String("error_class", string(perr.Class)),
				logging.Error(err),
			)
		}
		return nil, perr
	}

	entry.Status = history.StatusSucceeded
	entry.VideoBytes = int64(len(video))
	p.record(ctx, entry, logger)
	metrics.RendersTotal.WithLabelValues(metrics.OutcomeOK).Inc()
	logger.Info("render completed",
		logging.Int("segments", entry.Segments),
		logging.Int("words", entry.Words),
		logging.Int("overlays", entry.Overlays),
		logging.Float64("total_duration", entry.TotalDuration),
		logging.Int64("video_bytes", entry.VideoBytes),
		logging.Duration("elapsed", finished.Sub(started)),
	)
	return &Result{ID: id, Video: video, Timeline: tl, Elapsed: finished.Sub(started)}, nil
}

func (p *Pipeline) run(ctx context.Context, id string, req Request, logger *slog.Logger) (*timeline.Timeline, []byte, error) {
	if err := p.validate(req); err != nil {
		return nil, nil, err
	}

	ws, err := render.NewWorkspace(p.opts.ScratchDir, id, p.opts.KeepWorkspace)
	if err != nil {
		return nil, nil, services.Wrap(services.ErrInternal, StageValidate, "create workspace", "", err)
	}
	defer func() {
		if cleanupErr := ws.Cleanup(); cleanupErr != nil {
			logging.WarnWithContext(logger, "workspace cleanup failed", "workspace_cleanup_failed",
				logging.String("path", ws.Dir()),
				logging.Error(cleanupErr),
				logging.String(logging.FieldErrorHint, "remove the directory manually"),
				logging.String(logging.FieldImpact, "scratch space is not reclaimed"),
			)
		}
	}()

	var tl *timeline.Timeline
	err = p.stage(ctx, StageTimeline, func(stageCtx context.Context) error {
		var assembleErr error
		tl, assembleErr = p.assembler.Assemble(stageCtx, req.Turns, req.Media)
		return assembleErr
	})
	if err != nil {
		return nil, nil, err
	}

	var plan *render.Plan
	err = p.stage(ctx, StagePlan, func(stageCtx context.Context) error {
		var planErr error
		plan, planErr = p.planner.Plan(stageCtx, tl, ws)
		if planErr != nil {
			return services.Wrap(services.ErrRender, StagePlan, "prepare inputs", "", planErr)
		}
		return nil
	})
	if err != nil {
		return tl, nil, err
	}

	var video []byte
	err = p.stage(ctx, StageRender, func(stageCtx context.Context) error {
		if p.opts.RenderTimeout > 0 {
			var cancel context.CancelFunc
			stageCtx, cancel = context.WithTimeout(stageCtx, p.opts.RenderTimeout)
			defer cancel()
		}
		var renderErr error
		video, renderErr = p.renderer.Render(stageCtx, plan)
		return renderErr
	})
	if err != nil {
		return tl, nil, err
	}
	return tl, video, nil
}

// validate rejects bad input before any backend call is made.
func (p *Pipeline) validate(req Request) error {
	if err := dialogue.Validate(req.Turns); err != nil {
		return err
	}
	required := []struct {
		label string
		path  string
	}{
		{"background video", p.opts.Art.Background},
		{"character A image", p.opts.Art.CharacterA},
		{"character B image", p.opts.Art.CharacterB},
	}
	for _, item := range required {
		if strings.TrimSpace(item.path) == "" {
			return services.Wrap(services.ErrMissingAsset, StageValidate, "check assets",
				fmt.Sprintf("%s is not configured", item.label), nil)
		}
		info, err := os.Stat(item.path)
		if err != nil {
			return services.Wrap(services.ErrMissingAsset, StageValidate, "check assets",
				fmt.Sprintf("%s %s", item.label, item.path), err)
		}
		if info.IsDir() || info.Size() == 0 {
			return services.Wrap(services.ErrMissingAsset, StageValidate, "check assets",
				fmt.Sprintf("%s %s is not a usable file", item.label, item.path), nil)
		}
	}
	return nil
}

func (p *Pipeline) stage(ctx context.Context, name string, fn func(context.Context) error) error {
	stageCtx := services.WithStage(ctx, name)
	start := time.Now()
	err := fn(stageCtx)
	metrics.StageLatency.WithLabelValues(name).Observe(time.Since(start).Seconds())
	if err == nil {
		logging.WithContext(stageCtx, p.logger).Debug("stage completed",
			logging.Duration("elapsed", time.Since(start)))
	}
	return err
}

func (p *Pipeline) record(ctx context.Context, entry history.Entry, logger *slog.Logger) {
	if p.recorder == nil {
		return
	}
	// The request context may already be canceled; the ledger write should still land.
	recordCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := p.recorder.Record(recordCtx, entry); err != nil {
		logging.WarnWithContext(logger, "history record failed", "history_record_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check the history database path and permissions"),
			logging.String(logging.FieldImpact, "render is missing from history"),
		)
	}
}
