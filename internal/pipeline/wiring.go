package pipeline

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"reelforge/internal/config"
	"reelforge/internal/dialogue"
	"reelforge/internal/media/audio"
	"reelforge/internal/media/ffprobe"
	"reelforge/internal/render"
	"reelforge/internal/services"
	"reelforge/internal/services/alignment"
	"reelforge/internal/services/speech"
	"reelforge/internal/services/whisperx"
	"reelforge/internal/timeline"
)

// Alignment backend names accepted in config.
const (
	AlignmentHTTP     = "http"
	AlignmentWhisperX = "whisperx"
	AlignmentNone     = "none"
)

// NewFromConfig builds a pipeline with the production backends described by
// cfg. recorder may be nil.
func NewFromConfig(cfg *config.Config, recorder Recorder, logger *slog.Logger) (*Pipeline, error) {
	if cfg == nil {
		return nil, services.Wrap(services.ErrConfiguration, "pipeline", "wire", "config is nil", nil)
	}

	speechClient := speech.NewClient(
		speech.NewHTTPBackend(cfg.TTS.BaseURL, cfg.TTS.APIKey),
		ffprobe.DurationReader{Binary: cfg.FFprobeBinary()},
		speech.Options{
			Retries:          cfg.TTS.Retries,
			AttemptTimeout:   time.Duration(cfg.TTS.TimeoutSeconds) * time.Second,
			MaxBackoff:       time.Duration(cfg.TTS.MaxBackoffSeconds) * time.Second,
			FallbackDuration: cfg.TTS.FallbackDurationSeconds,
			ScratchDir:       cfg.Paths.ScratchDir,
			Voices: map[dialogue.Character]string{
				dialogue.CharacterA: cfg.VoiceID(string(dialogue.CharacterA)),
				dialogue.CharacterB: cfg.VoiceID(string(dialogue.CharacterB)),
			},
		},
		logger,
	)

	backend, err := alignmentBackend(cfg)
	if err != nil {
		return nil, err
	}
	aligner := alignment.NewFallback(backend, time.Duration(cfg.Alignment.TimeoutSeconds)*time.Second, logger)

	assembler := timeline.NewAssembler(speechClient, aligner, timeline.Options{
		Gap:                  cfg.Timeline.GapSeconds,
		TailBuffer:           cfg.Timeline.TailBufferSeconds,
		BatchSize:            cfg.Timeline.BatchSize,
		Cooldown:             time.Duration(cfg.Timeline.BatchCooldownSeconds * float64(time.Second)),
		ImageDefaultDuration: cfg.Timeline.ImageDefaultDurationSeconds,
	}, logger)

	art := render.ArtPaths{
		Background: cfg.Assets.BackgroundVideo,
		CharacterA: cfg.Assets.CharacterAImage,
		CharacterB: cfg.Assets.CharacterBImage,
	}
	planner := render.NewPlanner(
		audio.NewConcatenator(cfg.FFmpegBinary(), assembler.Gap()),
		art,
		RenderSettings(cfg),
	)
	renderer := render.NewFFmpegRenderer(cfg.FFmpegBinary())

	return New(assembler, planner, renderer, recorder, Options{
		ScratchDir:    cfg.Paths.ScratchDir,
		KeepWorkspace: cfg.Render.KeepWorkspace,
		RenderTimeout: time.Duration(cfg.Render.TimeoutSeconds) * time.Second,
		Art:           art,
	}, logger), nil
}

// RenderSettings maps the render config section onto renderer settings.
func RenderSettings(cfg *config.Config) render.Settings {
	return render.Settings{
		Width:           cfg.Render.Width,
		Height:          cfg.Render.Height,
		FrameRate:       cfg.Render.FrameRate,
		Preset:          cfg.Render.Preset,
		CRF:             cfg.Render.CRF,
		CharacterHeight: cfg.Render.CharacterHeight,
		MediaWidth:      cfg.Render.MediaWidth,
		FontName:        cfg.Render.FontName,
		FontSize:        cfg.Render.FontSize,
	}
}

// alignmentBackend returns nil for "none", which makes the fallback use the
// estimator for every clip.
func alignmentBackend(cfg *config.Config) (alignment.Backend, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Alignment.Backend)) {
	case AlignmentHTTP:
		return alignment.NewHTTPBackend(cfg.Alignment.BaseURL), nil
	case AlignmentWhisperX:
		return whisperx.NewService(whisperx.Config{
			Model:       cfg.Alignment.WhisperXModel,
			CUDAEnabled: cfg.Alignment.WhisperXCUDAEnabled,
			VADMethod:   cfg.Alignment.WhisperXVADMethod,
			HFToken:     cfg.Alignment.WhisperXHuggingFace,
			Language:    cfg.Alignment.Language,
			WorkDir:     cfg.Paths.ScratchDir,
		}, cfg.FFmpegBinary()), nil
	case AlignmentNone, "":
		return nil, nil
	default:
		return nil, services.Wrap(services.ErrConfiguration, "pipeline", "wire",
			fmt.Sprintf("unknown alignment backend %q", cfg.Alignment.Backend), nil)
	}
}
