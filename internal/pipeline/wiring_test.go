package pipeline_test

import (
	"errors"
	"testing"

	"reelforge/internal/logging"
	"reelforge/internal/pipeline"
	"reelforge/internal/services"
	"reelforge/internal/testsupport"
)

func TestNewFromConfigBackends(t *testing.T) {
	for _, backend := range []string{pipeline.AlignmentHTTP, pipeline.AlignmentWhisperX, pipeline.AlignmentNone} {
		t.Run(backend, func(t *testing.T) {
			cfg := testsupport.NewConfig(t)
			cfg.Alignment.Backend = backend
			p, err := pipeline.NewFromConfig(cfg, nil, logging.NewNop())
			if err != nil {
				t.Fatalf("NewFromConfig: %v", err)
			}
			if p == nil {
				t.Fatal("expected pipeline")
			}
		})
	}
}

func TestNewFromConfigRejectsUnknownBackend(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Alignment.Backend = "carrier-pigeon"
	if _, err := pipeline.NewFromConfig(cfg, nil, logging.NewNop()); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestRenderSettingsFromConfig(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	settings := pipeline.RenderSettings(cfg)
	if settings.Width != cfg.Render.Width || settings.FontName != cfg.Render.FontName || settings.CRF != cfg.Render.CRF {
		t.Fatalf("unexpected settings: %+v", settings)
	}
}
