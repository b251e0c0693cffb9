package preflight

import (
	"context"

	"reelforge/internal/config"
	"reelforge/internal/deps"
)

// Report bundles every readiness signal shown by status views.
type Report struct {
	Checks       []Result
	Dependencies []deps.Status
}

// Ready reports whether every check passed and every required binary is present.
func (r Report) Ready() bool {
	if len(Failed(r.Checks)) > 0 {
		return false
	}
	for _, dep := range r.Dependencies {
		if !dep.Optional && !dep.Available {
			return false
		}
	}
	return true
}

// BuildReport runs the checks, binary lookups and the ffmpeg feature check.
// The feature check is skipped when ffmpeg itself is missing.
func BuildReport(ctx context.Context, cfg *config.Config) Report {
	if cfg == nil {
		return Report{}
	}
	report := Report{
		Checks:       RunAll(ctx, cfg),
		Dependencies: CheckSystemDeps(cfg),
	}
	if len(report.Dependencies) > 0 && report.Dependencies[0].Available {
		report.Dependencies = append(report.Dependencies,
			deps.CheckFFmpegFeatures(ctx, cfg.FFmpegBinary(), deps.RenderFeatures, nil))
	}
	return report
}
