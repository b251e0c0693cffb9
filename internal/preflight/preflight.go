package preflight

import (
	"context"
	"strings"

	"reelforge/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes all applicable preflight checks for the given config.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Scratch directory", cfg.Paths.ScratchDir),
		CheckDirectoryAccess("State directory", cfg.Paths.StateDir),
		CheckAssetFile("Background video", cfg.Assets.BackgroundVideo),
		CheckAssetFile("Character A image", cfg.Assets.CharacterAImage),
		CheckAssetFile("Character B image", cfg.Assets.CharacterBImage),
		CheckHTTPService(ctx, "TTS service", cfg.TTS.BaseURL),
	}

	if strings.EqualFold(cfg.Alignment.Backend, "http") && !sameService(cfg.Alignment.BaseURL, cfg.TTS.BaseURL) {
		results = append(results, CheckHTTPService(ctx, "Alignment service", cfg.Alignment.BaseURL))
	}

	if strings.TrimSpace(cfg.LLM.APIKey) != "" {
		results = append(results, CheckLLM(ctx, "Dialogue LLM", cfg.LLM))
	}

	return results
}

// Failed filters results down to checks that did not pass.
func Failed(results []Result) []Result {
	var failed []Result
	for _, r := range results {
		if !r.Passed {
			failed = append(failed, r)
		}
	}
	return failed
}

// sameService reports whether two base URLs point at the same server, in
// which case one reachability check covers both.
func sameService(a, b string) bool {
	return strings.TrimRight(strings.TrimSpace(a), "/") == strings.TrimRight(strings.TrimSpace(b), "/")
}
