package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"reelforge/internal/api"
)

func TestRenderStatusLineNoColor(t *testing.T) {
	got := renderStatusLine("TTS service", statusError, "connection refused", false)
	want := fmt.Sprintf("%s%-*s %s", statusIndent, statusLabelWidth, "TTS service:", "[ERROR] connection refused")
	if got != want {
		t.Fatalf("renderStatusLine mismatch\n got: %q\nwant: %q", got, want)
	}
}

func TestRenderStatusLineWithColor(t *testing.T) {
	got := renderStatusLine("reelforge", statusOK, "Ready", true)
	if !strings.HasPrefix(got, ansiGreen) {
		t.Fatalf("expected green prefix, got %q", got)
	}
	if !strings.HasSuffix(got, ansiReset) {
		t.Fatalf("expected reset suffix, got %q", got)
	}
}

func TestStatusLines(t *testing.T) {
	lines := statusLines(statusReport{
		ConfigPath: "/tmp/config.toml",
		Ready:      false,
		Checks: []api.CheckView{
			{Name: "Scratch directory", Passed: true, Detail: "/tmp/scratch"},
			{Name: "TTS service", Passed: false, Detail: "connection refused"},
		},
		Deps: []api.DependencyStatus{
			{Name: "FFmpeg", Command: "ffmpeg", Available: true},
			{Name: "uvx", Command: "uvx", Optional: true, Detail: "not found"},
		},
		History: &historyTotals{Total: 3, Succeeded: 2, Failed: 1, TotalDuration: 12.5},
	}, false)
	joined := strings.Join(lines, "\n")

	for _, want := range []string{
		"[ERROR] Not ready",
		"[OK] /tmp/scratch",
		"[ERROR] connection refused",
		"[OK] ffmpeg",
		"[WARN] not found",
		"3 total, 2 succeeded, 1 failed",
		"12.5s",
	} {
		requireContains(t, joined, want)
	}
}

func TestStatusCommandJSON(t *testing.T) {
	env := setupCLITestEnv(t)
	out, _, err := runCLI(t, []string{"status", "--json"}, env.configPath)
	if err != nil {
		t.Fatalf("status --json: %v", err)
	}
	var report statusReport
	if err := json.Unmarshal([]byte(out), &report); err != nil {
		t.Fatalf("decode status %q: %v", out, err)
	}
	if report.ConfigPath != env.configPath {
		t.Fatalf("config path = %q, want %q", report.ConfigPath, env.configPath)
	}
	// The TTS endpoint in the test config is unreachable.
	if report.Ready {
		t.Fatal("expected not ready with unreachable TTS service")
	}
	if report.History == nil || report.History.Total != 0 {
		t.Fatalf("expected empty history totals, got %+v", report.History)
	}
	found := false
	for _, check := range report.Checks {
		if check.Name == "Background video" {
			found = true
			if !check.Passed {
				t.Fatalf("expected artwork check to pass: %+v", check)
			}
		}
	}
	if !found {
		t.Fatalf("missing background check in %+v", report.Checks)
	}
}
