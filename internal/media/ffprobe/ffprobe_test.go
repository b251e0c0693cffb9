package ffprobe

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestResultHelpers(t *testing.T) {
	result := Result{
		Streams: []Stream{
			{CodecType: "video"},
			{CodecType: "audio"},
			{CodecType: "audio"},
		},
		Format: Format{Duration: "123.45"},
	}
	if result.VideoStreamCount() != 1 {
		t.Fatalf("expected 1 video stream, got %d", result.VideoStreamCount())
	}
	if result.AudioStreamCount() != 2 {
		t.Fatalf("expected 2 audio streams, got %d", result.AudioStreamCount())
	}
	if result.DurationSeconds() != 123.45 {
		t.Fatalf("unexpected duration: %v", result.DurationSeconds())
	}
}

func TestDurationFallsBackToStreams(t *testing.T) {
	result, err := Parse([]byte(`{"streams":[{"codec_type":"audio","duration":"2.500000"},{"codec_type":"audio","duration":"N/A"}],"format":{"duration":"N/A"}}`))
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if got := result.DurationSeconds(); got != 2.5 {
		t.Fatalf("expected stream duration 2.5, got %v", got)
	}
}

func TestDurationHandlesInvalidNumbers(t *testing.T) {
	result := Result{Format: Format{Duration: "bad"}}
	if got := result.DurationSeconds(); got != 0 {
		t.Fatalf("expected 0, got %v", got)
	}
}

func TestParseRejectsGarbage(t *testing.T) {
	if _, err := Parse([]byte("not json")); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestProberDurationUsesBinary(t *testing.T) {
	dir := t.TempDir()
	script := filepath.Join(dir, "ffprobe")
	body := "#!/bin/sh\necho '{\"streams\":[],\"format\":{\"duration\":\"1.75\"}}'\n"
	if err := os.WriteFile(script, []byte(body), 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	d, err := DurationReader{Binary: script}.Duration(context.Background(), filepath.Join(dir, "clip.wav"))
	if err != nil {
		t.Fatalf("Duration returned error: %v", err)
	}
	if d != 1.75 {
		t.Fatalf("expected 1.75, got %v", d)
	}
}

func TestProberRejectsMissingDuration(t *testing.T) {
	dir := t.TempDir()
	script := filepath.Join(dir, "ffprobe")
	if err := os.WriteFile(script, []byte("#!/bin/sh\necho '{\"streams\":[],\"format\":{}}'\n"), 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	if _, err := (DurationReader{Binary: script}).Duration(context.Background(), "x.wav"); err == nil {
		t.Fatal("expected error when no duration is reported")
	}
}
