package deps

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// FFmpegFeature is a filter or encoder the renderer depends on.
type FFmpegFeature struct {
	Name string
	// Kind is "filter" or "encoder".
	Kind string
}

// RenderFeatures lists what the composition graph and encode settings need.
var RenderFeatures = []FFmpegFeature{
	{Name: "subtitles", Kind: "filter"},
	{Name: "overlay", Kind: "filter"},
	{Name: "apad", Kind: "filter"},
	{Name: "concat", Kind: "filter"},
	{Name: "libx264", Kind: "encoder"},
	{Name: "aac", Kind: "encoder"},
}

// OutputFunc runs a command and returns its stdout.
type OutputFunc func(ctx context.Context, name string, args ...string) ([]byte, error)

func commandOutput(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output() //nolint:gosec
}

// CheckFFmpegFeatures asks ffmpeg for its filter and encoder lists and
// reports whether every feature is compiled in. A build without libass, for
// example, has no subtitles filter and cannot burn captions.
func CheckFFmpegFeatures(ctx context.Context, binary string, features []FFmpegFeature, run OutputFunc) Status {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = "ffmpeg"
	}
	if run == nil {
		run = commandOutput
	}
	result := Status{
		Name:        "FFmpeg features",
		Command:     binary,
		Description: "Filters and encoders used by the renderer",
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	filters, err := run(ctx, binary, "-hide_banner", "-filters")
	if err != nil {
		result.Detail = fmt.Sprintf("list filters: %v", err)
		return result
	}
	encoders, err := run(ctx, binary, "-hide_banner", "-encoders")
	if err != nil {
		result.Detail = fmt.Sprintf("list encoders: %v", err)
		return result
	}
	available := map[string]map[string]struct{}{
		"filter":  listedNames(filters),
		"encoder": listedNames(encoders),
	}

	var missing []string
	for _, feature := range features {
		if _, ok := available[feature.Kind][feature.Name]; !ok {
			missing = append(missing, fmt.Sprintf("%s %s", feature.Kind, feature.Name))
		}
	}
	if len(missing) > 0 {
		result.Detail = "missing " + strings.Join(missing, ", ")
		return result
	}
	result.Available = true
	return result
}

// listedNames extracts the name column from "ffmpeg -filters" or
// "ffmpeg -encoders" output. Both print a flags column followed by the name.
func listedNames(output []byte) map[string]struct{} {
	names := make(map[string]struct{})
	scanner := bufio.NewScanner(bytes.NewReader(output))
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 2 {
			continue
		}
		names[fields[1]] = struct{}{}
	}
	return names
}
