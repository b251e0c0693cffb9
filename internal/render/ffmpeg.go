package render

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"reelforge/internal/media/assets"
)

const stderrTailLines = 20

// CommandRunner executes name in dir and returns its combined output.
type CommandRunner func(ctx context.Context, dir, name string, args ...string) ([]byte, error)

// FFmpegRenderer encodes a Plan with ffmpeg.
type FFmpegRenderer struct {
	binary string
	runner CommandRunner
}

// NewFFmpegRenderer returns a renderer using binary (default "ffmpeg").
func NewFFmpegRenderer(binary string) *FFmpegRenderer {
	if strings.TrimSpace(binary) == "" {
		binary = "ffmpeg"
	}
	return &FFmpegRenderer{binary: binary, runner: runCommand}
}

// WithCommandRunner sets a custom command runner (for testing).
func (r *FFmpegRenderer) WithCommandRunner(runner CommandRunner) {
	if runner != nil {
		r.runner = runner
	}
}

// Render encodes plan and returns the MP4 bytes. ffmpeg runs inside the
// plan's work directory so the subtitles filter can take a relative path.
func (r *FFmpegRenderer) Render(ctx context.Context, plan *Plan) ([]byte, error) {
	if plan == nil {
		return nil, &Error{Err: errors.New("nil plan")}
	}
	output, err := r.runner(ctx, plan.WorkDir, r.binary, BuildArgs(plan)...)
	if err != nil {
		return nil, &Error{Stderr: tail(output, stderrTailLines), Err: err}
	}
	data, err := os.ReadFile(plan.OutputPath)
	if err != nil {
		return nil, &Error{Stderr: tail(output, stderrTailLines), Err: fmt.Errorf("read output: %w", err)}
	}
	if len(data) == 0 {
		return nil, &Error{Stderr: tail(output, stderrTailLines), Err: errors.New("ffmpeg produced an empty file")}
	}
	return data, nil
}

func runCommand(ctx context.Context, dir, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
	cmd.Dir = dir
	return cmd.CombinedOutput()
}

// Fixed input indexes ahead of the media overlays.
const (
	inputBackground = 0
	inputCharacterA = 1
	inputCharacterB = 2
	inputAudio      = 3
	firstOverlay    = 4
)

// BuildArgs renders the ffmpeg command line for plan.
func BuildArgs(plan *Plan) []string {
	s := plan.Settings
	total := seconds(plan.TotalDuration)

	args := []string{"-y", "-hide_banner", "-loglevel", "error"}
	args = append(args, "-stream_loop", "-1", "-t", total, "-i", plan.BackgroundPath)
	args = append(args, "-i", plan.CharacterAPath)
	args = append(args, "-i", plan.CharacterBPath)
	args = append(args, "-i", plan.AudioPath)
	for _, ov := range plan.Overlays {
		args = append(args, "-i", ov.Path)
	}

	args = append(args,
		"-filter_complex", FilterGraph(plan),
		"-map", "[final]",
		"-map", "[aout]",
		"-c:v", "libx264",
		"-preset", s.Preset,
		"-crf", strconv.Itoa(s.CRF),
		"-pix_fmt", "yuv420p",
		"-r", strconv.Itoa(s.FrameRate),
		"-c:a", "aac",
		"-b:a", "192k",
		"-t", total,
		"-movflags", "+faststart",
		plan.OutputPath,
	)
	return args
}

// FilterGraph composes background, characters, overlays, and subtitles.
func FilterGraph(plan *Plan) string {
	s := plan.Settings
	parts := []string{
		fmt.Sprintf("[%d:v]scale=%d:%d:force_original_aspect_ratio=increase,crop=%d:%d,setsar=1,fps=%d[bg]",
			inputBackground, s.Width, s.Height, s.Width, s.Height, s.FrameRate),
		fmt.Sprintf("[%d:v]scale=-1:%d[char_a]", inputCharacterA, s.CharacterHeight),
		fmt.Sprintf("[%d:v]scale=-1:%d[char_b]", inputCharacterB, s.CharacterHeight),
		fmt.Sprintf("[bg][char_a]overlay=400:H-h-30:enable='%s'[with_a]", EnableExpression(plan.VisibilityA)),
		fmt.Sprintf("[with_a][char_b]overlay=-300:H-h-30:enable='%s'[with_chars]", EnableExpression(plan.VisibilityB)),
	}

	current := "with_chars"
	for i, ov := range plan.Overlays {
		input := firstOverlay + i
		scaled := fmt.Sprintf("media_%d", i)
		next := fmt.Sprintf("with_media_%d", i)
		start := seconds(ov.Start)
		if ov.Kind == assets.KindVideo || ov.Duration == nil {
			parts = append(parts,
				fmt.Sprintf("[%d:v]scale=%d:-2,setpts=PTS-STARTPTS+%s/TB[%s]", input, s.MediaWidth, start, scaled),
				fmt.Sprintf("[%s][%s]overlay=(W-w)/2:100:enable='gte(t,%s)':eof_action=pass[%s]", current, scaled, start, next),
			)
		} else {
			end := seconds(ov.Start + *ov.Duration)
			parts = append(parts,
				fmt.Sprintf("[%d:v]scale=%d:-2[%s]", input, s.MediaWidth, scaled),
				fmt.Sprintf("[%s][%s]overlay=(W-w)/2:100:enable='between(t,%s,%s)'[%s]", current, scaled, start, end, next),
			)
		}
		current = next
	}

	parts = append(parts,
		fmt.Sprintf("[%s]subtitles=filename=%s[final]", current, filepath.Base(plan.SubtitlePath)),
		fmt.Sprintf("[%d:a]apad=whole_dur=%s[aout]", inputAudio, seconds(plan.TotalDuration)),
	)
	return strings.Join(parts, ";")
}
