// Package audio joins synthesized clips into the single soundtrack the
// renderer consumes.
package audio

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
)

// Output format for the joined track.
const (
	SampleRate = 44100
	Channels   = 1
)

// Clip is one line of speech and the length the timeline reserved for it.
// A positive Duration trims or pads the decoded audio to exactly that length.
type Clip struct {
	Audio    []byte
	Duration float64
}

// Concatenator joins clips with a fixed silence between neighbours. Gap must
// be the same value the timeline used to place segments, otherwise words and
// character art drift from the audio.
type Concatenator struct {
	ffmpegBinary  string
	gap           float64
	commandRunner func(ctx context.Context, name string, args ...string) error
}

// NewConcatenator returns a concatenator that inserts gap seconds of silence.
func NewConcatenator(ffmpegBinary string, gap float64) *Concatenator {
	if strings.TrimSpace(ffmpegBinary) == "" {
		ffmpegBinary = "ffmpeg"
	}
	if gap < 0 {
		gap = 0
	}
	return &Concatenator{ffmpegBinary: ffmpegBinary, gap: gap}
}

// WithCommandRunner sets a custom command runner (for testing).
func (c *Concatenator) WithCommandRunner(runner func(ctx context.Context, name string, args ...string) error) {
	c.commandRunner = runner
}

// Gap reports the silence inserted between clips.
func (c *Concatenator) Gap() float64 {
	return c.gap
}

// Concatenate writes each clip into dir and joins them, in order, into
// dir/dialogue.wav (PCM s16le). It returns the output path.
func (c *Concatenator) Concatenate(ctx context.Context, dir string, clips []Clip) (string, error) {
	if len(clips) == 0 {
		return "", errors.New("concatenate audio: no clips")
	}
	inputs := make([]string, len(clips))
	for i, clip := range clips {
		if len(clip.Audio) == 0 {
			return "", fmt.Errorf("concatenate audio: clip %d is empty", i)
		}
		path := filepath.Join(dir, fmt.Sprintf("clip_%03d.audio", i))
		if err := os.WriteFile(path, clip.Audio, 0o644); err != nil {
			return "", fmt.Errorf("concatenate audio: write clip %d: %w", i, err)
		}
		inputs[i] = path
	}
	output := filepath.Join(dir, "dialogue.wav")
	if err := c.run(ctx, c.ffmpegBinary, c.buildArgs(inputs, clips, output)...); err != nil {
		return "", fmt.Errorf("concatenate audio: %w", err)
	}
	return output, nil
}

// buildArgs normalizes every input to one format and to its reserved
// duration, pads all but the last clip with exactly gap seconds of silence,
// and concatenates. Clips without a duration keep their decoded length.
func (c *Concatenator) buildArgs(inputs []string, clips []Clip, output string) []string {
	args := []string{"-y", "-hide_banner", "-loglevel", "error"}
	for _, in := range inputs {
		args = append(args, "-i", in)
	}

	format := fmt.Sprintf("aresample=%d,aformat=sample_fmts=s16:channel_layouts=mono", SampleRate)
	gap := strconv.FormatFloat(c.gap, 'f', 3, 64)
	var graph strings.Builder
	for i := range inputs {
		fmt.Fprintf(&graph, "[%d:a]%s", i, format)
		if d := clips[i].Duration; d > 0 {
			length := strconv.FormatFloat(d, 'f', 3, 64)
			fmt.Fprintf(&graph, ",apad=whole_dur=%s,atrim=end=%s", length, length)
		}
		if i < len(inputs)-1 && c.gap > 0 {
			fmt.Fprintf(&graph, ",apad=pad_dur=%s", gap)
		}
		fmt.Fprintf(&graph, "[a%d];", i)
	}
	for i := range inputs {
		fmt.Fprintf(&graph, "[a%d]", i)
	}
	fmt.Fprintf(&graph, "concat=n=%d:v=0:a=1[out]", len(inputs))

	args = append(args,
		"-filter_complex", graph.String(),
		"-map", "[out]",
		"-ac", strconv.Itoa(Channels),
		"-ar", strconv.Itoa(SampleRate),
		"-c:a", "pcm_s16le",
		output,
	)
	return args
}

func (c *Concatenator) run(ctx context.Context, name string, args ...string) error {
	if c.commandRunner != nil {
		return c.commandRunner(ctx, name, args...)
	}
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(string(output)))
	}
	return nil
}
