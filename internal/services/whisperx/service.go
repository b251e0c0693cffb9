package whisperx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"golang.org/x/text/language"

	"reelforge/internal/timing"
)

// Service provides WhisperX word alignment.
type Service struct {
	cfg           Config
	ffmpegBinary  string
	commandRunner func(ctx context.Context, name string, args ...string) error
}

// NewService creates a WhisperX service with the given configuration.
func NewService(cfg Config, ffmpegBinary string) *Service {
	if ffmpegBinary == "" {
		ffmpegBinary = FFmpegCommand
	}
	return &Service{
		cfg:          cfg,
		ffmpegBinary: ffmpegBinary,
	}
}

// WithCommandRunner sets a custom command runner (for testing).
func (s *Service) WithCommandRunner(runner func(ctx context.Context, name string, args ...string) error) {
	s.commandRunner = runner
}

// Model returns the configured model name for logging.
func (s *Service) Model() string {
	if s.cfg.Model != "" {
		return s.cfg.Model
	}
	return DefaultModel
}

// CUDAEnabled returns whether CUDA is enabled.
func (s *Service) CUDAEnabled() bool {
	return s.cfg.CUDAEnabled
}

// run executes a command, using the custom runner if set.
func (s *Service) run(ctx context.Context, name string, args ...string) error {
	if s.commandRunner != nil {
		return s.commandRunner(ctx, name, args...)
	}
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec

	// Torch 2.6 changed torch.load default to weights_only=true, breaking WhisperX/pyannote.
	if os.Getenv("TORCH_FORCE_NO_WEIGHTS_ONLY_LOAD") == "" {
		cmd.Env = append(os.Environ(), "TORCH_FORCE_NO_WEIGHTS_ONLY_LOAD=1")
	}

	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(string(output)))
	}
	return nil
}

// Align satisfies the alignment backend contract. text is unused: WhisperX
// transcribes the clip itself and the recognized words carry the timing.
func (s *Service) Align(ctx context.Context, audio []byte, _ string) ([]timing.WordTiming, error) {
	return s.AlignWords(ctx, audio)
}

// AlignWords writes audio to a private work directory, normalizes it,
// runs WhisperX, and returns clip-local word timings.
func (s *Service) AlignWords(ctx context.Context, audio []byte) ([]timing.WordTiming, error) {
	if len(audio) == 0 {
		return nil, errors.New("whisperx align: empty audio")
	}
	workDir, err := os.MkdirTemp(s.cfg.WorkDir, "whisperx-*")
	if err != nil {
		return nil, fmt.Errorf("whisperx align: create work dir: %w", err)
	}
	defer os.RemoveAll(workDir)

	raw := filepath.Join(workDir, "clip.audio")
	if err := os.WriteFile(raw, audio, 0o644); err != nil {
		return nil, fmt.Errorf("whisperx align: write clip: %w", err)
	}
	source := filepath.Join(workDir, "clip.wav")
	if err := s.run(ctx, s.ffmpegBinary, buildNormalizeArgs(raw, source)...); err != nil {
		return nil, fmt.Errorf("whisperx align: normalize: %w", err)
	}
	if err := s.run(ctx, UVXCommand, s.buildArgs(source, workDir, s.cfg.Language)...); err != nil {
		return nil, fmt.Errorf("whisperx: %w", err)
	}
	segments, err := LoadSegments(filepath.Join(workDir, "clip.json"))
	if err != nil {
		return nil, fmt.Errorf("whisperx align: %w", err)
	}
	return WordTimings(segments), nil
}

// buildArgs constructs the uvx command arguments for WhisperX.
func (s *Service) buildArgs(source, outputDir, lang string) []string {
	args := make([]string, 0, 32)

	if s.cfg.CUDAEnabled {
		args = append(args,
			"--index-url", CUDAIndexURL,
			"--extra-index-url", PypiIndexURL,
		)
	} else {
		args = append(args, "--index-url", PypiIndexURL)
	}

	args = append(args,
		"whisperx",
		source,
		"--model", s.Model(),
		"--batch_size", BatchSize,
		"--output_dir", outputDir,
		"--output_format", OutputFormat,
		"--segment_resolution", SegmentResolution,
		"--chunk_size", ChunkSize,
		"--vad_onset", VADOnset,
		"--vad_offset", VADOffset,
		"--beam_size", BeamSize,
		"--best_of", BestOf,
		"--temperature", Temperature,
		"--patience", Patience,
	)

	vadMethod := s.cfg.VADMethod
	if vadMethod == "" {
		vadMethod = VADMethodSilero
	}
	args = append(args, "--vad_method", vadMethod)
	if vadMethod == VADMethodPyannote && s.cfg.HFToken != "" {
		args = append(args, "--hf_token", s.cfg.HFToken)
	}

	if code := languageCode(lang); code != "" {
		args = append(args, "--language", code)
	}

	if s.cfg.CUDAEnabled {
		args = append(args, "--device", CUDADevice)
	} else {
		args = append(args, "--device", CPUDevice, "--compute_type", CPUComputeType)
	}

	return args
}

// languageCode reduces a BCP 47 tag or ISO 639-2 code to the two-letter code
// WhisperX accepts. Unknown values return "" so WhisperX auto-detects.
func languageCode(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	tag, err := language.Parse(value)
	if err != nil {
		return ""
	}
	base, confidence := tag.Base()
	if confidence == language.No {
		return ""
	}
	code := base.String()
	if len(code) != 2 {
		return ""
	}
	return code
}

// Word represents a single word with timing from WhisperX output. Start and
// End are pointers because WhisperX omits them for tokens it cannot align
// (digits, symbols).
type Word struct {
	Word  string   `json:"word"`
	Start *float64 `json:"start"`
	End   *float64 `json:"end"`
}

// Segment represents a transcribed segment from WhisperX JSON output.
type Segment struct {
	Text  string  `json:"text"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Words []Word  `json:"words"`
}

type whisperXPayload struct {
	Segments []Segment `json:"segments"`
}

// LoadSegments loads segments from a WhisperX JSON file.
func LoadSegments(jsonPath string) ([]Segment, error) {
	data, err := os.ReadFile(jsonPath)
	if err != nil {
		return nil, err
	}
	var payload whisperXPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("parse whisperx json: %w", err)
	}
	return payload.Segments, nil
}

// WordTimings flattens segments into ordered word timings, skipping words
// that are blank or lack a usable interval.
func WordTimings(segments []Segment) []timing.WordTiming {
	words := make([]timing.WordTiming, 0, len(segments)*8)
	for _, seg := range segments {
		for _, w := range seg.Words {
			text := strings.TrimSpace(w.Word)
			if text == "" || w.Start == nil || w.End == nil || *w.End <= *w.Start {
				continue
			}
			words = append(words, timing.WordTiming{Word: text, Start: *w.Start, End: *w.End})
		}
	}
	return words
}
