package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and state file configuration.
type Paths struct {
	ScratchDir  string `toml:"scratch_dir"`
	OutputDir   string `toml:"output_dir"`
	LogDir      string `toml:"log_dir"`
	StateDir    string `toml:"state_dir"`
	HistoryPath string `toml:"history_path"`
}

// Assets points at the fixed artwork every render needs.
type Assets struct {
	BackgroundVideo string `toml:"background_video"`
	CharacterAImage string `toml:"character_a_image"`
	CharacterBImage string `toml:"character_b_image"`
}

// Character describes one of the two speaking roles.
type Character struct {
	Name    string `toml:"name"`
	VoiceID string `toml:"voice_id"`
}

// Characters holds the two speaking roles. A always speaks first in a turn.
type Characters struct {
	A Character `toml:"a"`
	B Character `toml:"b"`
}

// TTS contains configuration for the speech synthesis backend.
type TTS struct {
	BaseURL                 string  `toml:"base_url"`
	APIKey                  string  `toml:"api_key"`
	TimeoutSeconds          int     `toml:"timeout_seconds"`
	Retries                 int     `toml:"retries"`
	MaxBackoffSeconds       int     `toml:"max_backoff_seconds"`
	FallbackDurationSeconds float64 `toml:"fallback_duration_seconds"`
}

// Alignment contains configuration for word-level alignment.
type Alignment struct {
	// Backend is one of "http", "whisperx", or "none". "none" always uses the
	// uniform estimator.
	Backend             string `toml:"backend"`
	BaseURL             string `toml:"base_url"`
	TimeoutSeconds      int    `toml:"timeout_seconds"`
	Language            string `toml:"language"`
	WhisperXModel       string `toml:"whisperx_model"`
	WhisperXCUDAEnabled bool   `toml:"whisperx_cuda_enabled"`
	WhisperXVADMethod   string `toml:"whisperx_vad_method"`
	WhisperXHuggingFace string `toml:"whisperx_hf_token"`
}

// Timeline contains the pacing constants used to place clips on the timeline.
type Timeline struct {
	GapSeconds                  float64 `toml:"gap_seconds"`
	TailBufferSeconds           float64 `toml:"tail_buffer_seconds"`
	BatchSize                   int     `toml:"batch_size"`
	BatchCooldownSeconds        float64 `toml:"batch_cooldown_seconds"`
	ImageDefaultDurationSeconds float64 `toml:"image_default_duration_seconds"`
}

// Render contains ffmpeg output settings.
type Render struct {
	FFmpegBinary    string `toml:"ffmpeg_binary"`
	FFprobeBinary   string `toml:"ffprobe_binary"`
	Width           int    `toml:"width"`
	Height          int    `toml:"height"`
	FrameRate       int    `toml:"frame_rate"`
	Preset          string `toml:"preset"`
	CRF             int    `toml:"crf"`
	CharacterHeight int    `toml:"character_height"`
	MediaWidth      int    `toml:"media_width"`
	FontName        string `toml:"font_name"`
	FontSize        int    `toml:"font_size"`
	TimeoutSeconds  int    `toml:"timeout_seconds"`
	KeepWorkspace   bool   `toml:"keep_workspace"`
}

// LLM contains connection settings for dialogue generation.
type LLM struct {
	APIKey         string `toml:"api_key"`
	BaseURL        string `toml:"base_url"`
	Model          string `toml:"model"`
	Referer        string `toml:"referer"`
	Title          string `toml:"title"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Server contains configuration for the HTTP API.
type Server struct {
	Bind           string   `toml:"bind"`
	APIToken       string   `toml:"api_token"`
	MaxUploadMiB   int      `toml:"max_upload_mib"`
	AllowedOrigins []string `toml:"allowed_origins"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for reelforge.
//
// Configuration sections by subsystem:
//   - Paths: scratch, output, log, and state locations
//   - Assets: background video and character art
//   - Characters: display names and voice identifiers for A and B
//   - TTS: speech synthesis backend and retry policy
//   - Alignment: word alignment backend selection
//   - Timeline: gap, tail buffer, and batching constants
//   - Render: ffmpeg output settings
//   - LLM: dialogue generation model
//   - Server: HTTP API bind address and limits
//   - Logging: log format and level
type Config struct {
	Paths      Paths      `toml:"paths"`
	Assets     Assets     `toml:"assets"`
	Characters Characters `toml:"characters"`
	TTS        TTS        `toml:"tts"`
	Alignment  Alignment  `toml:"alignment"`
	Timeline   Timeline   `toml:"timeline"`
	Render     Render     `toml:"render"`
	LLM        LLM        `toml:"llm"`
	Server     Server     `toml:"server"`
	Logging    Logging    `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("reelforge.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the scratch, output, log, and state directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.ScratchDir, c.Paths.OutputDir, c.Paths.LogDir, c.Paths.StateDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// FFmpegBinary returns the ffmpeg executable used for concatenation and rendering.
func (c *Config) FFmpegBinary() string {
	if c == nil || strings.TrimSpace(c.Render.FFmpegBinary) == "" {
		return defaultFFmpegBinary
	}
	return c.Render.FFmpegBinary
}

// FFprobeBinary returns the ffprobe executable name used to measure durations.
func (c *Config) FFprobeBinary() string {
	if c == nil || strings.TrimSpace(c.Render.FFprobeBinary) == "" {
		return defaultFFprobeBinary
	}
	return c.Render.FFprobeBinary
}

// LockPath returns the path of the single-instance lock used by the server.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.StateDir, "reelforge.lock")
}

// ServerLogPath returns the log file written by the server.
func (c *Config) ServerLogPath() string {
	return filepath.Join(c.Paths.LogDir, "reelforge.log")
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

func defaultScratchDir() string {
	if base, ok := os.LookupEnv("XDG_CACHE_HOME"); ok && strings.TrimSpace(base) != "" {
		return filepath.Join(base, "reelforge", "scratch")
	}
	return "~/.cache/reelforge/scratch"
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// SampleConfig returns the embedded sample configuration.
func SampleConfig() string {
	return sampleConfig
}

// CharacterName returns the display name for the given role letter ("A" or "B").
func (c *Config) CharacterName(role string) string {
	switch strings.ToUpper(strings.TrimSpace(role)) {
	case "A":
		return c.Characters.A.Name
	case "B":
		return c.Characters.B.Name
	default:
		return ""
	}
}

// VoiceID returns the TTS voice identifier for the given role letter.
func (c *Config) VoiceID(role string) string {
	switch strings.ToUpper(strings.TrimSpace(role)) {
	case "A":
		return c.Characters.A.VoiceID
	case "B":
		return c.Characters.B.VoiceID
	default:
		return ""
	}
}
