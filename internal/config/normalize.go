package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeAssets(); err != nil {
		return err
	}
	c.normalizeCharacters()
	c.normalizeTTS()
	c.normalizeAlignment()
	c.normalizeTimeline()
	c.normalizeRender()
	c.normalizeLLM()
	c.normalizeServer()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.ScratchDir) == "" {
		c.Paths.ScratchDir = defaultScratchDir()
	}
	if c.Paths.ScratchDir, err = expandPath(c.Paths.ScratchDir); err != nil {
		return fmt.Errorf("paths.scratch_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.OutputDir) == "" {
		c.Paths.OutputDir = defaultOutputDir
	}
	if c.Paths.OutputDir, err = expandPath(c.Paths.OutputDir); err != nil {
		return fmt.Errorf("paths.output_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.HistoryPath) == "" {
		c.Paths.HistoryPath = filepath.Join(c.Paths.StateDir, defaultHistoryFile)
	}
	if c.Paths.HistoryPath, err = expandPath(c.Paths.HistoryPath); err != nil {
		return fmt.Errorf("paths.history_path: %w", err)
	}
	return nil
}

func (c *Config) normalizeAssets() error {
	var err error
	if c.Assets.BackgroundVideo, err = expandPath(strings.TrimSpace(c.Assets.BackgroundVideo)); err != nil {
		return fmt.Errorf("assets.background_video: %w", err)
	}
	if c.Assets.CharacterAImage, err = expandPath(strings.TrimSpace(c.Assets.CharacterAImage)); err != nil {
		return fmt.Errorf("assets.character_a_image: %w", err)
	}
	if c.Assets.CharacterBImage, err = expandPath(strings.TrimSpace(c.Assets.CharacterBImage)); err != nil {
		return fmt.Errorf("assets.character_b_image: %w", err)
	}
	return nil
}

func (c *Config) normalizeCharacters() {
	c.Characters.A.Name = strings.TrimSpace(c.Characters.A.Name)
	if c.Characters.A.Name == "" {
		c.Characters.A.Name = defaultCharacterAName
	}
	c.Characters.B.Name = strings.TrimSpace(c.Characters.B.Name)
	if c.Characters.B.Name == "" {
		c.Characters.B.Name = defaultCharacterBName
	}
	c.Characters.A.VoiceID = strings.TrimSpace(c.Characters.A.VoiceID)
	if c.Characters.A.VoiceID == "" {
		c.Characters.A.VoiceID = envValue("CHARACTER_A_VOICE_ID")
	}
	if c.Characters.A.VoiceID == "" {
		c.Characters.A.VoiceID = strings.ToLower(c.Characters.A.Name)
	}
	c.Characters.B.VoiceID = strings.TrimSpace(c.Characters.B.VoiceID)
	if c.Characters.B.VoiceID == "" {
		c.Characters.B.VoiceID = envValue("CHARACTER_B_VOICE_ID")
	}
	if c.Characters.B.VoiceID == "" {
		c.Characters.B.VoiceID = strings.ToLower(c.Characters.B.Name)
	}
}

func (c *Config) normalizeTTS() {
	c.TTS.BaseURL = strings.TrimRight(strings.TrimSpace(c.TTS.BaseURL), "/")
	if c.TTS.BaseURL == "" {
		c.TTS.BaseURL = envValue("TTS_BASE_URL")
	}
	c.TTS.APIKey = strings.TrimSpace(c.TTS.APIKey)
	if c.TTS.APIKey == "" {
		c.TTS.APIKey = envValue("TTS_API_KEY")
	}
	if c.TTS.TimeoutSeconds <= 0 {
		c.TTS.TimeoutSeconds = defaultTTSTimeoutSeconds
	}
	if c.TTS.Retries < 0 {
		c.TTS.Retries = 0
	}
	if c.TTS.MaxBackoffSeconds <= 0 {
		c.TTS.MaxBackoffSeconds = defaultTTSMaxBackoffSeconds
	}
	if c.TTS.FallbackDurationSeconds <= 0 {
		c.TTS.FallbackDurationSeconds = defaultTTSFallbackDuration
	}
}

func (c *Config) normalizeAlignment() {
	c.Alignment.Backend = strings.ToLower(strings.TrimSpace(c.Alignment.Backend))
	if c.Alignment.Backend == "" {
		c.Alignment.Backend = defaultAlignmentBackend
	}
	c.Alignment.BaseURL = strings.TrimRight(strings.TrimSpace(c.Alignment.BaseURL), "/")
	if c.Alignment.BaseURL == "" {
		c.Alignment.BaseURL = c.TTS.BaseURL
	}
	if c.Alignment.TimeoutSeconds <= 0 {
		c.Alignment.TimeoutSeconds = defaultAlignmentTimeoutSeconds
	}
	c.Alignment.Language = strings.ToLower(strings.TrimSpace(c.Alignment.Language))
	if c.Alignment.Language == "" {
		c.Alignment.Language = defaultAlignmentLanguage
	}
	c.Alignment.WhisperXModel = strings.TrimSpace(c.Alignment.WhisperXModel)
	if c.Alignment.WhisperXModel == "" {
		c.Alignment.WhisperXModel = defaultWhisperXModel
	}
	c.Alignment.WhisperXVADMethod = strings.ToLower(strings.TrimSpace(c.Alignment.WhisperXVADMethod))
	if c.Alignment.WhisperXVADMethod == "" {
		c.Alignment.WhisperXVADMethod = defaultWhisperXVADMethod
	}
	c.Alignment.WhisperXHuggingFace = strings.TrimSpace(c.Alignment.WhisperXHuggingFace)
	if c.Alignment.WhisperXHuggingFace == "" {
		if value := envValue("HUGGING_FACE_HUB_TOKEN"); value != "" {
			c.Alignment.WhisperXHuggingFace = value
		} else {
			c.Alignment.WhisperXHuggingFace = envValue("HF_TOKEN")
		}
	}
}

func (c *Config) normalizeTimeline() {
	if c.Timeline.BatchSize <= 0 {
		c.Timeline.BatchSize = defaultBatchSize
	}
	if c.Timeline.BatchCooldownSeconds < 0 {
		c.Timeline.BatchCooldownSeconds = 0
	}
	if c.Timeline.ImageDefaultDurationSeconds <= 0 {
		c.Timeline.ImageDefaultDurationSeconds = defaultImageDuration
	}
}

func (c *Config) normalizeRender() {
	c.Render.FFmpegBinary = strings.TrimSpace(c.Render.FFmpegBinary)
	if c.Render.FFmpegBinary == "" {
		c.Render.FFmpegBinary = defaultFFmpegBinary
	}
	c.Render.FFprobeBinary = strings.TrimSpace(c.Render.FFprobeBinary)
	if c.Render.FFprobeBinary == "" {
		c.Render.FFprobeBinary = defaultFFprobeBinary
	}
	c.Render.Preset = strings.ToLower(strings.TrimSpace(c.Render.Preset))
	if c.Render.Preset == "" {
		c.Render.Preset = defaultRenderPreset
	}
	c.Render.FontName = strings.TrimSpace(c.Render.FontName)
	if c.Render.FontName == "" {
		c.Render.FontName = defaultFontName
	}
	if c.Render.FontSize <= 0 {
		c.Render.FontSize = defaultFontSize
	}
	if c.Render.TimeoutSeconds <= 0 {
		c.Render.TimeoutSeconds = defaultRenderTimeoutSeconds
	}
}

func (c *Config) normalizeLLM() {
	c.LLM.BaseURL = strings.TrimSpace(c.LLM.BaseURL)
	if c.LLM.BaseURL == "" {
		c.LLM.BaseURL = defaultLLMBaseURL
	}
	c.LLM.Model = strings.TrimSpace(c.LLM.Model)
	if c.LLM.Model == "" {
		c.LLM.Model = defaultLLMModel
	}
	c.LLM.Referer = strings.TrimSpace(c.LLM.Referer)
	if c.LLM.Referer == "" {
		c.LLM.Referer = defaultLLMReferer
	}
	c.LLM.Title = strings.TrimSpace(c.LLM.Title)
	if c.LLM.Title == "" {
		c.LLM.Title = defaultLLMTitle
	}
	if c.LLM.TimeoutSeconds <= 0 {
		c.LLM.TimeoutSeconds = defaultLLMTimeoutSeconds
	}
	c.LLM.APIKey = strings.TrimSpace(c.LLM.APIKey)
	if c.LLM.APIKey == "" {
		c.LLM.APIKey = envValue("OPENROUTER_API_KEY")
	}
}

func (c *Config) normalizeServer() {
	c.Server.Bind = strings.TrimSpace(c.Server.Bind)
	if c.Server.Bind == "" {
		c.Server.Bind = defaultServerBind
	}
	c.Server.APIToken = strings.TrimSpace(c.Server.APIToken)
	if c.Server.APIToken == "" {
		c.Server.APIToken = envValue("REELFORGE_API_TOKEN")
	}
	if c.Server.MaxUploadMiB <= 0 {
		c.Server.MaxUploadMiB = defaultMaxUploadMiB
	}
	origins := make([]string, 0, len(c.Server.AllowedOrigins))
	seen := make(map[string]struct{}, len(c.Server.AllowedOrigins))
	for _, origin := range c.Server.AllowedOrigins {
		origin = strings.TrimSpace(origin)
		if origin == "" {
			continue
		}
		if _, ok := seen[origin]; ok {
			continue
		}
		seen[origin] = struct{}{}
		origins = append(origins, origin)
	}
	c.Server.AllowedOrigins = origins
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

func envValue(key string) string {
	if value, ok := os.LookupEnv(key); ok {
		return strings.TrimSpace(value)
	}
	return ""
}
