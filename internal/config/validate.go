package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateCharacters(); err != nil {
		return err
	}
	if err := c.validateTTS(); err != nil {
		return err
	}
	if err := c.validateAlignment(); err != nil {
		return err
	}
	if err := c.validateTimeline(); err != nil {
		return err
	}
	if err := c.validateRender(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateCharacters() error {
	if strings.EqualFold(c.Characters.A.Name, c.Characters.B.Name) {
		return errors.New("characters.a.name and characters.b.name must differ")
	}
	return nil
}

func (c *Config) validateTTS() error {
	if strings.TrimSpace(c.TTS.BaseURL) == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = defaultConfigPath
		}
		return fmt.Errorf("tts.base_url is required. Set TTS_BASE_URL env var or edit %s (create with 'reelforge config init')", defaultPath)
	}
	if c.TTS.Retries > 10 {
		return errors.New("tts.retries must be between 0 and 10")
	}
	return nil
}

func (c *Config) validateAlignment() error {
	switch c.Alignment.Backend {
	case "http":
		if strings.TrimSpace(c.Alignment.BaseURL) == "" {
			return errors.New("alignment.base_url must be set when alignment.backend is \"http\"")
		}
	case "whisperx", "none":
	default:
		return fmt.Errorf("alignment.backend must be one of http, whisperx, none (got %q)", c.Alignment.Backend)
	}
	switch c.Alignment.WhisperXVADMethod {
	case "silero", "pyannote":
	default:
		return fmt.Errorf("alignment.whisperx_vad_method must be silero or pyannote (got %q)", c.Alignment.WhisperXVADMethod)
	}
	return nil
}

func (c *Config) validateTimeline() error {
	if c.Timeline.GapSeconds < 0 {
		return errors.New("timeline.gap_seconds must be >= 0")
	}
	if c.Timeline.TailBufferSeconds < 0 {
		return errors.New("timeline.tail_buffer_seconds must be >= 0")
	}
	if c.Timeline.BatchSize > 16 {
		return errors.New("timeline.batch_size must be between 1 and 16")
	}
	return nil
}

func (c *Config) validateRender() error {
	if err := ensurePositiveMap(map[string]int{
		"render.width":            c.Render.Width,
		"render.height":           c.Render.Height,
		"render.frame_rate":       c.Render.FrameRate,
		"render.character_height": c.Render.CharacterHeight,
		"render.media_width":      c.Render.MediaWidth,
	}); err != nil {
		return err
	}
	if c.Render.CRF < 0 || c.Render.CRF > 51 {
		return errors.New("render.crf must be between 0 and 51")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
		return nil
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error (got %q)", c.Logging.Level)
	}
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
