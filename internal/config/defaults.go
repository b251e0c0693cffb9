package config

const (
	defaultConfigPath              = "~/.config/reelforge/config.toml"
	defaultOutputDir               = "~/Videos/reelforge"
	defaultLogDir                  = "~/.local/share/reelforge/logs"
	defaultStateDir                = "~/.local/share/reelforge"
	defaultHistoryFile             = "history.db"
	defaultBackgroundVideo         = "~/.local/share/reelforge/assets/background.mp4"
	defaultCharacterAImage         = "~/.local/share/reelforge/assets/character_a.png"
	defaultCharacterBImage         = "~/.local/share/reelforge/assets/character_b.png"
	defaultCharacterAName          = "Stewie"
	defaultCharacterBName          = "Peter"
	defaultTTSBaseURL              = "http://127.0.0.1:8000"
	defaultTTSTimeoutSeconds       = 120
	defaultTTSRetries              = 3
	defaultTTSMaxBackoffSeconds    = 30
	defaultTTSFallbackDuration     = 3.0
	defaultAlignmentBackend        = "http"
	defaultAlignmentTimeoutSeconds = 60
	defaultAlignmentLanguage       = "en"
	defaultWhisperXModel           = "large-v3-turbo"
	defaultWhisperXVADMethod       = "silero"
	defaultGapSeconds              = 0.2
	defaultTailBufferSeconds       = 1.0
	defaultBatchSize               = 2
	defaultBatchCooldownSeconds    = 2.0
	defaultImageDuration           = 3.0
	defaultFFmpegBinary            = "ffmpeg"
	defaultFFprobeBinary           = "ffprobe"
	defaultRenderWidth             = 1080
	defaultRenderHeight            = 1920
	defaultRenderFrameRate         = 30
	defaultRenderPreset            = "slow"
	defaultRenderCRF               = 18
	defaultCharacterHeight         = 700
	defaultMediaWidth              = 600
	defaultFontName                = "Arial Black"
	defaultFontSize                = 140
	defaultRenderTimeoutSeconds    = 900
	defaultLLMBaseURL              = "https://openrouter.ai/api/v1/chat/completions"
	defaultLLMModel                = "google/gemini-3-flash-preview"
	defaultLLMReferer              = "https://github.com/reelforge/reelforge"
	defaultLLMTitle                = "reelforge dialogue writer"
	defaultLLMTimeoutSeconds       = 60
	defaultServerBind              = "127.0.0.1:7490"
	defaultMaxUploadMiB            = 120
	defaultLogFormat               = "console"
	defaultLogLevel                = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			ScratchDir: defaultScratchDir(),
			OutputDir:  defaultOutputDir,
			LogDir:     defaultLogDir,
			StateDir:   defaultStateDir,
		},
		Assets: Assets{
			BackgroundVideo: defaultBackgroundVideo,
			CharacterAImage: defaultCharacterAImage,
			CharacterBImage: defaultCharacterBImage,
		},
		Characters: Characters{
			A: Character{Name: defaultCharacterAName},
			B: Character{Name: defaultCharacterBName},
		},
		TTS: TTS{
			BaseURL:                 defaultTTSBaseURL,
			TimeoutSeconds:          defaultTTSTimeoutSeconds,
			Retries:                 defaultTTSRetries,
			MaxBackoffSeconds:       defaultTTSMaxBackoffSeconds,
			FallbackDurationSeconds: defaultTTSFallbackDuration,
		},
		Alignment: Alignment{
			Backend:           defaultAlignmentBackend,
			BaseURL:           defaultTTSBaseURL,
			TimeoutSeconds:    defaultAlignmentTimeoutSeconds,
			Language:          defaultAlignmentLanguage,
			WhisperXModel:     defaultWhisperXModel,
			WhisperXVADMethod: defaultWhisperXVADMethod,
		},
		Timeline: Timeline{
			GapSeconds:                  defaultGapSeconds,
			TailBufferSeconds:           defaultTailBufferSeconds,
			BatchSize:                   defaultBatchSize,
			BatchCooldownSeconds:        defaultBatchCooldownSeconds,
			ImageDefaultDurationSeconds: defaultImageDuration,
		},
		Render: Render{
			FFmpegBinary:    defaultFFmpegBinary,
			FFprobeBinary:   defaultFFprobeBinary,
			Width:           defaultRenderWidth,
			Height:          defaultRenderHeight,
			FrameRate:       defaultRenderFrameRate,
			Preset:          defaultRenderPreset,
			CRF:             defaultRenderCRF,
			CharacterHeight: defaultCharacterHeight,
			MediaWidth:      defaultMediaWidth,
			FontName:        defaultFontName,
			FontSize:        defaultFontSize,
			TimeoutSeconds:  defaultRenderTimeoutSeconds,
		},
		LLM: LLM{
			BaseURL:        defaultLLMBaseURL,
			Model:          defaultLLMModel,
			Referer:        defaultLLMReferer,
			Title:          defaultLLMTitle,
			TimeoutSeconds: defaultLLMTimeoutSeconds,
		},
		Server: Server{
			Bind:         defaultServerBind,
			MaxUploadMiB: defaultMaxUploadMiB,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
