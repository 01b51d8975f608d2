package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	HTTPAddr     string        `env:"HTTP_ADDR" envDefault:":8080"`
	ReadTimeout  time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"30s"`
	WriteTimeout time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"10m"`
	IdleTimeout  time.Duration `env:"HTTP_IDLE_TIMEOUT" envDefault:"120s"`
	MaxUploadMB  int64         `env:"MAX_UPLOAD_MB" envDefault:"200"`

	AuthToken      string   `env:"AUTH_TOKEN"`
	CORSOrigins    []string `env:"CORS_ORIGINS" envSeparator:","`
	RateLimitRPS   float64  `env:"RATE_LIMIT_RPS" envDefault:"0"`
	RateLimitBurst int      `env:"RATE_LIMIT_BURST" envDefault:"10"`
	LogLevel       string   `env:"LOG_LEVEL" envDefault:"info"`

	// Recognizers
	DefaultRecognizer   string        `env:"DEFAULT_RECOGNIZER" envDefault:"whisper"`
	PreloadRecognizers  []string      `env:"PRELOAD_RECOGNIZERS" envSeparator:","`
	SampleRate          int           `env:"SAMPLE_RATE" envDefault:"16000"`
	TranscribeTimeout   time.Duration `env:"TRANSCRIBE_TIMEOUT" envDefault:"5m"`
	TranscribeLanguage  string        `env:"TRANSCRIBE_LANGUAGE" envDefault:"en"`
	TranscribePrompt    string        `env:"TRANSCRIBE_PROMPT"`
	TranscribeHotwords  string        `env:"TRANSCRIBE_HOTWORDS"`
	TranscribeTemp      float64       `env:"TRANSCRIBE_TEMPERATURE" envDefault:"0"`
	WhisperURL          string        `env:"WHISPER_URL" envDefault:"http://localhost:8000/v1/audio/transcriptions"`
	WhisperModel        string        `env:"WHISPER_MODEL" envDefault:"base"`
	WhisperAPIKey       string        `env:"WHISPER_API_KEY"`
	VoskURL             string        `env:"VOSK_URL" envDefault:"ws://localhost:2700"`
	VoskModel           string        `env:"VOSK_MODEL" envDefault:"vosk-model-small-en-us"`
	SpeechBrainCommand  string        `env:"SPEECHBRAIN_COMMAND" envDefault:"speechbrain-transcribe"`
	SpeechBrainSource   string        `env:"SPEECHBRAIN_SOURCE" envDefault:"speechbrain/asr-transformer-transformerlm-librispeech"`
	SpeechBrainSavedir  string        `env:"SPEECHBRAIN_SAVEDIR" envDefault:"pretrained_models/asr-transformer-transformerlm-librispeech"`
	DeepInfraAPIKey     string        `env:"DEEPINFRA_API_KEY"`
	DeepInfraModel      string        `env:"DEEPINFRA_MODEL" envDefault:"openai/whisper-large-v3-turbo"`
	ElevenLabsAPIKey    string        `env:"ELEVENLABS_API_KEY"`
	ElevenLabsModel     string        `env:"ELEVENLABS_MODEL" envDefault:"scribe_v1"`
	ElevenLabsKeyterms  string        `env:"ELEVENLABS_KEYTERMS"`
	FFmpegPath          string        `env:"FFMPEG_PATH" envDefault:"ffmpeg"`
	MicrophoneFormat    string        `env:"MIC_INPUT_FORMAT"`
	MicrophoneDevice    string        `env:"MIC_DEVICE"`
	MicrophoneDuration  time.Duration `env:"MIC_DURATION" envDefault:"10s"`
	DefaultAudioFile    string        `env:"DEFAULT_AUDIO_FILE"`
	MaxSentences        int           `env:"MAX_SENTENCES" envDefault:"6"`

	// Persistence
	DatabaseURL      string        `env:"DATABASE_URL"`
	HistoryRetention time.Duration `env:"HISTORY_RETENTION" envDefault:"0s"`
	ArchiveDir       string        `env:"ARCHIVE_DIR"`
	S3               S3Config      `envPrefix:"S3_"`

	// Drop-folder ingest
	WatchDir        string        `env:"WATCH_DIR"`
	WatchOutputDir  string        `env:"WATCH_OUTPUT_DIR"`
	WatchRecognizer string        `env:"WATCH_RECOGNIZER"` // defaults to DefaultRecognizer
	WatchBackfill   bool          `env:"WATCH_BACKFILL" envDefault:"false"`
	WatchWorkers    int           `env:"WATCH_WORKERS" envDefault:"2"`
	WatchQueueSize  int           `env:"WATCH_QUEUE_SIZE" envDefault:"100"`
	WatchTimeout    time.Duration `env:"WATCH_TIMEOUT" envDefault:"15m"`
}

// S3Config configures the S3-compatible minutes archive.
type S3Config struct {
	Bucket    string `env:"BUCKET"`
	Endpoint  string `env:"ENDPOINT"`
	Region    string `env:"REGION" envDefault:"us-east-1"`
	AccessKey string `env:"ACCESS_KEY"`
	SecretKey string `env:"SECRET_KEY"`
	Prefix    string `env:"PREFIX"`
}

// Enabled reports whether an S3 bucket is configured.
func (c S3Config) Enabled() bool {
	return c.Bucket != ""
}

// Overrides holds CLI flag values that take priority over env vars.
type Overrides struct {
	EnvFile     string
	HTTPAddr    string
	LogLevel    string
	DatabaseURL string
	Recognizer  string
	WatchDir    string
}

// Load reads configuration from .env file, environment variables, and CLI overrides.
// Priority: CLI flags > environment variables > .env file > struct defaults.
func Load(overrides Overrides) (*Config, error) {
	envFile := overrides.EnvFile
	if envFile == "" {
		envFile = ".env"
	}
	if _, err := os.Stat(envFile); err == nil {
		_ = godotenv.Load(envFile)
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	if overrides.HTTPAddr != "" {
		cfg.HTTPAddr = overrides.HTTPAddr
	}
	if overrides.LogLevel != "" {
		cfg.LogLevel = overrides.LogLevel
	}
	if overrides.DatabaseURL != "" {
		cfg.DatabaseURL = overrides.DatabaseURL
	}
	if overrides.Recognizer != "" {
		cfg.DefaultRecognizer = overrides.Recognizer
	}
	if overrides.WatchDir != "" {
		cfg.WatchDir = overrides.WatchDir
	}

	cfg.DefaultRecognizer = strings.ToLower(strings.TrimSpace(cfg.DefaultRecognizer))
	cfg.WatchRecognizer = strings.ToLower(strings.TrimSpace(cfg.WatchRecognizer))
	if cfg.WatchRecognizer == "" {
		cfg.WatchRecognizer = cfg.DefaultRecognizer
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values that env parsing alone cannot reject.
func (c *Config) Validate() error {
	if c.SampleRate <= 0 {
		return fmt.Errorf("SAMPLE_RATE must be positive, got %d", c.SampleRate)
	}
	if c.MaxSentences < 1 || c.MaxSentences > 20 {
		return fmt.Errorf("MAX_SENTENCES must be between 1 and 20, got %d", c.MaxSentences)
	}
	if c.MicrophoneDuration <= 0 {
		return fmt.Errorf("MIC_DURATION must be positive, got %s", c.MicrophoneDuration)
	}
	if c.HistoryRetention < 0 {
		return fmt.Errorf("HISTORY_RETENTION must not be negative, got %s", c.HistoryRetention)
	}
	if c.WatchDir != "" && c.WatchWorkers < 1 {
		return fmt.Errorf("WATCH_WORKERS must be at least 1 when WATCH_DIR is set")
	}
	return nil
}
