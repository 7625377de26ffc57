package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config stores runtime configuration for an exam attempt.
type Config struct {
	Deepgram DeepgramConfig
	Audio    AudioConfig
	Narrator NarratorConfig
	Rules    RulesConfig
	Session  SessionConfig
	Exam     ExamConfig
	Store    StoreConfig
	Flow     FlowConfig
}

type DeepgramConfig struct {
	APIKey        string
	APIBaseURL    string
	Model         string
	Language      string
	SmartFormat   bool
	EndpointingMs int
	KeepAlive     time.Duration
}

type AudioConfig struct {
	RecorderCommand string
	InputFormat     string
	InputDevice     string
	SampleRate      int
	Channels        int
	Filter          string
}

type NarratorConfig struct {
	Command string
	Voice   string
	// Rate is in words per minute; zero keeps the command default.
	Rate int
}

type RulesConfig struct {
	Path           string
	IterationLimit int
}

type SessionConfig struct {
	ChunkSize      int
	StreamingGrace time.Duration
}

type ExamConfig struct {
	// Path is empty for the embedded demo exam.
	Path                string
	TimeLimit           time.Duration
	AutoSubmitOnTimeout bool
}

type StoreConfig struct {
	Driver string
	DSN    string
}

type FlowConfig struct {
	SaveAttempts int
	SaveBackoff  time.Duration
	LogLevel     slog.Level
}

// Load reads an optional .env file, then resolves configuration from
// environment variables and defaults. Variables already set win over the file.
func Load() (Config, error) {
	if err := loadDotEnv(envOrDefault("AUTOSCRIBE_ENV_FILE", ".env")); err != nil {
		return Config{}, err
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return Config{}, errors.New("could not determine home directory")
	}

	driver := strings.ToLower(envOrDefault("AUTOSCRIBE_DB_DRIVER", "sqlite"))
	if driver != "sqlite" && driver != "postgres" {
		return Config{}, fmt.Errorf("unsupported AUTOSCRIBE_DB_DRIVER %q", driver)
	}
	dsn := strings.TrimSpace(os.Getenv("AUTOSCRIBE_DB_DSN"))
	if dsn == "" && driver == "sqlite" {
		dsn = filepath.Join(home, ".local", "share", "autoscribe", "autoscribe.db")
	}
	if dsn == "" {
		return Config{}, errors.New("AUTOSCRIBE_DB_DSN is required for the postgres driver")
	}

	cfg := Config{
		Deepgram: DeepgramConfig{
			APIKey:        strings.TrimSpace(os.Getenv("DEEPGRAM_API_KEY")),
			APIBaseURL:    envOrDefault("DEEPGRAM_API_BASE", "https://api.deepgram.com/v1"),
			Model:         envOrDefault("DEEPGRAM_MODEL", "nova-2"),
			Language:      envOrDefault("DEEPGRAM_LANGUAGE", "en-US"),
			SmartFormat:   envOrDefaultBool("DEEPGRAM_SMART_FORMAT", true),
			EndpointingMs: envOrDefaultInt("DEEPGRAM_ENDPOINTING_MS", 0),
			KeepAlive:     time.Duration(envOrDefaultInt("DEEPGRAM_KEEPALIVE_MS", 5000)) * time.Millisecond,
		},
		Audio: AudioConfig{
			RecorderCommand: envOrDefault("AUTOSCRIBE_FFMPEG_COMMAND", "ffmpeg"),
			InputFormat:     envOrDefault("AUTOSCRIBE_AUDIO_INPUT_FORMAT", "pulse"),
			InputDevice:     envOrDefault("AUTOSCRIBE_AUDIO_INPUT_DEVICE", "default"),
			SampleRate:      envOrDefaultInt("AUTOSCRIBE_SAMPLE_RATE", 16000),
			Channels:        envOrDefaultInt("AUTOSCRIBE_CHANNELS", 1),
			Filter:          strings.TrimSpace(os.Getenv("AUTOSCRIBE_AUDIO_FILTER")),
		},
		Narrator: NarratorConfig{
			Command: envOrDefault("AUTOSCRIBE_TTS_COMMAND", "espeak-ng"),
			Voice:   strings.TrimSpace(os.Getenv("AUTOSCRIBE_TTS_VOICE")),
			Rate:    envOrDefaultInt("AUTOSCRIBE_TTS_RATE", 0),
		},
		Rules: RulesConfig{
			Path:           envOrDefault("AUTOSCRIBE_RULES_FILE", filepath.Join(home, ".config", "autoscribe", "substitutions.rules")),
			IterationLimit: envOrDefaultInt("AUTOSCRIBE_RULE_ITERATION_LIMIT", 30),
		},
		Session: SessionConfig{
			ChunkSize:      envOrDefaultInt("AUTOSCRIBE_AUDIO_CHUNK_SIZE", 4096),
			StreamingGrace: time.Duration(envOrDefaultInt("AUTOSCRIBE_STREAMING_GRACE_MS", 1000)) * time.Millisecond,
		},
		Exam: ExamConfig{
			Path:                strings.TrimSpace(os.Getenv("AUTOSCRIBE_EXAM_FILE")),
			TimeLimit:           time.Duration(envOrDefaultInt("AUTOSCRIBE_TIME_LIMIT_SECONDS", 0)) * time.Second,
			AutoSubmitOnTimeout: envOrDefaultBool("AUTOSCRIBE_TIMEOUT_AUTO_SUBMIT", false),
		},
		Store: StoreConfig{
			Driver: driver,
			DSN:    dsn,
		},
		Flow: FlowConfig{
			SaveAttempts: envOrDefaultInt("AUTOSCRIBE_SAVE_ATTEMPTS", 3),
			SaveBackoff:  time.Duration(envOrDefaultInt("AUTOSCRIBE_SAVE_BACKOFF_MS", 250)) * time.Millisecond,
			LogLevel:     envOrDefaultLevel("AUTOSCRIBE_LOG_LEVEL", slog.LevelInfo),
		},
	}

	if cfg.Audio.SampleRate <= 0 {
		cfg.Audio.SampleRate = 16000
	}
	if cfg.Audio.Channels <= 0 {
		cfg.Audio.Channels = 1
	}
	if cfg.Rules.IterationLimit <= 0 {
		cfg.Rules.IterationLimit = 30
	}
	if cfg.Session.ChunkSize < 256 {
		cfg.Session.ChunkSize = 4096
	}
	if cfg.Session.StreamingGrace < 0 {
		cfg.Session.StreamingGrace = time.Second
	}
	if cfg.Exam.TimeLimit < 0 {
		cfg.Exam.TimeLimit = 0
	}
	if cfg.Deepgram.EndpointingMs < 0 {
		cfg.Deepgram.EndpointingMs = 0
	}
	if cfg.Flow.SaveAttempts <= 0 {
		cfg.Flow.SaveAttempts = 3
	}
	if cfg.Flow.SaveBackoff < 0 {
		cfg.Flow.SaveBackoff = 250 * time.Millisecond
	}

	return cfg, nil
}

func loadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load env file %q: %w", path, err)
	}
	return nil
}

func envOrDefault(key string, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func envOrDefaultInt(key string, fallback int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func envOrDefaultBool(key string, fallback bool) bool {
	value := strings.TrimSpace(strings.ToLower(os.Getenv(key)))
	switch value {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func envOrDefaultLevel(key string, fallback slog.Level) slog.Level {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(value)); err != nil {
		return fallback
	}
	return level
}
