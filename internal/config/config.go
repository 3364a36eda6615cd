package config

import (
	"errors"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// ErrMissingAPIKey is returned by Load when no Gemini credential is present.
// The service must not start without it.
var ErrMissingAPIKey = errors.New("GEMINI_API_KEY environment variable not set")

// readSecret reads a Docker secret from a file path specified by an env var
// with _FILE suffix. If FOO is already set directly, the file is skipped.
func readSecret(envKey string) {
	if os.Getenv(envKey) != "" {
		return
	}
	filePath := os.Getenv(envKey + "_FILE")
	if filePath == "" {
		return
	}
	data, err := os.ReadFile(filePath)
	if err != nil {
		return
	}
	os.Setenv(envKey, strings.TrimSpace(string(data)))
}

type Config struct {
	Server     ServerConfig
	Redis      RedisConfig
	RateLimit  RateLimitConfig
	Gemini     GeminiConfig
	ElevenLabs ElevenLabsConfig
	Speech     SpeechConfig
	Pipeline   PipelineConfig
}

type ServerConfig struct {
	Port        string
	Env         string
	LogLevel    string
	DefaultLang string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type RateLimitConfig struct {
	RunsPerHour      int
	NarrationsPerMin int
}

type GeminiConfig struct {
	APIKey       string
	BaseURL      string
	TextModel    string
	VideoModel   string
	PollInterval time.Duration
}

type ElevenLabsConfig struct {
	APIKeys        []string
	BaseURL        string
	ModelID        string
	DefaultVoiceID string
}

type SpeechConfig struct {
	PreferredProvider string
	VoicesFile        string
	RefreshInterval   time.Duration
}

type PipelineConfig struct {
	RunTimeout  time.Duration
	RunTTL      time.Duration
	Concurrency int
}

// IsConfigured returns true if at least one ElevenLabs key is set
func (c ElevenLabsConfig) IsConfigured() bool {
	return len(c.APIKeys) > 0
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	readSecret("GEMINI_API_KEY")
	readSecret("ELEVENLABS_API_KEYS")
	readSecret("REDIS_PASSWORD")

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	viper.AutomaticEnv()

	_ = viper.BindEnv("server.port", "SERVER_PORT")
	_ = viper.BindEnv("server.env", "SERVER_ENV")
	_ = viper.BindEnv("server.log_level", "LOG_LEVEL")
	_ = viper.BindEnv("server.default_lang", "DEFAULT_LANG")
	_ = viper.BindEnv("redis.addr", "REDIS_ADDR")
	_ = viper.BindEnv("redis.password", "REDIS_PASSWORD")
	_ = viper.BindEnv("redis.db", "REDIS_DB")
	_ = viper.BindEnv("ratelimit.runs_per_hour", "RATELIMIT_RUNS_PER_HOUR")
	_ = viper.BindEnv("ratelimit.narrations_per_min", "RATELIMIT_NARRATIONS_PER_MIN")
	_ = viper.BindEnv("gemini.api_key", "GEMINI_API_KEY", "API_KEY")
	_ = viper.BindEnv("gemini.base_url", "GEMINI_BASE_URL")
	_ = viper.BindEnv("gemini.text_model", "GEMINI_TEXT_MODEL")
	_ = viper.BindEnv("gemini.video_model", "GEMINI_VIDEO_MODEL")
	_ = viper.BindEnv("gemini.poll_interval", "GEMINI_POLL_INTERVAL")
	_ = viper.BindEnv("elevenlabs.api_keys", "ELEVENLABS_API_KEYS")
	_ = viper.BindEnv("elevenlabs.base_url", "ELEVENLABS_BASE_URL")
	_ = viper.BindEnv("elevenlabs.model_id", "ELEVENLABS_MODEL_ID")
	_ = viper.BindEnv("elevenlabs.default_voice_id", "ELEVENLABS_DEFAULT_VOICE_ID")
	_ = viper.BindEnv("speech.preferred_provider", "SPEECH_PREFERRED_PROVIDER")
	_ = viper.BindEnv("speech.voices_file", "SPEECH_VOICES_FILE")
	_ = viper.BindEnv("speech.refresh_interval", "SPEECH_REFRESH_INTERVAL")
	_ = viper.BindEnv("pipeline.run_timeout", "PIPELINE_RUN_TIMEOUT")
	_ = viper.BindEnv("pipeline.run_ttl", "PIPELINE_RUN_TTL")
	_ = viper.BindEnv("pipeline.concurrency", "PIPELINE_CONCURRENCY")

	viper.SetDefault("server.port", "8000")
	viper.SetDefault("server.env", "development")
	viper.SetDefault("server.log_level", "info")
	viper.SetDefault("server.default_lang", "en")
	viper.SetDefault("redis.addr", "localhost:6379")
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("ratelimit.runs_per_hour", 10)
	viper.SetDefault("ratelimit.narrations_per_min", 60)

	// Gemini defaults
	viper.SetDefault("gemini.base_url", "https://generativelanguage.googleapis.com")
	viper.SetDefault("gemini.text_model", "gemini-2.5-flash")
	viper.SetDefault("gemini.video_model", "veo-2.0-generate-001")
	viper.SetDefault("gemini.poll_interval", 10*time.Second)

	// ElevenLabs defaults
	viper.SetDefault("elevenlabs.base_url", "https://api.elevenlabs.io/v1")
	viper.SetDefault("elevenlabs.model_id", "eleven_multilingual_v2")
	viper.SetDefault("elevenlabs.default_voice_id", "21m00Tcm4TlvDq8ikWAM")

	// Speech defaults
	viper.SetDefault("speech.preferred_provider", "google")
	viper.SetDefault("speech.voices_file", "voices.json")
	viper.SetDefault("speech.refresh_interval", 10*time.Minute)

	// Pipeline defaults
	viper.SetDefault("pipeline.run_timeout", 2*time.Hour)
	viper.SetDefault("pipeline.run_ttl", 24*time.Hour)
	viper.SetDefault("pipeline.concurrency", 4)

	// Try to read config file (optional)
	_ = viper.ReadInConfig()

	cfg := &Config{
		Server: ServerConfig{
			Port:        viper.GetString("server.port"),
			Env:         viper.GetString("server.env"),
			LogLevel:    viper.GetString("server.log_level"),
			DefaultLang: viper.GetString("server.default_lang"),
		},
		Redis: RedisConfig{
			Addr:     viper.GetString("redis.addr"),
			Password: viper.GetString("redis.password"),
			DB:       viper.GetInt("redis.db"),
		},
		RateLimit: RateLimitConfig{
			RunsPerHour:      viper.GetInt("ratelimit.runs_per_hour"),
			NarrationsPerMin: viper.GetInt("ratelimit.narrations_per_min"),
		},
		Gemini: GeminiConfig{
			APIKey:       strings.TrimSpace(viper.GetString("gemini.api_key")),
			BaseURL:      viper.GetString("gemini.base_url"),
			TextModel:    viper.GetString("gemini.text_model"),
			VideoModel:   viper.GetString("gemini.video_model"),
			PollInterval: viper.GetDuration("gemini.poll_interval"),
		},
		ElevenLabs: ElevenLabsConfig{
			APIKeys:        splitKeys(viper.GetString("elevenlabs.api_keys")),
			BaseURL:        viper.GetString("elevenlabs.base_url"),
			ModelID:        viper.GetString("elevenlabs.model_id"),
			DefaultVoiceID: viper.GetString("elevenlabs.default_voice_id"),
		},
		Speech: SpeechConfig{
			PreferredProvider: viper.GetString("speech.preferred_provider"),
			VoicesFile:        viper.GetString("speech.voices_file"),
			RefreshInterval:   viper.GetDuration("speech.refresh_interval"),
		},
		Pipeline: PipelineConfig{
			RunTimeout:  viper.GetDuration("pipeline.run_timeout"),
			RunTTL:      viper.GetDuration("pipeline.run_ttl"),
			Concurrency: viper.GetInt("pipeline.concurrency"),
		},
	}

	if cfg.Gemini.APIKey == "" {
		return nil, ErrMissingAPIKey
	}

	return cfg, nil
}

// splitKeys parses a comma separated key list, dropping blanks.
func splitKeys(raw string) []string {
	var keys []string
	for _, k := range strings.Split(raw, ",") {
		if k = strings.TrimSpace(k); k != "" {
			keys = append(keys, k)
		}
	}
	return keys
}
