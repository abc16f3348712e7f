package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// ----------------------------------------------------
// ================ Config ================
// Config is the process configuration read from the environment
type Config struct {
	Log      LogConfig      `envconfig:"LOG"`
	LLM      LLMConfig      `envconfig:"LLM"`
	Dialogue DialogueConfig `envconfig:"DIALOGUE"`
	Session  SessionConfig  `envconfig:"SESSION"`
	Redis    RedisConfig    `envconfig:"REDIS"`
	Postgres PostgresConfig `envconfig:"POSTGRES"`
	MQTT     MQTTConfig     `envconfig:"MQTT"`
	Speech   SpeechConfig   `envconfig:"SPEECH"`
	HTTP     HTTPConfig     `envconfig:"HTTP"`

	BusinessProfile string `envconfig:"BUSINESS_PROFILE" default:"config/business.yaml"`
	ArchiveDir      string `envconfig:"ARCHIVE_DIR" default:""`
}

// LogConfig controls the zerolog setup
type LogConfig struct {
	Level      string `envconfig:"LEVEL" default:"info"`
	Format     string `envconfig:"FORMAT" default:"json"`
	Output     string `envconfig:"OUTPUT" default:"stdout"`
	FilePath   string `envconfig:"FILE_PATH" default:"logs/receptionist.log"`
	TimeFormat string `envconfig:"TIME_FORMAT" default:"rfc3339"`
}

// LLMConfig selects the generative completion provider
type LLMConfig struct {
	Provider    string        `envconfig:"PROVIDER" default:"openai"`
	Model       string        `envconfig:"MODEL" default:"openai/gpt-3.5-turbo"`
	APIKey      string        `envconfig:"API_KEY"`
	BaseURL     string        `envconfig:"BASE_URL" default:"https://openrouter.ai/api/v1"`
	MaxTokens   int           `envconfig:"MAX_TOKENS" default:"200"`
	Temperature float64       `envconfig:"TEMPERATURE" default:"0.7"`
	Timeout     time.Duration `envconfig:"TIMEOUT" default:"10s"`
}

// DialogueConfig tunes the dialogue core
type DialogueConfig struct {
	EscalationThreshold float64       `envconfig:"ESCALATION_THRESHOLD" default:"0.7"`
	HistoryWindow       int           `envconfig:"HISTORY_WINDOW" default:"3"`
	ActionTimeout       time.Duration `envconfig:"ACTION_TIMEOUT" default:"10s"`
}

// SessionConfig controls the session store and its expiry sweep
type SessionConfig struct {
	Backend       string        `envconfig:"BACKEND" default:"memory"` // memory | redis
	MaxAge        time.Duration `envconfig:"MAX_AGE" default:"24h"`
	SweepInterval time.Duration `envconfig:"SWEEP_INTERVAL" default:"10m"`
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	URL       string `envconfig:"URL" default:"redis://localhost:6379/0"`
	KeyPrefix string `envconfig:"KEY_PREFIX" default:"session:"`
}

// PostgresConfig holds the call and appointment database settings
type PostgresConfig struct {
	DSN string `envconfig:"DSN"`
}

// MQTTConfig holds the event broker settings
type MQTTConfig struct {
	BrokerURL   string `envconfig:"BROKER_URL"`
	ClientID    string `envconfig:"CLIENT_ID" default:"receptionist"`
	Username    string `envconfig:"USERNAME"`
	Password    string `envconfig:"PASSWORD"`
	TopicPrefix string `envconfig:"TOPIC_PREFIX" default:"receptionist"`
}

// SpeechConfig holds the transcription and synthesis settings
type SpeechConfig struct {
	APIKey          string        `envconfig:"API_KEY"`
	BaseURL         string        `envconfig:"BASE_URL" default:"https://api.openai.com/v1"`
	TranscribeModel string        `envconfig:"TRANSCRIBE_MODEL" default:"whisper-1"`
	SynthesizeModel string        `envconfig:"SYNTHESIZE_MODEL" default:"tts-1"`
	Timeout         time.Duration `envconfig:"TIMEOUT" default:"30s"`
	MaxUploadBytes  int64         `envconfig:"MAX_UPLOAD_BYTES" default:"26214400"`
}

// HTTPConfig holds the gateway settings
type HTTPConfig struct {
	Addr            string        `envconfig:"ADDR" default:":8080"`
	ReadTimeout     time.Duration `envconfig:"READ_TIMEOUT" default:"30s"`
	WriteTimeout    time.Duration `envconfig:"WRITE_TIMEOUT" default:"60s"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s"`
}

// Load reads .env (if present) and processes the environment
func Load() (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	var config Config
	if err := envconfig.Process("", &config); err != nil {
		return nil, fmt.Errorf("error processing environment configuration: %w", err)
	}

	return &config, nil
}
