// Package config provides application configuration and home directory resolution.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Storage backend types.
const (
	StorageFile     = "file"
	StorageSQLite   = "sqlite"
	StorageDatabase = "database"
)

// LLM engines.
const (
	EngineOpenAI  = "openai"
	EngineCommand = "command"
	EngineOff     = "off"
)

// Settings holds all application configuration.
type Settings struct {
	Home string

	PersistenceEnabled bool
	StorageType        string // file | sqlite | database
	StoragePath        string
	DatabaseURL        string
	Expiration         time.Duration
	AutoSave           bool
	CleanupInterval    time.Duration
	FlushInterval      time.Duration // 0 disables the periodic flush

	LLMEngine      string // openai | command | off
	APIKey         string // OPENAI_API_KEY
	LLMBaseURL     string
	LLMModel       string
	LLMTimeout     time.Duration
	LLMCommand     string
	LLMCommandArgs []string

	Port          int
	ServerAPIKey  string
	MaxConcurrent int
	QuestionsFile string

	Judge0APIKey string
	Judge0URL    string

	SlackWebhookURL  string
	NotifyWebhookURL string
}

// Load reads configuration from the environment, after loading .env files from
// the working directory and the copilot home (both optional).
func Load(home string) (*Settings, error) {
	_ = godotenv.Load()
	if home != "" {
		_ = godotenv.Load(filepath.Join(home, ".env"))
	}

	s := &Settings{
		Home: home,

		PersistenceEnabled: getEnvBool("SESSION_PERSISTENCE_ENABLED", true),
		StorageType:        getEnv("SESSION_STORAGE_TYPE", StorageFile),
		StoragePath:        getEnv("SESSION_STORAGE_PATH", filepath.Join(home, "data", "sessions")),
		DatabaseURL:        getEnv("DATABASE_URL", ""),
		Expiration:         time.Duration(getEnvInt("SESSION_EXPIRATION_HOURS", 168)) * time.Hour,
		AutoSave:           getEnvBool("SESSION_AUTO_SAVE", true),
		CleanupInterval:    time.Duration(getEnvInt("SESSION_CLEANUP_INTERVAL_MINUTES", 60)) * time.Minute,
		FlushInterval:      time.Duration(getEnvInt("SESSION_FLUSH_INTERVAL_MINUTES", 5)) * time.Minute,

		LLMEngine:      getEnv("LLM_ENGINE", EngineOpenAI),
		APIKey:         getEnv("OPENAI_API_KEY", ""),
		LLMBaseURL:     getEnv("LLM_BASE_URL", "https://api.openai.com"),
		LLMModel:       getEnv("LLM_MODEL", "gpt-4o-mini"),
		LLMTimeout:     time.Duration(getEnvInt("LLM_TIMEOUT_SECONDS", 60)) * time.Second,
		LLMCommand:     getEnv("LLM_COMMAND", ""),
		LLMCommandArgs: splitArgs(getEnv("LLM_COMMAND_ARGS", "")),

		Port:          getEnvInt("COPILOT_PORT", 8000),
		ServerAPIKey:  getEnv("COPILOT_API_KEY", ""),
		MaxConcurrent: getEnvInt("MAX_CONCURRENT_INTERVIEWS", 4),
		QuestionsFile: getEnv("QUESTIONS_FILE", ""),

		Judge0APIKey: getEnv("JUDGE0_API_KEY", ""),
		Judge0URL:    getEnv("JUDGE0_URL", "https://judge0-ce.p.rapidapi.com"),

		SlackWebhookURL:  getEnv("SLACK_WEBHOOK_URL", ""),
		NotifyWebhookURL: getEnv("NOTIFY_WEBHOOK_URL", ""),
	}

	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return s, nil
}

// Validate checks cross-field consistency of the settings.
func (s *Settings) Validate() error {
	switch s.StorageType {
	case StorageFile, StorageSQLite, StorageDatabase:
	default:
		return fmt.Errorf("SESSION_STORAGE_TYPE must be one of file, sqlite, database; got %q", s.StorageType)
	}
	if s.StorageType == StorageDatabase && s.DatabaseURL == "" {
		return fmt.Errorf("SESSION_STORAGE_TYPE=database requires DATABASE_URL")
	}
	switch s.LLMEngine {
	case EngineOpenAI, EngineCommand, EngineOff:
	default:
		return fmt.Errorf("LLM_ENGINE must be one of openai, command, off; got %q", s.LLMEngine)
	}
	if s.LLMEngine == EngineCommand && s.LLMCommand == "" {
		return fmt.Errorf("LLM_ENGINE=command requires LLM_COMMAND")
	}
	if s.Expiration <= 0 {
		return fmt.Errorf("SESSION_EXPIRATION_HOURS must be > 0")
	}
	if s.MaxConcurrent <= 0 {
		return fmt.Errorf("MAX_CONCURRENT_INTERVIEWS must be > 0")
	}
	if s.Port <= 0 || s.Port > 65535 {
		return fmt.Errorf("COPILOT_PORT out of range: %d", s.Port)
	}
	return nil
}

// SessionsFile returns the JSON document path used by the file backend.
func (s *Settings) SessionsFile() string {
	return filepath.Join(s.StoragePath, "sessions.json")
}

// SQLitePath returns the database path used by the sqlite backend.
func (s *Settings) SQLitePath() string {
	return filepath.Join(s.StoragePath, "sessions.db")
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}

func splitArgs(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return strings.Fields(s)
}
