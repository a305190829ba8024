package config

import (
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	// Server configuration
	ServerPort  string `mapstructure:"PORT"`
	Environment string `mapstructure:"ENV"`

	// Database configuration
	DBDriver          string `mapstructure:"DB_DRIVER"`
	DBHost            string `mapstructure:"DB_HOST"`
	DBPort            string `mapstructure:"DB_PORT"`
	DBUser            string `mapstructure:"DB_USER"`
	DBPassword        string `mapstructure:"DB_PASSWORD"`
	DBName            string `mapstructure:"DB_NAME"`
	SQLitePath        string `mapstructure:"SQLITE_PATH"`
	DBConnectAttempts uint   `mapstructure:"DB_CONNECT_ATTEMPTS"`

	// Redis configuration, audit entries are mirrored to AuditStream
	RedisAddress string `mapstructure:"REDIS_ADDRESS"`
	AuditStream  string `mapstructure:"AUDIT_STREAM"`
	AuditWorkers int    `mapstructure:"AUDIT_WORKERS"`

	// shared secret the gateway presents on every call
	InternalSecret string `mapstructure:"INTERNAL_SECRET"`

	FrontendAddress string `mapstructure:"FRONTEND_ADDRESS"`

	PasswordMinLength  int  `mapstructure:"PASSWORD_MIN_LENGTH"`
	EnableRegistration bool `mapstructure:"ENABLE_REGISTRATION"`

	// Logging
	LogLevel      string `mapstructure:"LOG_LEVEL"`
	LogFilePath   string `mapstructure:"LOG_FILE_PATH"`
	LogMaxSizeMB  int    `mapstructure:"LOG_MAX_SIZE_MB"`
	LogMaxBackups int    `mapstructure:"LOG_MAX_BACKUPS"`

	// Model providers used by test runs
	OpenAIAPIKey    string `mapstructure:"OPENAI_API_KEY"`
	OpenAIBaseURL   string `mapstructure:"OPENAI_BASE_URL"`
	OpenAIModel     string `mapstructure:"OPENAI_MODEL"`
	AnthropicAPIKey string `mapstructure:"ANTHROPIC_API_KEY"`
	AnthropicModel  string `mapstructure:"ANTHROPIC_MODEL"`
	// upper bound for a single test run
	ModelTimeout time.Duration `mapstructure:"MODEL_TIMEOUT"`
}

// Global application configuration
var AppConfig Config

var defaults = map[string]any{
	"PORT":                "8080",
	"ENV":                 "development",
	"DB_DRIVER":           "postgres",
	"DB_HOST":             "localhost",
	"DB_PORT":             "5432",
	"DB_USER":             "postgres",
	"DB_PASSWORD":         "postgres",
	"DB_NAME":             "prompt_manager",
	"SQLITE_PATH":         "prompt_manager.db",
	"DB_CONNECT_ATTEMPTS": 5,
	"REDIS_ADDRESS":       "localhost:6379",
	"AUDIT_STREAM":        "prompt-manager:audit",
	"AUDIT_WORKERS":       2,
	"INTERNAL_SECRET":     "prompt-internal-secret",
	"FRONTEND_ADDRESS":    "https://production-frontend.com",
	"PASSWORD_MIN_LENGTH": 8,
	"ENABLE_REGISTRATION": true,
	"LOG_LEVEL":           "info",
	"LOG_FILE_PATH":       "",
	"LOG_MAX_SIZE_MB":     10,
	"LOG_MAX_BACKUPS":     5,
	"OPENAI_API_KEY":      "",
	"OPENAI_BASE_URL":     "",
	"OPENAI_MODEL":        "gpt-4o-mini",
	"ANTHROPIC_API_KEY":   "",
	"ANTHROPIC_MODEL":     "claude-3-haiku-20240307",
	"MODEL_TIMEOUT":       "60s",
}

// LoadConfig loads configuration from .env and the process environment.
func LoadConfig() {
	// Find .env file
	envPath := ".env"
	if _, err := os.Stat(envPath); os.IsNotExist(err) {
		// Try to find .env in parent directories
		envPath = filepath.Join("..", ".env")
		if _, err := os.Stat(envPath); os.IsNotExist(err) {
			envPath = filepath.Join("..", "..", ".env")
		}
	}

	// Load .env file if it exists
	if _, err := os.Stat(envPath); err == nil {
		if err := godotenv.Load(envPath); err != nil {
			log.Printf("Warning: Error loading .env file: %v\n", err)
		}
	}

	cfg, err := Load(viper.New())
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}
	AppConfig = cfg
}

// Load reads every key through v, falling back to the built-in defaults.
func Load(v *viper.Viper) (Config, error) {
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, value := range defaults {
		v.SetDefault(key, value)
		// AutomaticEnv alone does not make Unmarshal see env-only keys
		_ = v.BindEnv(key)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) IsProduction() bool { return c.Environment == "production" }

// FeatureFlags returns the runtime switches exposed to clients.
func (c Config) FeatureFlags() map[string]bool {
	return map[string]bool{
		"registration_enabled":    c.EnableRegistration,
		"ai_testing_enabled":      c.OpenAIAPIKey != "" || c.AnthropicAPIKey != "",
		"collaboration_enabled":   true,
		"version_control_enabled": true,
	}
}
