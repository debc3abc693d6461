package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds application configuration
type Config struct {
	ServerPort string `yaml:"port"    env:"PORT"    env-default:"8080"`
	AppEnv     string `yaml:"app_env" env:"APP_ENV" env-default:"development"`

	// REST backend
	APIBaseURL     string        `yaml:"api_base_url"    env:"API_BASE_URL"    env-default:"http://localhost:8000/api"`
	APITimeout     time.Duration `yaml:"api_timeout"     env:"API_TIMEOUT"     env-default:"10s"`
	SampleFallback bool          `yaml:"sample_fallback" env:"SAMPLE_FALLBACK" env-default:"true"`

	// Durable local storage (sqlite, postgres, mysql)
	StorageType    string `yaml:"storage_type"    env:"STORAGE_TYPE"    env-default:"sqlite"`
	StoragePath    string `yaml:"storage_path"    env:"STORAGE_PATH"    env-default:"./lingopal.db"`
	StorageURL     string `yaml:"storage_url"     env:"STORAGE_URL"`
	MigrationsPath string `yaml:"migrations_path" env:"MIGRATIONS_PATH" env-default:"./migrations"`
	StorageSecret  string `yaml:"storage_secret"  env:"STORAGE_SECRET"`

	// Real-time room
	LiveKitURL           string        `yaml:"livekit_ws_url"         env:"LIVEKIT_WS_URL"`
	LiveKitTokenEndpoint string        `yaml:"livekit_token_endpoint" env:"LIVEKIT_TOKEN_ENDPOINT"`
	LiveKitAPIKey        string        `yaml:"livekit_api_key"        env:"LIVEKIT_API_KEY"`
	LiveKitAPISecret     string        `yaml:"livekit_api_secret"     env:"LIVEKIT_API_SECRET"`
	LiveKitTokenTTL      time.Duration `yaml:"livekit_token_ttl"      env:"LIVEKIT_TOKEN_TTL"      env-default:"10m"`

	// Progress report email
	AWSRegion    string `yaml:"aws_region"     env:"AWS_REGION"     env-default:"us-east-1"`
	SESFromEmail string `yaml:"ses_from_email" env:"SES_FROM_EMAIL"`
	SESFromName  string `yaml:"ses_from_name"  env:"SES_FROM_NAME"  env-default:"LingoPal"`
	EmailDebug   bool   `yaml:"email_debug"    env:"EMAIL_DEBUG"    env-default:"false"`

	AudioPath string `yaml:"audio_path" env:"AUDIO_PATH" env-default:"./static/audio"`

	CSRFSecret     string `yaml:"csrf_secret"      env:"CSRF_SECRET"`
	LoginRateLimit int    `yaml:"login_rate_limit" env:"LOGIN_RATE_LIMIT" env-default:"10"`
}

// Load reads configuration from a YAML file named by CONFIG_PATH, if set,
// and from environment variables. ENV wins over YAML, YAML over defaults.
func Load() (*Config, error) {
	var cfg Config

	if path := os.Getenv("CONFIG_PATH"); path != "" {
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	} else if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("config: read env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: validate: %w", err)
	}

	return &cfg, nil
}

// Validate checks values that cleanenv cannot express as tags
func (c *Config) Validate() error {
	switch strings.ToLower(c.StorageType) {
	case "sqlite", "sqlite3", "":
	case "postgres", "postgresql", "mysql":
		if c.StorageURL == "" {
			return fmt.Errorf("storage_url is required for storage type %s", c.StorageType)
		}
	default:
		return fmt.Errorf("unsupported storage type: %s", c.StorageType)
	}

	if c.APITimeout <= 0 {
		return fmt.Errorf("api_timeout must be > 0 (got %s)", c.APITimeout)
	}
	if c.LoginRateLimit <= 0 {
		return fmt.Errorf("login_rate_limit must be > 0 (got %d)", c.LoginRateLimit)
	}
	if (c.LiveKitAPIKey == "") != (c.LiveKitAPISecret == "") {
		return fmt.Errorf("livekit_api_key and livekit_api_secret must be set together")
	}

	return nil
}

// IsDevelopment reports whether the app runs in development mode
func (c *Config) IsDevelopment() bool {
	return strings.EqualFold(c.AppEnv, "development")
}

// TokenIssuerEnabled reports whether this process should mint room tokens itself
func (c *Config) TokenIssuerEnabled() bool {
	return c.LiveKitAPIKey != "" && c.LiveKitAPISecret != ""
}

// TokenEndpoint returns the configured credential endpoint, defaulting to the
// endpoint served by this process
func (c *Config) TokenEndpoint() string {
	if c.LiveKitTokenEndpoint != "" {
		return c.LiveKitTokenEndpoint
	}
	return "http://localhost:" + c.ServerPort + "/api/livekit-token/"
}
