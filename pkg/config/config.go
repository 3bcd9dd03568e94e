package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config is loaded entirely from the environment. The webhook URL and the
// transcription credential are required; everything else has a default.
type Config struct {
	WebhookURL string `env:"N8N_WEBHOOK_URL"`

	Host string `env:"HOST" envDefault:"0.0.0.0"`
	Port int    `env:"PORT" envDefault:"3000"`

	GroqAPIKey  string `env:"GROQ_API_KEY"`
	GroqAPIBase string `env:"GROQ_API_BASE" envDefault:"https://api.groq.com/openai/v1"`

	SessionStore string `env:"SESSION_STORE_PATH" envDefault:"~/.zaprelay/session.db"`

	HeartbeatInterval time.Duration `env:"HEARTBEAT_INTERVAL" envDefault:"5m"`
	WatchdogThreshold time.Duration `env:"WATCHDOG_THRESHOLD" envDefault:"15m"`
	ImageDebounce     time.Duration `env:"IMAGE_DEBOUNCE" envDefault:"7s"`

	Logging LoggingConfig
}

type LoggingConfig struct {
	Enabled       bool   `env:"LOG_ENABLED" envDefault:"true"`
	Debug         bool   `env:"LOG_DEBUG"`
	Dir           string `env:"LOG_DIR" envDefault:"~/.zaprelay/logs"`
	Filename      string `env:"LOG_FILENAME" envDefault:"zaprelay.log"`
	MaxSizeMB     int    `env:"LOG_MAX_SIZE_MB" envDefault:"20"`
	RetentionDays int    `env:"LOG_RETENTION_DAYS" envDefault:"3"`
}

func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}
	return cfg, nil
}

// Validate returns every configuration problem found in cfg.
// It does not mutate cfg.
func Validate(cfg *Config) []error {
	if cfg == nil {
		return []error{fmt.Errorf("config is nil")}
	}

	var errs []error

	if cfg.WebhookURL == "" {
		errs = append(errs, fmt.Errorf("N8N_WEBHOOK_URL is required"))
	}
	if cfg.GroqAPIKey == "" {
		errs = append(errs, fmt.Errorf("GROQ_API_KEY is required"))
	}
	if cfg.GroqAPIBase == "" {
		errs = append(errs, fmt.Errorf("GROQ_API_BASE must not be empty"))
	}
	if cfg.Port <= 0 || cfg.Port > 65535 {
		errs = append(errs, fmt.Errorf("PORT must be in 1..65535"))
	}
	if cfg.SessionStore == "" {
		errs = append(errs, fmt.Errorf("SESSION_STORE_PATH must not be empty"))
	}
	if cfg.HeartbeatInterval <= 0 {
		errs = append(errs, fmt.Errorf("HEARTBEAT_INTERVAL must be > 0"))
	}
	if cfg.WatchdogThreshold <= 0 {
		errs = append(errs, fmt.Errorf("WATCHDOG_THRESHOLD must be > 0"))
	}
	if cfg.WatchdogThreshold <= cfg.HeartbeatInterval {
		errs = append(errs, fmt.Errorf("WATCHDOG_THRESHOLD must be > HEARTBEAT_INTERVAL"))
	}
	if cfg.ImageDebounce <= 0 {
		errs = append(errs, fmt.Errorf("IMAGE_DEBOUNCE must be > 0"))
	}

	if cfg.Logging.Enabled {
		if cfg.Logging.Dir == "" {
			errs = append(errs, fmt.Errorf("LOG_DIR is required when LOG_ENABLED=true"))
		}
		if cfg.Logging.Filename == "" {
			errs = append(errs, fmt.Errorf("LOG_FILENAME is required when LOG_ENABLED=true"))
		}
		if cfg.Logging.MaxSizeMB <= 0 {
			errs = append(errs, fmt.Errorf("LOG_MAX_SIZE_MB must be > 0"))
		}
		if cfg.Logging.RetentionDays <= 0 {
			errs = append(errs, fmt.Errorf("LOG_RETENTION_DAYS must be > 0"))
		}
	}

	return errs
}

func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func (c *Config) SessionStorePath() string {
	return expandHome(c.SessionStore)
}

func (c *Config) LogFilePath() string {
	return filepath.Join(expandHome(c.Logging.Dir), c.Logging.Filename)
}

func expandHome(path string) string {
	if path == "" {
		return path
	}
	if path[0] == '~' {
		home, _ := os.UserHomeDir()
		if len(path) > 1 && path[1] == '/' {
			return home + path[1:]
		}
		return home
	}
	return path
}
