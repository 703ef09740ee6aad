package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/xxxsen/common/logger"
)

type Config struct {
	Port       int              `json:"port" env:"PORT"`
	UsersFile  string           `json:"users_file" env:"USERS_FILE"`
	PostsFile  string           `json:"posts_file" env:"POSTS_FILE"`
	DateLocale string           `json:"date_locale" env:"DATE_LOCALE"`
	Timezone   string           `json:"timezone" env:"TIMEZONE"`
	Session    SessionConfig    `json:"session" envPrefix:"SESSION_"`
	RateLimit  RateLimitConfig  `json:"rate_limit" envPrefix:"RATE_LIMIT_"`
	Backup     BackupConfig     `json:"backup" envPrefix:"BACKUP_"`
	LogConfig  logger.LogConfig `json:"log_config"`
}

type SessionConfig struct {
	Secret     string `json:"secret" env:"SECRET"`
	TTLHours   int    `json:"ttl_hours" env:"TTL_HOURS"`
	MaxEntries int    `json:"max_entries" env:"MAX_ENTRIES"`
	CookieName string `json:"cookie_name" env:"COOKIE_NAME"`
	Secure     bool   `json:"secure" env:"SECURE"`
}

type RateLimitConfig struct {
	// AuthWindowMillis is the minimum gap between two login or registration
	// submissions from the same client. Zero disables the limiter.
	AuthWindowMillis int `json:"auth_window_millis" env:"AUTH_WINDOW_MILLIS"`
}

type BackupConfig struct {
	Enabled   bool            `json:"enabled" env:"ENABLED"`
	Spec      string          `json:"spec" env:"SPEC"`
	FileStore FileStoreConfig `json:"file_store"`
}

type FileStoreConfig struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// Load reads the JSON file at path, overlays MBLOG_* environment variables
// and applies defaults.
func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	var cfg Config
	if err := json.NewDecoder(file).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: "MBLOG_"}); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (cfg *Config) normalize() error {
	if cfg.Port == 0 {
		return fmt.Errorf("port is required")
	}
	if strings.TrimSpace(cfg.Session.Secret) == "" {
		return fmt.Errorf("session.secret is required")
	}
	if cfg.UsersFile == "" {
		cfg.UsersFile = "data/users.json"
	}
	if cfg.PostsFile == "" {
		cfg.PostsFile = "data/blogs.json"
	}
	if cfg.UsersFile == cfg.PostsFile {
		return fmt.Errorf("users_file and posts_file must differ")
	}
	if cfg.DateLocale == "" {
		cfg.DateLocale = "en-US"
	}
	if cfg.Session.TTLHours == 0 {
		cfg.Session.TTLHours = 24
	}
	if cfg.Session.MaxEntries == 0 {
		cfg.Session.MaxEntries = 10000
	}
	if cfg.RateLimit.AuthWindowMillis == 0 {
		cfg.RateLimit.AuthWindowMillis = 1000
	}
	if cfg.LogConfig.Level == "" {
		cfg.LogConfig.Level = "info"
	}
	if cfg.Backup.Enabled {
		if cfg.Backup.Spec == "" {
			cfg.Backup.Spec = "0 3 * * *"
		}
		if cfg.Backup.FileStore.Type == "" {
			cfg.Backup.FileStore.Type = "local"
		}
		switch cfg.Backup.FileStore.Type {
		case "local", "s3":
		default:
			return fmt.Errorf("backup.file_store.type must be local or s3")
		}
	}
	return nil
}
