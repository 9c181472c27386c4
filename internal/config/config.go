// internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// maxPerPage is the largest page size GitHub honours on REST listings.
const maxPerPage = 100

// Config holds all configuration for the application.
type Config struct {
	GithubToken        string        `mapstructure:"GITHUB_API_TOKEN"`
	Organization       string        `mapstructure:"GITHUB_ORGANIZATION"`
	GithubAPIURL       string        `mapstructure:"GITHUB_API_URL"`
	LogLevel           string        `mapstructure:"LOG_LEVEL"`
	LogFormat          string        `mapstructure:"LOG_FORMAT"`
	OutputDir          string        `mapstructure:"OUTPUT_DIR"`
	PerPage            int           `mapstructure:"PER_PAGE"`
	RequestTimeout     time.Duration `mapstructure:"REQUEST_TIMEOUT"`
	AcceptedErrorsFile string        `mapstructure:"ACCEPTED_ERRORS_FILE"`
	DBURL              string        `mapstructure:"DB_URL"`
	HTTPAddr           string        `mapstructure:"HTTP_ADDR"`
}

var keys = []string{
	"GITHUB_API_TOKEN",
	"GITHUB_ORGANIZATION",
	"GITHUB_API_URL",
	"LOG_LEVEL",
	"LOG_FORMAT",
	"OUTPUT_DIR",
	"PER_PAGE",
	"REQUEST_TIMEOUT",
	"ACCEPTED_ERRORS_FILE",
	"DB_URL",
	"HTTP_ADDR",
}

// LoadConfig reads configuration from a .env file in dir (if present) and
// the environment. Environment variables take precedence over the file.
func LoadConfig(dir string) (*Config, error) {
	v := viper.New()

	// Set default values
	v.SetDefault("GITHUB_API_URL", "https://api.github.com/")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
	v.SetDefault("OUTPUT_DIR", ".")
	v.SetDefault("PER_PAGE", maxPerPage)
	v.SetDefault("REQUEST_TIMEOUT", "60s")
	v.SetDefault("HTTP_ADDR", ":8080")

	// Load from .env file if it exists
	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(dir)
	_ = v.ReadInConfig() // Ignore error if file not found

	// Bind environment variables
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, key := range keys {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("bind %s: %w", key, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	// Validate required fields
	if cfg.GithubToken == "" {
		return nil, errors.New("GITHUB_API_TOKEN is a required configuration field")
	}
	if cfg.Organization == "" {
		return nil, errors.New("GITHUB_ORGANIZATION is a required configuration field")
	}
	if cfg.PerPage < 1 || cfg.PerPage > maxPerPage {
		return nil, fmt.Errorf("PER_PAGE must be between 1 and %d, got %d", maxPerPage, cfg.PerPage)
	}
	if cfg.RequestTimeout <= 0 {
		return nil, errors.New("REQUEST_TIMEOUT must be a positive duration (e.g. 60s)")
	}
	switch cfg.LogFormat {
	case "json", "text":
	default:
		return nil, fmt.Errorf("LOG_FORMAT must be json or text, got %q", cfg.LogFormat)
	}
	if !strings.HasSuffix(cfg.GithubAPIURL, "/") {
		cfg.GithubAPIURL += "/"
	}

	return &cfg, nil
}
