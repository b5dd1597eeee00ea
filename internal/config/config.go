package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const (
	LogFormatJSON = "json"
	LogFormatText = "text"
)

type Config struct {
	Token        string  `env:"TOKEN,required,notEmpty"`
	AllowedUsers []int64 `env:"ALLOWED_USERS"`

	OpenAIAPIKey      string  `env:"OPENAI_API_KEY,required,notEmpty"`
	OpenAIBaseURL     string  `env:"OPENAI_BASE_URL"`
	OpenAIModel       string  `env:"OPENAI_MODEL"       envDefault:"gpt-4-turbo-preview"`
	OpenAITemperature float64 `env:"OPENAI_TEMPERATURE" envDefault:"0.5"`
	OpenAIMaxTokens   int64   `env:"OPENAI_MAX_TOKENS"  envDefault:"1500"`
	OpenAIMaxRetries  int     `env:"OPENAI_MAX_RETRIES" envDefault:"2"`

	DataDir     string        `env:"DATA_DIR"      envDefault:"data"`
	MaxFileSize int64         `env:"MAX_FILE_SIZE" envDefault:"1048576"`
	SessionTTL  time.Duration `env:"SESSION_TTL"   envDefault:"1h"`

	MetricsAddr string `env:"METRICS_ADDR"`
	LogFormat   string `env:"LOG_FORMAT" envDefault:"json"`
	LogLevel    string `env:"LOG_LEVEL"  envDefault:"info"`
}

// Load reads an optional .env file from the working directory and then parses
// the environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env file: %w", err)
	}

	return Parse()
}

// Parse reads the configuration from the environment only.
func Parse() (Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	if err = cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func (c Config) Validate() error {
	var errs []error

	if c.OpenAIMaxTokens <= 0 {
		errs = append(errs, fmt.Errorf("OPENAI_MAX_TOKENS must be positive, got %d", c.OpenAIMaxTokens))
	}
	if c.OpenAIMaxRetries < 0 {
		errs = append(errs, fmt.Errorf("OPENAI_MAX_RETRIES must not be negative, got %d", c.OpenAIMaxRetries))
	}
	if c.OpenAITemperature < 0 || c.OpenAITemperature > 2 {
		errs = append(errs, fmt.Errorf("OPENAI_TEMPERATURE must be within [0, 2], got %v", c.OpenAITemperature))
	}
	if err := validateDataDir(c.DataDir); err != nil {
		errs = append(errs, err)
	}
	if c.MaxFileSize <= 0 {
		errs = append(errs, fmt.Errorf("MAX_FILE_SIZE must be positive, got %d", c.MaxFileSize))
	}
	if c.SessionTTL <= 0 {
		errs = append(errs, fmt.Errorf("SESSION_TTL must be positive, got %s", c.SessionTTL))
	}
	if c.LogFormat != LogFormatJSON && c.LogFormat != LogFormatText {
		errs = append(errs, fmt.Errorf("LOG_FORMAT must be %q or %q, got %q", LogFormatJSON, LogFormatText, c.LogFormat))
	}
	if _, err := c.SlogLevel(); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

func (c Config) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo, fmt.Errorf("LOG_LEVEL is invalid: %w", err)
	}
	return level, nil
}

// validateDataDir rejects directories whose contents are not ours to delete:
// the filesystem root, the working directory and its ancestors, and the home
// directory.
func validateDataDir(dir string) error {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return errors.New("DATA_DIR must not be empty")
	}

	abs, err := filepath.Abs(dir)
	if err != nil {
		return fmt.Errorf("DATA_DIR is invalid: %w", err)
	}
	if filepath.Dir(abs) == abs {
		return fmt.Errorf("DATA_DIR must not be the filesystem root, got %q", dir)
	}

	if cwd, err := os.Getwd(); err == nil && within(cwd, abs) {
		return fmt.Errorf("DATA_DIR must not contain the working directory, got %q", dir)
	}
	if home, err := os.UserHomeDir(); err == nil && within(home, abs) {
		return fmt.Errorf("DATA_DIR must not contain the home directory, got %q", dir)
	}

	return nil
}

// within reports whether path equals dir or lies below it.
func within(path, dir string) bool {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
