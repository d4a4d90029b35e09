// Package config is the command line tool's settings file.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

type Config struct {
	// IntentFiles are merged in order.
	IntentFiles []string `yaml:"intent_files,omitempty"`
	Language    string   `yaml:"language,omitempty"`
	LogLevel    string   `yaml:"log_level,omitempty"`
	Fuzzy       bool     `yaml:"fuzzy"`
	FuzzyLimit  int      `yaml:"fuzzy_limit,omitempty"`
	Parallelism int      `yaml:"parallelism,omitempty"`
	// Strict fails on templates that do not parse instead of skipping them.
	Strict bool `yaml:"strict"`
}

func Default() Config {
	return Config{LogLevel: "info", FuzzyLimit: 3}
}

func configDir() (string, error) {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, "intentgrammar"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	if home == "" {
		return "", errors.New("home directory not found")
	}
	return filepath.Join(home, ".config", "intentgrammar"), nil
}

func DefaultPath() (string, error) {
	dir, err := configDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// Load reads path. A missing file gives the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return Config{}, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	if _, err := ParseLevel(cfg.LogLevel); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Save replaces the file at path with cfg. The new content is written next
// to it first and renamed over it, so readers see the old or the new file.
func Save(path string, cfg Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	staged := fmt.Sprintf("%s.%d.tmp", path, os.Getpid())
	if err := os.WriteFile(staged, data, 0o600); err != nil {
		_ = os.Remove(staged)
		return fmt.Errorf("write config: %w", err)
	}
	if err := os.Rename(staged, path); err != nil {
		_ = os.Remove(staged)
		return fmt.Errorf("replace config: %w", err)
	}
	return nil
}

func ParseLevel(level string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("unknown log level %q", level)
	}
}
