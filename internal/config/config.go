// Package config loads the command-line defaults: an optional YAML file
// overlaid with environment variables. Passwords are never read from the
// file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds user defaults. Flags given on the command line take
// precedence over everything here.
type Config struct {
	// Server is the BMC host or host:port.
	Server string `yaml:"server"`
	// User is the login name.
	User string `yaml:"user"`
	// Java is the java binary used to start the viewer.
	Java string `yaml:"java"`
	// Extractor is "pattern" or "script".
	Extractor string `yaml:"extractor"`
	// AllowMissingCSRF accepts logins from firmware that issues no CSRF token.
	AllowMissingCSRF bool `yaml:"allow_missing_csrf"`
	// DataRoot overrides where the per-server jar cache lives.
	DataRoot string `yaml:"data_root"`

	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
}

// Default returns the built-in defaults.
func Default() Config {
	return Config{
		Java:      "java",
		Extractor: "pattern",
		LogLevel:  "info",
		LogFormat: "auto",
	}
}

// DefaultPath returns <UserConfigDir>/jviewer-starter/config.yaml.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("locate config directory: %w", err)
	}
	return filepath.Join(dir, "jviewer-starter", "config.yaml"), nil
}

// Load reads path on top of the defaults, then applies environment
// overrides from getenv. A missing file is not an error unless explicit
// is set.
func Load(path string, explicit bool, getenv func(string) string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return Config{}, fmt.Errorf("parse %s: %w", path, err)
			}
		case errors.Is(err, fs.ErrNotExist) && !explicit:
		default:
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	if v := getenv("JVIEWER_SERVER"); v != "" {
		cfg.Server = v
	}
	if v := getenv("JVIEWER_USER"); v != "" {
		cfg.User = v
	}
	if v := getenv("JVIEWER_JAVA"); v != "" {
		cfg.Java = v
	}
	if v := getenv("JVIEWER_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}

	cfg.Extractor = strings.ToLower(cfg.Extractor)
	cfg.LogLevel = strings.ToLower(cfg.LogLevel)
	cfg.LogFormat = strings.ToLower(cfg.LogFormat)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects values the command line cannot act on.
func (c Config) Validate() error {
	switch c.Extractor {
	case "pattern", "script":
	default:
		return fmt.Errorf("invalid extractor %q: must be 'pattern' or 'script'", c.Extractor)
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level %q: must be 'debug', 'info', 'warn', or 'error'", c.LogLevel)
	}
	switch c.LogFormat {
	case "auto", "text", "json":
	default:
		return fmt.Errorf("invalid log format %q: must be 'auto', 'text', or 'json'", c.LogFormat)
	}
	if c.Java == "" {
		return fmt.Errorf("java binary must not be empty")
	}
	return nil
}
