// Package config loads the JS8Chess configuration file. A default file is
// written on first run so operators have something to edit.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the operator-editable configuration.
type Config struct {
	LocalCallsign  string `yaml:"local_callsign"`
	RemoteCallsign string `yaml:"remote_callsign"`

	JS8Host string `yaml:"js8_host"`
	JS8Port int    `yaml:"js8_port"`

	AckWaitSeconds          int  `yaml:"ack_wait_seconds"`
	MoveResponseWaitSeconds int  `yaml:"move_response_wait_seconds"`
	MaxRetries              int  `yaml:"max_retries"`
	AutoAccept              bool `yaml:"auto_accept"`

	DataDir  string `yaml:"data_dir"`
	LogLevel string `yaml:"log_level"`
}

// DefaultDir is where config, logs, and game records live unless overridden.
func DefaultDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".js8chess"
	}
	return filepath.Join(home, ".js8chess")
}

func Default() *Config {
	return &Config{
		LocalCallsign:           "CALLSIGN",
		RemoteCallsign:          "SWL",
		JS8Host:                 "127.0.0.1",
		JS8Port:                 2442,
		AckWaitSeconds:          60,
		MoveResponseWaitSeconds: 120,
		MaxRetries:              3,
		AutoAccept:              true,
		DataDir:                 DefaultDir(),
		LogLevel:                "info",
	}
}

// Load reads the YAML config at path, creating it with defaults when absent.
// Missing keys keep their default values; callsigns are normalized to
// uppercase.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		if werr := writeDefault(path, cfg); werr != nil {
			return nil, werr
		}
	case err != nil:
		return nil, fmt.Errorf("read config %s: %w", path, err)
	default:
		if uerr := yaml.Unmarshal(data, cfg); uerr != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, uerr)
		}
	}

	cfg.LocalCallsign = strings.ToUpper(strings.TrimSpace(cfg.LocalCallsign))
	cfg.RemoteCallsign = strings.ToUpper(strings.TrimSpace(cfg.RemoteCallsign))
	if strings.TrimSpace(cfg.DataDir) == "" {
		cfg.DataDir = DefaultDir()
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

func writeDefault(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal default config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write default config %s: %w", path, err)
	}
	return nil
}

func (c *Config) validate() error {
	if c.LocalCallsign == "" {
		return errors.New("local_callsign is required")
	}
	if c.RemoteCallsign == "" {
		return errors.New("remote_callsign is required")
	}
	if c.LocalCallsign == c.RemoteCallsign {
		return errors.New("local_callsign and remote_callsign must differ")
	}
	if c.JS8Port <= 0 || c.JS8Port > 65535 {
		return fmt.Errorf("js8_port %d out of range", c.JS8Port)
	}
	if c.AckWaitSeconds <= 0 {
		return errors.New("ack_wait_seconds must be positive")
	}
	if c.MoveResponseWaitSeconds <= 0 {
		return errors.New("move_response_wait_seconds must be positive")
	}
	if c.MaxRetries < 0 {
		return errors.New("max_retries must not be negative")
	}
	return nil
}

func (c *Config) AckWait() time.Duration {
	return time.Duration(c.AckWaitSeconds) * time.Second
}

func (c *Config) MoveResponseWait() time.Duration {
	return time.Duration(c.MoveResponseWaitSeconds) * time.Second
}
