// Package config loads the monitor's YAML configuration.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	API  APIConfig  `yaml:"api"`
	Live LiveConfig `yaml:"live"`
	Scan ScanConfig `yaml:"scan"`
}

type APIConfig struct {
	BaseURL string `yaml:"base_url"`
	PushURL string `yaml:"push_url"`
	Token   string `yaml:"token"`
}

type LiveConfig struct {
	// DurationSeconds bounds a diagnostic live session.
	DurationSeconds int `yaml:"duration_seconds"`
}

type ScanConfig struct {
	// DefaultDurationSeconds preselects the scan capture length.
	DefaultDurationSeconds int `yaml:"default_duration_seconds"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		API: APIConfig{
			BaseURL: "http://127.0.0.1:8420",
			PushURL: "ws://127.0.0.1:8420/ws",
		},
		Live: LiveConfig{DurationSeconds: 300},
		Scan: ScanConfig{DefaultDurationSeconds: 60},
	}
}

// Load reads path and overlays it on the defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if cfg.Live.DurationSeconds <= 0 {
		cfg.Live.DurationSeconds = 300
	}
	if cfg.Scan.DefaultDurationSeconds <= 0 {
		cfg.Scan.DefaultDurationSeconds = 60
	}
	return cfg, nil
}
