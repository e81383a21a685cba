package app

import (
	"errors"
	"time"
)

// Config holds everything an App instance needs to run. Zero-valued override
// fields defer to the settings block of the loaded configuration.
type Config struct {
	ConfigPath string // hcl file or directory
	WorkflowID string // optional when exactly one workflow is configured

	LogFormat string
	LogLevel  string

	ListenPort   int
	BackendURL   string
	PollInterval time.Duration
}

func NewConfig(cfg Config) (*Config, error) {
	if cfg.ConfigPath == "" {
		return nil, errors.New("ConfigPath is a required configuration field and cannot be empty")
	}
	return &cfg, nil
}
