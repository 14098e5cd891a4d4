// Package config holds process-level configuration for udpxcat: the
// keep-alive and timeout durations applied to every session it opens
// or accepts, plus logging. It follows the generic YAML loader pattern
// this corpus uses for its own client/server configuration.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Default session timers, matching the values a UDPX session has when
// no application code overrides them (keep-alive and timeout both
// disabled).
const (
	DefaultKeepAlive = 0 * time.Second
	DefaultTimeout   = 0 * time.Second
)

// Connection holds the per-session timer overrides udpxcat applies to
// every Conn it opens or accepts.
type Connection struct {
	KeepAlive time.Duration `yaml:"keep_alive"`
	Timeout   time.Duration `yaml:"timeout"`
	LogLevel  string        `yaml:"log_level"`
}

// Default returns a Connection populated with udpxcat's built-in
// defaults.
func Default() Connection {
	return Connection{
		KeepAlive: DefaultKeepAlive,
		Timeout:   DefaultTimeout,
		LogLevel:  "info",
	}
}

// Load reads a YAML configuration file and unmarshals it, starting
// from Default() so a partial file only overrides the fields it sets.
func Load(path string) (Connection, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return Connection{}, fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Connection{}, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}
