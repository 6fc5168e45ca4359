// Package config provides configuration loading for echologd.
//
// Configuration is merged from hardcoded defaults, an optional YAML file,
// and environment variables, in increasing order of precedence.
package config

import (
	"fmt"
	"time"
)

// Config holds the complete echologd configuration.
type Config struct {
	Server  ServerConfig  `koanf:"server"`
	Logging LoggingConfig `koanf:"logging"`
	Plugin  PluginConfig  `koanf:"plugin"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host            string   `koanf:"host"`
	Port            int      `koanf:"port"`
	ShutdownTimeout Duration `koanf:"shutdown_timeout"`
}

// LoggingConfig holds sink construction settings.
type LoggingConfig struct {
	Level  string   `koanf:"level"`
	Format string   `koanf:"format"`
	Redact []string `koanf:"redact"`
}

// PluginConfig holds the request-logging toggles exposed by echologd.
//
// LogRequestComplete is modeled as a "disable" flag so the zero value keeps
// completion logging on, matching the plugin default.
type PluginConfig struct {
	LogRequestStart        bool              `koanf:"log_request_start"`
	DisableRequestComplete bool              `koanf:"disable_request_complete"`
	LogPayload             bool              `koanf:"log_payload"`
	LogQueryParams         bool              `koanf:"log_query_params"`
	LogPathParams          bool              `koanf:"log_path_params"`
	LogRouteTags           bool              `koanf:"log_route_tags"`
	MergeLogData           bool              `koanf:"merge_log_data"`
	MessageKey             string            `koanf:"message_key"`
	IgnorePaths            []string          `koanf:"ignore_paths"`
	IgnoreTags             []string          `koanf:"ignore_tags"`
	Tags                   map[string]string `koanf:"tags"`
	AllTags                string            `koanf:"all_tags"`
}

// applyDefaults sets default values for missing configuration fields.
func applyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 9090
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = Duration(10 * time.Second)
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}

	if cfg.Plugin.MessageKey == "" {
		cfg.Plugin.MessageKey = "msg"
	}
	if cfg.Plugin.AllTags == "" {
		cfg.Plugin.AllTags = "info"
	}
}

// Validate checks configuration for errors.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server port must be 1-65535, got %d", c.Server.Port)
	}
	if c.Server.ShutdownTimeout.Duration() <= 0 {
		return fmt.Errorf("shutdown timeout must be > 0")
	}
	if c.Logging.Format != "json" && c.Logging.Format != "console" {
		return fmt.Errorf("logging format must be 'json' or 'console', got %q", c.Logging.Format)
	}
	return nil
}
