package config

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"
)

// setupTestHome creates a temporary home directory for testing.
// Returns the home dir path and a cleanup function.
func setupTestHome(t *testing.T) (string, func()) {
	t.Helper()

	tmpHome := t.TempDir()
	originalHome := os.Getenv("HOME")
	os.Setenv("HOME", tmpHome)

	cleanup := func() {
		if originalHome != "" {
			os.Setenv("HOME", originalHome)
		} else {
			os.Unsetenv("HOME")
		}
	}

	return tmpHome, cleanup
}

// writeTestConfig writes a config file into the allowed directory.
func writeTestConfig(t *testing.T, home, content string, perm os.FileMode) string {
	t.Helper()

	configDir := filepath.Join(home, ".config", "echologd")
	if err := os.MkdirAll(configDir, 0700); err != nil {
		t.Fatalf("Failed to create config dir: %v", err)
	}

	configPath := filepath.Join(configDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), perm); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}
	return configPath
}

func TestLoadWithFile_ValidYAML(t *testing.T) {
	home, cleanup := setupTestHome(t)
	defer cleanup()

	configPath := writeTestConfig(t, home, `server:
  host: 127.0.0.1
  port: 8080
  shutdown_timeout: 5s

logging:
  level: debug

plugin:
  log_request_start: true
  message_key: message
  ignore_paths:
    - /health
  tags:
    audit: warn
`, 0600)

	cfg, err := LoadWithFile(configPath)
	if err != nil {
		t.Fatalf("LoadWithFile() error = %v, want nil", err)
	}

	if cfg.Server.Host != "127.0.0.1" {
		t.Errorf("Server.Host = %q, want %q", cfg.Server.Host, "127.0.0.1")
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Server.ShutdownTimeout.Duration() != 5*time.Second {
		t.Errorf("Server.ShutdownTimeout = %v, want 5s", cfg.Server.ShutdownTimeout.Duration())
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want %q", cfg.Logging.Level, "debug")
	}
	if !cfg.Plugin.LogRequestStart {
		t.Error("Plugin.LogRequestStart = false, want true")
	}
	if cfg.Plugin.MessageKey != "message" {
		t.Errorf("Plugin.MessageKey = %q, want %q", cfg.Plugin.MessageKey, "message")
	}
	if len(cfg.Plugin.IgnorePaths) != 1 || cfg.Plugin.IgnorePaths[0] != "/health" {
		t.Errorf("Plugin.IgnorePaths = %v, want [/health]", cfg.Plugin.IgnorePaths)
	}
	if cfg.Plugin.Tags["audit"] != "warn" {
		t.Errorf("Plugin.Tags[audit] = %q, want %q", cfg.Plugin.Tags["audit"], "warn")
	}
}

func TestLoadWithFile_EnvironmentOverride(t *testing.T) {
	home, cleanup := setupTestHome(t)
	defer cleanup()

	configPath := writeTestConfig(t, home, `server:
  port: 8080

logging:
  level: info
`, 0600)

	os.Setenv("ECHOLOGD_SERVER_PORT", "7777")
	os.Setenv("ECHOLOGD_LOGGING_LEVEL", "debug")
	defer os.Unsetenv("ECHOLOGD_SERVER_PORT")
	defer os.Unsetenv("ECHOLOGD_LOGGING_LEVEL")

	cfg, err := LoadWithFile(configPath)
	if err != nil {
		t.Fatalf("LoadWithFile() error = %v, want nil", err)
	}

	if cfg.Server.Port != 7777 {
		t.Errorf("Server.Port = %d, want 7777 (from env override)", cfg.Server.Port)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want %q (from env override)", cfg.Logging.Level, "debug")
	}
}

func TestLoadWithFile_MissingFileUsesDefaults(t *testing.T) {
	_, cleanup := setupTestHome(t)
	defer cleanup()

	// No config file: defaults apply.
	cfg, err := LoadWithFile("")
	if err != nil {
		t.Fatalf("LoadWithFile() error = %v, want nil", err)
	}

	if cfg.Server.Host != "localhost" {
		t.Errorf("Server.Host = %q, want %q", cfg.Server.Host, "localhost")
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("Server.Port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.Plugin.MessageKey != "msg" {
		t.Errorf("Plugin.MessageKey = %q, want %q", cfg.Plugin.MessageKey, "msg")
	}
	if cfg.Plugin.AllTags != "info" {
		t.Errorf("Plugin.AllTags = %q, want %q", cfg.Plugin.AllTags, "info")
	}
}

func TestLoadWithFile_InvalidYAML(t *testing.T) {
	home, cleanup := setupTestHome(t)
	defer cleanup()

	configPath := writeTestConfig(t, home, "server: [not a map", 0600)

	if _, err := LoadWithFile(configPath); err == nil {
		t.Fatal("LoadWithFile() error = nil, want parse error")
	}
}

func TestLoadWithFile_PathOutsideAllowedDirs(t *testing.T) {
	_, cleanup := setupTestHome(t)
	defer cleanup()

	outsidePath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(outsidePath, []byte("server:\n  port: 8080\n"), 0600); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	_, err := LoadWithFile(outsidePath)
	if err == nil {
		t.Fatal("LoadWithFile() error = nil, want path validation error")
	}
	if !strings.Contains(err.Error(), "must be in") {
		t.Errorf("error = %v, want path restriction message", err)
	}
}

func TestLoadWithFile_InsecurePermissions(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("permission checks are skipped on Windows")
	}

	home, cleanup := setupTestHome(t)
	defer cleanup()

	configPath := writeTestConfig(t, home, "server:\n  port: 8080\n", 0644)

	_, err := LoadWithFile(configPath)
	if err == nil {
		t.Fatal("LoadWithFile() error = nil, want permission error")
	}
	if !strings.Contains(err.Error(), "insecure config file permissions") {
		t.Errorf("error = %v, want permission message", err)
	}
}

func TestLoadWithFile_ReadOnlyPermitted(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("permission checks are skipped on Windows")
	}

	home, cleanup := setupTestHome(t)
	defer cleanup()

	configPath := writeTestConfig(t, home, "server:\n  port: 8080\n", 0400)

	if _, err := LoadWithFile(configPath); err != nil {
		t.Fatalf("LoadWithFile() error = %v, want nil for 0400 file", err)
	}
}

func TestLoadWithFile_ValidationFailure(t *testing.T) {
	home, cleanup := setupTestHome(t)
	defer cleanup()

	configPath := writeTestConfig(t, home, "server:\n  port: 70000\n", 0600)

	_, err := LoadWithFile(configPath)
	if err == nil {
		t.Fatal("LoadWithFile() error = nil, want validation error")
	}
	if !strings.Contains(err.Error(), "port") {
		t.Errorf("error = %v, want port validation message", err)
	}
}

func TestEnsureConfigDir(t *testing.T) {
	home, cleanup := setupTestHome(t)
	defer cleanup()

	if err := EnsureConfigDir(); err != nil {
		t.Fatalf("EnsureConfigDir() error = %v", err)
	}

	info, err := os.Stat(filepath.Join(home, ".config", "echologd"))
	if err != nil {
		t.Fatalf("config dir not created: %v", err)
	}
	if !info.IsDir() {
		t.Error("config path is not a directory")
	}
}
