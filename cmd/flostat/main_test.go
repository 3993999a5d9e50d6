package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// TestRun_InvalidConfig verifies run fails with invalid config path.
func TestRun_InvalidConfig(t *testing.T) {
	originalEnv := os.Getenv("FLOSTAT_CONFIG")
	defer os.Setenv("FLOSTAT_CONFIG", originalEnv)

	os.Setenv("FLOSTAT_CONFIG", "/nonexistent/path/config.yaml")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := run(ctx)
	if err == nil {
		t.Fatal("run() should fail with invalid config path")
	}
}

// TestRun_MissingDatabasePath verifies run fails when database path is empty.
func TestRun_MissingDatabasePath(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "test-config.yaml")

	configContent := `
server:
  host: "127.0.0.1"
  port: 8080

database:
  path: ""
  wal_mode: true
  busy_timeout: 5

redis:
  addr: "localhost:6379"

mqtt:
  broker:
    host: "127.0.0.1"
    port: 1883
    client_id: "test-client"
  qos: 1

influxdb:
  enabled: false

fcm:
  enabled: false

logging:
  level: info
  format: text
  output: stdout
`
	if err := os.WriteFile(configPath, []byte(configContent), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	originalEnv := os.Getenv("FLOSTAT_CONFIG")
	defer os.Setenv("FLOSTAT_CONFIG", originalEnv)
	os.Setenv("FLOSTAT_CONFIG", configPath)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := run(ctx)
	if err == nil {
		t.Fatal("run() should fail with empty database path")
	}
}

// TestGetConfigPath_Default verifies default config path.
func TestGetConfigPath_Default(t *testing.T) {
	originalEnv := os.Getenv("FLOSTAT_CONFIG")
	defer os.Setenv("FLOSTAT_CONFIG", originalEnv)

	os.Unsetenv("FLOSTAT_CONFIG")

	path := getConfigPath()
	if path != defaultConfigPath {
		t.Errorf("getConfigPath() = %q, want %q", path, defaultConfigPath)
	}
}

// TestGetConfigPath_EnvOverride verifies environment variable override.
func TestGetConfigPath_EnvOverride(t *testing.T) {
	originalEnv := os.Getenv("FLOSTAT_CONFIG")
	defer os.Setenv("FLOSTAT_CONFIG", originalEnv)

	expected := "/custom/path/config.yaml"
	os.Setenv("FLOSTAT_CONFIG", expected)

	path := getConfigPath()
	if path != expected {
		t.Errorf("getConfigPath() = %q, want %q", path, expected)
	}
}

// TestLevelSink_NilRecorder verifies a nil recorder yields a nil sink.
func TestLevelSink_NilRecorder(t *testing.T) {
	if sink := levelSink(nil); sink != nil {
		t.Errorf("levelSink(nil) = %v, want nil interface", sink)
	}
}
