package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_ValidConfig(t *testing.T) {
	// Create a temporary config file
	content := `
api:
  host: "0.0.0.0"
  port: 8080
storage:
  driver: "sqlite"
  sqlite:
    path: "/tmp/test.db"
    wal_mode: true
    busy_timeout: 5
mqtt:
  enabled: true
  broker:
    host: "localhost"
    port: 1883
    client_id: "test-client"
  qos: 1
`
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.API.Host != "0.0.0.0" {
		t.Errorf("API.Host = %q, want %q", cfg.API.Host, "0.0.0.0")
	}

	if cfg.Storage.SQLite.Path != "/tmp/test.db" {
		t.Errorf("Storage.SQLite.Path = %q, want %q", cfg.Storage.SQLite.Path, "/tmp/test.db")
	}

	if cfg.MQTT.Broker.Host != "localhost" {
		t.Errorf("MQTT.Broker.Host = %q, want %q", cfg.MQTT.Broker.Host, "localhost")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	if err == nil {
		t.Error("Load() expected error for missing file, got nil")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte("invalid: [yaml: content"), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	_, err := Load(configPath)
	if err == nil {
		t.Error("Load() expected error for invalid YAML, got nil")
	}
}

func TestLoad_ValidationFailure(t *testing.T) {
	content := `
api:
  port: 8080
storage:
  driver: "postgres"
`
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	_, err := Load(configPath)
	if err == nil {
		t.Error("Load() expected validation error for unknown storage driver, got nil")
	}
}

func TestConfig_Validate(t *testing.T) {
	// valid returns a minimal passing config; tests mutate one field each.
	valid := func() *Config {
		cfg := Default()
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{
			name:    "valid defaults",
			mutate:  func(*Config) {},
			wantErr: false,
		},
		{
			name:    "memory driver",
			mutate:  func(c *Config) { c.Storage.Driver = "memory"; c.Storage.SQLite.Path = "" },
			wantErr: false,
		},
		{
			name:    "unknown storage driver",
			mutate:  func(c *Config) { c.Storage.Driver = "postgres" },
			wantErr: true,
		},
		{
			name:    "missing sqlite path",
			mutate:  func(c *Config) { c.Storage.SQLite.Path = "" },
			wantErr: true,
		},
		{
			name:    "invalid port low",
			mutate:  func(c *Config) { c.API.Port = 0 },
			wantErr: true,
		},
		{
			name:    "invalid port high",
			mutate:  func(c *Config) { c.API.Port = 70000 },
			wantErr: true,
		},
		{
			name:    "invalid QoS when MQTT enabled",
			mutate:  func(c *Config) { c.MQTT.Enabled = true; c.MQTT.QoS = 3 },
			wantErr: true,
		},
		{
			name:    "invalid QoS ignored when MQTT disabled",
			mutate:  func(c *Config) { c.MQTT.QoS = 3 },
			wantErr: false,
		},
		{
			name:    "TLS enabled without cert",
			mutate:  func(c *Config) { c.API.TLS.Enabled = true },
			wantErr: true,
		},
		{
			name:    "metrics enabled without URL",
			mutate:  func(c *Config) { c.Metrics.Enabled = true },
			wantErr: true,
		},
		{
			name:    "seed enabled with zero count",
			mutate:  func(c *Config) { c.Seed.Enabled = true; c.Seed.Count = 0 },
			wantErr: true,
		},
		{
			name:    "zero ping interval",
			mutate:  func(c *Config) { c.WebSocket.PingInterval = 0 },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestConfig_GetTimeouts(t *testing.T) {
	cfg := &Config{
		API: APIConfig{
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 45,
				Idle:  60,
			},
		},
	}

	if got := cfg.GetReadTimeout().Seconds(); got != 30 {
		t.Errorf("GetReadTimeout() = %v, want 30", got)
	}

	if got := cfg.GetWriteTimeout().Seconds(); got != 45 {
		t.Errorf("GetWriteTimeout() = %v, want 45", got)
	}

	if got := cfg.GetIdleTimeout().Seconds(); got != 60 {
		t.Errorf("GetIdleTimeout() = %v, want 60", got)
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	cfg := Default()

	// Set environment variables
	t.Setenv("USERDIR_API_HOST", "192.168.1.1")
	t.Setenv("USERDIR_API_PORT", "9090")
	t.Setenv("USERDIR_STORAGE_DRIVER", "memory")
	t.Setenv("USERDIR_STORAGE_PATH", "/custom/path.db")
	t.Setenv("USERDIR_MQTT_HOST", "mqtt.example.com")
	t.Setenv("USERDIR_MQTT_USERNAME", "testuser")
	t.Setenv("USERDIR_MQTT_PASSWORD", "testpass")
	t.Setenv("USERDIR_METRICS_TOKEN", "secret-token")

	applyEnvOverrides(cfg)

	if cfg.API.Host != "192.168.1.1" {
		t.Errorf("API.Host = %q, want %q", cfg.API.Host, "192.168.1.1")
	}

	if cfg.API.Port != 9090 {
		t.Errorf("API.Port = %d, want 9090", cfg.API.Port)
	}

	if cfg.Storage.Driver != "memory" {
		t.Errorf("Storage.Driver = %q, want %q", cfg.Storage.Driver, "memory")
	}

	if cfg.Storage.SQLite.Path != "/custom/path.db" {
		t.Errorf("Storage.SQLite.Path = %q, want %q", cfg.Storage.SQLite.Path, "/custom/path.db")
	}

	if cfg.MQTT.Broker.Host != "mqtt.example.com" {
		t.Errorf("MQTT.Broker.Host = %q, want %q", cfg.MQTT.Broker.Host, "mqtt.example.com")
	}

	if cfg.MQTT.Auth.Username != "testuser" {
		t.Errorf("MQTT.Auth.Username = %q, want %q", cfg.MQTT.Auth.Username, "testuser")
	}

	if cfg.MQTT.Auth.Password != "testpass" {
		t.Errorf("MQTT.Auth.Password = %q, want %q", cfg.MQTT.Auth.Password, "testpass")
	}

	if cfg.Metrics.Token != "secret-token" {
		t.Errorf("Metrics.Token = %q, want %q", cfg.Metrics.Token, "secret-token")
	}
}

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Storage.Driver != "sqlite" {
		t.Errorf("Default Storage.Driver = %q, want %q", cfg.Storage.Driver, "sqlite")
	}

	if cfg.Storage.SQLite.Path == "" {
		t.Error("Default should have non-empty Storage.SQLite.Path")
	}

	if cfg.MQTT.Broker.Port != 1883 {
		t.Errorf("Default MQTT.Broker.Port = %d, want 1883", cfg.MQTT.Broker.Port)
	}

	if cfg.API.Port != 8080 {
		t.Errorf("Default API.Port = %d, want 8080", cfg.API.Port)
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("Default config should validate, got %v", err)
	}
}
