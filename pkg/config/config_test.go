package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should be valid, got: %v", err)
	}
	if cfg.Server.Address != ":8080" {
		t.Errorf("Server.Address = %v, want :8080", cfg.Server.Address)
	}
	if cfg.Signal.Address != ":8081" {
		t.Errorf("Signal.Address = %v, want :8081", cfg.Signal.Address)
	}
	if cfg.Signal.OutboundQueueSize != 64 {
		t.Errorf("Signal.OutboundQueueSize = %v, want 64", cfg.Signal.OutboundQueueSize)
	}
	if cfg.Metering.AutoTicks {
		t.Error("Metering.AutoTicks should default to false")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid defaults", func(c *Config) {}, false},
		{"empty server address", func(c *Config) { c.Server.Address = "" }, true},
		{"zero read timeout", func(c *Config) { c.Server.ReadTimeout = 0 }, true},
		{"empty signal address", func(c *Config) { c.Signal.Address = "" }, true},
		{"zero ping interval", func(c *Config) { c.Signal.PingInterval = 0 }, true},
		{"zero outbound queue", func(c *Config) { c.Signal.OutboundQueueSize = 0 }, true},
		{"auto ticks without interval", func(c *Config) {
			c.Metering.AutoTicks = true
			c.Metering.TickInterval = 0
		}, true},
		{"auto ticks with interval", func(c *Config) {
			c.Metering.AutoTicks = true
			c.Metering.TickInterval = time.Second
		}, false},
		{"prometheus without port", func(c *Config) {
			c.Monitoring.PrometheusEnabled = true
			c.Monitoring.PrometheusPort = 0
		}, true},
		{"tracing without jaeger url", func(c *Config) {
			c.Tracing.Enabled = true
			c.Tracing.JaegerURL = ""
		}, true},
		{"tracing bad sample rate", func(c *Config) {
			c.Tracing.Enabled = true
			c.Tracing.SampleRate = 1.5
		}, true},
		{"empty log level", func(c *Config) { c.Logging.Level = "" }, true},
		{"redis enabled without address", func(c *Config) {
			c.Redis.Enabled = true
			c.Redis.Address = ""
		}, true},
		{"redis enabled without pool", func(c *Config) {
			c.Redis.Enabled = true
			c.Redis.PoolSize = 0
		}, true},
		{"rate limiting zero rps", func(c *Config) {
			c.RateLimiting.Enabled = true
			c.RateLimiting.HTTP.RequestsPerSecond = 0
		}, true},
		{"rate limiting zero ws burst", func(c *Config) {
			c.RateLimiting.Enabled = true
			c.RateLimiting.WebSocket.Burst = 0
		}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoad_MissingFileFallsBackToDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nonexistent.yaml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Signal.Address != ":8081" {
		t.Errorf("Signal.Address = %v, want default :8081", cfg.Signal.Address)
	}
}

func TestLoad_ReadsYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := `
signal:
  address: ":9999"
  outbound_queue_size: 128
metering:
  auto_ticks: true
  tick_interval: 2s
logging:
  level: debug
`
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Signal.Address != ":9999" {
		t.Errorf("Signal.Address = %v, want :9999", cfg.Signal.Address)
	}
	if cfg.Signal.OutboundQueueSize != 128 {
		t.Errorf("Signal.OutboundQueueSize = %v, want 128", cfg.Signal.OutboundQueueSize)
	}
	if !cfg.Metering.AutoTicks || cfg.Metering.TickInterval != 2*time.Second {
		t.Errorf("metering = %+v, want auto ticks every 2s", cfg.Metering)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %v, want debug", cfg.Logging.Level)
	}
	// Untouched sections keep their defaults.
	if cfg.Server.Address != ":8080" {
		t.Errorf("Server.Address = %v, want default :8080", cfg.Server.Address)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("VILOKANAM_SIGNAL_ADDRESS", ":7777")
	t.Setenv("VILOKANAM_LOG_LEVEL", "warn")

	cfg, err := Load(filepath.Join(t.TempDir(), "nonexistent.yaml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Signal.Address != ":7777" {
		t.Errorf("Signal.Address = %v, want :7777", cfg.Signal.Address)
	}
	if cfg.Logging.Level != "warn" {
		t.Errorf("Logging.Level = %v, want warn", cfg.Logging.Level)
	}
}
