package server

import (
	"testing"
	"time"
)

func TestNewConfigDefaults(t *testing.T) {
	cfg := NewConfig()

	if cfg.Port != ":8080" {
		t.Errorf("Port = %q, want :8080", cfg.Port)
	}
	if !cfg.IsDevelopment() {
		t.Error("default config is not development")
	}
	if cfg.MaxMessageSize <= 0 {
		t.Error("MaxMessageSize must be positive")
	}
	if cfg.RateLimit.Burst <= 0 || cfg.RateLimit.RefillInterval <= 0 {
		t.Error("rate limit defaults must be positive")
	}
	if cfg.ShutdownTimeout <= 0 {
		t.Error("ShutdownTimeout must be positive")
	}
}

func TestNewConfigFromEnv(t *testing.T) {
	t.Setenv("SERVER_PORT", ":9999")
	t.Setenv("ENV", "production")
	t.Setenv("ALLOWED_ORIGINS", "https://chat.example.com, https://chat2.example.com")
	t.Setenv("MAX_MESSAGE_SIZE", "1024")
	t.Setenv("RATE_LIMIT_BURST", "3")
	t.Setenv("RATE_LIMIT_REFILL_INTERVAL", "2")
	t.Setenv("SHUTDOWN_TIMEOUT", "5")

	cfg := NewConfigFromEnv()

	if cfg.Port != ":9999" {
		t.Errorf("Port = %q, want :9999", cfg.Port)
	}
	if cfg.IsDevelopment() {
		t.Error("ENV=production still reports development")
	}
	if len(cfg.AllowedOrigins) != 2 || cfg.AllowedOrigins[1] != "https://chat2.example.com" {
		t.Errorf("AllowedOrigins = %v", cfg.AllowedOrigins)
	}
	if cfg.MaxMessageSize != 1024 {
		t.Errorf("MaxMessageSize = %d, want 1024", cfg.MaxMessageSize)
	}
	if cfg.RateLimit.Burst != 3 {
		t.Errorf("Burst = %d, want 3", cfg.RateLimit.Burst)
	}
	if cfg.RateLimit.RefillInterval != 2*time.Second {
		t.Errorf("RefillInterval = %v, want 2s", cfg.RateLimit.RefillInterval)
	}
	if cfg.ShutdownTimeout != 5*time.Second {
		t.Errorf("ShutdownTimeout = %v, want 5s", cfg.ShutdownTimeout)
	}
}

func TestNewConfigFromEnvIgnoresInvalidValues(t *testing.T) {
	t.Setenv("MAX_MESSAGE_SIZE", "not-a-number")
	t.Setenv("RATE_LIMIT_BURST", "-5")
	t.Setenv("RATE_LIMIT_REFILL_INTERVAL", "0")

	cfg := NewConfigFromEnv()
	defaults := defaultConfig()

	if cfg.MaxMessageSize != defaults.MaxMessageSize {
		t.Errorf("MaxMessageSize = %d, want default %d", cfg.MaxMessageSize, defaults.MaxMessageSize)
	}
	if cfg.RateLimit.Burst != defaults.RateLimit.Burst {
		t.Errorf("Burst = %d, want default %d", cfg.RateLimit.Burst, defaults.RateLimit.Burst)
	}
	if cfg.RateLimit.RefillInterval != defaults.RateLimit.RefillInterval {
		t.Errorf("RefillInterval = %v, want default %v", cfg.RateLimit.RefillInterval, defaults.RateLimit.RefillInterval)
	}
}

func TestSetConfigSanitizes(t *testing.T) {
	t.Cleanup(func() { SetConfig(nil) })

	SetConfig(&Config{Port: "", MaxMessageSize: -1})

	cfg := currentConfig()
	if cfg.Port != ":8080" {
		t.Errorf("sanitized Port = %q, want :8080", cfg.Port)
	}
	if cfg.MaxMessageSize <= 0 {
		t.Error("sanitized MaxMessageSize is not positive")
	}
}

func TestSetConfigNilResetsToDefaults(t *testing.T) {
	SetConfig(&Config{Port: ":1234"})
	SetConfig(nil)

	if cfg := currentConfig(); cfg.Port != ":8080" {
		t.Errorf("Port after reset = %q, want :8080", cfg.Port)
	}
}
