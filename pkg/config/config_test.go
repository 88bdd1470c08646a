package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Port != "8089" {
		t.Errorf("Port = %q, want 8089", cfg.Port)
	}
	if cfg.Env != "development" {
		t.Errorf("Env = %q, want development", cfg.Env)
	}
	if cfg.Binance.BaseURL != "https://fapi.binance.com" {
		t.Errorf("Binance.BaseURL = %q", cfg.Binance.BaseURL)
	}
	if cfg.DCA.HourlyNotional != 1000 {
		t.Errorf("DCA.HourlyNotional = %v, want 1000", cfg.DCA.HourlyNotional)
	}
	if cfg.DCA.Workers != 10 {
		t.Errorf("DCA.Workers = %d, want 10", cfg.DCA.Workers)
	}
	if cfg.DCA.SymbolTimeout != 30*time.Second {
		t.Errorf("DCA.SymbolTimeout = %v, want 30s", cfg.DCA.SymbolTimeout)
	}
	if cfg.DCA.MaxHours != 24 {
		t.Errorf("DCA.MaxHours = %d, want 24", cfg.DCA.MaxHours)
	}
	if cfg.RateLimit.Calls != 1200 {
		t.Errorf("RateLimit.Calls = %d, want 1200", cfg.RateLimit.Calls)
	}
	if cfg.RateLimit.Window != time.Minute {
		t.Errorf("RateLimit.Window = %v, want 1m", cfg.RateLimit.Window)
	}
	if cfg.Redis.Enabled {
		t.Error("Redis.Enabled = true, want disabled by default")
	}
	if cfg.Realtime.Enabled {
		t.Error("Realtime.Enabled = true, want disabled by default")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("ENV", "production")
	t.Setenv("DCA_HOURLY_NOTIONAL", "250.5")
	t.Setenv("DCA_WORKERS", "4")
	t.Setenv("DCA_SYMBOL_TIMEOUT", "10s")
	t.Setenv("RATE_LIMIT_CALLS", "600")
	t.Setenv("RATE_LIMIT_WINDOW", "30s")
	t.Setenv("REDIS_ENABLED", "true")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Port != "9000" {
		t.Errorf("Port = %q, want 9000", cfg.Port)
	}
	if cfg.Env != "production" {
		t.Errorf("Env = %q, want production", cfg.Env)
	}
	if cfg.DCA.HourlyNotional != 250.5 {
		t.Errorf("DCA.HourlyNotional = %v, want 250.5", cfg.DCA.HourlyNotional)
	}
	if cfg.DCA.Workers != 4 {
		t.Errorf("DCA.Workers = %d, want 4", cfg.DCA.Workers)
	}
	if cfg.DCA.SymbolTimeout != 10*time.Second {
		t.Errorf("DCA.SymbolTimeout = %v, want 10s", cfg.DCA.SymbolTimeout)
	}
	if cfg.RateLimit.Calls != 600 {
		t.Errorf("RateLimit.Calls = %d, want 600", cfg.RateLimit.Calls)
	}
	if cfg.RateLimit.Window != 30*time.Second {
		t.Errorf("RateLimit.Window = %v, want 30s", cfg.RateLimit.Window)
	}
	if !cfg.Redis.Enabled {
		t.Error("Redis.Enabled = false, want true")
	}
}

func TestLoadValidationFailures(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"bad env", "ENV", "testing"},
		{"zero rate ceiling", "RATE_LIMIT_CALLS", "0"},
		{"negative rate ceiling", "RATE_LIMIT_CALLS", "-5"},
		{"zero window", "RATE_LIMIT_WINDOW", "0s"},
		{"zero notional", "DCA_HOURLY_NOTIONAL", "0"},
		{"zero workers", "DCA_WORKERS", "0"},
		{"max hours too large", "DCA_MAX_HOURS", "25"},
		{"zero max hours", "DCA_MAX_HOURS", "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)

			if _, err := Load(); err == nil {
				t.Errorf("Load() error = nil, want validation failure for %s=%s", tt.key, tt.value)
			}
		})
	}
}

func TestMalformedNumbersFallBackToDefaults(t *testing.T) {
	t.Setenv("DCA_WORKERS", "many")
	t.Setenv("DCA_SYMBOL_TIMEOUT", "soon")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.DCA.Workers != 10 {
		t.Errorf("DCA.Workers = %d, want default 10", cfg.DCA.Workers)
	}
	if cfg.DCA.SymbolTimeout != 30*time.Second {
		t.Errorf("DCA.SymbolTimeout = %v, want default 30s", cfg.DCA.SymbolTimeout)
	}
}
