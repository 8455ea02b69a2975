package config

import "testing"

func TestLoadServerDefaults(t *testing.T) {
	cfg, err := LoadServer()
	if err != nil {
		t.Fatalf("LoadServer() error = %v", err)
	}
	if cfg.HTTPAddr != ":8080" {
		t.Fatalf("HTTPAddr = %q, want :8080", cfg.HTTPAddr)
	}
	if cfg.DataDir != "data" {
		t.Fatalf("DataDir = %q, want data", cfg.DataDir)
	}
	if cfg.ReconnectDelaySeconds != 30 {
		t.Fatalf("ReconnectDelaySeconds = %d, want 30", cfg.ReconnectDelaySeconds)
	}
	if cfg.TickIntervalSeconds != 60 {
		t.Fatalf("TickIntervalSeconds = %d, want 60", cfg.TickIntervalSeconds)
	}
	if cfg.LogHTTPBodies {
		t.Fatalf("LogHTTPBodies should default off")
	}
	if cfg.LogBodyMaxBytes != 4096 {
		t.Fatalf("LogBodyMaxBytes = %d, want 4096", cfg.LogBodyMaxBytes)
	}
}

func TestLoadApp(t *testing.T) {
	t.Setenv("HTTP_ADDR", ":7070")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_HTTP_BODIES", "true")

	cfg, err := LoadApp()
	if err != nil {
		t.Fatalf("LoadApp() error = %v", err)
	}
	if cfg.Server.HTTPAddr != ":7070" {
		t.Fatalf("Server.HTTPAddr = %q, want :7070", cfg.Server.HTTPAddr)
	}
	if cfg.Log.Level != "debug" {
		t.Fatalf("Log.Level = %q, want debug", cfg.Log.Level)
	}
	if !cfg.Server.LogHTTPBodies {
		t.Fatalf("Server.LogHTTPBodies should parse true")
	}
}

func TestLoadServerParseTypes(t *testing.T) {
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("DATA_DIR", "/var/lib/hourfarm")
	t.Setenv("RECONNECT_DELAY_SECONDS", "10")
	t.Setenv("WATCHDOG_INTERVAL_SECONDS", "15")

	cfg, err := LoadServer()
	if err != nil {
		t.Fatalf("LoadServer() error = %v", err)
	}
	if cfg.HTTPAddr != ":9090" {
		t.Fatalf("HTTPAddr = %q, want :9090", cfg.HTTPAddr)
	}
	if cfg.DataDir != "/var/lib/hourfarm" {
		t.Fatalf("DataDir = %q, want /var/lib/hourfarm", cfg.DataDir)
	}
	if cfg.ReconnectDelaySeconds != 10 {
		t.Fatalf("ReconnectDelaySeconds = %d, want 10", cfg.ReconnectDelaySeconds)
	}
	if cfg.WatchdogIntervalSeconds != 15 {
		t.Fatalf("WatchdogIntervalSeconds = %d, want 15", cfg.WatchdogIntervalSeconds)
	}
}
