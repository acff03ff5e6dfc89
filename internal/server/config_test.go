package server

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Addr != "127.0.0.1:3012" {
		t.Errorf("Addr = %q", cfg.Addr)
	}
	if cfg.MaxMessageSize != 4096 || cfg.SendBufferSize != 256 {
		t.Errorf("unexpected sizes: max=%d buffer=%d", cfg.MaxMessageSize, cfg.SendBufferSize)
	}
	if cfg.PingPeriod != 54*time.Second {
		t.Errorf("PingPeriod = %s, want 54s", cfg.PingPeriod)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config is invalid: %v", err)
	}
}

func TestParseConfigOverlaysFields(t *testing.T) {
	cfg := DefaultConfig()
	data := []byte(`
addr: ":9000"
allowed_origins: ["*"]
send_buffer_size: 16
pong_wait: 30s
ping_period: 20s
enable_test_page: false
`)
	if err := ParseConfig(data, &cfg); err != nil {
		t.Fatalf("ParseConfig returned error: %v", err)
	}

	if cfg.Addr != ":9000" {
		t.Errorf("Addr = %q", cfg.Addr)
	}
	if !reflect.DeepEqual(cfg.AllowedOrigins, []string{"*"}) {
		t.Errorf("AllowedOrigins = %v", cfg.AllowedOrigins)
	}
	if cfg.SendBufferSize != 16 || cfg.PongWait != 30*time.Second || cfg.PingPeriod != 20*time.Second {
		t.Errorf("unexpected overlay: %+v", cfg)
	}
	if cfg.EnableTestPage {
		t.Error("EnableTestPage should be false")
	}
	// untouched keys keep their defaults
	if cfg.MaxMessageSize != 4096 || !cfg.EnableMetrics {
		t.Errorf("defaults were lost: %+v", cfg)
	}
}

func TestParseConfigRejectsUnknownKeys(t *testing.T) {
	cfg := DefaultConfig()
	err := ParseConfig([]byte("adress: \":9000\"\n"), &cfg)
	if err == nil {
		t.Fatal("expected an error for an unknown key")
	}
	if !strings.Contains(err.Error(), "adress") {
		t.Errorf("error does not name the key: %v", err)
	}
}

func TestParseConfigEmptyDocument(t *testing.T) {
	cfg := DefaultConfig()
	if err := ParseConfig(nil, &cfg); err != nil {
		t.Fatalf("empty document rejected: %v", err)
	}
	if !reflect.DeepEqual(cfg, DefaultConfig()) {
		t.Error("empty document changed the config")
	}
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "relay.yaml")
	if err := os.WriteFile(path, []byte("log_level: debug\nlog_format: json\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg := DefaultConfig()
	if err := LoadConfigFile(path, &cfg); err != nil {
		t.Fatalf("LoadConfigFile returned error: %v", err)
	}
	if cfg.LogLevel != "debug" || cfg.LogFormat != "json" {
		t.Errorf("unexpected logging settings: %q %q", cfg.LogLevel, cfg.LogFormat)
	}

	if err := LoadConfigFile(filepath.Join(t.TempDir(), "missing.yaml"), &cfg); err == nil {
		t.Error("expected an error for a missing file")
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("RELAY_ADDR", ":7000")
	t.Setenv("RELAY_ALLOWED_ORIGINS", " http://a.example , http://b.example ")
	t.Setenv("RELAY_MAX_MESSAGE_SIZE", "1024")
	t.Setenv("RELAY_SEND_BUFFER", "not-a-number")
	t.Setenv("RELAY_LOG_LEVEL", "warn")
	t.Setenv("RELAY_LOG_FORMAT", "json")

	cfg := DefaultConfig()
	ApplyEnv(&cfg)

	if cfg.Addr != ":7000" {
		t.Errorf("Addr = %q", cfg.Addr)
	}
	if !reflect.DeepEqual(cfg.AllowedOrigins, []string{"http://a.example", "http://b.example"}) {
		t.Errorf("AllowedOrigins = %v", cfg.AllowedOrigins)
	}
	if cfg.MaxMessageSize != 1024 {
		t.Errorf("MaxMessageSize = %d", cfg.MaxMessageSize)
	}
	if cfg.SendBufferSize != 256 {
		t.Errorf("unparseable buffer size should keep the default, got %d", cfg.SendBufferSize)
	}
	if cfg.LogLevel != "warn" || cfg.LogFormat != "json" {
		t.Errorf("unexpected logging settings: %q %q", cfg.LogLevel, cfg.LogFormat)
	}
}

func TestSanitizeRestoresDefaults(t *testing.T) {
	cfg := Config{
		AllowedOrigins: []string{"", "  http://localhost:3012 ", "   "},
		MaxMessageSize: -1,
		PongWait:       10 * time.Second,
	}
	cfg.Sanitize()

	if cfg.Addr != "127.0.0.1:3012" {
		t.Errorf("Addr = %q", cfg.Addr)
	}
	if cfg.MaxMessageSize != 4096 || cfg.SendBufferSize != 256 {
		t.Errorf("sizes not restored: %+v", cfg)
	}
	if cfg.PingPeriod != 9*time.Second {
		t.Errorf("PingPeriod = %s, want 9s", cfg.PingPeriod)
	}
	if !reflect.DeepEqual(cfg.AllowedOrigins, []string{"http://localhost:3012"}) {
		t.Errorf("AllowedOrigins = %v", cfg.AllowedOrigins)
	}
}

func TestValidateRejectsPingSlowerThanPong(t *testing.T) {
	cfg := DefaultConfig()
	cfg.PingPeriod = cfg.PongWait
	if err := cfg.Validate(); err == nil {
		t.Error("expected ping_period >= pong_wait to be rejected")
	}

	cfg = DefaultConfig()
	cfg.Addr = " "
	if err := cfg.Validate(); err == nil {
		t.Error("expected empty addr to be rejected")
	}
}
