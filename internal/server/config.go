package server

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the server configuration.
type Config struct {
	Addr            string        `yaml:"addr"`
	AllowedOrigins  []string      `yaml:"allowed_origins"`
	MaxMessageSize  int64         `yaml:"max_message_size"`
	SendBufferSize  int           `yaml:"send_buffer_size"`
	WriteWait       time.Duration `yaml:"write_wait"`
	PongWait        time.Duration `yaml:"pong_wait"`
	PingPeriod      time.Duration `yaml:"ping_period"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	EnableMetrics   bool          `yaml:"enable_metrics"`
	EnableTestPage  bool          `yaml:"enable_test_page"`
	LogLevel        string        `yaml:"log_level"`
	LogFormat       string        `yaml:"log_format"`
}

const (
	defaultAddr            = "127.0.0.1:3012"
	defaultMaxMessageSize  = 4096
	defaultSendBufferSize  = 256
	defaultWriteWait       = 10 * time.Second
	defaultPongWait        = 60 * time.Second
	defaultShutdownTimeout = 10 * time.Second
)

// DefaultConfig returns a Config populated with default values for all settings.
func DefaultConfig() Config {
	return Config{
		Addr: defaultAddr,
		AllowedOrigins: []string{
			"http://localhost:3012",
			"http://127.0.0.1:3012",
		},
		MaxMessageSize:  defaultMaxMessageSize,
		SendBufferSize:  defaultSendBufferSize,
		WriteWait:       defaultWriteWait,
		PongWait:        defaultPongWait,
		PingPeriod:      (defaultPongWait * 9) / 10,
		ShutdownTimeout: defaultShutdownTimeout,
		EnableMetrics:   true,
		EnableTestPage:  true,
		LogLevel:        "info",
		LogFormat:       "text",
	}
}

// LoadConfigFile overlays the YAML file at path onto cfg. Keys that do not
// correspond to a Config field are rejected.
func LoadConfigFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path) //nolint:gosec // path from operator-supplied flag
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	return ParseConfig(data, cfg)
}

// ParseConfig overlays YAML data onto cfg.
func ParseConfig(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("parse config: %w", err)
	}
	return nil
}

// ApplyEnv overlays RELAY_* environment variables onto cfg. Unparseable
// values are ignored.
func ApplyEnv(cfg *Config) {
	if addr := os.Getenv("RELAY_ADDR"); addr != "" {
		cfg.Addr = addr
	}

	if origins := os.Getenv("RELAY_ALLOWED_ORIGINS"); origins != "" {
		cfg.AllowedOrigins = parseOrigins(origins)
	}

	if maxSize := os.Getenv("RELAY_MAX_MESSAGE_SIZE"); maxSize != "" {
		cfg.MaxMessageSize = parseMaxMessageSize(maxSize, cfg.MaxMessageSize)
	}

	if buffer := os.Getenv("RELAY_SEND_BUFFER"); buffer != "" {
		cfg.SendBufferSize = parseIntValue(buffer, cfg.SendBufferSize)
	}

	if level := os.Getenv("RELAY_LOG_LEVEL"); level != "" {
		cfg.LogLevel = level
	}

	if format := os.Getenv("RELAY_LOG_FORMAT"); format != "" {
		cfg.LogFormat = format
	}
}

// Sanitize replaces zero or negative values with defaults and normalizes
// the origin list.
func (c *Config) Sanitize() {
	if strings.TrimSpace(c.Addr) == "" {
		c.Addr = defaultAddr
	}
	if c.MaxMessageSize <= 0 {
		c.MaxMessageSize = defaultMaxMessageSize
	}
	if c.SendBufferSize <= 0 {
		c.SendBufferSize = defaultSendBufferSize
	}
	if c.WriteWait <= 0 {
		c.WriteWait = defaultWriteWait
	}
	if c.PongWait <= 0 {
		c.PongWait = defaultPongWait
	}
	if c.PingPeriod <= 0 {
		c.PingPeriod = (c.PongWait * 9) / 10
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = defaultShutdownTimeout
	}

	origins := make([]string, 0, len(c.AllowedOrigins))
	for _, origin := range c.AllowedOrigins {
		if trimmed := strings.TrimSpace(origin); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	c.AllowedOrigins = origins
}

// Validate reports settings that cannot work together.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Addr) == "" {
		return errors.New("config: addr must not be empty")
	}
	if c.PingPeriod >= c.PongWait {
		return fmt.Errorf("config: ping_period (%s) must be shorter than pong_wait (%s)", c.PingPeriod, c.PongWait)
	}
	return nil
}

func parseOrigins(origins string) []string {
	parts := strings.Split(origins, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

func parseMaxMessageSize(value string, defaultValue int64) int64 {
	if size, err := strconv.ParseInt(value, 10, 64); err == nil && size > 0 {
		return size
	}
	return defaultValue
}

func parseIntValue(value string, defaultValue int) int {
	if parsed, err := strconv.Atoi(value); err == nil && parsed > 0 {
		return parsed
	}
	return defaultValue
}
