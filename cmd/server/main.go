package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/Tyrowin/chanrelay/internal/logging"
	"github.com/Tyrowin/chanrelay/internal/server"
)

func main() {
	defaults := server.DefaultConfig()

	configPath := flag.String("config", "", "YAML configuration file")
	addr := flag.String("addr", defaults.Addr, "HTTP/websocket bind address")
	origins := flag.String("origins", strings.Join(defaults.AllowedOrigins, ","), "Comma-separated allowed websocket origins (* for any)")
	maxMessageSize := flag.Int64("max-message-size", defaults.MaxMessageSize, "Maximum inbound frame size in bytes")
	sendBuffer := flag.Int("send-buffer", defaults.SendBufferSize, "Outbound frames queued per connection")
	metrics := flag.Bool("metrics", defaults.EnableMetrics, "Serve /metrics and log metrics periodically")
	testPage := flag.Bool("test-page", defaults.EnableTestPage, "Serve the /test browser console")
	logLevel := flag.String("log-level", defaults.LogLevel, "Log level: "+logging.LevelNames())
	logFormat := flag.String("log-format", defaults.LogFormat, "Log format: text or json")
	flag.Parse()

	// defaults < config file < environment < flags
	cfg := defaults
	if *configPath != "" {
		if err := server.LoadConfigFile(*configPath, &cfg); err != nil {
			fmt.Fprintf(os.Stderr, "invalid config file: %v\n", err)
			os.Exit(1)
		}
	}
	server.ApplyEnv(&cfg)
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "addr":
			cfg.Addr = *addr
		case "origins":
			cfg.AllowedOrigins = strings.Split(*origins, ",")
		case "max-message-size":
			cfg.MaxMessageSize = *maxMessageSize
		case "send-buffer":
			cfg.SendBufferSize = *sendBuffer
		case "metrics":
			cfg.EnableMetrics = *metrics
		case "test-page":
			cfg.EnableTestPage = *testPage
		case "log-level":
			cfg.LogLevel = *logLevel
		case "log-format":
			cfg.LogFormat = *logFormat
		}
	})
	cfg.Sanitize()

	if err := logging.Setup(logging.Options{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
		Output: os.Stdout,
	}); err != nil {
		fmt.Fprintf(os.Stderr, "invalid logging config: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", "err", err)
		os.Exit(1)
	}

	slog.Info("starting chanrelay", "addr", cfg.Addr, "origins", cfg.AllowedOrigins)
	srv := server.New(cfg, slog.Default())

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			slog.Error("server error", "err", err)
			_ = srv.Shutdown()
			os.Exit(1)
		}
	case sig := <-sigCh:
		slog.Info("shutting down", "signal", sig.String())
	}

	if err := srv.Shutdown(); err != nil {
		slog.Error("shutdown incomplete", "err", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}
