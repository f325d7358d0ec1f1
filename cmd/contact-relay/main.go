// Package main is the entry point for the contact relay HTTP service.
package main

import (
	"context"
	"crypto/tls"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/shineum/contact-relay/internal/config"
	"github.com/shineum/contact-relay/internal/contact"
	"github.com/shineum/contact-relay/internal/httpapi"
	relaytls "github.com/shineum/contact-relay/internal/tls"
)

func main() {
	configPath := flag.String("config", "", "path to YAML configuration file (optional)")
	envFile := flag.String("env-file", ".env", "path to a .env file loaded before the environment is read")
	flag.Parse()

	if err := config.LoadDotEnv(*envFile); err != nil {
		slog.Error("failed to load env file", "error", err)
		os.Exit(1)
	}

	// Load configuration
	cfg, err := loadConfig(*configPath)
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Setup structured logging
	setupLogger(cfg.Logging.Level)

	// Select email delivery provider
	prov, err := selectProvider(cfg)
	if err != nil {
		slog.Error("failed to select provider", "error", err)
		os.Exit(1)
	}

	dispatcher := contact.NewDispatcher(prov, contact.Routing{
		From:          cfg.Contact.Sender,
		To:            []string{cfg.Contact.Recipient},
		SubjectPrefix: cfg.Contact.SubjectPrefix,
	})

	serverCfg := httpapi.ServerConfig{
		ListenAddr:   cfg.ListenAddr(),
		AllowOrigins: cfg.HTTP.AllowOrigins,
		Dispatcher:   dispatcher,
	}
	serverCfg.TLSConfig, err = serverTLS(cfg)
	if err != nil {
		slog.Error("failed to setup TLS", "error", err)
		os.Exit(1)
	}

	server := httpapi.New(serverCfg)

	slog.Info("starting contact-relay",
		"listen", cfg.ListenAddr(),
		"provider", prov.Name(),
		"recipient", cfg.Contact.Recipient,
		"tls_enabled", cfg.TLSEnabled(),
	)

	// Setup graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	// Start the server (blocks until context is cancelled)
	if err := server.ListenAndServe(ctx); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	slog.Info("contact-relay stopped")
}

// loadConfig loads configuration from the specified path (YAML + env override)
// or from environment variables only if no path is given.
func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFromFile(path)
	}
	return config.Load()
}

// serverTLS loads the HTTPS certificate when TLS files are configured. It
// returns nil for plain HTTP.
func serverTLS(cfg *config.Config) (*tls.Config, error) {
	if !cfg.TLSEnabled() {
		return nil, nil
	}
	return relaytls.LoadOrGenerate(cfg.TLS.CertFile, cfg.TLS.KeyFile)
}

// setupLogger configures the global slog logger with JSON output and the
// specified log level.
func setupLogger(level string) {
	var logLevel slog.Level

	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	})
	slog.SetDefault(slog.New(handler))
}
