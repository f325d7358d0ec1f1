// Package main verifies SMTP login credentials without sending mail.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/shineum/contact-relay/internal/config"
	"github.com/shineum/contact-relay/internal/smtpcheck"
)

const checkTimeout = time.Minute

func main() {
	configPath := flag.String("config", "", "path to YAML configuration file (optional)")
	envFile := flag.String("env-file", ".env", "path to a .env file loaded before the environment is read")
	flag.Parse()

	os.Exit(run(os.Stdout, *configPath, *envFile))
}

// run performs the check and writes the outcome to out. It returns the
// process exit code.
func run(out io.Writer, configPath, envFile string) int {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn})))

	if err := config.LoadDotEnv(envFile); err != nil {
		fmt.Fprintf(out, "Login failed: %v\n", err)
		return 1
	}

	var (
		cfg *config.Config
		err error
	)
	if configPath != "" {
		cfg, err = config.LoadFromFile(configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		fmt.Fprintf(out, "Login failed: %v\n", err)
		return 1
	}
	if err := cfg.ValidateSMTPCheck(); err != nil {
		fmt.Fprintf(out, "Login failed: %v\n", err)
		return 1
	}

	ctx, cancel := context.WithTimeout(context.Background(), checkTimeout)
	defer cancel()

	err = smtpcheck.Verify(ctx, smtpcheck.Config{
		Host:               cfg.SMTPCheck.Host,
		Port:               cfg.SMTPCheck.Port,
		Username:           cfg.SMTPCheck.Username,
		Password:           cfg.SMTPCheck.Password,
		InsecureSkipVerify: cfg.SMTPCheck.InsecureSkipVerify,
	})
	if err != nil {
		fmt.Fprintf(out, "Login failed: %s\n", smtpcheck.Reason(err))
		return 1
	}

	fmt.Fprintln(out, "Login successful!")
	return 0
}
