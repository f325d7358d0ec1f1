package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/shineum/contact-relay/internal/config"
	"github.com/shineum/contact-relay/internal/provider"
	"github.com/shineum/contact-relay/internal/provider/graph"
	"github.com/shineum/contact-relay/internal/provider/ses"
	"github.com/shineum/contact-relay/internal/provider/stdout"
)

// selectProvider chooses the email delivery backend based on configuration.
// An explicit PROVIDER takes precedence; otherwise Graph is used if
// configured, then SES, then stdout.
func selectProvider(cfg *config.Config) (provider.Provider, error) {
	switch cfg.Provider {
	case "graph":
		if !cfg.GraphConfigured() {
			return nil, errors.New("graph provider selected but TENANT_ID, CLIENT_ID, CLIENT_SECRET, and EMAIL_USER are required")
		}
		return newGraph(cfg), nil

	case "ses":
		if !cfg.SESConfigured() {
			return nil, errors.New("ses provider selected but SES_REGION and EMAIL_USER are required")
		}
		return newSES(cfg)

	case "stdout":
		slog.Info("using stdout provider")
		return stdout.New(), nil

	case "":
		if cfg.GraphConfigured() {
			return newGraph(cfg), nil
		}
		if cfg.SESConfigured() {
			return newSES(cfg)
		}
		slog.Warn("no provider configured, using stdout provider")
		return stdout.New(), nil

	default:
		return nil, fmt.Errorf("unknown provider %q", cfg.Provider)
	}
}

func newGraph(cfg *config.Config) provider.Provider {
	slog.Info("using Microsoft Graph provider", "sender", cfg.Contact.Sender)
	return graph.New(graph.GraphProviderConfig{
		TenantID:     cfg.Graph.TenantID,
		ClientID:     cfg.Graph.ClientID,
		ClientSecret: cfg.Graph.ClientSecret,
		Sender:       cfg.Contact.Sender,
	})
}

func newSES(cfg *config.Config) (provider.Provider, error) {
	slog.Info("using AWS SES provider",
		"region", cfg.SES.Region,
		"sender", cfg.Contact.Sender,
	)
	p, err := ses.New(context.Background(), ses.SESProviderConfig{
		Region:          cfg.SES.Region,
		AccessKeyID:     cfg.SES.AccessKeyID,
		SecretAccessKey: cfg.SES.SecretAccessKey,
		Sender:          cfg.Contact.Sender,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create SES provider: %w", err)
	}
	return p, nil
}
