// Package provider defines the interface for email delivery backends.
package provider

import (
	"context"

	"github.com/shineum/contact-relay/internal/email"
)

// Provider is the interface that email delivery backends must implement.
// Each provider hands a single message to the target service
// (e.g., Microsoft Graph, AWS SES, stdout).
type Provider interface {
	// Send delivers an email message through this provider.
	// It makes exactly one delivery attempt and returns an error if it fails.
	Send(ctx context.Context, msg *email.Email) error

	// Name returns the human-readable name of this provider.
	Name() string
}
