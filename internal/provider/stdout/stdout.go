// Package stdout implements a Provider that prints emails to standard output.
package stdout

import (
	"context"
	"fmt"
	"html"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"

	"github.com/shineum/contact-relay/internal/email"
)

// Provider prints email messages to stdout in a human-readable format.
type Provider struct {
	mu sync.Mutex
	// writer is the output destination, defaulting to os.Stdout.
	writer io.Writer
	policy *bluemonday.Policy
}

// New creates a new stdout Provider that writes to os.Stdout.
func New() *Provider {
	return NewWithWriter(os.Stdout)
}

// NewWithWriter creates a new stdout Provider that writes to the given writer.
// This is useful for testing.
func NewWithWriter(w io.Writer) *Provider {
	return &Provider{
		writer: w,
		policy: bluemonday.StrictPolicy(),
	}
}

// Send prints the email message in a readable format. When the message has
// no text body, the HTML body is printed with all markup removed.
func (p *Provider) Send(_ context.Context, msg *email.Email) error {
	var b strings.Builder

	b.WriteString("========================================\n")
	b.WriteString(fmt.Sprintf("From: %s\n", msg.From))
	b.WriteString(fmt.Sprintf("To: %s\n", strings.Join(msg.To, ", ")))

	if msg.ReplyTo != "" {
		b.WriteString(fmt.Sprintf("Reply-To: %s\n", msg.ReplyTo))
	}

	b.WriteString(fmt.Sprintf("Subject: %s\n", msg.Subject))
	b.WriteString("Body:\n")

	body := msg.TextBody
	if body == "" {
		body = p.plainText(msg.HtmlBody)
	}
	b.WriteString(body + "\n")

	b.WriteString("========================================\n")

	p.mu.Lock()
	defer p.mu.Unlock()

	if _, err := fmt.Fprint(p.writer, b.String()); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}
	return nil
}

// Name returns the provider name.
func (p *Provider) Name() string {
	return "stdout"
}

// plainText strips markup from an HTML body for console display.
func (p *Provider) plainText(htmlBody string) string {
	withBreaks := strings.NewReplacer("<br>", "\n", "<br/>", "\n", "</p>", "</p>\n", "</h3>", "</h3>\n").Replace(htmlBody)
	stripped := html.UnescapeString(p.policy.Sanitize(withBreaks))

	lines := strings.Split(stripped, "\n")
	kept := lines[:0]
	for _, line := range lines {
		if line = strings.TrimSpace(line); line != "" {
			kept = append(kept, line)
		}
	}
	return strings.Join(kept, "\n")
}
