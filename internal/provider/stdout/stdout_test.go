package stdout

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/shineum/contact-relay/internal/email"
)

func TestSend_BasicEmail(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	p := NewWithWriter(&buf)

	msg := &email.Email{
		From:     "sender@example.com",
		To:       []string{"alice@example.com", "bob@example.com"},
		Subject:  "Monthly Report",
		TextBody: "Please find the report below.",
	}

	if err := p.Send(context.Background(), msg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	output := buf.String()

	if !strings.Contains(output, "From: sender@example.com") {
		t.Error("output missing From header")
	}
	if !strings.Contains(output, "To: alice@example.com, bob@example.com") {
		t.Error("output missing To header")
	}
	if !strings.Contains(output, "Subject: Monthly Report") {
		t.Error("output missing Subject header")
	}
	if !strings.Contains(output, "Please find the report below.") {
		t.Error("output missing body text")
	}
	if strings.Contains(output, "Reply-To:") {
		t.Error("output should not contain Reply-To line when unset")
	}
	if !strings.HasPrefix(output, "========================================\n") {
		t.Error("output should start with separator line")
	}
	if !strings.HasSuffix(output, "========================================\n") {
		t.Error("output should end with separator line")
	}
}

func TestSend_WithReplyTo(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	p := NewWithWriter(&buf)

	msg := &email.Email{
		From:     "sender@example.com",
		To:       []string{"ops@example.com"},
		ReplyTo:  "a@b.com",
		Subject:  "Contact Form: Hi",
		TextBody: "Hello",
	}

	if err := p.Send(context.Background(), msg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(buf.String(), "Reply-To: a@b.com") {
		t.Error("output missing Reply-To header")
	}
}

func TestSend_HTMLBodyFallback(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	p := NewWithWriter(&buf)

	msg := &email.Email{
		From:     "sender@example.com",
		To:       []string{"ops@example.com"},
		Subject:  "HTML only",
		HtmlBody: "<h3>New Contact Submission</h3>\n<p><strong>Message:</strong><br>Tom &amp; Jerry</p>",
	}

	if err := p.Send(context.Background(), msg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	output := buf.String()
	if strings.Contains(output, "<strong>") || strings.Contains(output, "<h3>") {
		t.Errorf("output should not contain markup:\n%s", output)
	}
	if !strings.Contains(output, "New Contact Submission") {
		t.Error("output missing heading text")
	}
	if !strings.Contains(output, "Tom & Jerry") {
		t.Errorf("output should unescape entities:\n%s", output)
	}
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("closed") }

func TestSend_WriteError(t *testing.T) {
	t.Parallel()

	p := NewWithWriter(failingWriter{})
	if err := p.Send(context.Background(), &email.Email{Subject: "s", TextBody: "b"}); err == nil {
		t.Error("expected error from failing writer, got nil")
	}
}

func TestName(t *testing.T) {
	t.Parallel()

	p := New()
	if p.Name() != "stdout" {
		t.Errorf("Name(): got %q, want %q", p.Name(), "stdout")
	}
}
