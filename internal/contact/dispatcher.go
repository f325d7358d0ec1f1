package contact

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/shineum/contact-relay/internal/email"
	"github.com/shineum/contact-relay/internal/metrics"
	"github.com/shineum/contact-relay/internal/provider"
)

// DefaultSubjectPrefix is prepended to every submitted subject.
const DefaultSubjectPrefix = "Contact Form: "

// Routing is the fixed addressing applied to every submission.
type Routing struct {
	// From is the mailbox the service principal sends as.
	From string
	// To is the operational recipient list. Submitters never choose it.
	To []string
	// SubjectPrefix defaults to DefaultSubjectPrefix when empty.
	SubjectPrefix string
}

// Dispatcher builds the outbound message for a submission and hands it to a
// provider. It holds no per-request state and is safe for concurrent use.
type Dispatcher struct {
	provider     provider.Provider
	routing      Routing
	newReference func() string
}

// NewDispatcher creates a Dispatcher that sends through p.
func NewDispatcher(p provider.Provider, routing Routing) *Dispatcher {
	if routing.SubjectPrefix == "" {
		routing.SubjectPrefix = DefaultSubjectPrefix
	}
	return &Dispatcher{
		provider:     p,
		routing:      routing,
		newReference: func() string { return uuid.NewString() },
	}
}

// BuildMessage derives the outbound message for a validated submission.
func (d *Dispatcher) BuildMessage(sub Submission, reference string) (*email.Email, error) {
	if err := sub.Validate(); err != nil {
		return nil, err
	}
	sub = sub.normalized()

	htmlOut, textOut, err := renderBodies(sub, reference)
	if err != nil {
		return nil, err
	}

	to := make([]string, len(d.routing.To))
	copy(to, d.routing.To)

	return &email.Email{
		From:     d.routing.From,
		To:       to,
		ReplyTo:  sub.Email,
		Subject:  d.routing.SubjectPrefix + sub.Subject,
		HtmlBody: htmlOut,
		TextBody: textOut,
	}, nil
}

// Dispatch validates sub, sends it once through the provider and returns the
// reference stamped on the message. Invalid submissions return a
// *ValidationError without contacting the provider.
func (d *Dispatcher) Dispatch(ctx context.Context, sub Submission) (string, error) {
	reference := d.newReference()

	msg, err := d.BuildMessage(sub, reference)
	if err != nil {
		return reference, err
	}

	start := time.Now()
	err = d.provider.Send(ctx, msg)
	metrics.RecordMailSend(d.provider.Name(), err, time.Since(start))
	if err != nil {
		return reference, fmt.Errorf("send via %s: %w", d.provider.Name(), err)
	}

	slog.Info("contact message sent",
		"reference", reference,
		"provider", d.provider.Name(),
		"reply_to", msg.ReplyTo,
	)
	return reference, nil
}
