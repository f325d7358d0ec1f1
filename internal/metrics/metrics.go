// Package metrics holds the prometheus collectors for the relay.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Submission results.
const (
	ResultSent    = "sent"
	ResultInvalid = "invalid"
	ResultFailed  = "failed"
)

var (
	// ContactSubmissions counts contact posts by outcome.
	ContactSubmissions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "contact_submissions_total",
			Help: "Total number of contact form submissions",
		},
		[]string{"result"}, // result: sent, invalid, failed
	)

	// MailSendDuration observes provider send latency.
	MailSendDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mail_send_duration_seconds",
			Help:    "Mail provider send duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12), // 10ms to ~20s
		},
		[]string{"provider", "status"},
	)
)

// IncrementSubmission counts one submission with the given result.
func IncrementSubmission(result string) {
	ContactSubmissions.WithLabelValues(result).Inc()
}

// RecordMailSend observes a provider send attempt.
func RecordMailSend(provider string, err error, duration time.Duration) {
	status := "success"
	if err != nil {
		status = "error"
	}
	MailSendDuration.WithLabelValues(provider, status).Observe(duration.Seconds())
}
