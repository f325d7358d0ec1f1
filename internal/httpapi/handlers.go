package httpapi

import (
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/oauth2"

	"github.com/shineum/contact-relay/internal/contact"
	"github.com/shineum/contact-relay/internal/metrics"
	"github.com/shineum/contact-relay/internal/provider/graph"
)

const (
	msgSent        = "Your message has been sent successfully!"
	msgHealthy     = "API is running"
	msgInvalidBody = "Invalid request body"
	msgSendFailed  = "Failed to send message. Please try again later."
)

// response is the JSON envelope shared by every endpoint.
type response struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

type handler struct {
	dispatcher Dispatcher
}

// contact handles POST /api/contact.
func (h *handler) contact(c *fiber.Ctx) error {
	var sub contact.Submission
	// The body is decoded as JSON whatever its Content-Type, so plain
	// fetch() calls that send text/plain work. An empty body is treated as a
	// submission with no fields.
	if body := c.Body(); len(body) > 0 {
		if err := c.App().Config().JSONDecoder(body, &sub); err != nil {
			metrics.IncrementSubmission(metrics.ResultInvalid)
			return c.Status(fiber.StatusBadRequest).JSON(response{Error: msgInvalidBody})
		}
	}

	if err := sub.Validate(); err != nil {
		metrics.IncrementSubmission(metrics.ResultInvalid)
		return c.Status(fiber.StatusBadRequest).JSON(response{Error: err.Error()})
	}

	reference, err := h.dispatcher.Dispatch(c.UserContext(), sub)
	if err != nil {
		var vErr *contact.ValidationError
		if errors.As(err, &vErr) {
			metrics.IncrementSubmission(metrics.ResultInvalid)
			return c.Status(fiber.StatusBadRequest).JSON(response{Error: vErr.Error()})
		}

		metrics.IncrementSubmission(metrics.ResultFailed)
		slog.Error("failed to send contact message",
			"reference", reference,
			"request_id", c.GetRespHeader(fiber.HeaderXRequestID),
			"error", err,
		)
		return c.Status(fiber.StatusInternalServerError).JSON(response{Error: publicError(err)})
	}

	metrics.IncrementSubmission(metrics.ResultSent)
	return c.JSON(response{Success: true, Message: msgSent})
}

// health handles GET /api/health.
func (h *handler) health(c *fiber.Ctx) error {
	return c.JSON(response{Success: true, Message: msgHealthy})
}

// publicError picks the message returned to the client for a failed send:
// the remote service's own message when one was reported, otherwise the
// error text.
func publicError(err error) string {
	var apiErr *graph.APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}

	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		if retrieveErr.ErrorDescription != "" {
			return retrieveErr.ErrorDescription
		}
		if retrieveErr.ErrorCode != "" {
			return retrieveErr.ErrorCode
		}
	}

	if msg := err.Error(); msg != "" {
		return msg
	}
	return msgSendFailed
}
