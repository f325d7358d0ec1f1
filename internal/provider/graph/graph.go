package graph

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shineum/contact-relay/internal/credential"
	"github.com/shineum/contact-relay/internal/email"
)

// defaultBaseURL is the Microsoft Graph v1.0 endpoint root.
const defaultBaseURL = "https://graph.microsoft.com/v1.0"

// requestTimeout bounds both the token and sendMail requests.
const requestTimeout = 30 * time.Second

// GraphProviderConfig holds the configuration for creating a GraphProvider.
type GraphProviderConfig struct {
	TenantID     string
	ClientID     string
	ClientSecret string

	// Sender is the mailbox used when a message carries no From address.
	Sender string
}

// TokenSource supplies bearer tokens for the Graph API.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// GraphProvider sends emails via the Microsoft Graph "send mail as user"
// operation, authenticated with a service principal.
type GraphProvider struct {
	sender     string
	baseURL    string
	httpClient *http.Client
	token      TokenSource
}

// New creates a new GraphProvider with the given configuration.
func New(cfg GraphProviderConfig) *GraphProvider {
	client := &http.Client{Timeout: requestTimeout}

	return &GraphProvider{
		sender:     cfg.Sender,
		baseURL:    defaultBaseURL,
		httpClient: client,
		token: credential.New(credential.Config{
			TenantID:     cfg.TenantID,
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			HTTPClient:   client,
		}),
	}
}

// newWithOverrides creates a GraphProvider with custom URLs and HTTP client,
// used for testing.
func newWithOverrides(cfg GraphProviderConfig, baseURL, tokenURL string, client *http.Client) *GraphProvider {
	return &GraphProvider{
		sender:     cfg.Sender,
		baseURL:    baseURL,
		httpClient: client,
		token: credential.New(credential.Config{
			TenantID:     cfg.TenantID,
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			TokenURL:     tokenURL,
			HTTPClient:   client,
		}),
	}
}

// Send delivers an email message via the Microsoft Graph API. It makes a
// single attempt; token and API failures are returned to the caller.
func (g *GraphProvider) Send(ctx context.Context, msg *email.Email) error {
	from := msg.From
	if from == "" {
		from = g.sender
	}
	if from == "" {
		return fmt.Errorf("no sender mailbox configured")
	}

	bodyJSON, err := json.Marshal(buildSendMailRequest(from, msg))
	if err != nil {
		return fmt.Errorf("failed to marshal request body: %w", err)
	}

	token, err := g.token.Token(ctx)
	if err != nil {
		return fmt.Errorf("failed to get access token: %w", err)
	}

	endpoint := fmt.Sprintf("%s/users/%s/sendMail", strings.TrimRight(g.baseURL, "/"), url.PathEscape(from))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(bodyJSON))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("Graph API request failed: %w", err)
	}
	defer resp.Body.Close()

	// HTTP 202 Accepted is success for sendMail
	if resp.StatusCode == http.StatusAccepted || resp.StatusCode == http.StatusOK {
		slog.Debug("Graph API accepted message", "sender", from, "recipients", len(msg.To))
		return nil
	}

	body, _ := io.ReadAll(resp.Body)
	return parseAPIError(resp.StatusCode, body)
}

// Name returns the provider name.
func (g *GraphProvider) Name() string {
	return "msgraph"
}

// APIError is a non-success response from the Graph API.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("Graph API error (HTTP %d): %s", e.StatusCode, e.Message)
}

// parseAPIError builds an APIError from a response body, preferring the
// structured Graph error message over the raw body.
func parseAPIError(statusCode int, body []byte) *APIError {
	var graphErrResp graphErrorResponse
	if err := json.Unmarshal(body, &graphErrResp); err == nil && graphErrResp.Error.Message != "" {
		return &APIError{
			StatusCode: statusCode,
			Code:       graphErrResp.Error.Code,
			Message:    graphErrResp.Error.Message,
		}
	}

	msg := strings.TrimSpace(string(body))
	if msg == "" {
		msg = http.StatusText(statusCode)
	}
	return &APIError{StatusCode: statusCode, Message: msg}
}
