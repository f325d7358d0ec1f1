// Package credential acquires OAuth2 access tokens for the mail API using the
// client-credential grant of a service principal.
package credential

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// DefaultScope is the scope requested when Config.Scopes is empty.
const DefaultScope = "https://graph.microsoft.com/.default"

// tokenExpiryBuffer is the time before actual expiry when we consider a token expired.
// This prevents using a token that is about to expire during a request.
const tokenExpiryBuffer = 5 * time.Minute

// Config holds the service principal used to request tokens.
type Config struct {
	TenantID     string
	ClientID     string
	ClientSecret string

	// Scopes defaults to DefaultScope.
	Scopes []string

	// TokenURL overrides the tenant token endpoint.
	TokenURL string

	// HTTPClient is used for token requests. Defaults to http.DefaultClient.
	HTTPClient *http.Client
}

// ClientSecretCredential hands out bearer tokens, caching each one until it is
// within tokenExpiryBuffer of expiring. It is safe for concurrent use.
type ClientSecretCredential struct {
	cfg        *clientcredentials.Config
	httpClient *http.Client

	mu    sync.Mutex
	token *oauth2.Token
}

// New creates a ClientSecretCredential for the given service principal.
func New(cfg Config) *ClientSecretCredential {
	tokenURL := cfg.TokenURL
	if tokenURL == "" {
		tokenURL = fmt.Sprintf(
			"https://login.microsoftonline.com/%s/oauth2/v2.0/token",
			url.PathEscape(cfg.TenantID),
		)
	}

	scopes := cfg.Scopes
	if len(scopes) == 0 {
		scopes = []string{DefaultScope}
	}

	return &ClientSecretCredential{
		cfg: &clientcredentials.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			TokenURL:     tokenURL,
			Scopes:       scopes,
			AuthStyle:    oauth2.AuthStyleInParams,
		},
		httpClient: cfg.HTTPClient,
	}
}

// Token returns a valid access token, requesting a new one if the cached token
// is missing or close to expiry. Concurrent callers wait for a single refresh.
func (c *ClientSecretCredential) Token(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.valid() {
		return c.token.AccessToken, nil
	}

	if c.httpClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
	}

	tok, err := c.cfg.Token(ctx)
	if err != nil {
		c.token = nil
		return "", fmt.Errorf("token request failed: %w", err)
	}

	c.token = tok
	return tok.AccessToken, nil
}

// valid reports whether the cached token can still be used.
// The caller must hold c.mu.
func (c *ClientSecretCredential) valid() bool {
	if c.token == nil || c.token.AccessToken == "" {
		return false
	}
	if c.token.Expiry.IsZero() {
		return true
	}
	return time.Now().Add(tokenExpiryBuffer).Before(c.token.Expiry)
}
