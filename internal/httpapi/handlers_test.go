package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/shineum/contact-relay/internal/contact"
	"github.com/shineum/contact-relay/internal/email"
	"github.com/shineum/contact-relay/internal/provider/graph"
)

// fakeDispatcher counts calls and returns a fixed result.
type fakeDispatcher struct {
	mu    sync.Mutex
	calls int
	last  contact.Submission
	err   error
}

func (d *fakeDispatcher) Dispatch(_ context.Context, sub contact.Submission) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls++
	d.last = sub
	return "ref-test", d.err
}

func (d *fakeDispatcher) callCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.calls
}

// capturingProvider records the outbound message built by a real dispatcher.
type capturingProvider struct {
	mu   sync.Mutex
	sent []*email.Email
	err  error
}

func (p *capturingProvider) Send(_ context.Context, msg *email.Email) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sent = append(p.sent, msg)
	return p.err
}

func (p *capturingProvider) Name() string { return "capture" }

func newTestServer(d Dispatcher) *Server {
	return New(ServerConfig{ListenAddr: "127.0.0.1:0", Dispatcher: d})
}

func postContact(t *testing.T, s *Server, body string) (int, response) {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, "/api/contact", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := s.App().Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out response
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp.StatusCode, out
}

func TestHealth(t *testing.T) {
	t.Parallel()

	s := newTestServer(&fakeDispatcher{})

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	resp, err := s.App().Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.JSONEq(t, `{"success":true,"message":"API is running"}`, string(body))
}

func TestContact_Success(t *testing.T) {
	t.Parallel()

	p := &capturingProvider{}
	d := contact.NewDispatcher(p, contact.Routing{
		From: "relay@example.com",
		To:   []string{"ops@example.com"},
	})
	s := newTestServer(d)

	status, out := postContact(t, s, `{"email":"a@b.com","subject":"Hi","message":"Hello"}`)

	require.Equal(t, http.StatusOK, status)
	require.True(t, out.Success)
	require.Equal(t, "Your message has been sent successfully!", out.Message)
	require.Empty(t, out.Error)

	require.Len(t, p.sent, 1)
	msg := p.sent[0]
	require.Equal(t, "Contact Form: Hi", msg.Subject)
	require.Equal(t, "a@b.com", msg.ReplyTo)
	require.Equal(t, []string{"ops@example.com"}, msg.To)
	require.Equal(t, "relay@example.com", msg.From)
}

func TestContact_MissingFields(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		body string
	}{
		{name: "empty email", body: `{"email":"","subject":"Hi","message":"Hello"}`},
		{name: "missing subject", body: `{"email":"a@b.com","message":"Hello"}`},
		{name: "blank message", body: `{"email":"a@b.com","subject":"Hi","message":"   "}`},
		{name: "empty object", body: `{}`},
		{name: "empty body", body: ``},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			d := &fakeDispatcher{}
			s := newTestServer(d)

			status, out := postContact(t, s, tt.body)

			require.Equal(t, http.StatusBadRequest, status)
			require.False(t, out.Success)
			require.Equal(t, "All fields (email, subject, message) are required", out.Error)
			require.Zero(t, d.callCount(), "dispatcher must not be called")
		})
	}
}

func TestContact_MalformedJSON(t *testing.T) {
	t.Parallel()

	d := &fakeDispatcher{}
	s := newTestServer(d)

	status, out := postContact(t, s, `{"email":`)

	require.Equal(t, http.StatusBadRequest, status)
	require.False(t, out.Success)
	require.Equal(t, "Invalid request body", out.Error)
	require.Zero(t, d.callCount())
}

func TestContact_ContentTypeIgnored(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		contentType string
	}{
		{name: "no content type", contentType: ""},
		{name: "text/plain", contentType: "text/plain;charset=UTF-8"},
		{name: "json with charset", contentType: "application/json; charset=utf-8"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			d := &fakeDispatcher{}
			s := newTestServer(d)

			req := httptest.NewRequest(http.MethodPost, "/api/contact", strings.NewReader(`{"email":"a@b.com","subject":"Hi","message":"Hello"}`))
			if tt.contentType != "" {
				req.Header.Set("Content-Type", tt.contentType)
			}
			resp, err := s.App().Test(req)
			require.NoError(t, err)
			defer resp.Body.Close()

			var out response
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
			require.Equal(t, http.StatusOK, resp.StatusCode, "error: %s", out.Error)
			require.True(t, out.Success)
			require.Equal(t, 1, d.callCount())
			require.Equal(t, "a@b.com", d.last.Email)
		})
	}
}

func TestContact_CallsDispatcherOnce(t *testing.T) {
	t.Parallel()

	d := &fakeDispatcher{}
	s := newTestServer(d)

	status, _ := postContact(t, s, `{"email":"a@b.com","subject":"Hi","message":"Hello"}`)

	require.Equal(t, http.StatusOK, status)
	require.Equal(t, 1, d.callCount())
	require.Equal(t, contact.Submission{Email: "a@b.com", Subject: "Hi", Message: "Hello"}, d.last)
}

func TestContact_ProviderRejects(t *testing.T) {
	t.Parallel()

	d := &fakeDispatcher{err: fmt.Errorf("send via msgraph: %w", &graph.APIError{
		StatusCode: http.StatusForbidden,
		Code:       "ErrorSendAsDenied",
		Message:    "The user account which was used to submit this request does not have the right to send mail on behalf of the specified sending account.",
	})}
	s := newTestServer(d)

	status, out := postContact(t, s, `{"email":"a@b.com","subject":"Hi","message":"Hello"}`)

	require.Equal(t, http.StatusInternalServerError, status)
	require.False(t, out.Success)
	require.Contains(t, out.Error, "does not have the right to send mail")
}

func TestContact_CredentialFailureRepeats(t *testing.T) {
	t.Parallel()

	d := &fakeDispatcher{err: fmt.Errorf("send via msgraph: failed to get access token: %w", &oauth2.RetrieveError{
		ErrorCode:        "invalid_client",
		ErrorDescription: "AADSTS7000215: Invalid client secret provided.",
	})}
	s := newTestServer(d)

	for i := 0; i < 2; i++ {
		status, out := postContact(t, s, `{"email":"a@b.com","subject":"Hi","message":"Hello"}`)
		require.Equal(t, http.StatusInternalServerError, status)
		require.Equal(t, "AADSTS7000215: Invalid client secret provided.", out.Error)
	}
	require.Equal(t, 2, d.callCount())
}

func TestContact_CORS(t *testing.T) {
	t.Parallel()

	s := newTestServer(&fakeDispatcher{})

	req := httptest.NewRequest(http.MethodPost, "/api/contact", strings.NewReader(`{"email":"a@b.com","subject":"Hi","message":"Hello"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Origin", "https://site.example")
	resp, err := s.App().Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
	require.NotEmpty(t, resp.Header.Get("X-Request-ID"))
}

func TestNotFound(t *testing.T) {
	t.Parallel()

	s := newTestServer(&fakeDispatcher{})

	req := httptest.NewRequest(http.MethodGet, "/api/unknown", nil)
	resp, err := s.App().Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	var out response
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	require.False(t, out.Success)
	require.NotEmpty(t, out.Error)
}

func TestMetricsEndpoint(t *testing.T) {
	t.Parallel()

	s := newTestServer(&fakeDispatcher{})
	postContact(t, s, `{"email":"a@b.com","subject":"Hi","message":"Hello"}`)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	resp, err := s.App().Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Contains(t, string(body), "contact_submissions_total")
}

func TestPublicError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want string
	}{
		{
			name: "graph message",
			err:  fmt.Errorf("wrapped: %w", &graph.APIError{StatusCode: 400, Message: "Invalid recipients"}),
			want: "Invalid recipients",
		},
		{
			name: "graph without message",
			err:  &graph.APIError{StatusCode: 502},
			want: "Graph API error (HTTP 502): ",
		},
		{
			name: "token error description",
			err:  &oauth2.RetrieveError{ErrorCode: "invalid_client", ErrorDescription: "bad secret"},
			want: "bad secret",
		},
		{
			name: "token error code only",
			err:  &oauth2.RetrieveError{ErrorCode: "unauthorized_client"},
			want: "unauthorized_client",
		},
		{
			name: "plain error",
			err:  errors.New("connection refused"),
			want: "connection refused",
		},
		{
			name: "empty error text",
			err:  errors.New(""),
			want: "Failed to send message. Please try again later.",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tt.want, publicError(tt.err))
		})
	}
}
