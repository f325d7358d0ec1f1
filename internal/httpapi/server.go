// Package httpapi exposes the contact relay over HTTP.
package httpapi

import (
	"context"
	"crypto/tls"
	"errors"
	"log/slog"
	"net"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shineum/contact-relay/internal/contact"
)

// shutdownTimeout is the maximum time to wait for in-flight requests
// during graceful shutdown.
const shutdownTimeout = 30 * time.Second

// Dispatcher sends a contact submission and returns its reference.
type Dispatcher interface {
	Dispatch(ctx context.Context, sub contact.Submission) (string, error)
}

// ServerConfig holds the configuration for the HTTP server.
type ServerConfig struct {
	// ListenAddr is the address to listen on (e.g., ":5000").
	ListenAddr string

	// AllowOrigins is the CORS origin list. Defaults to "*".
	AllowOrigins string

	// Dispatcher delivers validated submissions.
	Dispatcher Dispatcher

	// TLSConfig enables HTTPS when non-nil.
	TLSConfig *tls.Config
}

// Server serves the contact and health endpoints.
type Server struct {
	config ServerConfig
	app    *fiber.App
}

// New creates a new Server with its routes registered.
func New(cfg ServerConfig) *Server {
	if cfg.AllowOrigins == "" {
		cfg.AllowOrigins = "*"
	}

	app := fiber.New(fiber.Config{
		AppName:               "contact-relay",
		DisableStartupMessage: true,
		ErrorHandler:          errorHandler,
	})

	app.Use(requestid.New())
	app.Use(requestLogger())
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.AllowOrigins,
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept",
	}))

	h := &handler{dispatcher: cfg.Dispatcher}

	api := app.Group("/api")
	api.Post("/contact", h.contact)
	api.Get("/health", h.health)

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	return &Server{config: cfg, app: app}
}

// App returns the underlying fiber application.
func (s *Server) App() *fiber.App {
	return s.app
}

// ListenAndServe listens on the configured address and serves until the
// context is cancelled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.config.ListenAddr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln, wrapping it in TLS when configured, and
// blocks until the context is cancelled. On cancellation it waits up to
// 30 seconds for in-flight requests to complete.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	if s.config.TLSConfig != nil {
		ln = tls.NewListener(ln, s.config.TLSConfig)
	}

	slog.Info("HTTP server listening",
		"addr", ln.Addr().String(),
		"tls_enabled", s.config.TLSConfig != nil,
	)

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.app.Listener(ln)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	slog.Info("shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.app.ShutdownWithContext(shutdownCtx); err != nil {
		slog.Warn("shutdown timeout reached, forcing close", "error", err)
	}
	return <-errCh
}

// requestLogger writes one structured line per request.
func requestLogger() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			status = fiber.StatusInternalServerError
			var fe *fiber.Error
			if errors.As(err, &fe) {
				status = fe.Code
			}
		}

		slog.Info("http request",
			"method", c.Method(),
			"path", c.Path(),
			"status", status,
			"latency", time.Since(start).String(),
			"request_id", c.GetRespHeader(fiber.HeaderXRequestID),
		)
		return err
	}
}

// errorHandler renders unhandled errors, including recovered panics, in the
// same envelope as the API responses.
func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
		message = fe.Message
	} else {
		slog.Error("unhandled request error", "path", c.Path(), "error", err)
	}

	return c.Status(code).JSON(response{Success: false, Error: message})
}
