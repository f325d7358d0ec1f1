// Package smtpcheck verifies SMTP credentials over an implicit-TLS session
// without sending any mail.
package smtpcheck

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/emersion/go-sasl"
	"github.com/emersion/go-smtp"
)

// DefaultPort is the implicit-TLS submission port.
const DefaultPort = 465

const commandTimeout = 30 * time.Second

// Config holds the server and credentials to verify.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string

	// InsecureSkipVerify disables server certificate verification.
	InsecureSkipVerify bool
}

func (c Config) addr() string {
	port := c.Port
	if port == 0 {
		port = DefaultPort
	}
	return net.JoinHostPort(c.Host, strconv.Itoa(port))
}

// Verify opens a TLS session to the server, authenticates with the AUTH
// mechanism the server advertises (PLAIN, else LOGIN) and quits. Cancelling ctx closes the connection.
func Verify(ctx context.Context, cfg Config) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	addr := cfg.addr()
	tlsConfig := &tls.Config{
		ServerName:         cfg.Host,
		InsecureSkipVerify: cfg.InsecureSkipVerify,
		MinVersion:         tls.VersionTLS12,
	}

	slog.Debug("connecting to smtp server", "addr", addr)

	client, err := smtp.DialTLS(addr, tlsConfig)
	if err != nil {
		return fmt.Errorf("connect to %s: %w", addr, err)
	}
	defer client.Close()
	client.CommandTimeout = commandTimeout

	stop := context.AfterFunc(ctx, func() { client.Close() })
	defer stop()

	if err := client.Auth(authClient(client, cfg.Username, cfg.Password)); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("auth: %w", err)
	}

	slog.Debug("smtp authentication succeeded", "user", cfg.Username)

	// Credentials are already confirmed; a failed QUIT does not change that.
	if err := client.Quit(); err != nil {
		slog.Warn("smtp quit error", "error", err)
	}
	return nil
}

// authClient picks PLAIN when the server lists it, LOGIN when only that is
// offered, and falls back to PLAIN otherwise.
func authClient(client *smtp.Client, username, password string) sasl.Client {
	_, params := client.Extension("AUTH")
	mechs := strings.Fields(strings.ToUpper(params))
	if !slices.Contains(mechs, "PLAIN") && slices.Contains(mechs, "LOGIN") {
		slog.Debug("server does not offer AUTH PLAIN, using LOGIN")
		return sasl.NewLoginClient(username, password)
	}
	return sasl.NewPlainClient("", username, password)
}

// Reason returns the server's reply text when err carries an SMTP status,
// otherwise the error text.
func Reason(err error) string {
	var smtpErr *smtp.SMTPError
	if errors.As(err, &smtpErr) {
		return fmt.Sprintf("%d %s", smtpErr.Code, smtpErr.Message)
	}
	return err.Error()
}
