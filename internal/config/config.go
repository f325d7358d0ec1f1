// Package config provides environment-variable-first configuration loading
// with optional YAML file fallback for the contact relay.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	defaultPort          = 5000
	defaultSMTPCheckPort = 465
	defaultSubjectPrefix = "Contact Form: "
)

// Config holds the complete application configuration.
type Config struct {
	Provider  string          `yaml:"provider"`
	HTTP      HTTPConfig      `yaml:"http"`
	Graph     GraphConfig     `yaml:"graph"`
	Contact   ContactConfig   `yaml:"contact"`
	SES       SESConfig       `yaml:"ses"`
	SMTPCheck SMTPCheckConfig `yaml:"smtp_check"`
	TLS       TLSConfig       `yaml:"tls"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Host         string `yaml:"host"`
	Port         int    `yaml:"port"`
	AllowOrigins string `yaml:"allow_origins"`
}

// GraphConfig holds the service principal used for Microsoft Graph.
type GraphConfig struct {
	TenantID     string `yaml:"tenant_id"`
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
}

// ContactConfig holds the fixed routing applied to every submission.
type ContactConfig struct {
	Sender        string `yaml:"sender"`
	Recipient     string `yaml:"recipient"`
	SubjectPrefix string `yaml:"subject_prefix"`
}

// SESConfig holds AWS SES configuration.
type SESConfig struct {
	Region          string `yaml:"region"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
}

// SMTPCheckConfig holds the credentials verified by the smtp-check command.
type SMTPCheckConfig struct {
	Host               string `yaml:"host"`
	Port               int    `yaml:"port"`
	Username           string `yaml:"username"`
	Password           string `yaml:"password"`
	InsecureSkipVerify bool   `yaml:"insecure_skip_verify"`
}

// TLSConfig holds TLS certificate file paths for the HTTP listener.
type TLSConfig struct {
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// Load loads configuration from environment variables with sensible defaults.
// Environment variables always take precedence.
func Load() (*Config, error) {
	cfg := &Config{}
	cfg.applyDefaults()
	if err := cfg.applyEnvVars(); err != nil {
		return nil, err
	}
	cfg.finalize()
	return cfg, nil
}

// LoadFromFile loads configuration from a YAML file as the base layer,
// then overrides with environment variables. Returns an error if the
// specified file path does not exist.
func LoadFromFile(path string) (*Config, error) {
	cfg := &Config{}
	cfg.applyDefaults()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Environment variables always override YAML values
	if err := cfg.applyEnvVars(); err != nil {
		return nil, err
	}
	cfg.finalize()

	return cfg, nil
}

// LoadDotEnv loads variables from the given .env files (default ".env")
// into the process environment without overriding variables that are
// already set. Missing files are ignored.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("failed to load %s: %w", p, err)
		}
	}
	return nil
}

// GraphConfigured returns true if the service principal and sender are set.
func (c *Config) GraphConfigured() bool {
	return c.Graph.TenantID != "" &&
		c.Graph.ClientID != "" &&
		c.Graph.ClientSecret != "" &&
		c.Contact.Sender != ""
}

// SESConfigured returns true if the SES region and sender are set.
func (c *Config) SESConfigured() bool {
	return c.SES.Region != "" && c.Contact.Sender != ""
}

// TLSEnabled returns true if either the certificate or the key file is set.
// A partial pair is rejected when the listener's TLS material is loaded.
func (c *Config) TLSEnabled() bool {
	return c.TLS.CertFile != "" || c.TLS.KeyFile != ""
}

// ListenAddr returns the host:port the HTTP server binds to.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.HTTP.Host, c.HTTP.Port)
}

// ValidateSMTPCheck reports missing settings required by the smtp-check command.
func (c *Config) ValidateSMTPCheck() error {
	var missing []string
	if c.SMTPCheck.Host == "" {
		missing = append(missing, "EMAIL_HOST")
	}
	if c.SMTPCheck.Username == "" {
		missing = append(missing, "EMAIL_USER")
	}
	if c.SMTPCheck.Password == "" {
		missing = append(missing, "EMAIL_PASSWORD")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required settings: %s", strings.Join(missing, ", "))
	}
	return nil
}

// applyDefaults sets sensible default values for all configuration fields.
func (c *Config) applyDefaults() {
	c.HTTP.Port = defaultPort
	c.HTTP.AllowOrigins = "*"
	c.Contact.SubjectPrefix = defaultSubjectPrefix
	c.SMTPCheck.Port = defaultSMTPCheckPort
	c.SMTPCheck.InsecureSkipVerify = true
	c.Logging.Level = "info"
}

// applyEnvVars overrides configuration with environment variable values.
// Only non-empty environment variables override existing values.
func (c *Config) applyEnvVars() error {
	if v := os.Getenv("PROVIDER"); v != "" {
		c.Provider = strings.ToLower(v)
	}

	if v := os.Getenv("HTTP_HOST"); v != "" {
		c.HTTP.Host = v
	}
	if v := os.Getenv("PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil || port <= 0 || port > 65535 {
			return fmt.Errorf("invalid PORT %q", v)
		}
		c.HTTP.Port = port
	}
	if v := os.Getenv("CORS_ALLOW_ORIGINS"); v != "" {
		c.HTTP.AllowOrigins = v
	}

	if v := os.Getenv("TENANT_ID"); v != "" {
		c.Graph.TenantID = v
	}
	if v := os.Getenv("CLIENT_ID"); v != "" {
		c.Graph.ClientID = v
	}
	if v := os.Getenv("CLIENT_SECRET"); v != "" {
		c.Graph.ClientSecret = v
	}

	// EMAIL_USER is both the sending mailbox and the SMTP login.
	if v := os.Getenv("EMAIL_USER"); v != "" {
		c.Contact.Sender = v
		c.SMTPCheck.Username = v
	}
	if v := os.Getenv("CONTACT_RECIPIENT"); v != "" {
		c.Contact.Recipient = v
	}
	if v := os.Getenv("CONTACT_SUBJECT_PREFIX"); v != "" {
		c.Contact.SubjectPrefix = v
	}

	if v := os.Getenv("SES_REGION"); v != "" {
		c.SES.Region = v
	}
	if v := os.Getenv("SES_ACCESS_KEY_ID"); v != "" {
		c.SES.AccessKeyID = v
	}
	if v := os.Getenv("SES_SECRET_ACCESS_KEY"); v != "" {
		c.SES.SecretAccessKey = v
	}

	if v := os.Getenv("EMAIL_HOST"); v != "" {
		c.SMTPCheck.Host = v
	}
	if v := os.Getenv("EMAIL_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil || port <= 0 || port > 65535 {
			return fmt.Errorf("invalid EMAIL_PORT %q", v)
		}
		c.SMTPCheck.Port = port
	}
	if v := os.Getenv("EMAIL_PASSWORD"); v != "" {
		c.SMTPCheck.Password = v
	}
	if v := os.Getenv("SMTP_CHECK_VERIFY_TLS"); v != "" {
		verify, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid SMTP_CHECK_VERIFY_TLS %q", v)
		}
		c.SMTPCheck.InsecureSkipVerify = !verify
	}

	if v := os.Getenv("TLS_CERT_FILE"); v != "" {
		c.TLS.CertFile = v
	}
	if v := os.Getenv("TLS_KEY_FILE"); v != "" {
		c.TLS.KeyFile = v
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Logging.Level = strings.ToLower(v)
	}
	return nil
}

// finalize fills values derived from other settings.
func (c *Config) finalize() {
	if c.Contact.Recipient == "" {
		c.Contact.Recipient = c.Contact.Sender
	}
	if c.SMTPCheck.Username == "" {
		c.SMTPCheck.Username = c.Contact.Sender
	}
}
