package main

import (
	"testing"

	"github.com/shineum/contact-relay/internal/config"
)

func TestSelectProvider(t *testing.T) {
	t.Parallel()

	graphCfg := config.GraphConfig{TenantID: "t", ClientID: "c", ClientSecret: "s"}
	sender := config.ContactConfig{Sender: "relay@example.com"}

	tests := []struct {
		name     string
		cfg      config.Config
		wantName string
		wantErr  bool
	}{
		{name: "explicit stdout", cfg: config.Config{Provider: "stdout"}, wantName: "stdout"},
		{name: "explicit graph", cfg: config.Config{Provider: "graph", Graph: graphCfg, Contact: sender}, wantName: "msgraph"},
		{name: "graph missing secret", cfg: config.Config{Provider: "graph", Graph: config.GraphConfig{TenantID: "t", ClientID: "c"}, Contact: sender}, wantErr: true},
		{name: "ses missing region", cfg: config.Config{Provider: "ses", Contact: sender}, wantErr: true},
		{name: "auto-detect graph", cfg: config.Config{Graph: graphCfg, Contact: sender}, wantName: "msgraph"},
		{name: "auto-detect fallback", cfg: config.Config{}, wantName: "stdout"},
		{name: "unknown", cfg: config.Config{Provider: "sendgrid"}, wantErr: true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			p, err := selectProvider(&tt.cfg)
			if tt.wantErr {
				if err == nil {
					t.Errorf("expected error, got provider %q", p.Name())
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if p.Name() != tt.wantName {
				t.Errorf("Name(): got %q, want %q", p.Name(), tt.wantName)
			}
		})
	}
}
