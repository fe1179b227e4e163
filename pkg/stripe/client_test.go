package stripe

import (
	"context"
	"testing"

	"github.com/beanvault/storefront-backend/pkg/config"
)

func TestNewClientValidatesKeyAgainstEnvironment(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.StripeConfig
		wantErr bool
	}{
		{
			name: "test env with test key",
			cfg:  config.StripeConfig{APIKey: "sk_test_abc", Secret: "whsec_abc", Env: "test"},
		},
		{
			name:    "test env with live key",
			cfg:     config.StripeConfig{APIKey: "sk_live_abc", Secret: "whsec_abc", Env: "test"},
			wantErr: true,
		},
		{
			name:    "live env with test key",
			cfg:     config.StripeConfig{APIKey: "sk_test_abc", Secret: "whsec_abc", Env: "live"},
			wantErr: true,
		},
		{
			name: "live env with live key",
			cfg:  config.StripeConfig{APIKey: "sk_live_abc", Secret: "whsec_abc", Env: "live"},
		},
		{
			name:    "missing api key",
			cfg:     config.StripeConfig{Secret: "whsec_abc", Env: "test"},
			wantErr: true,
		},
		{
			name:    "missing signing secret",
			cfg:     config.StripeConfig{APIKey: "sk_test_abc", Env: "test"},
			wantErr: true,
		},
		{
			name:    "unknown environment",
			cfg:     config.StripeConfig{APIKey: "sk_test_abc", Secret: "whsec_abc", Env: "sandbox"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := NewClient(context.Background(), tt.cfg, nil)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if client.SigningSecret() != tt.cfg.Secret {
				t.Fatalf("signing secret not preserved")
			}
			if client.Environment() != tt.cfg.Environment() {
				t.Fatalf("environment not normalized")
			}
		})
	}
}

func TestClientNilReceivers(t *testing.T) {
	var client *Client
	if client.API() != nil {
		t.Fatal("expected nil API from nil client")
	}
	if client.Environment() != "" {
		t.Fatal("expected empty environment from nil client")
	}
	if client.SigningSecret() != "" {
		t.Fatal("expected empty secret from nil client")
	}
}
