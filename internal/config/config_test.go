package config

import (
	"strings"
	"testing"
)

func validConfig() *Config {
	return &Config{
		DatabaseURL:         "postgres://localhost:5432/green",
		JWTSecret:           strings.Repeat("s", 32),
		DelhiveryBaseURL:    "https://track.delhivery.com",
		DelhiveryAPIKey:     "token",
		DelhiveryPickupName: "Chennai Warehouse",
		PickupPin:           "600001",
		RazorpayKeyID:       "rzp_test_key",
		RazorpayKeySecret:   "rzp_test_secret",
		RazorpayBaseURL:     "https://api.razorpay.com",
		WarehouseConfigPath: "warehouse.yaml",
		CacheProvider:       "memory",
		LogFormat:           "text",
		Port:                "8080",
	}
}

func TestValidateJWTSecretLength(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		secret  string
		wantErr bool
	}{
		{
			name:   "valid 32-byte secret",
			secret: strings.Repeat("k", 32),
		},
		{
			name:    "invalid short secret",
			secret:  "short",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := validConfig()
			cfg.JWTSecret = tt.secret

			err := cfg.validate()
			if tt.wantErr && err == nil {
				t.Fatalf("expected error, got nil")
			}
			if !tt.wantErr && err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
		})
	}
}

func TestValidatePickupPin(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		pin     string
		wantErr bool
	}{
		{name: "six digits", pin: "600001"},
		{name: "letters rejected", pin: "60a001", wantErr: true},
		{name: "too short", pin: "60001", wantErr: true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := validConfig()
			cfg.PickupPin = tt.pin

			err := cfg.validate()
			if tt.wantErr && err == nil {
				t.Fatalf("expected error, got nil")
			}
			if !tt.wantErr && err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
		})
	}
}

func TestValidateEmailPairing(t *testing.T) {
	t.Parallel()

	cfg := validConfig()
	cfg.ResendAPIKey = "re_key"

	if err := cfg.validate(); err == nil {
		t.Fatalf("expected error when RESEND_API_KEY is set without EMAIL_FROM")
	}

	cfg.EmailFrom = "orders@greeninovics.in"
	if err := cfg.validate(); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !cfg.EmailEnabled() {
		t.Fatalf("EmailEnabled() = false, want true")
	}
}

func TestValidateCacheProvider(t *testing.T) {
	t.Parallel()

	cfg := validConfig()
	cfg.CacheProvider = "invalid"

	err := cfg.validate()
	if err == nil {
		t.Fatalf("expected error, got nil")
	}
	if !strings.Contains(err.Error(), "CacheProvider") || !strings.Contains(err.Error(), "oneof") {
		t.Fatalf("unexpected error: %v", err)
	}
}
