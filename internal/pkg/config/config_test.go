package config

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/sethvargo/go-envconfig"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestProcess_Defaults(t *testing.T) {
	cfg, err := Process(context.Background(), envconfig.MapLookuper(map[string]string{
		"JWT_SECRET": testSecret,
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Port != "8080" {
		t.Errorf("expected port 8080, got %s", cfg.Port)
	}
	if cfg.Token.AccessTTL != 15*time.Minute {
		t.Errorf("expected 15m access TTL, got %s", cfg.Token.AccessTTL)
	}
	if cfg.Token.RefreshTTL != 24*time.Hour {
		t.Errorf("expected 24h refresh TTL, got %s", cfg.Token.RefreshTTL)
	}
	if !cfg.Redis.Enabled {
		t.Error("expected redis enabled by default")
	}
	if len(cfg.CORS.AllowedOrigins) != 1 || cfg.CORS.AllowedOrigins[0] != "*" {
		t.Errorf("unexpected CORS origins %v", cfg.CORS.AllowedOrigins)
	}
	if cfg.Notify.Workers != 2 || cfg.Notify.Buffer != 64 || cfg.Notify.Timeout != 10*time.Second {
		t.Errorf("unexpected notify config %+v", cfg.Notify)
	}
	if cfg.Admin.Enabled() {
		t.Error("expected no bootstrap admin by default")
	}
}

func TestProcess_Overrides(t *testing.T) {
	cfg, err := Process(context.Background(), envconfig.MapLookuper(map[string]string{
		"JWT_SECRET":           testSecret,
		"ACCESS_TOKEN_TTL":     "900s",
		"REFRESH_TOKEN_TTL":    "1h",
		"CORS_ALLOWED_ORIGINS": "http://localhost:4200,https://app.example.com",
		"REDIS_ENABLED":        "false",
		"ADMIN_EMAIL":          "root@x.com",
		"ADMIN_PASSWORD":       "s3cret",
		"ENV":                  "Production",
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if int(cfg.Token.AccessTTL.Seconds()) != 900 {
		t.Errorf("expected 900s, got %s", cfg.Token.AccessTTL)
	}
	if len(cfg.CORS.AllowedOrigins) != 2 {
		t.Errorf("expected 2 origins, got %v", cfg.CORS.AllowedOrigins)
	}
	if cfg.Redis.Enabled {
		t.Error("expected redis disabled")
	}
	if !cfg.Admin.Enabled() {
		t.Error("expected bootstrap admin enabled")
	}
	if !cfg.IsProduction() {
		t.Error("expected production environment")
	}
}

func TestProcess_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"missing secret", map[string]string{}, "JWT_SECRET"},
		{"short secret", map[string]string{"JWT_SECRET": "short"}, "JWT_SECRET"},
		{"refresh shorter than access", map[string]string{
			"JWT_SECRET": testSecret, "ACCESS_TOKEN_TTL": "1h", "REFRESH_TOKEN_TTL": "10m",
		}, "REFRESH_TOKEN_TTL"},
		{"bcrypt cost out of range", map[string]string{"JWT_SECRET": testSecret, "BCRYPT_COST": "99"}, "BCRYPT_COST"},
		{"admin password without email", map[string]string{"JWT_SECRET": testSecret, "ADMIN_PASSWORD": "x"}, "ADMIN_EMAIL"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Process(context.Background(), envconfig.MapLookuper(tc.env))
			if err == nil {
				t.Fatal("expected an error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error mentioning %s, got %v", tc.want, err)
			}
		})
	}
}
