package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// ---------------------------------------------------------------------------
// DatabaseConfig.GetDSN
// ---------------------------------------------------------------------------

func TestGetDSN(t *testing.T) {
	tests := []struct {
		name string
		cfg  DatabaseConfig
		want string
	}{
		{
			name: "standard config",
			cfg: DatabaseConfig{
				Host:     "localhost",
				Port:     5432,
				User:     "backoffice",
				Password: "secret",
				Name:     "backoffice",
				SSLMode:  "require",
			},
			want: "host=localhost port=5432 user=backoffice password=secret dbname=backoffice sslmode=require",
		},
		{
			name: "empty password",
			cfg: DatabaseConfig{
				Host:    "db.internal",
				Port:    5433,
				User:    "ops",
				Name:    "marketplace",
				SSLMode: "disable",
			},
			want: "host=db.internal port=5433 user=ops password= dbname=marketplace sslmode=disable",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.cfg.GetDSN(); got != tt.want {
				t.Errorf("GetDSN() = %q, want %q", got, tt.want)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// ServerConfig.GetAddress
// ---------------------------------------------------------------------------

func TestGetAddress(t *testing.T) {
	tests := []struct {
		name string
		cfg  ServerConfig
		want string
	}{
		{"default", ServerConfig{Host: "0.0.0.0", Port: 8080}, "0.0.0.0:8080"},
		{"empty host", ServerConfig{Port: 8080}, ":8080"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.cfg.GetAddress(); got != tt.want {
				t.Errorf("GetAddress() = %q, want %q", got, tt.want)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// Config.Validate
// ---------------------------------------------------------------------------

func minimalValidConfig() *Config {
	return &Config{
		Server:    ServerConfig{Port: 8080},
		Database:  DatabaseConfig{Host: "localhost", Name: "backoffice", User: "backoffice"},
		Auth:      AuthConfig{TokenTTL: time.Hour},
		Logging:   LoggingConfig{Level: "info"},
		Analytics: AnalyticsConfig{DefaultSource: "admin"},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid minimal config passes", func(*Config) {}, false},
		{"invalid server port 0", func(c *Config) { c.Server.Port = 0 }, true},
		{"invalid server port 70000", func(c *Config) { c.Server.Port = 70000 }, true},
		{"missing database host", func(c *Config) { c.Database.Host = "" }, true},
		{"missing database name", func(c *Config) { c.Database.Name = "" }, true},
		{"missing database user", func(c *Config) { c.Database.User = "" }, true},
		{"zero token ttl", func(c *Config) { c.Auth.TokenTTL = 0 }, true},
		{"tls enabled missing cert_file", func(c *Config) {
			c.Security.TLS = TLSConfig{Enabled: true, KeyFile: "key.pem"}
		}, true},
		{"tls enabled missing key_file", func(c *Config) {
			c.Security.TLS = TLSConfig{Enabled: true, CertFile: "cert.pem"}
		}, true},
		{"rate limiting enabled without budget", func(c *Config) {
			c.Security.RateLimiting = RateLimitingConfig{Enabled: true}
		}, true},
		{"file shipper missing path", func(c *Config) {
			c.Audit.Shippers = []AuditShipperConfig{{Enabled: true, Type: "file"}}
		}, true},
		{"webhook shipper missing url", func(c *Config) {
			c.Audit.Shippers = []AuditShipperConfig{{Enabled: true, Type: "webhook"}}
		}, true},
		{"unknown shipper type", func(c *Config) {
			c.Audit.Shippers = []AuditShipperConfig{{Enabled: true, Type: "syslog"}}
		}, true},
		{"disabled shipper is not validated", func(c *Config) {
			c.Audit.Shippers = []AuditShipperConfig{{Enabled: false, Type: "syslog"}}
		}, false},
		{"missing analytics default source", func(c *Config) { c.Analytics.DefaultSource = "" }, true},
		{"invalid log level", func(c *Config) { c.Logging.Level = "verbose" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := minimalValidConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr && err == nil {
				t.Error("Validate() expected error, got nil")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("Validate() unexpected error: %v", err)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// Load
// ---------------------------------------------------------------------------

func TestLoad_DefaultsWithNoFile(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("default server port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Auth.TokenTTL != 12*time.Hour {
		t.Errorf("default token ttl = %v, want 12h", cfg.Auth.TokenTTL)
	}
	if !cfg.Audit.Enabled {
		t.Error("audit should be enabled by default")
	}
	if cfg.Analytics.DefaultSource != "admin" {
		t.Errorf("default analytics source = %q, want admin", cfg.Analytics.DefaultSource)
	}
}

func TestLoad_YAMLFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := `
server:
  port: 9000
database:
  host: db.internal
audit:
  enabled: false
  shippers:
    - enabled: true
      type: file
      path: /var/log/backoffice/audit.jsonl
`
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Port != 9000 {
		t.Errorf("server port = %d, want 9000", cfg.Server.Port)
	}
	if cfg.Database.Host != "db.internal" {
		t.Errorf("database host = %q", cfg.Database.Host)
	}
	if cfg.Audit.Enabled {
		t.Error("audit.enabled from file should be false")
	}
	if len(cfg.Audit.Shippers) != 1 || cfg.Audit.Shippers[0].Path != "/var/log/backoffice/audit.jsonl" {
		t.Errorf("audit shippers = %+v", cfg.Audit.Shippers)
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	t.Setenv("BKO_SERVER_PORT", "9100")
	t.Setenv("BKO_SECURITY_RATE_LIMITING_REDIS_URL", "redis://cache:6379/0")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Port != 9100 {
		t.Errorf("server port = %d, want 9100", cfg.Server.Port)
	}
	if cfg.Security.RateLimiting.RedisURL != "redis://cache:6379/0" {
		t.Errorf("redis url = %q", cfg.Security.RateLimiting.RedisURL)
	}
}

func TestLoad_ExpandsSecretReferences(t *testing.T) {
	t.Setenv("BKO_TEST_DB_PASSWORD", "from-env")
	t.Setenv("BKO_DATABASE_PASSWORD", "${BKO_TEST_DB_PASSWORD}")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Database.Password != "from-env" {
		t.Errorf("database password = %q, want from-env", cfg.Database.Password)
	}
}

func TestLoad_InvalidFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("server: [unclosed"), 0o600); err != nil {
		t.Fatal(err)
	}
	_, err := Load(path)
	if err == nil || !strings.Contains(err.Error(), "error reading config file") {
		t.Fatalf("Load() error = %v, want read error", err)
	}
}

func TestLoad_JWTSecretShortEnvName(t *testing.T) {
	t.Setenv("BKO_JWT_SECRET", "0123456789abcdef0123456789abcdef")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Auth.JWTSecret != "0123456789abcdef0123456789abcdef" {
		t.Errorf("jwt secret = %q", cfg.Auth.JWTSecret)
	}
}
