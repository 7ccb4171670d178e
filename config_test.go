package goSoap

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/MrEthical07/goSoap/codec"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.Session.MaxAttempts != 2 {
		t.Fatalf("expected one re-authenticated retry by default, got %d attempts", cfg.Session.MaxAttempts)
	}
	if cfg.Codec.Validation != codec.ValidationDrop {
		t.Fatalf("expected drop policy by default, got %v", cfg.Codec.Validation)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		wantValid bool
	}{
		{
			name:      "latin1 charset valid",
			mutate:    func(c *Config) { c.Charset = "ISO-8859-1" },
			wantValid: true,
		},
		{
			name:      "unknown charset invalid",
			mutate:    func(c *Config) { c.Charset = "klingon-8" },
			wantValid: false,
		},
		{
			name:      "empty client kind invalid",
			mutate:    func(c *Config) { c.Session.ClientKind = "" },
			wantValid: false,
		},
		{
			name:      "empty login method invalid",
			mutate:    func(c *Config) { c.Session.LoginMethod = "" },
			wantValid: false,
		},
		{
			name:      "empty expired fault invalid",
			mutate:    func(c *Config) { c.Session.ExpiredFault = "" },
			wantValid: false,
		},
		{
			name:      "zero attempts invalid",
			mutate:    func(c *Config) { c.Session.MaxAttempts = 0 },
			wantValid: false,
		},
		{
			name:      "single attempt valid",
			mutate:    func(c *Config) { c.Session.MaxAttempts = 1 },
			wantValid: true,
		},
		{
			name:      "negative cookie ttl invalid",
			mutate:    func(c *Config) { c.Session.CookieTTL = -time.Second },
			wantValid: false,
		},
		{
			name: "throttle without window invalid",
			mutate: func(c *Config) {
				c.Session.MaxLoginsPerWindow = 3
				c.Session.LoginWindow = 0
			},
			wantValid: false,
		},
		{
			name:      "unknown validation policy invalid",
			mutate:    func(c *Config) { c.Codec.Validation = codec.Policy(9) },
			wantValid: false,
		},
		{
			name: "audit without buffer invalid",
			mutate: func(c *Config) {
				c.Audit.Enabled = true
				c.Audit.BufferSize = 0
			},
			wantValid: false,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := defaultConfig()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if tc.wantValid && err != nil {
				t.Fatalf("expected valid config, got %v", err)
			}
			if !tc.wantValid && err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func writeConfigFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "gosoap.toml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadFileOverlaysDefaults(t *testing.T) {
	path := writeConfigFile(t, `
charset = "iso-8859-1"

[session]
cookie_dir = "/var/lib/gosoap"
max_attempts = 3
lock_timeout = "2s"
max_logins_per_window = 5
login_window = "30s"

[codec]
validation = "strict"

[credentials]
login = "ed"
password = "secret"
endpoint = "https://crm.example.com/soap"
`)

	cfg, creds, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}
	if cfg.Charset != "iso-8859-1" {
		t.Fatalf("charset not decoded: %q", cfg.Charset)
	}
	if cfg.Session.MaxAttempts != 3 || cfg.Session.LockTimeout != 2*time.Second {
		t.Fatalf("session not decoded: %+v", cfg.Session)
	}
	if cfg.Session.LoginWindow != 30*time.Second || cfg.Session.MaxLoginsPerWindow != 5 {
		t.Fatalf("throttle not decoded: %+v", cfg.Session)
	}
	if cfg.Session.LoginMethod != "login" {
		t.Fatalf("expected default login method kept, got %q", cfg.Session.LoginMethod)
	}
	if cfg.Codec.Validation != codec.ValidationStrict {
		t.Fatalf("expected strict policy, got %v", cfg.Codec.Validation)
	}
	if creds.Login != "ed" || creds.Password != "secret" || creds.Account != "" {
		t.Fatalf("credentials not decoded: %+v", creds)
	}
}

func TestLoadConfigRejectsUnknownKeys(t *testing.T) {
	path := writeConfigFile(t, `
[session]
max_attempts = 2
retry_forever = true
`)
	_, err := LoadConfig(path)
	if err == nil || !strings.Contains(err.Error(), "retry_forever") {
		t.Fatalf("expected unknown key error, got %v", err)
	}
}

func TestLoadConfigValidates(t *testing.T) {
	path := writeConfigFile(t, `
[session]
max_attempts = 0
`)
	if _, err := LoadConfig(path); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "absent.toml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
