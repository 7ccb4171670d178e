package goSoap

import (
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/goSoap/charset"
	"github.com/MrEthical07/goSoap/codec"
)

// Config defines a public type used by goSoap APIs.
//
// Config instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Config struct {
	// Charset is the caller's string encoding. Wire strings are UTF-8.
	Charset string        `toml:"charset"`
	Session SessionConfig `toml:"session"`
	Codec   CodecConfig   `toml:"codec"`
	Audit   AuditConfig   `toml:"audit"`
	Metrics MetricsConfig `toml:"metrics"`
}

/*
====================================
SESSION CONFIG
====================================
*/

// SessionConfig controls cookie persistence, login and re-authentication.
type SessionConfig struct {
	// ClientKind is mixed into the session fingerprint so that different
	// client flavours never share cookies.
	ClientKind string `toml:"client_kind"`
	// CookieDir holds cookie files. Empty means os.TempDir().
	CookieDir    string `toml:"cookie_dir"`
	LoginMethod  string `toml:"login_method"`
	ExpiredFault string `toml:"expired_fault"`
	// MaxAttempts bounds transport attempts per call, re-authenticated
	// retries included.
	MaxAttempts int `toml:"max_attempts"`

	RedisPrefix string        `toml:"redis_prefix"`
	CookieTTL   time.Duration `toml:"cookie_ttl"`
	LockTimeout time.Duration `toml:"lock_timeout"`

	// HonorTokenExpiry treats jars holding an expired JWT as unusable.
	HonorTokenExpiry bool `toml:"honor_token_expiry"`

	// MaxLoginsPerWindow enables the Redis login throttle when > 0.
	MaxLoginsPerWindow int           `toml:"max_logins_per_window"`
	LoginWindow        time.Duration `toml:"login_window"`
}

// CodecConfig selects how shape violations in call parameters are handled.
type CodecConfig struct {
	Validation codec.Policy `toml:"validation"`
}

// AuditConfig defines a public type used by goSoap APIs.
//
// AuditConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type AuditConfig struct {
	Enabled    bool `toml:"enabled"`
	BufferSize int  `toml:"buffer_size"`
	DropIfFull bool `toml:"drop_if_full"`
}

// MetricsConfig defines a public type used by goSoap APIs.
type MetricsConfig struct {
	Enabled                 bool `toml:"enabled"`
	EnableLatencyHistograms bool `toml:"enable_latency_histograms"`
}

/*
====================================
DEFAULTS
====================================
*/

// DefaultClientKind is the default fingerprint discriminator.
const DefaultClientKind = "goSoap.Client"

// DefaultConfig returns the configuration Builder starts from.
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	return Config{
		Charset: charset.WireCharset,
		Session: SessionConfig{
			ClientKind:         DefaultClientKind,
			LoginMethod:        "login",
			ExpiredFault:       "Not logged on",
			MaxAttempts:        2,
			RedisPrefix:        "gs",
			CookieTTL:          0,
			LockTimeout:        10 * time.Second,
			HonorTokenExpiry:   true,
			MaxLoginsPerWindow: 0,
			LoginWindow:        time.Minute,
		},
		Codec: CodecConfig{
			Validation: codec.ValidationDrop,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 false,
			EnableLatencyHistograms: false,
		},
	}
}

func cloneConfig(cfg Config) Config {
	return cfg
}

/*
====================================
VALIDATION
====================================
*/

// Validate checks the configuration for values the client cannot run with.
func (c *Config) Validate() error {
	if _, err := charset.New(c.Charset); err != nil {
		return fmt.Errorf("Charset: %w", err)
	}

	// Session
	if c.Session.ClientKind == "" {
		return errors.New("Session ClientKind must not be empty")
	}
	if c.Session.LoginMethod == "" {
		return errors.New("Session LoginMethod must not be empty")
	}
	if c.Session.ExpiredFault == "" {
		return errors.New("Session ExpiredFault must not be empty")
	}
	if c.Session.MaxAttempts < 1 {
		return errors.New("Session MaxAttempts must be >= 1")
	}
	if c.Session.RedisPrefix == "" {
		return errors.New("Session RedisPrefix must not be empty")
	}
	if c.Session.CookieTTL < 0 {
		return errors.New("Session CookieTTL must be >= 0")
	}
	if c.Session.LockTimeout < 0 {
		return errors.New("Session LockTimeout must be >= 0")
	}
	if c.Session.MaxLoginsPerWindow < 0 {
		return errors.New("Session MaxLoginsPerWindow must be >= 0")
	}
	if c.Session.MaxLoginsPerWindow > 0 && c.Session.LoginWindow <= 0 {
		return errors.New("Session LoginWindow must be > 0 when MaxLoginsPerWindow is set")
	}

	// Codec
	switch c.Codec.Validation {
	case codec.ValidationDrop, codec.ValidationStrict:
	default:
		return errors.New("Codec Validation must be drop or strict")
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when audit is enabled")
	}

	return nil
}
