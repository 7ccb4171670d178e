package goSoap

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/MrEthical07/goSoap/charset"
	"github.com/MrEthical07/goSoap/codec"
	"github.com/MrEthical07/goSoap/cookie"
	"github.com/MrEthical07/goSoap/internal/rate"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Builder defines a public type used by goSoap APIs.
//
// Builder instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
// A Builder builds exactly one Client.
type Builder struct {
	config      Config
	credentials Credentials
	transport   Transport
	redis       redis.UniversalClient

	store  cookie.Store
	locker cookie.Locker

	logger       *zerolog.Logger
	auditSink    AuditSink
	onDiagnostic DiagnosticHandler

	built bool
}

// New returns a Builder seeded with the default configuration.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig replaces the whole configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithCredentials sets the session identity.
func (b *Builder) WithCredentials(creds Credentials) *Builder {
	b.credentials = creds
	return b
}

// WithTransport sets the transport every call and login goes through.
func (b *Builder) WithTransport(t Transport) *Builder {
	b.transport = t
	return b
}

// WithRedis moves the cookie jar, the re-authentication lock and the login
// throttle into Redis so that they are shared across processes.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithCookieStore overrides the cookie store selected by Build.
func (b *Builder) WithCookieStore(store cookie.Store) *Builder {
	b.store = store
	return b
}

// WithLocker overrides the re-authentication locker selected by Build.
func (b *Builder) WithLocker(locker cookie.Locker) *Builder {
	b.locker = locker
	return b
}

// WithLogger sets the structured logger. The default discards everything.
func (b *Builder) WithLogger(logger zerolog.Logger) *Builder {
	b.logger = &logger
	return b
}

// WithAuditSink sets the sink audit events are dispatched to. Audit must
// also be enabled in the config.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithMetricsEnabled toggles client counters.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms toggles the call latency histogram.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// WithDiagnosticHandler registers a callback for encoder diagnostics.
func (b *Builder) WithDiagnosticHandler(h DiagnosticHandler) *Builder {
	b.onDiagnostic = h
	return b
}

// Build assembles the Client without performing any I/O.
func (b *Builder) Build() (*Client, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}
	if b.transport == nil {
		return nil, ErrTransportRequired
	}
	if b.credentials.Login == "" {
		return nil, ErrCredentialsRequired
	}

	cfg := cloneConfig(b.config)
	if b.credentials.Charset != "" {
		cfg.Charset = b.credentials.Charset
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	tr, err := charset.New(cfg.Charset)
	if err != nil {
		return nil, fmt.Errorf("Charset: %w", err)
	}

	if b.redis == nil && cfg.Session.MaxLoginsPerWindow > 0 {
		return nil, errors.New("login throttle requires redis client")
	}

	fingerprint := cookie.Fingerprint(cookie.Identity{
		UID:        strconv.Itoa(os.Getuid()),
		Endpoint:   b.credentials.Endpoint,
		Login:      b.credentials.Login,
		Password:   b.credentials.Password,
		Account:    b.credentials.Account,
		ClientKind: cfg.Session.ClientKind,
	})

	// -------- COOKIE STORE & LOCK --------
	store := b.store
	locker := b.locker
	if b.redis != nil {
		if store == nil {
			store = cookie.NewRedisStore(b.redis, cfg.Session.RedisPrefix, cfg.Session.CookieTTL)
		}
		if locker == nil {
			locker = cookie.NewRedisLocker(b.redis, cfg.Session.RedisPrefix, cfg.Session.LockTimeout, 0)
		}
	}
	if store == nil {
		store = cookie.NewFileStore(cfg.Session.CookieDir)
	}
	if locker == nil {
		locker = processLocker(cfg.Session.LockTimeout)
	}

	logger := zerolog.Nop()
	if b.logger != nil {
		logger = *b.logger
	}

	client := &Client{
		config:       cfg,
		credentials:  b.credentials,
		fingerprint:  fingerprint,
		transport:    b.transport,
		transcoder:   tr,
		encoder:      codec.NewEncoder(tr, cfg.Codec.Validation),
		decoder:      codec.NewDecoder(tr),
		store:        store,
		locker:       locker,
		logger:       logger.With().Str("fingerprint", cookie.Short(fingerprint)).Logger(),
		onDiagnostic: b.onDiagnostic,
		now:          time.Now,
	}
	if b.redis != nil {
		client.limiter = rate.New(b.redis, cfg.Session.RedisPrefix, rate.Config{
			MaxLogins: cfg.Session.MaxLoginsPerWindow,
			Window:    cfg.Session.LoginWindow,
		})
	}
	client.audit = newAuditDispatcher(cfg.Audit, b.auditSink, client.logger)
	client.metrics = NewMetrics(cfg.Metrics)

	b.built = true

	return client, nil
}

// processLockers holds one ProcessLocker per lock timeout so that clients of
// one process serialize re-authentication of a shared fingerprint.
var processLockers sync.Map

func processLocker(timeout time.Duration) cookie.Locker {
	l, _ := processLockers.LoadOrStore(timeout, cookie.NewProcessLocker(timeout))
	return l.(*cookie.ProcessLocker)
}

// BuildAndConnect builds the Client and restores or creates its session.
func (b *Builder) BuildAndConnect(ctx context.Context) (*Client, error) {
	client, err := b.Build()
	if err != nil {
		return nil, err
	}
	if err := client.EnsureSession(ctx, false); err != nil {
		client.Close()
		return nil, err
	}
	return client, nil
}
