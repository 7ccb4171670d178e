package goSoap

import (
	"context"
	"errors"
	"strconv"

	"github.com/MrEthical07/goSoap/cookie"
	"github.com/MrEthical07/goSoap/internal/rate"
	"github.com/MrEthical07/goSoap/wire"
	"github.com/rs/zerolog"
)

// EnsureSession makes sure the transport carries session cookies.
//
// Without force, a usable persisted jar is installed and no request is
// made. Otherwise, or when no usable jar exists, the client logs in under
// the per-fingerprint lock, persists the returned cookies and installs them.
// A forced login first adopts a jar another client persisted meanwhile.
// Failures are returned as *AuthError.
func (c *Client) EnsureSession(ctx context.Context, force bool) error {
	if c == nil || c.transport == nil {
		return ErrClientNotReady
	}
	if ctx == nil {
		ctx = context.Background()
	}
	log := c.logger.With().Str("request_id", requestIDFromContext(ctx)).Logger()

	if !force {
		if jar, ok := c.usableJar(ctx, log); ok {
			c.install(jar)
			c.metrics.Inc(MetricCookieLoaded)
			c.emitAudit(ctx, AuditEvent{
				EventType: AuditSessionCookiesLoaded,
				Success:   true,
				Metadata:  map[string]string{"cookies": strconv.Itoa(len(jar))},
			})
			log.Debug().Int("cookies", len(jar)).Msg("session restored from cookie store")
			return nil
		}
	}

	return c.login(ctx, force, log)
}

// usableJar loads the persisted jar, deduplicated. Load failures and stale
// tokens make the jar unusable rather than failing the caller.
func (c *Client) usableJar(ctx context.Context, log zerolog.Logger) (cookie.Jar, bool) {
	jar, err := c.store.Load(ctx, c.fingerprint)
	if err != nil {
		log.Warn().Err(err).Msg("cookie store unreadable, logging in")
		return nil, false
	}
	jar = jar.Dedupe()
	if len(jar) == 0 {
		return nil, false
	}
	if c.config.Session.HonorTokenExpiry && jar.StaleAt(c.now()) {
		log.Info().Int("cookies", len(jar)).Msg("persisted session token expired")
		return nil, false
	}
	return jar, true
}

func (c *Client) login(ctx context.Context, force bool, log zerolog.Logger) error {
	unlock, err := c.locker.Lock(ctx, c.fingerprint)
	if err != nil {
		return c.authFailure(ctx, log, "session lock not acquired", err)
	}
	defer unlock()

	// Another client may have logged in while we waited for the lock. A
	// forced login adopts only a jar that replaced the one this client had
	// installed; with nothing installed the stored jar may be the very one
	// the server just rejected.
	if jar, ok := c.usableJar(ctx, log); ok && (!force || c.replacedElsewhere(jar)) {
		c.install(jar)
		c.emitAudit(ctx, AuditEvent{
			EventType: AuditSessionAdopted,
			Success:   true,
			Metadata:  map[string]string{"cookies": strconv.Itoa(len(jar))},
		})
		log.Info().Int("cookies", len(jar)).Msg("adopted session refreshed by another client")
		return nil
	}

	if err := c.limiter.Take(ctx, c.fingerprint); err != nil {
		var limited *rate.LimitedError
		if errors.As(err, &limited) {
			c.metrics.Inc(MetricLoginRateLimited)
			log.Warn().Dur("retry_after", limited.RetryAfter).Int("attempts", limited.Attempts).Msg("login throttled")
			return c.authFailure(ctx, log, "login rate limited", ErrLoginRateLimited)
		}
		return c.authFailure(ctx, log, "login throttle unavailable", err)
	}

	params, err := c.loginParams()
	if err != nil {
		return c.authFailure(ctx, log, "credentials not encodable", err)
	}

	log.Debug().Str("method", c.config.Session.LoginMethod).Msg("logging in")
	if _, err := c.transport.Call(ctx, c.config.Session.LoginMethod, params); err != nil {
		message := err.Error()
		var fault *Fault
		if errors.As(err, &fault) {
			message = fault.Message
		}
		return c.authFailure(ctx, log, message, err)
	}

	jar, rejected := cookie.ScanSetCookie(c.transport.LastResponseHeaders())
	for _, token := range rejected {
		log.Debug().Int("token_len", len(token)).Msg("set-cookie token is not name=value, dropped")
	}
	if len(jar) == 0 {
		log.Warn().Msg("login reply carried no cookies")
	} else {
		if err := c.store.Append(ctx, c.fingerprint, jar); err != nil {
			log.Error().Err(err).Msg("session cookies not persisted")
		} else {
			c.metrics.Inc(MetricCookiePersisted)
		}
		c.install(jar)
	}

	c.metrics.Inc(MetricLoginSuccess)
	c.emitAudit(ctx, AuditEvent{
		EventType: AuditSessionLoginSuccess,
		Success:   true,
		Metadata:  map[string]string{"cookies": strconv.Itoa(len(jar))},
	})
	log.Info().Int("cookies", len(jar)).Bool("forced", force).Msg("logged in")
	return nil
}

// loginParams builds the positional login arguments. An empty account is an
// explicit null.
func (c *Client) loginParams() (*wire.Record, error) {
	login, err := c.transcoder.ToWire(c.credentials.Login)
	if err != nil {
		return nil, err
	}
	password, err := c.transcoder.ToWire(c.credentials.Password)
	if err != nil {
		return nil, err
	}
	account := wire.Null
	if c.credentials.Account != "" {
		a, err := c.transcoder.ToWire(c.credentials.Account)
		if err != nil {
			return nil, err
		}
		account = wire.String(a)
	}
	return wire.NewRecord(
		wire.F("username", wire.String(login)),
		wire.F("password", wire.String(password)),
		wire.F("account", account),
	), nil
}

func (c *Client) authFailure(ctx context.Context, log zerolog.Logger, message string, err error) error {
	c.metrics.Inc(MetricLoginFailure)
	c.emitAudit(ctx, AuditEvent{
		EventType: AuditSessionLoginFailure,
		Error:     message,
	})
	log.Warn().Err(err).Msg("login failed")
	return &AuthError{
		Fingerprint: cookie.Short(c.fingerprint),
		Message:     message,
		Err:         err,
	}
}

// install hands every cookie of jar to the transport.
func (c *Client) install(jar cookie.Jar) {
	jar = jar.Dedupe()
	for _, ck := range jar {
		c.transport.SetCookie(ck.Name, ck.Value)
	}

	c.mu.Lock()
	c.installed = append(c.installed, jar...).Dedupe()
	c.mu.Unlock()
}

func (c *Client) replacedElsewhere(stored cookie.Jar) bool {
	installed := c.installedJar()
	return len(installed) > 0 && !stored.Equal(installed)
}

func (c *Client) installedJar() cookie.Jar {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append(cookie.Jar(nil), c.installed...)
}

// InstalledCookies returns the names of the cookies installed on the transport.
func (c *Client) InstalledCookies() []string {
	if c == nil {
		return nil
	}
	jar := c.installedJar()
	names := make([]string, len(jar))
	for i, ck := range jar {
		names[i] = ck.Name
	}
	return names
}
