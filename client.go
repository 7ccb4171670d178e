package goSoap

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/MrEthical07/goSoap/charset"
	"github.com/MrEthical07/goSoap/codec"
	"github.com/MrEthical07/goSoap/cookie"
	"github.com/MrEthical07/goSoap/internal/rate"
	"github.com/MrEthical07/goSoap/wire"
	"github.com/rs/zerolog"
)

// Client is a session-aware adapter over a Transport. Build one with [New].
type Client struct {
	config      Config
	credentials Credentials
	fingerprint string

	transport  Transport
	transcoder *charset.Transcoder
	encoder    *codec.Encoder
	decoder    *codec.Decoder

	store   cookie.Store
	locker  cookie.Locker
	limiter *rate.Limiter

	mu        sync.Mutex
	installed cookie.Jar

	logger       zerolog.Logger
	audit        *auditDispatcher
	metrics      *Metrics
	onDiagnostic DiagnosticHandler

	now func() time.Time
}

// Call invokes method with params and decodes the reply. params must be
// record-like (struct, codec.Object, string-keyed map) or nil.
//
// When the service reports an expired session and attempts remain, the
// client logs in again and retries. Errors are *CallError, *AuthError or
// *TransportError.
func (c *Client) Call(ctx context.Context, method string, params any) (any, error) {
	if c == nil || c.transport == nil {
		return nil, ErrClientNotReady
	}
	if ctx == nil {
		ctx = context.Background()
	}

	requestID := requestIDFromContext(ctx)
	r := &callRun{
		client:    c,
		ctx:       ctx,
		method:    method,
		params:    params,
		requestID: requestID,
		log:       c.logger.With().Str("request_id", requestID).Str("method", method).Logger(),
		state:     stateIdle,
	}

	start := time.Now()
	result, err := r.run()
	c.metrics.Observe(MetricCallLatency, time.Since(start))
	return result, err
}

// callRun carries one Call through the state machine:
//
//	Idle -> Encoding -> AwaitingTransport -> Decoding -> Done
//	AwaitingTransport -> Reauthenticating -> AwaitingTransport (bounded)
//	any -> Failed
type callRun struct {
	client    *Client
	ctx       context.Context
	method    string
	params    any
	requestID string
	log       zerolog.Logger

	state    callState
	attempts int
	request  *wire.Record
	reply    wire.Value
	result   any
	err      error
}

func (r *callRun) run() (any, error) {
	r.state = stateEncoding
	for {
		switch r.state {
		case stateEncoding:
			r.state = r.encode()
		case stateAwaitingTransport:
			r.state = r.invoke()
		case stateReauthenticating:
			r.state = r.reauthenticate()
		case stateDecoding:
			r.state = r.decode()
		case stateDone:
			return r.result, nil
		case stateFailed:
			return nil, r.err
		default:
			r.err = &CallError{Method: r.method, Attempts: r.attempts, Err: errors.New("invalid call state " + r.state.String())}
			r.state = stateFailed
		}
	}
}

func (r *callRun) encode() callState {
	c := r.client
	rec, diags, err := c.encoder.EncodeParams(r.params)
	c.reportDiagnostics(r.ctx, r.requestID, r.method, diags)
	if err != nil {
		r.log.Warn().Err(err).Msg("call parameters rejected")
		r.err = &CallError{Method: r.method, Err: err}
		return stateFailed
	}
	r.request = rec
	return stateAwaitingTransport
}

func (r *callRun) invoke() callState {
	c := r.client
	if err := r.ctx.Err(); err != nil {
		r.err = &CallError{Method: r.method, Attempts: r.attempts, Err: err}
		return stateFailed
	}

	r.attempts++
	r.log.Debug().Int("attempt", r.attempts).Msg("call dispatched")

	reply, err := c.transport.Call(r.ctx, r.method, r.request)
	if err == nil {
		r.reply = reply
		return stateDecoding
	}

	var fault *Fault
	if !errors.As(err, &fault) {
		c.metrics.Inc(MetricCallTransportError)
		r.log.Error().Err(err).Int("attempt", r.attempts).Msg("transport failure")
		r.err = &TransportError{Method: r.method, Err: err}
		return stateFailed
	}

	if !c.isExpired(fault) {
		c.metrics.Inc(MetricCallFault)
		c.emitAudit(r.ctx, AuditEvent{
			EventType: AuditCallFault,
			RequestID: r.requestID,
			Method:    r.method,
			Error:     fault.Message,
			Metadata:  map[string]string{"kind": fault.Kind},
		})
		r.log.Info().Str("fault", fault.Message).Int("attempt", r.attempts).Msg("call fault")
		r.err = &CallError{Method: r.method, Attempts: r.attempts, Fault: fault}
		return stateFailed
	}

	c.metrics.Inc(MetricSessionExpired)
	c.emitAudit(r.ctx, AuditEvent{
		EventType: AuditSessionExpired,
		RequestID: r.requestID,
		Method:    r.method,
	})

	if r.attempts < c.config.Session.MaxAttempts {
		r.log.Info().Int("attempt", r.attempts).Msg("session expired, re-authenticating")
		return stateReauthenticating
	}

	c.metrics.Inc(MetricRetryExhausted)
	c.emitAudit(r.ctx, AuditEvent{
		EventType: AuditCallRetryExhausted,
		RequestID: r.requestID,
		Method:    r.method,
		Error:     fault.Message,
	})
	r.log.Warn().Int("attempt", r.attempts).Msg("session still expired after re-authentication")
	r.err = &CallError{Method: r.method, Attempts: r.attempts, Fault: fault, Err: errRetryExhaustedExpired}
	return stateFailed
}

func (r *callRun) reauthenticate() callState {
	c := r.client
	if err := c.EnsureSession(WithRequestID(r.ctx, r.requestID), true); err != nil {
		c.metrics.Inc(MetricReauthFailure)
		r.err = err
		return stateFailed
	}
	c.metrics.Inc(MetricReauthSuccess)
	return stateAwaitingTransport
}

func (r *callRun) decode() callState {
	c := r.client
	result, err := c.decoder.Decode(r.reply)
	if err != nil {
		if errors.Is(err, codec.ErrEmptyReply) {
			c.metrics.Inc(MetricEmptyReply)
		}
		r.log.Warn().Err(err).Msg("reply not decodable")
		r.err = &CallError{Method: r.method, Attempts: r.attempts, Err: err}
		return stateFailed
	}
	c.metrics.Inc(MetricCallSuccess)
	r.result = result
	return stateDone
}

func (c *Client) isExpired(f *Fault) bool {
	return f != nil && f.Message == c.config.Session.ExpiredFault
}

// Fingerprint returns the session fingerprint. It identifies the persisted
// cookie jar and reveals nothing about the credentials.
func (c *Client) Fingerprint() string {
	if c == nil {
		return ""
	}
	return c.fingerprint
}

// Charset returns the caller charset in effect.
func (c *Client) Charset() string {
	if c == nil {
		return ""
	}
	return c.transcoder.Name()
}

// Login returns the login the client authenticates as.
func (c *Client) Login() string {
	if c == nil {
		return ""
	}
	return c.credentials.Login
}

// MetricsSnapshot returns a copy of the client counters.
func (c *Client) MetricsSnapshot() MetricsSnapshot {
	if c == nil {
		return MetricsSnapshot{}
	}
	return c.metrics.Snapshot()
}

// AuditDropped returns the number of audit events dropped under backpressure.
func (c *Client) AuditDropped() uint64 {
	if c == nil {
		return 0
	}
	return c.audit.Dropped()
}

// Close flushes and stops the audit dispatcher. The transport is not closed.
func (c *Client) Close() {
	if c == nil {
		return
	}
	c.audit.Close()
}
