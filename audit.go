package goSoap

import (
	"context"
	"encoding/json"
	"io"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Audit event types.
const (
	AuditSessionCookiesLoaded = "session.cookies_loaded"
	AuditSessionLoginSuccess  = "session.login_success"
	AuditSessionLoginFailure  = "session.login_failure"
	AuditSessionExpired       = "session.expired"
	AuditSessionAdopted       = "session.adopted"
	AuditCallFault            = "call.fault"
	AuditCallRetryExhausted   = "call.retry_exhausted"
	AuditCodecDiagnostic      = "codec.diagnostic"
)

// AuditEvent is one security-relevant occurrence. It never carries
// passwords or cookie values; Fingerprint is the log-safe prefix.
type AuditEvent struct {
	Timestamp   time.Time         `json:"timestamp"`
	EventType   string            `json:"event_type"`
	RequestID   string            `json:"request_id,omitempty"`
	Method      string            `json:"method,omitempty"`
	Fingerprint string            `json:"fingerprint,omitempty"`
	Success     bool              `json:"success"`
	Error       string            `json:"error,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// AuditSink receives events from the dispatcher worker. Emit is never
// called concurrently by one client.
type AuditSink interface {
	Emit(ctx context.Context, event AuditEvent)
}

// SinkFunc adapts a function to AuditSink.
type SinkFunc func(ctx context.Context, event AuditEvent)

// Emit calls f.
func (f SinkFunc) Emit(ctx context.Context, event AuditEvent) { f(ctx, event) }

// NoOpSink discards every event.
type NoOpSink struct{}

// Emit does nothing.
func (NoOpSink) Emit(context.Context, AuditEvent) {}

// ChannelSink hands events to a reader of Events. Emit waits for buffer
// space until ctx is done.
type ChannelSink struct {
	events chan AuditEvent
}

func NewChannelSink(buffer int) *ChannelSink {
	return &ChannelSink{events: make(chan AuditEvent, max(buffer, 1))}
}

func (s *ChannelSink) Emit(ctx context.Context, event AuditEvent) {
	select {
	case s.events <- event:
	case <-ctx.Done():
	}
}

func (s *ChannelSink) Events() <-chan AuditEvent {
	return s.events
}

// JSONWriterSink writes one JSON object per line.
type JSONWriterSink struct {
	mu  sync.Mutex
	enc *json.Encoder
}

func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	if w == nil {
		return &JSONWriterSink{}
	}
	return &JSONWriterSink{enc: json.NewEncoder(w)}
}

func (s *JSONWriterSink) Emit(_ context.Context, event AuditEvent) {
	if s == nil || s.enc == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_ = s.enc.Encode(event)
}

// LoggerSink writes events as structured log entries: failures at warn
// level, everything else at info.
type LoggerSink struct {
	logger zerolog.Logger
}

func NewLoggerSink(logger zerolog.Logger) LoggerSink {
	return LoggerSink{logger: logger}
}

func (s LoggerSink) Emit(_ context.Context, event AuditEvent) {
	e := s.logger.Info()
	if !event.Success && event.Error != "" {
		e = s.logger.Warn().Str("error", event.Error)
	}
	e = e.Str("audit", event.EventType).
		Time("at", event.Timestamp).
		Bool("success", event.Success)
	if event.RequestID != "" {
		e = e.Str("request_id", event.RequestID)
	}
	if event.Method != "" {
		e = e.Str("method", event.Method)
	}
	if event.Fingerprint != "" {
		e = e.Str("fingerprint", event.Fingerprint)
	}
	for k, v := range event.Metadata {
		e = e.Str(k, v)
	}
	e.Msg("audit event")
}
