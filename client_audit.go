package goSoap

import (
	"context"

	"github.com/MrEthical07/goSoap/codec"
	"github.com/MrEthical07/goSoap/cookie"
)

func (c *Client) emitAudit(ctx context.Context, event AuditEvent) {
	if c == nil || c.audit == nil {
		return
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = c.now()
	}
	if event.Fingerprint == "" {
		event.Fingerprint = cookie.Short(c.fingerprint)
	}
	if event.RequestID == "" && ctx != nil {
		if id, _ := ctx.Value(requestIDContextKey{}).(string); id != "" {
			event.RequestID = id
		}
	}
	c.audit.Emit(ctx, event)
}

// reportDiagnostics fans encoder diagnostics out to logs, metrics, audit and
// the registered handler.
func (c *Client) reportDiagnostics(ctx context.Context, requestID, method string, diags []codec.Diagnostic) {
	if len(diags) == 0 {
		return
	}
	for _, d := range diags {
		c.metrics.Inc(MetricValidationDiagnostic)
		c.logger.Warn().
			Str("request_id", requestID).
			Str("method", method).
			Str("path", d.Path).
			Str("reason", string(d.Reason)).
			Msg(d.Message)
		c.emitAudit(ctx, AuditEvent{
			EventType: AuditCodecDiagnostic,
			RequestID: requestID,
			Method:    method,
			Error:     d.Message,
			Metadata: map[string]string{
				"path":   d.Path,
				"reason": string(d.Reason),
			},
		})
	}
	if c.onDiagnostic != nil {
		c.onDiagnostic(ctx, method, diags)
	}
}
