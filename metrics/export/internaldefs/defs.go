package internaldefs

import (
	goSoap "github.com/MrEthical07/goSoap"
)

// Kind distinguishes counter families from histogram families.
type Kind uint8

const (
	KindCounter Kind = iota
	KindHistogram
)

// Def names one exported metric family.
type Def struct {
	ID   goSoap.MetricID
	Kind Kind
	Name string
	Help string
}

// Defs lists every client family in render order, counters first.
var Defs = []Def{
	counter(goSoap.MetricCallSuccess, "call_success", "Calls that returned a decoded reply."),
	counter(goSoap.MetricCallFault, "call_fault", "Calls that ended in a service fault."),
	counter(goSoap.MetricCallTransportError, "call_transport_error", "Calls that failed in the transport."),
	counter(goSoap.MetricSessionExpired, "session_expired", "Session expiry faults seen by calls."),
	counter(goSoap.MetricReauthSuccess, "reauth_success", "Successful re-authentications during calls."),
	counter(goSoap.MetricReauthFailure, "reauth_failure", "Failed re-authentications during calls."),
	counter(goSoap.MetricLoginSuccess, "login_success", "Fresh logins."),
	counter(goSoap.MetricLoginFailure, "login_failure", "Failed logins."),
	counter(goSoap.MetricLoginRateLimited, "login_rate_limited", "Logins refused by the login throttle."),
	counter(goSoap.MetricCookieLoaded, "cookie_loaded", "Sessions restored from the cookie store."),
	counter(goSoap.MetricCookiePersisted, "cookie_persisted", "Cookie jars appended to the cookie store."),
	counter(goSoap.MetricRetryExhausted, "retry_exhausted", "Calls whose session kept expiring after re-authentication."),
	counter(goSoap.MetricValidationDiagnostic, "validation_diagnostic", "Parameter values dropped or rejected by the encoder."),
	counter(goSoap.MetricEmptyReply, "empty_reply", "Replies without any field."),
	{ID: goSoap.MetricCallLatency, Kind: KindHistogram, Name: Namespace + "_call_latency_seconds", Help: "Call latency, re-authentication included."},
}

// Namespace prefixes every family name.
const Namespace = "gosoap"

// AuditDroppedName is the family of audit events lost to backpressure.
const AuditDroppedName = Namespace + "_audit_dropped_total"

// AuditDroppedHelp describes AuditDroppedName.
const AuditDroppedHelp = "Audit events dropped by the dispatcher."

func counter(id goSoap.MetricID, name, help string) Def {
	return Def{ID: id, Kind: KindCounter, Name: Namespace + "_" + name + "_total", Help: help}
}

// BucketCount is the number of latency buckets in a snapshot.
const BucketCount = 8

// Bucket is one cumulative latency bucket.
type Bucket struct {
	// LE is the Prometheus upper bound label.
	LE string
	// Suffix is LE made safe for an instrument name.
	Suffix string
	Count  uint64
}

var bucketBounds = [BucketCount]struct{ le, suffix string }{
	{"0.01", "0_01"},
	{"0.025", "0_025"},
	{"0.05", "0_05"},
	{"0.1", "0_1"},
	{"0.25", "0_25"},
	{"0.5", "0_5"},
	{"1", "1"},
	{"+Inf", "inf"},
}

// Cumulative turns the raw per-bucket counts of a snapshot into cumulative
// buckets. Missing counts read as zero; the last bucket is the total.
func Cumulative(raw []uint64) [BucketCount]Bucket {
	var out [BucketCount]Bucket
	var running uint64
	for i := range out {
		if i < len(raw) {
			running += raw[i]
		}
		out[i] = Bucket{LE: bucketBounds[i].le, Suffix: bucketBounds[i].suffix, Count: running}
	}
	return out
}
