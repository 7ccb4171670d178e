package goSoap

import (
	"sync/atomic"
	"time"
)

// MetricID names one client counter or histogram.
type MetricID uint16

const (
	// MetricCallSuccess counts calls that returned a decoded reply.
	MetricCallSuccess MetricID = iota
	// MetricCallFault counts calls that ended in a non-expiry fault.
	MetricCallFault
	// MetricCallTransportError counts calls that failed below the protocol.
	MetricCallTransportError
	// MetricSessionExpired counts expiry faults seen by calls.
	MetricSessionExpired
	// MetricReauthSuccess counts successful re-authentications inside a call.
	MetricReauthSuccess
	// MetricReauthFailure counts failed re-authentications inside a call.
	MetricReauthFailure
	// MetricLoginSuccess counts fresh logins.
	MetricLoginSuccess
	// MetricLoginFailure counts failed logins.
	MetricLoginFailure
	// MetricLoginRateLimited counts logins refused by the throttle.
	MetricLoginRateLimited
	// MetricCookieLoaded counts sessions restored from the cookie store.
	MetricCookieLoaded
	// MetricCookiePersisted counts jars appended to the cookie store.
	MetricCookiePersisted
	// MetricRetryExhausted counts calls that kept expiring after re-authentication.
	MetricRetryExhausted
	// MetricValidationDiagnostic counts encoder diagnostics.
	MetricValidationDiagnostic
	// MetricEmptyReply counts replies with no fields.
	MetricEmptyReply
	// MetricCallLatency is the call latency histogram.
	MetricCallLatency
	metricIDCount
)

// latencyBounds are the inclusive upper bounds of the latency buckets; a
// final bucket holds everything slower.
var latencyBounds = [...]time.Duration{
	10 * time.Millisecond,
	25 * time.Millisecond,
	50 * time.Millisecond,
	100 * time.Millisecond,
	250 * time.Millisecond,
	500 * time.Millisecond,
	time.Second,
}

const latencyBucketCount = len(latencyBounds) + 1

// counterSlot keeps each counter on its own cache line so that concurrent
// calls do not contend on neighbouring counters.
type counterSlot struct {
	n atomic.Uint64
	_ [56]byte
}

// Metrics holds lock-free client counters and the call latency histogram.
// A nil or disabled Metrics ignores every update.
type Metrics struct {
	enabled bool
	latency bool
	slots   [metricIDCount]counterSlot
	buckets [latencyBucketCount]atomic.Uint64
}

// MetricsSnapshot is a point-in-time copy of a Metrics. Histograms holds raw
// per-bucket counts keyed by MetricCallLatency when latency is recorded.
type MetricsSnapshot struct {
	Counters   map[MetricID]uint64
	Histograms map[MetricID][]uint64
}

// NewMetrics creates a counter set.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{
		enabled: cfg.Enabled,
		latency: cfg.Enabled && cfg.EnableLatencyHistograms,
	}
}

// Enabled reports whether counters are recorded.
func (m *Metrics) Enabled() bool {
	return m != nil && m.enabled
}

// LatencyEnabled reports whether the latency histogram is recorded.
func (m *Metrics) LatencyEnabled() bool {
	return m != nil && m.latency
}

// Inc adds one to a counter.
func (m *Metrics) Inc(id MetricID) {
	if !m.Enabled() || id >= metricIDCount || id == MetricCallLatency {
		return
	}
	m.slots[id].n.Add(1)
}

// Observe records d in the histogram of id. Only MetricCallLatency has one.
func (m *Metrics) Observe(id MetricID, d time.Duration) {
	if !m.LatencyEnabled() || id != MetricCallLatency {
		return
	}
	m.buckets[latencyBucket(d)].Add(1)
}

// Value returns the current value of a counter.
func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= metricIDCount {
		return 0
	}
	return m.slots[id].n.Load()
}

// Snapshot copies every counter and, when enabled, the latency buckets.
func (m *Metrics) Snapshot() MetricsSnapshot {
	s := MetricsSnapshot{
		Counters:   map[MetricID]uint64{},
		Histograms: map[MetricID][]uint64{},
	}
	if !m.Enabled() {
		return s
	}
	for id := MetricID(0); id < metricIDCount; id++ {
		if id != MetricCallLatency {
			s.Counters[id] = m.slots[id].n.Load()
		}
	}
	if m.latency {
		raw := make([]uint64, latencyBucketCount)
		for i := range raw {
			raw[i] = m.buckets[i].Load()
		}
		s.Histograms[MetricCallLatency] = raw
	}
	return s
}

func latencyBucket(d time.Duration) int {
	for i, bound := range latencyBounds {
		if d <= bound {
			return i
		}
	}
	return len(latencyBounds)
}
