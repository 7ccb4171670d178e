package otel

import (
	"context"
	"errors"
	"fmt"

	goSoap "github.com/MrEthical07/goSoap"
	"github.com/MrEthical07/goSoap/metrics/export/internaldefs"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	ErrNilMeter  = errors.New("nil meter")
	ErrNilSource = errors.New("nil metrics source")
)

type metricsSource interface {
	MetricsSnapshot() goSoap.MetricsSnapshot
	AuditDropped() uint64
}

// Option configures an OTelExporter.
type Option func(*options)

type options struct {
	attrs []attribute.KeyValue
}

// WithAttributes attaches attrs to every observation, for example the
// endpoint or the service name when one process runs several clients.
func WithAttributes(attrs ...attribute.KeyValue) Option {
	return func(o *options) {
		o.attrs = append(o.attrs, attrs...)
	}
}

// reading extracts one value from a collection pass.
type reading func(snapshot goSoap.MetricsSnapshot, dropped uint64) uint64

type observation struct {
	instrument metric.Int64Observable
	read       reading
}

// OTelExporter observes a client on every collection. Counters map to
// observable counters; each cumulative latency bucket is a gauge of its own.
type OTelExporter struct {
	source       metricsSource
	observe      metric.ObserveOption
	observations []observation
	registration metric.Registration
}

// NewOTelExporter registers instruments on meter that observe client.
func NewOTelExporter(meter metric.Meter, client *goSoap.Client, opts ...Option) (*OTelExporter, error) {
	if client == nil {
		return nil, ErrNilSource
	}
	return NewOTelExporterFromSource(meter, client, opts...)
}

// NewOTelExporterFromSource is NewOTelExporter for any snapshot source.
func NewOTelExporterFromSource(meter metric.Meter, source metricsSource, opts ...Option) (*OTelExporter, error) {
	if meter == nil {
		return nil, ErrNilMeter
	}
	if source == nil {
		return nil, ErrNilSource
	}

	var o options
	for _, opt := range opts {
		opt(&o)
	}

	e := &OTelExporter{
		source:  source,
		observe: metric.WithAttributes(o.attrs...),
	}

	for _, def := range internaldefs.Defs {
		var err error
		switch def.Kind {
		case internaldefs.KindCounter:
			err = e.addCounter(meter, def.Name, def.Help, counterReading(def.ID))
		case internaldefs.KindHistogram:
			err = e.addHistogram(meter, def)
		}
		if err != nil {
			return nil, err
		}
	}
	err := e.addCounter(meter, internaldefs.AuditDroppedName, internaldefs.AuditDroppedHelp,
		func(_ goSoap.MetricsSnapshot, dropped uint64) uint64 { return dropped })
	if err != nil {
		return nil, err
	}

	instruments := make([]metric.Observable, len(e.observations))
	for i, obs := range e.observations {
		instruments[i] = obs.instrument
	}
	e.registration, err = meter.RegisterCallback(e.collect, instruments...)
	if err != nil {
		return nil, fmt.Errorf("register callback: %w", err)
	}
	return e, nil
}

func counterReading(id goSoap.MetricID) reading {
	return func(snapshot goSoap.MetricsSnapshot, _ uint64) uint64 {
		return snapshot.Counters[id]
	}
}

func (e *OTelExporter) addCounter(meter metric.Meter, name, help string, read reading) error {
	ins, err := meter.Int64ObservableCounter(name, metric.WithDescription(help))
	if err != nil {
		return fmt.Errorf("create observable counter %s: %w", name, err)
	}
	e.observations = append(e.observations, observation{instrument: ins, read: read})
	return nil
}

func (e *OTelExporter) addGauge(meter metric.Meter, name, help string, read reading) error {
	ins, err := meter.Int64ObservableGauge(name, metric.WithDescription(help))
	if err != nil {
		return fmt.Errorf("create observable gauge %s: %w", name, err)
	}
	e.observations = append(e.observations, observation{instrument: ins, read: read})
	return nil
}

func (e *OTelExporter) addHistogram(meter metric.Meter, def internaldefs.Def) error {
	for i, bucket := range internaldefs.Cumulative(nil) {
		err := e.addGauge(meter, def.Name+"_bucket_le_"+bucket.Suffix, "Cumulative latency bucket count.",
			func(snapshot goSoap.MetricsSnapshot, _ uint64) uint64 {
				return internaldefs.Cumulative(snapshot.Histograms[def.ID])[i].Count
			})
		if err != nil {
			return err
		}
	}
	return e.addGauge(meter, def.Name+"_count", "Calls observed by the latency histogram.",
		func(snapshot goSoap.MetricsSnapshot, _ uint64) uint64 {
			return internaldefs.Cumulative(snapshot.Histograms[def.ID])[internaldefs.BucketCount-1].Count
		})
}

func (e *OTelExporter) collect(_ context.Context, observer metric.Observer) error {
	snapshot := e.source.MetricsSnapshot()
	dropped := e.source.AuditDropped()
	for _, obs := range e.observations {
		observer.ObserveInt64(obs.instrument, int64(obs.read(snapshot, dropped)), e.observe)
	}
	return nil
}

// Close unregisters the collection callback.
func (e *OTelExporter) Close() error {
	if e == nil || e.registration == nil {
		return nil
	}
	return e.registration.Unregister()
}
