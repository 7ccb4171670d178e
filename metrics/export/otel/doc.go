// Package otel exports goSoap client metrics through an OpenTelemetry Meter.
//
// [NewOTelExporter] registers one Int64ObservableCounter per client counter
// and one Int64ObservableGauge per cumulative latency bucket. A single
// callback reads [goSoap.Client.MetricsSnapshot] on each collection cycle;
// [WithAttributes] tags every observation.
//
// # What this package must NOT do
//
//   - Own the MeterProvider; callers supply the Meter.
//   - Mutate client state.
package otel
