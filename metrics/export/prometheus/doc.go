// Package prometheus renders goSoap client metrics in the Prometheus text
// exposition format.
//
// [NewPrometheusExporter] accepts a [goSoap.Client] and exposes an
// [http.Handler]. Counter names are prefixed gosoap_*_total; the single
// histogram is gosoap_call_latency_seconds.
//
// # What this package must NOT do
//
//   - Register metrics in a global Prometheus registry; callers mount the Handler.
//   - Mutate client state.
package prometheus
