package prometheus

import (
	"net/http"
	"strconv"
	"strings"

	goSoap "github.com/MrEthical07/goSoap"
	"github.com/MrEthical07/goSoap/metrics/export/internaldefs"
)

// ContentType is the Prometheus text exposition format served by Handler.
const ContentType = "text/plain; version=0.0.4; charset=utf-8"

type metricsSource interface {
	MetricsSnapshot() goSoap.MetricsSnapshot
	AuditDropped() uint64
}

// PrometheusExporter renders client metrics in Prometheus text exposition format.
type PrometheusExporter struct {
	source metricsSource
}

// NewPrometheusExporter creates an exporter that reads from client.
func NewPrometheusExporter(client *goSoap.Client) *PrometheusExporter {
	if client == nil {
		return &PrometheusExporter{}
	}
	return &PrometheusExporter{source: client}
}

// NewPrometheusExporterFromSource creates an exporter from any snapshot source.
func NewPrometheusExporterFromSource(source metricsSource) *PrometheusExporter {
	return &PrometheusExporter{source: source}
}

// Handler serves Render on GET and HEAD.
func (p *PrometheusExporter) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			w.Header().Set("Allow", "GET, HEAD")
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		body := p.Render()
		w.Header().Set("Content-Type", ContentType)
		w.Header().Set("Cache-Control", "no-store")
		w.Header().Set("Content-Length", strconv.Itoa(len(body)))
		if r.Method == http.MethodHead {
			return
		}
		_, _ = w.Write([]byte(body))
	})
}

// Render returns the current metrics, or "" when nothing was recorded.
func (p *PrometheusExporter) Render() string {
	if p == nil || p.source == nil {
		return ""
	}

	snapshot := p.source.MetricsSnapshot()
	dropped := p.source.AuditDropped()
	if len(snapshot.Counters) == 0 && len(snapshot.Histograms) == 0 && dropped == 0 {
		return ""
	}

	w := textWriter{}
	w.b.Grow(4096)
	for _, def := range internaldefs.Defs {
		switch def.Kind {
		case internaldefs.KindCounter:
			w.family(def.Name, def.Help, "counter")
			w.sample(def.Name, "", snapshot.Counters[def.ID])
		case internaldefs.KindHistogram:
			buckets, ok := snapshot.Histograms[def.ID]
			if !ok {
				continue
			}
			w.histogram(def.Name, def.Help, internaldefs.Cumulative(buckets))
		}
	}
	w.family(internaldefs.AuditDroppedName, internaldefs.AuditDroppedHelp, "counter")
	w.sample(internaldefs.AuditDroppedName, "", dropped)

	return w.b.String()
}

type textWriter struct {
	b strings.Builder
}

func (w *textWriter) family(name, help, kind string) {
	w.b.WriteString("# HELP ")
	w.b.WriteString(name)
	w.b.WriteByte(' ')
	w.b.WriteString(escapeHelp(help))
	w.b.WriteString("\n# TYPE ")
	w.b.WriteString(name)
	w.b.WriteByte(' ')
	w.b.WriteString(kind)
	w.b.WriteByte('\n')
}

// sample writes one line; le, when set, becomes the only label.
func (w *textWriter) sample(name, le string, value uint64) {
	w.b.WriteString(name)
	if le != "" {
		w.b.WriteString(`{le="`)
		w.b.WriteString(le)
		w.b.WriteString(`"}`)
	}
	w.b.WriteByte(' ')
	w.b.WriteString(strconv.FormatUint(value, 10))
	w.b.WriteByte('\n')
}

func (w *textWriter) histogram(name, help string, buckets [internaldefs.BucketCount]internaldefs.Bucket) {
	w.family(name, help, "histogram")
	for _, bucket := range buckets {
		w.sample(name+"_bucket", bucket.LE, bucket.Count)
	}
	// Snapshots keep bucket counts only, so the sum is not known.
	w.sample(name+"_sum", "", 0)
	w.sample(name+"_count", "", buckets[len(buckets)-1].Count)
}

func escapeHelp(help string) string {
	return strings.NewReplacer(`\`, `\\`, "\n", `\n`).Replace(help)
}
