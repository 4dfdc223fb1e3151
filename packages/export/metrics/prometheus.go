package metrics

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// PrometheusExporter writes metrics in the Prometheus text exposition
// format, suitable for the node_exporter textfile collector.
type PrometheusExporter struct {
	mu       sync.Mutex
	writer   io.Writer
	filePath string
	prefix   string
	labels   map[string]string
}

// PrometheusOption is a functional option for PrometheusExporter
type PrometheusOption func(*PrometheusExporter)

// WithPrometheusWriter sets the output writer for Prometheus metrics
func WithPrometheusWriter(w io.Writer) PrometheusOption {
	return func(p *PrometheusExporter) {
		p.writer = w
	}
}

// WithPrometheusFile writes metrics to path, replacing it atomically so a
// collector never reads a partial file.
func WithPrometheusFile(path string) PrometheusOption {
	return func(p *PrometheusExporter) {
		p.filePath = path
	}
}

// WithPrometheusPrefix sets the metric name prefix
func WithPrometheusPrefix(prefix string) PrometheusOption {
	return func(p *PrometheusExporter) {
		p.prefix = prefix
	}
}

// WithPrometheusLabels adds constant labels to every sample
func WithPrometheusLabels(labels map[string]string) PrometheusOption {
	return func(p *PrometheusExporter) {
		p.labels = labels
	}
}

// NewPrometheusExporter creates a new Prometheus metrics exporter
func NewPrometheusExporter(opts ...PrometheusOption) *PrometheusExporter {
	p := &PrometheusExporter{prefix: "domspec"}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Export writes the aggregated metrics
func (p *PrometheusExporter) Export(metrics *AggregateMetrics) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var buf bytes.Buffer
	p.writeMetrics(&buf, metrics)

	if p.filePath != "" {
		if err := writeFileAtomic(p.filePath, buf.Bytes()); err != nil {
			return fmt.Errorf("failed to write metrics file: %w", err)
		}
	}
	if p.writer != nil {
		if _, err := p.writer.Write(buf.Bytes()); err != nil {
			return fmt.Errorf("failed to write metrics: %w", err)
		}
	}
	return nil
}

// ExportSingle is a no-op; Prometheus output is written from the aggregate.
func (p *PrometheusExporter) ExportSingle(*TestMetrics) error {
	return nil
}

// Close closes the exporter
func (p *PrometheusExporter) Close() error {
	return nil
}

func (p *PrometheusExporter) writeMetrics(w io.Writer, m *AggregateMetrics) {
	p.header(w, "tests_total", "counter", "Tests by outcome")
	p.sample(w, "tests_total", m.PassedCount, "status", "passed")
	p.sample(w, "tests_total", m.FailedCount-m.ErrorCount, "status", "failed")
	p.sample(w, "tests_total", m.ErrorCount, "status", "error")
	p.sample(w, "tests_total", m.SkippedCount, "status", "skipped")
	fmt.Fprintln(w)

	p.header(w, "assertions_total", "counter", "Assertions evaluated")
	p.sample(w, "assertions_total", m.TotalAssertions)
	fmt.Fprintln(w)

	p.header(w, "assertions_failed_total", "counter", "Assertions that did not hold")
	p.sample(w, "assertions_failed_total", m.FailedAssertions)
	fmt.Fprintln(w)

	p.header(w, "test_duration_ms", "gauge", "Test duration in milliseconds")
	p.sampleFloat(w, "test_duration_ms", m.MinDurationMs, "quantile", "min")
	p.sampleFloat(w, "test_duration_ms", m.MaxDurationMs, "quantile", "max")
	p.sampleFloat(w, "test_duration_ms", m.AvgDurationMs, "quantile", "avg")
	if m.P50DurationMs > 0 {
		p.sampleFloat(w, "test_duration_ms", m.P50DurationMs, "quantile", "0.50")
	}
	if m.P95DurationMs > 0 {
		p.sampleFloat(w, "test_duration_ms", m.P95DurationMs, "quantile", "0.95")
	}
	if m.P99DurationMs > 0 {
		p.sampleFloat(w, "test_duration_ms", m.P99DurationMs, "quantile", "0.99")
	}
	fmt.Fprintln(w)

	if len(m.BySuite) > 0 {
		names := sortedKeys(m.BySuite)

		p.header(w, "suite_tests_total", "counter", "Tests per suite by outcome")
		for _, name := range names {
			s := m.BySuite[name]
			p.sample(w, "suite_tests_total", s.PassedCount, "suite", name, "status", "passed")
			p.sample(w, "suite_tests_total", s.FailedCount, "suite", name, "status", "failed")
			p.sample(w, "suite_tests_total", s.SkippedCount, "suite", name, "status", "skipped")
		}
		fmt.Fprintln(w)

		p.header(w, "suite_duration_ms", "gauge", "Suite duration in milliseconds")
		for _, name := range names {
			p.sampleFloat(w, "suite_duration_ms", m.BySuite[name].DurationMs, "suite", name)
		}
		fmt.Fprintln(w)
	}

	if len(m.ByPredicate) > 0 {
		ops := sortedKeys(m.ByPredicate)

		p.header(w, "predicate_evaluations_total", "counter", "Evaluations per operator")
		for _, op := range ops {
			p.sample(w, "predicate_evaluations_total", m.ByPredicate[op].Evaluated, "operator", op)
		}
		fmt.Fprintln(w)

		p.header(w, "predicate_failures_total", "counter", "Failed evaluations per operator")
		for _, op := range ops {
			p.sample(w, "predicate_failures_total", m.ByPredicate[op].Failed, "operator", op)
		}
	}
}

func (p *PrometheusExporter) header(w io.Writer, name, typ, help string) {
	fmt.Fprintf(w, "# HELP %s_%s %s\n", p.prefix, name, help)
	fmt.Fprintf(w, "# TYPE %s_%s %s\n", p.prefix, name, typ)
}

func (p *PrometheusExporter) sample(w io.Writer, name string, v int64, kv ...string) {
	fmt.Fprintf(w, "%s_%s%s %d\n", p.prefix, name, p.labelSet(kv...), v)
}

func (p *PrometheusExporter) sampleFloat(w io.Writer, name string, v float64, kv ...string) {
	fmt.Fprintf(w, "%s_%s%s %.2f\n", p.prefix, name, p.labelSet(kv...), v)
}

// labelSet renders the constant labels followed by kv pairs.
func (p *PrometheusExporter) labelSet(kv ...string) string {
	var parts []string
	for _, k := range sortedKeys(p.labels) {
		parts = append(parts, fmt.Sprintf("%s=\"%s\"", k, sanitizeLabel(p.labels[k])))
	}
	for i := 0; i+1 < len(kv); i += 2 {
		parts = append(parts, fmt.Sprintf("%s=\"%s\"", kv[i], sanitizeLabel(kv[i+1])))
	}
	if len(parts) == 0 {
		return ""
	}
	return "{" + strings.Join(parts, ",") + "}"
}

// sanitizeLabel makes a string safe for use as a Prometheus label value
func sanitizeLabel(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "\"", "\\\"")
	s = strings.ReplaceAll(s, "\n", "\\n")
	return s
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}
