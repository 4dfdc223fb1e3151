package metrics

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"time"
)

// slowestTests is how many tests the JSON report ranks by duration.
const slowestTests = 5

// JSONReport is the document written by JSONExporter. Predicates are ranked
// by failure rate so the operators that fail most come first.
type JSONReport struct {
	Tool       string            `json:"tool"`
	Version    string            `json:"version"`
	StartedAt  time.Time         `json:"started_at"`
	FinishedAt time.Time         `json:"finished_at"`
	Summary    *AggregateMetrics `json:"summary"`
	Predicates []PredicateReport `json:"predicates"`
	Slowest    []*TestMetrics    `json:"slowest"`
	Tests      []*TestMetrics    `json:"tests"`
}

// PredicateReport is one operator's counts with its failure rate.
type PredicateReport struct {
	PredicateAggregate
	FailureRate float64 `json:"failure_rate"`
}

// JSONExporter writes a JSONReport to a file, a writer or both.
type JSONExporter struct {
	writer  io.Writer
	path    string
	version string
	started time.Time
	tests   []*TestMetrics
}

// JSONOption configures a JSONExporter.
type JSONOption func(*JSONExporter)

// WithJSONWriter also writes the report to w.
func WithJSONWriter(w io.Writer) JSONOption {
	return func(j *JSONExporter) { j.writer = w }
}

// WithJSONFile writes the report to path atomically.
func WithJSONFile(path string) JSONOption {
	return func(j *JSONExporter) { j.path = path }
}

// WithJSONVersion sets the version recorded in the report.
func WithJSONVersion(version string) JSONOption {
	return func(j *JSONExporter) { j.version = version }
}

func NewJSONExporter(opts ...JSONOption) *JSONExporter {
	j := &JSONExporter{version: "dev", started: time.Now()}
	for _, opt := range opts {
		opt(j)
	}
	return j
}

// ExportSingle keeps m for the report's test list.
func (j *JSONExporter) ExportSingle(m *TestMetrics) error {
	j.tests = append(j.tests, m)
	return nil
}

// Export writes the report for agg and the tests seen so far.
func (j *JSONExporter) Export(agg *AggregateMetrics) error {
	report := j.report(agg, time.Now())
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal metrics: %w", err)
	}
	data = append(data, '\n')

	if j.path != "" {
		if err := writeFileAtomic(j.path, data); err != nil {
			return fmt.Errorf("failed to write metrics file: %w", err)
		}
	}
	if j.writer != nil {
		if _, err := j.writer.Write(data); err != nil {
			return fmt.Errorf("failed to write metrics: %w", err)
		}
	}
	return nil
}

func (j *JSONExporter) report(agg *AggregateMetrics, now time.Time) *JSONReport {
	tests := j.tests
	if tests == nil {
		tests = []*TestMetrics{}
	}
	return &JSONReport{
		Tool:       "domspec",
		Version:    j.version,
		StartedAt:  j.started.UTC(),
		FinishedAt: now.UTC(),
		Summary:    agg,
		Predicates: rankPredicates(agg.ByPredicate),
		Slowest:    slowest(tests, slowestTests),
		Tests:      tests,
	}
}

func rankPredicates(by map[string]*PredicateAggregate) []PredicateReport {
	out := make([]PredicateReport, 0, len(by))
	for _, p := range by {
		r := PredicateReport{PredicateAggregate: *p}
		if p.Evaluated > 0 {
			r.FailureRate = float64(p.Failed) / float64(p.Evaluated)
		}
		out = append(out, r)
	}
	sort.Slice(out, func(a, b int) bool {
		if out[a].FailureRate != out[b].FailureRate {
			return out[a].FailureRate > out[b].FailureRate
		}
		return out[a].Operator < out[b].Operator
	})
	return out
}

// slowest returns up to n tests that ran, longest first.
func slowest(tests []*TestMetrics, n int) []*TestMetrics {
	ran := make([]*TestMetrics, 0, len(tests))
	for _, t := range tests {
		if !t.Skipped {
			ran = append(ran, t)
		}
	}
	sort.SliceStable(ran, func(a, b int) bool {
		return ran[a].DurationMs > ran[b].DurationMs
	})
	if len(ran) > n {
		ran = ran[:n]
	}
	return ran
}

func (j *JSONExporter) Close() error {
	return nil
}
