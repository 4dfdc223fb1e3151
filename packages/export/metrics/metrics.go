// Package metrics aggregates run results into metrics and exports them as
// Prometheus text or JSON.
package metrics

import (
	"sync"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
	"github.com/abdul-hamid-achik/domspec/packages/core/runner"
)

// Test durations are recorded in microseconds, up to one minute.
const (
	minDurationUs = 1
	maxDurationUs = 60_000_000
	sigFigs       = 3
)

// TestMetrics represents metrics collected from one test
type TestMetrics struct {
	Suite          string    `json:"suite"`
	File           string    `json:"file"`
	TestName       string    `json:"test_name"`
	DurationMs     float64   `json:"duration_ms"`
	Passed         bool      `json:"passed"`
	Skipped        bool      `json:"skipped"`
	Errored        bool      `json:"errored"`
	AssertionCount int       `json:"assertion_count"`
	FailedCount    int       `json:"failed_count"`
	Timestamp      time.Time `json:"timestamp"`
}

// AggregateMetrics represents metrics aggregated over a run
type AggregateMetrics struct {
	TotalTests       int64                          `json:"total_tests"`
	PassedCount      int64                          `json:"passed_count"`
	FailedCount      int64                          `json:"failed_count"`
	SkippedCount     int64                          `json:"skipped_count"`
	ErrorCount       int64                          `json:"error_count"`
	TotalAssertions  int64                          `json:"total_assertions"`
	FailedAssertions int64                          `json:"failed_assertions"`
	TotalDurationMs  float64                        `json:"total_duration_ms"`
	MinDurationMs    float64                        `json:"min_duration_ms"`
	MaxDurationMs    float64                        `json:"max_duration_ms"`
	AvgDurationMs    float64                        `json:"avg_duration_ms"`
	P50DurationMs    float64                        `json:"p50_duration_ms"`
	P95DurationMs    float64                        `json:"p95_duration_ms"`
	P99DurationMs    float64                        `json:"p99_duration_ms"`
	BySuite          map[string]*SuiteAggregate     `json:"by_suite"`
	ByPredicate      map[string]*PredicateAggregate `json:"by_predicate"`
}

// SuiteAggregate represents aggregated metrics for a single suite
type SuiteAggregate struct {
	Name         string  `json:"name"`
	TotalTests   int64   `json:"total_tests"`
	PassedCount  int64   `json:"passed_count"`
	FailedCount  int64   `json:"failed_count"`
	SkippedCount int64   `json:"skipped_count"`
	DurationMs   float64 `json:"duration_ms"`
}

// PredicateAggregate counts evaluations of one operator, e.g. "not attr -> equal".
type PredicateAggregate struct {
	Operator  string `json:"operator"`
	Evaluated int64  `json:"evaluated"`
	Failed    int64  `json:"failed"`
}

// Exporter is the interface for metrics exporters
type Exporter interface {
	// Export exports metrics to the target destination
	Export(metrics *AggregateMetrics) error

	// ExportSingle exports a single test metric
	ExportSingle(metric *TestMetrics) error

	// Close closes the exporter and flushes any buffered data
	Close() error
}

// Collector collects metrics from run results
type Collector struct {
	mu        sync.Mutex
	metrics   []*TestMetrics
	aggregate *AggregateMetrics
	histogram *hdrhistogram.Histogram
	exporters []Exporter
}

// NewCollector creates a new metrics collector
func NewCollector(exporters ...Exporter) *Collector {
	return &Collector{
		metrics:   make([]*TestMetrics, 0),
		exporters: exporters,
		histogram: hdrhistogram.New(minDurationUs, maxDurationUs, sigFigs),
		aggregate: newAggregate(),
	}
}

func newAggregate() *AggregateMetrics {
	return &AggregateMetrics{
		BySuite:     make(map[string]*SuiteAggregate),
		ByPredicate: make(map[string]*PredicateAggregate),
	}
}

// RecordRun records every test of a suite run.
func (c *Collector) RecordRun(rr *runner.RunResult) {
	c.mu.Lock()
	suite := c.suite(rr.Suite)
	suite.DurationMs += durationMs(rr.Duration)
	c.mu.Unlock()

	for _, tr := range rr.Results {
		m := &TestMetrics{
			Suite:      rr.Suite,
			File:       rr.File,
			TestName:   tr.Name,
			DurationMs: durationMs(tr.Duration),
			Passed:     tr.Passed,
			Skipped:    tr.Skipped,
			Errored:    tr.Error != nil,
			Timestamp:  time.Now(),
		}
		c.mu.Lock()
		for _, a := range tr.Assertions {
			m.AssertionCount++
			p := c.predicate(a.Operator)
			p.Evaluated++
			if !a.Passed {
				m.FailedCount++
				p.Failed++
			}
		}
		c.mu.Unlock()
		c.Record(m)
	}
}

// Record records a test metric
func (c *Collector) Record(m *TestMetrics) {
	c.mu.Lock()
	c.metrics = append(c.metrics, m)
	c.updateAggregate(m)
	c.mu.Unlock()

	// Export to all exporters
	for _, exp := range c.exporters {
		_ = exp.ExportSingle(m)
	}
}

func (c *Collector) suite(name string) *SuiteAggregate {
	s, ok := c.aggregate.BySuite[name]
	if !ok {
		s = &SuiteAggregate{Name: name}
		c.aggregate.BySuite[name] = s
	}
	return s
}

func (c *Collector) predicate(operator string) *PredicateAggregate {
	p, ok := c.aggregate.ByPredicate[operator]
	if !ok {
		p = &PredicateAggregate{Operator: operator}
		c.aggregate.ByPredicate[operator] = p
	}
	return p
}

func (c *Collector) updateAggregate(m *TestMetrics) {
	agg := c.aggregate
	agg.TotalTests++
	agg.TotalAssertions += int64(m.AssertionCount)
	agg.FailedAssertions += int64(m.FailedCount)

	suite := c.suite(m.Suite)
	suite.TotalTests++

	switch {
	case m.Skipped:
		agg.SkippedCount++
		suite.SkippedCount++
		// Skipped tests take no time worth measuring.
		return
	case m.Passed:
		agg.PassedCount++
		suite.PassedCount++
	default:
		agg.FailedCount++
		suite.FailedCount++
		if m.Errored {
			agg.ErrorCount++
		}
	}

	timed := agg.PassedCount + agg.FailedCount
	agg.TotalDurationMs += m.DurationMs
	if timed == 1 {
		agg.MinDurationMs = m.DurationMs
		agg.MaxDurationMs = m.DurationMs
	} else {
		if m.DurationMs < agg.MinDurationMs {
			agg.MinDurationMs = m.DurationMs
		}
		if m.DurationMs > agg.MaxDurationMs {
			agg.MaxDurationMs = m.DurationMs
		}
	}
	agg.AvgDurationMs = agg.TotalDurationMs / float64(timed)

	us := int64(m.DurationMs * 1000)
	if us < minDurationUs {
		us = minDurationUs
	}
	_ = c.histogram.RecordValue(us)
	agg.P50DurationMs = float64(c.histogram.ValueAtQuantile(50)) / 1000
	agg.P95DurationMs = float64(c.histogram.ValueAtQuantile(95)) / 1000
	agg.P99DurationMs = float64(c.histogram.ValueAtQuantile(99)) / 1000
}

// GetAggregate returns the aggregated metrics
func (c *Collector) GetAggregate() *AggregateMetrics {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.aggregate
}

// Tests returns the per-test metrics recorded so far.
func (c *Collector) Tests() []*TestMetrics {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*TestMetrics(nil), c.metrics...)
}

// Flush exports all aggregated metrics
func (c *Collector) Flush() error {
	agg := c.GetAggregate()
	for _, exp := range c.exporters {
		if err := exp.Export(agg); err != nil {
			return err
		}
	}
	return nil
}

// Close closes all exporters
func (c *Collector) Close() error {
	for _, exp := range c.exporters {
		if err := exp.Close(); err != nil {
			return err
		}
	}
	return nil
}

func durationMs(d time.Duration) float64 {
	return float64(d.Microseconds()) / 1000
}
