package runner

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/abdul-hamid-achik/domspec/packages/assertions"
	"github.com/abdul-hamid-achik/domspec/packages/capture"
	"github.com/abdul-hamid-achik/domspec/packages/core/env"
	"github.com/abdul-hamid-achik/domspec/packages/core/parser"
	"github.com/abdul-hamid-achik/domspec/packages/dom"
	"github.com/abdul-hamid-achik/domspec/packages/snapshot"
	"github.com/sirupsen/logrus"
)

// DefaultConcurrency is the default number of tests run at once in parallel mode
const DefaultConcurrency = 5

type Runner struct {
	config *Config
	log    logrus.FieldLogger
}

type Config struct {
	Environment  string
	Environments map[string]map[string]any
	EnvFile      string

	// Variables override suite variables of the same name.
	Variables map[string]any

	Verbose     bool
	Bail        bool
	DryRun      bool
	NameFilter  string
	TagsFilter  []string
	Parallel    bool
	Concurrency int

	// Snapshots compares subjects of tests with snapshot: true. A manager
	// that never writes is used when nil.
	Snapshots *snapshot.Manager

	Logger logrus.FieldLogger
}

func NewRunner(cfg *Config) *Runner {
	if cfg == nil {
		cfg = &Config{}
	}
	log := cfg.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}
	if cfg.Snapshots == nil {
		cfg.Snapshots = snapshot.NewManager(false)
	}
	return &Runner{
		config: cfg,
		log:    log,
	}
}

type RunResult struct {
	File     string
	Suite    string
	Results  []*TestResult
	Duration time.Duration
	Passed   int
	Failed   int
	Skipped  int
}

type TestResult struct {
	Name        string
	Tags        []string
	Line        int
	Passed      bool
	Skipped     bool
	SkipReason  string
	Duration    time.Duration
	Subject     string
	SubjectKind string
	Assertions  []*assertions.Result
	Captures    map[string]any
	Error       error
}

// Failed reports whether the test ran and did not pass.
func (t *TestResult) Failed() bool {
	return !t.Passed && !t.Skipped
}

func (r *Runner) RunFile(path string) (*RunResult, error) {
	suite, err := parser.ParseFile(path)
	if err != nil {
		return nil, fmt.Errorf("parsing file: %w", err)
	}
	return r.RunSuite(suite)
}

// RunSuite runs an already parsed suite.
func (r *Runner) RunSuite(suite *parser.Suite) (*RunResult, error) {
	if err := suite.CheckPredicates(KnownPredicate); err != nil {
		return nil, fmt.Errorf("parsing file: %w", err)
	}

	resolver, err := r.resolverFor(suite)
	if err != nil {
		return nil, err
	}

	log := r.log.WithField("file", suite.Path)
	log.WithField("tests", len(suite.Tests)).Debug("running suite")

	result, err := r.runTests(suite, resolver, log)
	if err != nil {
		return nil, err
	}

	log.WithFields(logrus.Fields{
		"passed":   result.Passed,
		"failed":   result.Failed,
		"skipped":  result.Skipped,
		"duration": result.Duration,
	}).Debug("suite finished")
	return result, nil
}

// KnownPredicate reports whether name is a registered predicate or alias.
func KnownPredicate(name string) bool {
	_, ok := assertions.Lookup(name)
	return ok
}

// resolverFor layers variables, lowest precedence first: .env file, the
// selected environment, suite variables, then runner overrides.
func (r *Runner) resolverFor(suite *parser.Suite) (*env.Resolver, error) {
	resolver := env.NewResolver()
	resolver.SetWarnFunc(func(format string, args ...any) {
		r.log.WithField("file", suite.Path).Warnf(format, args...)
	})

	if r.config.EnvFile != "" {
		vars, err := env.LoadAndExportDotEnv(r.config.EnvFile)
		if err != nil {
			return nil, fmt.Errorf("loading env file: %w", err)
		}
		resolver.SetVariables(env.FromStrings(vars))
	}

	environment, err := env.LoadEnvironment(r.config.Environment, r.config.Environments)
	if err != nil {
		return nil, fmt.Errorf("loading environment: %w", err)
	}
	resolver.SetVariables(environment.Variables)

	for _, v := range suite.Variables {
		resolver.SetVariable(v.Name, v.Value)
	}
	resolver.SetVariables(r.config.Variables)

	return resolver, nil
}

func (r *Runner) runTests(suite *parser.Suite, resolver *env.Resolver, log logrus.FieldLogger) (*RunResult, error) {
	start := time.Now()
	result := &RunResult{
		File:  suite.Path,
		Suite: suite.Name,
	}

	hasOnly := false
	for _, test := range suite.Tests {
		if test.Only {
			hasOnly = true
			break
		}
	}

	// Results keep file order; a nil slot is a test still to run.
	slots := make([]*TestResult, len(suite.Tests))
	var runnable []int
	for i, test := range suite.Tests {
		switch {
		case !r.shouldRun(suite, test, hasOnly):
			slots[i] = skipped(test, "filtered out")
		case test.Skip != "":
			slots[i] = skipped(test, test.Skip)
		case r.config.DryRun:
			slots[i] = skipped(test, "dry run")
		default:
			runnable = append(runnable, i)
		}
	}

	if r.config.Parallel && !r.config.Bail && !hasCaptures(suite) {
		r.runParallel(suite, runnable, slots, resolver, log)
	} else {
		for _, i := range runnable {
			slots[i] = r.runTest(suite, suite.Tests[i], resolver, log)
			if slots[i].Failed() && r.config.Bail {
				break
			}
		}
	}

	for _, tr := range slots {
		if tr != nil {
			result.add(tr)
		}
	}

	result.Duration = time.Since(start)
	return result, nil
}

// hasCaptures reports whether a test feeds variables to later tests, which
// forces the suite to run in order.
func hasCaptures(suite *parser.Suite) bool {
	for _, test := range suite.Tests {
		if len(test.Captures) > 0 {
			return true
		}
	}
	return false
}

func (rr *RunResult) add(tr *TestResult) {
	rr.Results = append(rr.Results, tr)
	switch {
	case tr.Skipped:
		rr.Skipped++
	case tr.Passed:
		rr.Passed++
	default:
		rr.Failed++
	}
}

func skipped(test *parser.Test, reason string) *TestResult {
	return &TestResult{
		Name:       test.Name,
		Tags:       test.Tags,
		Line:       test.Line,
		Skipped:    true,
		SkipReason: reason,
	}
}

func (r *Runner) runParallel(suite *parser.Suite, indices []int, slots []*TestResult, resolver *env.Resolver, log logrus.FieldLogger) {
	concurrency := r.config.Concurrency
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}

	var wg sync.WaitGroup
	sem := make(chan struct{}, concurrency)

	for _, i := range indices {
		wg.Add(1)
		sem <- struct{}{}

		go func(idx int) {
			defer wg.Done()
			defer func() { <-sem }()

			slots[idx] = r.runTest(suite, suite.Tests[idx], resolver, log)
		}(i)
	}

	wg.Wait()
}

func (r *Runner) shouldRun(suite *parser.Suite, test *parser.Test, hasOnly bool) bool {
	if hasOnly && !test.Only {
		return false
	}

	if r.config.NameFilter != "" && !matchesPattern(test.Name, r.config.NameFilter) {
		return false
	}

	if len(r.config.TagsFilter) > 0 {
		tags := append(append([]string(nil), suite.Tags...), test.Tags...)
		if !hasAnyTag(tags, r.config.TagsFilter) {
			return false
		}
	}

	return true
}

// runTest parses a fresh document for the test so no state leaks between
// tests, picks the subject and evaluates every expectation.
func (r *Runner) runTest(suite *parser.Suite, test *parser.Test, resolver *env.Resolver, log logrus.FieldLogger) *TestResult {
	start := time.Now()
	result := &TestResult{
		Name: test.Name,
		Tags: test.Tags,
		Line: test.Line,
	}
	defer func() {
		result.Duration = time.Since(start)
		entry := log.WithFields(logrus.Fields{
			"test":     test.Name,
			"passed":   result.Passed,
			"duration": result.Duration,
		})
		if result.Error != nil {
			entry.WithError(result.Error).Warn("test errored")
		} else if r.config.Verbose {
			entry.Info("test finished")
		} else {
			entry.Debug("test finished")
		}
	}()

	fixture := suite.Fixture
	if test.Fixture != nil {
		fixture = *test.Fixture
	}

	doc, err := dom.Parse(resolver.Resolve(fixture))
	if err != nil {
		result.Error = fmt.Errorf("parsing fixture: %w", err)
		return result
	}

	subject, err := selectSubject(doc, test, resolver)
	if err != nil {
		result.Error = err
		return result
	}
	result.Subject = subject.String()
	result.SubjectKind = test.SubjectKind().String()

	ev := assertions.NewEvaluator(doc, assertions.WithResolver(resolver.Resolve))
	result.Assertions = ev.EvaluateAll(subject, test.Expect)
	if test.Snapshot {
		result.Assertions = append(result.Assertions, r.compareSnapshot(suite, test, subject))
	}

	if len(test.Captures) > 0 {
		values, err := capture.ExtractAll(doc, test.Captures, resolver.Resolve)
		result.Captures = values
		resolver.SetVariables(values)
		if err != nil {
			result.Error = err
			return result
		}
	}

	result.Passed = true
	for _, a := range result.Assertions {
		if !a.Passed {
			result.Passed = false
			break
		}
	}
	return result
}

func (r *Runner) compareSnapshot(suite *parser.Suite, test *parser.Test, subject dom.Subject) *assertions.Result {
	markup := Markup(subject)
	snap := r.config.Snapshots.Compare(suite.Path, test.Name, markup)
	return &assertions.Result{
		Passed:   snap.Passed,
		Message:  snap.Message,
		Expected: snap.Expected,
		Actual:   snap.Actual,
		Subject:  subject.String(),
		Operator: "snapshot",
	}
}

// Markup renders a subject for snapshots: outer HTML of an element, one
// line per element of a list, or the inspected form of any other value.
func Markup(subject dom.Subject) string {
	switch subject.Kind {
	case dom.KindElement:
		return subject.Element.OuterHTML()
	case dom.KindNodeList:
		parts := make([]string, 0, subject.List.Len())
		for _, el := range subject.List {
			parts = append(parts, el.OuterHTML())
		}
		return strings.Join(parts, "\n")
	default:
		return dom.Inspect(subject.Value)
	}
}

func selectSubject(doc *dom.Document, test *parser.Test, resolver *env.Resolver) (dom.Subject, error) {
	switch test.SubjectKind() {
	case parser.SubjectValue:
		if s, ok := test.Value.(string); ok {
			return dom.ValueSubject(resolver.Resolve(s)), nil
		}
		return dom.ValueSubject(test.Value), nil
	case parser.SubjectSelectAll:
		list, err := doc.QuerySelectorAll(resolver.Resolve(test.Select))
		if err != nil {
			return dom.Subject{}, fmt.Errorf("selecting subject: %w", err)
		}
		return dom.ListSubject(list), nil
	case parser.SubjectSelectOne:
		el, err := doc.QuerySelector(resolver.Resolve(test.Element))
		if err != nil {
			return dom.Subject{}, fmt.Errorf("selecting subject: %w", err)
		}
		return dom.ElementSubject(el), nil
	default:
		return dom.ElementSubject(doc.FirstElement()), nil
	}
}

// matchesPattern matches name against a pattern with a leading and/or
// trailing '*'. A pattern without '*' matches any name containing it.
func matchesPattern(name, pattern string) bool {
	if pattern == "" || pattern == "*" {
		return true
	}

	prefix := strings.HasPrefix(pattern, "*")
	suffix := strings.HasSuffix(pattern, "*")
	core := strings.TrimSuffix(strings.TrimPrefix(pattern, "*"), "*")

	switch {
	case prefix && suffix:
		return strings.Contains(name, core)
	case prefix:
		return strings.HasSuffix(name, core)
	case suffix:
		return strings.HasPrefix(name, core)
	default:
		return strings.Contains(name, pattern)
	}
}

func hasAnyTag(tags []string, filters []string) bool {
	for _, filter := range filters {
		for _, tag := range tags {
			if tag == filter {
				return true
			}
		}
	}
	return false
}
