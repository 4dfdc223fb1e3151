package output

import (
	"bytes"
	"encoding/xml"
	"errors"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/abdul-hamid-achik/domspec/packages/assertions"
	"github.com/abdul-hamid-achik/domspec/packages/core/runner"
	"github.com/abdul-hamid-achik/domspec/packages/dom"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
	"gopkg.in/yaml.v3"
)

func sampleResult() *runner.RunResult {
	return &runner.RunResult{
		File:     "tests/page.domspec.yaml",
		Suite:    "page",
		Duration: 12 * time.Millisecond,
		Passed:   1,
		Failed:   2,
		Skipped:  2,
		Results: []*runner.TestResult{
			{
				Name:        "has class",
				Tags:        []string{"smoke"},
				Line:        4,
				Passed:      true,
				Duration:    2 * time.Millisecond,
				Subject:     `div#foo.bar`,
				SubjectKind: "first element",
				Assertions: []*assertions.Result{
					{Passed: true, Operator: "class", Subject: "div#foo.bar", Expected: []any{"bar"}},
				},
			},
			{
				Name:        "wrong class",
				Line:        9,
				Duration:    time.Millisecond,
				Subject:     `div#foo.bar`,
				SubjectKind: "first element",
				Assertions: []*assertions.Result{
					{
						Operator: "class",
						Subject:  "div#foo.bar",
						Expected: []any{"baz"},
						Message:  "expected div#foo.bar to have class 'baz'",
					},
					{
						Operator: "attr -> equal",
						Subject:  "div#foo.bar",
						Expected: []any{regexp.MustCompile("^f")},
						Actual:   "foo",
						Passed:   true,
					},
				},
			},
			{
				Name:  "broken selector",
				Line:  14,
				Error: errors.New("selecting subject: invalid selector"),
			},
			{Name: "later", Skipped: true, SkipReason: "not ready"},
			{Name: "filtered", Skipped: true, SkipReason: "filtered out"},
		},
	}
}

func TestNew(t *testing.T) {
	var buf bytes.Buffer
	for _, format := range Formats {
		f, err := New(format, Options{Writer: &buf, NoColor: true})
		require.NoError(t, err, format)
		assert.NotNil(t, f)
	}

	f, err := New("", Options{Writer: &buf})
	require.NoError(t, err)
	assert.IsType(t, &ConsoleFormatter{}, f)

	f, err = New("JSON", Options{Writer: &buf})
	require.NoError(t, err)
	assert.IsType(t, &JSONFormatter{}, f)

	_, err = New("yaml", Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown output format "yaml"`)
}

func TestFlush_NonFlushable(t *testing.T) {
	var buf bytes.Buffer
	f := NewConsoleFormatter(WithWriter(&buf), WithNoColor(true))
	assert.NoError(t, Flush(f, time.Second))
	assert.Empty(t, buf.String())
}

func TestConsoleFormatter(t *testing.T) {
	var buf bytes.Buffer
	f := NewConsoleFormatter(WithWriter(&buf), WithNoColor(true))
	f.FormatHeader("v1.0.0")
	f.FormatResult(sampleResult())
	f.FormatError(errors.New("boom"))

	out := buf.String()
	assert.Contains(t, out, "domspec v1.0.0")
	assert.Contains(t, out, "Running: page (tests/page.domspec.yaml)")
	assert.Contains(t, out, "✓ has class")
	assert.Contains(t, out, "✗ wrong class")
	assert.Contains(t, out, "expected div#foo.bar to have class 'baz'")
	assert.Contains(t, out, "Expected: baz")
	assert.Contains(t, out, "x broken selector (selecting subject: invalid selector)")
	assert.Contains(t, out, "- later (not ready)")
	assert.Contains(t, out, "- filtered\n")
	assert.Contains(t, out, "1 passed, 2 failed, 2 skipped, 5 total")
	assert.Contains(t, out, "Error: boom")
	assert.NotContains(t, out, "Subject (", "subject is only shown in verbose mode")
}

func TestConsoleFormatter_Verbose(t *testing.T) {
	var buf bytes.Buffer
	f := NewConsoleFormatter(WithWriter(&buf), WithNoColor(true), WithVerbose(true))
	f.FormatResult(sampleResult())

	out := buf.String()
	assert.Contains(t, out, "Subject (first element): div#foo.bar")
	assert.Contains(t, out, "✓ attr -> equal")
}

func TestFormatValue(t *testing.T) {
	assert.Equal(t, "(none)", formatValue(nil, 10))
	assert.Equal(t, "bar", formatValue([]any{"bar"}, 10))
	assert.Equal(t, "[2 arguments]", formatValue([]any{"a", "b"}, 10))
	assert.Equal(t, "{object with 1 keys}", formatValue(map[string]any{"a": 1}, 10))
	assert.Equal(t, "abc...", formatValue("abcdef", 3))
	assert.Equal(t, "^f.o$", formatValue(regexp.MustCompile("^f.o$"), 20))
}

func TestJSONFormatter(t *testing.T) {
	var buf bytes.Buffer
	f := NewJSONFormatter(JSONWithWriter(&buf), JSONWithRunID("run-1"))
	f.FormatHeader("v1.0.0")
	f.FormatResult(sampleResult())
	require.NoError(t, f.Flush(50*time.Millisecond))

	out := buf.String()
	require.True(t, gjson.Valid(out))

	assert.Equal(t, "run-1", gjson.Get(out, "runId").String())
	assert.Equal(t, "v1.0.0", gjson.Get(out, "version").String())
	assert.Equal(t, int64(5), gjson.Get(out, "summary.total").Int())
	assert.Equal(t, int64(1), gjson.Get(out, "summary.passed").Int())
	assert.Equal(t, int64(2), gjson.Get(out, "summary.failed").Int())
	assert.Equal(t, int64(2), gjson.Get(out, "summary.skipped").Int())
	assert.Equal(t, float64(50), gjson.Get(out, "duration").Float())

	assert.Equal(t, "page", gjson.Get(out, "tests.0.suite").String())
	assert.Equal(t, "first element", gjson.Get(out, "tests.0.subjectKind").String())
	assert.Equal(t, "smoke", gjson.Get(out, "tests.0.tags.0").String())
	assert.Equal(t, "bar", gjson.Get(out, "tests.0.assertions.0.expected.0").String())

	assert.Equal(t, "expected div#foo.bar to have class 'baz'", gjson.Get(out, "tests.1.assertions.0.message").String())
	assert.Equal(t, "^f", gjson.Get(out, "tests.1.assertions.1.expected.0").String(), "regexps render as their pattern")
	assert.Equal(t, "foo", gjson.Get(out, "tests.1.assertions.1.actual").String())

	assert.Equal(t, "selecting subject: invalid selector", gjson.Get(out, "tests.2.error").String())
	assert.Equal(t, "not ready", gjson.Get(out, "tests.3.skipReason").String())
	assert.False(t, gjson.Get(out, "tests.4.skipReason").Exists())
}

func TestJSONFormatter_GeneratedRunID(t *testing.T) {
	a := NewJSONFormatter()
	b := NewJSONFormatter()
	assert.Len(t, a.RunID(), 36)
	assert.NotEqual(t, a.RunID(), b.RunID())
}

func TestJSONValue(t *testing.T) {
	el := dom.MustParseFragment(`<p id="x"></p>`)
	assert.Equal(t, el.String(), jsonValue(el))
	assert.Equal(t, []any{"a", 1}, jsonValue([]any{"a", 1}))
	assert.Nil(t, jsonValue(nil))
}

func TestJUnitFormatter(t *testing.T) {
	var buf bytes.Buffer
	f := NewJUnitFormatter(JUnitWithWriter(&buf))
	f.FormatResult(sampleResult())
	require.NoError(t, f.Flush(time.Second))

	out := buf.String()
	require.True(t, strings.HasPrefix(out, `<?xml version="1.0" encoding="UTF-8"?>`))

	var report JUnitReport
	require.NoError(t, xml.Unmarshal([]byte(out), &report))
	assert.Equal(t, "domspec", report.Name)
	assert.Equal(t, 5, report.Tests)
	assert.Equal(t, 1, report.Failures, "errored tests are not counted as failures")
	assert.Equal(t, 1, report.Errors)
	assert.Equal(t, 2, report.Skipped)

	require.Len(t, report.Suites, 1)
	suite := report.Suites[0]
	assert.Equal(t, "page", suite.Name)
	assert.Equal(t, []JUnitProperty{{Name: "file", Value: "tests/page.domspec.yaml"}}, suite.Properties)
	require.Len(t, suite.Cases, 5)

	assert.Nil(t, suite.Cases[0].Failure)
	assert.Contains(t, suite.Cases[0].Properties, JUnitProperty{Name: "tags", Value: "smoke"})

	failed := suite.Cases[1]
	require.NotNil(t, failed.Failure)
	assert.Equal(t, "expected div#foo.bar to have class 'baz'", failed.Failure.Message)
	assert.Equal(t, "class", failed.Failure.Type)
	assert.Contains(t, failed.Failure.Content, "subject:  div#foo.bar")
	assert.Contains(t, failed.Failure.Content, "expected: 'baz'")
	assert.NotContains(t, failed.Failure.Content, "attr -> equal", "passing assertions are left out")
	assert.Contains(t, failed.Properties, JUnitProperty{Name: "subject", Value: "div#foo.bar"})
	assert.Contains(t, failed.Properties, JUnitProperty{Name: "subject.kind", Value: "first element"})
	assert.Contains(t, failed.Properties, JUnitProperty{Name: "line", Value: "9"})

	require.NotNil(t, suite.Cases[2].Error)
	assert.Nil(t, suite.Cases[2].Failure)
	require.NotNil(t, suite.Cases[3].Skipped)
	assert.Equal(t, "not ready", suite.Cases[3].Skipped.Message)
	require.NotNil(t, suite.Cases[4].Skipped)
	assert.Empty(t, suite.Cases[4].Skipped.Message)
}

func TestJUnitFormatter_StepsAndCaptures(t *testing.T) {
	r := &runner.TestResult{
		Name:     "reads count",
		Captures: map[string]any{"total": 3, "label": "Cart"},
		Assertions: []*assertions.Result{
			{
				Operator: "attr -> equal",
				Subject:  "span#count",
				Expected: []any{4},
				Actual:   "3",
				Message:  "expected '3' to equal 4",
			},
		},
	}

	tc := junitCase("cart.domspec.yaml", r)
	require.NotNil(t, tc.Failure)
	assert.Equal(t, "attr -> equal", tc.Failure.Type)
	assert.Contains(t, tc.Failure.Content, "expected: 4\n")
	assert.Contains(t, tc.Failure.Content, "actual:   '3'\n")
	assert.Equal(t, "label = Cart\ntotal = 3\n", tc.SystemOut)
}

// tapBlock returns the YAML diagnostics following the test point line.
func tapBlock(t *testing.T, out, point string) tapDiagnostic {
	t.Helper()
	_, rest, ok := strings.Cut(out, point+"\n  ---\n")
	require.True(t, ok, "no diagnostics after %q in:\n%s", point, out)
	block, _, ok := strings.Cut(rest, "  ...\n")
	require.True(t, ok)

	var lines []string
	for _, line := range strings.Split(strings.TrimRight(block, "\n"), "\n") {
		lines = append(lines, strings.TrimPrefix(line, "  "))
	}
	var d tapDiagnostic
	require.NoError(t, yaml.Unmarshal([]byte(strings.Join(lines, "\n")), &d))
	return d
}

func TestTAPFormatter(t *testing.T) {
	var buf bytes.Buffer
	f := NewTAPFormatter(TAPWithWriter(&buf))
	f.FormatHeader("1.0.0")
	f.FormatResult(sampleResult())
	require.NoError(t, f.Flush(time.Second))

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "TAP version 13\n# domspec 1.0.0\n# page\n"))
	assert.Contains(t, out, "ok 1 - has class\n")
	assert.Contains(t, out, "not ok 2 - wrong class\n")
	assert.Contains(t, out, "not ok 3 - broken selector\n")
	assert.Contains(t, out, "ok 4 - later # SKIP not ready\n")
	assert.Contains(t, out, "ok 5 - filtered # SKIP filtered\n")
	assert.Contains(t, out, "1..5\n# time 1s\n")

	failed := tapBlock(t, out, "not ok 2 - wrong class")
	assert.Equal(t, "fail", failed.Severity)
	assert.Equal(t, 9, failed.Line)
	assert.Equal(t, "first element", failed.Kind)
	require.Len(t, failed.Failures, 1)
	assert.Equal(t, stepFailure{
		Operator: "class",
		Subject:  "div#foo.bar",
		Expected: "'baz'",
		Message:  "expected div#foo.bar to have class 'baz'",
	}, failed.Failures[0])

	broken := tapBlock(t, out, "not ok 3 - broken selector")
	assert.Equal(t, "error", broken.Severity)
	assert.Equal(t, "selecting subject: invalid selector", broken.Message)
	assert.Empty(t, broken.Failures)
}

func TestTAPFormatter_PlanWithoutHeader(t *testing.T) {
	var buf bytes.Buffer
	f := NewTAPFormatter(TAPWithWriter(&buf))
	f.FormatError(errors.New("parsing file:\nbad yaml"))
	require.NoError(t, f.Flush(0))

	assert.Equal(t, "TAP version 13\n# error: parsing file: bad yaml\n1..0\n# time 0s\n", buf.String())
}

func TestDisplayArgs(t *testing.T) {
	assert.Equal(t, "", displayArgs(nil))
	assert.Equal(t, "", displayArgs([]any{}))
	assert.Equal(t, "'bar'", displayArgs([]any{"bar"}))
	assert.Equal(t, "/^f/", displayArgs([]any{regexp.MustCompile("^f")}))
	assert.Equal(t, "[ 'name', 'foo' ]", displayArgs([]any{"name", "foo"}))
	assert.Equal(t, "'boom'", displayArgs("boom"))
}

func TestHTMLFormatter(t *testing.T) {
	var buf bytes.Buffer
	f := NewHTMLFormatter(HTMLWithWriter(&buf))
	f.FormatHeader("v1.0.0")
	f.FormatResult(sampleResult())
	require.NoError(t, f.Flush(time.Second))

	out := buf.String()
	assert.Contains(t, out, "<title>domspec Report</title>")
	assert.Contains(t, out, "v1.0.0")
	assert.Contains(t, out, `<div class="test passed">`)
	assert.Contains(t, out, `<div class="test failed">`)
	assert.Contains(t, out, `<div class="test skipped">`)
	assert.Contains(t, out, "selecting subject: invalid selector")
	assert.Contains(t, out, `<span class="tag">smoke</span>`)
	assert.Contains(t, out, "expected div#foo.bar to have class &#39;baz&#39;", "messages are HTML escaped")
	assert.Contains(t, out, "width: 20.0%")
}
