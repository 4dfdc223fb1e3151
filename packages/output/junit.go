package output

import (
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/abdul-hamid-achik/domspec/packages/core/runner"
)

// JUnitReport is the <testsuites> root. Each suite file becomes one
// <testsuite> and each test one <testcase>.
type JUnitReport struct {
	XMLName xml.Name `xml:"testsuites"`
	Name    string   `xml:"name,attr,omitempty"`
	junitCounts
	Suites []JUnitSuite `xml:"testsuite"`
}

type junitCounts struct {
	Tests     int     `xml:"tests,attr"`
	Failures  int     `xml:"failures,attr"`
	Errors    int     `xml:"errors,attr"`
	Skipped   int     `xml:"skipped,attr"`
	Time      float64 `xml:"time,attr"`
	Timestamp string  `xml:"timestamp,attr,omitempty"`
}

func (c *junitCounts) add(o junitCounts) {
	c.Tests += o.Tests
	c.Failures += o.Failures
	c.Errors += o.Errors
	c.Skipped += o.Skipped
}

// JUnitSuite carries the suite file as a property so CI tools can link back
// to it.
type JUnitSuite struct {
	Name string `xml:"name,attr"`
	junitCounts
	Properties []JUnitProperty `xml:"properties>property,omitempty"`
	Cases      []JUnitCase     `xml:"testcase"`
}

// JUnitCase records the subject a test evaluated as properties, and the
// values it captured as system-out.
type JUnitCase struct {
	Name       string          `xml:"name,attr"`
	ClassName  string          `xml:"classname,attr"`
	Time       float64         `xml:"time,attr"`
	Properties []JUnitProperty `xml:"properties>property,omitempty"`
	Failure    *JUnitProblem   `xml:"failure,omitempty"`
	Error      *JUnitProblem   `xml:"error,omitempty"`
	Skipped    *JUnitSkip      `xml:"skipped,omitempty"`
	SystemOut  string          `xml:"system-out,omitempty"`
}

type JUnitProperty struct {
	Name  string `xml:"name,attr"`
	Value string `xml:"value,attr"`
}

// JUnitProblem is a <failure> or <error>. For failures Type is the operator
// of the first failing step, e.g. "attr -> equal".
type JUnitProblem struct {
	Message string `xml:"message,attr,omitempty"`
	Type    string `xml:"type,attr,omitempty"`
	Content string `xml:",chardata"`
}

type JUnitSkip struct {
	Message string `xml:"message,attr,omitempty"`
}

// JUnitFormatter collects results and writes JUnit XML on Flush.
type JUnitFormatter struct {
	writer io.Writer
	suites []JUnitSuite
}

type JUnitOption func(*JUnitFormatter)

func NewJUnitFormatter(opts ...JUnitOption) *JUnitFormatter {
	f := &JUnitFormatter{writer: os.Stdout}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func JUnitWithWriter(w io.Writer) JUnitOption {
	return func(f *JUnitFormatter) {
		f.writer = w
	}
}

func (f *JUnitFormatter) FormatResult(result *runner.RunResult) {
	name := result.File
	if result.Suite != "" {
		name = result.Suite
	}
	suite := JUnitSuite{
		Name: name,
		junitCounts: junitCounts{
			Tests:     len(result.Results),
			Skipped:   result.Skipped,
			Time:      result.Duration.Seconds(),
			Timestamp: time.Now().Format(time.RFC3339),
		},
		Properties: []JUnitProperty{{Name: "file", Value: result.File}},
		Cases:      make([]JUnitCase, 0, len(result.Results)),
	}

	for _, r := range result.Results {
		tc := junitCase(result.File, r)
		switch {
		case tc.Error != nil:
			suite.Errors++
		case tc.Failure != nil:
			suite.Failures++
		}
		suite.Cases = append(suite.Cases, tc)
	}
	f.suites = append(f.suites, suite)
}

// junitCase maps one test. A test that could not be evaluated is an error,
// not a failure.
func junitCase(file string, r *runner.TestResult) JUnitCase {
	tc := JUnitCase{
		Name:      r.Name,
		ClassName: file,
		Time:      r.Duration.Seconds(),
	}
	if r.Skipped {
		tc.Skipped = &JUnitSkip{Message: visibleSkipReason(r.SkipReason)}
		return tc
	}

	tc.Properties = subjectProperties(r)
	tc.SystemOut = capturesText(r.Captures)

	if r.Error != nil {
		tc.Error = &JUnitProblem{Message: r.Error.Error(), Type: "Error"}
		return tc
	}
	if r.Passed {
		return tc
	}

	steps := failedSteps(r)
	if len(steps) == 0 {
		tc.Failure = &JUnitProblem{Message: "assertion failed", Type: "AssertionError"}
		return tc
	}
	tc.Failure = &JUnitProblem{
		Message: steps[0].Message,
		Type:    steps[0].Operator,
		Content: stepsText(steps),
	}
	return tc
}

func subjectProperties(r *runner.TestResult) []JUnitProperty {
	var props []JUnitProperty
	if r.Subject != "" {
		props = append(props, JUnitProperty{Name: "subject", Value: r.Subject})
	}
	if r.SubjectKind != "" {
		props = append(props, JUnitProperty{Name: "subject.kind", Value: r.SubjectKind})
	}
	if r.Line > 0 {
		props = append(props, JUnitProperty{Name: "line", Value: strconv.Itoa(r.Line)})
	}
	if len(r.Tags) > 0 {
		props = append(props, JUnitProperty{Name: "tags", Value: strings.Join(r.Tags, ",")})
	}
	return props
}

// stepsText lays out every failing step as an indented block.
func stepsText(steps []stepFailure) string {
	var sb strings.Builder
	for _, s := range steps {
		fmt.Fprintf(&sb, "%s\n", s.Operator)
		fmt.Fprintf(&sb, "  subject:  %s\n", s.Subject)
		if s.Expected != "" {
			fmt.Fprintf(&sb, "  expected: %s\n", s.Expected)
		}
		if s.Actual != "" {
			fmt.Fprintf(&sb, "  actual:   %s\n", s.Actual)
		}
		fmt.Fprintf(&sb, "  message:  %s\n", s.Message)
	}
	return sb.String()
}

func capturesText(captures map[string]any) string {
	if len(captures) == 0 {
		return ""
	}
	names := make([]string, 0, len(captures))
	for name := range captures {
		names = append(names, name)
	}
	sort.Strings(names)

	var sb strings.Builder
	for _, name := range names {
		fmt.Fprintf(&sb, "%s = %v\n", name, captures[name])
	}
	return sb.String()
}

func (f *JUnitFormatter) FormatError(err error) {}

func (f *JUnitFormatter) FormatHeader(version string) {}

// Flush writes the accumulated report.
func (f *JUnitFormatter) Flush(totalDuration time.Duration) error {
	report := JUnitReport{
		Name:   "domspec",
		Suites: f.suites,
	}
	for _, s := range f.suites {
		report.add(s.junitCounts)
	}
	report.Time = totalDuration.Seconds()
	report.Timestamp = time.Now().Format(time.RFC3339)

	if _, err := io.WriteString(f.writer, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(f.writer)
	enc.Indent("", "  ")
	if err := enc.Encode(report); err != nil {
		return err
	}
	_, err := io.WriteString(f.writer, "\n")
	return err
}
