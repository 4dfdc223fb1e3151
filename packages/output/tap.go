package output

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/abdul-hamid-achik/domspec/packages/core/runner"
	"gopkg.in/yaml.v3"
)

// TAPFormatter streams TAP version 13. Test points are written as each
// suite finishes and the plan trails them, so output starts before the
// total is known.
type TAPFormatter struct {
	writer  io.Writer
	count   int
	started bool
}

// tapDiagnostic is the YAML block under a failing test point.
type tapDiagnostic struct {
	File     string            `yaml:"file"`
	Line     int               `yaml:"line,omitempty"`
	Subject  string            `yaml:"subject,omitempty"`
	Kind     string            `yaml:"subject_kind,omitempty"`
	Severity string            `yaml:"severity,omitempty"`
	Message  string            `yaml:"message,omitempty"`
	Failures []stepFailure     `yaml:"failures,omitempty"`
	Captures map[string]string `yaml:"captures,omitempty"`
}

type TAPOption func(*TAPFormatter)

func NewTAPFormatter(opts ...TAPOption) *TAPFormatter {
	f := &TAPFormatter{writer: os.Stdout}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func TAPWithWriter(w io.Writer) TAPOption {
	return func(f *TAPFormatter) {
		f.writer = w
	}
}

func (f *TAPFormatter) FormatHeader(version string) {
	f.start()
	fmt.Fprintf(f.writer, "# domspec %s\n", version)
}

func (f *TAPFormatter) start() {
	if !f.started {
		f.started = true
		fmt.Fprintln(f.writer, "TAP version 13")
	}
}

func (f *TAPFormatter) FormatResult(result *runner.RunResult) {
	f.start()
	name := result.Suite
	if name == "" {
		name = result.File
	}
	fmt.Fprintf(f.writer, "# %s\n", name)

	for _, r := range result.Results {
		f.count++
		if r.Skipped {
			reason := visibleSkipReason(r.SkipReason)
			if reason == "" {
				reason = "filtered"
			}
			fmt.Fprintf(f.writer, "ok %d - %s # SKIP %s\n", f.count, r.Name, reason)
			continue
		}
		if r.Passed {
			fmt.Fprintf(f.writer, "ok %d - %s\n", f.count, r.Name)
			continue
		}

		fmt.Fprintf(f.writer, "not ok %d - %s\n", f.count, r.Name)
		f.diagnose(tapDiagnosticFor(result.File, r))
	}
}

func tapDiagnosticFor(file string, r *runner.TestResult) tapDiagnostic {
	d := tapDiagnostic{
		File:    file,
		Line:    r.Line,
		Subject: r.Subject,
		Kind:    r.SubjectKind,
	}
	if r.Error != nil {
		d.Severity = "error"
		d.Message = r.Error.Error()
	} else {
		d.Severity = "fail"
		d.Failures = failedSteps(r)
	}
	if len(r.Captures) > 0 {
		d.Captures = make(map[string]string, len(r.Captures))
		for k, v := range r.Captures {
			d.Captures[k] = fmt.Sprintf("%v", v)
		}
	}
	return d
}

// diagnose writes d as an indented YAML block between --- and ...
func (f *TAPFormatter) diagnose(d tapDiagnostic) {
	data, err := yaml.Marshal(d)
	if err != nil {
		fmt.Fprintf(f.writer, "# cannot encode diagnostics: %v\n", err)
		return
	}
	fmt.Fprintln(f.writer, "  ---")
	for _, line := range strings.Split(strings.TrimRight(string(data), "\n"), "\n") {
		fmt.Fprintf(f.writer, "  %s\n", line)
	}
	fmt.Fprintln(f.writer, "  ...")
}

// FormatError reports a suite that could not run at all.
func (f *TAPFormatter) FormatError(err error) {
	f.start()
	fmt.Fprintf(f.writer, "# error: %s\n", strings.ReplaceAll(err.Error(), "\n", " "))
}

// Flush writes the trailing plan.
func (f *TAPFormatter) Flush(totalDuration time.Duration) error {
	f.start()
	_, err := fmt.Fprintf(f.writer, "1..%d\n# time %s\n", f.count, totalDuration.Round(time.Millisecond))
	return err
}
