package output

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/abdul-hamid-achik/domspec/packages/core/runner"
	"github.com/abdul-hamid-achik/domspec/packages/dom"
)

// Formats lists the reporter names accepted by New.
var Formats = []string{"console", "json", "junit", "tap", "html"}

// Formatter receives each file's results as the run progresses.
type Formatter interface {
	FormatResult(result *runner.RunResult)
	FormatError(err error)
	FormatHeader(version string)
}

// Flushable is implemented by formatters that write their output once the
// whole run is done.
type Flushable interface {
	Flush(totalDuration time.Duration) error
}

// Options configures the formatter built by New.
type Options struct {
	Writer  io.Writer
	Verbose bool
	NoColor bool
}

// New returns the formatter registered under format.
func New(format string, opts Options) (Formatter, error) {
	w := opts.Writer
	if w == nil {
		w = os.Stdout
	}

	switch strings.ToLower(format) {
	case "", "console":
		return NewConsoleFormatter(
			WithWriter(w),
			WithVerbose(opts.Verbose),
			WithNoColor(opts.NoColor),
		), nil
	case "json":
		return NewJSONFormatter(JSONWithWriter(w)), nil
	case "junit":
		return NewJUnitFormatter(JUnitWithWriter(w)), nil
	case "tap":
		return NewTAPFormatter(TAPWithWriter(w)), nil
	case "html":
		return NewHTMLFormatter(HTMLWithWriter(w)), nil
	default:
		return nil, fmt.Errorf("unknown output format %q (available: %s)", format, strings.Join(Formats, ", "))
	}
}

// Flush flushes f if it buffers its output.
func Flush(f Formatter, totalDuration time.Duration) error {
	if fl, ok := f.(Flushable); ok {
		return fl.Flush(totalDuration)
	}
	return nil
}

// visibleSkipReason hides the reason for tests that were only filtered out.
func visibleSkipReason(reason string) string {
	if reason == "filtered out" {
		return ""
	}
	return reason
}

// stepFailure is one failing predicate step, rendered the way assertion
// messages show values.
type stepFailure struct {
	Operator string `yaml:"operator"`
	Subject  string `yaml:"subject"`
	Expected string `yaml:"expected,omitempty"`
	Actual   string `yaml:"actual,omitempty"`
	Message  string `yaml:"message"`
}

func failedSteps(r *runner.TestResult) []stepFailure {
	var steps []stepFailure
	for _, a := range r.Assertions {
		if a.Passed {
			continue
		}
		step := stepFailure{
			Operator: a.Operator,
			Subject:  a.Subject,
			Expected: displayArgs(a.Expected),
			Message:  a.Message,
		}
		if a.Actual != nil {
			step.Actual = dom.Inspect(a.Actual)
		}
		steps = append(steps, step)
	}
	return steps
}

// displayArgs shows a lone predicate argument without list brackets.
func displayArgs(v any) string {
	switch args := v.(type) {
	case nil:
		return ""
	case []any:
		switch len(args) {
		case 0:
			return ""
		case 1:
			return dom.Inspect(args[0])
		}
	}
	return dom.Inspect(v)
}
