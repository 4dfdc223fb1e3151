// Package notify sends run summaries to chat services and webhooks.
package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/abdul-hamid-achik/domspec/packages/core/runner"
	"golang.org/x/time/rate"
)

// NotifyOn specifies when to send notifications
type NotifyOn string

const (
	// NotifyAlways sends notifications for every run
	NotifyAlways NotifyOn = "always"
	// NotifyFailure sends notifications only when tests fail
	NotifyFailure NotifyOn = "failure"
	// NotifySuccess sends notifications only when tests pass
	NotifySuccess NotifyOn = "success"
	// NotifyRecovery sends notifications on failures and on the first
	// passing run after one
	NotifyRecovery NotifyOn = "recovery"
)

// ParseNotifyOn validates a policy name.
func ParseNotifyOn(s string) (NotifyOn, error) {
	switch n := NotifyOn(s); n {
	case NotifyAlways, NotifyFailure, NotifySuccess, NotifyRecovery:
		return n, nil
	case "":
		return NotifyFailure, nil
	default:
		return "", fmt.Errorf("unknown notify policy %q (available: always, failure, success, recovery)", s)
	}
}

// RunSummary represents the summary of a test run for notifications
type RunSummary struct {
	RunID         string        `json:"run_id,omitempty"`
	TotalFiles    int           `json:"total_files"`
	TotalTests    int           `json:"total_tests"`
	PassedTests   int           `json:"passed_tests"`
	FailedTests   int           `json:"failed_tests"`
	SkippedTests  int           `json:"skipped_tests"`
	Duration      time.Duration `json:"duration"`
	Environment   string        `json:"environment,omitempty"`
	FailedResults []FailedTest  `json:"failed_results,omitempty"`
	IsRecovery    bool          `json:"is_recovery,omitempty"`
}

// FailedTest represents a failed test for notifications
type FailedTest struct {
	Name   string   `json:"name"`
	Suite  string   `json:"suite,omitempty"`
	File   string   `json:"file"`
	Errors []string `json:"errors,omitempty"`
}

// Summarize builds a summary from the results of one run. Failure
// messages are the messages of the assertions that did not hold.
func Summarize(results []*runner.RunResult, environment string, duration time.Duration) *RunSummary {
	s := &RunSummary{
		TotalFiles:  len(results),
		Duration:    duration,
		Environment: environment,
	}
	for _, rr := range results {
		s.PassedTests += rr.Passed
		s.FailedTests += rr.Failed
		s.SkippedTests += rr.Skipped
		s.TotalTests += len(rr.Results)

		for _, tr := range rr.Results {
			if !tr.Failed() {
				continue
			}
			ft := FailedTest{Name: tr.Name, Suite: rr.Suite, File: rr.File}
			if tr.Error != nil {
				ft.Errors = append(ft.Errors, tr.Error.Error())
			}
			for _, a := range tr.Assertions {
				if !a.Passed {
					ft.Errors = append(ft.Errors, a.Message)
				}
			}
			s.FailedResults = append(s.FailedResults, ft)
		}
	}
	return s
}

// Notifier is the interface for notification services
type Notifier interface {
	// Notify sends a notification about test results
	Notify(ctx context.Context, summary *RunSummary) error

	// Name returns the name of the notifier
	Name() string
}

// Manager applies a NotifyOn policy across runs and fans out to notifiers.
type Manager struct {
	notifiers []Notifier
	notifyOn  NotifyOn
	lastState bool // true if last run was successful
	limiter   *rate.Limiter
}

// NewManager creates a new notification manager
func NewManager(notifyOn NotifyOn, notifiers ...Notifier) *Manager {
	return &Manager{
		notifiers: notifiers,
		notifyOn:  notifyOn,
		lastState: true,
	}
}

// SetMinInterval drops notifications sent less than d after the previous
// one, so watch mode does not flood a channel. Zero disables the limit.
func (m *Manager) SetMinInterval(d time.Duration) {
	if d <= 0 {
		m.limiter = nil
		return
	}
	m.limiter = rate.NewLimiter(rate.Every(d), 1)
}

// AddNotifier adds a notifier to the manager
func (m *Manager) AddNotifier(n Notifier) {
	m.notifiers = append(m.notifiers, n)
}

// ShouldNotify applies the policy to a run and remembers its outcome for
// recovery detection.
func (m *Manager) ShouldNotify(summary *RunSummary) bool {
	success := summary.FailedTests == 0
	defer func() { m.lastState = success }()

	switch m.notifyOn {
	case NotifyAlways:
		return true
	case NotifyFailure:
		return !success
	case NotifySuccess:
		return success
	case NotifyRecovery:
		if !m.lastState && success {
			summary.IsRecovery = true
			return true
		}
		return !success
	default:
		return false
	}
}

// Notify sends notifications based on the configured policy. Every
// notifier is tried; their errors are joined.
func (m *Manager) Notify(ctx context.Context, summary *RunSummary) error {
	if !m.ShouldNotify(summary) {
		return nil
	}
	// Recoveries always go out so a channel never stays red.
	if m.limiter != nil && !m.limiter.Allow() && !summary.IsRecovery {
		return nil
	}

	var errs []error
	for _, n := range m.notifiers {
		if err := n.Notify(ctx, summary); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", n.Name(), err))
		}
	}
	return errors.Join(errs...)
}
