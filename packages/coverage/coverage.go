// Package coverage reports which registered predicates a set of suites
// exercises.
package coverage

import (
	"encoding/json"
	"fmt"
	"html"
	"sort"
	"strings"

	"github.com/abdul-hamid-achik/domspec/packages/assertions"
	"github.com/abdul-hamid-achik/domspec/packages/core/parser"
)

// Report represents a predicate coverage report.
type Report struct {
	TotalPredicates   int                   `json:"totalPredicates"`
	CoveredPredicates int                   `json:"coveredPredicates"`
	CoveragePercent   float64               `json:"coveragePercent"`
	ByTag             map[string]*TagReport `json:"byTag,omitempty"`
	Predicates        []PredicateStatus     `json:"predicates"`
	Unknown           []string              `json:"unknown,omitempty"`
}

// TagReport counts the predicates used by tests carrying a tag.
type TagReport struct {
	Tag               string  `json:"tag"`
	Tests             int     `json:"tests"`
	CoveredPredicates int     `json:"coveredPredicates"`
	CoveragePercent   float64 `json:"coveragePercent"`
}

// PredicateStatus is the coverage of one registered predicate.
type PredicateStatus struct {
	Name    string   `json:"name"`
	Aliases []string `json:"aliases,omitempty"`
	Covered bool     `json:"covered"`
	Uses    int      `json:"uses"`
	Negated int      `json:"negated"`
	Fails   int      `json:"fails"`
}

// Analyzer maps predicate names and aliases to registry entries.
type Analyzer struct {
	names     []string
	canonical map[string]string
	aliases   map[string][]string
}

// NewAnalyzer creates an analyzer over the default predicate registry.
func NewAnalyzer() *Analyzer {
	a := &Analyzer{
		canonical: make(map[string]string),
		aliases:   make(map[string][]string),
	}
	for _, name := range assertions.Names() {
		entry, ok := assertions.Lookup(name)
		if !ok {
			continue
		}
		a.add(entry.Name, entry.Aliases...)
	}
	return a
}

func (a *Analyzer) add(name string, aliases ...string) {
	a.names = append(a.names, name)
	a.canonical[name] = name
	for _, alias := range aliases {
		a.canonical[alias] = name
	}
	a.aliases[name] = aliases
}

// Analyze counts every step of every expectation in suites. Skipped tests
// count too since they still document intent.
func (a *Analyzer) Analyze(suites []*parser.Suite) *Report {
	report := &Report{
		TotalPredicates: len(a.names),
		ByTag:           make(map[string]*TagReport),
		Predicates:      make([]PredicateStatus, 0, len(a.names)),
	}

	statuses := make(map[string]*PredicateStatus, len(a.names))
	for _, name := range a.names {
		statuses[name] = &PredicateStatus{Name: name, Aliases: a.aliases[name]}
	}
	tagUses := make(map[string]map[string]bool)
	unknown := make(map[string]bool)

	for _, suite := range suites {
		for _, test := range suite.Tests {
			tags := append(append([]string(nil), suite.Tags...), test.Tags...)
			for _, tag := range tags {
				tr, ok := report.ByTag[tag]
				if !ok {
					tr = &TagReport{Tag: tag}
					report.ByTag[tag] = tr
					tagUses[tag] = make(map[string]bool)
				}
				tr.Tests++
			}

			for _, exp := range test.Expect {
				for _, step := range exp.Steps() {
					name, ok := a.canonical[step.Predicate]
					if !ok {
						unknown[step.Predicate] = true
						continue
					}
					st := statuses[name]
					st.Uses++
					if step.Not {
						st.Negated++
					}
					if step.Fails != nil {
						st.Fails++
					}
					for _, tag := range tags {
						tagUses[tag][name] = true
					}
				}
			}
		}
	}

	for _, name := range a.names {
		st := statuses[name]
		st.Covered = st.Uses > 0
		if st.Covered {
			report.CoveredPredicates++
		}
		report.Predicates = append(report.Predicates, *st)
	}

	report.CoveragePercent = percent(report.CoveredPredicates, report.TotalPredicates)
	for tag, tr := range report.ByTag {
		tr.CoveredPredicates = len(tagUses[tag])
		tr.CoveragePercent = percent(tr.CoveredPredicates, report.TotalPredicates)
	}

	for name := range unknown {
		report.Unknown = append(report.Unknown, name)
	}
	sort.Strings(report.Unknown)
	sort.Slice(report.Predicates, func(i, j int) bool {
		return report.Predicates[i].Name < report.Predicates[j].Name
	})

	return report
}

func percent(n, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(n) / float64(total) * 100
}

// FormatConsole formats the report for console output.
func (r *Report) FormatConsole() string {
	var sb strings.Builder

	sb.WriteString("\nPredicate Coverage Report\n")
	sb.WriteString("=========================\n\n")

	sb.WriteString(fmt.Sprintf("Total Predicates:   %d\n", r.TotalPredicates))
	sb.WriteString(fmt.Sprintf("Covered Predicates: %d\n", r.CoveredPredicates))
	sb.WriteString(fmt.Sprintf("Coverage:           %.1f%%\n\n", r.CoveragePercent))

	if len(r.ByTag) > 0 {
		sb.WriteString("Coverage by Tag:\n")

		tags := make([]string, 0, len(r.ByTag))
		for tag := range r.ByTag {
			tags = append(tags, tag)
		}
		sort.Strings(tags)

		for _, tag := range tags {
			tr := r.ByTag[tag]
			sb.WriteString(fmt.Sprintf("  %s: %d/%d (%.1f%%) in %d tests\n",
				tag, tr.CoveredPredicates, r.TotalPredicates, tr.CoveragePercent, tr.Tests))
		}
		sb.WriteString("\n")
	}

	sb.WriteString("Predicate Details:\n")
	for _, p := range r.Predicates {
		status := "[ ]"
		if p.Covered {
			status = "[x]"
		}
		sb.WriteString(fmt.Sprintf("  %s %s", status, p.Name))
		if p.Uses > 1 {
			sb.WriteString(fmt.Sprintf(" (x%d)", p.Uses))
		}
		if p.Negated > 0 {
			sb.WriteString(fmt.Sprintf(" not:%d", p.Negated))
		}
		if p.Fails > 0 {
			sb.WriteString(fmt.Sprintf(" fails:%d", p.Fails))
		}
		sb.WriteString("\n")
	}

	if len(r.Unknown) > 0 {
		sb.WriteString(fmt.Sprintf("\nUnknown predicates: %s\n", strings.Join(r.Unknown, ", ")))
	}

	return sb.String()
}

// FormatJSON formats the report as JSON.
func (r *Report) FormatJSON() (string, error) {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// FormatHTML formats the report as HTML.
func (r *Report) FormatHTML() string {
	var sb strings.Builder

	sb.WriteString(`<!DOCTYPE html>
<html>
<head>
  <title>Predicate Coverage Report</title>
  <style>
    body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; margin: 40px; }
    h1 { color: #333; }
    .summary { background: #f5f5f5; padding: 20px; border-radius: 8px; margin: 20px 0; }
    .summary h2 { margin-top: 0; }
    .coverage-bar { background: #e0e0e0; height: 24px; border-radius: 4px; overflow: hidden; }
    .coverage-fill { background: #4caf50; height: 100%; }
    table { border-collapse: collapse; width: 100%; margin: 20px 0; }
    th, td { text-align: left; padding: 12px; border-bottom: 1px solid #ddd; }
    th { background: #f5f5f5; }
    .covered { color: #4caf50; }
    .uncovered { color: #f44336; }
    .alias { display: inline-block; background: #e3f2fd; color: #1976d2; padding: 2px 8px; border-radius: 4px; margin: 2px; font-size: 0.9em; }
  </style>
</head>
<body>
`)

	sb.WriteString("<h1>Predicate Coverage Report</h1>\n")

	sb.WriteString("<div class=\"summary\">\n")
	sb.WriteString("<h2>Summary</h2>\n")
	sb.WriteString(fmt.Sprintf("<p><strong>Coverage:</strong> %.1f%% (%d/%d predicates)</p>\n",
		r.CoveragePercent, r.CoveredPredicates, r.TotalPredicates))
	sb.WriteString("<div class=\"coverage-bar\">\n")
	sb.WriteString(fmt.Sprintf("<div class=\"coverage-fill\" style=\"width: %.1f%%\"></div>\n", r.CoveragePercent))
	sb.WriteString("</div>\n")
	sb.WriteString("</div>\n")

	sb.WriteString("<h2>Predicates</h2>\n")
	sb.WriteString("<table>\n")
	sb.WriteString("<tr><th>Status</th><th>Predicate</th><th>Aliases</th><th>Uses</th><th>Negated</th><th>Fails</th></tr>\n")

	for _, p := range r.Predicates {
		statusClass := "uncovered"
		statusIcon := "&#x2717;"
		if p.Covered {
			statusClass = "covered"
			statusIcon = "&#x2713;"
		}

		sb.WriteString("<tr>\n")
		sb.WriteString(fmt.Sprintf("<td class=\"%s\">%s</td>\n", statusClass, statusIcon))
		sb.WriteString(fmt.Sprintf("<td><strong>%s</strong></td>\n", html.EscapeString(p.Name)))
		sb.WriteString("<td>")
		for _, alias := range p.Aliases {
			sb.WriteString(fmt.Sprintf("<span class=\"alias\">%s</span>", html.EscapeString(alias)))
		}
		sb.WriteString("</td>\n")
		sb.WriteString(fmt.Sprintf("<td>%d</td>\n", p.Uses))
		sb.WriteString(fmt.Sprintf("<td>%d</td>\n", p.Negated))
		sb.WriteString(fmt.Sprintf("<td>%d</td>\n", p.Fails))
		sb.WriteString("</tr>\n")
	}

	sb.WriteString("</table>\n")
	sb.WriteString("</body>\n</html>")

	return sb.String()
}
