package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/abdul-hamid-achik/domspec/packages/core/parser"
	"github.com/abdul-hamid-achik/domspec/packages/coverage"
	"github.com/spf13/cobra"
)

var coverageCmd = &cobra.Command{
	Use:   "coverage <file|directory>...",
	Short: "Report which predicates the suites exercise",
	Long: `Parse suite files and report which registered predicates their
expectations use, including aliases and chained steps. Nothing is evaluated.

Examples:
  domspec coverage ./specs/
  domspec coverage ./specs/ --output json
  domspec coverage ./specs/ --output html --output-file coverage.html`,
	Args: cobra.MinimumNArgs(1),
	RunE: coverageCommand,
}

var (
	coverageOutputFlag     string
	coverageOutputFileFlag string
)

func init() {
	coverageCmd.Flags().StringVarP(&coverageOutputFlag, "output", "o", "console", "Output format: console, json, html")
	coverageCmd.Flags().StringVar(&coverageOutputFileFlag, "output-file", "", "Write the report to file (default: stdout)")
}

func coverageCommand(cmd *cobra.Command, args []string) error {
	files, err := collectFiles(args)
	if err != nil {
		return usageError(err)
	}
	if len(files) == 0 {
		return usageError(fmt.Errorf("no .domspec, .domspec.yaml or .domspec.yml files found"))
	}

	suites := make([]*parser.Suite, 0, len(files))
	for _, file := range files {
		suite, err := parser.ParseFile(file)
		if err != nil {
			return parseError(err)
		}
		suites = append(suites, suite)
	}

	report := coverage.NewAnalyzer().Analyze(suites)

	var out string
	switch strings.ToLower(coverageOutputFlag) {
	case "console", "":
		out = report.FormatConsole()
	case "json":
		out, err = report.FormatJSON()
		if err != nil {
			return err
		}
		out += "\n"
	case "html":
		out = report.FormatHTML()
	default:
		return usageError(fmt.Errorf("unknown coverage format %q (available: console, json, html)", coverageOutputFlag))
	}

	if coverageOutputFileFlag != "" {
		if err := os.WriteFile(coverageOutputFileFlag, []byte(out), 0644); err != nil {
			return fmt.Errorf("writing coverage report: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Coverage report written to %s\n", coverageOutputFileFlag)
		return nil
	}

	fmt.Fprint(cmd.OutOrStdout(), out)
	return nil
}
