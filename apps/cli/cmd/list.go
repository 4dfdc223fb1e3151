package cmd

import (
	"fmt"
	"strings"

	"github.com/abdul-hamid-achik/domspec/packages/core/parser"
	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list <file|directory>...",
	Short: "List all tests in suite files",
	Long: `List the tests defined in suite files with their subjects and tags.

Examples:
  domspec list page.domspec.yaml
  domspec list ./specs/`,
	Args: cobra.MinimumNArgs(1),
	RunE: listCommand,
}

func listCommand(cmd *cobra.Command, args []string) error {
	files, err := collectFiles(args)
	if err != nil {
		return usageError(err)
	}

	if len(files) == 0 {
		return usageError(fmt.Errorf("no .domspec, .domspec.yaml or .domspec.yml files found"))
	}

	for _, file := range files {
		suite, err := parser.ParseFile(file)
		if err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Error parsing %s: %v\n", file, err)
			continue
		}

		fmt.Fprintf(cmd.OutOrStdout(), "\n%s (%s):\n", file, suite.Name)
		for _, test := range suite.Tests {
			fmt.Fprintf(cmd.OutOrStdout(), "  - %s\n", test.Name)
			fmt.Fprintf(cmd.OutOrStdout(), "    subject: %s\n", describeSubject(test))
			if tags := append(append([]string(nil), suite.Tags...), test.Tags...); len(tags) > 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "    tags: %s\n", strings.Join(tags, ", "))
			}
			if test.Skip != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "    skip: %s\n", test.Skip)
			}
			for _, exp := range test.Expect {
				fmt.Fprintf(cmd.OutOrStdout(), "    %s %s\n", expectMarker(exp), exp)
			}
		}
	}

	return nil
}

func describeSubject(test *parser.Test) string {
	switch test.SubjectKind() {
	case parser.SubjectSelectOne:
		return fmt.Sprintf("element %q", test.Element)
	case parser.SubjectSelectAll:
		return fmt.Sprintf("select %q", test.Select)
	case parser.SubjectValue:
		return fmt.Sprintf("value %v", test.Value)
	default:
		return test.SubjectKind().String()
	}
}

func expectMarker(exp *parser.Expectation) string {
	if exp.Fails != nil {
		return "✗"
	}
	return "•"
}
