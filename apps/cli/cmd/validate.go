package cmd

import (
	"fmt"

	"github.com/abdul-hamid-achik/domspec/packages/core/parser"
	"github.com/abdul-hamid-achik/domspec/packages/core/runner"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate <file|directory>...",
	Short: "Validate suite files without running them",
	Long: `Validate suite files against the suite schema and check that every
predicate they use is registered. Nothing is evaluated.

Examples:
  domspec validate page.domspec.yaml
  domspec validate ./specs/`,
	Args: cobra.MinimumNArgs(1),
	RunE: validateCommand,
}

func validateCommand(cmd *cobra.Command, args []string) error {
	files, err := collectFiles(args)
	if err != nil {
		return usageError(err)
	}

	if len(files) == 0 {
		return usageError(fmt.Errorf("no .domspec, .domspec.yaml or .domspec.yml files found"))
	}

	hasErrors := false
	for _, file := range files {
		if err := validateFile(file); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Error in %s: %v\n", file, err)
			hasErrors = true
		} else {
			fmt.Fprintf(cmd.OutOrStdout(), "Valid: %s\n", file)
		}
	}

	if hasErrors {
		return parseError(fmt.Errorf("validation failed"))
	}

	return nil
}

func validateFile(file string) error {
	suite, err := parser.ParseFile(file)
	if err != nil {
		return err
	}
	return suite.CheckPredicates(runner.KnownPredicate)
}
