package cmd

import (
	"fmt"
	"strings"

	"github.com/abdul-hamid-achik/domspec/packages/assertions"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var predicatesCmd = &cobra.Command{
	Use:   "predicates",
	Short: "List the predicates usable in suites",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		bold := color.New(color.Bold).SprintFunc()
		faint := color.New(color.Faint).SprintFunc()

		for _, name := range assertions.Names() {
			e, _ := assertions.Lookup(name)
			usage := e.Usage
			if usage == "" {
				usage = e.Name
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s", bold(usage))
			if len(e.Aliases) > 0 {
				fmt.Fprintf(cmd.OutOrStdout(), " %s", faint("(alias: "+strings.Join(e.Aliases, ", ")+")"))
			}
			fmt.Fprintf(cmd.OutOrStdout(), "\n    %s\n", e.Description)
		}
	},
}
