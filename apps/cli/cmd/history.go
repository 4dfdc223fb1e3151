package cmd

import (
	"errors"
	"fmt"

	"github.com/abdul-hamid-achik/domspec/packages/core/config"
	"github.com/abdul-hamid-achik/domspec/packages/history"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// DefaultHistoryPath is used when neither --db nor the config names a database.
const DefaultHistoryPath = ".domspec/history.db"

var (
	historyDBFlag     string
	historyLimitFlag  int
	historyFlakyFlag  bool
	historyWindowFlag int
	historyPruneFlag  int
)

var historyCmd = &cobra.Command{
	Use:   "history [run-id]",
	Short: "Show recorded runs",
	Long: `Show runs recorded with 'domspec run --history'.

Without arguments the most recent runs are listed. With a run ID (or a
unique prefix of one) the tests of that run are shown.

Examples:
  domspec history
  domspec history 3f2a
  domspec history --flaky --window 20
  domspec history --prune 50`,
	Args: cobra.MaximumNArgs(1),
	RunE: historyCommand,
}

func init() {
	historyCmd.Flags().StringVar(&historyDBFlag, "db", getEnvString("DOMSPEC_HISTORY", ""), "History database (default: config history or "+DefaultHistoryPath+") (env: DOMSPEC_HISTORY)")
	historyCmd.Flags().StringVar(&configFlag, "config", getEnvString("DOMSPEC_CONFIG", ""), "Path to config file (env: DOMSPEC_CONFIG)")
	historyCmd.Flags().IntVar(&historyLimitFlag, "limit", 20, "Number of runs to list")
	historyCmd.Flags().BoolVar(&historyFlakyFlag, "flaky", false, "List tests that both passed and failed recently")
	historyCmd.Flags().IntVar(&historyWindowFlag, "window", 10, "Number of recent runs inspected by --flaky")
	historyCmd.Flags().IntVar(&historyPruneFlag, "prune", -1, "Delete all but the newest N runs")
}

func historyPath() (string, error) {
	if historyDBFlag != "" {
		return historyDBFlag, nil
	}
	cfg, err := config.LoadConfig(configFlag)
	if err != nil {
		return "", err
	}
	if cfg.History != "" {
		return cfg.ResolvePath(cfg.History), nil
	}
	return DefaultHistoryPath, nil
}

func historyCommand(cmd *cobra.Command, args []string) error {
	path, err := historyPath()
	if err != nil {
		return configError(err)
	}

	store, err := history.Open(path)
	if err != nil {
		return configError(err)
	}
	defer store.Close()

	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	switch {
	case historyPruneFlag >= 0:
		removed, err := store.Prune(ctx, historyPruneFlag)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Removed %d run(s)\n", removed)
		return nil

	case historyFlakyFlag:
		flaky, err := store.Flaky(ctx, historyWindowFlag)
		if err != nil {
			return err
		}
		if len(flaky) == 0 {
			fmt.Fprintf(out, "No flaky tests in the last %d run(s)\n", historyWindowFlag)
			return nil
		}
		for _, f := range flaky {
			fmt.Fprintf(out, "%s  %s: %d passed, %d failed\n", f.File, f.Name, f.Passed, f.Failed)
		}
		return nil

	case len(args) == 1:
		return showRun(cmd, store, args[0])
	}

	runs, err := store.Runs(ctx, historyLimitFlag)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintf(out, "No runs recorded in %s\n", store.Path())
		return nil
	}

	green := color.New(color.FgGreen).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()
	for _, run := range runs {
		status := green("PASS")
		if run.Failed > 0 {
			status = red("FAIL")
		}
		fmt.Fprintf(out, "%s  %s  %s  %-8s %d passed, %d failed, %d skipped (%dms)\n",
			run.ID[:min(8, len(run.ID))], run.StartedAt.Local().Format("2006-01-02 15:04:05"), status,
			run.Environment, run.Passed, run.Failed, run.Skipped, run.Duration.Milliseconds())
	}
	return nil
}

func showRun(cmd *cobra.Command, store *history.Store, id string) error {
	run, err := store.Run(cmd.Context(), id)
	if errors.Is(err, history.ErrRunNotFound) {
		return usageError(err)
	}
	if err != nil {
		return err
	}

	tests, err := store.Tests(cmd.Context(), run.ID)
	if err != nil {
		return err
	}

	green := color.New(color.FgGreen).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Run %s (%s, env %q)\n\n", run.ID, run.StartedAt.Local().Format("2006-01-02 15:04:05"), run.Environment)
	for _, t := range tests {
		var symbol string
		switch t.Status {
		case history.StatusPassed:
			symbol = green("✓")
		case history.StatusSkipped:
			symbol = yellow("-")
		default:
			symbol = red("✗")
		}
		fmt.Fprintf(out, "  %s %s  %s\n", symbol, t.File, t.Name)
		if t.Message != "" && t.Status != history.StatusPassed {
			fmt.Fprintf(out, "      %s\n", t.Message)
		}
	}
	fmt.Fprintf(out, "\nTests: %d passed, %d failed, %d skipped, %d total\n", run.Passed, run.Failed, run.Skipped, run.Total)
	return nil
}
