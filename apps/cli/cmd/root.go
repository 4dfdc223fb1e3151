package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

var logLevelFlag string

var rootCmd = &cobra.Command{
	Use:   "domspec",
	Short: "DOM assertions in plain YAML. No browser.",
	Long: `domspec checks HTML fixtures against chai-dom style predicates.

Write a fixture, pick a subject with a CSS selector and list the
predicates it must satisfy. Suites live in *.domspec.yaml files.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setupLogging,
}

func Execute(v, bt string) {
	version = v
	buildTime = bt
	if err := rootCmd.Execute(); err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			if exitErr.Err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", exitErr.Err)
			}
			os.Exit(exitErr.Code)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(ExitUsageError)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", getEnvString("DOMSPEC_LOG_LEVEL", ""), "Log level: debug, info, warn, error (env: DOMSPEC_LOG_LEVEL)")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(predicatesCmd)
	rootCmd.AddCommand(coverageCmd)
}

// setupLogging sends diagnostics to stderr so reports on stdout stay clean.
func setupLogging(cmd *cobra.Command, args []string) error {
	logrus.SetOutput(cmd.ErrOrStderr())
	logrus.SetFormatter(&logrus.TextFormatter{
		DisableTimestamp: true,
	})

	level := logrus.WarnLevel
	if logLevelFlag != "" {
		parsed, err := logrus.ParseLevel(logLevelFlag)
		if err != nil {
			return usageError(fmt.Errorf("invalid log level %q: %w", logLevelFlag, err))
		}
		level = parsed
	}
	logrus.SetLevel(level)
	return nil
}
