package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/abdul-hamid-achik/domspec/packages/core/config"
	"github.com/abdul-hamid-achik/domspec/packages/core/parser"
	"github.com/abdul-hamid-achik/domspec/packages/core/runner"
	"github.com/abdul-hamid-achik/domspec/packages/export/metrics"
	"github.com/abdul-hamid-achik/domspec/packages/history"
	"github.com/abdul-hamid-achik/domspec/packages/notify"
	"github.com/abdul-hamid-achik/domspec/packages/output"
	"github.com/abdul-hamid-achik/domspec/packages/snapshot"
	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run <file|directory>...",
	Short: "Run DOM assertion suites",
	Long: `Run the tests defined in *.domspec.yaml, *.domspec.yml or *.domspec files.

Examples:
  domspec run page.domspec.yaml
  domspec run ./specs/ --env staging
  domspec run ./specs/ --tags smoke --output junit --output-file report.xml
  domspec run page.domspec.yaml --name "attr*"
  domspec run ./specs/ --watch
  domspec run ./specs/ --update-snapshots
  domspec run ./specs/ --history .domspec/history.db
  domspec run ./specs/ --metrics prometheus --metrics-file /var/lib/node_exporter/domspec.prom`,
	Args: cobra.MinimumNArgs(1),
	RunE: runCommand,
}

const (
	// WatchDebounceDelay is the debounce delay for file watch events
	WatchDebounceDelay = 300 * time.Millisecond
)

var (
	envFlag         string
	envFileFlag     string
	configFlag      string
	nameFlag        string
	tagsFlag        string
	varFlags        []string
	verboseFlag     int // 0=off, 1=-v, 2=-vv
	quietFlag       bool
	noColorFlag     bool
	outputFlag      string
	outputFileFlag  string
	bailFlag        bool
	dryRunFlag      bool
	parallelFlag    bool
	concurrencyFlag int
	watchFlag       bool
	historyFlag     string

	// Snapshot testing flags
	updateSnapshotsFlag bool

	// Notification flags
	notifyFlag       string
	notifyOnFlag     string
	slackWebhookFlag string
	slackChannelFlag string
	webhookURLFlag   string
	notifyEveryFlag  time.Duration

	// Metrics export flags
	metricsFlag     string
	metricsFileFlag string
)

func init() {
	// Core flags
	runCmd.Flags().StringVarP(&envFlag, "env", "e", getEnvString("DOMSPEC_ENV", ""), "Environment to use (env: DOMSPEC_ENV)")
	runCmd.Flags().StringVar(&envFileFlag, "env-file", getEnvString("DOMSPEC_ENV_FILE", ""), "Path to .env file for variable interpolation (env: DOMSPEC_ENV_FILE)")
	runCmd.Flags().StringVar(&configFlag, "config", getEnvString("DOMSPEC_CONFIG", ""), "Path to config file (env: DOMSPEC_CONFIG)")
	runCmd.Flags().StringVarP(&nameFlag, "name", "n", "", "Run only tests matching name pattern")
	runCmd.Flags().StringVarP(&tagsFlag, "tags", "t", getEnvString("DOMSPEC_TAGS", ""), "Run only tests with specified tags (comma-separated) (env: DOMSPEC_TAGS)")
	runCmd.Flags().StringArrayVar(&varFlags, "var", nil, "Override a variable (name=value, repeatable)")

	// Output flags
	runCmd.Flags().CountVarP(&verboseFlag, "verbose", "v", "Verbose output (-v, -vv for more detail)")
	runCmd.Flags().BoolVarP(&quietFlag, "quiet", "q", getEnvBool("DOMSPEC_QUIET", false), "Suppress all output except failures and errors (env: DOMSPEC_QUIET)")
	runCmd.Flags().BoolVar(&noColorFlag, "no-color", getEnvBool("DOMSPEC_NO_COLOR", false), "Disable colored output (env: DOMSPEC_NO_COLOR)")
	runCmd.Flags().StringVarP(&outputFlag, "output", "o", getEnvString("DOMSPEC_OUTPUT", "console"), "Output format: console, json, junit, tap, html (env: DOMSPEC_OUTPUT)")
	runCmd.Flags().StringVar(&outputFileFlag, "output-file", getEnvString("DOMSPEC_OUTPUT_FILE", ""), "Write output to file (default: stdout) (env: DOMSPEC_OUTPUT_FILE)")

	// Execution flags
	runCmd.Flags().BoolVar(&bailFlag, "bail", getEnvBool("DOMSPEC_BAIL", false), "Stop on first failure (env: DOMSPEC_BAIL)")
	runCmd.Flags().BoolVar(&dryRunFlag, "dry-run", false, "Parse and show what would run without evaluating")
	runCmd.Flags().BoolVarP(&parallelFlag, "parallel", "p", getEnvBool("DOMSPEC_PARALLEL", false), "Run the tests of a file in parallel (env: DOMSPEC_PARALLEL)")
	runCmd.Flags().IntVar(&concurrencyFlag, "concurrency", getEnvInt("DOMSPEC_CONCURRENCY", runner.DefaultConcurrency), "Number of tests run at once in parallel mode (env: DOMSPEC_CONCURRENCY)")
	runCmd.Flags().BoolVarP(&watchFlag, "watch", "w", false, "Watch files for changes and re-run tests")
	runCmd.Flags().BoolVarP(&updateSnapshotsFlag, "update-snapshots", "u", false, "Write missing and changed snapshots instead of failing")
	runCmd.Flags().StringVar(&metricsFlag, "metrics", getEnvString("DOMSPEC_METRICS", ""), "Export run metrics: prometheus, json (env: DOMSPEC_METRICS)")
	runCmd.Flags().StringVar(&metricsFileFlag, "metrics-file", getEnvString("DOMSPEC_METRICS_FILE", ""), "Metrics output file (default: domspec-metrics.prom or .json) (env: DOMSPEC_METRICS_FILE)")
	runCmd.Flags().StringVar(&notifyFlag, "notify", getEnvString("DOMSPEC_NOTIFY", ""), "Notification services: slack, webhook (comma-separated) (env: DOMSPEC_NOTIFY)")
	runCmd.Flags().StringVar(&notifyOnFlag, "notify-on", getEnvString("DOMSPEC_NOTIFY_ON", "failure"), "When to notify: always, failure, success, recovery (env: DOMSPEC_NOTIFY_ON)")
	runCmd.Flags().StringVar(&slackWebhookFlag, "slack-webhook", getEnvString("DOMSPEC_SLACK_WEBHOOK", ""), "Slack incoming webhook URL (env: DOMSPEC_SLACK_WEBHOOK)")
	runCmd.Flags().StringVar(&slackChannelFlag, "slack-channel", getEnvString("DOMSPEC_SLACK_CHANNEL", ""), "Slack channel override (env: DOMSPEC_SLACK_CHANNEL)")
	runCmd.Flags().StringVar(&webhookURLFlag, "webhook-url", getEnvString("DOMSPEC_WEBHOOK_URL", ""), "URL receiving the run summary as JSON (env: DOMSPEC_WEBHOOK_URL)")
	runCmd.Flags().DurationVar(&notifyEveryFlag, "notify-interval", 0, "Minimum time between notifications, e.g. 5m in watch mode (0 = no limit)")
	runCmd.Flags().StringVar(&historyFlag, "history", getEnvString("DOMSPEC_HISTORY", ""), "Record the run in a SQLite history database (env: DOMSPEC_HISTORY)")
}

// Environment variable helpers
func getEnvString(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		return val == "true" || val == "1" || val == "yes"
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

// runOptions is the effective configuration of one run: config file values
// overridden by flags the user set explicitly.
type runOptions struct {
	environment  string
	environments map[string]map[string]any
	envFile      string
	variables    map[string]any
	tags         []string
	format       string
	outputFile   string
	verbose      bool
	noColor      bool
	bail         bool
	history      string
}

func resolveRunOptions(cmd *cobra.Command, fileConfig *config.Config) (*runOptions, error) {
	flags := cmd.Flags()
	opts := &runOptions{
		environment:  fileConfig.DefaultEnvironment,
		environments: fileConfig.Environments,
		envFile:      fileConfig.ResolvePath(fileConfig.EnvFile),
		variables:    make(map[string]any, len(fileConfig.Variables)),
		tags:         fileConfig.Tags,
		format:       "console",
		outputFile:   outputFileFlag,
		verbose:      fileConfig.GetVerbose(),
		noColor:      fileConfig.GetNoColor(),
		bail:         fileConfig.GetBail(),
		history:      fileConfig.ResolvePath(fileConfig.History),
	}
	for k, v := range fileConfig.Variables {
		opts.variables[k] = v
	}
	if len(fileConfig.Reporters) > 0 {
		opts.format = fileConfig.Reporters[0]
	}

	if envFlag != "" {
		opts.environment = envFlag
	}
	if envFileFlag != "" {
		opts.envFile = envFileFlag
	}
	if tagsFlag != "" {
		opts.tags = splitList(tagsFlag)
	}
	if flags.Changed("output") || os.Getenv("DOMSPEC_OUTPUT") != "" {
		opts.format = outputFlag
	}
	if flags.Changed("verbose") {
		opts.verbose = verboseFlag > 0
	}
	if flags.Changed("no-color") || noColorFlag {
		opts.noColor = noColorFlag
	}
	if flags.Changed("bail") || bailFlag {
		opts.bail = bailFlag
	}
	if historyFlag != "" {
		opts.history = historyFlag
	}
	if opts.outputFile == "" && fileConfig.OutputDir != "" && opts.format != "console" {
		opts.outputFile = filepath.Join(fileConfig.ResolvePath(fileConfig.OutputDir), "domspec-report."+reportExtension(opts.format))
	}

	for _, kv := range varFlags {
		name, value, ok := strings.Cut(kv, "=")
		if !ok || strings.TrimSpace(name) == "" {
			return nil, fmt.Errorf("invalid --var %q (want name=value)", kv)
		}
		opts.variables[strings.TrimSpace(name)] = value
	}

	return opts, nil
}

func reportExtension(format string) string {
	switch strings.ToLower(format) {
	case "junit":
		return "xml"
	case "tap":
		return "tap"
	case "html":
		return "html"
	default:
		return "json"
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

// newFormatter builds the reporter for opts writing to w. Quiet console runs
// only log failures.
func newFormatter(opts *runOptions, w io.Writer) (output.Formatter, error) {
	if quietFlag && strings.EqualFold(opts.format, "console") {
		return &quietFormatter{log: logrus.StandardLogger()}, nil
	}
	return output.New(opts.format, output.Options{
		Writer:  w,
		Verbose: opts.verbose,
		NoColor: opts.noColor,
	})
}

func runCommand(cmd *cobra.Command, args []string) error {
	// Load config from file (if present) and apply CLI overrides
	fileConfig, err := config.LoadConfig(configFlag)
	if err != nil {
		return configError(err)
	}

	opts, err := resolveRunOptions(cmd, fileConfig)
	if err != nil {
		return usageError(err)
	}
	if opts.verbose && logLevelFlag == "" {
		level := logrus.InfoLevel
		if verboseFlag > 1 {
			level = logrus.DebugLevel
		}
		logrus.SetLevel(level)
	} else if logLevelFlag == "" && fileConfig.LogLevel != "" {
		if level, err := logrus.ParseLevel(fileConfig.LogLevel); err == nil {
			logrus.SetLevel(level)
		}
	}

	// Setup output writer
	var outWriter io.Writer = cmd.OutOrStdout()
	if opts.outputFile != "" {
		if err := os.MkdirAll(filepath.Dir(opts.outputFile), 0755); err != nil {
			return fmt.Errorf("cannot create output directory: %w", err)
		}
		f, err := os.Create(opts.outputFile)
		if err != nil {
			return fmt.Errorf("cannot create output file: %w", err)
		}
		defer f.Close()
		outWriter = f
	}

	formatter, err := newFormatter(opts, outWriter)
	if err != nil {
		return usageError(err)
	}

	if metricsFlag != "" && !isMetricsFormat(metricsFlag) {
		return usageError(fmt.Errorf("unknown metrics format %q (available: %s)", metricsFlag, strings.Join(metrics.Formats, ", ")))
	}

	files, err := collectFiles(args)
	if err != nil {
		formatter.FormatError(err)
		return usageError(err)
	}
	if len(files) == 0 {
		return usageError(errors.New("no .domspec, .domspec.yaml or .domspec.yml files found"))
	}

	r := runner.NewRunner(&runner.Config{
		Environment:  opts.environment,
		Environments: opts.environments,
		EnvFile:      opts.envFile,
		Variables:    opts.variables,
		Verbose:      opts.verbose,
		Bail:         opts.bail,
		DryRun:       dryRunFlag,
		NameFilter:   nameFlag,
		TagsFilter:   opts.tags,
		Parallel:     parallelFlag,
		Concurrency:  concurrencyFlag,
		Snapshots:    snapshot.NewManager(updateSnapshotsFlag),
		Logger:       logrus.StandardLogger(),
	})

	notifier, err := newNotifyManager()
	if err != nil {
		return usageError(err)
	}

	var store *history.Store
	if opts.history != "" {
		if err := os.MkdirAll(filepath.Dir(opts.history), 0755); err != nil {
			return configError(fmt.Errorf("cannot create history directory: %w", err))
		}
		store, err = history.Open(opts.history)
		if err != nil {
			return configError(err)
		}
		defer store.Close()
	}

	run := func(formatter output.Formatter, files []string) *runSummary {
		formatter.FormatHeader(version)
		summary := runFiles(r, files, formatter, opts.bail)

		// Flush output for formatters that accumulate results
		if err := output.Flush(formatter, summary.duration); err != nil {
			logrus.WithError(err).Error("error writing output")
		}

		if metricsFlag != "" && !dryRunFlag {
			if err := exportMetrics(metricsFlag, metricsFileFlag, summary.results); err != nil {
				logrus.WithError(err).Warn("failed to export metrics")
			}
		}

		if notifier != nil && !dryRunFlag {
			ns := notify.Summarize(summary.results, opts.environment, summary.duration)
			ns.RunID = runID(formatter)
			if err := notifier.Notify(context.Background(), ns); err != nil {
				logrus.WithError(err).Warn("failed to send notification")
			}
		}

		if store != nil && !dryRunFlag {
			h := history.NewRun(runID(formatter), opts.environment, summary.started, summary.duration, summary.results)
			if err := store.Record(context.Background(), h, summary.results); err != nil {
				logrus.WithError(err).Warn("failed to record run history")
			} else {
				logrus.WithField("run", h.ID).Debug("run recorded")
			}
		}
		return summary
	}

	summary := run(formatter, files)

	if !watchFlag {
		return summary.exitError()
	}

	return watch(cmd, args, files, newRerun(args, func(files []string) {
		// JSON, JUnit, TAP and HTML accumulate results, so each run needs a fresh formatter.
		f, err := newFormatter(opts, cmd.OutOrStdout())
		if err != nil {
			logrus.WithError(err).Error("cannot create formatter")
			return
		}
		run(f, files)
	}))
}

// newRerun returns a watch callback that collects suite files from args
// again, so suites created after startup are picked up. Calls never
// overlap since every run shares the runner, history store and notifier.
func newRerun(args []string, run func(files []string)) func() {
	var mu sync.Mutex
	return func() {
		mu.Lock()
		defer mu.Unlock()

		files, err := collectFiles(args)
		if err != nil {
			logrus.WithError(err).Error("cannot collect suite files")
			return
		}
		if len(files) == 0 {
			logrus.Warn("no suite files left to run")
			return
		}
		run(files)
	}
}

// newNotifyManager builds notifiers from the notify flags, or returns nil
// when notifications are off.
func newNotifyManager() (*notify.Manager, error) {
	if notifyFlag == "" {
		return nil, nil
	}
	notifyOn, err := notify.ParseNotifyOn(notifyOnFlag)
	if err != nil {
		return nil, err
	}

	var notifiers []notify.Notifier
	for _, service := range splitList(notifyFlag) {
		switch strings.ToLower(service) {
		case "slack":
			if slackWebhookFlag == "" {
				return nil, errors.New("--slack-webhook is required when using --notify slack")
			}
			var slackOpts []notify.SlackOption
			if slackChannelFlag != "" {
				slackOpts = append(slackOpts, notify.WithSlackChannel(slackChannelFlag))
			}
			notifiers = append(notifiers, notify.NewSlackNotifier(slackWebhookFlag, slackOpts...))
		case "webhook":
			if webhookURLFlag == "" {
				return nil, errors.New("--webhook-url is required when using --notify webhook")
			}
			notifiers = append(notifiers, notify.NewWebhookNotifier(webhookURLFlag))
		default:
			return nil, fmt.Errorf("unknown notification service %q (available: slack, webhook)", service)
		}
	}
	m := notify.NewManager(notifyOn, notifiers...)
	m.SetMinInterval(notifyEveryFlag)
	return m, nil
}

// exportMetrics writes the metrics of one run in format to path.
func exportMetrics(format, path string, results []*runner.RunResult) error {
	if path == "" {
		ext := "prom"
		if strings.EqualFold(format, "json") {
			ext = "json"
		}
		path = "domspec-metrics." + ext
	}
	exp, err := metrics.NewExporter(format, path, version)
	if err != nil {
		return err
	}
	collector := metrics.NewCollector(exp)
	defer collector.Close()

	for _, rr := range results {
		collector.RecordRun(rr)
	}
	if err := collector.Flush(); err != nil {
		return err
	}
	logrus.WithField("file", path).Debug("metrics exported")
	return nil
}

func isMetricsFormat(format string) bool {
	for _, f := range metrics.Formats {
		if strings.EqualFold(f, format) {
			return true
		}
	}
	return false
}

// runID reuses the JSON report's ID so the report and the history record
// can be matched.
func runID(f output.Formatter) string {
	if jf, ok := f.(*output.JSONFormatter); ok {
		return jf.RunID()
	}
	return ""
}

type runSummary struct {
	started     time.Time
	duration    time.Duration
	results     []*runner.RunResult
	failed      int
	parseErrors int
}

func (s *runSummary) exitError() error {
	switch {
	case s.parseErrors > 0:
		return &ExitError{Code: ExitParseError}
	case s.failed > 0:
		return &ExitError{Code: ExitTestFailure}
	default:
		return nil
	}
}

func runFiles(r *runner.Runner, files []string, formatter output.Formatter, bail bool) *runSummary {
	summary := &runSummary{started: time.Now()}

	for _, file := range files {
		result, err := r.RunFile(file)
		if err != nil {
			formatter.FormatError(fmt.Errorf("%s: %w", file, err))
			summary.parseErrors++
			if bail {
				break
			}
			continue
		}

		formatter.FormatResult(result)
		summary.results = append(summary.results, result)
		summary.failed += result.Failed

		if bail && result.Failed > 0 {
			break
		}
	}

	summary.duration = time.Since(summary.started)
	return summary
}

// watch re-runs rerun whenever a suite file changes, until interrupted.
func watch(cmd *cobra.Command, args, files []string, rerun func()) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer watcher.Close()

	// Add files and directories to watch
	watchedDirs := make(map[string]bool)
	for _, file := range files {
		dir := filepath.Dir(file)
		if !watchedDirs[dir] {
			if err := watcher.Add(dir); err != nil {
				logrus.WithError(err).WithField("dir", dir).Warn("failed to watch directory")
			}
			watchedDirs[dir] = true
		}
	}

	// Also watch the original args if they're directories
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err == nil && info.IsDir() {
			_ = filepath.Walk(arg, func(path string, info os.FileInfo, err error) error {
				if err != nil {
					return err
				}
				if info.IsDir() && !watchedDirs[path] {
					_ = watcher.Add(path)
					watchedDirs[path] = true
				}
				return nil
			})
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Fprintf(cmd.OutOrStdout(), "\nWatching for changes... (press Ctrl+C to stop)\n\n")

	// Debounce timer for rapid file changes
	var debounceTimer *time.Timer
	defer func() {
		if debounceTimer != nil {
			debounceTimer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}

			if event.Has(fsnotify.Create) && !watchedDirs[event.Name] {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := watcher.Add(event.Name); err == nil {
						watchedDirs[event.Name] = true
					}
					continue
				}
			}

			// Only react to writes and creates of suite files
			if !(event.Has(fsnotify.Write) || event.Has(fsnotify.Create)) || !parser.IsSuiteFile(event.Name) {
				continue
			}
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			name := event.Name
			debounceTimer = time.AfterFunc(WatchDebounceDelay, func() {
				fmt.Fprintf(cmd.OutOrStdout(), "\n\nFile changed: %s\nRe-running tests...\n\n", name)
				rerun()
				fmt.Fprintf(cmd.OutOrStdout(), "\nWatching for changes... (press Ctrl+C to stop)\n")
			})

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logrus.WithError(err).Warn("watcher error")
		}
	}
}

func collectFiles(args []string) ([]string, error) {
	var files []string

	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, fmt.Errorf("cannot access %s: %w", arg, err)
		}

		if info.IsDir() {
			err := filepath.Walk(arg, func(path string, info os.FileInfo, err error) error {
				if err != nil {
					return err
				}
				if !info.IsDir() && parser.IsSuiteFile(path) {
					files = append(files, path)
				}
				return nil
			})
			if err != nil {
				return nil, err
			}
		} else if parser.IsSuiteFile(arg) {
			files = append(files, arg)
		}
	}

	return files, nil
}

// quietFormatter reports only failing tests and errors, through the logger.
type quietFormatter struct {
	log logrus.FieldLogger
}

func (q *quietFormatter) FormatHeader(string) {}

func (q *quietFormatter) FormatError(err error) {
	q.log.Error(err)
}

func (q *quietFormatter) FormatResult(result *runner.RunResult) {
	for _, tr := range result.Results {
		if !tr.Failed() {
			continue
		}
		entry := q.log.WithFields(logrus.Fields{"file": result.File, "test": tr.Name})
		if tr.Error != nil {
			entry.WithError(tr.Error).Error("test errored")
			continue
		}
		for _, a := range tr.Assertions {
			if !a.Passed {
				entry.WithField("assert", a.Operator).Error(a.Message)
			}
		}
	}
}
