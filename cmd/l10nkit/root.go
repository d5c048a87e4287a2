package main

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/c360studio/l10nkit/config"
	"github.com/c360studio/l10nkit/metrics"
)

// app holds what every subcommand shares once the root has set it up.
type app struct {
	configPath  string
	logLevel    string
	logFormat   string
	metricsFile string

	cfg     *config.Config
	logger  *slog.Logger
	metrics *metrics.Recorder
}

func rootCmd() *cobra.Command {
	a := &app{}

	cmd := &cobra.Command{
		Use:   appName,
		Short: "Localize and proofread resource trees",
		Long: `l10nkit renders a source tree of string tables into one output tree
per locale, substituting @@token@@ placeholders from a filter policy, and
audits the localized output for denied terms and disallowed characters.

Supported dialects: Fluent (.ftl), properties, INI, DTD, CSS and .inc.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd.ErrOrStderr())
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVarP(&a.configPath, "config", "c", "", "Config file path (YAML); default searches for "+config.ProjectConfigFile)
	flags.StringVar(&a.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	flags.StringVar(&a.logFormat, "log-format", "", "Log format (text, json)")
	flags.StringVar(&a.metricsFile, "metrics-file", "", "Write run counters to this file in the Prometheus text format")

	cmd.AddCommand(convertCmd(a), proofCmd(a))
	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return nil
		},
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s version %s (build: %s)\n", appName, Version, BuildTime)
		},
	})

	return cmd
}

// setup loads the layered configuration and builds the run's logger.
// Flags given on the command line win over every config layer.
func (a *app) setup(stderr io.Writer) error {
	bootstrap, err := newLogger(stderr, firstNonEmpty(a.logLevel, "info"), firstNonEmpty(a.logFormat, "text"))
	if err != nil {
		return err
	}

	cfg, err := config.NewLoader(bootstrap).Load(a.configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}
	if a.logFormat != "" {
		cfg.Log.Format = a.logFormat
	}
	if a.metricsFile != "" {
		cfg.Paths.MetricsFile = a.metricsFile
	}

	logger, err := newLogger(stderr, cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = logger.With("run_id", uuid.NewString())
	a.metrics = metrics.NewRecorder()
	slog.SetDefault(a.logger)
	return nil
}

// flushMetrics writes the run counters when a metrics file is configured.
func (a *app) flushMetrics() {
	if a.cfg.Paths.MetricsFile == "" {
		return
	}
	if err := a.metrics.WriteTextfile(a.cfg.Paths.MetricsFile); err != nil {
		a.logger.Warn("Failed to write metrics", "path", a.cfg.Paths.MetricsFile, "error", err)
		return
	}
	a.logger.Debug("Wrote metrics", "path", a.cfg.Paths.MetricsFile)
}

func newLogger(w io.Writer, level, format string) (*slog.Logger, error) {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "info":
		lvl = slog.LevelInfo
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		return nil, fmt.Errorf("unknown log level %q", level)
	}

	opts := &slog.HandlerOptions{Level: lvl}
	switch strings.ToLower(format) {
	case "text":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("unknown log format %q", format)
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
