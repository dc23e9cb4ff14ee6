package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/abhisek/learnfast/internal/app"
	"github.com/abhisek/learnfast/internal/config"
	"github.com/abhisek/learnfast/internal/logger"
	"github.com/abhisek/learnfast/internal/metrics"
	"github.com/abhisek/learnfast/internal/store"
)

var rootCmd = &cobra.Command{
	Use:           "learnfast",
	Short:         "Prerequisite-aware learning paths",
	Long:          "learnfast tracks concept progress over a prerequisite graph, plans budgeted learning paths and assembles lessons for them.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		path, _ := cmd.Flags().GetString("metrics-file")
		if path == "" && loadedConfig != nil {
			path = loadedConfig.Metrics.TextfilePath
		}
		if err := metrics.WriteTextfile(path); err != nil {
			fmt.Fprintln(os.Stderr, "write metrics:", err)
		}
	},
}

// loadedConfig is set by loadConfig for the post-run hook.
var loadedConfig *config.Config

// Execute runs the root command with ctx.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.String("db", "", "Path to SQLite database file (overrides LEARNFAST_DB env var)")
	pf.String("config", "", "Path to a YAML config file")
	pf.String("log-mode", "", "Log mode: dev or prod")
	pf.String("log-level", "", "Log level: debug, info, warn or error")
	pf.String("metrics-file", "", "Write Prometheus metrics to this file on exit")
	pf.Bool("trace", false, "Print OpenTelemetry spans to stderr")

	rootCmd.AddCommand(conceptCmd)
	rootCmd.AddCommand(progressCmd)
	rootCmd.AddCommand(planCmd)
	rootCmd.AddCommand(lessonCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(resetCmd)
	rootCmd.AddCommand(versionCmd)
}

// loadConfig reads --config and the environment, then applies flag overrides.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return config.Config{}, err
	}
	if m, _ := cmd.Flags().GetString("log-mode"); m != "" {
		cfg.Log.Mode = m
	}
	if l, _ := cmd.Flags().GetString("log-level"); l != "" {
		cfg.Log.Level = l
	}
	if on, _ := cmd.Flags().GetBool("trace"); on {
		cfg.Tracing.Exporter = "stdout"
	}
	cfg.Tracing.Version = version
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	loadedConfig = &cfg
	return cfg, nil
}

// resolveDBPath returns the database path using --db flag (highest priority),
// then the configured path (LEARNFAST_DB or config file), then the default
// XDG path.
func resolveDBPath(cmd *cobra.Command, cfg config.Config) (string, error) {
	if p, _ := cmd.Flags().GetString("db"); p != "" {
		return p, store.EnsureDir(p)
	}
	if cfg.Store.Path != "" {
		return cfg.Store.Path, store.EnsureDir(cfg.Store.Path)
	}
	return store.DefaultDBPath()
}

// openApp loads configuration, builds the logger and wires the app.
// Callers must Close the returned app.
func openApp(cmd *cobra.Command) (*app.App, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	log, err := logger.New(cfg.Log.Mode, cfg.Log.Level)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	dbPath, err := resolveDBPath(cmd, cfg)
	if err != nil {
		return nil, fmt.Errorf("resolve DB path: %w", err)
	}
	a, err := app.New(cmd.Context(), cfg, dbPath, log)
	if err != nil {
		return nil, err
	}
	return a, nil
}

func addUserFlag(cmd *cobra.Command) {
	cmd.Flags().StringP("user", "u", "", "Learner id (required)")
	_ = cmd.MarkFlagRequired("user")
}
