package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"termbridge/internal/config"
	"termbridge/internal/logging"
)

var (
	// Global flags
	configPath string
	verbose    bool
	timeout    time.Duration

	// Set up by the root command before any subcommand runs.
	logger *zap.Logger
	cfg    *config.Config
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "termbridge",
	Short: "termbridge - query a logic engine from the command line",
	Long: `termbridge loads logic modules into an embedded engine and runs goals
against them, one-shot or from an interactive prompt.

Answers are printed one per line as variable bindings; "true" means the goal
succeeded without binding anything and "false" means it has no solution.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		zc := zap.NewProductionConfig()
		if verbose {
			zc.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = zc.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}

		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		opts := cfg.Logging.Options()
		if verbose {
			opts.DebugMode = true
			opts.Level = "debug"
		}
		if err := logging.Configure(opts); err != nil {
			return fmt.Errorf("failed to configure logging: %w", err)
		}
		if timeout <= 0 {
			timeout = cfg.GetQueryTimeout()
		}
		logger.Debug("configuration loaded",
			zap.String("config", configPath),
			zap.String("backend", cfg.Engine.Backend),
			zap.Int("workers", cfg.Engine.Workers),
			zap.Duration("timeout", timeout))
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
		logging.CloseAll()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "termbridge.yaml", "Configuration file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 0, "Per-query deadline (default from config)")

	rootCmd.AddCommand(queryCmd)
	rootCmd.AddCommand(replCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(historyCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render(err.Error()))
		os.Exit(1)
	}
}
