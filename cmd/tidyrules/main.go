package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fenilsonani/tidyrules/internal/app"
	"github.com/fenilsonani/tidyrules/internal/config"
	"github.com/fenilsonani/tidyrules/internal/logger"
	"github.com/fenilsonani/tidyrules/internal/platform"
	"github.com/fenilsonani/tidyrules/internal/reporter"
)

var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

var (
	configPath string
	verbose    bool
	outputFmt  string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "tidyrules",
	Short: "Find wasteful files and clean them with scheduled rules",
	Long: `tidyrules scans chosen locations for caches, stale downloads, logs and other
wasteful entries, and runs user-defined cleaning rules on a schedule.`,
	Version:       fmt.Sprintf("%s (commit: %s, built: %s)", Version, GitCommit, BuildTime),
	SilenceUsage:  true,
	SilenceErrors: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "tidyrules %s (commit: %s, built: %s)\n", Version, GitCommit, BuildTime)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file path")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "log to stderr at debug level")
	rootCmd.PersistentFlags().StringVarP(&outputFmt, "output", "o", string(reporter.FormatSummary), "output format (summary, table, json, yaml)")

	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(rulesCmd)
	rootCmd.AddCommand(locationsCmd)
	rootCmd.AddCommand(diskCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}

func loadConfig() (*config.Config, error) {
	if configPath != "" {
		return config.Load(configPath)
	}

	cfgPath, err := config.GetConfigPath()
	if err != nil {
		return nil, err
	}

	return config.Load(cfgPath)
}

// newLogger keeps the terminal quiet unless --verbose or a log file is set
func newLogger(cfg *config.Config) *zap.Logger {
	if verbose {
		return logger.New(logger.Options{Level: "debug", Console: true})
	}
	if cfg.LogFile != "" {
		return logger.New(logger.Options{Level: cfg.LogLevel, File: cfg.LogFile})
	}
	return logger.New(logger.Options{Level: "error"})
}

// buildApp loads config and assembles the components
func buildApp(interactive bool) (*app.App, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	info, err := platform.GetInfo()
	if err != nil {
		return nil, fmt.Errorf("failed to get platform info: %w", err)
	}

	return app.New(cfg, info, newLogger(cfg), app.Options{Interactive: interactive})
}

func newReporter(cmd *cobra.Command) (*reporter.Reporter, error) {
	format, err := reporter.ParseFormat(outputFmt)
	if err != nil {
		return nil, err
	}
	return reporter.New(cmd.OutOrStdout(), format), nil
}

// signalContext is cancelled on SIGINT or SIGTERM
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}
