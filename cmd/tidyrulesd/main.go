package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/fenilsonani/tidyrules/internal/app"
	"github.com/fenilsonani/tidyrules/internal/config"
	"github.com/fenilsonani/tidyrules/internal/daemon"
	"github.com/fenilsonani/tidyrules/internal/logger"
	"github.com/fenilsonani/tidyrules/internal/platform"
	"github.com/fenilsonani/tidyrules/internal/reporter"
)

var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildTime = "unknown"

	configPath  string
	testConfig  bool
	showVersion bool
)

func init() {
	flag.StringVar(&configPath, "config", "", "Path to configuration file")
	flag.BoolVar(&testConfig, "test-config", false, "Validate configuration, list rules and exit")
	flag.BoolVar(&showVersion, "version", false, "Show version and exit")
}

func main() {
	flag.Parse()

	if showVersion {
		fmt.Printf("tidyrulesd v%s (commit: %s, built: %s)\n", Version, GitCommit, BuildTime)
		os.Exit(0)
	}

	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}

	pidFile, err := cfg.PidFilePath()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error resolving pid file: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(logger.Options{Level: cfg.LogLevel, File: cfg.LogFile})
	defer log.Sync()

	info, err := platform.GetInfo()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error detecting platform: %v\n", err)
		os.Exit(1)
	}

	a, err := app.New(cfg, info, log, app.Options{Interactive: false})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing: %v\n", err)
		os.Exit(1)
	}
	defer a.Close()

	if testConfig {
		fmt.Println("Configuration is valid")
		fmt.Printf("Data dir: %s\n", a.DataDir)
		fmt.Printf("Check interval: %s\n", cfg.Scheduler.CheckInterval)
		fmt.Printf("Disk sampling: %s\n", cfg.DiskHistory.SampleInterval)
		fmt.Printf("PID file: %s\n\n", pidFile)
		if err := reporter.New(os.Stdout, reporter.FormatSummary).ReportRules(a.Engine.Rules()); err != nil {
			fmt.Fprintf(os.Stderr, "Error listing rules: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if pid, running := daemon.RunningPid(pidFile); running {
		fmt.Fprintf(os.Stderr, "Daemon is already running (pid %d)\n", pid)
		os.Exit(1)
	}

	var notifier *daemon.Notifier
	if cfg.Notifications.Enabled {
		notifier = daemon.NewNotifier(cfg.Notifications, log.Named("notify"))
		a.Engine.SetObserver(notifier)
	}

	d, err := daemon.New(a.Engine, a.Disk, notifier, daemon.Options{
		CheckInterval:  cfg.Scheduler.CheckInterval,
		SampleInterval: cfg.DiskHistory.SampleInterval,
		PidFile:        pidFile,
	}, log.Named("daemon"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating daemon: %v\n", err)
		os.Exit(1)
	}

	log.Info("starting tidyrulesd",
		zap.String("version", Version),
		zap.Int("rules", len(a.Engine.Rules())),
		zap.Time("started", time.Now()),
	)
	if err := d.Start(); err != nil {
		log.Error("daemon stopped with error", zap.Error(err))
		fmt.Fprintf(os.Stderr, "Error starting daemon: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig prefers --config, then the system file, then the user file
func loadConfig() (*config.Config, error) {
	if configPath != "" {
		return config.Load(configPath)
	}

	if _, err := os.Stat(config.SystemConfigPath); err == nil {
		return config.Load(config.SystemConfigPath)
	}

	cfgPath, err := config.GetConfigPath()
	if err != nil {
		return nil, err
	}

	return config.Load(cfgPath)
}
