// Package app assembles the scanner, rule engine, cleaner and stores from a
// loaded configuration. Both binaries build on it.
package app

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/fenilsonani/tidyrules/internal/cleaner"
	"github.com/fenilsonani/tidyrules/internal/config"
	"github.com/fenilsonani/tidyrules/internal/diskusage"
	"github.com/fenilsonani/tidyrules/internal/locations"
	"github.com/fenilsonani/tidyrules/internal/platform"
	"github.com/fenilsonani/tidyrules/internal/progress"
	"github.com/fenilsonani/tidyrules/internal/rules"
	"github.com/fenilsonani/tidyrules/internal/scanner"
)

// Options adjust how components are built
type Options struct {
	// Interactive allows the sudo elevator to prompt on the terminal
	Interactive bool
}

// App holds every long-lived component
type App struct {
	Config   *config.Config
	Platform *platform.Info
	DataDir  string
	Logger   *zap.Logger

	Registry     *scanner.Registry
	Progress     *progress.Reporter
	Elevator     *cleaner.SudoElevator
	Executor     *cleaner.Executor
	Engine       *rules.Engine
	Locations    *locations.Manager
	Orchestrator *scanner.Orchestrator
	Disk         *diskusage.Monitor
}

// New builds the component graph. The engine and orchestrator report to
// Progress.
func New(cfg *config.Config, info *platform.Info, logger *zap.Logger, opts Options) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	dataDir, err := cfg.ResolvedDataDir()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data dir: %w", err)
	}

	registry, err := cfg.Registry()
	if err != nil {
		return nil, err
	}

	protected := append(append([]string(nil), info.ProtectedPaths...), cfg.Deletion.ProtectedPaths...)

	elevator := cleaner.NewSudoElevator(cfg.Deletion.ElevationMethod, opts.Interactive, logger.Named("elevator"))
	executor := cleaner.NewExecutor(
		cleaner.TrashFor(info),
		elevator,
		cleaner.Options{
			UseElevation:   cfg.Deletion.UseElevation && cfg.Deletion.ElevationMethod != cleaner.MethodNone,
			ProtectedPaths: protected,
		},
		logger.Named("cleaner"),
	)

	reporter := progress.NewReporter()
	walker := scanner.NewTraverser(logger.Named("traverser"))

	engine, err := rules.NewEngine(rules.NewFileStore(dataDir), walker, executor, rules.Config{
		MaxConcurrent: cfg.Scheduler.MaxConcurrentRules,
		HomeDir:       info.HomeDir,
		Defaults:      rules.DefaultRules(info.CachesDir),
		Registry:      registry,
	}, logger.Named("rules"))
	if err != nil {
		return nil, err
	}
	engine.SetObserver(reporter)

	locs, err := locations.NewManager(locations.NewFileStore(dataDir), locations.DefaultLocations(info), logger.Named("locations"))
	if err != nil {
		return nil, err
	}

	retention := time.Duration(cfg.DiskHistory.RetentionDays) * 24 * time.Hour
	disk, err := diskusage.NewMonitor(diskusage.NewFileStore(dataDir), info.HomeDir, retention, logger.Named("disk"))
	if err != nil {
		return nil, err
	}

	orch := scanner.NewOrchestrator(walker, registry, locations.DirResolver{}, reporter, logger.Named("scan"))

	return &App{
		Config:       cfg,
		Platform:     info,
		DataDir:      dataDir,
		Logger:       logger,
		Registry:     registry,
		Progress:     reporter,
		Elevator:     elevator,
		Executor:     executor,
		Engine:       engine,
		Locations:    locs,
		Orchestrator: orch,
		Disk:         disk,
	}, nil
}

// Close stops the scan dispatcher and drops any cached sudo password
func (a *App) Close() {
	a.Orchestrator.Close()
	a.Elevator.Clear()
}
