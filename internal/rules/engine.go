package rules

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/fenilsonani/tidyrules/internal/scanner"
)

// Store persists the rule collection
type Store interface {
	Load() ([]CleaningRule, bool, error)
	Save([]CleaningRule) error
}

// ActionExecutor performs the destructive part of a rule
type ActionExecutor interface {
	Delete(ctx context.Context, path string) error
	MoveToTrash(ctx context.Context, path string) error
}

// Observer receives every finished rule execution
type Observer interface {
	OnRuleExecuted(result ExecutionResult)
}

// Config tunes an Engine
type Config struct {
	// MaxConcurrent bounds how many due rules run at once. Values below 1 mean 1.
	MaxConcurrent int
	// HomeDir replaces a leading ~ in target paths. Defaults to the user's home.
	HomeDir string
	// Defaults seed the collection when the store is empty.
	Defaults []CleaningRule
	Registry *scanner.Registry
}

// Engine owns the rule collection and executes rules against the filesystem
type Engine struct {
	mu    sync.Mutex
	rules []CleaningRule
	// ids of rules currently executing
	running map[string]struct{}

	store         Store
	walker        scanner.Walker
	executor      ActionExecutor
	registry      *scanner.Registry
	observer      Observer
	logger        *zap.Logger
	maxConcurrent int
	homeDir       string
	now           func() time.Time
}

// NewEngine loads the rule collection from store, seeding defaults on first run
func NewEngine(store Store, walker scanner.Walker, executor ActionExecutor, cfg Config, logger *zap.Logger) (*Engine, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxConcurrent < 1 {
		cfg.MaxConcurrent = 1
	}
	if cfg.HomeDir == "" {
		cfg.HomeDir, _ = os.UserHomeDir()
	}
	if cfg.Registry == nil {
		cfg.Registry = scanner.NewRegistry()
	}

	e := &Engine{
		store:         store,
		walker:        walker,
		executor:      executor,
		registry:      cfg.Registry,
		logger:        logger,
		maxConcurrent: cfg.MaxConcurrent,
		homeDir:       cfg.HomeDir,
		now:           time.Now,
		running:       make(map[string]struct{}),
	}

	loaded, found, err := store.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load rules: %w", err)
	}
	if !found {
		for _, r := range cfg.Defaults {
			e.rules = append(e.rules, r.Clone())
		}
		if err := e.persistLocked(); err != nil {
			return nil, err
		}
		logger.Info("seeded default rules", zap.Int("count", len(e.rules)))
		return e, nil
	}

	e.rules = loaded
	return e, nil
}

// SetObserver sets the receiver of execution results
func (e *Engine) SetObserver(o Observer) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.observer = o
}

// SetClock overrides the time source used by ExecuteRule
func (e *Engine) SetClock(now func() time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.now = now
}

// Reload replaces the in-memory collection with the stored one
func (e *Engine) Reload() error {
	loaded, found, err := e.store.Load()
	if err != nil {
		return fmt.Errorf("failed to reload rules: %w", err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if found {
		e.rules = loaded
	}
	return nil
}

// Rules returns a copy of every rule
func (e *Engine) Rules() []CleaningRule {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]CleaningRule, len(e.rules))
	for i, r := range e.rules {
		out[i] = r.Clone()
	}
	return out
}

// Rule returns the rule with the given id
func (e *Engine) Rule(id string) (CleaningRule, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if i := e.indexLocked(id); i >= 0 {
		return e.rules[i].Clone(), true
	}
	return CleaningRule{}, false
}

// AddRule validates and appends rule, assigning an id when it has none
func (e *Engine) AddRule(rule CleaningRule) (CleaningRule, error) {
	if err := rule.Validate(); err != nil {
		return CleaningRule{}, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if rule.ID == "" {
		rule.ID = NewID()
	}
	if e.indexLocked(rule.ID) >= 0 {
		return CleaningRule{}, fmt.Errorf("rule %s already exists", rule.ID)
	}

	e.rules = append(e.rules, rule.Clone())
	return rule, e.persistLocked()
}

// UpdateRule replaces the rule with the same id. found is false for unknown ids.
func (e *Engine) UpdateRule(rule CleaningRule) (found bool, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	i := e.indexLocked(rule.ID)
	if i < 0 {
		return false, nil
	}
	if err := rule.Validate(); err != nil {
		return true, err
	}
	e.rules[i] = rule.Clone()
	return true, e.persistLocked()
}

// DeleteRule removes the rule with the given id
func (e *Engine) DeleteRule(id string) (found bool, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	i := e.indexLocked(id)
	if i < 0 {
		return false, nil
	}
	e.rules = append(e.rules[:i], e.rules[i+1:]...)
	return true, e.persistLocked()
}

// ToggleRule flips the enabled flag of the rule with the given id
func (e *Engine) ToggleRule(id string) (found bool, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	i := e.indexLocked(id)
	if i < 0 {
		return false, nil
	}
	e.rules[i].Enabled = !e.rules[i].Enabled
	return true, e.persistLocked()
}

// SetEnabled sets the enabled flag of the rule with the given id
func (e *Engine) SetEnabled(id string, enabled bool) (found bool, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	i := e.indexLocked(id)
	if i < 0 {
		return false, nil
	}
	e.rules[i].Enabled = enabled
	return true, e.persistLocked()
}

// DueRules returns the enabled rules that are due at now and not already
// executing
func (e *Engine) DueRules(now time.Time) []CleaningRule {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.dueLocked(now)
}

func (e *Engine) dueLocked(now time.Time) []CleaningRule {
	var due []CleaningRule
	for _, r := range e.rules {
		if _, busy := e.running[r.ID]; busy {
			continue
		}
		if r.Enabled && IsDue(r, now) {
			due = append(due, r.Clone())
		}
	}
	return due
}

// IsRunning reports whether the rule with the given id is executing
func (e *Engine) IsRunning(id string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, busy := e.running[id]
	return busy
}

// ExecuteRule runs every target of rule in order and stamps its LastRun.
// A rule that is already executing is not started a second time.
func (e *Engine) ExecuteRule(ctx context.Context, rule CleaningRule) ExecutionResult {
	e.mu.Lock()
	now := e.now()
	if _, busy := e.running[rule.ID]; busy {
		e.mu.Unlock()
		return ExecutionResult{
			RuleID:     rule.ID,
			RuleName:   rule.Name,
			ExecutedAt: now,
			Errors:     []string{fmt.Sprintf("Rule already running: %s", rule.Name)},
		}
	}
	e.running[rule.ID] = struct{}{}
	e.mu.Unlock()

	return e.execute(ctx, rule, now)
}

// CheckAndExecuteDueRules runs every enabled rule due at now, at most
// MaxConcurrent at a time. Results follow the collection's order. Rules
// still executing from an earlier call are left to finish there.
func (e *Engine) CheckAndExecuteDueRules(ctx context.Context, now time.Time) []ExecutionResult {
	e.mu.Lock()
	due := e.dueLocked(now)
	for _, r := range due {
		e.running[r.ID] = struct{}{}
	}
	e.mu.Unlock()

	if len(due) == 0 {
		return []ExecutionResult{}
	}

	e.logger.Info("executing due rules", zap.Int("count", len(due)))

	results := make([]ExecutionResult, len(due))
	var g errgroup.Group
	g.SetLimit(e.maxConcurrent)
	for i, rule := range due {
		g.Go(func() error {
			results[i] = e.execute(ctx, rule, now)
			return nil
		})
	}
	_ = g.Wait()

	return results
}

// execute expects rule to be marked running and clears the mark when done
func (e *Engine) execute(ctx context.Context, rule CleaningRule, now time.Time) ExecutionResult {
	defer func() {
		e.mu.Lock()
		delete(e.running, rule.ID)
		e.mu.Unlock()
	}()

	result := ExecutionResult{
		RuleID:     rule.ID,
		RuleName:   rule.Name,
		ExecutedAt: now,
	}

	for _, target := range rule.Targets {
		if ctx.Err() != nil {
			break
		}
		e.executeTarget(ctx, rule, target, &result)
	}

	e.stampLastRun(rule.ID, now)

	e.logger.Info("rule executed",
		zap.String("rule", rule.Name),
		zap.Int("files", result.FilesProcessed),
		zap.Int64("freed", result.SpaceFreed),
		zap.Int("errors", len(result.Errors)),
	)

	e.mu.Lock()
	observer := e.observer
	e.mu.Unlock()
	if observer != nil {
		observer.OnRuleExecuted(result)
	}

	return result
}

func (e *Engine) executeTarget(ctx context.Context, rule CleaningRule, target RuleTarget, result *ExecutionResult) {
	path := ExpandHome(target.Path, e.homeDir)

	if _, err := os.Stat(path); err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("Path not found: %s", path))
		return
	}

	matcher, err := scanner.CompileCriterion(target.Criterion)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("Invalid criteria for %s: %v", path, err))
		return
	}

	category := rule.TargetCategory(target)
	entries, softErrs := e.walker.Scan(ctx, scanner.TraverseRequest{
		Root:      path,
		Recursive: true,
		Matcher:   matcher,
		Category:  category,
		Risk:      e.registry.RiskFor(category),
	})
	result.Errors = append(result.Errors, softErrs...)

	for _, entry := range entries {
		if ctx.Err() != nil {
			return
		}

		var err error
		switch target.Action {
		case ActionDelete:
			err = e.executor.Delete(ctx, entry.Path)
		case ActionTrash:
			err = e.executor.MoveToTrash(ctx, entry.Path)
		case ActionCompress:
			e.logger.Info("compression not supported, skipping", zap.String("path", entry.Path))
			continue
		default:
			err = fmt.Errorf("unknown action %q", target.Action)
		}

		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("Error processing %s: %v", entry.Path, err))
			continue
		}

		result.FilesProcessed++
		result.ProcessedPaths = append(result.ProcessedPaths, entry.Path)
		result.SpaceFreed += entry.Size
	}
}

func (e *Engine) stampLastRun(id string, at time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()

	i := e.indexLocked(id)
	if i < 0 {
		return
	}
	stamp := at
	e.rules[i].LastRun = &stamp
	if err := e.persistLocked(); err != nil {
		e.logger.Warn("failed to persist last run", zap.String("rule", id), zap.Error(err))
	}
}

func (e *Engine) indexLocked(id string) int {
	for i := range e.rules {
		if e.rules[i].ID == id {
			return i
		}
	}
	return -1
}

func (e *Engine) persistLocked() error {
	snapshot := make([]CleaningRule, len(e.rules))
	for i, r := range e.rules {
		snapshot[i] = r.Clone()
	}
	if err := e.store.Save(snapshot); err != nil {
		return fmt.Errorf("failed to save rules: %w", err)
	}
	return nil
}

// ExpandHome replaces a leading ~ with home
func ExpandHome(path, home string) string {
	if path == "~" {
		return home
	}
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(home, path[2:])
	}
	return path
}
