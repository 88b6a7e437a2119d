package rules

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fenilsonani/tidyrules/internal/scanner"
	"github.com/fenilsonani/tidyrules/internal/testutil"
)

// =============================================================================
// Test doubles
// =============================================================================

type memoryStore struct {
	mu    sync.Mutex
	rules []CleaningRule
	found bool
	saves int
}

func (s *memoryStore) Load() ([]CleaningRule, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]CleaningRule(nil), s.rules...), s.found, nil
}

func (s *memoryStore) Save(rules []CleaningRule) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rules = append([]CleaningRule(nil), rules...)
	s.found = true
	s.saves++
	return nil
}

func (s *memoryStore) saved() []CleaningRule {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]CleaningRule(nil), s.rules...)
}

func (s *memoryStore) saveCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}

type spyWalker struct {
	inner   scanner.Walker
	calls   int32
	active  int32
	maxSeen int32
	delay   time.Duration
}

func (w *spyWalker) Scan(ctx context.Context, req scanner.TraverseRequest) ([]scanner.ProblemEntry, []string) {
	atomic.AddInt32(&w.calls, 1)
	n := atomic.AddInt32(&w.active, 1)
	defer atomic.AddInt32(&w.active, -1)
	for {
		seen := atomic.LoadInt32(&w.maxSeen)
		if n <= seen || atomic.CompareAndSwapInt32(&w.maxSeen, seen, n) {
			break
		}
	}
	if w.delay > 0 {
		time.Sleep(w.delay)
	}
	if w.inner == nil {
		return nil, nil
	}
	return w.inner.Scan(ctx, req)
}

type mockExecutor struct {
	mock.Mock
}

func (m *mockExecutor) Delete(ctx context.Context, path string) error {
	return m.Called(ctx, path).Error(0)
}

func (m *mockExecutor) MoveToTrash(ctx context.Context, path string) error {
	return m.Called(ctx, path).Error(0)
}

type collectingObserver struct {
	mu      sync.Mutex
	results []ExecutionResult
}

func (o *collectingObserver) OnRuleExecuted(result ExecutionResult) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.results = append(o.results, result)
}

func newEngine(t *testing.T, store Store, walker scanner.Walker, exec ActionExecutor, home string) *Engine {
	t.Helper()
	e, err := NewEngine(store, walker, exec, Config{MaxConcurrent: 2, HomeDir: home}, zap.NewNop())
	require.NoError(t, err)
	return e
}

func fragmentRule(id, path string) CleaningRule {
	return CleaningRule{
		ID:       id,
		Name:     "Fragments " + id,
		Category: scanner.CategoryIncompleteDownloads,
		Schedule: ScheduleWeekly,
		Enabled:  true,
		Targets: []RuleTarget{{
			Path: path,
			Criterion: scanner.ScanCriterion{}.
				WithPattern(`\.crdownload$`).
				WithMinSize(1000).
				WithMinAge(7 * 24 * time.Hour),
			Action: ActionTrash,
		}},
	}
}

// =============================================================================
// Due-ness
// =============================================================================

func TestIsDue_Weekly(t *testing.T) {
	now := time.Date(2024, 3, 20, 9, 0, 0, 0, time.UTC)
	rule := CleaningRule{Schedule: ScheduleWeekly}

	sixDays := now.AddDate(0, 0, -6)
	rule.LastRun = &sixDays
	assert.False(t, IsDue(rule, now), "6 days is not a full week")

	sevenDays := now.AddDate(0, 0, -7)
	rule.LastRun = &sevenDays
	assert.True(t, IsDue(rule, now))
}

func TestIsDue_ManualNeverDue(t *testing.T) {
	now := time.Now()
	rule := CleaningRule{Schedule: ScheduleManual}
	assert.False(t, IsDue(rule, now))

	longAgo := now.AddDate(-5, 0, 0)
	rule.LastRun = &longAgo
	assert.False(t, IsDue(rule, now))

	_, ok := NextRun(rule, now)
	assert.False(t, ok)
}

func TestIsDue_NeverRunIsDue(t *testing.T) {
	for _, s := range []Schedule{ScheduleHourly, ScheduleDaily, ScheduleWeekly, ScheduleMonthly} {
		assert.True(t, IsDue(CleaningRule{Schedule: s}, time.Now()), string(s))
	}
}

func TestIsDue_WholeUnits(t *testing.T) {
	now := time.Date(2024, 2, 15, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		schedule Schedule
		last     time.Time
		want     bool
	}{
		{"hourly 59m", ScheduleHourly, now.Add(-59 * time.Minute), false},
		{"hourly 60m", ScheduleHourly, now.Add(-time.Hour), true},
		{"daily 23h", ScheduleDaily, now.Add(-23 * time.Hour), false},
		{"daily 1d", ScheduleDaily, now.AddDate(0, 0, -1), true},
		{"monthly 30d in feb", ScheduleMonthly, time.Date(2024, 1, 16, 12, 0, 0, 0, time.UTC), false},
		{"monthly one calendar month", ScheduleMonthly, time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			last := tt.last
			assert.Equal(t, tt.want, IsDue(CleaningRule{Schedule: tt.schedule, LastRun: &last}, now))
		})
	}
}

func TestNextRun(t *testing.T) {
	last := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	next, ok := NextRun(CleaningRule{Schedule: ScheduleWeekly, LastRun: &last}, time.Now())
	require.True(t, ok)
	assert.Equal(t, time.Date(2024, 1, 8, 0, 0, 0, 0, time.UTC), next)
}

// =============================================================================
// Model
// =============================================================================

func TestCleaningRule_Validate(t *testing.T) {
	valid := fragmentRule("a", "/tmp")
	assert.NoError(t, valid.Validate())

	noName := valid.Clone()
	noName.Name = " "
	assert.Error(t, noName.Validate())

	badSchedule := valid.Clone()
	badSchedule.Schedule = "fortnightly"
	assert.Error(t, badSchedule.Validate())

	badPattern := valid.Clone()
	badPattern.Targets[0].Criterion.Pattern = "(("
	err := badPattern.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid pattern")
	assert.Equal(t, `\.crdownload$`, valid.Targets[0].Criterion.Pattern, "clone does not share targets")

	badAction := valid.Clone()
	badAction.Targets[0].Action = "shred"
	assert.Error(t, badAction.Validate())
}

func TestParseScheduleAndAction(t *testing.T) {
	s, err := ParseSchedule(" Weekly ")
	require.NoError(t, err)
	assert.Equal(t, ScheduleWeekly, s)
	_, err = ParseSchedule("yearly")
	assert.Error(t, err)

	a, err := ParseAction("move-to-trash")
	require.NoError(t, err)
	assert.Equal(t, ActionTrash, a)
	_, err = ParseAction("burn")
	assert.Error(t, err)
}

func TestTargetCategory(t *testing.T) {
	rule := CleaningRule{Category: scanner.CategoryDocker}
	assert.Equal(t, scanner.CategoryDocker, rule.TargetCategory(RuleTarget{}))
	assert.Equal(t, scanner.CategoryTrash, rule.TargetCategory(RuleTarget{Category: scanner.CategoryTrash}))
	assert.Equal(t, scanner.CategoryOther, CleaningRule{}.TargetCategory(RuleTarget{}))
}

func TestExpandHome(t *testing.T) {
	assert.Equal(t, "/home/me", ExpandHome("~", "/home/me"))
	assert.Equal(t, "/home/me/Downloads", ExpandHome("~/Downloads", "/home/me"))
	assert.Equal(t, "/var/log", ExpandHome("/var/log", "/home/me"))
	assert.Equal(t, "~other/x", ExpandHome("~other/x", "/home/me"))
}

func TestDefaultRules(t *testing.T) {
	defaults := DefaultRules("/home/me/.cache")
	require.Len(t, defaults, 2)

	downloads, caches := defaults[0], defaults[1]
	assert.False(t, downloads.Enabled)
	assert.False(t, caches.Enabled)
	assert.Equal(t, ScheduleWeekly, downloads.Schedule)
	assert.Equal(t, ScheduleMonthly, caches.Schedule)
	assert.Equal(t, ActionTrash, downloads.Targets[0].Action)
	assert.Equal(t, ActionDelete, caches.Targets[0].Action)
	assert.Equal(t, "/home/me/.cache", caches.Targets[0].Path)
	assert.Equal(t, int64(500_000_000), *caches.Targets[0].Criterion.MinSize)
	for _, r := range defaults {
		assert.NoError(t, r.Validate())
	}
}

// =============================================================================
// Engine: collection
// =============================================================================

func TestEngine_SeedsDefaultsOnFirstRun(t *testing.T) {
	store := &memoryStore{}
	e, err := NewEngine(store, &spyWalker{}, &mockExecutor{}, Config{Defaults: DefaultRules("/c")}, zap.NewNop())
	require.NoError(t, err)

	assert.Len(t, e.Rules(), 2)
	assert.Equal(t, 1, store.saveCount())
	assert.Len(t, store.saved(), 2)
}

func TestEngine_LoadsExistingCollection(t *testing.T) {
	store := &memoryStore{found: true, rules: []CleaningRule{fragmentRule("x", "/tmp")}}
	e, err := NewEngine(store, &spyWalker{}, &mockExecutor{}, Config{Defaults: DefaultRules("/c")}, zap.NewNop())
	require.NoError(t, err)

	rules := e.Rules()
	require.Len(t, rules, 1)
	assert.Equal(t, "x", rules[0].ID)
	assert.Equal(t, 0, store.saveCount())
}

func TestEngine_Mutations(t *testing.T) {
	store := &memoryStore{found: true}
	e := newEngine(t, store, &spyWalker{}, &mockExecutor{}, "/home")

	added, err := e.AddRule(fragmentRule("", "/tmp"))
	require.NoError(t, err)
	assert.NotEmpty(t, added.ID)
	assert.Len(t, store.saved(), 1)

	_, err = e.AddRule(added)
	assert.Error(t, err, "duplicate id")

	changed := added.Clone()
	changed.Name = "Renamed"
	found, err := e.UpdateRule(changed)
	require.NoError(t, err)
	assert.True(t, found)
	got, ok := e.Rule(added.ID)
	require.True(t, ok)
	assert.Equal(t, "Renamed", got.Name)

	saves := store.saveCount()
	unknown := changed.Clone()
	unknown.ID = "nope"
	found, err = e.UpdateRule(unknown)
	require.NoError(t, err)
	assert.False(t, found)
	assert.Equal(t, saves, store.saveCount(), "unknown id is a no-op")

	found, err = e.ToggleRule(added.ID)
	require.NoError(t, err)
	assert.True(t, found)
	got, _ = e.Rule(added.ID)
	assert.False(t, got.Enabled)

	found, err = e.SetEnabled(added.ID, true)
	require.NoError(t, err)
	assert.True(t, found)
	got, _ = e.Rule(added.ID)
	assert.True(t, got.Enabled)

	found, err = e.DeleteRule(added.ID)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Empty(t, e.Rules())
	assert.Empty(t, store.saved())

	bad := fragmentRule("bad", "/tmp")
	bad.Targets[0].Criterion.Pattern = "["
	_, err = e.AddRule(bad)
	assert.Error(t, err)

	found, err = e.UpdateRule(bad)
	assert.NoError(t, err, "unknown id is a no-op even when the rule is invalid")
	assert.False(t, found)
}

func TestEngine_RulesReturnsCopy(t *testing.T) {
	e := newEngine(t, &memoryStore{found: true}, &spyWalker{}, &mockExecutor{}, "/home")
	_, err := e.AddRule(fragmentRule("a", "/tmp"))
	require.NoError(t, err)

	rules := e.Rules()
	rules[0].Name = "mutated"
	rules[0].Targets[0].Path = "/elsewhere"

	got, _ := e.Rule("a")
	assert.Equal(t, "Fragments a", got.Name)
	assert.Equal(t, "/tmp", got.Targets[0].Path)
}

// =============================================================================
// Engine: execution
// =============================================================================

func TestEngine_ZeroDueRulesSkipsTraversal(t *testing.T) {
	manual := fragmentRule("manual", "/tmp")
	manual.Schedule = ScheduleManual
	disabled := fragmentRule("disabled", "/tmp")
	disabled.Enabled = false
	now := time.Now()
	recent := fragmentRule("recent", "/tmp")
	recent.LastRun = &now

	walker := &spyWalker{}
	exec := &mockExecutor{}
	store := &memoryStore{found: true, rules: []CleaningRule{manual, disabled, recent}}
	e := newEngine(t, store, walker, exec, "/home")

	results := e.CheckAndExecuteDueRules(context.Background(), now)

	assert.NotNil(t, results)
	assert.Empty(t, results)
	assert.Equal(t, int32(0), atomic.LoadInt32(&walker.calls))
	exec.AssertNotCalled(t, "MoveToTrash", mock.Anything, mock.Anything)
	assert.Equal(t, 0, store.saveCount())
}

func TestEngine_MoveToTrashPartialFailure(t *testing.T) {
	f := testutil.NewFixture(t)
	age := 10 * 24 * time.Hour
	a := f.CreateFileWithAge("home/Downloads/a.crdownload", 2000, age)
	b := f.CreateFileWithAge("home/Downloads/b.crdownload", 3000, age)
	c := f.CreateFileWithAge("home/Downloads/nested/c.crdownload", 4000, age)
	f.CreateFileWithAge("home/Downloads/fresh.crdownload", 5000, time.Hour)
	f.CreateFileWithAge("home/Downloads/old.txt", 5000, age)

	exec := &mockExecutor{}
	exec.On("MoveToTrash", mock.Anything, a).Return(nil)
	exec.On("MoveToTrash", mock.Anything, b).Return(errors.New("permission denied"))
	exec.On("MoveToTrash", mock.Anything, c).Return(nil)

	store := &memoryStore{found: true, rules: []CleaningRule{fragmentRule("dl", "~/Downloads")}}
	e := newEngine(t, store, scanner.NewTraverser(zap.NewNop()), exec, f.HomeDir)
	ranAt := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	e.SetClock(testutil.FixedClock(ranAt))

	obs := &collectingObserver{}
	e.SetObserver(obs)

	rule, _ := e.Rule("dl")
	result := e.ExecuteRule(context.Background(), rule)

	assert.Equal(t, 2, result.FilesProcessed)
	assert.ElementsMatch(t, []string{a, c}, result.ProcessedPaths)
	assert.Equal(t, int64(6000), result.SpaceFreed)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, "Error processing "+b+": permission denied", result.Errors[0])
	assert.False(t, result.Succeeded())
	assert.Equal(t, ranAt, result.ExecutedAt)
	exec.AssertNumberOfCalls(t, "MoveToTrash", 3)

	saved := store.saved()
	require.Len(t, saved, 1)
	require.NotNil(t, saved[0].LastRun, "last run is stamped despite errors")
	assert.Equal(t, ranAt, *saved[0].LastRun)

	require.Len(t, obs.results, 1)
	assert.Equal(t, "dl", obs.results[0].RuleID)
}

func TestEngine_MissingTargetContinues(t *testing.T) {
	f := testutil.NewFixture(t)
	log := f.CreateSizedFile("home/Library/Logs/app.log", 100)

	rule := CleaningRule{
		ID:       "logs",
		Name:     "Logs",
		Schedule: ScheduleDaily,
		Enabled:  true,
		Targets: []RuleTarget{
			{Path: f.Path("gone"), Action: ActionDelete},
			{Path: f.LogsDir, Criterion: scanner.ScanCriterion{Pattern: `\.log$`}, Action: ActionDelete},
		},
	}

	exec := &mockExecutor{}
	exec.On("Delete", mock.Anything, log).Return(nil)

	e := newEngine(t, &memoryStore{found: true, rules: []CleaningRule{rule}}, scanner.NewTraverser(zap.NewNop()), exec, f.HomeDir)
	result := e.ExecuteRule(context.Background(), rule)

	require.Len(t, result.Errors, 1)
	assert.Equal(t, "Path not found: "+f.Path("gone"), result.Errors[0])
	assert.Equal(t, 1, result.FilesProcessed)
	assert.Equal(t, int64(100), result.SpaceFreed)
	exec.AssertExpectations(t)
}

func TestEngine_CompressIsNotCounted(t *testing.T) {
	f := testutil.NewFixture(t)
	f.CreateSizedFile("home/Library/Logs/app.log", 100)

	rule := CleaningRule{
		ID: "zip", Name: "Zip logs", Schedule: ScheduleManual,
		Targets: []RuleTarget{{Path: f.LogsDir, Action: ActionCompress}},
	}
	exec := &mockExecutor{}
	e := newEngine(t, &memoryStore{found: true, rules: []CleaningRule{rule}}, scanner.NewTraverser(zap.NewNop()), exec, f.HomeDir)

	result := e.ExecuteRule(context.Background(), rule)

	assert.True(t, result.Succeeded())
	assert.Zero(t, result.FilesProcessed)
	assert.Zero(t, result.SpaceFreed)
	exec.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
	exec.AssertNotCalled(t, "MoveToTrash", mock.Anything, mock.Anything)
}

func TestEngine_InvalidCriterionIsSoft(t *testing.T) {
	f := testutil.NewFixture(t)
	rule := CleaningRule{
		ID: "r", Name: "Broken", Schedule: ScheduleManual,
		Targets: []RuleTarget{
			{Path: f.LogsDir, Criterion: scanner.ScanCriterion{Pattern: "(("}, Action: ActionDelete},
			{Path: f.CachesDir, Action: ActionDelete},
		},
	}
	walker := &spyWalker{}
	e := newEngine(t, &memoryStore{found: true}, walker, &mockExecutor{}, f.HomeDir)

	result := e.ExecuteRule(context.Background(), rule)

	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "Invalid criteria for "+f.LogsDir)
	assert.Equal(t, int32(1), atomic.LoadInt32(&walker.calls), "sibling target still runs")
}

func TestEngine_DueRulesRunConcurrentlyWithinLimit(t *testing.T) {
	f := testutil.NewFixture(t)

	var stored []CleaningRule
	for _, id := range []string{"r1", "r2", "r3", "r4", "r5"} {
		stored = append(stored, fragmentRule(id, f.DownloadsDir))
	}
	walker := &spyWalker{delay: 20 * time.Millisecond}
	store := &memoryStore{found: true, rules: stored}
	e := newEngine(t, store, walker, &mockExecutor{}, f.HomeDir)

	now := time.Now()
	results := e.CheckAndExecuteDueRules(context.Background(), now)

	require.Len(t, results, 5)
	for i, r := range results {
		assert.Equal(t, stored[i].ID, r.RuleID)
		assert.True(t, r.Succeeded())
	}
	assert.Equal(t, int32(5), atomic.LoadInt32(&walker.calls))
	assert.LessOrEqual(t, atomic.LoadInt32(&walker.maxSeen), int32(2))

	for _, r := range store.saved() {
		require.NotNil(t, r.LastRun)
		assert.True(t, r.LastRun.Equal(now))
	}

	// everything just ran, so nothing is due anymore
	assert.Empty(t, e.CheckAndExecuteDueRules(context.Background(), now.Add(time.Hour)))
}

func TestEngine_CancelledContextStopsTargets(t *testing.T) {
	f := testutil.NewFixture(t)
	rule := fragmentRule("c", f.DownloadsDir)
	walker := &spyWalker{}
	e := newEngine(t, &memoryStore{found: true, rules: []CleaningRule{rule}}, walker, &mockExecutor{}, f.HomeDir)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	result := e.ExecuteRule(ctx, rule)

	assert.Zero(t, result.FilesProcessed)
	assert.Equal(t, int32(0), atomic.LoadInt32(&walker.calls))
}

func TestEngine_Reload(t *testing.T) {
	store := &memoryStore{found: true, rules: []CleaningRule{fragmentRule("a", "/tmp")}}
	e := newEngine(t, store, &spyWalker{}, &mockExecutor{}, "/home")

	store.mu.Lock()
	store.rules = append(store.rules, fragmentRule("b", "/tmp"))
	store.mu.Unlock()

	require.NoError(t, e.Reload())
	assert.Len(t, e.Rules(), 2)
}

type gatedWalker struct {
	calls   int32
	started chan struct{}
	release chan struct{}
}

func (w *gatedWalker) Scan(ctx context.Context, req scanner.TraverseRequest) ([]scanner.ProblemEntry, []string) {
	if atomic.AddInt32(&w.calls, 1) == 1 {
		close(w.started)
	}
	<-w.release
	return nil, nil
}

func TestEngine_OverlappingChecksRunRuleOnce(t *testing.T) {
	f := testutil.NewFixture(t)
	rule := fragmentRule("dl", f.DownloadsDir)
	walker := &gatedWalker{started: make(chan struct{}), release: make(chan struct{})}
	e := newEngine(t, &memoryStore{found: true, rules: []CleaningRule{rule}}, walker, &mockExecutor{}, f.HomeDir)

	now := time.Now()
	first := make(chan []ExecutionResult)
	go func() { first <- e.CheckAndExecuteDueRules(context.Background(), now) }()
	<-walker.started

	assert.True(t, e.IsRunning("dl"))
	assert.Empty(t, e.DueRules(now))
	assert.Empty(t, e.CheckAndExecuteDueRules(context.Background(), now))

	manual := e.ExecuteRule(context.Background(), rule)
	require.Len(t, manual.Errors, 1)
	assert.Contains(t, manual.Errors[0], "already running")

	close(walker.release)
	results := <-first
	require.Len(t, results, 1)
	assert.True(t, results[0].Succeeded())
	assert.Equal(t, int32(1), atomic.LoadInt32(&walker.calls))
	assert.False(t, e.IsRunning("dl"))
}
