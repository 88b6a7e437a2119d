package rules_test

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/fenilsonani/tidyrules/internal/rules"
	"github.com/fenilsonani/tidyrules/internal/scanner"
)

// removingExecutor deletes for real and records trash requests in place of a system trash
type removingExecutor struct {
	mu      sync.Mutex
	trashed []string
}

func (x *removingExecutor) Delete(_ context.Context, path string) error {
	return os.Remove(path)
}

func (x *removingExecutor) MoveToTrash(_ context.Context, path string) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.trashed = append(x.trashed, path)
	return os.Remove(path)
}

func writeAged(path string, size int, age time.Duration) {
	Expect(os.MkdirAll(filepath.Dir(path), 0755)).To(Succeed())
	Expect(os.WriteFile(path, make([]byte, size), 0644)).To(Succeed())
	stamp := time.Now().Add(-age)
	Expect(os.Chtimes(path, stamp, stamp)).To(Succeed())
}

var _ = Describe("Engine", func() {
	var (
		tmpDir   string
		homeDir  string
		dataDir  string
		store    rules.Store
		executor *removingExecutor
		engine   *rules.Engine
	)

	newEngine := func() *rules.Engine {
		e, err := rules.NewEngine(store, scanner.NewTraverser(zap.NewNop()), executor, rules.Config{
			MaxConcurrent: 2,
			HomeDir:       homeDir,
			Defaults:      rules.DefaultRules(filepath.Join(homeDir, ".cache")),
		}, zap.NewNop())
		Expect(err).NotTo(HaveOccurred())
		return e
	}

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "tidyrules-engine-*")
		Expect(err).NotTo(HaveOccurred())

		homeDir = filepath.Join(tmpDir, "home")
		dataDir = filepath.Join(tmpDir, "data")
		Expect(os.MkdirAll(filepath.Join(homeDir, "Downloads"), 0755)).To(Succeed())

		store = rules.NewFileStore(dataDir)
		executor = &removingExecutor{}
		engine = newEngine()
	})

	AfterEach(func() {
		os.RemoveAll(tmpDir)
	})

	Describe("first run", func() {
		It("should persist the disabled default rules", func() {
			_, err := os.Stat(filepath.Join(dataDir, rules.FileName))
			Expect(err).NotTo(HaveOccurred())

			all := engine.Rules()
			Expect(all).To(HaveLen(2))
			for _, r := range all {
				Expect(r.Enabled).To(BeFalse())
			}
		})

		It("should not run anything while the defaults are disabled", func() {
			Expect(engine.CheckAndExecuteDueRules(context.Background(), time.Now())).To(BeEmpty())
		})
	})

	Describe("the download fragments rule", func() {
		var fragment, keep string

		BeforeEach(func() {
			fragment = filepath.Join(homeDir, "Downloads", "movie.crdownload")
			keep = filepath.Join(homeDir, "Downloads", "notes.txt")
			writeAged(fragment, 2_000_000, 10*24*time.Hour)
			writeAged(keep, 2_000_000, 10*24*time.Hour)

			found, err := engine.SetEnabled(rules.DefaultDownloadsRuleID, true)
			Expect(err).NotTo(HaveOccurred())
			Expect(found).To(BeTrue())
		})

		Context("when it has never run", func() {
			It("should trash matching fragments only", func() {
				results := engine.CheckAndExecuteDueRules(context.Background(), time.Now())
				Expect(results).To(HaveLen(1))

				result := results[0]
				Expect(result.Succeeded()).To(BeTrue())
				Expect(result.FilesProcessed).To(Equal(1))
				Expect(result.SpaceFreed).To(Equal(int64(2_000_000)))
				Expect(executor.trashed).To(ConsistOf(fragment))

				_, err := os.Stat(fragment)
				Expect(os.IsNotExist(err)).To(BeTrue())
				_, err = os.Stat(keep)
				Expect(err).NotTo(HaveOccurred())
			})

			It("should survive a restart with its last run recorded", func() {
				ranAt := time.Now()
				engine.CheckAndExecuteDueRules(context.Background(), ranAt)

				restarted := newEngine()
				rule, ok := restarted.Rule(rules.DefaultDownloadsRuleID)
				Expect(ok).To(BeTrue())
				Expect(rule.LastRun).NotTo(BeNil())
				Expect(rule.LastRun.Equal(ranAt)).To(BeTrue())

				Expect(restarted.CheckAndExecuteDueRules(context.Background(), ranAt.AddDate(0, 0, 6))).To(BeEmpty())
				Expect(restarted.CheckAndExecuteDueRules(context.Background(), ranAt.AddDate(0, 0, 7))).To(HaveLen(1))
			})
		})

		Context("when the downloads folder is missing", func() {
			It("should report the path and still stamp the run", func() {
				Expect(os.RemoveAll(filepath.Join(homeDir, "Downloads"))).To(Succeed())

				results := engine.CheckAndExecuteDueRules(context.Background(), time.Now())
				Expect(results).To(HaveLen(1))
				Expect(results[0].Succeeded()).To(BeFalse())
				Expect(results[0].Errors).To(ConsistOf("Path not found: " + filepath.Join(homeDir, "Downloads")))

				rule, _ := engine.Rule(rules.DefaultDownloadsRuleID)
				Expect(rule.LastRun).NotTo(BeNil())
			})
		})
	})

	Describe("a manual rule", func() {
		It("should only run when executed explicitly", func() {
			log := filepath.Join(homeDir, "Library", "Logs", "big.log")
			writeAged(log, 500, time.Hour)

			added, err := engine.AddRule(rules.CleaningRule{
				Name:     "Purge logs",
				Schedule: rules.ScheduleManual,
				Enabled:  true,
				Targets: []rules.RuleTarget{{
					Path:      "~/Library/Logs",
					Criterion: scanner.ScanCriterion{Pattern: `\.log$`}.WithMinSize(100),
					Action:    rules.ActionDelete,
				}},
			})
			Expect(err).NotTo(HaveOccurred())

			Expect(engine.CheckAndExecuteDueRules(context.Background(), time.Now())).To(BeEmpty())

			result := engine.ExecuteRule(context.Background(), added)
			Expect(result.ProcessedPaths).To(ConsistOf(log))
			_, err = os.Stat(log)
			Expect(os.IsNotExist(err)).To(BeTrue())
		})
	})
})
