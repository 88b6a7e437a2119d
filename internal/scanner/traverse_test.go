package scanner

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fenilsonani/tidyrules/internal/testutil"
)

func newTestTraverser() *Traverser {
	return NewTraverser(zap.NewNop())
}

func mustMatcher(t *testing.T, c ScanCriterion) *Matcher {
	t.Helper()
	m, err := CompileCriterion(c)
	require.NoError(t, err)
	return m
}

func entryPaths(entries []ProblemEntry) []string {
	paths := make([]string, 0, len(entries))
	for _, e := range entries {
		paths = append(paths, e.Path)
	}
	return testutil.SortedPaths(paths)
}

func TestTraverser_CrdownloadScenario(t *testing.T) {
	f := testutil.NewFixture(t)
	a := f.CreateFileWithAge("home/Downloads/a.crdownload", 5_000_000, 10*24*time.Hour)
	f.CreateFileWithAge("home/Downloads/b.txt", 5_000_000, 24*time.Hour)

	c := ScanCriterion{}.
		WithPattern(`\.crdownload$`).
		WithMinSize(1_000_000).
		WithMinAge(7 * 24 * time.Hour)

	entries, errs := newTestTraverser().Scan(context.Background(), TraverseRequest{
		Root:      f.DownloadsDir,
		Recursive: true,
		Matcher:   mustMatcher(t, c),
		Category:  CategoryIncompleteDownloads,
		Risk:      RiskLow,
	})

	assert.Empty(t, errs)
	require.Len(t, entries, 1)
	assert.Equal(t, a, entries[0].Path)
	assert.Equal(t, "a.crdownload", entries[0].Name)
	assert.Equal(t, int64(5_000_000), entries[0].Size)
	assert.Equal(t, CategoryIncompleteDownloads, entries[0].Category)
	assert.Equal(t, RiskLow, entries[0].Risk)
	assert.False(t, entries[0].IsDir)
}

func TestTraverser_DirectoryAggregation(t *testing.T) {
	f := testutil.NewFixture(t)
	f.CreateSizedFile("home/Library/Caches/app/one.bin", 100)
	f.CreateSizedFile("home/Library/Caches/app/two.bin", 200)
	f.CreateSizedFile("home/Library/Caches/app/nested/three.bin", 300)

	entries, errs := newTestTraverser().Scan(context.Background(), TraverseRequest{
		Root:               f.CachesDir,
		Recursive:          true,
		Matcher:            mustMatcher(t, ScanCriterion{}.WithMinSize(500)),
		Category:           CategoryApplicationCaches,
		IncludeDirectories: true,
	})

	assert.Empty(t, errs)
	require.Len(t, entries, 1, "only app/ exceeds the threshold")

	app := entries[0]
	assert.Equal(t, filepath.Join(f.CachesDir, "app"), app.Path)
	assert.True(t, app.IsDir)
	assert.Equal(t, int64(600), app.Size, "directory size is the sum of descendant files")
}

func TestTraverser_DirectoriesAlwaysDescended(t *testing.T) {
	f := testutil.NewFixture(t)
	f.CreateSizedFile("home/proj/web/node_modules/pkg/index.js", 800)
	f.CreateSizedFile("home/proj/web/node_modules/pkg/lib.js", 400)
	f.CreateSizedFile("home/proj/web/src/main.js", 5000)

	entries, _ := newTestTraverser().Scan(context.Background(), TraverseRequest{
		Root:               f.HomeDir,
		Recursive:          true,
		Matcher:            mustMatcher(t, ScanCriterion{}.WithPattern(`node_modules`).WithMinSize(1000)),
		Category:           CategoryDeveloperFiles,
		Risk:               RiskMedium,
		IncludeDirectories: true,
	})

	require.Len(t, entries, 1)
	assert.Equal(t, f.Path("home/proj/web/node_modules"), entries[0].Path)
	assert.Equal(t, int64(1200), entries[0].Size)
	assert.Equal(t, RiskMedium, entries[0].Risk)
}

func TestTraverser_DirectoryAndFileEntriesCoexist(t *testing.T) {
	f := testutil.NewFixture(t)
	big := f.CreateSizedFile("home/Library/Caches/app/big.bin", 2000)

	entries, _ := newTestTraverser().Scan(context.Background(), TraverseRequest{
		Root:               f.CachesDir,
		Recursive:          true,
		Matcher:            mustMatcher(t, ScanCriterion{}.WithMinSize(1000)),
		IncludeDirectories: true,
	})

	assert.Equal(t, []string{filepath.Join(f.CachesDir, "app"), big}, entryPaths(entries))

	result := ScanResult{Entries: entries}
	assert.Equal(t, int64(4000), result.TotalSize(), "totals over-count nested matches")
}

func TestTraverser_FilesOnly(t *testing.T) {
	f := testutil.NewFixture(t)
	big := f.CreateSizedFile("home/Library/Caches/app/big.bin", 2000)

	entries, _ := newTestTraverser().Scan(context.Background(), TraverseRequest{
		Root:      f.CachesDir,
		Recursive: true,
		Matcher:   mustMatcher(t, ScanCriterion{}.WithMinSize(1000)),
	})

	assert.Equal(t, []string{big}, entryPaths(entries))
}

func TestTraverser_NonRecursive(t *testing.T) {
	f := testutil.NewFixture(t)
	top := f.CreateSizedFile("home/Downloads/top.part", 10)
	f.CreateSizedFile("home/Downloads/sub/deep.part", 10)

	entries, _ := newTestTraverser().Scan(context.Background(), TraverseRequest{
		Root:               f.DownloadsDir,
		Recursive:          false,
		Matcher:            mustMatcher(t, ScanCriterion{Pattern: `\.part$`}),
		IncludeDirectories: true,
	})

	assert.Equal(t, []string{top}, entryPaths(entries))
}

func TestTraverser_ZeroByteFilesNeverMatchSize(t *testing.T) {
	f := testutil.NewFixture(t)
	f.CreateSizedFile("home/Downloads/empty.part", 0)

	entries, _ := newTestTraverser().Scan(context.Background(), TraverseRequest{
		Root:      f.DownloadsDir,
		Recursive: true,
		Matcher:   mustMatcher(t, ScanCriterion{}.WithMinSize(0)),
	})

	assert.Empty(t, entries)
}

func TestTraverser_MissingRootIsSoftError(t *testing.T) {
	f := testutil.NewFixture(t)
	missing := f.Path("does/not/exist")

	entries, errs := newTestTraverser().Scan(context.Background(), TraverseRequest{
		Root:      missing,
		Recursive: true,
	})

	assert.Empty(t, entries)
	require.Len(t, errs, 1)
	assert.Equal(t, "Path not found: "+missing, errs[0])
}

func TestTraverser_RootIsFile(t *testing.T) {
	f := testutil.NewFixture(t)
	file := f.CreateSizedFile("home/file.txt", 1)

	entries, errs := newTestTraverser().Scan(context.Background(), TraverseRequest{Root: file})

	assert.Empty(t, entries)
	assert.Len(t, errs, 1)
}

func TestTraverser_Idempotent(t *testing.T) {
	f := testutil.NewFixture(t)
	f.CreateSizedFile("home/Library/Caches/a/1.bin", 300)
	f.CreateSizedFile("home/Library/Caches/a/2.bin", 300)
	f.CreateSizedFile("home/Library/Caches/b/3.bin", 900)

	req := TraverseRequest{
		Root:               f.CachesDir,
		Recursive:          true,
		Matcher:            mustMatcher(t, ScanCriterion{}.WithMinSize(250)),
		IncludeDirectories: true,
	}
	tr := newTestTraverser()

	first, _ := tr.Scan(context.Background(), req)
	second, _ := tr.Scan(context.Background(), req)

	assert.ElementsMatch(t, first, second)
	assert.NotEmpty(t, first)
}

func TestTraverser_SymlinkCycleTerminates(t *testing.T) {
	testutil.SkipOnWindows(t)
	f := testutil.NewFixture(t)
	f.CreateSizedFile("home/loop/data.bin", 50)
	f.CreateSymlink(f.Path("home/loop"), "home/loop/again")

	matcher := mustMatcher(t, ScanCriterion{})
	done := make(chan []ProblemEntry, 1)
	go func() {
		entries, _ := newTestTraverser().Scan(context.Background(), TraverseRequest{
			Root:      f.Path("home/loop"),
			Recursive: true,
			Matcher:   matcher,
		})
		done <- entries
	}()

	select {
	case entries := <-done:
		assert.Equal(t, []string{f.Path("home/loop/data.bin")}, entryPaths(entries))
	case <-time.After(10 * time.Second):
		t.Fatal("traversal did not terminate on a symlink cycle")
	}
}

func TestTraverser_SkipsLinkedDirectoriesWithoutIdentity(t *testing.T) {
	testutil.SkipOnWindows(t)
	f := testutil.NewFixture(t)
	f.CreateSizedFile("home/loop/data.bin", 50)
	f.CreateSizedFile("home/loop/real/inner.bin", 20)
	f.CreateSymlink(f.Path("home/loop"), "home/loop/again")

	orig := dirIdentity
	dirIdentity = func(string) (fileID, bool) { return fileID{}, false }
	t.Cleanup(func() { dirIdentity = orig })

	entries, _ := newTestTraverser().Scan(context.Background(), TraverseRequest{
		Root:      f.Path("home/loop"),
		Recursive: true,
		Matcher:   mustMatcher(t, ScanCriterion{}),
	})

	assert.Equal(t, []string{f.Path("home/loop/data.bin"), f.Path("home/loop/real/inner.bin")}, entryPaths(entries))
}

func TestTraverser_FollowsSymlinkedFiles(t *testing.T) {
	testutil.SkipOnWindows(t)
	f := testutil.NewFixture(t)
	target := f.CreateSizedFile("elsewhere/real.log", 100)
	link := f.CreateSymlink(target, "home/Library/Logs/linked.log")

	entries, _ := newTestTraverser().Scan(context.Background(), TraverseRequest{
		Root:      f.LogsDir,
		Recursive: true,
		Matcher:   mustMatcher(t, ScanCriterion{Pattern: `\.log$`}.WithMinSize(10)),
	})

	require.Len(t, entries, 1)
	assert.Equal(t, link, entries[0].Path)
	assert.Equal(t, int64(100), entries[0].Size)
}

func TestTraverser_UnreadableDirectoryIsSkipped(t *testing.T) {
	testutil.SkipIfRoot(t)
	testutil.SkipOnWindows(t)
	f := testutil.NewFixture(t)
	visible := f.CreateSizedFile("home/Library/Logs/visible.log", 10)
	f.CreateSizedFile("home/Library/Logs/locked/hidden.log", 10)
	locked := f.Path("home/Library/Logs/locked")
	require.NoError(t, os.Chmod(locked, 0000))
	t.Cleanup(func() { os.Chmod(locked, 0755) })

	entries, errs := newTestTraverser().Scan(context.Background(), TraverseRequest{
		Root:      f.LogsDir,
		Recursive: true,
		Matcher:   mustMatcher(t, ScanCriterion{Pattern: `\.log$`}),
	})

	assert.Empty(t, errs)
	assert.Equal(t, []string{visible}, entryPaths(entries))
}

func TestTraverser_CancelledBeforeStart(t *testing.T) {
	f := testutil.NewFixture(t)
	f.CreateSizedFile("home/Downloads/a.part", 10)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	entries, errs := newTestTraverser().Scan(ctx, TraverseRequest{
		Root:      f.DownloadsDir,
		Recursive: true,
	})

	assert.Empty(t, entries)
	assert.Empty(t, errs)
}

func TestTraverser_UsesClock(t *testing.T) {
	f := testutil.NewFixture(t)
	path := f.CreateSizedFile("home/Downloads/a.part", 10)

	tr := newTestTraverser()
	req := TraverseRequest{
		Root:      f.DownloadsDir,
		Recursive: true,
		Matcher:   mustMatcher(t, ScanCriterion{}.WithMinAge(24*time.Hour)),
	}

	entries, _ := tr.Scan(context.Background(), req)
	assert.Empty(t, entries)

	tr.SetClock(testutil.FixedClock(time.Now().Add(48 * time.Hour)))
	entries, _ = tr.Scan(context.Background(), req)
	assert.Equal(t, []string{path}, entryPaths(entries))
}

func TestDirSize(t *testing.T) {
	f := testutil.NewFixture(t)
	f.CreateSizedFile("home/Library/Caches/x/1", 10)
	f.CreateSizedFile("home/Library/Caches/x/y/2", 20)
	file := f.CreateSizedFile("home/Library/Caches/z", 5)

	size, err := DirSize(context.Background(), f.CachesDir)
	require.NoError(t, err)
	assert.Equal(t, int64(35), size)

	size, err = DirSize(context.Background(), file)
	require.NoError(t, err)
	assert.Equal(t, int64(5), size)

	_, err = DirSize(context.Background(), f.Path("missing"))
	assert.Error(t, err)
}
