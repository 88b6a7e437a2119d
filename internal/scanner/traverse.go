package scanner

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
)

// TraverseRequest describes one root to walk and how to classify what is found
type TraverseRequest struct {
	Root      string
	Recursive bool
	Matcher   *Matcher
	Category  string
	Risk      RiskTier
	// IncludeDirectories lets a directory be emitted as a single entry
	// carrying its aggregated size. Rule execution turns this off.
	IncludeDirectories bool
}

// Traverser walks directory trees and classifies every entry it meets
type Traverser struct {
	logger *zap.Logger
	now    func() time.Time
}

// NewTraverser creates a Traverser
func NewTraverser(logger *zap.Logger) *Traverser {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Traverser{logger: logger, now: time.Now}
}

// SetClock replaces the time source used for age checks
func (t *Traverser) SetClock(now func() time.Time) {
	t.now = now
}

// Scan walks req.Root and returns the matching entries together with soft
// errors. Cancelling ctx stops the walk before the next child is processed;
// entries collected up to that point are still returned.
func (t *Traverser) Scan(ctx context.Context, req TraverseRequest) ([]ProblemEntry, []string) {
	if req.Matcher == nil {
		req.Matcher = &Matcher{}
	}

	info, err := os.Stat(req.Root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, []string{fmt.Sprintf("Path not found: %s", req.Root)}
		}
		return nil, []string{fmt.Sprintf("Cannot access %s: %v", req.Root, err)}
	}
	if !info.IsDir() {
		return nil, []string{fmt.Sprintf("Not a directory: %s", req.Root)}
	}

	w := &walker{
		req:     req,
		now:     t.now(),
		logger:  t.logger,
		visited: make(map[fileID]struct{}),
	}
	if id, ok := dirIdentity(req.Root); ok {
		w.visited[id] = struct{}{}
	}

	w.walk(ctx, req.Root)

	t.logger.Debug("traversal finished",
		zap.String("root", req.Root),
		zap.String("category", req.Category),
		zap.Int("matches", len(w.entries)),
		zap.Bool("cancelled", ctx.Err() != nil),
	)

	return w.entries, nil
}

// dirIdentity breaks symlink cycles; a linked directory it cannot identify
// is not descended
var dirIdentity = identify

type walker struct {
	req     TraverseRequest
	now     time.Time
	logger  *zap.Logger
	visited map[fileID]struct{}
	entries []ProblemEntry
	// sizeOnly disables classification
	sizeOnly bool
}

// walk processes the children of dir and returns the total size of all files
// below it, independent of any pattern.
func (w *walker) walk(ctx context.Context, dir string) int64 {
	children, err := os.ReadDir(dir)
	if err != nil {
		w.logger.Debug("skipping unreadable directory", zap.String("path", dir), zap.Error(err))
		return 0
	}

	var total int64
	for _, child := range children {
		if ctx.Err() != nil {
			return total
		}

		path := filepath.Join(dir, child.Name())

		// Stat follows symlinks
		info, err := os.Stat(path)
		if err != nil {
			continue
		}

		if info.IsDir() {
			if !w.req.Recursive {
				continue
			}
			id, ok := dirIdentity(path)
			if !ok && child.Type()&os.ModeSymlink != 0 {
				w.logger.Debug("skipping linked directory without identity", zap.String("path", path))
				continue
			}
			if ok {
				if _, seen := w.visited[id]; seen {
					w.logger.Debug("skipping already visited directory", zap.String("path", path))
					continue
				}
				w.visited[id] = struct{}{}
			}

			size := w.walk(ctx, path)
			total += size

			if ctx.Err() != nil {
				return total
			}
			if w.req.IncludeDirectories && w.req.Matcher.MatchesName(child.Name()) {
				meta := EntryMeta{Name: child.Name(), Size: size, ModTime: info.ModTime()}
				if w.req.Matcher.matchesThresholds(meta, w.now) {
					w.emit(path, meta, true)
				}
			}
			continue
		}

		if !info.Mode().IsRegular() {
			continue
		}

		total += info.Size()
		meta := EntryMeta{Name: child.Name(), Size: info.Size(), ModTime: info.ModTime()}
		if w.req.Matcher.Matches(meta, w.now) {
			w.emit(path, meta, false)
		}
	}

	return total
}

func (w *walker) emit(path string, meta EntryMeta, isDir bool) {
	if w.sizeOnly {
		return
	}
	w.entries = append(w.entries, ProblemEntry{
		Path:     path,
		Name:     meta.Name,
		Size:     meta.Size,
		ModTime:  meta.ModTime,
		Category: w.req.Category,
		Risk:     w.req.Risk,
		IsDir:    isDir,
	})
}

// DirSize returns the summed size of all regular files below root,
// following symlinks without looping.
func DirSize(ctx context.Context, root string) (int64, error) {
	info, err := os.Stat(root)
	if err != nil {
		return 0, err
	}
	if !info.IsDir() {
		return info.Size(), nil
	}

	w := &walker{
		req:      TraverseRequest{Root: root, Recursive: true, Matcher: &Matcher{}},
		logger:   zap.NewNop(),
		visited:  make(map[fileID]struct{}),
		sizeOnly: true,
	}
	if id, ok := dirIdentity(root); ok {
		w.visited[id] = struct{}{}
	}
	size := w.walk(ctx, root)
	return size, ctx.Err()
}
