package scan

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
	"golang.org/x/sync/errgroup"

	"github.com/modelkeep/modelkeep/pkg/config"
	"github.com/modelkeep/modelkeep/pkg/logger"
)

// RootKind distinguishes flat roots (all files belong to one category)
// from the categorized universal store (one subdirectory per category).
type RootKind int

const (
	RootFlat RootKind = iota
	RootCategorized
)

// Root is one storage location the locator enumerates.
type Root struct {
	Path     string
	Kind     RootKind
	Category Category // only meaningful for flat roots
}

// Dirs lists the concrete directories a root spans: the root itself
// for flat roots, one subdirectory per category for the store.
func (r Root) Dirs() []string {
	if r.Kind == RootFlat {
		return []string{r.Path}
	}
	dirs := make([]string, 0, len(Categories))
	for _, cat := range Categories {
		dirs = append(dirs, filepath.Join(r.Path, string(cat)))
	}
	return dirs
}

// Candidate is a discovered asset file. Candidates are ephemeral:
// rebuilt on every scan, never persisted.
type Candidate struct {
	Path      string    `json:"path"`
	Name      string    `json:"name"` // logical name (file stem)
	SizeBytes int64     `json:"size_bytes"`
	Root      string    `json:"root"`
	Category  Category  `json:"category"`
	Shape     NameShape `json:"-"`
}

// DefaultPatterns matches real assets, double-suffixed repair cases,
// and in-flight transfers. The scan must surface all three: malformed
// and partial files are signal for conflict resolution, not noise.
var DefaultPatterns = []string{
	"*" + AssetSuffix,
	"*" + InFlightName,
}

// Scanner enumerates asset candidates across storage roots.
type Scanner struct {
	roots    []Root
	patterns []string
	workers  int
}

// RootsFromConfig maps the configured storage layout onto scan roots:
// the flat model directory holds active assets, the user-data
// directory holds custom ones, and the universal store is categorized.
func RootsFromConfig(cfg *config.Config) []Root {
	return []Root{
		{Path: cfg.Storage.ModelDir, Kind: RootFlat, Category: CategoryActive},
		{Path: cfg.Storage.UserDir, Kind: RootFlat, Category: CategoryCustom},
		{Path: cfg.Storage.StoreDir, Kind: RootCategorized},
	}
}

// NewScanner creates a scanner over the given roots. workers bounds the
// per-root fan-out; 0 means one worker per root.
func NewScanner(roots []Root, patterns []string, workers int) *Scanner {
	if len(patterns) == 0 {
		patterns = DefaultPatterns
	}
	if workers <= 0 {
		workers = len(roots)
	}
	return &Scanner{roots: roots, patterns: patterns, workers: workers}
}

// Scan enumerates candidates across all roots concurrently. The
// traversal is read-only. A missing root yields zero candidates rather
// than an error. Results are sorted by path so downstream passes are
// deterministic.
func (s *Scanner) Scan(ctx context.Context) ([]Candidate, error) {
	var mu sync.Mutex
	var all []Candidate

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)

	for _, root := range s.roots {
		root := root
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			found, err := s.scanRoot(root)
			if err != nil {
				return err
			}
			mu.Lock()
			all = append(all, found...)
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Slice(all, func(i, j int) bool { return all[i].Path < all[j].Path })
	return all, nil
}

func (s *Scanner) scanRoot(root Root) ([]Candidate, error) {
	if root.Kind == RootFlat {
		return s.scanDir(root, root.Path, root.Category)
	}

	var all []Candidate
	for _, cat := range Categories {
		found, err := s.scanDir(root, filepath.Join(root.Path, string(cat)), cat)
		if err != nil {
			return nil, err
		}
		all = append(all, found...)
	}
	return all, nil
}

func (s *Scanner) scanDir(root Root, dir string, cat Category) ([]Candidate, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			logger.Debug("storage directory absent, skipping", logger.String("dir", dir))
			return nil, nil
		}
		return nil, fmt.Errorf("read dir %s: %w", dir, err)
	}

	var found []Candidate
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		base := entry.Name()
		if !s.matches(base) {
			continue
		}
		name, shape, ok := SplitName(base)
		if !ok || name == "" {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			logger.Warn("stat failed during scan", logger.String("path", filepath.Join(dir, base)), logger.Err(err))
			continue
		}
		found = append(found, Candidate{
			Path:      filepath.Join(dir, base),
			Name:      name,
			SizeBytes: info.Size(),
			Root:      root.Path,
			Category:  cat,
			Shape:     shape,
		})
	}
	return found, nil
}

func (s *Scanner) matches(base string) bool {
	for _, pattern := range s.patterns {
		if ok, err := doublestar.Match(pattern, base); err == nil && ok {
			return true
		}
	}
	return false
}
