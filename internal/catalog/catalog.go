// Package catalog wires the locator, classifier, resolver, registry
// store, and fallback resolver into the consumer-facing surface:
// Reconcile, Lookup, List, Resolve.
package catalog

import (
	"context"
	"sync"

	"github.com/modelkeep/modelkeep/internal/classify"
	"github.com/modelkeep/modelkeep/internal/fallback"
	"github.com/modelkeep/modelkeep/internal/registry"
	"github.com/modelkeep/modelkeep/internal/resolve"
	"github.com/modelkeep/modelkeep/internal/scan"
	"github.com/modelkeep/modelkeep/pkg/config"
	"github.com/modelkeep/modelkeep/pkg/logger"
)

// Catalog owns the reconciliation pipeline and the registry snapshot.
// Reconciliation passes are serialized; lookups are lock-free snapshot
// reads and may run concurrently with a pass.
type Catalog struct {
	scanner    *scan.Scanner
	classifier *classify.Classifier
	store      *registry.Store
	alternate  fallback.Provider
	dryRun     bool

	mu sync.Mutex // serializes reconcile passes
}

// Option customizes catalog construction.
type Option func(*Catalog)

// WithDryRun makes reconciliation report without mutating.
func WithDryRun(dryRun bool) Option {
	return func(c *Catalog) { c.dryRun = dryRun }
}

// WithAlternate overrides the fallback provider.
func WithAlternate(p fallback.Provider) Option {
	return func(c *Catalog) { c.alternate = p }
}

// New builds a catalog from configuration. The default alternate is
// the passthrough implementation, which needs no asset file and is
// always constructible.
func New(cfg *config.Config, opts ...Option) *Catalog {
	classifier := classify.New(cfg.Integrity.MinValidSize, cfg.Integrity.PlaceholderSize)
	c := &Catalog{
		scanner:    scan.NewScanner(scan.RootsFromConfig(cfg), nil, cfg.Reconcile.Workers),
		classifier: classifier,
		store:      registry.NewStore(cfg.Registry.Path),
		alternate:  fallback.NewStatic("passthrough", ""),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// LoadSnapshot primes the in-memory registry from disk. A missing file
// yields an empty snapshot; a corrupt one is an error, but the catalog
// keeps serving whatever snapshot it already has.
func (c *Catalog) LoadSnapshot() error {
	reg, err := c.store.Load()
	if err != nil {
		return err
	}
	c.store.Swap(reg)
	return nil
}

// Reconcile runs one full pass: scan, classify, repair, rebuild the
// registry from the surviving valid files, persist, swap the snapshot.
// The pass is idempotent: running it again over an unchanged tree
// yields zero mutations. A persistence failure is returned but the
// fresh snapshot is swapped in first, so lookups keep working.
func (c *Catalog) Reconcile(ctx context.Context) (*resolve.Report, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	candidates, err := c.scanner.Scan(ctx)
	if err != nil {
		return nil, err
	}

	resolver := resolve.New(c.classifier, c.dryRun)
	report, err := resolver.Resolve(ctx, candidates)
	if err != nil {
		return report, err
	}
	if c.dryRun {
		return report, nil
	}

	// Re-scan after repairs: the registry is built strictly from files
	// that classify valid under their canonical names right now.
	reconciled, err := c.scanner.Scan(ctx)
	if err != nil {
		return report, err
	}
	var valids []scan.Candidate
	for _, cand := range reconciled {
		if cand.Shape != scan.ShapeSingle {
			continue
		}
		if c.classifier.Classify(cand).Class == classify.Valid {
			valids = append(valids, cand)
		}
	}

	reg := registry.Build(c.store.Snapshot(), valids)
	c.store.Swap(reg)
	logger.Info("registry rebuilt",
		logger.Int("entries", reg.Len()),
		logger.Int("mutations", report.Mutations),
		logger.Int("warnings", report.Warnings))

	if err := c.store.Persist(reg); err != nil {
		return report, err
	}
	return report, nil
}

// Lookup resolves a logical name to its canonical path via the
// registry snapshot. Safe for concurrent use.
func (c *Catalog) Lookup(name string, category scan.Category) (string, error) {
	return c.store.Lookup(name, category)
}

// List returns sorted logical names, optionally restricted to one
// category.
func (c *Catalog) List(category scan.Category) []string {
	return c.store.List(category)
}

// Snapshot exposes the current registry for status output.
func (c *Catalog) Snapshot() *registry.Registry {
	return c.store.Snapshot()
}

// Resolve returns a usable asset for name, substituting the alternate
// (with a degraded-mode signal) when the registry cannot serve it. A
// surprise corruption triggers one reconcile pass before degrading.
func (c *Catalog) Resolve(ctx context.Context, name string, category scan.Category) fallback.UsableAsset {
	resolver := fallback.NewResolver(c.store, c.alternate, c.classifier.MinValid(), func(ctx context.Context) error {
		_, err := c.Reconcile(ctx)
		return err
	})
	return resolver.Resolve(ctx, name, category)
}
