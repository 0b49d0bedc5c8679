package catalog

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/modelkeep/modelkeep/internal/fallback"
	"github.com/modelkeep/modelkeep/internal/resolve"
	"github.com/modelkeep/modelkeep/internal/scan"
	"github.com/modelkeep/modelkeep/pkg/config"
)

const (
	testMinValid    = 4096
	testPlaceholder = 64
)

// testConfig wires a catalog onto temp storage roots with shrunken
// thresholds so fixtures stay small.
func testConfig(t *testing.T) *config.Config {
	t.Helper()
	base := t.TempDir()
	cfg := &config.Config{}
	cfg.Storage.ModelDir = filepath.Join(base, "models")
	cfg.Storage.UserDir = filepath.Join(base, "userdata")
	cfg.Storage.StoreDir = filepath.Join(base, "store")
	cfg.Registry.Path = filepath.Join(base, "registry.json")
	cfg.Integrity.MinValidSize = testMinValid
	cfg.Integrity.PlaceholderSize = testPlaceholder
	require.NoError(t, os.MkdirAll(cfg.Storage.ModelDir, 0o750))
	return cfg
}

func write(t *testing.T, path string, content []byte) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
	require.NoError(t, os.WriteFile(path, content, 0o644))
}

// writeSparse creates a file of the given size without materializing
// the bytes, standing in for a multi-hundred-megabyte asset.
func writeSparse(t *testing.T, path string, size int64) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, f.Truncate(size))
	require.NoError(t, f.Close())
}

// Scenario A: model.dfm.dfm and no model.dfm. After reconciliation the
// canonical file exists, the malformed one is gone, and the registry
// holds the entry.
func TestReconcileScenarioMalformedOnly(t *testing.T) {
	cfg := testConfig(t)
	write(t, filepath.Join(cfg.Storage.ModelDir, "model.dfm.dfm"), make([]byte, testMinValid+100))

	cat := New(cfg)
	report, err := cat.Reconcile(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, report.Mutations)

	require.FileExists(t, filepath.Join(cfg.Storage.ModelDir, "model.dfm"))
	require.NoFileExists(t, filepath.Join(cfg.Storage.ModelDir, "model.dfm.dfm"))

	path, err := cat.Lookup("model", "")
	require.NoError(t, err)
	require.Equal(t, filepath.Join(cfg.Storage.ModelDir, "model.dfm"), path)
}

// Scenario B: a placeholder stub plus a completed .part transfer.
func TestReconcileScenarioPlaceholderReplaced(t *testing.T) {
	cfg := testConfig(t)
	canonical := filepath.Join(cfg.Storage.ModelDir, "model.dfm")
	write(t, canonical, []byte(`{"placeholder": true, "name": "model"}`))
	write(t, filepath.Join(cfg.Storage.ModelDir, "model.dfm.part"), make([]byte, testMinValid+500))

	cat := New(cfg)
	_, err := cat.Reconcile(context.Background())
	require.NoError(t, err)

	require.NoFileExists(t, filepath.Join(cfg.Storage.ModelDir, "model.dfm.part"))
	info, err := os.Stat(canonical)
	require.NoError(t, err)
	require.EqualValues(t, testMinValid+500, info.Size())

	path, err := cat.Lookup("model", "")
	require.NoError(t, err)
	require.Equal(t, canonical, path)
}

// Scenario C: two plausible real files for one name: both survive, the
// report carries the anomaly.
func TestReconcileScenarioAmbiguousConflict(t *testing.T) {
	cfg := testConfig(t)
	write(t, filepath.Join(cfg.Storage.ModelDir, "model.dfm"), make([]byte, testMinValid+200))
	write(t, filepath.Join(cfg.Storage.ModelDir, "model.dfm.dfm"), make([]byte, testMinValid+100))

	cat := New(cfg)
	report, err := cat.Reconcile(context.Background())
	require.NoError(t, err)

	require.Zero(t, report.Mutations)
	var skipped *resolve.Action
	for i, a := range report.Actions {
		if a.Kind == resolve.ActionSkippedExistingValid {
			skipped = &report.Actions[i]
		}
	}
	require.NotNil(t, skipped, "report must surface the ambiguous conflict")
	require.True(t, skipped.Warning)

	require.FileExists(t, filepath.Join(cfg.Storage.ModelDir, "model.dfm"))
	require.FileExists(t, filepath.Join(cfg.Storage.ModelDir, "model.dfm.dfm"))
}

// Scenario D: resolving an absent name yields the alternate plus a
// degraded signal, never a fault.
func TestResolveScenarioFallback(t *testing.T) {
	cfg := testConfig(t)
	cat := New(cfg, WithAlternate(fallback.NewStatic("passthrough", "/alt/passthrough")))
	_, err := cat.Reconcile(context.Background())
	require.NoError(t, err)

	asset := cat.Resolve(context.Background(), "missing", "")
	require.True(t, asset.Degraded)
	require.Equal(t, fallback.KindAssetUnavailable, asset.Kind)
	require.Equal(t, "/alt/passthrough", asset.Path)
}

func TestReconcileIsIdempotent(t *testing.T) {
	cfg := testConfig(t)
	write(t, filepath.Join(cfg.Storage.ModelDir, "a.dfm.dfm"), make([]byte, testMinValid+1))
	write(t, filepath.Join(cfg.Storage.ModelDir, "b.dfm"), []byte(`{"placeholder": true}`))
	write(t, filepath.Join(cfg.Storage.UserDir, "c.dfm"), make([]byte, testMinValid+2))

	cat := New(cfg)
	first, err := cat.Reconcile(context.Background())
	require.NoError(t, err)
	require.NotZero(t, first.Mutations)

	second, err := cat.Reconcile(context.Background())
	require.NoError(t, err)
	require.Zero(t, second.Mutations)
	require.Zero(t, second.Warnings)
}

// The registry survives a restart: a fresh catalog loads the persisted
// snapshot and serves the same lookups.
func TestRegistryPersistsAcrossCatalogs(t *testing.T) {
	cfg := testConfig(t)
	write(t, filepath.Join(cfg.Storage.UserDir, "mine.dfm"), make([]byte, testMinValid+5))
	write(t, filepath.Join(cfg.Storage.StoreDir, "prebuilt", "mine.dfm"), make([]byte, testMinValid+6))

	first := New(cfg)
	_, err := first.Reconcile(context.Background())
	require.NoError(t, err)

	second := New(cfg)
	require.NoError(t, second.LoadSnapshot())

	// Category-less lookup prefers custom (user dir) over prebuilt.
	path, err := second.Lookup("mine", "")
	require.NoError(t, err)
	require.Equal(t, filepath.Join(cfg.Storage.UserDir, "mine.dfm"), path)

	path, err = second.Lookup("mine", scan.CategoryPrebuilt)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(cfg.Storage.StoreDir, "prebuilt", "mine.dfm"), path)

	require.Equal(t, []string{"mine"}, second.List(""))
}

func TestReconcileDryRunLeavesEverything(t *testing.T) {
	cfg := testConfig(t)
	write(t, filepath.Join(cfg.Storage.ModelDir, "model.dfm.dfm"), make([]byte, testMinValid+100))

	cat := New(cfg, WithDryRun(true))
	report, err := cat.Reconcile(context.Background())
	require.NoError(t, err)

	require.True(t, report.DryRun)
	require.FileExists(t, filepath.Join(cfg.Storage.ModelDir, "model.dfm.dfm"))
	require.NoFileExists(t, cfg.Registry.Path, "dry-run must not persist a registry")
}

// Production-scale sizes work the same way; sparse files keep the test cheap.
func TestReconcileAtProductionThresholds(t *testing.T) {
	cfg := testConfig(t)
	cfg.Integrity.MinValidSize = 0    // defaults: 100 MiB
	cfg.Integrity.PlaceholderSize = 0 // defaults: 1 KiB
	writeSparse(t, filepath.Join(cfg.Storage.ModelDir, "big.dfm.dfm"), 150*1024*1024)

	cat := New(cfg)
	report, err := cat.Reconcile(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, report.Mutations)

	info, err := os.Stat(filepath.Join(cfg.Storage.ModelDir, "big.dfm"))
	require.NoError(t, err)
	require.EqualValues(t, 150*1024*1024, info.Size())
}
