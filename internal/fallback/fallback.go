// Package fallback substitutes an always-available alternate asset
// when a requested model cannot be served, and tells the caller so:
// downstream quality differs between the real asset and the stand-in,
// so degraded mode is a signal, never a silent success.
package fallback

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/modelkeep/modelkeep/internal/registry"
	"github.com/modelkeep/modelkeep/internal/scan"
	"github.com/modelkeep/modelkeep/pkg/logger"
)

// ErrCorruptAsset means the registry pointed at a file that no longer
// passes the size re-check. A re-reconciliation is attempted before
// falling back.
var ErrCorruptAsset = errors.New("registered asset failed integrity re-check")

// Kind labels the degraded-mode signal.
type Kind string

// KindAssetUnavailable is emitted whenever the alternate is substituted.
const KindAssetUnavailable Kind = "asset_unavailable"

// Provider supplies the alternate implementation. It is assumed always
// constructible and not subject to the corruption risks of downloaded
// assets.
type Provider interface {
	Name() string
	Path() string
}

// Static is a fixed-path Provider.
type Static struct {
	name string
	path string
}

// NewStatic returns a Provider for a known-good bundled asset.
func NewStatic(name, path string) Static {
	return Static{name: name, path: path}
}

func (s Static) Name() string { return s.name }
func (s Static) Path() string { return s.path }

// UsableAsset is the resolution outcome. Degraded is set when the
// alternate was substituted; Kind then says why.
type UsableAsset struct {
	Name     string `json:"name"`
	Path     string `json:"path"`
	Degraded bool   `json:"degraded"`
	Kind     Kind   `json:"kind,omitempty"`
	Reason   string `json:"reason,omitempty"`
}

// Resolver resolves logical names through the registry with a final
// integrity re-check, reconciling once on surprise corruption before
// giving up and substituting the alternate.
type Resolver struct {
	store     *registry.Store
	alternate Provider
	minValid  int64
	reconcile func(ctx context.Context) error
}

// NewResolver wires the resolver. reconcile may be nil when no
// re-reconciliation hook is available (the corrupt path then falls
// back immediately).
func NewResolver(store *registry.Store, alternate Provider, minValid int64, reconcile func(ctx context.Context) error) *Resolver {
	return &Resolver{store: store, alternate: alternate, minValid: minValid, reconcile: reconcile}
}

// Resolve returns a usable asset for name, falling back to the
// alternate on any failure. It never returns an error: the degraded
// signal on the result is the failure channel.
func (r *Resolver) Resolve(ctx context.Context, name string, category scan.Category) UsableAsset {
	path, err := r.lookupChecked(name, category)
	if err == nil {
		return UsableAsset{Name: name, Path: path}
	}

	if errors.Is(err, ErrCorruptAsset) && r.reconcile != nil {
		// The registry claimed valid and disk disagrees: state drifted
		// since the last pass. Reconcile once and retry before degrading.
		logger.Warn("registered asset failed re-check, re-reconciling",
			logger.String("name", name), logger.Err(err))
		if rerr := r.reconcile(ctx); rerr == nil {
			if path, err = r.lookupChecked(name, category); err == nil {
				return UsableAsset{Name: name, Path: path}
			}
		} else {
			logger.Error("re-reconciliation failed", logger.Err(rerr))
		}
	}

	logger.Warn("substituting alternate asset",
		logger.String("requested", name),
		logger.String("alternate", r.alternate.Name()),
		logger.Err(err))
	return UsableAsset{
		Name:     r.alternate.Name(),
		Path:     r.alternate.Path(),
		Degraded: true,
		Kind:     KindAssetUnavailable,
		Reason:   err.Error(),
	}
}

// lookupChecked is a registry lookup plus the final size re-check the
// registry invariant is audited with at point of use.
func (r *Resolver) lookupChecked(name string, category scan.Category) (string, error) {
	path, err := r.store.Lookup(name, category)
	if err != nil {
		return "", err
	}
	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrCorruptAsset, err)
	}
	if info.Size() < r.minValid {
		return "", fmt.Errorf("%w: %s is %d bytes", ErrCorruptAsset, path, info.Size())
	}
	return path, nil
}
