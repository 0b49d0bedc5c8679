// Package registry is the authoritative catalog of usable model
// assets. Consumers query it instead of re-scanning the filesystem;
// reconciliation rebuilds it strictly from files that classified
// valid, so it never references a placeholder or an unfinished
// transfer.
package registry

import (
	"sort"
	"time"

	"github.com/modelkeep/modelkeep/internal/scan"
	"github.com/modelkeep/modelkeep/pkg/logger"
)

// Version is the registry file format version.
const Version = "1.0"

// Entry is one persisted catalog record.
type Entry struct {
	Name      string        `json:"-"`
	File      string        `json:"file"`
	Category  scan.Category `json:"category"`
	AddedDate string        `json:"added_date"`
}

// Registry is an immutable catalog snapshot. Logical name is the
// unique key within a category; the same name in two categories is two
// distinct entries, not a conflict.
type Registry struct {
	Version     string
	LastUpdated string
	Entries     map[scan.Category]map[string]Entry
}

// NewEmpty returns a registry with no entries.
func NewEmpty() *Registry {
	return &Registry{
		Version:     Version,
		LastUpdated: time.Now().UTC().Format(time.RFC3339),
		Entries:     make(map[scan.Category]map[string]Entry),
	}
}

// Build constructs a fresh registry from post-resolution valid
// candidates. Added dates carry over from prev for entries whose file
// is unchanged; everything else is stamped now. Entries of prev whose
// files no longer appear in the candidate set are dropped (dangling
// pruning happens here by construction).
func Build(prev *Registry, valids []scan.Candidate) *Registry {
	reg := NewEmpty()
	now := reg.LastUpdated

	for _, cand := range valids {
		byName := reg.Entries[cand.Category]
		if byName == nil {
			byName = make(map[string]Entry)
			reg.Entries[cand.Category] = byName
		}
		if existing, ok := byName[cand.Name]; ok {
			// Two valid files for one name within one category: keep the
			// first (candidates arrive path-sorted) and surface the rest.
			logger.Warn("duplicate valid asset within category",
				logger.String("name", cand.Name),
				logger.String("category", string(cand.Category)),
				logger.String("kept", existing.File),
				logger.String("ignored", cand.Path))
			continue
		}

		added := now
		if prev != nil {
			if old, ok := prev.Entries[cand.Category][cand.Name]; ok && old.File == cand.Path {
				added = old.AddedDate
			}
		}
		byName[cand.Name] = Entry{
			Name:      cand.Name,
			File:      cand.Path,
			Category:  cand.Category,
			AddedDate: added,
		}
	}

	return reg
}

// Lookup resolves a logical name to its canonical path. An empty
// category searches all categories in precedence order and returns the
// first hit.
func (r *Registry) Lookup(name string, category scan.Category) (string, error) {
	if category != "" {
		if entry, ok := r.Entries[category][name]; ok {
			return entry.File, nil
		}
		return "", ErrNotFound
	}
	for _, cat := range scan.LookupPrecedence {
		if entry, ok := r.Entries[cat][name]; ok {
			return entry.File, nil
		}
	}
	return "", ErrNotFound
}

// List returns sorted logical names. An empty category returns the
// union across all categories, deduplicated.
func (r *Registry) List(category scan.Category) []string {
	seen := make(map[string]struct{})
	var names []string

	cats := []scan.Category{category}
	if category == "" {
		cats = scan.LookupPrecedence
	}
	for _, cat := range cats {
		for name := range r.Entries[cat] {
			if _, dup := seen[name]; dup {
				continue
			}
			seen[name] = struct{}{}
			names = append(names, name)
		}
	}

	sort.Strings(names)
	return names
}

// Len returns the total number of entries across categories.
func (r *Registry) Len() int {
	n := 0
	for _, byName := range r.Entries {
		n += len(byName)
	}
	return n
}
