package registry

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync/atomic"

	"github.com/modelkeep/modelkeep/internal/scan"
	"github.com/modelkeep/modelkeep/pkg/logger"
	"github.com/modelkeep/modelkeep/pkg/safeio"
)

// Store serves registry reads from an immutable in-memory snapshot and
// round-trips it to the on-disk JSON file. Lookups never block:
// reconciliation builds a whole new Registry and swaps the pointer, so
// readers observe either the old catalog or the new one, never a mix.
type Store struct {
	path    string
	current atomic.Pointer[Registry]
}

// NewStore creates a store persisting to path, starting from an empty
// snapshot.
func NewStore(path string) *Store {
	s := &Store{path: path}
	s.current.Store(NewEmpty())
	return s
}

// Path returns the on-disk registry location.
func (s *Store) Path() string { return s.path }

// Snapshot returns the current registry. The returned value is
// immutable by convention; callers must not mutate it.
func (s *Store) Snapshot() *Registry {
	return s.current.Load()
}

// Swap atomically replaces the snapshot.
func (s *Store) Swap(reg *Registry) {
	s.current.Store(reg)
}

// Lookup resolves a logical name against the current snapshot.
func (s *Store) Lookup(name string, category scan.Category) (string, error) {
	return s.Snapshot().Lookup(name, category)
}

// List returns sorted logical names from the current snapshot.
func (s *Store) List(category scan.Category) []string {
	return s.Snapshot().List(category)
}

// registryFile is the on-disk representation, kept human-inspectable.
type registryFile struct {
	Version     string              `json:"version"`
	LastUpdated string              `json:"last_updated"`
	Models      map[string]Entry    `json:"models"`
	Categories  map[string][]string `json:"categories"`
}

// Persist writes the registry to disk atomically (temp file + rename).
// The flat models map keys by logical name; when a name lives in more
// than one category, secondary occurrences are keyed category/name.
// Logical names come from file base names and can never contain a
// path separator, so the prefix is unambiguous and the file stays
// collision-free and greppable.
func (s *Store) Persist(reg *Registry) error {
	file := registryFile{
		Version:     reg.Version,
		LastUpdated: reg.LastUpdated,
		Models:      make(map[string]Entry),
		Categories:  make(map[string][]string),
	}

	for cat, byName := range reg.Entries {
		names := make([]string, 0, len(byName))
		for name := range byName {
			names = append(names, name)
		}
		sort.Strings(names)
		file.Categories[string(cat)] = names

		for _, name := range names {
			key := name
			if primaryCategory(reg, name) != cat {
				key = string(cat) + "/" + name
			}
			file.Models[key] = byName[name]
		}
	}

	data, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: marshal: %v", ErrPersistence, err)
	}
	data = append(data, '\n')

	if err := safeio.AtomicWriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("%w: write %s: %v", ErrPersistence, s.path, err)
	}

	// Ship the schema next to the registry on first persist so
	// operators can validate the file by hand.
	schemaPath := SchemaSiblingPath(s.path)
	if _, err := os.Stat(schemaPath); os.IsNotExist(err) {
		if werr := safeio.WriteFilePreservePerms(schemaPath, registrySchema); werr != nil {
			logger.Warn("could not write registry schema file",
				logger.String("path", schemaPath), logger.Err(werr))
		}
	}
	return nil
}

// SchemaSiblingPath is where Persist drops a copy of the registry
// schema for manual validation.
func SchemaSiblingPath(registryPath string) string {
	return strings.TrimSuffix(registryPath, ".json") + ".schema.json"
}

// Load reads and schema-validates the on-disk registry. A missing file
// is not an error: it returns an empty registry, as on first run.
func (s *Store) Load() (*Registry, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return NewEmpty(), nil
		}
		return nil, fmt.Errorf("%w: read %s: %v", ErrPersistence, s.path, err)
	}

	if err := validateRegistryBytes(data); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrPersistence, s.path, err)
	}

	var file registryFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("%w: parse %s: %v", ErrPersistence, s.path, err)
	}

	reg := &Registry{
		Version:     file.Version,
		LastUpdated: file.LastUpdated,
		Entries:     make(map[scan.Category]map[string]Entry),
	}
	for key, entry := range file.Models {
		// The entry's own category field is authoritative; the key
		// decoration only exists to keep the flat map collision-free.
		// A separator can only come from the category prefix, never
		// from the name itself.
		name := key
		if i := strings.IndexByte(key, '/'); i >= 0 {
			name = key[i+1:]
		}
		entry.Name = name
		byName := reg.Entries[entry.Category]
		if byName == nil {
			byName = make(map[string]Entry)
			reg.Entries[entry.Category] = byName
		}
		byName[name] = entry
	}

	return reg, nil
}

// primaryCategory returns the highest-precedence category holding name.
func primaryCategory(reg *Registry, name string) scan.Category {
	for _, cat := range scan.LookupPrecedence {
		if _, ok := reg.Entries[cat][name]; ok {
			return cat
		}
	}
	return ""
}
