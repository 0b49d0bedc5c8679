package registry

import "errors"

var (
	// ErrNotFound means no entry exists for the requested logical name.
	// Recoverable: callers fall through to the fallback resolver.
	ErrNotFound = errors.New("model not found in registry")

	// ErrPersistence means the registry file could not be read or
	// written. Fatal for reconciliation, but lookups keep serving the
	// last good in-memory snapshot.
	ErrPersistence = errors.New("registry persistence failure")
)
