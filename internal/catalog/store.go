package catalog

import (
	"errors"
	"sync/atomic"
)

// ErrNotLoaded is returned by Store.Snapshot before the first Replace.
var ErrNotLoaded = errors.New("catalog not loaded")

// Store is the process-wide catalog holder. A reload swaps the whole catalog
// behind one atomic pointer store, so concurrent resolvers always observe
// either the old snapshot or the new one, never a partial update.
type Store struct {
	current atomic.Pointer[Catalog]
}

// NewStore returns an empty store; call Replace after the first load.
func NewStore() *Store { return &Store{} }

// Replace installs a freshly loaded catalog as the current snapshot.
func (s *Store) Replace(c *Catalog) {
	if c == nil {
		return
	}
	s.current.Store(c)
}

// Snapshot returns the current catalog. The returned value stays valid for
// the whole request even if a reload lands mid-flight.
func (s *Store) Snapshot() (*Catalog, error) {
	c := s.current.Load()
	if c == nil {
		return nil, ErrNotLoaded
	}
	return c, nil
}
