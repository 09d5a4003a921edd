// Package catalog owns the authoritative cask list and the filtered view
// derived from it. All reads and writes go through Store, which serializes
// them behind one mutex; ranking for a search can run off the lock against a
// snapshot and is committed only if it is still current.
package catalog

import (
	"slices"
	"sync"

	"github.com/glorpus-work/caskcat/internal/logger"
	"github.com/glorpus-work/caskcat/pkg/model"
	"github.com/glorpus-work/caskcat/pkg/search"
)

// Predicate narrows an ordered view. It receives a copy it may reorder or
// truncate freely.
type Predicate func(view []*model.Cask) []*model.Cask

// ChangeKind names the operation that produced a Change.
type ChangeKind string

const (
	ChangeLoaded   ChangeKind = "loaded"
	ChangeAdded    ChangeKind = "added"
	ChangeRemoved  ChangeKind = "removed"
	ChangeCleared  ChangeKind = "cleared"
	ChangeSearched ChangeKind = "searched"
	ChangeFiltered ChangeKind = "filtered"
)

// Change is delivered to Hooks.OnChange after every successful mutation.
type Change struct {
	Kind     ChangeKind
	Version  uint64 // catalog version after the change
	Catalog  int    // catalog size
	Filtered int    // filtered view size
}

// Hooks carries change callbacks. OnChange runs on the mutating goroutine
// after the store lock has been released, so it may read the store.
type Hooks struct {
	OnChange func(Change)
}

// Store is the single owner of the catalog and its filtered view.
//
// The filtered view only ever holds pointers that are also in the catalog.
// Add extends the catalog only; the new cask shows up in the view after the
// next Search or Load.
type Store struct {
	mu       sync.RWMutex
	casks    []*model.Cask
	byToken  map[string]*model.Cask
	filtered []*model.Cask

	// version increments on every catalog mutation; seq on every search
	// issued; view on every replacement of the filtered view.
	version uint64
	seq     uint64
	view    uint64

	hooks Hooks
}

// New returns an empty store.
func New(hooks Hooks) *Store {
	return &Store{
		byToken: make(map[string]*model.Cask),
		hooks:   hooks,
	}
}

// Load replaces the catalog and resets the filtered view to all of it. Later
// duplicates of a token are ignored.
func (s *Store) Load(casks []*model.Cask) {
	s.mu.Lock()
	s.casks = make([]*model.Cask, 0, len(casks))
	s.byToken = make(map[string]*model.Cask, len(casks))
	for _, c := range casks {
		if c == nil {
			continue
		}
		if _, dup := s.byToken[c.Token]; dup {
			logger.Debug("Ignoring duplicate cask on load", logger.Fields{"token": c.Token})
			continue
		}
		s.byToken[c.Token] = c
		s.casks = append(s.casks, c)
	}
	s.filtered = slices.Clone(s.casks)
	s.version++
	s.view++
	ch := s.changeLocked(ChangeLoaded)
	s.mu.Unlock()

	s.notify(ch)
}

// Add appends c to the catalog. It returns false when the token is already
// present. The filtered view is left untouched.
func (s *Store) Add(c *model.Cask) bool {
	if c == nil {
		return false
	}
	s.mu.Lock()
	if _, dup := s.byToken[c.Token]; dup {
		s.mu.Unlock()
		return false
	}
	s.byToken[c.Token] = c
	s.casks = append(s.casks, c)
	s.version++
	ch := s.changeLocked(ChangeAdded)
	s.mu.Unlock()

	s.notify(ch)
	return true
}

// Remove drops the cask with c's token from both the catalog and the
// filtered view. It returns false when no such cask exists.
func (s *Store) Remove(c *model.Cask) bool {
	if c == nil {
		return false
	}
	s.mu.Lock()
	stored, ok := s.byToken[c.Token]
	if !ok {
		s.mu.Unlock()
		return false
	}
	delete(s.byToken, c.Token)
	s.casks = slices.DeleteFunc(s.casks, func(x *model.Cask) bool { return x == stored })
	s.filtered = slices.DeleteFunc(s.filtered, func(x *model.Cask) bool { return x == stored })
	s.version++
	s.view++
	ch := s.changeLocked(ChangeRemoved)
	s.mu.Unlock()

	s.notify(ch)
	return true
}

// Clear empties the catalog and the filtered view.
func (s *Store) Clear() {
	s.mu.Lock()
	s.casks = nil
	s.filtered = nil
	s.byToken = make(map[string]*model.Cask)
	s.version++
	s.view++
	ch := s.changeLocked(ChangeCleared)
	s.mu.Unlock()

	s.notify(ch)
}

// ReserveCapacity grows the catalog's backing storage for n more casks.
func (s *Store) ReserveCapacity(n int) {
	if n <= 0 {
		return
	}
	s.mu.Lock()
	s.casks = slices.Grow(s.casks, n)
	s.mu.Unlock()
}

// Search ranks the catalog against query and installs the best matches,
// dropping scores above threshold and keeping at most limit of them, then
// narrowed by filters. An empty query resets the view to the full catalog
// without ranking. It reports whether the result was installed.
func (s *Store) Search(query string, threshold float64, limit int, filters ...Predicate) bool {
	return s.Commit(s.BeginSearch(query, threshold, limit, filters...).Rank())
}

// ApplyFilter replaces the filtered view with pred applied to it. Casks the
// predicate returns that are not in the catalog are dropped. pred runs off
// the lock; if the view was replaced meanwhile the result is discarded and
// ApplyFilter returns false.
func (s *Store) ApplyFilter(pred Predicate) bool {
	if pred == nil {
		return false
	}
	s.mu.RLock()
	view := slices.Clone(s.filtered)
	gen := s.view
	s.mu.RUnlock()

	out := pred(view)

	s.mu.Lock()
	if gen != s.view {
		s.mu.Unlock()
		logger.Debug("Discarding filter result for a replaced view")
		return false
	}
	s.filtered = s.membersLocked(out)
	s.view++
	ch := s.changeLocked(ChangeFiltered)
	s.mu.Unlock()

	s.notify(ch)
	return true
}

// membersLocked keeps the casks of out that are catalog pointers.
func (s *Store) membersLocked(out []*model.Cask) []*model.Cask {
	kept := make([]*model.Cask, 0, len(out))
	for _, c := range out {
		if c != nil && s.byToken[c.Token] == c {
			kept = append(kept, c)
		}
	}
	return kept
}

// Catalog returns a copy of the authoritative list in load order.
func (s *Store) Catalog() []*model.Cask {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.casks)
}

// Filtered returns a copy of the current filtered view.
func (s *Store) Filtered() []*model.Cask {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.filtered)
}

// Lookup finds a cask by token.
func (s *Store) Lookup(token string) (*model.Cask, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.byToken[token]
	return c, ok
}

// Len returns the catalog size.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.casks)
}

// Version returns the catalog version. It increases with every Load, Add,
// Remove and Clear.
func (s *Store) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

func (s *Store) changeLocked(kind ChangeKind) Change {
	return Change{Kind: kind, Version: s.version, Catalog: len(s.casks), Filtered: len(s.filtered)}
}

func (s *Store) notify(ch Change) {
	if s.hooks.OnChange != nil {
		s.hooks.OnChange(ch)
	}
}

func rankView(query string, casks []*model.Cask, threshold float64, limit int) []*model.Cask {
	matches := search.Truncate(search.Rank(query, casks), threshold, limit)
	view := make([]*model.Cask, len(matches))
	for i, m := range matches {
		view[i] = casks[m.Index]
	}
	return view
}
