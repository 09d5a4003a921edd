package catalog

import (
	"context"
	"slices"

	"github.com/glorpus-work/caskcat/pkg/model"
)

// Ticket is an issued search. It carries the snapshot it ranks and the
// sequence number and catalog version it was issued against.
type Ticket struct {
	seq       uint64
	version   uint64
	query     string
	threshold float64
	limit     int
	filters   []Predicate
	snapshot  []*model.Cask
}

// Query returns the query the ticket was issued for.
func (t *Ticket) Query() string { return t.query }

// Result is a ranked view waiting to be committed.
type Result struct {
	ticket *Ticket
	view   []*model.Cask
}

// View returns the ranked casks.
func (r Result) View() []*model.Cask { return slices.Clone(r.view) }

// BeginSearch issues a new search ticket. Issuing supersedes every ticket
// issued before it. filters run in order on the ranked view when the ticket
// is ranked.
func (s *Store) BeginSearch(query string, threshold float64, limit int, filters ...Predicate) *Ticket {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	return &Ticket{
		seq:       s.seq,
		version:   s.version,
		query:     query,
		threshold: threshold,
		limit:     limit,
		filters:   filters,
		snapshot:  slices.Clone(s.casks),
	}
}

// Rank computes the ticket's view, filters included. It touches no store
// state and may run on any goroutine.
func (t *Ticket) Rank() Result {
	view := t.snapshot
	if t.query != "" {
		view = rankView(t.query, t.snapshot, t.threshold, t.limit)
	}
	for _, pred := range t.filters {
		if pred != nil {
			view = pred(slices.Clone(view))
		}
	}
	return Result{ticket: t, view: view}
}

// Commit installs r as the filtered view if its ticket is still the latest one
// issued and the catalog has not changed since. It reports whether the result
// was applied; stale results are discarded.
func (s *Store) Commit(r Result) bool {
	if r.ticket == nil {
		return false
	}
	s.mu.Lock()
	if r.ticket.seq != s.seq || r.ticket.version != s.version {
		s.mu.Unlock()
		return false
	}
	s.filtered = s.membersLocked(r.view)
	s.view++
	ch := s.changeLocked(ChangeSearched)
	s.mu.Unlock()

	s.notify(ch)
	return true
}

// SearchAsync ranks and filters query on a new goroutine and commits the
// result. The returned channel yields whether the result was applied and is
// then closed. A result whose context was cancelled is never applied.
func (s *Store) SearchAsync(ctx context.Context, query string, threshold float64, limit int, filters ...Predicate) <-chan bool {
	t := s.BeginSearch(query, threshold, limit, filters...)
	done := make(chan bool, 1)
	go func() {
		defer close(done)
		r := t.Rank()
		if ctx.Err() != nil {
			done <- false
			return
		}
		done <- s.Commit(r)
	}()
	return done
}
