package catalog

import (
	"context"
	"slices"
	"sync"
	"testing"

	"github.com/glorpus-work/caskcat/pkg/model"
	"github.com/glorpus-work/caskcat/pkg/search"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixture() []*model.Cask {
	return []*model.Cask{
		{Token: "firefox", Names: []string{"Mozilla Firefox"}, Description: "Web browser"},
		{Token: "google-chrome", Names: []string{"Google Chrome"}, Description: "Web browser"},
		{Token: "slack", Names: []string{"Slack"}, Description: "Team communication and collaboration software"},
		{Token: "visual-studio-code", Names: []string{"Microsoft Visual Studio Code"}, Description: "Open-source code editor"},
		{Token: "iterm2", Names: []string{"iTerm2"}, Description: "Terminal emulator as alternative to Apple's Terminal app"},
	}
}

func tokens(casks []*model.Cask) []string {
	out := make([]string, 0, len(casks))
	for _, c := range casks {
		out = append(out, c.Token)
	}
	return out
}

// assertConsistent checks that every filtered element is a catalog pointer.
func assertConsistent(t *testing.T, s *Store) {
	t.Helper()
	catalog := s.Catalog()
	for _, f := range s.Filtered() {
		assert.True(t, slices.Contains(catalog, f), "filtered view holds %q which is not in the catalog", f.Token)
	}
}

func TestStore_LoadResetsView(t *testing.T) {
	s := New(Hooks{})
	casks := fixture()
	s.Load(casks)

	assert.Equal(t, 5, s.Len())
	assert.Equal(t, tokens(casks), tokens(s.Filtered()))
	assert.Same(t, casks[0], s.Filtered()[0])

	s.Search("slack", search.DefaultThreshold, search.DefaultLimit)
	require.Equal(t, []string{"slack"}, tokens(s.Filtered()))

	s.Load(fixture()[:2])
	assert.Equal(t, []string{"firefox", "google-chrome"}, tokens(s.Filtered()))
}

func TestStore_LoadDropsDuplicates(t *testing.T) {
	s := New(Hooks{})
	first := &model.Cask{Token: "firefox", Version: "1"}
	s.Load([]*model.Cask{first, nil, {Token: "firefox", Version: "2"}})

	require.Equal(t, 1, s.Len())
	c, ok := s.Lookup("firefox")
	require.True(t, ok)
	assert.Same(t, first, c)
}

func TestStore_AddDoesNotTouchView(t *testing.T) {
	s := New(Hooks{})
	s.Load(fixture())
	s.Search("browser", search.DefaultThreshold, search.DefaultLimit)
	before := tokens(s.Filtered())

	added := s.Add(&model.Cask{Token: "brave-browser", Names: []string{"Brave"}, Description: "Web browser"})
	require.True(t, added)
	assert.Equal(t, 6, s.Len())
	assert.Equal(t, before, tokens(s.Filtered()))

	assert.False(t, s.Add(&model.Cask{Token: "slack"}), "duplicate token")
	assert.False(t, s.Add(nil))

	s.Search("browser", search.DefaultThreshold, search.DefaultLimit)
	assert.Contains(t, tokens(s.Filtered()), "brave-browser")
}

func TestStore_RemoveKeepsViewsConsistent(t *testing.T) {
	tests := []struct {
		name  string
		setup func(s *Store)
	}{
		{name: "full view", setup: func(*Store) {}},
		{name: "after search", setup: func(s *Store) {
			s.Search("browser", search.DefaultThreshold, search.DefaultLimit)
		}},
		{name: "after filter", setup: func(s *Store) {
			s.ApplyFilter(func(v []*model.Cask) []*model.Cask { return v[:2] })
		}},
		{name: "after reorder", setup: func(s *Store) {
			s.ApplyFilter(func(v []*model.Cask) []*model.Cask {
				for i, j := 0, len(v)-1; i < j; i, j = i+1, j-1 {
					v[i], v[j] = v[j], v[i]
				}
				return v
			})
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New(Hooks{})
			casks := fixture()
			s.Load(casks)
			tt.setup(s)

			// Remove by an equal value, not the stored pointer.
			require.True(t, s.Remove(&model.Cask{Token: "firefox"}))
			assert.NotContains(t, tokens(s.Catalog()), "firefox")
			assert.NotContains(t, tokens(s.Filtered()), "firefox")
			_, ok := s.Lookup("firefox")
			assert.False(t, ok)
			assertConsistent(t, s)

			assert.False(t, s.Remove(&model.Cask{Token: "firefox"}))
			assert.False(t, s.Remove(nil))
		})
	}
}

func TestStore_Clear(t *testing.T) {
	s := New(Hooks{})
	s.Load(fixture())
	s.Clear()
	assert.Zero(t, s.Len())
	assert.Empty(t, s.Filtered())
	_, ok := s.Lookup("slack")
	assert.False(t, ok)
}

func TestStore_Search(t *testing.T) {
	s := New(Hooks{})
	s.Load(fixture())

	s.Search("browser", search.DefaultThreshold, search.DefaultLimit)
	assert.Equal(t, []string{"firefox", "google-chrome"}, tokens(s.Filtered()), "ties keep catalog order")

	s.Search("browser", search.DefaultThreshold, 1)
	assert.Equal(t, []string{"firefox"}, tokens(s.Filtered()))

	s.Search("zzz", search.DefaultThreshold, search.DefaultLimit)
	assert.Empty(t, s.Filtered())

	s.Search("", search.DefaultThreshold, 1)
	assert.Len(t, s.Filtered(), 5, "empty query bypasses ranking and limit")
	assertConsistent(t, s)
}

func TestStore_ApplyFilter(t *testing.T) {
	s := New(Hooks{})
	s.Load(fixture())
	s.Search("browser", search.DefaultThreshold, search.DefaultLimit)

	s.ApplyFilter(func(v []*model.Cask) []*model.Cask {
		out := v[:0]
		for _, c := range v {
			if c.Token != "firefox" {
				out = append(out, c)
			}
		}
		return out
	})
	assert.Equal(t, []string{"google-chrome"}, tokens(s.Filtered()))

	// Foreign pointers never enter the view, even with a known token.
	s.ApplyFilter(func(v []*model.Cask) []*model.Cask {
		return append(v, &model.Cask{Token: "slack"}, &model.Cask{Token: "unknown"})
	})
	assert.Equal(t, []string{"google-chrome"}, tokens(s.Filtered()))

	s.ApplyFilter(nil)
	assert.Equal(t, []string{"google-chrome"}, tokens(s.Filtered()))
}

func TestStore_ApplyFilterDiscardedWhenViewReplaced(t *testing.T) {
	s := New(Hooks{})
	s.Load(fixture())

	entered := make(chan struct{})
	release := make(chan struct{})
	applied := make(chan bool, 1)
	go func() {
		applied <- s.ApplyFilter(func(v []*model.Cask) []*model.Cask {
			close(entered)
			<-release
			return v
		})
	}()

	<-entered
	require.True(t, s.Search("slack", search.DefaultThreshold, search.DefaultLimit))
	close(release)

	assert.False(t, <-applied)
	assert.Equal(t, []string{"slack"}, tokens(s.Filtered()), "the search result must survive")

	assert.True(t, s.ApplyFilter(func(v []*model.Cask) []*model.Cask { return v[:0] }))
	assert.Empty(t, s.Filtered())
}

func TestStore_SearchFiltersInsideTicket(t *testing.T) {
	var changes []Change
	s := New(Hooks{OnChange: func(c Change) { changes = append(changes, c) }})
	s.Load(fixture())

	dropFirefox := func(v []*model.Cask) []*model.Cask {
		return slices.DeleteFunc(v, func(c *model.Cask) bool { return c.Token == "firefox" })
	}
	assert.True(t, s.Search("browser", search.DefaultThreshold, search.DefaultLimit, dropFirefox, nil))
	assert.Equal(t, []string{"google-chrome"}, tokens(s.Filtered()))

	last := changes[len(changes)-1]
	assert.Equal(t, ChangeSearched, last.Kind)
	assert.Equal(t, 1, last.Filtered, "observers only see the filtered result")

	// A filter returning foreign pointers cannot smuggle them into the view.
	foreign := func(v []*model.Cask) []*model.Cask { return append(v, &model.Cask{Token: "slack"}) }
	s.Search("", search.DefaultThreshold, search.DefaultLimit, foreign)
	assert.Len(t, s.Filtered(), 5)
	assertConsistent(t, s)
}

func TestStore_OverlappingFilteredSearches(t *testing.T) {
	s := New(Hooks{})
	s.Load(fixture())

	entered := make(chan struct{})
	release := make(chan struct{})
	blocking := func(v []*model.Cask) []*model.Cask {
		close(entered)
		<-release
		return v
	}

	older := s.SearchAsync(context.Background(), "slack", search.DefaultThreshold, search.DefaultLimit, blocking)
	<-entered
	require.True(t, s.Search("browser", search.DefaultThreshold, search.DefaultLimit))
	close(release)

	assert.False(t, <-older)
	assert.Equal(t, []string{"firefox", "google-chrome"}, tokens(s.Filtered()))
}

func TestStore_ApplyFilterCannotMutateStore(t *testing.T) {
	s := New(Hooks{})
	s.Load(fixture())
	s.ApplyFilter(func(v []*model.Cask) []*model.Cask {
		v[0] = nil
		return nil
	})
	assert.Equal(t, 5, s.Len())
	assert.Equal(t, "firefox", s.Catalog()[0].Token)
}

func TestStore_ReserveCapacity(t *testing.T) {
	s := New(Hooks{})
	s.ReserveCapacity(100)
	s.ReserveCapacity(-1)
	assert.Zero(t, s.Len())
	assert.Zero(t, s.Version())
}

func TestStore_HooksAndVersion(t *testing.T) {
	var changes []Change
	s := New(Hooks{OnChange: func(c Change) { changes = append(changes, c) }})

	s.Load(fixture())
	s.Add(&model.Cask{Token: "zoom"})
	s.Search("slack", search.DefaultThreshold, search.DefaultLimit)
	s.ApplyFilter(func(v []*model.Cask) []*model.Cask { return v })
	s.Remove(&model.Cask{Token: "slack"})
	s.Clear()

	kinds := make([]ChangeKind, 0, len(changes))
	for _, c := range changes {
		kinds = append(kinds, c.Kind)
	}
	assert.Equal(t, []ChangeKind{
		ChangeLoaded, ChangeAdded, ChangeSearched, ChangeFiltered, ChangeRemoved, ChangeCleared,
	}, kinds)

	assert.Equal(t, uint64(4), s.Version(), "only catalog mutations bump the version")
	assert.Equal(t, Change{Kind: ChangeLoaded, Version: 1, Catalog: 5, Filtered: 5}, changes[0])
	assert.Equal(t, 1, changes[2].Filtered)
	assert.Equal(t, 0, changes[4].Filtered)
}

func TestStore_HookMayReadStore(t *testing.T) {
	var seen int
	var s *Store
	s = New(Hooks{OnChange: func(Change) { seen = len(s.Filtered()) }})
	s.Load(fixture())
	assert.Equal(t, 5, seen)
}

func TestStore_StaleSearchDiscarded(t *testing.T) {
	s := New(Hooks{})
	s.Load(fixture())

	slow := s.BeginSearch("browser", search.DefaultThreshold, search.DefaultLimit)
	fast := s.BeginSearch("slack", search.DefaultThreshold, search.DefaultLimit)

	assert.True(t, s.Commit(fast.Rank()))
	assert.False(t, s.Commit(slow.Rank()), "older ticket must not overwrite a newer result")
	assert.Equal(t, []string{"slack"}, tokens(s.Filtered()))
}

func TestStore_SearchSupersedesTickets(t *testing.T) {
	s := New(Hooks{})
	s.Load(fixture())

	pending := s.BeginSearch("browser", search.DefaultThreshold, search.DefaultLimit)
	s.Search("code", search.DefaultThreshold, search.DefaultLimit)
	assert.False(t, s.Commit(pending.Rank()))
	assert.Equal(t, []string{"visual-studio-code"}, tokens(s.Filtered()))
}

func TestStore_ResultDiscardedAfterCatalogChange(t *testing.T) {
	s := New(Hooks{})
	s.Load(fixture())

	ticket := s.BeginSearch("firefox", search.DefaultThreshold, search.DefaultLimit)
	res := ticket.Rank()
	require.Equal(t, []string{"firefox"}, tokens(res.View()))

	s.Remove(&model.Cask{Token: "firefox"})
	assert.False(t, s.Commit(res))
	assertConsistent(t, s)
	assert.False(t, s.Commit(Result{}))
	assert.Equal(t, "firefox", ticket.Query())
}

func TestStore_SearchAsync(t *testing.T) {
	s := New(Hooks{})
	s.Load(fixture())

	applied := <-s.SearchAsync(context.Background(), "slack", search.DefaultThreshold, search.DefaultLimit)
	assert.True(t, applied)
	assert.Equal(t, []string{"slack"}, tokens(s.Filtered()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	applied = <-s.SearchAsync(ctx, "browser", search.DefaultThreshold, search.DefaultLimit)
	assert.False(t, applied)
	assert.Equal(t, []string{"slack"}, tokens(s.Filtered()))
}

func TestStore_ConcurrentAccess(t *testing.T) {
	s := New(Hooks{})
	s.Load(fixture())

	queries := []string{"b", "br", "bro", "brow", "browser", "code", "slack", ""}
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			<-s.SearchAsync(context.Background(), queries[i%len(queries)], search.DefaultThreshold, search.DefaultLimit)
		}(i)
		go func(i int) {
			defer wg.Done()
			if i%10 == 0 {
				s.Remove(&model.Cask{Token: "iterm2"})
				s.Add(&model.Cask{Token: "iterm2"})
			}
			_ = s.Filtered()
		}(i)
	}
	wg.Wait()
	assertConsistent(t, s)
}
