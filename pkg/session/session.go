// Package session ties the catalog store to its sources: it decides between
// the on-disk snapshot and the network, loads the store, and runs searches
// with the configured threshold, limit and view filters.
package session

import (
	"context"
	goerrors "errors"
	"fmt"

	"github.com/glorpus-work/caskcat/internal/logger"
	"github.com/glorpus-work/caskcat/pkg/catalog"
	"github.com/glorpus-work/caskcat/pkg/config"
	"github.com/glorpus-work/caskcat/pkg/errors"
	"github.com/glorpus-work/caskcat/pkg/filter"
	"github.com/glorpus-work/caskcat/pkg/freshness"
	"github.com/glorpus-work/caskcat/pkg/model"
	"github.com/glorpus-work/caskcat/pkg/source"
)

// Fetcher downloads the raw catalog document.
type Fetcher interface {
	FetchCatalog(ctx context.Context) ([]byte, error)
}

// Origin says where a loaded catalog came from.
type Origin string

const (
	OriginCache   Origin = "cache"
	OriginNetwork Origin = "network"
	// OriginStale is a snapshot used because the fetch failed.
	OriginStale Origin = "stale-cache"
)

// LoadResult describes a completed LoadCatalog.
type LoadResult struct {
	Origin  Origin
	Casks   int
	Dropped int
}

// Options configure a Session. Source, Snapshot and Policy are required.
type Options struct {
	Source    Fetcher
	Snapshot  *source.Snapshot
	Policy    *freshness.Policy
	Threshold float64
	Limit     int
	// Filters run in order on every search result.
	Filters []catalog.Predicate
	Script  *filter.Script
	Hooks   catalog.Hooks
}

// Session owns a catalog store and the settings used to fill and query it.
type Session struct {
	store     *catalog.Store
	source    Fetcher
	snapshot  *source.Snapshot
	policy    *freshness.Policy
	threshold float64
	limit     int
	filters   []catalog.Predicate
	script    *filter.Script
}

// New creates a session with an empty store.
func New(opts Options) *Session {
	return &Session{
		store:     catalog.New(opts.Hooks),
		source:    opts.Source,
		snapshot:  opts.Snapshot,
		policy:    opts.Policy,
		threshold: opts.Threshold,
		limit:     opts.Limit,
		filters:   opts.Filters,
		script:    opts.Script,
	}
}

// FromConfig builds a session backed by the HTTP catalog source and the
// snapshot in the configured cache directory.
func FromConfig(cfg *config.Config, hooks catalog.Hooks) (*Session, error) {
	s := cfg.Settings
	src, err := source.NewHTTPSource(source.Options{
		URL:      s.CatalogURL,
		ProxyURL: s.ProxyURL,
		Timeout:  s.HTTPTimeout,
	})
	if err != nil {
		return nil, err
	}

	var filters []catalog.Predicate
	if s.HideDisabled {
		filters = append(filters, filter.HideDisabled())
	}
	if s.HideDeprecated {
		filters = append(filters, filter.HideDeprecated())
	}

	var script *filter.Script
	if s.FilterScript != "" {
		script, err = filter.Compile(s.FilterScript)
		if err != nil {
			return nil, errors.Wrap(err, "filter_script")
		}
	}

	return New(Options{
		Source:    src,
		Snapshot:  source.NewSnapshot(s.CacheDir),
		Policy:    freshness.NewPolicy(cfg.Cadence()),
		Threshold: s.SearchThreshold,
		Limit:     s.SearchLimit,
		Filters:   filters,
		Script:    script,
		Hooks:     hooks,
	}), nil
}

// Store returns the underlying catalog store.
func (s *Session) Store() *catalog.Store { return s.store }

// LoadCatalog fills the store. A fresh snapshot is used unless force is set.
// Otherwise the catalog is fetched and the snapshot replaced; if the fetch
// fails or the document cannot be parsed, any existing snapshot is used
// regardless of age and is left as it was.
func (s *Session) LoadCatalog(ctx context.Context, force bool) (LoadResult, error) {
	if !force && s.policy.ShouldLoadFromCache(s.snapshot.Path) {
		res, err := s.loadSnapshot(OriginCache)
		if err == nil {
			return res, nil
		}
		logger.Warn("Cached catalog unusable, fetching", logger.Fields{"path": s.snapshot.Path, "error": err.Error()})
	}

	data, fetchErr := s.source.FetchCatalog(ctx)
	if fetchErr != nil {
		if goerrors.Is(fetchErr, context.Canceled) {
			return LoadResult{}, fetchErr
		}
		res, err := s.loadSnapshot(OriginStale)
		if err != nil {
			return LoadResult{}, fmt.Errorf("%w: %w", errors.ErrNoCatalog, fetchErr)
		}
		logger.Warn("Catalog fetch failed, using cached copy", logger.Fields{"error": fetchErr.Error()})
		return res, nil
	}

	casks, dropped, err := model.ParseCasks(data)
	if err != nil {
		res, snapErr := s.loadSnapshot(OriginStale)
		if snapErr != nil {
			return LoadResult{}, err
		}
		logger.Warn("Fetched catalog unreadable, using cached copy", logger.Fields{"error": err.Error()})
		return res, nil
	}
	if err := s.snapshot.Write(data); err != nil {
		logger.Warn("Failed to write catalog snapshot", logger.Fields{"path": s.snapshot.Path, "error": err.Error()})
	}

	s.store.Load(casks)
	logger.Debug("Catalog loaded", logger.Fields{"origin": OriginNetwork, "casks": len(casks), "dropped": dropped})
	return LoadResult{Origin: OriginNetwork, Casks: len(casks), Dropped: dropped}, nil
}

func (s *Session) loadSnapshot(origin Origin) (LoadResult, error) {
	data, err := s.snapshot.Read()
	if err != nil {
		return LoadResult{}, err
	}
	casks, dropped, err := model.ParseCasks(data)
	if err != nil {
		return LoadResult{}, errors.Wrap(errors.ErrCacheCorrupt, err.Error())
	}
	s.store.Load(casks)
	logger.Debug("Catalog loaded", logger.Fields{"origin": origin, "casks": len(casks), "dropped": dropped})
	return LoadResult{Origin: origin, Casks: len(casks), Dropped: dropped}, nil
}

// Search ranks the catalog against query with the session's threshold and
// limit, applies the view filters plus extra, and returns the resulting view.
// Ranking and filtering are installed as one step.
func (s *Session) Search(ctx context.Context, query string, extra ...catalog.Predicate) []*model.Cask {
	s.store.Search(query, s.threshold, s.limit, s.predicates(ctx, extra)...)
	return s.store.Filtered()
}

// SearchAsync is Search on another goroutine. The channel yields whether the
// result was applied; a result overtaken by a newer search or a catalog change
// is discarded along with its filters.
func (s *Session) SearchAsync(ctx context.Context, query string, extra ...catalog.Predicate) <-chan bool {
	return s.store.SearchAsync(ctx, query, s.threshold, s.limit, s.predicates(ctx, extra)...)
}

// Lookup finds a cask by token.
func (s *Session) Lookup(token string) (*model.Cask, error) {
	c, ok := s.store.Lookup(token)
	if !ok {
		return nil, errors.ErrCaskNotFoundWithToken(token)
	}
	return c, nil
}

func (s *Session) predicates(ctx context.Context, extra []catalog.Predicate) []catalog.Predicate {
	preds := append([]catalog.Predicate{}, s.filters...)
	if s.script != nil {
		preds = append(preds, s.script.Predicate(ctx))
	}
	return append(preds, extra...)
}
