// Package filter builds catalog view predicates: the built-in advisory and
// install-state toggles, and user expressions written in Tengo.
package filter

import (
	"slices"
	"strings"

	"github.com/glorpus-work/caskcat/pkg/catalog"
	"github.com/glorpus-work/caskcat/pkg/model"
)

// Keep turns a per-cask test into a view predicate that keeps order.
func Keep(test func(*model.Cask) bool) catalog.Predicate {
	return func(view []*model.Cask) []*model.Cask {
		return slices.DeleteFunc(view, func(c *model.Cask) bool { return !test(c) })
	}
}

// HideDisabled drops casks with a disabled advisory.
func HideDisabled() catalog.Predicate {
	return Keep(func(c *model.Cask) bool { return !c.IsDisabled() })
}

// HideDeprecated drops casks with a deprecated advisory.
func HideDeprecated() catalog.Predicate {
	return Keep(func(c *model.Cask) bool { return !c.IsDeprecated() })
}

// OnlyInstalled keeps casks present in installed (token to version).
func OnlyInstalled(installed map[string]string) catalog.Predicate {
	return Keep(func(c *model.Cask) bool {
		_, ok := installed[c.Token]
		return ok
	})
}

// OnlyOutdated keeps installed casks whose catalog version is newer.
func OnlyOutdated(installed map[string]string) catalog.Predicate {
	return Keep(func(c *model.Cask) bool {
		v, ok := installed[c.Token]
		return ok && c.IsOutdated(v)
	})
}

// SortByName orders the view by display name, case-insensitively.
func SortByName() catalog.Predicate {
	return func(view []*model.Cask) []*model.Cask {
		slices.SortStableFunc(view, func(a, b *model.Cask) int {
			return strings.Compare(strings.ToLower(a.DisplayName()), strings.ToLower(b.DisplayName()))
		})
		return view
	}
}

// Chain applies preds in order. Nil entries are skipped.
func Chain(preds ...catalog.Predicate) catalog.Predicate {
	return func(view []*model.Cask) []*model.Cask {
		for _, p := range preds {
			if p != nil {
				view = p(view)
			}
		}
		return view
	}
}
