// Package model provides the cask record and its advisory status, plus the
// conversion from raw catalog entries.
package model

import (
	"fmt"
	"time"

	"github.com/glorpus-work/caskcat/pkg/search"
	"github.com/hashicorp/go-version"
)

// Search weights for the cask fields. Identifiers and display names rank
// ahead of free-text descriptions.
const (
	TokenWeight       = 2.0
	NameWeight        = 2.0
	DescriptionWeight = 1.0
)

// LatestVersion is the version string used by casks that always track upstream.
const LatestVersion = "latest"

// AdvisoryKind tells which advisory, if any, a cask carries.
type AdvisoryKind int

const (
	// AdvisoryNone means the cask has no status annotation.
	AdvisoryNone AdvisoryKind = iota
	// AdvisoryDisabled means the cask can no longer be installed.
	AdvisoryDisabled
	// AdvisoryDeprecated means the cask is scheduled for removal.
	AdvisoryDeprecated
	// AdvisoryCaveat means installing the cask needs extra attention.
	AdvisoryCaveat
)

func (k AdvisoryKind) String() string {
	switch k {
	case AdvisoryDisabled:
		return "disabled"
	case AdvisoryDeprecated:
		return "deprecated"
	case AdvisoryCaveat:
		return "caveat"
	default:
		return "none"
	}
}

// Advisory is a non-fatal status annotation. Date and Reason are set for
// disabled and deprecated casks, Text for caveats.
type Advisory struct {
	Kind   AdvisoryKind
	Date   time.Time
	Reason string
	Text   string
}

// String renders the advisory for display.
func (a Advisory) String() string {
	switch a.Kind {
	case AdvisoryDisabled, AdvisoryDeprecated:
		msg := a.Kind.String()
		if !a.Date.IsZero() {
			msg += " since " + a.Date.Format(time.DateOnly)
		}
		if a.Reason != "" {
			msg += fmt.Sprintf(" (%s)", a.Reason)
		}
		return msg
	case AdvisoryCaveat:
		return a.Text
	default:
		return ""
	}
}

// Cask is one catalog entry. It is built once when the catalog is loaded and
// never modified afterwards; a refresh replaces records wholesale.
type Cask struct {
	Token        string   `json:"token"`
	Names        []string `json:"name"`
	Description  string   `json:"desc"`
	Homepage     string   `json:"homepage"`
	Version      string   `json:"version"`
	AutoUpdates  bool     `json:"auto_updates"`
	PkgInstaller bool     `json:"pkg_installer"`
	Advisory     Advisory `json:"-"`
}

// DisplayName returns the first human name, falling back to the token.
func (c *Cask) DisplayName() string {
	if len(c.Names) > 0 && c.Names[0] != "" {
		return c.Names[0]
	}
	return c.Token
}

// SearchableProperties exposes the weighted fields used by search.Rank.
func (c *Cask) SearchableProperties() []search.Property {
	props := make([]search.Property, 0, len(c.Names)+2)
	props = append(props, search.Property{Text: c.Token, Weight: TokenWeight})
	for _, n := range c.Names {
		props = append(props, search.Property{Text: n, Weight: NameWeight})
	}
	if c.Description != "" {
		props = append(props, search.Property{Text: c.Description, Weight: DescriptionWeight})
	}
	return props
}

// IsDisabled reports whether the cask carries a disabled advisory.
func (c *Cask) IsDisabled() bool { return c.Advisory.Kind == AdvisoryDisabled }

// IsDeprecated reports whether the cask carries a deprecated advisory.
func (c *Cask) IsDeprecated() bool { return c.Advisory.Kind == AdvisoryDeprecated }

// HasCaveat reports whether the cask carries caveats.
func (c *Cask) HasCaveat() bool { return c.Advisory.Kind == AdvisoryCaveat }

// GetVersion returns the parsed catalog version, or nil when it is not semver-like.
func (c *Cask) GetVersion() *version.Version {
	v, err := version.NewVersion(c.Version)
	if err != nil {
		return nil
	}
	return v
}

// IsOutdated reports whether the installed version is behind the catalog.
// Casks on "latest" never count as outdated. Versions that cannot be parsed
// (e.g. "1.2,abcd") are compared as plain strings.
func (c *Cask) IsOutdated(installed string) bool {
	if installed == "" || c.Version == "" || c.Version == LatestVersion {
		return false
	}
	current, err := version.NewVersion(installed)
	if err != nil {
		return installed != c.Version
	}
	available := c.GetVersion()
	if available == nil {
		return installed != c.Version
	}
	return current.LessThan(available)
}
