package model

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/glorpus-work/caskcat/internal/logger"
	"github.com/glorpus-work/caskcat/pkg/errors"
)

// RawCask mirrors one entry of the remote cask catalog document. Only the
// fields the catalog needs are decoded.
type RawCask struct {
	Token             string            `json:"token"`
	Name              []string          `json:"name"`
	Desc              *string           `json:"desc"`
	Homepage          string            `json:"homepage"`
	Version           string            `json:"version"`
	AutoUpdates       *bool             `json:"auto_updates"`
	Caveats           *string           `json:"caveats"`
	Deprecated        bool              `json:"deprecated"`
	DeprecationDate   *string           `json:"deprecation_date"`
	DeprecationReason *string           `json:"deprecation_reason"`
	Disabled          bool              `json:"disabled"`
	DisableDate       *string           `json:"disable_date"`
	DisableReason     *string           `json:"disable_reason"`
	Artifacts         []json.RawMessage `json:"artifacts"`
}

// ToCask converts the raw entry into an immutable Cask. It fails only when
// the entry has no token.
func (r *RawCask) ToCask() (*Cask, error) {
	token := strings.TrimSpace(r.Token)
	if token == "" {
		return nil, errors.Wrap(errors.ErrCatalogFormat, "entry has no token")
	}

	c := &Cask{
		Token:        token,
		Names:        r.Name,
		Description:  deref(r.Desc),
		Homepage:     r.Homepage,
		Version:      r.Version,
		AutoUpdates:  r.AutoUpdates != nil && *r.AutoUpdates,
		PkgInstaller: hasPkgArtifact(r.Artifacts),
	}

	// Disabled wins over deprecated, which wins over caveats.
	switch {
	case r.Disabled:
		c.Advisory = Advisory{Kind: AdvisoryDisabled, Date: parseDate(r.DisableDate), Reason: deref(r.DisableReason)}
	case r.Deprecated:
		c.Advisory = Advisory{Kind: AdvisoryDeprecated, Date: parseDate(r.DeprecationDate), Reason: deref(r.DeprecationReason)}
	case strings.TrimSpace(deref(r.Caveats)) != "":
		c.Advisory = Advisory{Kind: AdvisoryCaveat, Text: strings.TrimSpace(*r.Caveats)}
	}
	return c, nil
}

// ParseCasks decodes a catalog document. Entries that cannot be decoded,
// have no token or repeat an earlier token are dropped and counted. Only a
// document that is not a JSON array is an error.
func ParseCasks(data []byte) ([]*Cask, int, error) {
	var entries []json.RawMessage
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, 0, errors.Wrap(errors.ErrCatalogFormat, err.Error())
	}

	casks := make([]*Cask, 0, len(entries))
	seen := make(map[string]struct{}, len(entries))
	dropped := 0

	for i, entry := range entries {
		var raw RawCask
		if err := json.Unmarshal(entry, &raw); err != nil {
			dropped++
			logger.Warn("Dropping malformed catalog entry", logger.Fields{"index": i, "error": err.Error()})
			continue
		}
		c, err := raw.ToCask()
		if err != nil {
			dropped++
			logger.Warn("Dropping catalog entry", logger.Fields{"index": i, "error": err.Error()})
			continue
		}
		if _, dup := seen[c.Token]; dup {
			dropped++
			logger.Warn("Dropping duplicate catalog entry", logger.Fields{"index": i, "token": c.Token})
			continue
		}
		seen[c.Token] = struct{}{}
		casks = append(casks, c)
	}

	if dropped > 0 {
		logger.Debugf("Parsed %d casks, dropped %d", len(casks), dropped)
	}
	return casks, dropped, nil
}

func hasPkgArtifact(artifacts []json.RawMessage) bool {
	for _, a := range artifacts {
		var m map[string]json.RawMessage
		if err := json.Unmarshal(a, &m); err != nil {
			continue
		}
		if _, ok := m["pkg"]; ok {
			return true
		}
	}
	return false
}

func parseDate(s *string) time.Time {
	if s == nil {
		return time.Time{}
	}
	t, err := time.Parse(time.DateOnly, *s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
