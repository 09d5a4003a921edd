// Package freshness decides whether the cached catalog snapshot can be used
// or has to be fetched again.
package freshness

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/glorpus-work/caskcat/internal/logger"
	"github.com/glorpus-work/caskcat/pkg/errors"
)

// Kind is the update cadence family.
type Kind int

const (
	EveryLaunch Kind = iota
	EveryNDays
	Weekly
	Monthly
)

const day = 24 * time.Hour

// Cadence is how often the catalog is refreshed. Days is only meaningful for
// EveryNDays.
type Cadence struct {
	Kind Kind
	Days int
}

// Predefined cadences.
var (
	CadenceEveryLaunch = Cadence{Kind: EveryLaunch}
	CadenceDaily       = Cadence{Kind: EveryNDays, Days: 1}
	CadenceWeekly      = Cadence{Kind: Weekly}
	CadenceMonthly     = Cadence{Kind: Monthly}
)

// EveryDays returns a cadence of n days.
func EveryDays(n int) Cadence {
	return Cadence{Kind: EveryNDays, Days: n}
}

// Interval returns the maximum age of a usable snapshot. Every-launch is 0.
func (c Cadence) Interval() time.Duration {
	switch c.Kind {
	case EveryNDays:
		return time.Duration(c.Days) * day
	case Weekly:
		return 7 * day
	case Monthly:
		return 30 * day
	default:
		return 0
	}
}

// String returns the config spelling of the cadence.
func (c Cadence) String() string {
	switch c.Kind {
	case EveryNDays:
		if c.Days == 1 {
			return "daily"
		}
		return fmt.Sprintf("every-%d-days", c.Days)
	case Weekly:
		return "weekly"
	case Monthly:
		return "monthly"
	default:
		return "every-launch"
	}
}

// ParseCadence reads a cadence from its config spelling: every-launch, daily,
// every-N-days, weekly or monthly.
func ParseCadence(s string) (Cadence, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	switch v {
	case "every-launch":
		return CadenceEveryLaunch, nil
	case "daily":
		return CadenceDaily, nil
	case "weekly":
		return CadenceWeekly, nil
	case "monthly":
		return CadenceMonthly, nil
	}

	if rest, ok := strings.CutPrefix(v, "every-"); ok {
		if n, ok := strings.CutSuffix(rest, "-days"); ok {
			days, err := strconv.Atoi(n)
			if err == nil && days > 0 {
				return EveryDays(days), nil
			}
		}
	}
	return Cadence{}, errors.ErrInvalidCadenceWithValue(s)
}

// Policy applies a cadence to a snapshot on disk.
type Policy struct {
	Cadence Cadence
	// Now defaults to time.Now.
	Now func() time.Time
}

// NewPolicy returns a policy using the wall clock.
func NewPolicy(c Cadence) *Policy {
	return &Policy{Cadence: c, Now: time.Now}
}

// ShouldLoadFromCache reports whether the snapshot at path is fresh enough to
// use. Any problem reading it counts as stale.
func (p *Policy) ShouldLoadFromCache(path string) bool {
	interval := p.Cadence.Interval()
	if interval <= 0 {
		logger.Debug("Cadence is every launch, refreshing catalog")
		return false
	}

	stat, err := os.Stat(path)
	if err != nil {
		logger.Debug("No usable catalog snapshot", logger.Fields{"path": path, "error": err.Error()})
		return false
	}
	if stat.IsDir() {
		return false
	}

	age := p.now().Sub(stat.ModTime())
	fresh := age < interval
	logger.Debug("Checked catalog snapshot age", logger.Fields{
		"path":      path,
		"age":       age.Round(time.Second).String(),
		"cadence":   p.Cadence.String(),
		"use_cache": fresh,
	})
	return fresh
}

// Age returns how old the snapshot at path is.
func (p *Policy) Age(path string) (time.Duration, error) {
	stat, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, errors.ErrCacheNotFound
		}
		return 0, errors.Wrap(err, "failed to stat catalog snapshot")
	}
	return p.now().Sub(stat.ModTime()), nil
}

func (p *Policy) now() time.Time {
	if p.Now == nil {
		return time.Now()
	}
	return p.Now()
}
