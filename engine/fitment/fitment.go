// Package fitment implements the vehicle applicability engine: compatibility
// checks, criteria validation, and specificity classification. All functions
// are pure with respect to shared state; an Engine only carries configuration
// and a clock.
package fitment

import (
	"strings"
	"time"

	"github.com/partshub/fitment/engine/domain"
)

// Options configures validation thresholds and specificity scoring.
type Options struct {
	// WideRangeYears is the year-range width beyond which validation suggests
	// splitting the group.
	WideRangeYears int
	// MinSaneYear is the bound below which specific years draw a warning.
	MinSaneYear int
	// FutureSlack is how many years past the current year are accepted
	// without a warning.
	FutureSlack int
	Specificity SpecificityConfig
}

// DefaultOptions returns the thresholds observed in production.
func DefaultOptions() Options {
	return Options{
		WideRangeYears: 30,
		MinSaneYear:    1990,
		FutureSlack:    1,
		Specificity:    DefaultSpecificity(),
	}
}

// Engine evaluates applicability criteria. Safe for concurrent use.
type Engine struct {
	opts Options
	now  func() time.Time // for testing
}

// New creates an Engine. Zero-valued option fields fall back to defaults.
func New(opts Options) *Engine {
	def := DefaultOptions()
	if opts.WideRangeYears <= 0 {
		opts.WideRangeYears = def.WideRangeYears
	}
	if opts.MinSaneYear <= 0 {
		opts.MinSaneYear = def.MinSaneYear
	}
	if opts.FutureSlack <= 0 {
		opts.FutureSlack = def.FutureSlack
	}
	if opts.Specificity == (SpecificityConfig{}) {
		opts.Specificity = def.Specificity
	}
	return &Engine{opts: opts, now: time.Now}
}

// IsCompatible reports whether a vehicle is a member of a group.
//
// Precedence: explicit exclusion always wins; explicit inclusion wins over
// criteria; otherwise every populated criteria dimension must match. A group
// with empty criteria matches no vehicle through criteria alone.
func (e *Engine) IsCompatible(v domain.Vehicle, g domain.Group) bool {
	if v.ID != "" {
		for _, id := range g.ExcludedVehicles {
			if id == v.ID {
				return false
			}
		}
		for _, id := range g.IncludedVehicles {
			if id == v.ID {
				return true
			}
		}
	}
	return e.matchesCriteria(v, g.Criteria)
}

// matchesCriteria evaluates the declarative predicate. Malformed vehicles
// (missing attributes) fail the dimension in question rather than raising.
func (e *Engine) matchesCriteria(v domain.Vehicle, c domain.Criteria) bool {
	if c.Empty() {
		// Should have been rejected at validation time; behave safely.
		return false
	}
	if !matchSet(c.Brands, v.Brand) ||
		!matchSet(c.Families, v.Family) ||
		!matchSet(c.Models, v.Model) ||
		!matchSet(c.Lines, v.Line) ||
		!matchSet(c.Transmissions, v.Transmission) ||
		!matchSet(c.Fuels, v.Fuel) ||
		!matchSet(c.EngineTypes, v.EngineType) {
		return false
	}
	return matchYears(c, v.Years)
}

// matchSet is the OR-within-a-dimension test. An empty set is a wildcard.
func matchSet(set []string, val string) bool {
	if len(set) == 0 {
		return true
	}
	if val == "" {
		return false
	}
	for _, s := range set {
		if strings.EqualFold(s, val) {
			return true
		}
	}
	return false
}

// matchYears tests the year dimension. Specific years take priority over the
// range; with neither populated the dimension imposes no constraint.
func matchYears(c domain.Criteria, years []int) bool {
	switch {
	case c.HasSpecificYears():
		wanted := make(map[int]bool, len(c.SpecificYears))
		for _, y := range c.SpecificYears {
			wanted[y] = true
		}
		for _, y := range years {
			if wanted[y] {
				return true
			}
		}
		return false
	case c.HasYearRange():
		for _, y := range years {
			if c.MinYear != 0 && y < c.MinYear {
				continue
			}
			if c.MaxYear != 0 && y > c.MaxYear {
				continue
			}
			return true
		}
		return false
	default:
		return true
	}
}
