package fitment

import "github.com/partshub/fitment/engine/domain"

// Level is a coarse classification of how narrowly a criteria object
// constrains membership.
type Level string

const (
	LevelBasic    Level = "basic"
	LevelMedium   Level = "medium"
	LevelDetailed Level = "detailed"
)

// SpecificityConfig holds the scoring weights and thresholds used by
// Classify. The values are empirically chosen, so they are configuration
// rather than constants.
type SpecificityConfig struct {
	BrandWeight        int
	FamilyWeight       int
	ModelWeight        int
	LineWeight         int
	TransmissionWeight int
	FuelWeight         int
	EngineTypeWeight   int
	YearWeight         int

	DetailedCategories int
	DetailedScore      int
	MediumCategories   int
	MediumScore        int
}

// DefaultSpecificity returns the weights observed in production.
func DefaultSpecificity() SpecificityConfig {
	return SpecificityConfig{
		BrandWeight:        1,
		FamilyWeight:       2,
		ModelWeight:        3,
		TransmissionWeight: 2,
		FuelWeight:         2,
		YearWeight:         2,
		DetailedCategories: 3,
		DetailedScore:      6,
		MediumCategories:   2,
		MediumScore:        3,
	}
}

// Classify scores a criteria object and maps it to a level. Pure function of
// the criteria; vehicle data plays no part.
func (e *Engine) Classify(c domain.Criteria) Level {
	cfg := e.opts.Specificity
	score, categories := 0, 0

	add := func(populated bool, weight int) {
		if populated {
			score += weight
			categories++
		}
	}
	add(len(c.Brands) > 0, cfg.BrandWeight)
	add(len(c.Families) > 0, cfg.FamilyWeight)
	add(len(c.Models) > 0, cfg.ModelWeight)
	add(len(c.Lines) > 0, cfg.LineWeight)
	add(len(c.Transmissions) > 0, cfg.TransmissionWeight)
	add(len(c.Fuels) > 0, cfg.FuelWeight)
	add(len(c.EngineTypes) > 0, cfg.EngineTypeWeight)
	add(c.HasYearRange() || c.HasSpecificYears(), cfg.YearWeight)

	switch {
	case categories >= cfg.DetailedCategories && score >= cfg.DetailedScore:
		return LevelDetailed
	case categories >= cfg.MediumCategories && score >= cfg.MediumScore:
		return LevelMedium
	default:
		return LevelBasic
	}
}
