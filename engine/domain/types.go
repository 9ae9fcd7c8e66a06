// Package domain defines core domain types, constants, and validation for the
// fitment service. It acts as the validation gate where external group data
// enters the engine.
package domain

import "time"

// Criteria is the declarative compatibility predicate of a group. Values
// within one field combine with OR; populated fields combine with AND. An
// empty field imposes no constraint.
type Criteria struct {
	Brands        []string `json:"brands,omitempty"`
	Families      []string `json:"families,omitempty"`
	Models        []string `json:"models,omitempty"`
	Lines         []string `json:"lines,omitempty"`
	Transmissions []string `json:"transmissions,omitempty"`
	Fuels         []string `json:"fuels,omitempty"`
	EngineTypes   []string `json:"engine_types,omitempty"`

	// MinYear/MaxYear bound an inclusive year range; zero means unset.
	MinYear int `json:"min_year,omitempty"`
	MaxYear int `json:"max_year,omitempty"`

	// SpecificYears lists discrete model years. Mutually exclusive with the
	// MinYear/MaxYear range.
	SpecificYears []int `json:"specific_years,omitempty"`
}

// HasYearRange reports whether at least one range bound is set.
func (c Criteria) HasYearRange() bool { return c.MinYear != 0 || c.MaxYear != 0 }

// HasSpecificYears reports whether discrete years are set.
func (c Criteria) HasSpecificYears() bool { return len(c.SpecificYears) > 0 }

// Empty reports whether no field constrains anything.
func (c Criteria) Empty() bool {
	return len(c.Brands) == 0 && len(c.Families) == 0 && len(c.Models) == 0 &&
		len(c.Lines) == 0 && len(c.Transmissions) == 0 && len(c.Fuels) == 0 &&
		len(c.EngineTypes) == 0 && !c.HasYearRange() && !c.HasSpecificYears()
}

// Group is a named applicability configuration entity.
type Group struct {
	ID              string   `json:"id"`
	Name            string   `json:"name"`
	ApplicabilityID string   `json:"applicability_id,omitempty"`
	Criteria        Criteria `json:"criteria"`

	// IncludedVehicles are members regardless of Criteria.
	IncludedVehicles []string `json:"included_vehicles,omitempty"`
	// ExcludedVehicles are never members, even when Criteria matches.
	ExcludedVehicles []string `json:"excluded_vehicles,omitempty"`

	Category  Category  `json:"category"`
	Tags      []string  `json:"tags,omitempty"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at,omitempty"`
	UpdatedAt time.Time `json:"updated_at,omitempty"`
}

// Vehicle is a read-only vehicle record. The engine only tests membership
// against it and never mutates it.
type Vehicle struct {
	ID           string `json:"id"`
	Brand        string `json:"brand"`
	Family       string `json:"family"`
	Model        string `json:"model"`
	Line         string `json:"line,omitempty"`
	Transmission string `json:"transmission,omitempty"`
	Fuel         string `json:"fuel,omitempty"`
	EngineType   string `json:"engine_type,omitempty"`
	Years        []int  `json:"years,omitempty"`
}

// Category groups applicability entries for listing and filtering; it has no
// effect on membership.
type Category string

const (
	CategoryGeneral     Category = "general"
	CategoryParts       Category = "parts"
	CategoryAccessories Category = "accessories"
	CategoryService     Category = "service"
	CategoryBlog        Category = "blog"
)

// ValidCategories is the set of recognised group categories.
var ValidCategories = map[Category]bool{
	CategoryGeneral: true, CategoryParts: true, CategoryAccessories: true,
	CategoryService: true, CategoryBlog: true,
}
