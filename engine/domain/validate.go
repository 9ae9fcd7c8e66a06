package domain

import (
	"fmt"
	"math/rand"
	"regexp"
	"strings"
	"unicode/utf8"
)

const maxNameLength = 120

// Tags: 1-40 chars, letters/digits/dash/underscore, optional single spaces.
var tagRegex = regexp.MustCompile(`^[\p{L}\p{N}_-]+( [\p{L}\p{N}_-]+)*$`)

const maxTagLength = 40

// ValidateGroup checks a Group before it is persisted. Criteria-level year
// checks live in engine/fitment; this gate covers structural invariants.
func ValidateGroup(g Group) error {
	name := strings.TrimSpace(g.Name)
	if name == "" {
		return NewValidationError("name", g.Name, ErrEmptyName)
	}
	if utf8.RuneCountInString(name) > maxNameLength {
		return NewValidationError("name", name, ErrNameTooLong)
	}

	if g.Category != "" && !ValidCategories[g.Category] {
		return NewValidationError("category", string(g.Category), ErrInvalidCategory)
	}

	for _, tag := range g.Tags {
		if err := ValidateTag(tag); err != nil {
			return err
		}
	}

	// Exclusion and inclusion must not overlap.
	included := make(map[string]bool, len(g.IncludedVehicles))
	for _, id := range g.IncludedVehicles {
		included[id] = true
	}
	for _, id := range g.ExcludedVehicles {
		if included[id] {
			return NewValidationError("excluded_vehicles", id, ErrIncludeExclude)
		}
	}

	// Membership must not be vacuous.
	if g.Criteria.Empty() && len(g.IncludedVehicles) == 0 {
		return NewValidationError("criteria", "", ErrVacuousGroup)
	}

	return nil
}

// ValidateTag checks a single free-text label.
func ValidateTag(tag string) error {
	if tag == "" || utf8.RuneCountInString(tag) > maxTagLength {
		return NewValidationError("tags", tag, ErrInvalidTag)
	}
	if !tagRegex.MatchString(tag) {
		return NewValidationError("tags", tag, ErrInvalidTag)
	}
	return nil
}

// NewApplicabilityID derives a unique external key from a group name. Used
// when a group is created without an explicit identifier.
func NewApplicabilityID(name string) string {
	slug := strings.ToLower(strings.TrimSpace(name))
	slug = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return r
		case r == ' ', r == '-', r == '_':
			return '-'
		default:
			return -1
		}
	}, slug)
	slug = strings.Trim(slug, "-")
	if len(slug) > 48 {
		slug = slug[:48]
	}
	if slug == "" {
		slug = "group"
	}
	return fmt.Sprintf("%s-%06x", slug, rand.Intn(1<<24))
}
