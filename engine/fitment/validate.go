package fitment

import (
	"fmt"
	"sort"
	"strings"

	"github.com/partshub/fitment/engine/domain"
	"github.com/partshub/fitment/pkg/fn"
)

// ValidationResult is the structured outcome of criteria validation.
// Warnings accompany both hard errors (Valid=false) and soft findings;
// Suggestions are advisory only.
type ValidationResult struct {
	Valid       bool     `json:"valid"`
	Warnings    []string `json:"warnings,omitempty"`
	Suggestions []string `json:"suggestions,omitempty"`
}

// ValidateCriteria checks a criteria object. It never returns an error:
// hard violations short-circuit with Valid=false, everything else degrades
// to warnings and suggestions.
func (e *Engine) ValidateCriteria(c domain.Criteria) ValidationResult {
	// Hard errors, in precedence order.
	if c.HasSpecificYears() && c.HasYearRange() {
		return ValidationResult{
			Valid:    false,
			Warnings: []string{"year range and specific years are mutually exclusive; choose one"},
		}
	}
	if c.MinYear != 0 && c.MaxYear != 0 && c.MinYear > c.MaxYear {
		return ValidationResult{
			Valid:    false,
			Warnings: []string{fmt.Sprintf("min year %d is after max year %d", c.MinYear, c.MaxYear)},
		}
	}

	res := ValidationResult{Valid: true}
	maxFuture := e.now().Year() + e.opts.FutureSlack

	if c.MinYear != 0 && c.MaxYear != 0 && c.MaxYear-c.MinYear > e.opts.WideRangeYears {
		res.Warnings = append(res.Warnings,
			fmt.Sprintf("year range %d-%d spans more than %d years", c.MinYear, c.MaxYear, e.opts.WideRangeYears))
		res.Suggestions = append(res.Suggestions,
			"split the range into multiple groups with narrower year spans")
	}
	if c.MaxYear > maxFuture {
		res.Warnings = append(res.Warnings,
			fmt.Sprintf("max year %d is beyond %d", c.MaxYear, maxFuture))
	}

	if future := filterYears(c.SpecificYears, func(y int) bool { return y > maxFuture }); len(future) > 0 {
		res.Warnings = append(res.Warnings,
			fmt.Sprintf("years beyond %d: %s", maxFuture, joinYears(future)))
	}
	if old := filterYears(c.SpecificYears, func(y int) bool { return y < e.opts.MinSaneYear }); len(old) > 0 {
		res.Warnings = append(res.Warnings,
			fmt.Sprintf("years before %d: %s", e.opts.MinSaneYear, joinYears(old)))
	}

	unique := fn.Unique(c.SpecificYears)
	if len(unique) < len(c.SpecificYears) {
		res.Warnings = append(res.Warnings, "specific years contain duplicates")
	}
	if len(c.SpecificYears) > 5 && longestRun(unique) >= 4 {
		res.Suggestions = append(res.Suggestions,
			"consecutive years detected; use a min/max year range instead of listing each year")
	}

	return res
}

func filterYears(years []int, pred func(int) bool) []int {
	return fn.Filter(fn.Unique(years), pred)
}

func joinYears(years []int) string {
	sorted := append([]int(nil), years...)
	sort.Ints(sorted)
	parts := fn.Map(sorted, func(y int) string { return fmt.Sprintf("%d", y) })
	return strings.Join(parts, ", ")
}

// longestRun returns the length of the longest consecutive run of years.
func longestRun(years []int) int {
	if len(years) == 0 {
		return 0
	}
	sorted := append([]int(nil), years...)
	sort.Ints(sorted)
	best, run := 1, 1
	for i := 1; i < len(sorted); i++ {
		if sorted[i] == sorted[i-1]+1 {
			run++
		} else {
			run = 1
		}
		if run > best {
			best = run
		}
	}
	return best
}
