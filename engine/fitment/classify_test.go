package fitment

import (
	"testing"

	"github.com/partshub/fitment/engine/domain"
)

func TestClassify_Levels(t *testing.T) {
	e := testEngine()
	cases := []struct {
		name string
		c    domain.Criteria
		want Level
	}{
		{"empty", domain.Criteria{}, LevelBasic},
		{"brand only", domain.Criteria{Brands: []string{"toyota"}}, LevelBasic},
		{"brand and family", domain.Criteria{Brands: []string{"toyota"}, Families: []string{"suv"}}, LevelMedium},
		{"model and year", domain.Criteria{Models: []string{"corolla"}, MinYear: 2015}, LevelMedium},
		{
			"brand family model",
			domain.Criteria{Brands: []string{"toyota"}, Families: []string{"suv"}, Models: []string{"rav4"}},
			LevelDetailed,
		},
		{
			"full technical",
			domain.Criteria{Brands: []string{"toyota"}, Transmissions: []string{"manual"}, Fuels: []string{"diesel"}, SpecificYears: []int{2018}},
			LevelDetailed,
		},
	}
	for _, tc := range cases {
		if got := e.Classify(tc.c); got != tc.want {
			t.Errorf("%s: got %s, want %s", tc.name, got, tc.want)
		}
	}
}

// Adding a populated category never lowers the classification.
func TestClassify_Monotonic(t *testing.T) {
	e := testEngine()
	rank := map[Level]int{LevelBasic: 0, LevelMedium: 1, LevelDetailed: 2}

	base := domain.Criteria{}
	additions := []func(*domain.Criteria){
		func(c *domain.Criteria) { c.Brands = []string{"toyota"} },
		func(c *domain.Criteria) { c.Families = []string{"suv"} },
		func(c *domain.Criteria) { c.Models = []string{"rav4"} },
		func(c *domain.Criteria) { c.Transmissions = []string{"automatic"} },
		func(c *domain.Criteria) { c.Fuels = []string{"gasoline"} },
		func(c *domain.Criteria) { c.MinYear = 2015 },
	}

	prev := e.Classify(base)
	for i, add := range additions {
		add(&base)
		level := e.Classify(base)
		if rank[level] < rank[prev] {
			t.Fatalf("step %d: level dropped from %s to %s", i, prev, level)
		}
		prev = level
	}
	if prev != LevelDetailed {
		t.Errorf("fully populated criteria should be detailed, got %s", prev)
	}
}

func TestClassify_CustomConfig(t *testing.T) {
	cfg := DefaultSpecificity()
	cfg.DetailedCategories = 1
	cfg.DetailedScore = 1
	e := New(Options{Specificity: cfg})
	if got := e.Classify(domain.Criteria{Brands: []string{"toyota"}}); got != LevelDetailed {
		t.Errorf("custom thresholds ignored, got %s", got)
	}
}
