// Package catalog persists applicability groups and the vehicle taxonomy in
// Neo4j. Vehicles hang off a Brand -> Family -> Model hierarchy so brand and
// family listings stay cheap; groups are flat nodes queried by property.
package catalog

import (
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j/dbtype"

	"github.com/partshub/fitment/engine/domain"
)

func groupToMap(g domain.Group) map[string]any {
	return map[string]any{
		"id":               g.ID,
		"name":             g.Name,
		"applicability_id": g.ApplicabilityID,
		"category":         string(g.Category),
		"tags":             toAnySlice(g.Tags),
		"active":           g.Active,
		"included":         toAnySlice(g.IncludedVehicles),
		"excluded":         toAnySlice(g.ExcludedVehicles),
		"brands":           toAnySlice(g.Criteria.Brands),
		"families":         toAnySlice(g.Criteria.Families),
		"models":           toAnySlice(g.Criteria.Models),
		"lines":            toAnySlice(g.Criteria.Lines),
		"transmissions":    toAnySlice(g.Criteria.Transmissions),
		"fuels":            toAnySlice(g.Criteria.Fuels),
		"engine_types":     toAnySlice(g.Criteria.EngineTypes),
		"min_year":         int64(g.Criteria.MinYear),
		"max_year":         int64(g.Criteria.MaxYear),
		"specific_years":   toAnyInts(g.Criteria.SpecificYears),
		"created_at":       g.CreatedAt,
		"updated_at":       g.UpdatedAt,
	}
}

func groupFromRecord(rec *neo4j.Record) (domain.Group, error) {
	node, _, err := neo4j.GetRecordValue[dbtype.Node](rec, "n")
	if err != nil {
		return domain.Group{}, err
	}
	return groupFromProps(node.Props), nil
}

func groupFromProps(props map[string]any) domain.Group {
	return domain.Group{
		ID:               strProp(props, "id"),
		Name:             strProp(props, "name"),
		ApplicabilityID:  strProp(props, "applicability_id"),
		Category:         domain.Category(strProp(props, "category")),
		Tags:             strSliceProp(props, "tags"),
		Active:           boolProp(props, "active"),
		IncludedVehicles: strSliceProp(props, "included"),
		ExcludedVehicles: strSliceProp(props, "excluded"),
		Criteria: domain.Criteria{
			Brands:        strSliceProp(props, "brands"),
			Families:      strSliceProp(props, "families"),
			Models:        strSliceProp(props, "models"),
			Lines:         strSliceProp(props, "lines"),
			Transmissions: strSliceProp(props, "transmissions"),
			Fuels:         strSliceProp(props, "fuels"),
			EngineTypes:   strSliceProp(props, "engine_types"),
			MinYear:       intProp(props, "min_year"),
			MaxYear:       intProp(props, "max_year"),
			SpecificYears: intSliceProp(props, "specific_years"),
		},
		CreatedAt: timeProp(props, "created_at"),
		UpdatedAt: timeProp(props, "updated_at"),
	}
}

func vehicleToMap(v domain.Vehicle) map[string]any {
	return map[string]any{
		"id":           v.ID,
		"brand":        v.Brand,
		"family":       v.Family,
		"model":        v.Model,
		"line":         v.Line,
		"transmission": v.Transmission,
		"fuel":         v.Fuel,
		"engine_type":  v.EngineType,
		"years":        toAnyInts(v.Years),
	}
}

func vehicleFromRecord(rec *neo4j.Record) (domain.Vehicle, error) {
	node, _, err := neo4j.GetRecordValue[dbtype.Node](rec, "n")
	if err != nil {
		return domain.Vehicle{}, err
	}
	return vehicleFromProps(node.Props), nil
}

func vehicleFromProps(props map[string]any) domain.Vehicle {
	return domain.Vehicle{
		ID:           strProp(props, "id"),
		Brand:        strProp(props, "brand"),
		Family:       strProp(props, "family"),
		Model:        strProp(props, "model"),
		Line:         strProp(props, "line"),
		Transmission: strProp(props, "transmission"),
		Fuel:         strProp(props, "fuel"),
		EngineType:   strProp(props, "engine_type"),
		Years:        intSliceProp(props, "years"),
	}
}

// --- property helpers ---

func strProp(props map[string]any, key string) string {
	if s, ok := props[key].(string); ok {
		return s
	}
	return ""
}

func boolProp(props map[string]any, key string) bool {
	if b, ok := props[key].(bool); ok {
		return b
	}
	return false
}

func intProp(props map[string]any, key string) int {
	switch v := props[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return 0
}

func timeProp(props map[string]any, key string) time.Time {
	switch v := props[key].(type) {
	case time.Time:
		return v
	case string:
		t, _ := time.Parse(time.RFC3339, v)
		return t
	}
	return time.Time{}
}

// strSliceProp reads a list property; the driver hands lists back as []any.
func strSliceProp(props map[string]any, key string) []string {
	raw, ok := props[key].([]any)
	if !ok || len(raw) == 0 {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func intSliceProp(props map[string]any, key string) []int {
	raw, ok := props[key].([]any)
	if !ok || len(raw) == 0 {
		return nil
	}
	out := make([]int, 0, len(raw))
	for _, v := range raw {
		switch n := v.(type) {
		case int:
			out = append(out, n)
		case int64:
			out = append(out, int(n))
		case float64:
			out = append(out, int(n))
		}
	}
	return out
}

func toAnySlice(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}

func toAnyInts(ns []int) []any {
	out := make([]any, len(ns))
	for i, n := range ns {
		out[i] = int64(n)
	}
	return out
}
