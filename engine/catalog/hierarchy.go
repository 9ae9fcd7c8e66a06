package catalog

import (
	"context"
	"fmt"
	"strings"

	"github.com/partshub/fitment/engine/domain"
)

// BrandStats summarises one brand of the taxonomy.
type BrandStats struct {
	Name     string `json:"name"`
	Families int64  `json:"families"`
	Vehicles int64  `json:"vehicles"`
}

// SaveVehicle upserts a vehicle and its Brand -> Family -> Model chain in a
// single transaction. An empty vehicle id is derived from the taxonomy path.
func (s *Store) SaveVehicle(ctx context.Context, v domain.Vehicle) (domain.Vehicle, error) {
	if v.Brand == "" || v.Model == "" {
		return domain.Vehicle{}, fmt.Errorf("vehicle needs at least brand and model: %+v", v)
	}

	brandID := slug(v.Brand)
	family := v.Family
	if family == "" {
		family = v.Model
	}
	familyID := brandID + "-" + slug(family)
	modelID := familyID + "-" + slug(v.Model)
	if v.ID == "" {
		v.ID = modelID
		if v.Line != "" {
			v.ID += "-" + slug(v.Line)
		}
	}

	sess := s.opener.OpenSession(ctx)
	defer sess.Close(ctx)

	_, err := sess.ExecuteWrite(ctx, func(tx CypherRunner) (any, error) {
		cypher := `MERGE (b:Brand {id: $id}) SET b.name = $name`
		if _, err := tx.Run(ctx, cypher, map[string]any{"id": brandID, "name": v.Brand}); err != nil {
			return nil, err
		}

		cypher = `MERGE (f:Family {id: $id}) SET f.name = $name, f.brand_id = $brandID
		          WITH f
		          MATCH (b:Brand {id: $brandID})
		          MERGE (b)-[:HAS_FAMILY]->(f)`
		if _, err := tx.Run(ctx, cypher, map[string]any{"id": familyID, "name": family, "brandID": brandID}); err != nil {
			return nil, err
		}

		cypher = `MERGE (m:Model {id: $id}) SET m.name = $name, m.family_id = $familyID
		          WITH m
		          MATCH (f:Family {id: $familyID})
		          MERGE (f)-[:HAS_MODEL]->(m)`
		if _, err := tx.Run(ctx, cypher, map[string]any{"id": modelID, "name": v.Model, "familyID": familyID}); err != nil {
			return nil, err
		}

		cypher = `MERGE (n:Vehicle {id: $id}) SET n += $props
		          WITH n
		          MATCH (m:Model {id: $modelID})
		          MERGE (m)-[:HAS_VEHICLE]->(n)`
		if _, err := tx.Run(ctx, cypher, map[string]any{
			"id": v.ID, "props": vehicleToMap(v), "modelID": modelID,
		}); err != nil {
			return nil, err
		}
		return nil, nil
	})
	if err != nil {
		return domain.Vehicle{}, err
	}
	return v, nil
}

// AllVehicles streams every vehicle node, paged by id. Used by the indexer
// for backfills.
func (s *Store) AllVehicles(ctx context.Context, afterID string, limit int) ([]domain.Vehicle, error) {
	if limit <= 0 {
		limit = defaultPage
	}
	sess := s.opener.OpenSession(ctx)
	defer sess.Close(ctx)

	cypher := `MATCH (n:Vehicle) WHERE n.id > $after
	           RETURN n ORDER BY n.id LIMIT $limit`
	result, err := sess.Run(ctx, cypher, map[string]any{"after": afterID, "limit": int64(limit)})
	if err != nil {
		return nil, err
	}
	return collectVehicles(ctx, result)
}

// Brands returns per-brand taxonomy counts, largest first.
func (s *Store) Brands(ctx context.Context) ([]BrandStats, error) {
	sess := s.opener.OpenSession(ctx)
	defer sess.Close(ctx)

	cypher := `MATCH (b:Brand)
		OPTIONAL MATCH (b)-[:HAS_FAMILY]->(f:Family)
		OPTIONAL MATCH (f)-[:HAS_MODEL]->(:Model)-[:HAS_VEHICLE]->(v:Vehicle)
		RETURN b.name AS name, count(DISTINCT f) AS families, count(DISTINCT v) AS vehicles
		ORDER BY vehicles DESC, name`
	result, err := sess.Run(ctx, cypher, nil)
	if err != nil {
		return nil, err
	}

	var stats []BrandStats
	for result.Next(ctx) {
		rec := result.Record()
		name, _ := rec.Get("name")
		families, _ := rec.Get("families")
		vehicles, _ := rec.Get("vehicles")
		st := BrandStats{}
		if n, ok := name.(string); ok {
			st.Name = n
		}
		st.Families = int64(asInt(families))
		st.Vehicles = int64(asInt(vehicles))
		stats = append(stats, st)
	}
	return stats, nil
}

// NodeCounts returns node counts grouped by label, for the health surface.
func (s *Store) NodeCounts(ctx context.Context) (map[string]int64, error) {
	sess := s.opener.OpenSession(ctx)
	defer sess.Close(ctx)

	cypher := `MATCH (n) RETURN labels(n)[0] AS label, count(*) AS count`
	result, err := sess.Run(ctx, cypher, nil)
	if err != nil {
		return nil, err
	}
	counts := make(map[string]int64)
	for result.Next(ctx) {
		rec := result.Record()
		label, _ := rec.Get("label")
		count, _ := rec.Get("count")
		if l, ok := label.(string); ok {
			counts[l] = int64(asInt(count))
		}
	}
	return counts, nil
}

// slug converts a name to a lowercase dash-separated identifier.
func slug(name string) string {
	b := make([]byte, 0, len(name))
	for i := range name {
		c := name[i]
		switch {
		case c >= 'A' && c <= 'Z':
			b = append(b, c+32)
		case c >= 'a' && c <= 'z', c >= '0' && c <= '9':
			b = append(b, c)
		case c == ' ' || c == '/' || c == '_' || c == '-' || c == '.':
			if len(b) > 0 && b[len(b)-1] != '-' {
				b = append(b, '-')
			}
		}
	}
	return strings.TrimSuffix(string(b), "-")
}
