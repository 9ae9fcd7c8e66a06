package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j/dbtype"

	"github.com/partshub/fitment/engine/domain"
	"github.com/partshub/fitment/engine/groups"
	"github.com/partshub/fitment/pkg/repo"
)

const defaultPage = 100

// Store implements group persistence and vehicle lookups over Neo4j. Plain
// CRUD goes through the generic repository; filtered listings and aggregates
// use hand-written cypher.
type Store struct {
	opener   SessionOpener
	groups   *repo.Neo4jRepo[domain.Group, string]
	vehicles *repo.Neo4jRepo[domain.Vehicle, string]
	log      *slog.Logger
}

var (
	_ groups.GroupRepository = (*Store)(nil)
	_ groups.VehicleSource   = (*VehicleCatalog)(nil)
)

// New creates a Store backed by the given driver.
func New(driver neo4j.DriverWithContext, log *slog.Logger) *Store {
	s := NewWithOpener(driverOpener{driver: driver})
	s.groups = repo.NewNeo4jRepo[domain.Group, string](driver, "Group", groupToMap, groupFromRecord)
	s.vehicles = repo.NewNeo4jRepo[domain.Vehicle, string](driver, "Vehicle", vehicleToMap, vehicleFromRecord)
	if log != nil {
		s.log = log
	}
	return s
}

// NewWithOpener creates a Store over a custom session opener. Only the
// cypher-backed methods work; id-keyed CRUD needs the driver constructor.
func NewWithOpener(opener SessionOpener) *Store {
	return &Store{opener: opener, log: slog.Default()}
}

// --- groups.GroupRepository ---

func (s *Store) Get(ctx context.Context, id string) (domain.Group, error) {
	g, err := s.groups.Get(ctx, id)
	return g, translateErr(err)
}

func (s *Store) List(ctx context.Context, f groups.ListFilter) ([]domain.Group, error) {
	sess := s.opener.OpenSession(ctx)
	defer sess.Close(ctx)

	limit := f.Limit
	if limit <= 0 {
		limit = defaultPage
	}

	cypher := `MATCH (n:Group)
		WHERE ($category = '' OR n.category = $category)
		  AND ($tag = '' OR $tag IN n.tags)
		  AND ($includeInactive OR n.active)
		  AND ($query = '' OR toLower(n.name) CONTAINS $query)
		RETURN n ORDER BY n.updated_at DESC SKIP $offset LIMIT $limit`
	result, err := sess.Run(ctx, cypher, map[string]any{
		"category":        string(f.Category),
		"tag":             f.Tag,
		"includeInactive": f.IncludeInactive,
		"query":           strings.ToLower(f.Query),
		"offset":          int64(f.Offset),
		"limit":           int64(limit),
	})
	if err != nil {
		return nil, err
	}

	var out []domain.Group
	for result.Next(ctx) {
		g, err := groupFromRecord(result.Record())
		if err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, nil
}

func (s *Store) Create(ctx context.Context, g domain.Group) (domain.Group, error) {
	created, err := s.groups.Create(ctx, g)
	return created, translateErr(err)
}

func (s *Store) Update(ctx context.Context, g domain.Group) (domain.Group, error) {
	updated, err := s.groups.Update(ctx, g)
	return updated, translateErr(err)
}

func (s *Store) Delete(ctx context.Context, id string) error {
	return translateErr(s.groups.Delete(ctx, id))
}

func (s *Store) Stats(ctx context.Context) (groups.Stats, error) {
	sess := s.opener.OpenSession(ctx)
	defer sess.Close(ctx)

	cypher := `MATCH (n:Group)
		RETURN n.category AS category, count(*) AS total,
		       sum(CASE WHEN n.active THEN 1 ELSE 0 END) AS active`
	result, err := sess.Run(ctx, cypher, nil)
	if err != nil {
		return groups.Stats{}, err
	}

	st := groups.Stats{ByCategory: make(map[string]int)}
	for result.Next(ctx) {
		rec := result.Record()
		cat, _ := rec.Get("category")
		total, _ := rec.Get("total")
		active, _ := rec.Get("active")
		n := asInt(total)
		st.Total += n
		st.Active += asInt(active)
		if c, ok := cat.(string); ok {
			st.ByCategory[c] += n
		}
	}
	return st, nil
}

// --- groups.VehicleSource ---

// VehicleCatalog is the vehicle-facing view of the store. The group and
// vehicle ports both expose Get, so the vehicle side lives on its own type.
type VehicleCatalog struct {
	store *Store
}

// Vehicles returns the store's VehicleSource view.
func (s *Store) Vehicles() *VehicleCatalog { return &VehicleCatalog{store: s} }

func (c *VehicleCatalog) Get(ctx context.Context, id string) (domain.Vehicle, error) {
	v, err := c.store.vehicles.Get(ctx, id)
	return v, translateErr(err)
}

func (c *VehicleCatalog) Find(ctx context.Context, f groups.VehicleFilter) ([]domain.Vehicle, error) {
	s := c.store
	sess := s.opener.OpenSession(ctx)
	defer sess.Close(ctx)

	limit := f.Limit
	if limit <= 0 {
		limit = defaultPage
	}
	brands := make([]any, 0, len(f.Brands))
	for _, b := range f.Brands {
		brands = append(brands, strings.ToLower(b))
	}

	cypher := `MATCH (n:Vehicle)
		WHERE size($brands) = 0 OR toLower(n.brand) IN $brands
		RETURN n ORDER BY n.brand, n.family, n.model LIMIT $limit`
	result, err := sess.Run(ctx, cypher, map[string]any{
		"brands": brands,
		"limit":  int64(limit),
	})
	if err != nil {
		return nil, err
	}
	return collectVehicles(ctx, result)
}

// translateErr maps repository sentinels onto domain ones at the boundary.
func translateErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, repo.ErrNotFound) {
		return fmt.Errorf("%v: %w", err, domain.ErrNotFound)
	}
	return err
}

func asInt(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	}
	return 0
}

// collectVehicles reads all vehicle nodes aliased "n" from a result set.
func collectVehicles(ctx context.Context, result ResultCursor) ([]domain.Vehicle, error) {
	var items []domain.Vehicle
	for result.Next(ctx) {
		node, _, err := neo4j.GetRecordValue[dbtype.Node](result.Record(), "n")
		if err != nil {
			return nil, err
		}
		items = append(items, vehicleFromProps(node.Props))
	}
	return items, nil
}
