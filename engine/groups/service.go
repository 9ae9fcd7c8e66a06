// Package groups implements the applicability-group service: validated CRUD
// over a group repository, memoized read queries, compatible-vehicle
// resolution, and domain-event publication. Every mutation routes through
// this service so cache invalidation cannot be forgotten at call sites.
package groups

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"strings"
	"time"

	"github.com/partshub/fitment/engine/cache"
	"github.com/partshub/fitment/engine/domain"
	"github.com/partshub/fitment/engine/fitment"
	"github.com/partshub/fitment/pkg/fn"
)

const defaultListLimit = 50

// Service owns the group read and write paths.
type Service struct {
	repo     GroupRepository
	vehicles VehicleSource
	search   Searcher // optional
	events   EventPublisher
	engine   *fitment.Engine
	log      *slog.Logger

	listCache    *cache.Cache[[]domain.Group]
	groupCache   *cache.Cache[domain.Group]
	vehicleCache *cache.Cache[[]domain.Vehicle]
	statsCache   *cache.Cache[Stats]
}

// NewService wires the service. search may be nil, in which case free-text
// compatible-vehicle queries degrade to criteria-only listings.
func NewService(repo GroupRepository, vehicles VehicleSource, search Searcher, events EventPublisher, engine *fitment.Engine, log *slog.Logger) *Service {
	if engine == nil {
		engine = fitment.New(fitment.Options{})
	}
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		repo:         repo,
		vehicles:     vehicles,
		search:       search,
		events:       events,
		engine:       engine,
		log:          log,
		listCache:    cache.New[[]domain.Group](cache.DefaultTTL),
		groupCache:   cache.New[domain.Group](cache.DefaultTTL),
		vehicleCache: cache.New[[]domain.Vehicle](cache.VolatileTTL),
		statsCache:   cache.New[Stats](cache.DefaultTTL),
	}
}

// Engine exposes the criteria engine for validate/classify endpoints.
func (s *Service) Engine() *fitment.Engine { return s.engine }

// --- Read path (memoized) ---

// Get returns one group by id.
func (s *Service) Get(ctx context.Context, id string) (domain.Group, error) {
	key := cache.KeyFor("groups:get", map[string]any{"id": id})
	if g, ok := s.groupCache.Get(key); ok {
		return g, nil
	}
	g, err := s.repo.Get(ctx, id)
	if err != nil {
		return domain.Group{}, err
	}
	s.groupCache.Set(key, g)
	return g, nil
}

// List returns groups matching the filter. Inactive groups are excluded
// unless the filter asks for them.
func (s *Service) List(ctx context.Context, f ListFilter) ([]domain.Group, error) {
	if f.Limit <= 0 {
		f.Limit = defaultListLimit
	}
	key := cache.KeyFor("groups:list", map[string]any{
		"category": string(f.Category),
		"tag":      f.Tag,
		"query":    strings.ToLower(f.Query),
		"inactive": f.IncludeInactive,
		"offset":   f.Offset,
		"limit":    f.Limit,
	})
	if gs, ok := s.listCache.Get(key); ok {
		return gs, nil
	}
	gs, err := s.repo.List(ctx, f)
	if err != nil {
		return nil, err
	}
	s.listCache.Set(key, gs)
	return gs, nil
}

// Stats returns aggregate counts over all groups.
func (s *Service) Stats(ctx context.Context) (Stats, error) {
	key := cache.KeyFor("groups:stats", nil)
	if st, ok := s.statsCache.Get(key); ok {
		return st, nil
	}
	st, err := s.repo.Stats(ctx)
	if err != nil {
		return Stats{}, err
	}
	s.statsCache.Set(key, st)
	return st, nil
}

// CompatibleVehicles resolves the vehicles a group applies to. An optional
// free-text query narrows candidates through the search index; results flow
// through the criteria engine either way, so inclusion/exclusion semantics
// always hold.
func (s *Service) CompatibleVehicles(ctx context.Context, groupID, query string, limit int) ([]domain.Vehicle, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	key := cache.KeyFor("groups:vehicles", map[string]any{
		"group": groupID,
		"query": strings.ToLower(query),
		"limit": limit,
	})
	if vs, ok := s.vehicleCache.Get(key); ok {
		return vs, nil
	}

	g, err := s.Get(ctx, groupID)
	if err != nil {
		return nil, err
	}

	candidates, err := s.candidates(ctx, g, query, limit)
	if err != nil {
		return nil, err
	}

	matched := fn.Filter(candidates, func(v domain.Vehicle) bool {
		return s.engine.IsCompatible(v, g)
	})

	// Explicitly included vehicles belong in the listing even when the
	// candidate set missed them (query mismatch, brand narrowing).
	seen := make(map[string]bool, len(matched))
	for _, v := range matched {
		seen[v.ID] = true
	}
	for _, id := range g.IncludedVehicles {
		if seen[id] || query != "" {
			continue
		}
		v, err := s.vehicles.Get(ctx, id)
		if err != nil {
			s.log.Warn("included vehicle not in catalog", "group", groupID, "vehicle", id)
			continue
		}
		if s.engine.IsCompatible(v, g) {
			matched = append(matched, v)
		}
	}

	if len(matched) > limit {
		matched = matched[:limit]
	}
	s.vehicleCache.Set(key, matched)
	return matched, nil
}

// candidates fetches the raw vehicle set before compatibility filtering.
func (s *Service) candidates(ctx context.Context, g domain.Group, query string, limit int) ([]domain.Vehicle, error) {
	// Query 20% extra so post-filtering still fills the page.
	fetch := limit + limit/5 + 1
	if query != "" && s.search != nil {
		return s.search.Search(ctx, query, fetch)
	}
	return s.vehicles.Find(ctx, VehicleFilter{Brands: g.Criteria.Brands, Limit: fetch})
}

// --- Write path ---

// Create validates and persists a new group. The id is assigned here; an
// absent applicability identifier is derived from the name.
func (s *Service) Create(ctx context.Context, g domain.Group) (domain.Group, error) {
	if g.Category == "" {
		g.Category = domain.CategoryGeneral
	}
	if err := s.validate(g); err != nil {
		return domain.Group{}, err
	}
	g.ID = newGroupID()
	if g.ApplicabilityID == "" {
		g.ApplicabilityID = domain.NewApplicabilityID(g.Name)
	}
	g.Criteria.SpecificYears = fn.Unique(g.Criteria.SpecificYears)
	now := time.Now().UTC()
	g.CreatedAt, g.UpdatedAt = now, now

	created, err := s.repo.Create(ctx, g)
	if err != nil {
		return domain.Group{}, err
	}
	s.afterWrite(ctx, Event{Type: EventGroupCreated, GroupID: created.ID, Name: created.Name})
	return created, nil
}

// UpdateInput carries a partial update; nil fields are left unchanged.
type UpdateInput struct {
	Name             *string
	Criteria         *domain.Criteria
	IncludedVehicles *[]string
	ExcludedVehicles *[]string
	Category         *domain.Category
	Tags             *[]string
	Active           *bool
}

// Update applies a partial update to an existing group.
func (s *Service) Update(ctx context.Context, id string, in UpdateInput) (domain.Group, error) {
	g, err := s.repo.Get(ctx, id)
	if err != nil {
		return domain.Group{}, err
	}

	if in.Name != nil {
		g.Name = *in.Name
	}
	if in.Criteria != nil {
		g.Criteria = *in.Criteria
	}
	if in.IncludedVehicles != nil {
		g.IncludedVehicles = *in.IncludedVehicles
	}
	if in.ExcludedVehicles != nil {
		g.ExcludedVehicles = *in.ExcludedVehicles
	}
	if in.Category != nil {
		g.Category = *in.Category
	}
	if in.Tags != nil {
		g.Tags = *in.Tags
	}
	if in.Active != nil {
		g.Active = *in.Active
	}

	if err := s.validate(g); err != nil {
		return domain.Group{}, err
	}
	g.Criteria.SpecificYears = fn.Unique(g.Criteria.SpecificYears)
	g.UpdatedAt = time.Now().UTC()

	updated, err := s.repo.Update(ctx, g)
	if err != nil {
		return domain.Group{}, err
	}
	s.afterWrite(ctx, Event{Type: EventGroupUpdated, GroupID: updated.ID, Name: updated.Name})
	return updated, nil
}

// SetActive toggles the lifecycle flag without touching anything else.
func (s *Service) SetActive(ctx context.Context, id string, active bool) (domain.Group, error) {
	g, err := s.Update(ctx, id, UpdateInput{Active: &active})
	if err != nil {
		return domain.Group{}, err
	}
	s.publish(ctx, Event{Type: EventGroupActivated, GroupID: g.ID, Name: g.Name})
	return g, nil
}

// Delete removes a group permanently. Irreversible; references from other
// entities are the caller's concern to warn about.
func (s *Service) Delete(ctx context.Context, id string) error {
	g, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.afterWrite(ctx, Event{Type: EventGroupDeleted, GroupID: g.ID, Name: g.Name})
	return nil
}

// validate runs the structural gate and the criteria hard checks. Soft
// warnings do not block a save; the validate endpoint surfaces them.
func (s *Service) validate(g domain.Group) error {
	if err := domain.ValidateGroup(g); err != nil {
		return err
	}
	if res := s.engine.ValidateCriteria(g.Criteria); !res.Valid {
		wrapped := domain.ErrYearRangeInverted
		if g.Criteria.HasSpecificYears() && g.Criteria.HasYearRange() {
			wrapped = domain.ErrYearConflict
		}
		return domain.NewValidationError("criteria", strings.Join(res.Warnings, "; "), wrapped)
	}
	return nil
}

// afterWrite is the single choke point for post-mutation bookkeeping.
func (s *Service) afterWrite(ctx context.Context, e Event) {
	s.listCache.InvalidateAll()
	s.groupCache.InvalidateAll()
	s.vehicleCache.InvalidateAll()
	s.statsCache.InvalidateAll()
	s.publish(ctx, e)
}

func (s *Service) publish(ctx context.Context, e Event) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(ctx, e); err != nil {
		// Events are advisory; a failed publish never fails the mutation.
		s.log.Warn("event publish failed", "type", e.Type, "group", e.GroupID, "err", err)
	}
}

func newGroupID() string {
	return fmt.Sprintf("grp-%08x%04x", time.Now().Unix(), rand.Intn(1<<16))
}
