package groups

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/partshub/fitment/engine/domain"
)

// --- fakes ---

type fakeRepo struct {
	store     map[string]domain.Group
	listCalls int
	getCalls  int
}

func newFakeRepo() *fakeRepo { return &fakeRepo{store: make(map[string]domain.Group)} }

func (r *fakeRepo) Get(_ context.Context, id string) (domain.Group, error) {
	r.getCalls++
	g, ok := r.store[id]
	if !ok {
		return domain.Group{}, domain.ErrNotFound
	}
	return g, nil
}

func (r *fakeRepo) List(_ context.Context, f ListFilter) ([]domain.Group, error) {
	r.listCalls++
	var out []domain.Group
	for _, g := range r.store {
		if !g.Active && !f.IncludeInactive {
			continue
		}
		if f.Category != "" && g.Category != f.Category {
			continue
		}
		if f.Query != "" && !strings.Contains(strings.ToLower(g.Name), strings.ToLower(f.Query)) {
			continue
		}
		out = append(out, g)
	}
	return out, nil
}

func (r *fakeRepo) Create(_ context.Context, g domain.Group) (domain.Group, error) {
	r.store[g.ID] = g
	return g, nil
}

func (r *fakeRepo) Update(_ context.Context, g domain.Group) (domain.Group, error) {
	if _, ok := r.store[g.ID]; !ok {
		return domain.Group{}, domain.ErrNotFound
	}
	r.store[g.ID] = g
	return g, nil
}

func (r *fakeRepo) Delete(_ context.Context, id string) error {
	delete(r.store, id)
	return nil
}

func (r *fakeRepo) Stats(_ context.Context) (Stats, error) {
	st := Stats{ByCategory: make(map[string]int)}
	for _, g := range r.store {
		st.Total++
		if g.Active {
			st.Active++
		}
		st.ByCategory[string(g.Category)]++
	}
	return st, nil
}

type fakeVehicles struct{ byID map[string]domain.Vehicle }

func (v *fakeVehicles) Get(_ context.Context, id string) (domain.Vehicle, error) {
	veh, ok := v.byID[id]
	if !ok {
		return domain.Vehicle{}, domain.ErrNotFound
	}
	return veh, nil
}

func (v *fakeVehicles) Find(_ context.Context, f VehicleFilter) ([]domain.Vehicle, error) {
	var out []domain.Vehicle
	for _, veh := range v.byID {
		if len(f.Brands) > 0 {
			hit := false
			for _, b := range f.Brands {
				if strings.EqualFold(b, veh.Brand) {
					hit = true
					break
				}
			}
			if !hit {
				continue
			}
		}
		out = append(out, veh)
	}
	return out, nil
}

type fakePublisher struct{ events []Event }

func (p *fakePublisher) Publish(_ context.Context, e Event) error {
	p.events = append(p.events, e)
	return nil
}

func newTestService() (*Service, *fakeRepo, *fakeVehicles, *fakePublisher) {
	repo := newFakeRepo()
	vehicles := &fakeVehicles{byID: map[string]domain.Vehicle{
		"v1":  {ID: "v1", Brand: "toyota", Years: []int{2018}},
		"v2":  {ID: "v2", Brand: "toyota", Years: []int{2022}},
		"v50": {ID: "v50", Brand: "toyota", Years: []int{2018}},
		"v99": {ID: "v99", Brand: "honda", Years: []int{1999}},
	}}
	pub := &fakePublisher{}
	svc := NewService(repo, vehicles, nil, pub, nil, nil)
	return svc, repo, vehicles, pub
}

// --- tests ---

func TestService_CreateAssignsIdentity(t *testing.T) {
	svc, repo, _, pub := newTestService()

	g, err := svc.Create(context.Background(), domain.Group{
		Name:     "Toyota 2015-2020",
		Criteria: domain.Criteria{Brands: []string{"toyota"}, MinYear: 2015, MaxYear: 2020},
		Active:   true,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if g.ID == "" {
		t.Error("server must assign an id")
	}
	if g.ApplicabilityID == "" {
		t.Error("applicability id must be auto-generated when absent")
	}
	if g.Category != domain.CategoryGeneral {
		t.Errorf("empty category should default to general, got %s", g.Category)
	}
	if _, ok := repo.store[g.ID]; !ok {
		t.Error("group not persisted")
	}
	if len(pub.events) != 1 || pub.events[0].Type != EventGroupCreated {
		t.Errorf("expected a single %s event, got %v", EventGroupCreated, pub.events)
	}
}

func TestService_CreateRejectsInvalid(t *testing.T) {
	svc, _, _, pub := newTestService()
	ctx := context.Background()

	_, err := svc.Create(ctx, domain.Group{Name: "bad years", Criteria: domain.Criteria{MinYear: 2020, MaxYear: 2010}})
	if !errors.Is(err, domain.ErrYearRangeInverted) {
		t.Errorf("expected ErrYearRangeInverted, got %v", err)
	}

	_, err = svc.Create(ctx, domain.Group{Name: "both year forms", Criteria: domain.Criteria{MinYear: 2010, SpecificYears: []int{2012}}})
	if !errors.Is(err, domain.ErrYearConflict) {
		t.Errorf("expected ErrYearConflict, got %v", err)
	}

	_, err = svc.Create(ctx, domain.Group{Name: "vacuous"})
	if !errors.Is(err, domain.ErrVacuousGroup) {
		t.Errorf("expected ErrVacuousGroup, got %v", err)
	}

	if len(pub.events) != 0 {
		t.Errorf("failed creates must not publish events, got %v", pub.events)
	}
}

func TestService_CreateDedupesSpecificYears(t *testing.T) {
	svc, _, _, _ := newTestService()
	g, err := svc.Create(context.Background(), domain.Group{
		Name:     "discrete years",
		Criteria: domain.Criteria{SpecificYears: []int{2012, 2014, 2012}},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if len(g.Criteria.SpecificYears) != 2 {
		t.Errorf("specific years not deduplicated: %v", g.Criteria.SpecificYears)
	}
}

func TestService_ListCachesUntilWrite(t *testing.T) {
	svc, repo, _, _ := newTestService()
	ctx := context.Background()

	seed, err := svc.Create(ctx, domain.Group{Name: "seed", Criteria: domain.Criteria{Brands: []string{"toyota"}}, Active: true})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	repo.listCalls = 0
	if _, err := svc.List(ctx, ListFilter{}); err != nil {
		t.Fatalf("list: %v", err)
	}
	if _, err := svc.List(ctx, ListFilter{}); err != nil {
		t.Fatalf("list: %v", err)
	}
	if repo.listCalls != 1 {
		t.Errorf("second identical list should hit the cache, repo saw %d calls", repo.listCalls)
	}

	// Any mutation invalidates the read caches.
	if _, err := svc.SetActive(ctx, seed.ID, false); err != nil {
		t.Fatalf("set active: %v", err)
	}
	if _, err := svc.List(ctx, ListFilter{}); err != nil {
		t.Fatalf("list: %v", err)
	}
	if repo.listCalls != 2 {
		t.Errorf("list after write must refetch, repo saw %d calls", repo.listCalls)
	}
}

func TestService_UpdateIsPartial(t *testing.T) {
	svc, _, _, _ := newTestService()
	ctx := context.Background()

	g, err := svc.Create(ctx, domain.Group{
		Name:     "before",
		Criteria: domain.Criteria{Brands: []string{"toyota"}},
		Tags:     []string{"oem"},
		Active:   true,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	name := "after"
	updated, err := svc.Update(ctx, g.ID, UpdateInput{Name: &name})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Name != "after" {
		t.Errorf("name not updated: %q", updated.Name)
	}
	if len(updated.Tags) != 1 || updated.Tags[0] != "oem" {
		t.Errorf("unsupplied fields must not change, tags=%v", updated.Tags)
	}
	if len(updated.Criteria.Brands) != 1 {
		t.Errorf("unsupplied criteria must not change: %+v", updated.Criteria)
	}
}

func TestService_UpdateUnknownGroup(t *testing.T) {
	svc, _, _, _ := newTestService()
	name := "x"
	_, err := svc.Update(context.Background(), "missing", UpdateInput{Name: &name})
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestService_DeleteIsHard(t *testing.T) {
	svc, repo, _, pub := newTestService()
	ctx := context.Background()

	g, err := svc.Create(ctx, domain.Group{Name: "doomed", Criteria: domain.Criteria{Brands: []string{"toyota"}}})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := svc.Delete(ctx, g.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, ok := repo.store[g.ID]; ok {
		t.Error("delete must remove the record")
	}
	last := pub.events[len(pub.events)-1]
	if last.Type != EventGroupDeleted {
		t.Errorf("expected %s event, got %s", EventGroupDeleted, last.Type)
	}
	if _, err := svc.Get(ctx, g.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestService_CompatibleVehicles(t *testing.T) {
	svc, _, _, _ := newTestService()
	ctx := context.Background()

	g, err := svc.Create(ctx, domain.Group{
		Name:             "toyota 2015-2020",
		Criteria:         domain.Criteria{Brands: []string{"toyota"}, MinYear: 2015, MaxYear: 2020},
		IncludedVehicles: []string{"v99"},
		ExcludedVehicles: []string{"v50"},
		Active:           true,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	vs, err := svc.CompatibleVehicles(ctx, g.ID, "", 10)
	if err != nil {
		t.Fatalf("compatible vehicles: %v", err)
	}
	got := make(map[string]bool, len(vs))
	for _, v := range vs {
		got[v.ID] = true
	}
	if !got["v1"] {
		t.Error("v1 matches criteria and must be listed")
	}
	if got["v2"] {
		t.Error("v2 is out of the year range")
	}
	if got["v50"] {
		t.Error("v50 is explicitly excluded")
	}
	if !got["v99"] {
		t.Error("v99 is explicitly included despite failing criteria")
	}
}

func TestService_StatsCached(t *testing.T) {
	svc, _, _, _ := newTestService()
	ctx := context.Background()

	if _, err := svc.Create(ctx, domain.Group{Name: "a", Criteria: domain.Criteria{Brands: []string{"toyota"}}, Category: domain.CategoryParts, Active: true}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.Create(ctx, domain.Group{Name: "b", Criteria: domain.Criteria{Brands: []string{"honda"}}, Category: domain.CategoryParts}); err != nil {
		t.Fatalf("create: %v", err)
	}

	st, err := svc.Stats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if st.Total != 2 || st.Active != 1 || st.ByCategory["parts"] != 2 {
		t.Errorf("unexpected stats %+v", st)
	}
}
