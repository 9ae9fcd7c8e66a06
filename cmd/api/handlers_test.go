package main

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/partshub/fitment/engine/catalog"
	"github.com/partshub/fitment/engine/domain"
	"github.com/partshub/fitment/engine/groups"
	"github.com/partshub/fitment/pkg/metrics"
)

// --- in-memory fakes ---

type memRepo struct {
	store map[string]domain.Group
}

func (r *memRepo) Get(_ context.Context, id string) (domain.Group, error) {
	g, ok := r.store[id]
	if !ok {
		return domain.Group{}, domain.ErrNotFound
	}
	return g, nil
}

func (r *memRepo) List(_ context.Context, f groups.ListFilter) ([]domain.Group, error) {
	var out []domain.Group
	for _, g := range r.store {
		if !g.Active && !f.IncludeInactive {
			continue
		}
		if f.Category != "" && g.Category != f.Category {
			continue
		}
		out = append(out, g)
	}
	return out, nil
}

func (r *memRepo) Create(_ context.Context, g domain.Group) (domain.Group, error) {
	r.store[g.ID] = g
	return g, nil
}

func (r *memRepo) Update(_ context.Context, g domain.Group) (domain.Group, error) {
	if _, ok := r.store[g.ID]; !ok {
		return domain.Group{}, domain.ErrNotFound
	}
	r.store[g.ID] = g
	return g, nil
}

func (r *memRepo) Delete(_ context.Context, id string) error {
	delete(r.store, id)
	return nil
}

func (r *memRepo) Stats(_ context.Context) (groups.Stats, error) {
	st := groups.Stats{ByCategory: make(map[string]int)}
	for _, g := range r.store {
		st.Total++
		if g.Active {
			st.Active++
		}
		st.ByCategory[string(g.Category)]++
	}
	return st, nil
}

type memVehicles struct {
	byID map[string]domain.Vehicle
}

func (v *memVehicles) Get(_ context.Context, id string) (domain.Vehicle, error) {
	veh, ok := v.byID[id]
	if !ok {
		return domain.Vehicle{}, domain.ErrNotFound
	}
	return veh, nil
}

func (v *memVehicles) Find(_ context.Context, f groups.VehicleFilter) ([]domain.Vehicle, error) {
	var out []domain.Vehicle
	for _, veh := range v.byID {
		out = append(out, veh)
	}
	return out, nil
}

type memPublisher struct{ events []groups.Event }

func (p *memPublisher) Publish(_ context.Context, e groups.Event) error {
	p.events = append(p.events, e)
	return nil
}

type memSearcher struct{ vehicles []domain.Vehicle }

func (s *memSearcher) Search(_ context.Context, _ string, _ int) ([]domain.Vehicle, error) {
	return s.vehicles, nil
}

type memCatalog struct{}

func (memCatalog) Brands(context.Context) ([]catalog.BrandStats, error) {
	return []catalog.BrandStats{{Name: "Toyota", Families: 3, Vehicles: 12}}, nil
}

func (memCatalog) NodeCounts(context.Context) (map[string]int64, error) {
	return map[string]int64{"Group": 1}, nil
}

func newTestServer() (*server, *memRepo, *memPublisher) {
	repo := &memRepo{store: make(map[string]domain.Group)}
	vehicles := &memVehicles{byID: map[string]domain.Vehicle{
		"v1": {ID: "v1", Brand: "toyota", Years: []int{2018}},
	}}
	pub := &memPublisher{}
	log := slog.New(slog.NewTextHandler(bytes.NewBuffer(nil), nil))
	svc := groups.NewService(repo, vehicles, nil, pub, nil, log)
	return newServer(svc, &memSearcher{vehicles: []domain.Vehicle{{ID: "v1"}}}, memCatalog{}, metrics.New(), log), repo, pub
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rd *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		rd = bytes.NewReader(b)
	} else {
		rd = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, rd)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

// --- tests ---

func TestCreateAndGetGroup(t *testing.T) {
	s, _, pub := newTestServer()
	mux := s.routes()

	w := doJSON(t, mux, "POST", "/api/groups", domain.Group{
		Name:     "Hilux brakes",
		Criteria: domain.Criteria{Brands: []string{"toyota"}, MinYear: 2016, MaxYear: 2024},
		Active:   true,
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create status %d: %s", w.Code, w.Body.String())
	}
	var created domain.Group
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if created.ID == "" || created.ApplicabilityID == "" {
		t.Fatalf("identity not assigned: %+v", created)
	}
	if len(pub.events) != 1 {
		t.Errorf("expected one event, got %v", pub.events)
	}

	w = doJSON(t, mux, "GET", "/api/groups/"+created.ID, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get status %d", w.Code)
	}
}

func TestCreateGroup_ValidationFailures(t *testing.T) {
	s, _, _ := newTestServer()
	mux := s.routes()

	tests := []struct {
		name  string
		group domain.Group
	}{
		{"vacuous", domain.Group{Name: "nothing"}},
		{"inverted range", domain.Group{Name: "x", Criteria: domain.Criteria{MinYear: 2020, MaxYear: 2010}}},
		{"year conflict", domain.Group{Name: "x", Criteria: domain.Criteria{MinYear: 2010, SpecificYears: []int{2012}}}},
		{"bad category", domain.Group{Name: "x", Category: "nope", Criteria: domain.Criteria{Brands: []string{"toyota"}}}},
	}
	for _, tt := range tests {
		w := doJSON(t, mux, "POST", "/api/groups", tt.group)
		if w.Code != http.StatusBadRequest {
			t.Errorf("%s: status %d, want 400", tt.name, w.Code)
		}
	}
}

func TestGetGroup_NotFound(t *testing.T) {
	s, _, _ := newTestServer()
	w := doJSON(t, s.routes(), "GET", "/api/groups/missing", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("status %d, want 404", w.Code)
	}
}

func TestUpdateGroup_Partial(t *testing.T) {
	s, repo, _ := newTestServer()
	mux := s.routes()

	w := doJSON(t, mux, "POST", "/api/groups", domain.Group{
		Name:     "before",
		Criteria: domain.Criteria{Brands: []string{"toyota"}},
		Tags:     []string{"oem"},
	})
	var created domain.Group
	json.Unmarshal(w.Body.Bytes(), &created)

	w = doJSON(t, mux, "PUT", "/api/groups/"+created.ID, map[string]any{"name": "after"})
	if w.Code != http.StatusOK {
		t.Fatalf("update status %d: %s", w.Code, w.Body.String())
	}
	got := repo.store[created.ID]
	if got.Name != "after" {
		t.Errorf("name not updated: %q", got.Name)
	}
	if len(got.Tags) != 1 {
		t.Errorf("tags must survive a partial update: %v", got.Tags)
	}
}

func TestDeleteGroup(t *testing.T) {
	s, repo, _ := newTestServer()
	mux := s.routes()

	w := doJSON(t, mux, "POST", "/api/groups", domain.Group{
		Name: "doomed", Criteria: domain.Criteria{Brands: []string{"toyota"}},
	})
	var created domain.Group
	json.Unmarshal(w.Body.Bytes(), &created)

	w = doJSON(t, mux, "DELETE", "/api/groups/"+created.ID, nil)
	if w.Code != http.StatusNoContent {
		t.Fatalf("delete status %d", w.Code)
	}
	if _, ok := repo.store[created.ID]; ok {
		t.Error("group still present after delete")
	}
}

func TestSetActive(t *testing.T) {
	s, repo, _ := newTestServer()
	mux := s.routes()

	w := doJSON(t, mux, "POST", "/api/groups", domain.Group{
		Name: "toggle", Criteria: domain.Criteria{Brands: []string{"toyota"}}, Active: true,
	})
	var created domain.Group
	json.Unmarshal(w.Body.Bytes(), &created)

	w = doJSON(t, mux, "PUT", "/api/groups/"+created.ID+"/active", map[string]any{"active": false})
	if w.Code != http.StatusOK {
		t.Fatalf("status %d: %s", w.Code, w.Body.String())
	}
	if repo.store[created.ID].Active {
		t.Error("group still active")
	}
}

func TestValidateCriteriaEndpoint(t *testing.T) {
	s, _, _ := newTestServer()
	mux := s.routes()

	w := doJSON(t, mux, "POST", "/api/criteria/validate", domain.Criteria{
		MinYear: 2010, SpecificYears: []int{2012},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status %d", w.Code)
	}
	var res struct {
		Valid    bool     `json:"valid"`
		Warnings []string `json:"warnings"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if res.Valid || len(res.Warnings) == 0 {
		t.Fatalf("conflicting year forms must be invalid: %+v", res)
	}
}

func TestClassifyCriteriaEndpoint(t *testing.T) {
	s, _, _ := newTestServer()
	mux := s.routes()

	w := doJSON(t, mux, "POST", "/api/criteria/classify", domain.Criteria{
		Brands: []string{"toyota"}, Models: []string{"hilux"}, MinYear: 2016, MaxYear: 2020,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "level") {
		t.Fatalf("missing level: %s", w.Body.String())
	}
}

func TestStatsEndpoint(t *testing.T) {
	s, _, _ := newTestServer()
	mux := s.routes()

	doJSON(t, mux, "POST", "/api/groups", domain.Group{
		Name: "a", Criteria: domain.Criteria{Brands: []string{"toyota"}}, Active: true,
	})
	w := doJSON(t, mux, "GET", "/api/stats", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status %d", w.Code)
	}
	var st groups.Stats
	if err := json.Unmarshal(w.Body.Bytes(), &st); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if st.Total != 1 || st.Active != 1 {
		t.Fatalf("wrong stats: %+v", st)
	}
}

func TestBrandsEndpoint(t *testing.T) {
	s, _, _ := newTestServer()
	w := doJSON(t, s.routes(), "GET", "/api/brands", nil)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "Toyota") {
		t.Fatalf("status %d body %s", w.Code, w.Body.String())
	}
}

func TestVehicleSearchEndpoint(t *testing.T) {
	s, _, _ := newTestServer()
	mux := s.routes()

	w := doJSON(t, mux, "GET", "/api/vehicles/search?q=diesel+pickup", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status %d", w.Code)
	}

	w = doJSON(t, mux, "GET", "/api/vehicles/search", nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("missing q should 400, got %d", w.Code)
	}
}

func TestVehicleSearch_Disabled(t *testing.T) {
	s, _, _ := newTestServer()
	s.search = nil
	w := doJSON(t, s.routes(), "GET", "/api/vehicles/search?q=x", nil)
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status %d, want 503", w.Code)
	}
}

func TestHealthEndpoint(t *testing.T) {
	s, _, _ := newTestServer()
	w := doJSON(t, s.routes(), "GET", "/api/health", nil)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "ok") {
		t.Fatalf("status %d body %s", w.Code, w.Body.String())
	}
}

func TestMetricsEndpoint(t *testing.T) {
	s, _, _ := newTestServer()
	s.reg.Counter("test_total", "test counter").Inc()
	w := doJSON(t, s.routes(), "GET", "/metrics", nil)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "test_total") {
		t.Fatalf("status %d body %s", w.Code, w.Body.String())
	}
}
