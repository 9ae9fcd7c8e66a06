package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/partshub/fitment/engine/catalog"
	"github.com/partshub/fitment/engine/domain"
	"github.com/partshub/fitment/engine/groups"
	"github.com/partshub/fitment/pkg/metrics"
)

// catalogSource is the slice of the catalog store the handlers need.
type catalogSource interface {
	Brands(ctx context.Context) ([]catalog.BrandStats, error)
	NodeCounts(ctx context.Context) (map[string]int64, error)
}

type server struct {
	svc     *groups.Service
	search  groups.Searcher
	catalog catalogSource
	reg     *metrics.Registry
	log     *slog.Logger
}

func newServer(svc *groups.Service, search groups.Searcher, cat catalogSource, reg *metrics.Registry, log *slog.Logger) *server {
	return &server{svc: svc, search: search, catalog: cat, reg: reg, log: log}
}

func (s *server) routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/health", s.handleHealth)
	mux.Handle("GET /metrics", s.reg.Handler())

	mux.HandleFunc("GET /api/groups", s.handleListGroups)
	mux.HandleFunc("POST /api/groups", s.handleCreateGroup)
	mux.HandleFunc("GET /api/groups/{id}", s.handleGetGroup)
	mux.HandleFunc("PUT /api/groups/{id}", s.handleUpdateGroup)
	mux.HandleFunc("DELETE /api/groups/{id}", s.handleDeleteGroup)
	mux.HandleFunc("PUT /api/groups/{id}/active", s.handleSetActive)
	mux.HandleFunc("GET /api/groups/{id}/vehicles", s.handleGroupVehicles)

	mux.HandleFunc("POST /api/criteria/validate", s.handleValidateCriteria)
	mux.HandleFunc("POST /api/criteria/classify", s.handleClassifyCriteria)

	mux.HandleFunc("GET /api/stats", s.handleStats)
	mux.HandleFunc("GET /api/brands", s.handleBrands)
	mux.HandleFunc("GET /api/vehicles/search", s.handleVehicleSearch)
	return mux
}

// --- groups ---

func (s *server) handleListGroups(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := groups.ListFilter{
		Category:        domain.Category(q.Get("category")),
		Tag:             q.Get("tag"),
		Query:           q.Get("q"),
		IncludeInactive: q.Get("include_inactive") == "true",
		Offset:          intParam(q.Get("offset"), 0),
		Limit:           intParam(q.Get("limit"), 0),
	}
	out, err := s.svc.List(r.Context(), f)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"groups": out, "count": len(out)})
}

func (s *server) handleCreateGroup(w http.ResponseWriter, r *http.Request) {
	var g domain.Group
	if err := json.NewDecoder(r.Body).Decode(&g); err != nil {
		writeJSON(w, http.StatusBadRequest, errBody("invalid request body"))
		return
	}
	created, err := s.svc.Create(r.Context(), g)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *server) handleGetGroup(w http.ResponseWriter, r *http.Request) {
	g, err := s.svc.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, g)
}

// updateRequest mirrors groups.UpdateInput; absent fields stay unchanged.
type updateRequest struct {
	Name             *string          `json:"name"`
	Criteria         *domain.Criteria `json:"criteria"`
	IncludedVehicles *[]string        `json:"included_vehicles"`
	ExcludedVehicles *[]string        `json:"excluded_vehicles"`
	Category         *domain.Category `json:"category"`
	Tags             *[]string        `json:"tags"`
	Active           *bool            `json:"active"`
}

func (s *server) handleUpdateGroup(w http.ResponseWriter, r *http.Request) {
	var req updateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errBody("invalid request body"))
		return
	}
	updated, err := s.svc.Update(r.Context(), r.PathValue("id"), groups.UpdateInput{
		Name:             req.Name,
		Criteria:         req.Criteria,
		IncludedVehicles: req.IncludedVehicles,
		ExcludedVehicles: req.ExcludedVehicles,
		Category:         req.Category,
		Tags:             req.Tags,
		Active:           req.Active,
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *server) handleDeleteGroup(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Delete(r.Context(), r.PathValue("id")); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *server) handleSetActive(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Active bool `json:"active"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errBody("invalid request body"))
		return
	}
	g, err := s.svc.SetActive(r.Context(), r.PathValue("id"), req.Active)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, g)
}

func (s *server) handleGroupVehicles(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	vehicles, err := s.svc.CompatibleVehicles(r.Context(), r.PathValue("id"), q.Get("q"), intParam(q.Get("limit"), 0))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"vehicles": vehicles, "count": len(vehicles)})
}

// --- criteria ---

func (s *server) handleValidateCriteria(w http.ResponseWriter, r *http.Request) {
	var c domain.Criteria
	if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
		writeJSON(w, http.StatusBadRequest, errBody("invalid request body"))
		return
	}
	writeJSON(w, http.StatusOK, s.svc.Engine().ValidateCriteria(c))
}

func (s *server) handleClassifyCriteria(w http.ResponseWriter, r *http.Request) {
	var c domain.Criteria
	if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
		writeJSON(w, http.StatusBadRequest, errBody("invalid request body"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"level": string(s.svc.Engine().Classify(c))})
}

// --- catalog and stats ---

func (s *server) handleStats(w http.ResponseWriter, r *http.Request) {
	st, err := s.svc.Stats(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *server) handleBrands(w http.ResponseWriter, r *http.Request) {
	brands, err := s.catalog.Brands(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"brands": brands})
}

func (s *server) handleVehicleSearch(w http.ResponseWriter, r *http.Request) {
	if s.search == nil {
		writeJSON(w, http.StatusServiceUnavailable, errBody("semantic search is disabled"))
		return
	}
	q := r.URL.Query()
	query := q.Get("q")
	if query == "" {
		writeJSON(w, http.StatusBadRequest, errBody("q is required"))
		return
	}
	vehicles, err := s.search.Search(r.Context(), query, intParam(q.Get("limit"), 20))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"vehicles": vehicles, "count": len(vehicles)})
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	body := map[string]any{"status": "ok"}
	if counts, err := s.catalog.NodeCounts(r.Context()); err == nil {
		body["nodes"] = counts
	}
	writeJSON(w, http.StatusOK, body)
}

// --- helpers ---

func (s *server) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errBody("not found"))
	case isValidation(err):
		writeJSON(w, http.StatusBadRequest, errBody(err.Error()))
	default:
		s.log.Error("request failed", "err", err)
		writeJSON(w, http.StatusInternalServerError, errBody("internal server error"))
	}
}

func isValidation(err error) bool {
	var ve *domain.ValidationError
	if errors.As(err, &ve) {
		return true
	}
	for _, sentinel := range []error{
		domain.ErrEmptyName, domain.ErrNameTooLong, domain.ErrInvalidCategory,
		domain.ErrInvalidTag, domain.ErrIncludeExclude, domain.ErrVacuousGroup,
		domain.ErrYearConflict, domain.ErrYearRangeInverted,
	} {
		if errors.Is(err, sentinel) {
			return true
		}
	}
	return false
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func errBody(msg string) map[string]string {
	return map[string]string{"error": msg}
}

func intParam(s string, fallback int) int {
	if s == "" {
		return fallback
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return fallback
	}
	return n
}
