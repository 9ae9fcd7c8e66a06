package search

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/partshub/fitment/engine/domain"
	"github.com/partshub/fitment/engine/groups"
	"github.com/partshub/fitment/pkg/resilience"
)

// VectorIndex is the slice of VectorStore the service needs. Narrowed for
// testing.
type VectorIndex interface {
	Query(ctx context.Context, embedding []float32, topK int, filters map[string]string) ([]Hit, error)
}

// Service resolves free-text queries to catalog vehicles. It satisfies the
// groups Searcher port.
type Service struct {
	embedder Embedder
	index    VectorIndex
	vehicles groups.VehicleSource
	breaker  *resilience.Breaker
	log      *slog.Logger
}

var _ groups.Searcher = (*Service)(nil)

// NewService wires the embedder, the vector index, and the catalog together.
// Embedding failures trip a circuit breaker so a dead model endpoint fails
// fast instead of stalling every request.
func NewService(embedder Embedder, index VectorIndex, vehicles groups.VehicleSource, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		embedder: embedder,
		index:    index,
		vehicles: vehicles,
		breaker:  resilience.NewBreaker(resilience.DefaultBreakerOpts),
		log:      log,
	}
}

// Search embeds the query, finds the nearest vehicles, and hydrates them
// from the catalog. Hits that no longer exist in the catalog are dropped.
func (s *Service) Search(ctx context.Context, query string, limit int) ([]domain.Vehicle, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = 20
	}

	var embedding []float32
	err := s.breaker.Call(ctx, func(ctx context.Context) error {
		var err error
		embedding, err = s.embedder.Embed(ctx, query)
		return err
	})
	if err != nil {
		return nil, err
	}

	hits, err := s.index.Query(ctx, embedding, limit, nil)
	if err != nil {
		return nil, err
	}

	out := make([]domain.Vehicle, 0, len(hits))
	for _, h := range hits {
		v, err := s.vehicles.Get(ctx, h.VehicleID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				s.log.Debug("stale index entry", "vehicle", h.VehicleID)
				continue
			}
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}
