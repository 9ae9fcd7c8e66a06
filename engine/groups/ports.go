package groups

import (
	"context"

	"github.com/partshub/fitment/engine/domain"
)

// ListFilter narrows group listings. The zero value lists active groups.
type ListFilter struct {
	Category domain.Category
	Tag      string
	// Query is matched case-insensitively against group names.
	Query string
	// IncludeInactive also returns groups whose Active flag is off.
	IncludeInactive bool
	Offset          int
	Limit           int
}

// VehicleFilter narrows vehicle lookups against the catalog.
type VehicleFilter struct {
	Brands []string
	Limit  int
}

// Stats summarises the stored groups.
type Stats struct {
	Total      int            `json:"total"`
	Active     int            `json:"active"`
	ByCategory map[string]int `json:"by_category"`
}

// GroupRepository is the persistence port for applicability groups.
type GroupRepository interface {
	Get(ctx context.Context, id string) (domain.Group, error)
	List(ctx context.Context, f ListFilter) ([]domain.Group, error)
	Create(ctx context.Context, g domain.Group) (domain.Group, error)
	Update(ctx context.Context, g domain.Group) (domain.Group, error)
	Delete(ctx context.Context, id string) error
	Stats(ctx context.Context) (Stats, error)
}

// VehicleSource is the read-only port to the vehicle catalog.
type VehicleSource interface {
	Get(ctx context.Context, id string) (domain.Vehicle, error)
	Find(ctx context.Context, f VehicleFilter) ([]domain.Vehicle, error)
}

// Searcher resolves a free-text query to candidate vehicles.
type Searcher interface {
	Search(ctx context.Context, query string, limit int) ([]domain.Vehicle, error)
}

// Event is a domain event emitted after a successful mutation.
type Event struct {
	Type    string `json:"type"`
	GroupID string `json:"group_id"`
	Name    string `json:"name,omitempty"`
}

// Event types published on the groups stream.
const (
	EventGroupCreated   = "group.created"
	EventGroupUpdated   = "group.updated"
	EventGroupDeleted   = "group.deleted"
	EventGroupActivated = "group.activated"
)

// EventPublisher is the outbound port for domain events.
type EventPublisher interface {
	Publish(ctx context.Context, e Event) error
}
