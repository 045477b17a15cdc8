package ports

import (
	"context"

	"github.com/lytDeveloper/Lyt-sub003/pkg/explore"
)

// --- DRIVING (Ce que le service expose) ---

type ExploreService interface {
	// Explore sert une page multi-types (contrat BatchFetcher).
	Explore(ctx context.Context, req explore.Request) (explore.PageResult, error)

	// CatalogChanged est appelé quand un event "catalog.*.changed" arrive
	CatalogChanged(ctx context.Context, t explore.EntityType) error
}
