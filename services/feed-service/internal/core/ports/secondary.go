package ports

import (
	"context"

	"github.com/lytDeveloper/Lyt-sub003/pkg/explore"
)

// --- DRIVEN (Ce dont le service a besoin) ---

// CatalogRepository lit les séquences triées (created_at DESC, id DESC) par type.
type CatalogRepository interface {
	explore.Source
}

// PageCache garde les premières pages (les plus demandées) quelques secondes.
type PageCache interface {
	Get(ctx context.Context, key string) (explore.PageResult, bool, error)
	Set(ctx context.Context, key string, types []explore.EntityType, page explore.PageResult) error
	// InvalidateType supprime toutes les pages contenant des items de t
	InvalidateType(ctx context.Context, t explore.EntityType) error
}
