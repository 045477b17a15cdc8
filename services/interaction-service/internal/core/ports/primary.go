package ports

import (
	"context"

	"github.com/lytDeveloper/Lyt-sub003/pkg/preference"
)

// --- DRIVING (Ce que le service expose) ---

type PreferenceService interface {
	Create(ctx context.Context, rec preference.Record) (preference.CreateResult, error)
	Delete(ctx context.Context, userID, targetID string, targetType preference.TargetType, kind preference.Kind) error
	List(ctx context.Context, userID string, targetType preference.TargetType, kind preference.Kind) ([]string, error)
	// Check répond pour plusieurs cibles en un appel
	Check(ctx context.Context, userID string, targetType preference.TargetType, kind preference.Kind, targetIDs []string) (map[string]bool, error)
}
