package ports

import (
	"context"

	"github.com/lytDeveloper/Lyt-sub003/pkg/preference"
	"github.com/lytDeveloper/Lyt-sub003/services/interaction-service/internal/core/domain"
)

// --- DRIVEN (Ce dont le service a besoin) ---

// RecordRepository est la source de vérité (Postgres).
type RecordRepository interface {
	// Insert renvoie AlreadyExists si (user, kind, type, target) existe déjà
	Insert(ctx context.Context, id string, rec preference.Record) (preference.CreateResult, error)
	Delete(ctx context.Context, userID, targetID string, targetType preference.TargetType, kind preference.Kind) error
	ListTargets(ctx context.Context, userID string, targetType preference.TargetType, kind preference.Kind) ([]string, error)
	Snapshot(ctx context.Context, userID string) (preference.Snapshot, error)
}

// MembershipCache est un miroir Redis des sets d'appartenance.
// Chaque Put fait avancer Version; ReplaceAt réécrit tous les sets et pose le
// marqueur "warm" seulement si la version n'a pas bougé.
type MembershipCache interface {
	Put(ctx context.Context, userID string, p preference.Pair, targetID string, member bool) error
	Version(ctx context.Context, userID string) (int64, error)
	ReplaceAt(ctx context.Context, userID string, snap preference.Snapshot, version int64) (bool, error)
	Warm(ctx context.Context, userID string) (bool, error)
	Contains(ctx context.Context, userID string, p preference.Pair, targetIDs []string) (map[string]bool, error)
}

// SocialGraph reflète follow/block dans le graphe (Neo4j).
type SocialGraph interface {
	Relate(ctx context.Context, rel domain.Relation, actorID, targetID string) error
	Unrelate(ctx context.Context, rel domain.Relation, actorID, targetID string) error
}

type EventPublisher interface {
	PublishInteractionCreated(ctx context.Context, evt domain.InteractionCreated) error
}
