package preference

import "context"

// Gateway est la frontière vers le service de préférences distant.
// Create doit être idempotent: un doublon renvoie AlreadyExists sans erreur.
type Gateway interface {
	Create(ctx context.Context, rec Record) (CreateResult, error)
	Delete(ctx context.Context, userID, targetID string, targetType TargetType, kind Kind) error
	ListMembers(ctx context.Context, userID string, targetType TargetType, kind Kind) ([]string, error)
}

// LocalCache est le stockage durable local de l'instantané, par utilisateur.
type LocalCache interface {
	Load(ctx context.Context, userID string) (Snapshot, error)
	Put(ctx context.Context, userID string, p Pair, targetID string, member bool) error
	Replace(ctx context.Context, userID string, snap Snapshot) error
	Clear(ctx context.Context, userID string) error
}
