package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/lytDeveloper/Lyt-sub003/pkg/preference"
	"github.com/lytDeveloper/Lyt-sub003/services/interaction-service/internal/core/domain"
	"github.com/lytDeveloper/Lyt-sub003/services/interaction-service/internal/core/ports"
)

// PreferenceService : Postgres fait foi. Redis, Neo4j et NATS sont des
// effets secondaires, leurs échecs sont loggés sans faire échouer l'appel.
type PreferenceService struct {
	repo   ports.RecordRepository
	cache  ports.MembershipCache
	graph  ports.SocialGraph
	events ports.EventPublisher
	now    func() time.Time
}

func NewPreferenceService(repo ports.RecordRepository, cache ports.MembershipCache, graph ports.SocialGraph, events ports.EventPublisher) *PreferenceService {
	return &PreferenceService{
		repo:   repo,
		cache:  cache,
		graph:  graph,
		events: events,
		now:    time.Now,
	}
}

func (s *PreferenceService) Create(ctx context.Context, rec preference.Record) (preference.CreateResult, error) {
	if err := rec.Validate(); err != nil {
		return preference.Created, err
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = s.now().UTC()
	}

	res, err := s.repo.Insert(ctx, uuid.NewString(), rec)
	if err != nil {
		return preference.Created, fmt.Errorf("insert preference: %w", err)
	}
	if res == preference.AlreadyExists {
		// Doublon : aucun effet secondaire, pas de seconde notification
		slog.Debug("🔁 Preference already exists", "user_id", rec.UserID, "pair", rec.Pair().String(), "target_id", rec.TargetID)
		return res, nil
	}

	s.putCache(ctx, rec.UserID, rec.Pair(), rec.TargetID, true)
	if rel, ok := domain.RelationFor(rec.Kind); ok && s.graph != nil {
		if err := s.graph.Relate(ctx, rel, rec.UserID, rec.TargetID); err != nil {
			slog.Error("❌ Graph mirror failed", "relation", rel, "user_id", rec.UserID, "target_id", rec.TargetID, "error", err)
		}
	}
	if domain.Notifies(rec.Kind) && s.events != nil {
		evt := domain.InteractionCreated{
			EventID:    uuid.NewString(),
			UserID:     rec.UserID,
			TargetID:   rec.TargetID,
			TargetType: rec.TargetType,
			Kind:       rec.Kind,
			Actor:      rec.Actor,
			CreatedAt:  rec.CreatedAt,
		}
		if err := s.events.PublishInteractionCreated(ctx, evt); err != nil {
			slog.Warn("⚠️ Notification event dropped", "subject", evt.Subject(), "error", err)
		}
	}

	slog.Info("✅ Preference created", "user_id", rec.UserID, "pair", rec.Pair().String(), "target_id", rec.TargetID)
	return preference.Created, nil
}

// Delete est idempotent : supprimer un lien absent n'est pas une erreur.
func (s *PreferenceService) Delete(ctx context.Context, userID, targetID string, targetType preference.TargetType, kind preference.Kind) error {
	if userID == "" || targetID == "" || !kind.Allows(targetType) {
		return preference.ErrInvalidTarget
	}
	if err := s.repo.Delete(ctx, userID, targetID, targetType, kind); err != nil {
		return fmt.Errorf("delete preference: %w", err)
	}

	s.putCache(ctx, userID, preference.Pair{Kind: kind, TargetType: targetType}, targetID, false)
	if rel, ok := domain.RelationFor(kind); ok && s.graph != nil {
		if err := s.graph.Unrelate(ctx, rel, userID, targetID); err != nil {
			slog.Error("❌ Graph mirror failed", "relation", rel, "user_id", userID, "target_id", targetID, "error", err)
		}
	}
	return nil
}

func (s *PreferenceService) List(ctx context.Context, userID string, targetType preference.TargetType, kind preference.Kind) ([]string, error) {
	if userID == "" || !kind.Allows(targetType) {
		return nil, preference.ErrInvalidTarget
	}
	ids, err := s.repo.ListTargets(ctx, userID, targetType, kind)
	if err != nil {
		return nil, fmt.Errorf("list preferences: %w", err)
	}
	if ids == nil {
		ids = []string{}
	}
	return ids, nil
}

// Check lit Redis quand l'instantané de l'utilisateur y est complet,
// sinon recharge depuis Postgres et réchauffe le cache.
func (s *PreferenceService) Check(ctx context.Context, userID string, targetType preference.TargetType, kind preference.Kind, targetIDs []string) (map[string]bool, error) {
	if userID == "" || !kind.Allows(targetType) {
		return nil, preference.ErrInvalidTarget
	}
	pair := preference.Pair{Kind: kind, TargetType: targetType}

	if s.cache != nil {
		warm, err := s.cache.Warm(ctx, userID)
		if err != nil {
			slog.Warn("⚠️ Membership cache unavailable", "user_id", userID, "error", err)
		} else if warm {
			got, err := s.cache.Contains(ctx, userID, pair, targetIDs)
			if err == nil {
				return got, nil
			}
			slog.Warn("⚠️ Membership cache read failed", "user_id", userID, "error", err)
		}
	}

	// version lue avant Postgres: une écriture concurrente rend l'instantané périmé
	var version int64
	versioned := false
	if s.cache != nil {
		v, err := s.cache.Version(ctx, userID)
		if err != nil {
			slog.Warn("⚠️ Membership cache unavailable", "user_id", userID, "error", err)
		} else {
			version, versioned = v, true
		}
	}

	snap, err := s.repo.Snapshot(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load preferences: %w", err)
	}
	if versioned {
		ok, err := s.cache.ReplaceAt(ctx, userID, snap, version)
		switch {
		case err != nil:
			slog.Warn("⚠️ Membership cache warm-up failed", "user_id", userID, "error", err)
		case !ok:
			slog.Debug("Membership cache warm-up skipped, concurrent write", "user_id", userID)
		}
	}

	members := make(map[string]struct{}, len(snap[pair]))
	for _, id := range snap[pair] {
		members[id] = struct{}{}
	}
	out := make(map[string]bool, len(targetIDs))
	for _, id := range targetIDs {
		_, out[id] = members[id]
	}
	return out, nil
}

func (s *PreferenceService) putCache(ctx context.Context, userID string, p preference.Pair, targetID string, member bool) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Put(ctx, userID, p, targetID, member); err != nil {
		slog.Warn("⚠️ Membership cache update failed", "user_id", userID, "pair", p.String(), "error", err)
	}
}
