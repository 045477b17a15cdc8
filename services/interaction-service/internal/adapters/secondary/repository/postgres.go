package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lytDeveloper/Lyt-sub003/pkg/preference"
)

// Schéma attendu :
//
//	CREATE TABLE preferences (
//	    id          UUID PRIMARY KEY,
//	    user_id     TEXT NOT NULL,
//	    target_id   TEXT NOT NULL,
//	    target_type TEXT NOT NULL,
//	    kind        TEXT NOT NULL,
//	    reason      TEXT,
//	    actor       JSONB,
//	    created_at  TIMESTAMPTZ NOT NULL,
//	    UNIQUE (user_id, kind, target_type, target_id)
//	);
type PostgresRepo struct {
	db *pgxpool.Pool
}

func NewPostgresRepo(pool *pgxpool.Pool) *PostgresRepo {
	return &PostgresRepo{db: pool}
}

func (r *PostgresRepo) Insert(ctx context.Context, id string, rec preference.Record) (preference.CreateResult, error) {
	q := `
		INSERT INTO preferences (id, user_id, target_id, target_type, kind, reason, actor, created_at)
		VALUES (@id, @user_id, @target_id, @target_type, @kind, @reason, @actor, @created_at)
		ON CONFLICT (user_id, kind, target_type, target_id) DO NOTHING
	`

	// L'instantané de l'auteur part en JSONB (nil -> NULL)
	var actor []byte
	if rec.Actor != nil {
		var err error
		if actor, err = json.Marshal(rec.Actor); err != nil {
			return preference.Created, fmt.Errorf("marshal actor: %w", err)
		}
	}

	tag, err := r.db.Exec(ctx, q, pgx.NamedArgs{
		"id":          id,
		"user_id":     rec.UserID,
		"target_id":   rec.TargetID,
		"target_type": string(rec.TargetType),
		"kind":        string(rec.Kind),
		"reason":      nullable(rec.Reason),
		"actor":       actor,
		"created_at":  rec.CreatedAt,
	})
	if err != nil {
		return r.handleError(err)
	}
	if tag.RowsAffected() == 0 {
		return preference.AlreadyExists, nil
	}
	return preference.Created, nil
}

func (r *PostgresRepo) Delete(ctx context.Context, userID, targetID string, targetType preference.TargetType, kind preference.Kind) error {
	q := `DELETE FROM preferences WHERE user_id = $1 AND kind = $2 AND target_type = $3 AND target_id = $4`
	if _, err := r.db.Exec(ctx, q, userID, string(kind), string(targetType), targetID); err != nil {
		return fmt.Errorf("db: delete preference: %w", err)
	}
	return nil
}

func (r *PostgresRepo) ListTargets(ctx context.Context, userID string, targetType preference.TargetType, kind preference.Kind) ([]string, error) {
	q := `SELECT target_id FROM preferences WHERE user_id = $1 AND kind = $2 AND target_type = $3 ORDER BY target_id`
	rows, err := r.db.Query(ctx, q, userID, string(kind), string(targetType))
	if err != nil {
		return nil, fmt.Errorf("db: list preferences: %w", err)
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}

// Snapshot charge tous les sets de l'utilisateur en une requête.
func (r *PostgresRepo) Snapshot(ctx context.Context, userID string) (preference.Snapshot, error) {
	q := `SELECT kind, target_type, target_id FROM preferences WHERE user_id = $1 ORDER BY kind, target_type, target_id`
	rows, err := r.db.Query(ctx, q, userID)
	if err != nil {
		return nil, fmt.Errorf("db: snapshot: %w", err)
	}
	defer rows.Close()

	snap := preference.Snapshot{}
	for rows.Next() {
		var kind, targetType, targetID string
		if err := rows.Scan(&kind, &targetType, &targetID); err != nil {
			return nil, err
		}
		p := preference.Pair{Kind: preference.Kind(kind), TargetType: preference.TargetType(targetType)}
		snap[p] = append(snap[p], targetID)
	}
	return snap, rows.Err()
}

// handleError traduit les codes d'erreur PostgreSQL en résultats du domaine
func (r *PostgresRepo) handleError(err error) (preference.CreateResult, error) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		// Unique violation : course entre deux insertions identiques
		return preference.AlreadyExists, nil
	}
	return preference.Created, fmt.Errorf("db: insert preference: %w", err)
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
