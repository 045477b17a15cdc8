// Package sqlitecache persiste l'instantané des préférences dans SQLite
// (cache durable local de la CLI).
package sqlitecache

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/lytDeveloper/Lyt-sub003/pkg/preference"
	_ "modernc.org/sqlite"
)

// Cache implémente preference.LocalCache.
type Cache struct {
	db *sql.DB
	mu sync.Mutex // sérialise les écritures
}

var _ preference.LocalCache = (*Cache)(nil)

var memSeq atomic.Uint64

// Open ouvre (ou crée) la base à path. ":memory:" donne une base volatile,
// propre à chaque appel.
func Open(path string) (*Cache, error) {
	dsn := path
	if path == ":memory:" {
		dsn = fmt.Sprintf("file:lyt-prefs-%d?mode=memory&cache=shared", memSeq.Add(1))
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if path != ":memory:" {
		if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
			db.Close()
			return nil, fmt.Errorf("enable WAL mode: %w", err)
		}
	}

	const schema = `
	CREATE TABLE IF NOT EXISTS preferences (
		user_id     TEXT NOT NULL,
		kind        TEXT NOT NULL,
		target_type TEXT NOT NULL,
		target_id   TEXT NOT NULL,
		PRIMARY KEY (user_id, kind, target_type, target_id)
	);`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}
	return &Cache{db: db}, nil
}

func (c *Cache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.db.Close()
}

func (c *Cache) Load(ctx context.Context, userID string) (preference.Snapshot, error) {
	rows, err := c.db.QueryContext(ctx,
		`SELECT kind, target_type, target_id FROM preferences WHERE user_id = ? ORDER BY kind, target_type, target_id`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("query preferences: %w", err)
	}
	defer rows.Close()

	snap := preference.Snapshot{}
	for rows.Next() {
		var kind, targetType, targetID string
		if err := rows.Scan(&kind, &targetType, &targetID); err != nil {
			return nil, fmt.Errorf("scan preference: %w", err)
		}
		p := preference.Pair{Kind: preference.Kind(kind), TargetType: preference.TargetType(targetType)}
		snap[p] = append(snap[p], targetID)
	}
	return snap, rows.Err()
}

func (c *Cache) Put(ctx context.Context, userID string, p preference.Pair, targetID string, member bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var err error
	if member {
		_, err = c.db.ExecContext(ctx,
			`INSERT OR IGNORE INTO preferences (user_id, kind, target_type, target_id) VALUES (?, ?, ?, ?)`,
			userID, string(p.Kind), string(p.TargetType), targetID)
	} else {
		_, err = c.db.ExecContext(ctx,
			`DELETE FROM preferences WHERE user_id = ? AND kind = ? AND target_type = ? AND target_id = ?`,
			userID, string(p.Kind), string(p.TargetType), targetID)
	}
	if err != nil {
		return fmt.Errorf("put preference: %w", err)
	}
	return nil
}

// Replace écrase l'instantané de l'utilisateur dans une seule transaction.
func (c *Cache) Replace(ctx context.Context, userID string, snap preference.Snapshot) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM preferences WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("delete preferences: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx,
		`INSERT OR IGNORE INTO preferences (user_id, kind, target_type, target_id) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for p, ids := range snap {
		for _, id := range ids {
			if _, err := stmt.ExecContext(ctx, userID, string(p.Kind), string(p.TargetType), id); err != nil {
				return fmt.Errorf("insert preference: %w", err)
			}
		}
	}
	return tx.Commit()
}

func (c *Cache) Clear(ctx context.Context, userID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, err := c.db.ExecContext(ctx, `DELETE FROM preferences WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("clear preferences: %w", err)
	}
	return nil
}
