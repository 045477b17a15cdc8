// Package rediscache garde l'instantané des préférences dans des sets Redis,
// partagés entre les instances d'un même hôte serveur.
package rediscache

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/lytDeveloper/Lyt-sub003/pkg/preference"
	"github.com/redis/go-redis/v9"
)

type Cache struct {
	client redis.UniversalClient
	ttl    time.Duration
}

var _ preference.LocalCache = (*Cache)(nil)

func New(client redis.UniversalClient, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = 30 * 24 * time.Hour
	}
	return &Cache{client: client, ttl: ttl}
}

// Key donne la clé du set, ex: "prefs:u1:like:partner".
func Key(userID string, p preference.Pair) string {
	return fmt.Sprintf("prefs:%s:%s:%s", userID, p.Kind, p.TargetType)
}

// warmKey marque un instantané complet: un set absent veut alors dire "vide".
func warmKey(userID string) string {
	return "prefs:" + userID + ":warm"
}

// versionKey compte les écritures unitaires de l'utilisateur (Put).
func versionKey(userID string) string {
	return "prefs:" + userID + ":ver"
}

var errStaleSnapshot = errors.New("snapshot older than cache")

func (c *Cache) Load(ctx context.Context, userID string) (preference.Snapshot, error) {
	pairs := preference.Pairs()
	cmds := make([]*redis.StringSliceCmd, len(pairs))
	pipe := c.client.Pipeline()
	for i, p := range pairs {
		cmds[i] = pipe.SMembers(ctx, Key(userID, p))
	}
	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		return nil, fmt.Errorf("load preferences: %w", err)
	}

	snap := preference.Snapshot{}
	for i, p := range pairs {
		ids := cmds[i].Val()
		if len(ids) == 0 {
			continue
		}
		slices.Sort(ids)
		snap[p] = ids
	}
	return snap, nil
}

// Put applique une bascule et incrémente la version de l'utilisateur, ce qui
// invalide tout ReplaceAt préparé avant elle.
func (c *Cache) Put(ctx context.Context, userID string, p preference.Pair, targetID string, member bool) error {
	key := Key(userID, p)
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		if member {
			pipe.SAdd(ctx, key, targetID)
			pipe.Expire(ctx, key, c.ttl)
		} else {
			pipe.SRem(ctx, key, targetID)
		}
		pipe.Incr(ctx, versionKey(userID))
		pipe.Expire(ctx, versionKey(userID), c.ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("put preference: %w", err)
	}
	return nil
}

// Replace réécrit tous les sets de l'utilisateur dans une transaction MULTI/EXEC.
func (c *Cache) Replace(ctx context.Context, userID string, snap preference.Snapshot) error {
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		c.writeSnapshot(ctx, pipe, userID, snap)
		return nil
	})
	if err != nil {
		return fmt.Errorf("replace preferences: %w", err)
	}
	return nil
}

// Version renvoie le compteur d'écritures courant (0 si absent). À lire avant
// de charger l'instantané passé ensuite à ReplaceAt.
func (c *Cache) Version(ctx context.Context, userID string) (int64, error) {
	v, err := c.client.Get(ctx, versionKey(userID)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read preference version: %w", err)
	}
	return v, nil
}

// ReplaceAt fait comme Replace, seulement si aucun Put n'a eu lieu depuis la
// lecture de version (WATCH). Renvoie false si l'instantané est périmé.
func (c *Cache) ReplaceAt(ctx context.Context, userID string, snap preference.Snapshot, version int64) (bool, error) {
	verKey := versionKey(userID)
	err := c.client.Watch(ctx, func(tx *redis.Tx) error {
		cur, err := tx.Get(ctx, verKey).Int64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if cur != version {
			return errStaleSnapshot
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			c.writeSnapshot(ctx, pipe, userID, snap)
			return nil
		})
		return err
	}, verKey)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, errStaleSnapshot), errors.Is(err, redis.TxFailedErr):
		return false, nil
	default:
		return false, fmt.Errorf("replace preferences: %w", err)
	}
}

func (c *Cache) writeSnapshot(ctx context.Context, pipe redis.Pipeliner, userID string, snap preference.Snapshot) {
	for _, p := range preference.Pairs() {
		key := Key(userID, p)
		pipe.Del(ctx, key)
		ids := snap[p]
		if len(ids) == 0 {
			continue
		}
		members := make([]any, len(ids))
		for i, id := range ids {
			members[i] = id
		}
		pipe.SAdd(ctx, key, members...)
		pipe.Expire(ctx, key, c.ttl)
	}
	pipe.Set(ctx, warmKey(userID), 1, c.ttl)
}

func (c *Cache) Clear(ctx context.Context, userID string) error {
	pairs := preference.Pairs()
	keys := make([]string, 0, len(pairs)+1)
	for _, p := range pairs {
		keys = append(keys, Key(userID, p))
	}
	keys = append(keys, warmKey(userID), versionKey(userID))
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("clear preferences: %w", err)
	}
	return nil
}

// Warm indique si le dernier Replace de l'utilisateur est encore en cache.
func (c *Cache) Warm(ctx context.Context, userID string) (bool, error) {
	n, err := c.client.Exists(ctx, warmKey(userID)).Result()
	if err != nil {
		return false, fmt.Errorf("check warm marker: %w", err)
	}
	return n == 1, nil
}

// Contains vérifie plusieurs cibles en un aller-retour (SMISMEMBER).
func (c *Cache) Contains(ctx context.Context, userID string, p preference.Pair, targetIDs []string) (map[string]bool, error) {
	out := make(map[string]bool, len(targetIDs))
	if len(targetIDs) == 0 {
		return out, nil
	}
	members := make([]any, len(targetIDs))
	for i, id := range targetIDs {
		members[i] = id
	}
	res, err := c.client.SMIsMember(ctx, Key(userID, p), members...).Result()
	if err != nil {
		return nil, fmt.Errorf("check preferences: %w", err)
	}
	for i, id := range targetIDs {
		out[id] = res[i]
	}
	return out, nil
}
