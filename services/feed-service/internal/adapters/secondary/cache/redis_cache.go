package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lytDeveloper/Lyt-sub003/pkg/explore"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "explore:first:"

type RedisPageCache struct {
	client redis.UniversalClient
	ttl    time.Duration // court: une création doit apparaître vite même sans event
}

func NewRedisPageCache(client redis.UniversalClient, ttl time.Duration) *RedisPageCache {
	return &RedisPageCache{client: client, ttl: ttl}
}

// Index par type : "explore:first:idx:project" -> {clés de pages contenant des projets}
func indexKey(t explore.EntityType) string {
	return keyPrefix + "idx:" + string(t)
}

func (r *RedisPageCache) Get(ctx context.Context, key string) (explore.PageResult, bool, error) {
	raw, err := r.client.Get(ctx, keyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return explore.PageResult{}, false, nil
	}
	if err != nil {
		return explore.PageResult{}, false, err
	}

	var resp explore.PageResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		// Entrée corrompue : on la traite comme absente
		return explore.PageResult{}, false, nil
	}
	page, err := resp.Result()
	if err != nil {
		return explore.PageResult{}, false, nil
	}
	return page, true, nil
}

func (r *RedisPageCache) Set(ctx context.Context, key string, types []explore.EntityType, page explore.PageResult) error {
	if r.ttl <= 0 {
		return nil
	}
	raw, err := json.Marshal(explore.NewPageResponse(page))
	if err != nil {
		return fmt.Errorf("encode page: %w", err)
	}

	pipe := r.client.Pipeline()
	pipe.Set(ctx, keyPrefix+key, raw, r.ttl)
	for _, t := range types {
		pipe.SAdd(ctx, indexKey(t), keyPrefix+key)
		// L'index vit un peu plus longtemps que les pages qu'il référence
		pipe.Expire(ctx, indexKey(t), 2*r.ttl)
	}
	_, err = pipe.Exec(ctx)
	return err
}

func (r *RedisPageCache) InvalidateType(ctx context.Context, t explore.EntityType) error {
	keys, err := r.client.SMembers(ctx, indexKey(t)).Result()
	if err != nil {
		return err
	}

	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		if len(keys) > 0 {
			pipe.Del(ctx, keys...)
		}
		pipe.Del(ctx, indexKey(t))
		return nil
	})
	return err
}
