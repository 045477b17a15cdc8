package services

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/lytDeveloper/Lyt-sub003/pkg/explore"
	"github.com/lytDeveloper/Lyt-sub003/services/feed-service/internal/core/domain"
	"github.com/lytDeveloper/Lyt-sub003/services/feed-service/internal/core/ports"
)

type ExploreService struct {
	fetcher explore.BatchFetcher
	cache   ports.PageCache // optionnel
}

func NewExploreService(repo ports.CatalogRepository, cache ports.PageCache) *ExploreService {
	return &ExploreService{
		fetcher: explore.NewBatchFetcher(repo),
		cache:   cache,
	}
}

func (s *ExploreService) Explore(ctx context.Context, req explore.Request) (explore.PageResult, error) {
	if err := validate(req); err != nil {
		return explore.PageResult{}, err
	}

	// Seules les premières pages sans recherche sont partagées entre utilisateurs
	key, cacheable := firstPageKey(req)
	if cacheable && s.cache != nil {
		page, ok, err := s.cache.Get(ctx, key)
		if err != nil {
			slog.Warn("⚠️ page cache read failed", "key", key, "error", err)
		} else if ok {
			return page, nil
		}
	}

	page, err := s.fetcher.Fetch(ctx, req)
	if err != nil {
		return explore.PageResult{}, err
	}

	if cacheable && s.cache != nil {
		if err := s.cache.Set(ctx, key, requestedTypes(req), page); err != nil {
			slog.Warn("⚠️ page cache write failed", "key", key, "error", err)
		}
	}
	return page, nil
}

func (s *ExploreService) CatalogChanged(ctx context.Context, t explore.EntityType) error {
	if !t.Valid() {
		return fmt.Errorf("%w: unknown entity type %q", domain.ErrInvalidQuery, t)
	}
	if s.cache == nil {
		return nil
	}
	return s.cache.InvalidateType(ctx, t)
}

func validate(req explore.Request) error {
	if req.ActiveType != "" && !req.ActiveType.Valid() {
		return fmt.Errorf("%w: unknown entity type %q", domain.ErrInvalidQuery, req.ActiveType)
	}
	for _, st := range req.Filter.Statuses {
		if !domain.KnownStatuses.Allows(st) {
			return fmt.Errorf("%w: unknown status %q", domain.ErrInvalidQuery, st)
		}
	}
	if req.Limit < 0 || req.Limit > explore.MaxPageLimit {
		return fmt.Errorf("%w: limit %d out of range", domain.ErrInvalidQuery, req.Limit)
	}
	return nil
}

func firstPageKey(req explore.Request) (string, bool) {
	if req.Cursors != nil || req.Filter.SearchQuery != "" {
		return "", false
	}
	scope := string(req.ActiveType)
	if scope == "" {
		scope = "all"
	}
	return scope + ":" + req.Filter.Identity() + ":" + strconv.Itoa(req.Limit), true
}

func requestedTypes(req explore.Request) []explore.EntityType {
	if req.ActiveType != "" {
		return []explore.EntityType{req.ActiveType}
	}
	return explore.AllTypes
}
