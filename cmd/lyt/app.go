package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/lytDeveloper/Lyt-sub003/pkg/explore"
	"github.com/lytDeveloper/Lyt-sub003/pkg/exploreclient"
	"github.com/lytDeveloper/Lyt-sub003/pkg/prefclient"
	"github.com/lytDeveloper/Lyt-sub003/pkg/preference"
	"github.com/lytDeveloper/Lyt-sub003/pkg/preference/sqlitecache"
)

// app relie la session, le store de préférences (cache SQLite) et les clients HTTP.
type app struct {
	cfg     Config
	session Session
	cache   *sqlitecache.Cache
	prefs   *preference.Store
	feed    *exploreclient.Client
}

// openApp restaure l'état local sans appel réseau.
func openApp(ctx context.Context, cfg Config) (*app, error) {
	sess, err := LoadSession(cfg.sessionPath())
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(cfg.DataDir, 0o700); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	cache, err := sqlitecache.Open(cfg.cachePath())
	if err != nil {
		return nil, err
	}

	gateway := prefclient.New(cfg.InteractionURL, func() string { return sess.Token })
	store := preference.NewStore(gateway, preference.WithLocalCache(cache))
	if err := store.Restore(ctx, sess.UserID); err != nil {
		slog.Warn("⚠️ local preferences unavailable", "error", err)
	}

	return &app{
		cfg:     cfg,
		session: sess,
		cache:   cache,
		prefs:   store,
		feed:    exploreclient.New(cfg.FeedURL),
	}, nil
}

// hydrate remplace l'état local par celui du service; en cas d'échec on
// continue sur le cache local.
func (a *app) hydrate(ctx context.Context) {
	if err := a.prefs.Initialize(ctx, a.session.UserID); err != nil {
		if errors.Is(err, prefclient.ErrUnauthorized) {
			slog.Warn("⚠️ session rejected by the server, run `lyt login` again")
			return
		}
		slog.Warn("⚠️ using local preferences", "error", err)
	}
}

func (a *app) newAggregator(f explore.Filter, t explore.EntityType) *explore.Aggregator {
	return explore.NewAggregator(a.feed, f, t,
		explore.WithOverlay(a.prefs),
		explore.WithCooldown(0),
	)
}

// close attend les écritures distantes en vol avant de fermer la base.
func (a *app) close(ctx context.Context) error {
	err := a.prefs.Flush(ctx)
	return errors.Join(err, a.cache.Close())
}
