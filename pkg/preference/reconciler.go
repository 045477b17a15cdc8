package preference

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/time/rate"
)

const (
	DefaultReconcileInterval = 5 * time.Minute
	// MinReconcileGap borne la fréquence des resynchronisations au focus.
	MinReconcileGap = 30 * time.Second
)

// Reconciler relance périodiquement Initialize pour borner la dérive entre
// l'état optimiste local et le service distant.
type Reconciler struct {
	store    *Store
	interval time.Duration
	limiter  *rate.Limiter
}

func NewReconciler(store *Store, interval, minGap time.Duration) *Reconciler {
	if interval <= 0 {
		interval = DefaultReconcileInterval
	}
	if minGap <= 0 {
		minGap = MinReconcileGap
	}
	return &Reconciler{
		store:    store,
		interval: interval,
		limiter:  rate.NewLimiter(rate.Every(minGap), 1),
	}
}

// Reconcile vide les écritures en attente puis réhydrate la session.
func (r *Reconciler) Reconcile(ctx context.Context) error {
	userID := r.store.UserID()
	if userID == "" {
		return ErrNotInitialized
	}
	if err := r.store.Flush(ctx); err != nil {
		return err
	}
	return r.store.Initialize(ctx, userID)
}

// Focus réconcilie sauf si la dernière resynchronisation est trop récente.
func (r *Reconciler) Focus(ctx context.Context) (bool, error) {
	if !r.limiter.Allow() {
		return false, nil
	}
	return true, r.Reconcile(ctx)
}

// Run réconcilie à chaque intervalle jusqu'à l'annulation du contexte.
func (r *Reconciler) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := r.Focus(ctx); err != nil && ctx.Err() == nil {
				slog.Warn("⚠️ preference reconcile failed", "error", err)
			}
		}
	}
}
