package explore

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// PrefetchStagger est le décalage entre deux préchargements successifs.
const PrefetchStagger = 400 * time.Millisecond

// PrefetchFunc charge la première page de (filter, t).
type PrefetchFunc func(ctx context.Context, f Filter, t EntityType) error

type pendingPrefetch struct {
	timer Timer
}

// Prefetcher (PrefetchScheduler) réchauffe le cache des vues inactives.
// Chaque préchargement est annulable individuellement; après Close plus aucun
// callback ne s'exécute et les chargements en cours sont attendus.
type Prefetcher struct {
	clock   Clock
	stagger time.Duration
	load    PrefetchFunc

	mu      sync.Mutex
	pending map[EntityType]*pendingPrefetch
	ctx     context.Context
	cancel  context.CancelFunc
	closed  bool
	wg      sync.WaitGroup
}

func NewPrefetcher(clock Clock, stagger time.Duration, load PrefetchFunc) *Prefetcher {
	if clock == nil {
		clock = SystemClock()
	}
	if stagger <= 0 {
		stagger = PrefetchStagger
	}
	return &Prefetcher{
		clock:   clock,
		stagger: stagger,
		load:    load,
		pending: make(map[EntityType]*pendingPrefetch),
	}
}

// Schedule programme le préchargement de chaque type inactif, décalé de
// stagger × rang. Rien n'est programmé quand une recherche est active.
// Un appel remplace la programmation précédente.
func (p *Prefetcher) Schedule(f Filter, active EntityType) {
	if f.SearchQuery != "" {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.cancelLocked()

	p.ctx, p.cancel = context.WithCancel(context.Background())
	ctx := p.ctx

	rank := 0
	for _, t := range AllTypes {
		if t == active {
			continue
		}
		rank++
		entry := &pendingPrefetch{}
		p.pending[t] = entry
		entry.timer = p.clock.AfterFunc(time.Duration(rank)*p.stagger, func() {
			p.fire(ctx, entry, f, t)
		})
	}
}

func (p *Prefetcher) fire(ctx context.Context, entry *pendingPrefetch, f Filter, t EntityType) {
	p.mu.Lock()
	// Stop() peut arriver trop tard: le callback vérifie qu'il est toujours attendu.
	if p.closed || p.pending[t] != entry || ctx.Err() != nil {
		p.mu.Unlock()
		return
	}
	delete(p.pending, t)
	p.wg.Add(1)
	p.mu.Unlock()

	defer p.wg.Done()
	if err := p.load(ctx, f, t); err != nil && ctx.Err() == nil {
		slog.Debug("prefetch failed", "type", t, "error", err)
	}
}

// CancelType annule le préchargement encore en attente pour t.
func (p *Prefetcher) CancelType(t EntityType) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	entry, ok := p.pending[t]
	if !ok {
		return false
	}
	entry.timer.Stop()
	delete(p.pending, t)
	return true
}

// Cancel annule tous les minuteurs en attente et les chargements en cours (changement de vue).
func (p *Prefetcher) Cancel() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cancelLocked()
}

func (p *Prefetcher) cancelLocked() {
	for t, entry := range p.pending {
		entry.timer.Stop()
		delete(p.pending, t)
	}
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
}

// Pending renvoie le nombre de préchargements programmés non déclenchés.
func (p *Prefetcher) Pending() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.pending)
}

// Close démonte le scheduler: plus aucun callback ne tournera après le retour.
func (p *Prefetcher) Close() {
	p.mu.Lock()
	p.closed = true
	p.cancelLocked()
	p.mu.Unlock()
	p.wg.Wait()
}
