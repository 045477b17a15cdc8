package explore

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

var ErrClosed = errors.New("aggregator closed")

// DefaultCooldown supprime les re-déclenchements dus aux signaux de scroll répétés.
const DefaultCooldown = time.Second

// Overlay masque les items cachés ou dont le propriétaire est bloqué.
type Overlay interface {
	Hidden(targetID string) bool
	Blocked(userID string) bool
}

type viewKey struct {
	filter string
	t      EntityType
}

type viewState struct {
	filter   Filter
	t        EntityType
	pages    [][]FeedItem
	cursors  *Cursors // nil tant que la première page n'est pas chargée
	fetching bool
	lastDone time.Time
	err      error
}

// ViewStatus est l'état exposé à la vue active.
type ViewStatus struct {
	Loading bool
	HasMore bool
	Pages   int
	Err     error
}

// Aggregator est le contrôleur de liste infinie: il possède la séquence de
// pages de chaque identité (filtre, type actif) et décide s'il faut en charger une autre.
type Aggregator struct {
	fetcher    BatchFetcher
	clock      Clock
	cooldown   time.Duration
	firstLimit int
	nextLimit  int
	overlay    Overlay
	stagger    time.Duration
	prefetcher *Prefetcher

	mu     sync.Mutex
	filter Filter
	active EntityType
	views  map[viewKey]*viewState
	closed bool
}

type Option func(*Aggregator)

func WithClock(c Clock) Option { return func(a *Aggregator) { a.clock = c } }

func WithCooldown(d time.Duration) Option { return func(a *Aggregator) { a.cooldown = d } }

func WithOverlay(o Overlay) Option { return func(a *Aggregator) { a.overlay = o } }

func WithPageLimits(first, next int) Option {
	return func(a *Aggregator) {
		a.firstLimit, a.nextLimit = first, next
	}
}

// WithPrefetch active le préchargement des vues inactives après la première page.
func WithPrefetch(stagger time.Duration) Option {
	return func(a *Aggregator) {
		if stagger <= 0 {
			stagger = PrefetchStagger
		}
		a.stagger = stagger
	}
}

func NewAggregator(fetcher BatchFetcher, f Filter, active EntityType, opts ...Option) *Aggregator {
	a := &Aggregator{
		fetcher:    fetcher,
		clock:      SystemClock(),
		cooldown:   DefaultCooldown,
		firstLimit: FirstPageLimit,
		nextLimit:  NextPageLimit,
		filter:     f,
		active:     active,
		views:      make(map[viewKey]*viewState),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.stagger > 0 {
		a.prefetcher = NewPrefetcher(a.clock, a.stagger, a.prefetch)
	}
	return a
}

func (a *Aggregator) stateLocked(f Filter, t EntityType) (viewKey, *viewState) {
	key := viewKey{filter: f.Identity(), t: t}
	st, ok := a.views[key]
	if !ok {
		st = &viewState{filter: f, t: t}
		a.views[key] = st
	}
	return key, st
}

// SetView change la vue active. Un changement de filtre invalide toutes les
// identités (les fetchs en vol seront ignorés); tout changement annule les préchargements.
func (a *Aggregator) SetView(f Filter, active EntityType) {
	a.mu.Lock()
	changed := f.Identity() != a.filter.Identity()
	if changed {
		a.views = make(map[viewKey]*viewState)
	}
	changed = changed || active != a.active
	a.filter, a.active = f, active
	a.mu.Unlock()

	if changed && a.prefetcher != nil {
		a.prefetcher.Cancel()
	}
}

// ShouldLoadMore ne regarde QUE le curseur du type actif de la dernière page:
// des données restantes sur un autre type ne déclenchent pas de fetch ici.
func (a *Aggregator) ShouldLoadMore() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return false
	}
	_, st := a.stateLocked(a.filter, a.active)
	return st.cursors == nil || st.cursors.HasMore(a.active)
}

// LoadMore demande la page suivante de la vue active. Renvoie false sans
// erreur quand la demande est absorbée (fetch en vol, cooldown, type épuisé,
// résultat d'une identité invalidée).
func (a *Aggregator) LoadMore(ctx context.Context) (bool, error) {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return false, ErrClosed
	}
	f, t := a.filter, a.active
	key, st := a.stateLocked(f, t)
	if st.fetching {
		a.mu.Unlock()
		return false, nil
	}
	if st.cursors != nil && !st.cursors.HasMore(t) {
		a.mu.Unlock()
		return false, nil
	}
	if !st.lastDone.IsZero() && a.clock.Now().Sub(st.lastDone) < a.cooldown {
		a.mu.Unlock()
		return false, nil
	}
	st.fetching = true
	req := Request{Filter: f, ActiveType: t, Limit: a.firstLimit}
	if st.cursors != nil {
		c := *st.cursors
		req.Cursors = &c
		req.Limit = a.nextLimit
	}
	a.mu.Unlock()

	page, err := a.fetcher.Fetch(ctx, req)

	a.mu.Lock()
	st.fetching = false
	st.lastDone = a.clock.Now()
	live := !a.closed && a.views[key] == st
	if err != nil {
		st.err = err
		a.mu.Unlock()
		return false, err
	}
	if !live {
		a.mu.Unlock()
		slog.Debug("discarding page for stale view", "type", t)
		return false, nil
	}
	first := st.cursors == nil
	st.err = nil
	st.pages = append(st.pages, page.Items(t))
	next := page.Cursors
	st.cursors = &next
	schedule := first && a.prefetcher != nil && a.active == t && a.filter.Identity() == key.filter
	a.mu.Unlock()

	if schedule {
		a.prefetcher.Schedule(f, t)
	}
	return true, nil
}

// prefetch charge la première page de (f, t) si elle n'est ni chargée ni en cours.
func (a *Aggregator) prefetch(ctx context.Context, f Filter, t EntityType) error {
	a.mu.Lock()
	if a.closed || f.Identity() != a.filter.Identity() {
		a.mu.Unlock()
		return nil
	}
	key, st := a.stateLocked(f, t)
	if st.fetching || st.cursors != nil {
		a.mu.Unlock()
		return nil
	}
	st.fetching = true
	a.mu.Unlock()

	page, err := a.fetcher.Fetch(ctx, Request{Filter: f, ActiveType: t, Limit: a.firstLimit})

	a.mu.Lock()
	defer a.mu.Unlock()
	st.fetching = false
	st.lastDone = a.clock.Now()
	if err != nil {
		return err
	}
	if a.closed || a.views[key] != st {
		return nil
	}
	st.pages = append(st.pages, page.Items(t))
	next := page.Cursors
	st.cursors = &next
	return nil
}

// Refresh recharge la première page de la vue active (les pages
// précédentes et un éventuel fetch en vol sont abandonnés).
func (a *Aggregator) Refresh(ctx context.Context) (bool, error) {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return false, ErrClosed
	}
	key := viewKey{filter: a.filter.Identity(), t: a.active}
	a.views[key] = &viewState{filter: a.filter, t: a.active}
	a.mu.Unlock()
	return a.LoadMore(ctx)
}

// Items renvoie la liste rendue de la vue active: dédoublonnée, filtrée par
// statut et par l'overlay (masqués / bloqués).
func (a *Aggregator) Items() []FeedItem {
	a.mu.Lock()
	_, st := a.stateLocked(a.filter, a.active)
	pages := make([][]FeedItem, len(st.pages))
	copy(pages, st.pages)
	allowed := a.filter.statusesFor(a.active)
	overlay := a.overlay
	a.mu.Unlock()

	items := Dedup(pages, allowed)
	if overlay == nil {
		return items
	}
	visible := items[:0]
	for _, it := range items {
		if overlay.Hidden(it.ID) || (it.OwnerID != "" && overlay.Blocked(it.OwnerID)) {
			continue
		}
		visible = append(visible, it)
	}
	return visible
}

func (a *Aggregator) Status() ViewStatus {
	a.mu.Lock()
	defer a.mu.Unlock()
	_, st := a.stateLocked(a.filter, a.active)
	return ViewStatus{
		Loading: st.fetching,
		HasMore: st.cursors == nil || st.cursors.HasMore(a.active),
		Pages:   len(st.pages),
		Err:     st.err,
	}
}

// Watch consomme les signaux de scroll jusqu'à l'annulation du contexte
// (démontage de la vue) ou la fermeture du canal.
func (a *Aggregator) Watch(ctx context.Context, triggers <-chan struct{}) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case _, ok := <-triggers:
			if !ok {
				return nil
			}
			if !a.ShouldLoadMore() {
				continue
			}
			if _, err := a.LoadMore(ctx); err != nil {
				if errors.Is(err, ErrClosed) {
					return err
				}
				slog.Warn("⚠️ load more failed", "error", err)
			}
		}
	}
}

// Close démonte le contrôleur et le préchargement.
func (a *Aggregator) Close() {
	a.mu.Lock()
	a.closed = true
	a.views = make(map[viewKey]*viewState)
	a.mu.Unlock()
	if a.prefetcher != nil {
		a.prefetcher.Close()
	}
}
