package preference

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

type memberSet map[string]struct{}

type writeKey struct {
	pair   Pair
	target string
}

// Store est le conteneur d'état injectable de la session. Les ensembles ne
// sont jamais modifiés en place: chaque bascule publie une copie.
type Store struct {
	gateway Gateway
	cache   LocalCache
	now     func() time.Time

	mu         sync.Mutex
	userID     string
	sets       map[Pair]memberSet
	generation uint64
	hydrated   bool
	tails      map[writeKey]chan struct{}
	localTails map[writeKey]chan struct{}

	// localMu sérialise les écritures du cache local hors de mu: les lectures
	// synchrones (IsMember, Hidden...) n'attendent jamais un aller-retour.
	localMu sync.Mutex

	flight singleflight.Group
}

type StoreOption func(*Store)

// WithLocalCache branche un cache durable local (sqlite, redis...).
func WithLocalCache(c LocalCache) StoreOption { return func(s *Store) { s.cache = c } }

func WithNow(now func() time.Time) StoreOption { return func(s *Store) { s.now = now } }

// ToggleOption complète l'enregistrement envoyé au service distant.
type ToggleOption func(*Record)

// WithReason joint un motif à la création (masquage, blocage...).
func WithReason(reason string) ToggleOption { return func(r *Record) { r.Reason = reason } }

func NewStore(gateway Gateway, opts ...StoreOption) *Store {
	s := &Store{
		gateway: gateway,
		now:     time.Now,
		sets:    make(map[Pair]memberSet),
		tails:      make(map[writeKey]chan struct{}),
		localTails: make(map[writeKey]chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// UserID renvoie l'utilisateur de la session, vide avant Restore/Initialize.
func (s *Store) UserID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.userID
}

func (s *Store) Hydrated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hydrated
}

func (s *Store) IsMember(kind Kind, targetType TargetType, targetID string) bool {
	s.mu.Lock()
	set := s.sets[Pair{Kind: kind, TargetType: targetType}]
	s.mu.Unlock()
	_, ok := set[targetID]
	return ok
}

// Members renvoie les IDs triés d'un ensemble.
func (s *Store) Members(kind Kind, targetType TargetType) []string {
	s.mu.Lock()
	set := s.sets[Pair{Kind: kind, TargetType: targetType}]
	s.mu.Unlock()
	out := make([]string, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	slices.Sort(out)
	return out
}

// Hidden est vrai si l'utilisateur a masqué ce contenu, quel que soit son type.
func (s *Store) Hidden(targetID string) bool {
	for _, t := range KindHide.Targets() {
		if s.IsMember(KindHide, t, targetID) {
			return true
		}
	}
	return false
}

func (s *Store) Blocked(userID string) bool {
	return s.IsMember(KindBlock, TargetUser, userID)
}

// Toggle bascule l'appartenance de targetID et renvoie le nouvel état.
// L'état local est à jour au retour; l'écriture distante part en arrière-plan
// et les écritures d'une même cible sont appliquées dans l'ordre des bascules.
// Un échec distant est journalisé sans retour arrière.
func (s *Store) Toggle(ctx context.Context, kind Kind, targetType TargetType, targetID string, actor *ActorSnapshot, opts ...ToggleOption) (bool, error) {
	s.mu.Lock()
	userID := s.userID
	if userID == "" {
		s.mu.Unlock()
		return false, ErrNotInitialized
	}
	rec := Record{
		UserID:     userID,
		TargetID:   targetID,
		TargetType: targetType,
		Kind:       kind,
		Actor:      actor,
		CreatedAt:  s.now(),
	}
	for _, opt := range opts {
		opt(&rec)
	}
	if err := rec.Validate(); err != nil {
		s.mu.Unlock()
		return false, err
	}

	p := rec.Pair()
	cur := s.sets[p]
	_, was := cur[targetID]
	member := !was

	next := make(memberSet, len(cur)+1)
	for id := range cur {
		next[id] = struct{}{}
	}
	if member {
		next[targetID] = struct{}{}
	} else {
		delete(next, targetID)
	}
	s.sets[p] = next

	key := writeKey{pair: p, target: targetID}
	prev := s.tails[key]
	done := make(chan struct{})
	s.tails[key] = done
	gen := s.generation
	var localPrev, localDone chan struct{}
	if s.cache != nil {
		localPrev = s.localTails[key]
		localDone = make(chan struct{})
		s.localTails[key] = localDone
	}
	s.mu.Unlock()

	if s.cache != nil {
		s.writeLocal(ctx, key, localPrev, localDone, userID, gen, member)
	}
	go s.writeRemote(context.WithoutCancel(ctx), key, prev, done, rec, member)
	return member, nil
}

// writeLocal applique la bascule au cache durable dans l'ordre des bascules
// d'une même cible. Ignorée si la session a changé entre-temps (Clear).
func (s *Store) writeLocal(ctx context.Context, key writeKey, prev, done chan struct{}, userID string, gen uint64, member bool) {
	defer func() {
		s.mu.Lock()
		if s.localTails[key] == done {
			delete(s.localTails, key)
		}
		s.mu.Unlock()
		close(done)
	}()
	if prev != nil {
		<-prev
	}

	s.localMu.Lock()
	defer s.localMu.Unlock()
	s.mu.Lock()
	stale := s.generation != gen
	s.mu.Unlock()
	if stale {
		return
	}
	if err := s.cache.Put(ctx, userID, key.pair, key.target, member); err != nil {
		slog.Warn("⚠️ local preference cache write failed", "pair", key.pair.String(), "target_id", key.target, "error", err)
	}
}

func (s *Store) writeRemote(ctx context.Context, key writeKey, prev, done chan struct{}, rec Record, member bool) {
	defer func() {
		s.mu.Lock()
		if s.tails[key] == done {
			delete(s.tails, key)
		}
		s.mu.Unlock()
		close(done)
	}()
	if prev != nil {
		<-prev
	}

	if member {
		res, err := s.gateway.Create(ctx, rec)
		if err != nil {
			slog.Error("❌ remote preference create failed", "pair", rec.Pair().String(), "target_id", rec.TargetID, "error", err)
			return
		}
		slog.Debug("preference created", "pair", rec.Pair().String(), "target_id", rec.TargetID, "result", res.String())
		return
	}
	if err := s.gateway.Delete(ctx, rec.UserID, rec.TargetID, rec.TargetType, rec.Kind); err != nil {
		slog.Error("❌ remote preference delete failed", "pair", rec.Pair().String(), "target_id", rec.TargetID, "error", err)
	}
}

// Flush attend la fin des écritures distantes lancées avant l'appel.
func (s *Store) Flush(ctx context.Context) error {
	s.mu.Lock()
	pending := make([]chan struct{}, 0, len(s.tails))
	for _, ch := range s.tails {
		pending = append(pending, ch)
	}
	s.mu.Unlock()

	for _, ch := range pending {
		select {
		case <-ch:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// Initialize remplace tout l'état par celui du service distant (pas de
// fusion). Les appels concurrents pour le même utilisateur partagent une
// seule hydratation; un résultat arrivé après Clear est ignoré.
func (s *Store) Initialize(ctx context.Context, userID string) error {
	if userID == "" {
		return ErrNotInitialized
	}
	s.mu.Lock()
	if s.userID != userID {
		s.generation++
		s.userID = userID
		s.sets = make(map[Pair]memberSet)
		s.hydrated = false
	}
	gen := s.generation
	s.mu.Unlock()

	key := fmt.Sprintf("%s#%d", userID, gen)
	_, err, _ := s.flight.Do(key, func() (any, error) {
		return nil, s.hydrate(ctx, userID, gen)
	})
	return err
}

func (s *Store) hydrate(ctx context.Context, userID string, gen uint64) error {
	pairs := Pairs()
	members := make([][]string, len(pairs))
	g, gctx := errgroup.WithContext(ctx)
	for i, p := range pairs {
		g.Go(func() error {
			ids, err := s.gateway.ListMembers(gctx, userID, p.TargetType, p.Kind)
			if err != nil {
				return fmt.Errorf("list %s: %w", p, err)
			}
			members[i] = ids
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	snap := make(Snapshot, len(pairs))
	sets := make(map[Pair]memberSet, len(pairs))
	for i, p := range pairs {
		snap[p] = members[i]
		set := make(memberSet, len(members[i]))
		for _, id := range members[i] {
			set[id] = struct{}{}
		}
		sets[p] = set
	}

	// localMu avant mu, comme writeLocal
	s.localMu.Lock()
	defer s.localMu.Unlock()
	s.mu.Lock()
	if s.generation != gen || s.userID != userID {
		s.mu.Unlock()
		slog.Debug("discarding stale preference hydration", "user_id", userID)
		return nil
	}
	s.sets = sets
	s.hydrated = true
	s.mu.Unlock()

	if s.cache != nil {
		if err := s.cache.Replace(ctx, userID, snap); err != nil {
			slog.Warn("⚠️ local preference cache replace failed", "user_id", userID, "error", err)
		}
	}
	slog.Info("✅ preferences hydrated", "user_id", userID)
	return nil
}

// Restore charge l'instantané du cache local pour un démarrage à chaud.
// Sans effet si une hydratation distante a déjà eu lieu pour cet utilisateur.
func (s *Store) Restore(ctx context.Context, userID string) error {
	if userID == "" {
		return ErrNotInitialized
	}
	s.mu.Lock()
	if s.userID == userID && s.hydrated {
		s.mu.Unlock()
		return nil
	}
	if s.userID != userID {
		s.generation++
		s.userID = userID
		s.sets = make(map[Pair]memberSet)
	}
	gen := s.generation
	s.mu.Unlock()

	if s.cache == nil {
		return nil
	}
	snap, err := s.cache.Load(ctx, userID)
	if err != nil {
		return fmt.Errorf("load local preferences: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generation != gen || s.hydrated {
		return nil
	}
	sets := make(map[Pair]memberSet, len(snap))
	for p, ids := range snap {
		set := make(memberSet, len(ids))
		for _, id := range ids {
			set[id] = struct{}{}
		}
		sets[p] = set
	}
	s.sets = sets
	return nil
}

// Clear vide la session (déconnexion) et supprime le cache local.
// Une hydratation encore en cours sera ignorée.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	userID := s.userID
	s.generation++
	s.userID = ""
	s.sets = make(map[Pair]memberSet)
	s.hydrated = false
	s.mu.Unlock()

	if s.cache == nil || userID == "" {
		return nil
	}
	s.localMu.Lock()
	defer s.localMu.Unlock()
	if err := s.cache.Clear(ctx, userID); err != nil {
		return fmt.Errorf("clear local preferences: %w", err)
	}
	return nil
}
