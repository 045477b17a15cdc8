package explore

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// ErrFetchFailed: la source amont est injoignable ou a rejeté la requête.
// Aucune page partielle n'est renvoyée, la requête peut être rejouée telle quelle.
var ErrFetchFailed = errors.New("fetch failed")

const (
	// Première page courte (latence perçue), pages suivantes plus longues (scroll).
	FirstPageLimit = 3
	NextPageLimit  = 10
	MaxPageLimit   = 50
)

// Request est la requête logique envoyée au BatchFetcher.
type Request struct {
	Filter Filter
	// Cursors est nil uniquement pour la toute première page d'une identité
	// (filtre, type actif). Ensuite on renvoie les curseurs de la page précédente tels quels.
	Cursors    *Cursors
	Limit      int
	ActiveType EntityType // vide = les trois types
}

// BatchFetcher renvoie une page contenant jusqu'à Limit items par type demandé.
type BatchFetcher interface {
	Fetch(ctx context.Context, req Request) (PageResult, error)
}

// Source est le port vers le stockage: une séquence par type, triée par
// (created_at DESC, id DESC), lue strictement après `after`.
type Source interface {
	List(ctx context.Context, t EntityType, f Filter, after Cursor, limit int) ([]FeedItem, error)
}

type pagedFetcher struct {
	source Source
}

// NewBatchFetcher construit le BatchFetcher au-dessus d'une Source.
func NewBatchFetcher(source Source) BatchFetcher {
	return &pagedFetcher{source: source}
}

func (p *pagedFetcher) Fetch(ctx context.Context, req Request) (PageResult, error) {
	if req.ActiveType != "" && !req.ActiveType.Valid() {
		return PageResult{}, fmt.Errorf("unknown entity type %q", req.ActiveType)
	}
	limit := clampLimit(req.Limit, req.Cursors == nil)

	in := StartCursors()
	if req.Cursors != nil {
		in = *req.Cursors
	}

	types := AllTypes
	if req.ActiveType != "" {
		types = []EntityType{req.ActiveType}
	}

	// Les types non demandés gardent leur curseur d'entrée: ils restent
	// utilisables par une autre requête (autre type actif).
	out := PageResult{Cursors: in}

	pages := make([][]FeedItem, len(types))
	next := make([]*Cursor, len(types))

	g, gctx := errgroup.WithContext(ctx)
	for i, t := range types {
		after := in.For(t)
		if after == nil {
			continue // épuisé
		}
		g.Go(func() error {
			// limit+1 : l'item en trop dit s'il reste des données
			items, err := p.source.List(gctx, t, Filter{
				Category:    req.Filter.Category,
				Statuses:    req.Filter.statusesFor(t),
				SearchQuery: req.Filter.SearchQuery,
			}, *after, limit+1)
			if err != nil {
				return fmt.Errorf("%w: %s: %w", ErrFetchFailed, t, err)
			}
			if len(items) > limit {
				items = items[:limit]
				last := items[len(items)-1].Key()
				next[i] = &last
			}
			pages[i] = items
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return PageResult{}, err
	}

	for i, t := range types {
		out.setItems(t, pages[i])
		out.Cursors.Set(t, next[i])
	}
	return out, nil
}

func clampLimit(limit int, first bool) int {
	if limit <= 0 {
		if first {
			return FirstPageLimit
		}
		return NextPageLimit
	}
	if limit > MaxPageLimit {
		return MaxPageLimit
	}
	return limit
}
