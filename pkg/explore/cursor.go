package explore

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var ErrInvalidCursor = errors.New("invalid cursor")

// startToken encode le curseur "début de séquence" sur le fil.
const startToken = "start"

// Cursor marque un point de reprise dans la séquence ordonnée d'un type:
// (CreatedAt, ID) du dernier item servi. La valeur zéro = début de séquence.
type Cursor struct {
	CreatedAt time.Time
	ID        string
}

func (c Cursor) IsStart() bool {
	return c.ID == "" && c.CreatedAt.IsZero()
}

// Before indique si la clé k se trouve strictement après c dans l'ordre
// décroissant (created_at DESC, id DESC), c'est-à-dire "plus vieille".
func (c Cursor) Before(k Cursor) bool {
	if c.IsStart() {
		return true
	}
	if !k.CreatedAt.Equal(c.CreatedAt) {
		return k.CreatedAt.Before(c.CreatedAt)
	}
	return k.ID < c.ID
}

// Encode produit le jeton opaque transmis aux clients.
// Format interne: base64url("<unix_nano>:<id>").
func (c Cursor) Encode() string {
	if c.IsStart() {
		return startToken
	}
	raw := strconv.FormatInt(c.CreatedAt.UnixNano(), 10) + ":" + c.ID
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

func ParseCursor(token string) (Cursor, error) {
	if token == startToken {
		return Cursor{}, nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return Cursor{}, fmt.Errorf("%w: %v", ErrInvalidCursor, err)
	}
	nanos, id, ok := strings.Cut(string(raw), ":")
	if !ok || id == "" {
		return Cursor{}, ErrInvalidCursor
	}
	n, err := strconv.ParseInt(nanos, 10, 64)
	if err != nil {
		return Cursor{}, fmt.Errorf("%w: %v", ErrInvalidCursor, err)
	}
	return Cursor{CreatedAt: time.Unix(0, n).UTC(), ID: id}, nil
}

// Cursors est l'état de pagination (FeedCursorState) partitionné par type.
// nil pour un type = ce type est épuisé.
type Cursors struct {
	Projects       *Cursor
	Collaborations *Cursor
	Partners       *Cursor
}

// StartCursors renvoie l'état "première page" pour les trois types.
func StartCursors() Cursors {
	return Cursors{Projects: &Cursor{}, Collaborations: &Cursor{}, Partners: &Cursor{}}
}

func (c Cursors) For(t EntityType) *Cursor {
	switch t {
	case TypeProject:
		return c.Projects
	case TypeCollaboration:
		return c.Collaborations
	case TypePartner:
		return c.Partners
	}
	return nil
}

func (c *Cursors) Set(t EntityType, cur *Cursor) {
	switch t {
	case TypeProject:
		c.Projects = cur
	case TypeCollaboration:
		c.Collaborations = cur
	case TypePartner:
		c.Partners = cur
	}
}

// HasMore indique si le type t peut encore produire des items.
func (c Cursors) HasMore(t EntityType) bool {
	return c.For(t) != nil
}

// Tokens renvoie les jetons encodés par type (absents si épuisé).
func (c Cursors) Tokens() map[EntityType]string {
	out := make(map[EntityType]string, len(AllTypes))
	for _, t := range AllTypes {
		if cur := c.For(t); cur != nil {
			out[t] = cur.Encode()
		}
	}
	return out
}

// CursorsFromTokens reconstruit l'état depuis des jetons; un type absent est épuisé.
func CursorsFromTokens(tokens map[EntityType]string) (Cursors, error) {
	var c Cursors
	for _, t := range AllTypes {
		tok, ok := tokens[t]
		if !ok || tok == "" {
			continue
		}
		cur, err := ParseCursor(tok)
		if err != nil {
			return Cursors{}, fmt.Errorf("%s cursor: %w", t, err)
		}
		c.Set(t, &cur)
	}
	return c, nil
}
