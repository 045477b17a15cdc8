// Package explore contient le moteur de pagination du fil "Explorer":
// fetch par lots multi-types, curseurs par type, dédoublonnage, contrôleur
// de scroll infini et préchargement des vues inactives.
package explore

import (
	"slices"
	"strings"
	"time"
)

type EntityType string

const (
	TypeProject       EntityType = "project"
	TypeCollaboration EntityType = "collaboration"
	TypePartner       EntityType = "partner"
)

// AllTypes est l'ordre canonique des flux (aussi l'ordre de préchargement).
var AllTypes = []EntityType{TypeProject, TypeCollaboration, TypePartner}

func (t EntityType) Valid() bool {
	return slices.Contains(AllTypes, t)
}

type Status string

const (
	StatusDraft      Status = "draft"
	StatusOpen       Status = "open"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusActive     Status = "active" // Partner: toujours actif
)

// FeedItem est l'union taguée Project | Collaboration | Partner.
// Type porte le tag, les autres champs sont communs aux trois entités.
type FeedItem struct {
	Type      EntityType `json:"type"`
	ID        string     `json:"id"`
	OwnerID   string     `json:"owner_id,omitempty"`
	Title     string     `json:"title"`
	Category  string     `json:"category,omitempty"`
	Status    Status     `json:"status"`
	CreatedAt time.Time  `json:"created_at"`
}

// Key renvoie la clé d'ordre (created_at, id) de l'item.
func (i FeedItem) Key() Cursor {
	return Cursor{CreatedAt: i.CreatedAt, ID: i.ID}
}

// StatusSet est une allow-list de statuts. Vide = tout est autorisé.
type StatusSet []Status

func (s StatusSet) Allows(st Status) bool {
	return len(s) == 0 || slices.Contains(s, st)
}

// Filter décrit les critères d'une requête Explorer.
type Filter struct {
	Category    string
	Statuses    StatusSet
	SearchQuery string
}

// DefaultStatuses est la allow-list du fil principal.
var DefaultStatuses = StatusSet{StatusOpen, StatusInProgress}

// Identity renvoie une clé stable du filtre: deux filtres de même identité
// partagent la même lignée de curseurs. La catégorie est comparée telle quelle
// (égalité stricte côté SQL); la recherche est insensible à la casse (ILIKE).
func (f Filter) Identity() string {
	sts := make([]string, len(f.Statuses))
	for i, s := range f.Statuses {
		sts[i] = string(s)
	}
	slices.Sort(sts)
	sts = slices.Compact(sts)
	return strings.Join([]string{
		f.Category,
		strings.Join(sts, ","),
		strings.ToLower(strings.TrimSpace(f.SearchQuery)),
	}, "|")
}

// statusesFor renvoie la allow-list applicable à un type: les partenaires
// n'ont pas de cycle de vie, le filtre de statut ne les concerne pas.
func (f Filter) statusesFor(t EntityType) StatusSet {
	if t == TypePartner {
		return nil
	}
	return f.Statuses
}

// PageResult est une page multi-types. Un curseur est présent pour un type
// si et seulement si d'autres items de ce type peuvent exister en amont.
type PageResult struct {
	Projects       []FeedItem
	Collaborations []FeedItem
	Partners       []FeedItem
	Cursors        Cursors
}

func (p PageResult) Items(t EntityType) []FeedItem {
	switch t {
	case TypeProject:
		return p.Projects
	case TypeCollaboration:
		return p.Collaborations
	case TypePartner:
		return p.Partners
	}
	return nil
}

func (p *PageResult) setItems(t EntityType, items []FeedItem) {
	switch t {
	case TypeProject:
		p.Projects = items
	case TypeCollaboration:
		p.Collaborations = items
	case TypePartner:
		p.Partners = items
	}
}
