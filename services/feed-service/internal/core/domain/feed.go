package domain

import (
	"errors"

	"github.com/lytDeveloper/Lyt-sub003/pkg/explore"
)

var ErrInvalidQuery = errors.New("invalid explore query")

// KnownStatuses est l'ensemble des statuts acceptés dans un filtre.
var KnownStatuses = explore.StatusSet{
	explore.StatusDraft,
	explore.StatusOpen,
	explore.StatusInProgress,
	explore.StatusCompleted,
	explore.StatusActive,
}

// CatalogChanged est publié (sujet "catalog.<type>.changed") quand un projet,
// une collaboration ou un partenaire est créé, modifié ou change de statut.
type CatalogChanged struct {
	Type explore.EntityType `json:"type"`
	ID   string             `json:"id"`
}
