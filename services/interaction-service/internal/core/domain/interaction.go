package domain

import (
	"errors"
	"time"

	"github.com/lytDeveloper/Lyt-sub003/pkg/preference"
)

var ErrUnauthenticated = errors.New("unauthenticated")

// InteractionCreated est publié sur "interaction.<kind>.created" pour les
// likes et les follows (canal de notification, sans garantie de livraison).
type InteractionCreated struct {
	EventID    string                    `json:"event_id"`
	UserID     string                    `json:"user_id"`
	TargetID   string                    `json:"target_id"`
	TargetType preference.TargetType     `json:"target_type"`
	Kind       preference.Kind           `json:"kind"`
	Actor      *preference.ActorSnapshot `json:"actor,omitempty"`
	CreatedAt  time.Time                 `json:"created_at"`
}

// Subject renvoie le sujet NATS de l'event, ex: "interaction.like.created".
func (e InteractionCreated) Subject() string {
	return "interaction." + string(e.Kind) + ".created"
}

// Notifies indique si une création de ce type déclenche une notification.
func Notifies(k preference.Kind) bool {
	return k == preference.KindLike || k == preference.KindFollow
}

// Relation est l'arête miroir dans le graphe social.
type Relation string

const (
	RelFollows Relation = "FOLLOWS"
	RelBlocks  Relation = "BLOCKS"
)

// RelationFor renvoie l'arête à refléter pour un type de préférence.
func RelationFor(k preference.Kind) (Relation, bool) {
	switch k {
	case preference.KindFollow:
		return RelFollows, true
	case preference.KindBlock:
		return RelBlocks, true
	}
	return "", false
}
