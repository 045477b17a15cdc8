// Package preference garde en mémoire, pour l'utilisateur de la session, ce
// qu'il a aimé, suivi, masqué ou bloqué. Les bascules sont optimistes: l'état
// local change tout de suite, l'écriture distante suit en arrière-plan.
package preference

import (
	"errors"
	"slices"
	"time"
)

var (
	ErrSelfTarget     = errors.New("cannot target yourself")
	ErrNotInitialized = errors.New("preference store has no session")
	ErrInvalidTarget  = errors.New("invalid preference target")
)

type Kind string

const (
	KindLike   Kind = "like"
	KindFollow Kind = "follow"
	KindHide   Kind = "hide"
	KindBlock  Kind = "block"
)

var Kinds = []Kind{KindLike, KindFollow, KindHide, KindBlock}

type TargetType string

const (
	TargetProject       TargetType = "project"
	TargetCollaboration TargetType = "collaboration"
	TargetPartner       TargetType = "partner"
	TargetUser          TargetType = "user"
)

var contentTargets = []TargetType{TargetProject, TargetCollaboration, TargetPartner}

// Targets renvoie les types de cible acceptés par k.
func (k Kind) Targets() []TargetType {
	switch k {
	case KindLike, KindHide:
		return contentTargets
	case KindFollow, KindBlock:
		return []TargetType{TargetUser}
	default:
		return nil
	}
}

func (k Kind) Valid() bool { return len(k.Targets()) > 0 }

func (k Kind) Allows(t TargetType) bool { return slices.Contains(k.Targets(), t) }

// ForbidsSelf: on peut masquer son propre contenu, pas se liker, se suivre ni se bloquer.
func (k Kind) ForbidsSelf() bool { return k != KindHide }

// Pair identifie un ensemble de l'instantané (ex: like/partner).
type Pair struct {
	Kind       Kind       `json:"kind"`
	TargetType TargetType `json:"target_type"`
}

func (p Pair) String() string { return string(p.Kind) + "/" + string(p.TargetType) }

// Pairs énumère tous les ensembles tenus par le store.
func Pairs() []Pair {
	var out []Pair
	for _, k := range Kinds {
		for _, t := range k.Targets() {
			out = append(out, Pair{Kind: k, TargetType: t})
		}
	}
	return out
}

// ActorSnapshot est figé au moment de l'action et transmis tel quel à
// l'écriture distante, pour que les notifications n'aient pas à le résoudre.
type ActorSnapshot struct {
	Role        string `json:"role,omitempty"`
	DisplayName string `json:"display_name,omitempty"`
	AvatarURL   string `json:"avatar_url,omitempty"`
}

// Record est un enregistrement de préférence: au plus un par
// (UserID, TargetID, TargetType, Kind).
type Record struct {
	UserID     string         `json:"user_id"`
	TargetID   string         `json:"target_id"`
	TargetType TargetType     `json:"target_type"`
	Kind       Kind           `json:"kind"`
	Reason     string         `json:"reason,omitempty"`
	Actor      *ActorSnapshot `json:"actor,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
}

func (r Record) Pair() Pair { return Pair{Kind: r.Kind, TargetType: r.TargetType} }

// Validate applique la matrice kind/type et l'interdiction de se cibler soi-même.
func (r Record) Validate() error {
	if r.UserID == "" || r.TargetID == "" || !r.Kind.Allows(r.TargetType) {
		return ErrInvalidTarget
	}
	if r.Kind.ForbidsSelf() && r.UserID == r.TargetID {
		return ErrSelfTarget
	}
	return nil
}

// CreateResult distingue une création d'un doublon; un doublon n'est pas une erreur.
type CreateResult int

const (
	Created CreateResult = iota
	AlreadyExists
)

func (r CreateResult) String() string {
	if r == AlreadyExists {
		return "already_exists"
	}
	return "created"
}

// Snapshot contient les IDs membres de chaque ensemble.
type Snapshot map[Pair][]string
