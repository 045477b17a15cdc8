package explore

import "time"

// Timer est un minuteur annulable. Stop renvoie false si le callback a déjà été déclenché.
type Timer interface {
	Stop() bool
}

// Clock abstrait l'horloge et la primitive "idle/yield" de la plateforme,
// pour tester le stagger et l'annulation sans vraie boucle d'événements.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

type systemClock struct{}

// SystemClock renvoie l'horloge réelle (time.AfterFunc).
func SystemClock() Clock { return systemClock{} }

func (systemClock) Now() time.Time { return time.Now() }

func (systemClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}
