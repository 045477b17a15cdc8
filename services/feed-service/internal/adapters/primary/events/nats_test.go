package events

import (
	"context"
	"testing"

	"github.com/lytDeveloper/Lyt-sub003/pkg/explore"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
)

type recordingService struct {
	changed []explore.EntityType
}

func (r *recordingService) Explore(context.Context, explore.Request) (explore.PageResult, error) {
	return explore.PageResult{}, nil
}

func (r *recordingService) CatalogChanged(_ context.Context, t explore.EntityType) error {
	r.changed = append(r.changed, t)
	return nil
}

func TestHandleCatalogChanged(t *testing.T) {
	svc := &recordingService{}
	h := NewEventHandler(svc)

	h.HandleCatalogChanged(&nats.Msg{Subject: "catalog.project.changed", Data: []byte(`{"type":"project","id":"p-1"}`)})
	// payload vide : le type vient du sujet
	h.HandleCatalogChanged(&nats.Msg{Subject: "catalog.partner.changed", Header: nats.Header{}})
	// payload invalide : ignoré
	h.HandleCatalogChanged(&nats.Msg{Subject: "catalog.collaboration.changed", Data: []byte(`{`)})

	assert.Equal(t, []explore.EntityType{explore.TypeProject, explore.TypePartner}, svc.changed)
}

func TestTypeFromSubject(t *testing.T) {
	assert.Equal(t, explore.TypeCollaboration, typeFromSubject("catalog.collaboration.changed"))
	assert.Equal(t, explore.EntityType(""), typeFromSubject("catalog.changed"))
}
