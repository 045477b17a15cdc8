package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"github.com/lytDeveloper/Lyt-sub003/pkg/explore"
	"github.com/lytDeveloper/Lyt-sub003/services/feed-service/internal/core/domain"
	"github.com/lytDeveloper/Lyt-sub003/services/feed-service/internal/core/ports"
	"github.com/nats-io/nats.go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// SubjectCatalogChanged couvre catalog.project.changed, catalog.partner.changed, ...
const SubjectCatalogChanged = "catalog.*.changed"

type EventHandler struct {
	service ports.ExploreService
	timeout time.Duration
}

func NewEventHandler(service ports.ExploreService) *EventHandler {
	return &EventHandler{service: service, timeout: 5 * time.Second}
}

// Subscribe branche le handler sur la connexion NATS.
func (h *EventHandler) Subscribe(nc *nats.Conn) (*nats.Subscription, error) {
	return nc.Subscribe(SubjectCatalogChanged, h.HandleCatalogChanged)
}

func (h *EventHandler) HandleCatalogChanged(msg *nats.Msg) {
	// 1. Contexte de trace venant du producteur
	ctx := otel.GetTextMapPropagator().Extract(context.Background(), propagation.HeaderCarrier(msg.Header))

	ctx, span := otel.Tracer("feed-service").Start(ctx, "process_catalog_changed", trace.WithSpanKind(trace.SpanKindConsumer))
	defer span.End()

	// 2. Le type vient du payload, sinon du sujet
	var event domain.CatalogChanged
	if len(msg.Data) > 0 {
		if err := json.Unmarshal(msg.Data, &event); err != nil {
			span.RecordError(err)
			slog.Error("❌ Invalid event format", "subject", msg.Subject, "error", err)
			return
		}
	}
	if event.Type == "" {
		event.Type = typeFromSubject(msg.Subject)
	}
	span.SetAttributes(attribute.String("catalog.type", string(event.Type)))

	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	if err := h.service.CatalogChanged(ctx, event.Type); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		slog.Error("❌ Page cache invalidation failed", "type", event.Type, "error", err)
		return
	}
	slog.Debug("🧹 Page cache invalidated", "type", event.Type, "id", event.ID)
}

func typeFromSubject(subject string) explore.EntityType {
	parts := strings.Split(subject, ".")
	if len(parts) != 3 {
		return ""
	}
	return explore.EntityType(parts[1])
}
