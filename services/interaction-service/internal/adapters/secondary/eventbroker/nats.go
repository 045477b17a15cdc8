package eventbroker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/lytDeveloper/Lyt-sub003/services/interaction-service/internal/core/domain"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

const (
	StreamName     = "INTERACTION"
	SubjectPattern = "interaction.>" // interaction.like.created, interaction.follow.created
)

type NatsBroker struct {
	js jetstream.JetStream
}

// NewNatsBroker s'assure que le Stream existe (idempotent).
func NewNatsBroker(ctx context.Context, nc *nats.Conn) (*NatsBroker, error) {
	js, err := jetstream.New(nc)
	if err != nil {
		return nil, fmt.Errorf("jetstream init: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	_, err = js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:     StreamName,
		Subjects: []string{SubjectPattern},
		Storage:  jetstream.FileStorage,
		Replicas: 1, // 3 en cluster
		MaxAge:   7 * 24 * time.Hour,
	})
	if err != nil {
		return nil, fmt.Errorf("create stream: %w", err)
	}

	return &NatsBroker{js: js}, nil
}

func (n *NatsBroker) PublishInteractionCreated(ctx context.Context, evt domain.InteractionCreated) error {
	msg, err := newMessage(ctx, evt)
	if err != nil {
		return err
	}

	// MsgID : JetStream dédoublonne les republications du même event
	ack, err := n.js.PublishMsg(ctx, msg, jetstream.WithMsgID(evt.EventID))
	if err != nil {
		return fmt.Errorf("nats publish: %w", err)
	}
	slog.Debug("📢 Interaction event published", "subject", msg.Subject, "seq", ack.Sequence)
	return nil
}

// newMessage encode l'event et injecte le contexte de trace dans les headers.
func newMessage(ctx context.Context, evt domain.InteractionCreated) (*nats.Msg, error) {
	data, err := json.Marshal(evt)
	if err != nil {
		return nil, fmt.Errorf("marshal event: %w", err)
	}
	msg := &nats.Msg{
		Subject: evt.Subject(),
		Data:    data,
		Header:  nats.Header{},
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(msg.Header))
	return msg, nil
}
