package eventbroker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"github.com/neon-kni6ht/social-media-api/internal/core/domain"
	"github.com/neon-kni6ht/social-media-api/internal/core/ports"
)

var eventsPublished = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "social_events_published_total",
		Help: "Events published to JetStream, by subject and result",
	},
	[]string{"subject", "result"},
)

// RegisterMetrics enregistre les compteurs du broker. Appelé depuis main.go.
func RegisterMetrics(reg prometheus.Registerer) {
	reg.MustRegister(eventsPublished)
}

// msgPublisher est le sous-ensemble de jetstream.JetStream utilisé ici.
type msgPublisher interface {
	PublishMsg(ctx context.Context, msg *nats.Msg, opts ...jetstream.PublishOpt) (*jetstream.PubAck, error)
}

type NatsBroker struct {
	js msgPublisher
}

var _ ports.EventPublisher = (*NatsBroker)(nil)

// NewNatsBroker s'assure que le stream existe (idempotent) et renvoie le publisher.
func NewNatsBroker(ctx context.Context, nc *nats.Conn) (*NatsBroker, jetstream.JetStream, error) {
	js, err := jetstream.New(nc)
	if err != nil {
		return nil, nil, fmt.Errorf("jetstream init: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	_, err = js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:       StreamName,
		Subjects:   streamSubjects,
		Storage:    jetstream.FileStorage,
		Replicas:   1,
		Duplicates: 2 * time.Minute,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("create stream: %w", err)
	}
	return &NatsBroker{js: js}, js, nil
}

func (n *NatsBroker) PublishUserRegistered(ctx context.Context, u *domain.User) error {
	return n.publish(ctx, SubjectUserRegistered, u.ID, UserRegisteredEvent{
		UserID:       u.ID,
		Username:     u.Username,
		Email:        u.Email,
		RegisteredAt: u.RegisteredAt,
	})
}

func (n *NatsBroker) PublishPostCreated(ctx context.Context, p *domain.Post) error {
	return n.publish(ctx, SubjectPostCreated, p.ID, PostCreatedEvent{
		ID:        p.ID,
		AuthorID:  p.AuthorID,
		Headline:  p.Headline,
		CreatedAt: p.CreatedAt,
	})
}

// PublishEdgeChanged : pas de Msg-Id, une arête peut légitimement être ajoutée, retirée puis rajoutée.
func (n *NatsBroker) PublishEdgeChanged(ctx context.Context, c domain.EdgeChange) error {
	return n.publish(ctx, SubjectEdgePrefix+string(c.Op), "", EdgeChangedEvent{
		Op:        string(c.Op),
		Kind:      string(c.Edge.Kind),
		SubjectID: c.Edge.SubjectID,
		ObjectID:  c.Edge.ObjectID,
		CreatedAt: c.Edge.CreatedAt,
	})
}

func (n *NatsBroker) PublishRelationEvent(ctx context.Context, m *domain.Message) error {
	return n.publish(ctx, SubjectMessagePrefix+string(m.Type), m.ID, RelationEvent{
		ID:          m.ID,
		Type:        string(m.Type),
		SenderID:    m.SenderID,
		RecipientID: m.RecipientID,
		CreatedAt:   m.CreatedAt,
	})
}

func (n *NatsBroker) publish(ctx context.Context, subject, msgID string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", subject, err)
	}

	msg := &nats.Msg{Subject: subject, Data: data, Header: nats.Header{}}
	// Propagation du trace ID vers les consumers
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(msg.Header))

	var opts []jetstream.PublishOpt
	if msgID != "" {
		opts = append(opts, jetstream.WithMsgID(msgID))
	}

	ack, err := n.js.PublishMsg(ctx, msg, opts...)
	if err != nil {
		eventsPublished.WithLabelValues(subject, "error").Inc()
		return fmt.Errorf("nats publish %s: %w", subject, err)
	}
	eventsPublished.WithLabelValues(subject, "ok").Inc()
	slog.Debug("event published", "subject", subject, "seq", ack.Sequence)
	return nil
}
