package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/neon-kni6ht/social-media-api/internal/adapters/secondary/eventbroker"
	"github.com/neon-kni6ht/social-media-api/internal/core/ports"
)

const (
	ConsumerName = "graph-projection"
	maxDeliver   = 5
)

var eventsConsumed = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "social_edge_events_consumed_total",
		Help: "Edge events handled by the graph projection consumer, by outcome",
	},
	[]string{"outcome"},
)

func RegisterMetrics(reg prometheus.Registerer) {
	reg.MustRegister(eventsConsumed)
}

// errPoison marque un message qu'aucune relivraison ne pourra traiter.
var errPoison = errors.New("poison message")

// EdgeHandler rejoue les changements d'arêtes dans la projection graphe.
type EdgeHandler struct {
	graph  ports.GraphProjection
	tracer trace.Tracer
}

func NewEdgeHandler(graph ports.GraphProjection) *EdgeHandler {
	return &EdgeHandler{graph: graph, tracer: otel.Tracer("social-media-api/events")}
}

// Run attache un consumer durable et bloque jusqu'à l'annulation de ctx.
func (h *EdgeHandler) Run(ctx context.Context, js jetstream.JetStream) error {
	cons, err := js.CreateOrUpdateConsumer(ctx, eventbroker.StreamName, jetstream.ConsumerConfig{
		Durable:       ConsumerName,
		FilterSubject: eventbroker.SubjectEdgeWildcard,
		AckPolicy:     jetstream.AckExplicitPolicy,
		AckWait:       30 * time.Second,
		MaxDeliver:    maxDeliver,
	})
	if err != nil {
		return fmt.Errorf("create consumer: %w", err)
	}

	cc, err := cons.Consume(func(msg jetstream.Msg) {
		h.dispatch(ctx, msg)
	})
	if err != nil {
		return fmt.Errorf("consume: %w", err)
	}
	slog.Info("📥 Edge consumer started", "consumer", ConsumerName, "subject", eventbroker.SubjectEdgeWildcard)

	<-ctx.Done()
	cc.Stop()
	slog.Info("Edge consumer stopped")
	return nil
}

func (h *EdgeHandler) dispatch(ctx context.Context, msg jetstream.Msg) {
	var seq uint64
	if meta, err := msg.Metadata(); err == nil {
		seq = meta.Sequence.Stream
	}
	err := h.Handle(ctx, msg.Subject(), seq, msg.Headers(), msg.Data())
	switch {
	case err == nil:
		eventsConsumed.WithLabelValues("applied").Inc()
		_ = msg.Ack()
	case errors.Is(err, errPoison):
		eventsConsumed.WithLabelValues("poison").Inc()
		slog.Error("❌ Dropping invalid edge event", "subject", msg.Subject(), "error", err)
		_ = msg.Term()
	default:
		eventsConsumed.WithLabelValues("retry").Inc()
		slog.Warn("Edge projection failed, will retry", "subject", msg.Subject(), "error", err)
		_ = msg.NakWithDelay(time.Second)
	}
}

// Handle décode et applique un événement. seq est la séquence du stream : la projection
// s'en sert pour ignorer un changement relivré après un plus récent sur la même paire.
// Les erreurs errPoison ne doivent pas être relivrées.
func (h *EdgeHandler) Handle(ctx context.Context, subject string, seq uint64, header nats.Header, data []byte) error {
	// Le contexte de trace vient du publisher (headers NATS)
	if header != nil {
		ctx = otel.GetTextMapPropagator().Extract(ctx, propagation.HeaderCarrier(header))
	}
	ctx, span := h.tracer.Start(ctx, "project_edge_change", trace.WithSpanKind(trace.SpanKindConsumer))
	defer span.End()
	span.SetAttributes(
		attribute.String("messaging.destination.name", subject),
		attribute.Int64("messaging.nats.stream.sequence", int64(seq)),
	)

	var ev eventbroker.EdgeChangedEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "decode")
		return fmt.Errorf("%w: %v", errPoison, err)
	}
	change, err := ev.ToEdgeChange()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid")
		return fmt.Errorf("%w: %v", errPoison, err)
	}
	change.Seq = seq

	applyCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := h.graph.Apply(applyCtx, change); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "apply")
		return err
	}

	slog.Debug("edge projected", "op", change.Op, "kind", change.Edge.Kind, "seq", seq,
		"subject_id", change.Edge.SubjectID, "object_id", change.Edge.ObjectID)
	return nil
}
