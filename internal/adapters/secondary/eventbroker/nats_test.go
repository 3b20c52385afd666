package eventbroker

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/neon-kni6ht/social-media-api/internal/core/domain"
)

type fakeJS struct {
	msgs []*nats.Msg
	err  error
}

func (f *fakeJS) PublishMsg(_ context.Context, msg *nats.Msg, _ ...jetstream.PublishOpt) (*jetstream.PubAck, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.msgs = append(f.msgs, msg)
	return &jetstream.PubAck{Stream: StreamName, Sequence: uint64(len(f.msgs))}, nil
}

func TestNatsBroker_EdgeChangedRoundTrip(t *testing.T) {
	js := &fakeJS{}
	b := &NatsBroker{js: js}
	now := time.Date(2025, 2, 1, 10, 0, 0, 0, time.UTC)

	edge, err := domain.NewEdge(domain.KindFriendship, "b", "a", now)
	require.NoError(t, err)
	require.NoError(t, b.PublishEdgeChanged(context.Background(), domain.EdgeChange{Op: domain.EdgeAdded, Edge: edge}))

	require.Len(t, js.msgs, 1)
	assert.Equal(t, "social.edge.added", js.msgs[0].Subject)

	var ev EdgeChangedEvent
	require.NoError(t, json.Unmarshal(js.msgs[0].Data, &ev))
	change, err := ev.ToEdgeChange()
	require.NoError(t, err)
	assert.Equal(t, domain.EdgeAdded, change.Op)
	assert.Equal(t, "a", change.Edge.SubjectID)
	assert.True(t, now.Equal(change.Edge.CreatedAt))
}

func TestNatsBroker_SubjectsPerEvent(t *testing.T) {
	js := &fakeJS{}
	b := &NatsBroker{js: js}
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, b.PublishUserRegistered(ctx, &domain.User{ID: "u1", Username: "alice", RegisteredAt: now}))
	require.NoError(t, b.PublishPostCreated(ctx, &domain.Post{ID: "p1", AuthorID: "u1", Headline: "Hello", CreatedAt: now}))
	msg, err := domain.NewRelationEvent("u1", "u2", domain.FriendApprove, now)
	require.NoError(t, err)
	require.NoError(t, b.PublishRelationEvent(ctx, msg))

	subjects := make([]string, len(js.msgs))
	for i, m := range js.msgs {
		subjects[i] = m.Subject
	}
	assert.Equal(t, []string{"social.user.registered", "social.post.created", "social.message.FRIEND_APPROVE"}, subjects)
}

func TestNatsBroker_InjectsTraceContext(t *testing.T) {
	otel.SetTextMapPropagator(propagation.TraceContext{})
	js := &fakeJS{}
	b := &NatsBroker{js: js}

	traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	spanID, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
	sc := trace.NewSpanContext(trace.SpanContextConfig{TraceID: traceID, SpanID: spanID, TraceFlags: trace.FlagsSampled})
	ctx := trace.ContextWithSpanContext(context.Background(), sc)

	require.NoError(t, b.PublishPostCreated(ctx, &domain.Post{ID: "p1"}))
	require.Len(t, js.msgs, 1)
	assert.Contains(t, js.msgs[0].Header.Get("traceparent"), traceID.String())
}

func TestNatsBroker_PublishError(t *testing.T) {
	t.Parallel()
	b := &NatsBroker{js: &fakeJS{err: errors.New("no responders")}}
	err := b.PublishPostCreated(context.Background(), &domain.Post{ID: "p1"})
	assert.ErrorContains(t, err, "social.post.created")
}

func TestEdgeChangedEvent_RejectsGarbage(t *testing.T) {
	t.Parallel()
	_, err := EdgeChangedEvent{Op: "moved", Kind: "subscription", SubjectID: "a", ObjectID: "b"}.ToEdgeChange()
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	_, err = EdgeChangedEvent{Op: "added", Kind: "subscription", SubjectID: "a", ObjectID: "a"}.ToEdgeChange()
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
