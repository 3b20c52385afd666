package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neon-kni6ht/social-media-api/internal/adapters/secondary/eventbroker"
	"github.com/neon-kni6ht/social-media-api/internal/core/domain"
)

type recordingGraph struct {
	applied []domain.EdgeChange
	err     error
}

func (g *recordingGraph) Apply(_ context.Context, c domain.EdgeChange) error {
	if g.err != nil {
		return g.err
	}
	g.applied = append(g.applied, c)
	return nil
}

func (g *recordingGraph) SuggestSubscriptions(context.Context, string, int) ([]string, error) {
	return nil, nil
}

func payload(t *testing.T, ev eventbroker.EdgeChangedEvent) []byte {
	t.Helper()
	data, err := json.Marshal(ev)
	require.NoError(t, err)
	return data
}

func TestEdgeHandler_AppliesChange(t *testing.T) {
	t.Parallel()
	g := &recordingGraph{}
	h := NewEdgeHandler(g)

	data := payload(t, eventbroker.EdgeChangedEvent{
		Op: "removed", Kind: "subscription", SubjectID: "a", ObjectID: "b", CreatedAt: time.Now(),
	})
	require.NoError(t, h.Handle(context.Background(), "social.edge.removed", 42, nil, data))

	require.Len(t, g.applied, 1)
	assert.Equal(t, domain.EdgeRemoved, g.applied[0].Op)
	assert.Equal(t, domain.KindSubscription, g.applied[0].Edge.Kind)
	assert.Equal(t, uint64(42), g.applied[0].Seq)
}

func TestEdgeHandler_PoisonMessages(t *testing.T) {
	t.Parallel()
	g := &recordingGraph{}
	h := NewEdgeHandler(g)

	for name, data := range map[string][]byte{
		"not json":     []byte("{"),
		"unknown kind": payload(t, eventbroker.EdgeChangedEvent{Op: "added", Kind: "likes", SubjectID: "a", ObjectID: "b"}),
		"self edge":    payload(t, eventbroker.EdgeChangedEvent{Op: "added", Kind: "subscription", SubjectID: "a", ObjectID: "a"}),
	} {
		err := h.Handle(context.Background(), "social.edge.added", 1, nil, data)
		assert.ErrorIs(t, err, errPoison, name)
	}
	assert.Empty(t, g.applied)
}

func TestEdgeHandler_ProjectionFailureIsRetryable(t *testing.T) {
	t.Parallel()
	h := NewEdgeHandler(&recordingGraph{err: errors.New("neo4j unavailable")})

	data := payload(t, eventbroker.EdgeChangedEvent{Op: "added", Kind: "friendship", SubjectID: "b", ObjectID: "a"})
	err := h.Handle(context.Background(), "social.edge.added", 1, nil, data)
	require.Error(t, err)
	assert.NotErrorIs(t, err, errPoison)
}
