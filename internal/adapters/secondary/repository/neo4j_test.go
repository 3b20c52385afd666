package repository

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neon-kni6ht/social-media-api/internal/core/domain"
)

// createTestDriver lit NEO4J_TEST_URI ; sans elle, le test est ignoré.
func createTestDriver(t *testing.T) neo4j.DriverWithContext {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping neo4j integration test in -short mode")
	}
	uri := os.Getenv("NEO4J_TEST_URI")
	if uri == "" {
		t.Skip("NEO4J_TEST_URI not set")
	}
	user := os.Getenv("NEO4J_TEST_USER")
	if user == "" {
		user = "neo4j"
	}
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(user, os.Getenv("NEO4J_TEST_PASSWORD"), ""))
	require.NoError(t, err)
	t.Cleanup(func() { _ = driver.Close(context.Background()) })
	require.NoError(t, driver.VerifyConnectivity(context.Background()))
	return driver
}

func TestNeo4jGraph_ApplyAndSuggest(t *testing.T) {
	driver := createTestDriver(t)
	ctx := context.Background()
	g := NewNeo4jGraph(driver)
	require.NoError(t, g.EnsureSchema(ctx))

	me, x, y, p := uuid.NewString(), uuid.NewString(), uuid.NewString(), uuid.NewString()
	t.Cleanup(func() {
		session := driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
		defer session.Close(ctx)
		_, _ = session.Run(ctx, "MATCH (u:User) WHERE u.id IN $ids DETACH DELETE u",
			map[string]any{"ids": []string{me, x, y, p}})
	})

	add := func(from, to string) {
		e, err := domain.NewEdge(domain.KindSubscription, from, to, time.Now())
		require.NoError(t, err)
		require.NoError(t, g.Apply(ctx, domain.EdgeChange{Op: domain.EdgeAdded, Edge: e}))
		// Rejouer le même événement ne change rien
		require.NoError(t, g.Apply(ctx, domain.EdgeChange{Op: domain.EdgeAdded, Edge: e}))
	}
	add(me, x)
	add(me, y)
	add(x, p)
	add(y, p)
	add(x, y)

	ids, err := g.SuggestSubscriptions(ctx, me, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{p}, ids)

	e, _ := domain.NewEdge(domain.KindSubscription, me, y, time.Now())
	require.NoError(t, g.Apply(ctx, domain.EdgeChange{Op: domain.EdgeRemoved, Edge: e}))

	ids, err = g.SuggestSubscriptions(ctx, me, 10)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{p, y}, ids)
}

func TestNeo4jGraph_RejectsUnknownKind(t *testing.T) {
	t.Parallel()
	g := NewNeo4jGraph(nil)
	err := g.Apply(context.Background(), domain.EdgeChange{Op: domain.EdgeAdded, Edge: domain.Edge{Kind: "follows"}})
	assert.Error(t, err)
}

func TestNeo4jGraph_StaleChangeIsIgnored(t *testing.T) {
	driver := createTestDriver(t)
	ctx := context.Background()
	g := NewNeo4jGraph(driver)
	require.NoError(t, g.EnsureSchema(ctx))

	me, x, p := uuid.NewString(), uuid.NewString(), uuid.NewString()
	t.Cleanup(func() {
		session := driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
		defer session.Close(ctx)
		_, _ = session.Run(ctx, "MATCH (u:User) WHERE u.id IN $ids DETACH DELETE u",
			map[string]any{"ids": []string{me, x, p}})
		_, _ = session.Run(ctx, "MATCH (v:EdgeVersion) WHERE any(id IN $ids WHERE v.key CONTAINS id) DELETE v",
			map[string]any{"ids": []string{me, x, p}})
	})

	edge := func(from, to string) domain.Edge {
		e, err := domain.NewEdge(domain.KindSubscription, from, to, time.Now())
		require.NoError(t, err)
		return e
	}
	require.NoError(t, g.Apply(ctx, domain.EdgeChange{Op: domain.EdgeAdded, Edge: edge(me, x), Seq: 1}))
	require.NoError(t, g.Apply(ctx, domain.EdgeChange{Op: domain.EdgeAdded, Edge: edge(x, p), Seq: 2}))

	// La suppression (seq 4) passe avant la relivraison d'un ajout plus ancien (seq 3)
	require.NoError(t, g.Apply(ctx, domain.EdgeChange{Op: domain.EdgeRemoved, Edge: edge(x, p), Seq: 4}))
	require.NoError(t, g.Apply(ctx, domain.EdgeChange{Op: domain.EdgeAdded, Edge: edge(x, p), Seq: 3}))

	ids, err := g.SuggestSubscriptions(ctx, me, 10)
	require.NoError(t, err)
	assert.Empty(t, ids)

	// Un ajout plus récent reprend la main
	require.NoError(t, g.Apply(ctx, domain.EdgeChange{Op: domain.EdgeAdded, Edge: edge(x, p), Seq: 5}))
	ids, err = g.SuggestSubscriptions(ctx, me, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{p}, ids)
}
