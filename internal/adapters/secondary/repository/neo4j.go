package repository

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/neon-kni6ht/social-media-api/internal/core/domain"
	"github.com/neon-kni6ht/social-media-api/internal/core/ports"
)

// relTypes : les types de relation Cypher ne se paramètrent pas, ils viennent d'ici uniquement.
var relTypes = map[domain.RelationKind]string{
	domain.KindSubscription:  "SUBSCRIBED_TO",
	domain.KindFriendRequest: "REQUESTED",
	domain.KindFriendship:    "FRIENDS_WITH",
}

// Neo4jGraph est une projection des arêtes Postgres, alimentée par le consumer NATS.
type Neo4jGraph struct {
	driver neo4j.DriverWithContext
}

var _ ports.GraphProjection = (*Neo4jGraph)(nil)

func NewNeo4jGraph(driver neo4j.DriverWithContext) *Neo4jGraph {
	return &Neo4jGraph{driver: driver}
}

// EnsureSchema crée les contraintes d'unicité (et donc les index) sur User.id et EdgeVersion.key.
func (g *Neo4jGraph) EnsureSchema(ctx context.Context) error {
	session := g.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	for _, stmt := range []string{
		`CREATE CONSTRAINT user_id_unique IF NOT EXISTS FOR (u:User) REQUIRE u.id IS UNIQUE`,
		`CREATE CONSTRAINT edge_version_key IF NOT EXISTS FOR (v:EdgeVersion) REQUIRE v.key IS UNIQUE`,
	} {
		_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
			_, err := tx.Run(ctx, stmt, nil)
			return nil, err
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// edgeGuard ne laisse passer que les changements plus récents que le dernier appliqué à la paire.
// Un nœud EdgeVersion par (kind, subject, object) garde la séquence, même après suppression de l'arête.
// Seq = 0 (séquence inconnue) passe toujours sans toucher à la version.
const edgeGuard = `
	MERGE (v:EdgeVersion {key: $key})
	WITH v WHERE $seq = 0 OR coalesce(v.seq, 0) < $seq
	SET v.seq = CASE WHEN $seq = 0 THEN v.seq ELSE $seq END
	WITH v
`

// Apply est idempotent : MERGE à l'ajout, DELETE sans effet si l'arête manque.
// Rejouer un message JetStream ne change donc rien, et un ajout relivré après
// la suppression qui le suit est ignoré.
func (g *Neo4jGraph) Apply(ctx context.Context, change domain.EdgeChange) error {
	rel, ok := relTypes[change.Edge.Kind]
	if !ok {
		return fmt.Errorf("neo4j: unknown relation kind %q", change.Edge.Kind)
	}

	var query string
	switch change.Op {
	case domain.EdgeAdded:
		query = edgeGuard + `
			MERGE (a:User {id: $subjectId})
			MERGE (b:User {id: $objectId})
			MERGE (a)-[r:` + rel + `]->(b)
			ON CREATE SET r.created_at = $createdAt
		`
	case domain.EdgeRemoved:
		query = edgeGuard + `
			MATCH (a:User {id: $subjectId})-[r:` + rel + `]->(b:User {id: $objectId})
			DELETE r
		`
	default:
		return fmt.Errorf("neo4j: unknown edge op %q", change.Op)
	}

	session := g.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		_, err := tx.Run(ctx, query, map[string]any{
			"key":       edgeVersionKey(change.Edge),
			"seq":       int64(change.Seq),
			"subjectId": change.Edge.SubjectID,
			"objectId":  change.Edge.ObjectID,
			"createdAt": change.Edge.CreatedAt,
		})
		return nil, err
	})
	if err != nil {
		return fmt.Errorf("neo4j: apply %s %s: %w", change.Op, change.Edge.Kind, err)
	}
	return nil
}

func edgeVersionKey(e domain.Edge) string {
	return string(e.Kind) + ":" + e.SubjectID + ":" + e.ObjectID
}

// SuggestSubscriptions : amis d'amis au sens abonnement, classés par nombre de chemins.
func (g *Neo4jGraph) SuggestSubscriptions(ctx context.Context, userID string, limit int) ([]string, error) {
	session := g.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close(ctx)

	res, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		query := `
			MATCH (me:User {id: $userId})-[:SUBSCRIBED_TO]->(:User)-[:SUBSCRIBED_TO]->(c:User)
			WHERE c.id <> $userId AND NOT (me)-[:SUBSCRIBED_TO]->(c)
			RETURN c.id AS id, count(*) AS score
			ORDER BY score DESC, id ASC
			LIMIT $limit
		`
		cursor, err := tx.Run(ctx, query, map[string]any{"userId": userID, "limit": limit})
		if err != nil {
			return nil, err
		}
		records, err := cursor.Collect(ctx)
		if err != nil {
			return nil, err
		}
		ids := make([]string, 0, len(records))
		for _, rec := range records {
			id, _, err := neo4j.GetRecordValue[string](rec, "id")
			if err != nil {
				return nil, err
			}
			ids = append(ids, id)
		}
		return ids, nil
	})
	if err != nil {
		return nil, fmt.Errorf("neo4j: suggestions: %w", err)
	}
	return res.([]string), nil
}

func (g *Neo4jGraph) Ping(ctx context.Context) error {
	return g.driver.VerifyConnectivity(ctx)
}
