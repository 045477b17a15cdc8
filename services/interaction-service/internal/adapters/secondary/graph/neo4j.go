package graph

import (
	"context"
	"fmt"

	"github.com/lytDeveloper/Lyt-sub003/services/interaction-service/internal/core/domain"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

type Neo4jGraph struct {
	driver neo4j.DriverWithContext
}

func NewNeo4jGraph(driver neo4j.DriverWithContext) *Neo4jGraph {
	return &Neo4jGraph{driver: driver}
}

// EnsureSchema crée l'index d'unicité sur User.id
func (g *Neo4jGraph) EnsureSchema(ctx context.Context) error {
	session := g.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		_, err := tx.Run(ctx, `CREATE CONSTRAINT user_id_unique IF NOT EXISTS FOR (u:User) REQUIRE u.id IS UNIQUE`, nil)
		return nil, err
	})
	return err
}

// Relate est idempotent (MERGE).
func (g *Neo4jGraph) Relate(ctx context.Context, rel domain.Relation, actorID, targetID string) error {
	query, err := relateQuery(rel)
	if err != nil {
		return err
	}
	return g.write(ctx, query, actorID, targetID)
}

func (g *Neo4jGraph) Unrelate(ctx context.Context, rel domain.Relation, actorID, targetID string) error {
	query, err := unrelateQuery(rel)
	if err != nil {
		return err
	}
	return g.write(ctx, query, actorID, targetID)
}

func (g *Neo4jGraph) write(ctx context.Context, query, actorID, targetID string) error {
	session := g.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		_, err := tx.Run(ctx, query, map[string]any{"actorId": actorID, "targetId": targetID})
		return nil, err
	})
	return err
}

// Le type de relation ne peut pas être paramétré en Cypher : liste fermée.
func checkRelation(rel domain.Relation) error {
	switch rel {
	case domain.RelFollows, domain.RelBlocks:
		return nil
	}
	return fmt.Errorf("unknown relation %q", rel)
}

func relateQuery(rel domain.Relation) (string, error) {
	if err := checkRelation(rel); err != nil {
		return "", err
	}
	return fmt.Sprintf(`
		MERGE (a:User {id: $actorId})
		MERGE (b:User {id: $targetId})
		MERGE (a)-[r:%s]->(b)
		ON CREATE SET r.created_at = datetime()
	`, rel), nil
}

func unrelateQuery(rel domain.Relation) (string, error) {
	if err := checkRelation(rel); err != nil {
		return "", err
	}
	return fmt.Sprintf(`
		MATCH (a:User {id: $actorId})-[r:%s]->(b:User {id: $targetId})
		DELETE r
	`, rel), nil
}
