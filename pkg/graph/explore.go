package graph

import (
	"context"
	"fmt"

	"relex/pkg/logger"
)

// Explorer resolves existing relationships in the graph store. Misses are
// reported as ErrNoResult rather than raised: "not found" is an expected
// outcome on this path.
type Explorer struct {
	run cypherRunner
}

// NewExplorer creates an Explorer on top of the given client.
func NewExplorer(client *Client) *Explorer {
	return &Explorer{run: client}
}

func (ex *Explorer) entityExists(ctx context.Context, scope, name string) (bool, error) {
	cypher := fmt.Sprintf("MATCH (e:%s {name: $name}) RETURN e.name AS name LIMIT 1", entityLabel)
	rows, err := ex.run.Read(ctx, scope, cypher, map[string]any{"name": name})
	if err != nil {
		return false, err
	}
	return len(rows) > 0, nil
}

// RelationshipType returns the type of a relationship directed from n1 to n2.
// If several edges exist, any one of them may be returned; the store promises
// no ordering.
func (ex *Explorer) RelationshipType(ctx context.Context, scope, n1, n2 string) (string, error) {
	for _, name := range []string{n1, n2} {
		exists, err := ex.entityExists(ctx, scope, name)
		if err != nil {
			return "", err
		}
		if !exists {
			logger.Error("[Graph] No node found", "entity", name)
			return "", ErrNoResult
		}
	}

	cypher := fmt.Sprintf(
		"MATCH (a:%s {name: $a})-[r]->(b:%s {name: $b}) RETURN type(r) AS type LIMIT 1",
		entityLabel, entityLabel,
	)
	rows, err := ex.run.Read(ctx, scope, cypher, map[string]any{"a": n1, "b": n2})
	if err != nil {
		return "", err
	}
	if len(rows) == 0 {
		return "", ErrNoResult
	}

	relType, ok := rows[0]["type"].(string)
	if !ok {
		return "", fmt.Errorf("graph: unexpected type column %T", rows[0]["type"])
	}
	return relType, nil
}

// RelationTail returns the name of the tail entity reachable from n1 via an
// edge of the (underscore-transformed) relation type. With several matches
// any one tail may be returned.
func (ex *Explorer) RelationTail(ctx context.Context, scope, n1, relation string) (string, error) {
	exists, err := ex.entityExists(ctx, scope, n1)
	if err != nil {
		return "", err
	}
	if !exists {
		logger.Error("[Graph] No node found", "entity", n1)
		return "", ErrNoResult
	}

	relType := relTypeIdentifier(relation)
	if relType == "" {
		return "", ErrNoResult
	}

	cypher := fmt.Sprintf(
		"MATCH (a:%s {name: $name})-[r:%s]->(b:%s) RETURN b.name AS name LIMIT 1",
		entityLabel, relType, entityLabel,
	)
	rows, err := ex.run.Read(ctx, scope, cypher, map[string]any{"name": n1})
	if err != nil {
		return "", err
	}
	if len(rows) == 0 {
		return "", ErrNoResult
	}

	tail, ok := rows[0]["name"].(string)
	if !ok {
		return "", fmt.Errorf("graph: unexpected name column %T", rows[0]["name"])
	}
	return tail, nil
}
