package graph

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"relex/pkg/logger"
	"relex/pkg/rebel"
)

// entityLabel is the single node label shared by all entities. Uniqueness of
// the name property is enforced per graph scope.
const entityLabel = "ENTITY"

var relTypeSanitizer = regexp.MustCompile(`[^A-Za-z0-9_]`)

// TransformRelation turns a decoded relation string into an edge-type
// identifier by replacing spaces with underscores.
func TransformRelation(relation string) string {
	return strings.ReplaceAll(relation, " ", "_")
}

// relTypeIdentifier builds a safe edge-type identifier. Edge types cannot be
// query parameters, so anything outside [A-Za-z0-9_] is stripped after the
// underscore transform.
func relTypeIdentifier(relation string) string {
	return relTypeSanitizer.ReplaceAllString(TransformRelation(relation), "")
}

// Ingestor materializes extracted triples into the graph store. It holds no
// state of its own; the store is the system of record.
type Ingestor struct {
	run cypherRunner
}

// NewIngestor creates an Ingestor on top of the given client.
func NewIngestor(client *Client) *Ingestor {
	return &Ingestor{run: client}
}

// EnsureEntityConstraint installs the per-scope uniqueness constraint on
// entity names. Idempotent; safe to call on every startup.
func (ing *Ingestor) EnsureEntityConstraint(ctx context.Context, scope string) error {
	cypher := fmt.Sprintf(
		"CREATE CONSTRAINT entity_name_unique IF NOT EXISTS FOR (e:%s) REQUIRE e.name IS UNIQUE",
		entityLabel,
	)
	_, err := ing.run.Write(ctx, scope, cypher, nil)
	return err
}

// CreateRelationship upserts both endpoint entities and creates one directed
// edge head → tail typed by the transformed relation, all inside a single
// write transaction. MERGE leaves node get-or-create races to the store's
// uniqueness constraint.
//
// Failures are logged and returned, never raised past the caller: one bad
// triple must not abort ingestion of the rest of a document.
func (ing *Ingestor) CreateRelationship(ctx context.Context, scope, head, relation, tail string) error {
	if scope != "" {
		exists, err := ing.run.GraphExists(ctx, scope)
		if err != nil {
			logger.Error("[Graph] Failed to check graph scope", "graph", scope, "err", err)
			return err
		}
		if !exists {
			logger.Error("[Graph] Graph does not exist, create it first", "graph", scope)
			return ErrGraphNotFound
		}
	}

	relType := relTypeIdentifier(relation)
	if relType == "" {
		err := fmt.Errorf("graph: relation %q has no valid edge type", relation)
		logger.Error("[Graph] Failed to ingest relation", "head", head, "relation", relation, "tail", tail, "err", err)
		return err
	}

	cypher := fmt.Sprintf(
		"MERGE (h:%s {name: $head}) MERGE (t:%s {name: $tail}) CREATE (h)-[r:%s]->(t)",
		entityLabel, entityLabel, relType,
	)
	_, err := ing.run.Write(ctx, scope, cypher, map[string]any{
		"head": head,
		"tail": tail,
	})
	if err != nil {
		logger.Error("[Graph] Failed to ingest relation", "head", head, "relation", relType, "tail", tail, "err", err)
		return err
	}

	return nil
}

// IngestKnowledgeBase writes every triple of the knowledge base to the graph
// and returns how many were committed. Per-triple failures are logged by
// CreateRelationship and skipped.
func (ing *Ingestor) IngestKnowledgeBase(ctx context.Context, kb *rebel.KnowledgeBase, scope string) int {
	count := 0
	for _, relation := range kb.Relations() {
		if err := ing.CreateRelationship(ctx, scope, relation.Head, relation.Relation, relation.Tail); err != nil {
			continue
		}
		count++
	}
	return count
}
