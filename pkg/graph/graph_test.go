package graph

import (
	"context"
	"errors"
	"strings"
	"testing"

	"relex/pkg/rebel"
)

type fakeRunner struct {
	readFn   func(cypher string, params map[string]any) ([]map[string]any, error)
	writeFn  func(cypher string, params map[string]any) ([]map[string]any, error)
	existsFn func(scope string) (bool, error)

	writes []string
}

func (f *fakeRunner) Read(_ context.Context, _, cypher string, params map[string]any) ([]map[string]any, error) {
	if f.readFn == nil {
		return nil, nil
	}
	return f.readFn(cypher, params)
}

func (f *fakeRunner) Write(_ context.Context, _, cypher string, params map[string]any) ([]map[string]any, error) {
	f.writes = append(f.writes, cypher)
	if f.writeFn == nil {
		return nil, nil
	}
	return f.writeFn(cypher, params)
}

func (f *fakeRunner) GraphExists(_ context.Context, scope string) (bool, error) {
	if f.existsFn == nil {
		return true, nil
	}
	return f.existsFn(scope)
}

func TestTransformRelation(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{input: "is part of", want: "is_part_of"},
		{input: "capital of", want: "capital_of"},
		{input: "founded_by", want: "founded_by"},
		{input: "", want: ""},
	}

	for _, tt := range tests {
		if got := TransformRelation(tt.input); got != tt.want {
			t.Fatalf("TransformRelation(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestRelTypeIdentifierSanitizes(t *testing.T) {
	got := relTypeIdentifier("member of `band`")
	if got != "member_of_band" {
		t.Fatalf("unexpected identifier: %q", got)
	}
}

func TestCreateRelationship(t *testing.T) {
	fake := &fakeRunner{}
	ing := &Ingestor{run: fake}

	err := ing.CreateRelationship(context.Background(), "", "Paris", "capital of", "France")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(fake.writes) != 1 {
		t.Fatalf("expected one write transaction, got %d", len(fake.writes))
	}

	cypher := fake.writes[0]
	if !strings.Contains(cypher, "MERGE (h:ENTITY {name: $head})") ||
		!strings.Contains(cypher, "MERGE (t:ENTITY {name: $tail})") {
		t.Fatalf("endpoint upserts missing from statement: %s", cypher)
	}
	if !strings.Contains(cypher, "CREATE (h)-[r:capital_of]->(t)") {
		t.Fatalf("edge creation missing or untransformed: %s", cypher)
	}
}

func TestCreateRelationshipMissingScope(t *testing.T) {
	fake := &fakeRunner{
		existsFn: func(string) (bool, error) { return false, nil },
	}
	ing := &Ingestor{run: fake}

	err := ing.CreateRelationship(context.Background(), "nosuch", "a", "r", "b")
	if !errors.Is(err, ErrGraphNotFound) {
		t.Fatalf("expected ErrGraphNotFound, got %v", err)
	}
	if len(fake.writes) != 0 {
		t.Fatalf("no write should happen for a missing scope")
	}
}

func TestIngestKnowledgeBaseContinuesPastFailures(t *testing.T) {
	calls := 0
	fake := &fakeRunner{
		writeFn: func(string, map[string]any) ([]map[string]any, error) {
			calls++
			if calls == 2 {
				return nil, errors.New("constraint violated")
			}
			return nil, nil
		},
	}
	ing := &Ingestor{run: fake}

	kb := rebel.NewKnowledgeBase()
	kb.AddRelation(rebel.Triple{Head: "a", Relation: "r1", Tail: "b"})
	kb.AddRelation(rebel.Triple{Head: "c", Relation: "r2", Tail: "d"})
	kb.AddRelation(rebel.Triple{Head: "e", Relation: "r3", Tail: "f"})

	count := ing.IngestKnowledgeBase(context.Background(), kb, "")
	if count != 2 {
		t.Fatalf("expected 2 ingested relations, got %d", count)
	}
	if calls != 3 {
		t.Fatalf("expected all 3 triples attempted, got %d", calls)
	}
}

func TestRelationshipType(t *testing.T) {
	fake := &fakeRunner{
		readFn: func(cypher string, params map[string]any) ([]map[string]any, error) {
			if strings.Contains(cypher, "RETURN e.name") {
				return []map[string]any{{"name": params["name"]}}, nil
			}
			return []map[string]any{{"type": "capital_of"}}, nil
		},
	}
	ex := &Explorer{run: fake}

	relType, err := ex.RelationshipType(context.Background(), "", "Paris", "France")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if relType != "capital_of" {
		t.Fatalf("unexpected relation type: %q", relType)
	}
}

func TestRelationshipTypeMissingEntity(t *testing.T) {
	fake := &fakeRunner{
		readFn: func(cypher string, params map[string]any) ([]map[string]any, error) {
			return nil, nil
		},
	}
	ex := &Explorer{run: fake}

	_, err := ex.RelationshipType(context.Background(), "", "Nowhere", "France")
	if !errors.Is(err, ErrNoResult) {
		t.Fatalf("expected ErrNoResult, got %v", err)
	}
}

func TestRelationTail(t *testing.T) {
	var edgeQuery string
	fake := &fakeRunner{
		readFn: func(cypher string, params map[string]any) ([]map[string]any, error) {
			if strings.Contains(cypher, "RETURN e.name") {
				return []map[string]any{{"name": params["name"]}}, nil
			}
			edgeQuery = cypher
			return []map[string]any{{"name": "France"}}, nil
		},
	}
	ex := &Explorer{run: fake}

	tail, err := ex.RelationTail(context.Background(), "", "Paris", "capital of")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tail != "France" {
		t.Fatalf("unexpected tail: %q", tail)
	}
	if !strings.Contains(edgeQuery, "[r:capital_of]") {
		t.Fatalf("edge type not transformed in query: %s", edgeQuery)
	}
}

func TestRelationTailNoMatch(t *testing.T) {
	fake := &fakeRunner{
		readFn: func(cypher string, params map[string]any) ([]map[string]any, error) {
			if strings.Contains(cypher, "RETURN e.name") {
				return []map[string]any{{"name": params["name"]}}, nil
			}
			return nil, nil
		},
	}
	ex := &Explorer{run: fake}

	_, err := ex.RelationTail(context.Background(), "", "Paris", "twinned with")
	if !errors.Is(err, ErrNoResult) {
		t.Fatalf("expected ErrNoResult, got %v", err)
	}
}
