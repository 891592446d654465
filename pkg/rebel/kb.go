package rebel

import "relex/pkg/span"

// Triple is one (head, relation, tail) extraction unit. Fields are trimmed,
// space-joined token runs exactly as decoded; the relation is transformed
// into an edge-type identifier at the graph boundary, not here.
type Triple struct {
	Head     string     `json:"head" bson:"head"`
	Relation string     `json:"type" bson:"type"`
	Tail     string     `json:"tail" bson:"tail"`
	Meta     TripleMeta `json:"meta,omitempty" bson:"meta,omitempty"`
}

// TripleMeta carries provenance: the token windows the triple was decoded
// from.
type TripleMeta struct {
	Spans []span.Span `json:"spans,omitempty" bson:"spans,omitempty"`
}

// KnowledgeBase is the document-scoped, ordered collection of extracted
// triples. Order reflects window processing order. Identical triples decoded
// from different (overlapping) windows are kept as-is; node-level
// deduplication happens in the graph store at write time.
type KnowledgeBase struct {
	relations []Triple
}

// NewKnowledgeBase returns an empty knowledge base.
func NewKnowledgeBase() *KnowledgeBase {
	return &KnowledgeBase{}
}

// AddRelation appends a triple to the collection.
func (kb *KnowledgeBase) AddRelation(t Triple) {
	kb.relations = append(kb.relations, t)
}

// Relations returns the full ordered collection.
func (kb *KnowledgeBase) Relations() []Triple {
	return kb.relations
}

// Len returns the number of collected triples.
func (kb *KnowledgeBase) Len() int {
	return len(kb.relations)
}
