package graph

import (
	"context"
	"strings"
	"testing"

	"relex/pkg/ai"
	"relex/pkg/rebel"
)

type pipelineModel struct {
	numTokens int
	output    string

	windows int
}

func (m *pipelineModel) Tokenize(_ context.Context, _ string) (ai.TokenSequence, error) {
	seq := ai.TokenSequence{
		InputIDs:      make([]int, m.numTokens),
		AttentionMask: make([]int, m.numTokens),
	}
	for i := range seq.InputIDs {
		seq.InputIDs[i] = i
		seq.AttentionMask[i] = 1
	}
	return seq, nil
}

func (m *pipelineModel) Generate(_ context.Context, windows []ai.TokenSequence, opts ...ai.GenerateOption) ([]string, error) {
	options := ai.GenerateOptions{NumReturnSequences: 1}
	for _, opt := range opts {
		opt(&options)
	}
	m.windows = len(windows)

	outputs := make([]string, len(windows)*options.NumReturnSequences)
	for i := range outputs {
		outputs[i] = m.output
	}
	return outputs, nil
}

// Walks the full extraction path: text is tokenized into two overlapping
// windows, every window decodes to the same triple, and each decoded triple
// becomes one typed edge write against the graph.
func TestExtractionPipelineToGraph(t *testing.T) {
	model := &pipelineModel{
		numTokens: 10,
		output:    "<triplet> Paris <subj> France <obj> capital of",
	}
	extractor := rebel.NewExtractor(rebel.NewExtractorParams{
		Model:              model,
		SpanLength:         8,
		NumReturnSequences: 1,
	})

	kb, err := extractor.FromText(context.Background(), "paris is the capital of france")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if model.windows != 2 {
		t.Fatalf("expected 2 windows through the model, got %d", model.windows)
	}
	if kb.Len() != 2 {
		t.Fatalf("expected one triple per window, got %d", kb.Len())
	}

	var params []map[string]any
	fake := &fakeRunner{
		writeFn: func(_ string, p map[string]any) ([]map[string]any, error) {
			params = append(params, p)
			return nil, nil
		},
	}
	ing := &Ingestor{run: fake}

	count := ing.IngestKnowledgeBase(context.Background(), kb, "")
	if count != 2 {
		t.Fatalf("expected 2 ingested relations, got %d", count)
	}
	for _, cypher := range fake.writes {
		if !strings.Contains(cypher, "CREATE (h)-[r:capital_of]->(t)") {
			t.Fatalf("edge type not transformed in write: %s", cypher)
		}
	}
	for _, p := range params {
		if p["head"] != "Paris" || p["tail"] != "France" {
			t.Fatalf("unexpected endpoints: %+v", p)
		}
	}
}
