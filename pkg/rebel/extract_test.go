package rebel

import (
	"context"
	"testing"

	"relex/pkg/ai"
)

type fakeModel struct {
	tokens  ai.TokenSequence
	outputs []string

	windows    []ai.TokenSequence
	numReturns int
}

func (f *fakeModel) Tokenize(_ context.Context, _ string) (ai.TokenSequence, error) {
	return f.tokens, nil
}

func (f *fakeModel) Generate(_ context.Context, windows []ai.TokenSequence, opts ...ai.GenerateOption) ([]string, error) {
	options := ai.GenerateOptions{NumReturnSequences: 1}
	for _, opt := range opts {
		opt(&options)
	}
	f.windows = windows
	f.numReturns = options.NumReturnSequences
	return f.outputs, nil
}

func tokenSequence(n int) ai.TokenSequence {
	seq := ai.TokenSequence{
		InputIDs:      make([]int, n),
		AttentionMask: make([]int, n),
	}
	for i := range seq.InputIDs {
		seq.InputIDs[i] = i
		seq.AttentionMask[i] = 1
	}
	return seq
}

func TestFromTextAggregatesAcrossWindows(t *testing.T) {
	// 10 tokens at span length 8 → two overlapping windows.
	model := &fakeModel{
		tokens: tokenSequence(10),
		outputs: []string{
			"<triplet> Paris <subj> France <obj> capital of",
			"<triplet> Paris <subj> France <obj> capital of",
		},
	}
	e := NewExtractor(NewExtractorParams{
		Model:              model,
		SpanLength:         8,
		NumReturnSequences: 1,
	})

	kb, err := e.FromText(context.Background(), "irrelevant, the fake tokenizer decides")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(model.windows) != 2 {
		t.Fatalf("expected 2 windows sent to the model, got %d", len(model.windows))
	}
	for i, w := range model.windows {
		if w.Len() == 0 || w.Len() > 8 {
			t.Fatalf("window %d has unexpected length %d", i, w.Len())
		}
	}

	relations := kb.Relations()
	if len(relations) != 2 {
		t.Fatalf("expected 2 triples (no cross-window merging), got %d", len(relations))
	}

	// Provenance follows window order.
	if len(relations[0].Meta.Spans) != 1 || len(relations[1].Meta.Spans) != 1 {
		t.Fatalf("every triple should carry exactly one source span")
	}
	if relations[0].Meta.Spans[0].Start > relations[1].Meta.Spans[0].Start {
		t.Fatalf("span provenance out of window order: %+v", relations)
	}
}

func TestFromTextWindowMajorOutputs(t *testing.T) {
	// One window, three return sequences: outputs 0..2 all map to window 0.
	model := &fakeModel{
		tokens: tokenSequence(5),
		outputs: []string{
			"<triplet> a <subj> b <obj> r1",
			"<triplet> a <subj> b <obj> r1",
			"<triplet> c <subj> d <obj> r2",
		},
	}
	e := NewExtractor(NewExtractorParams{
		Model:              model,
		SpanLength:         128,
		NumReturnSequences: 3,
	})

	kb, err := e.FromText(context.Background(), "short text")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if model.numReturns != 3 {
		t.Fatalf("expected 3 return sequences requested, got %d", model.numReturns)
	}
	if kb.Len() != 3 {
		t.Fatalf("expected 3 triples, got %d", kb.Len())
	}
	for _, r := range kb.Relations() {
		if r.Meta.Spans[0].Start != 0 {
			t.Fatalf("all triples of a single window share its span, got %+v", r.Meta.Spans)
		}
	}
}

func TestFromTextEmptyInput(t *testing.T) {
	model := &fakeModel{tokens: ai.TokenSequence{}}
	e := NewExtractor(NewExtractorParams{Model: model})

	kb, err := e.FromText(context.Background(), "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if kb.Len() != 0 {
		t.Fatalf("expected empty knowledge base, got %d triples", kb.Len())
	}
	if model.windows != nil {
		t.Fatalf("no generation should happen for an empty token sequence")
	}
}
