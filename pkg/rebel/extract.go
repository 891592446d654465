package rebel

import (
	"context"

	"relex/pkg/ai"
	"relex/pkg/logger"
	"relex/pkg/span"
)

const (
	defaultSpanLength         = 128
	defaultNumReturnSequences = 3
	defaultNumBeams           = 3
	defaultMaxLength          = 256
)

// Extractor turns raw text into a document-scoped knowledge base by windowing
// the tokenized input, running the relation model per window and aggregating
// the decoded triples with their window provenance.
type Extractor struct {
	model              ai.RelationModelClient
	spanLength         int
	numReturnSequences int
}

// NewExtractorParams contains configuration for creating an Extractor.
type NewExtractorParams struct {
	Model              ai.RelationModelClient
	SpanLength         int
	NumReturnSequences int
}

// NewExtractor creates an Extractor with the given model client. Zero values
// fall back to the model's usual generation settings.
func NewExtractor(params NewExtractorParams) *Extractor {
	spanLength := params.SpanLength
	if spanLength <= 0 {
		spanLength = defaultSpanLength
	}
	numReturn := params.NumReturnSequences
	if numReturn <= 0 {
		numReturn = defaultNumReturnSequences
	}

	return &Extractor{
		model:              params.Model,
		spanLength:         spanLength,
		numReturnSequences: numReturn,
	}
}

// FromText tokenizes text, splits it into overlapping windows, generates the
// model output for every window and collects all decoded triples into one
// KnowledgeBase. Windows are processed in chunker order; outputs arrive
// window-major across the requested sequences per window.
func (e *Extractor) FromText(ctx context.Context, text string) (*KnowledgeBase, error) {
	seq, err := e.model.Tokenize(ctx, text)
	if err != nil {
		return nil, err
	}

	kb := NewKnowledgeBase()
	if seq.Len() == 0 {
		return kb, nil
	}

	spans := span.Compute(seq.Len(), e.spanLength)
	logger.Debug("[Extract] Computed span boundaries", "tokens", seq.Len(), "spans", len(spans))

	windows := make([]ai.TokenSequence, 0, len(spans))
	for _, s := range spans {
		c := s.Clamp(seq.Len())
		windows = append(windows, seq.Slice(c.Start, c.End))
	}

	outputs, err := e.model.Generate(
		ctx,
		windows,
		ai.WithNumReturnSequences(e.numReturnSequences),
		ai.WithNumBeams(defaultNumBeams),
		ai.WithMaxLength(defaultMaxLength),
	)
	if err != nil {
		return nil, err
	}

	for i, output := range outputs {
		windowIndex := i / e.numReturnSequences
		if windowIndex >= len(spans) {
			logger.Warn("[Extract] Model returned more outputs than requested", "outputs", len(outputs), "windows", len(spans))
			break
		}
		for _, triple := range ExtractTriples(output) {
			triple.Meta = TripleMeta{Spans: []span.Span{spans[windowIndex]}}
			kb.AddRelation(triple)
		}
	}

	return kb, nil
}
