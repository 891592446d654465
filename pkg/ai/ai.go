package ai

import "context"

// TokenSequence is a tokenized text: token ids plus a parallel attention
// mask of equal length. Tokenization happens on the inference server so the
// ids always match the model's own vocabulary.
type TokenSequence struct {
	InputIDs      []int `json:"input_ids"`
	AttentionMask []int `json:"attention_mask"`
}

// Len returns the number of tokens in the sequence.
func (s TokenSequence) Len() int {
	return len(s.InputIDs)
}

// Slice returns the [start, end) sub-sequence of ids and mask. Callers clamp
// the bounds beforehand.
func (s TokenSequence) Slice(start, end int) TokenSequence {
	return TokenSequence{
		InputIDs:      s.InputIDs[start:end],
		AttentionMask: s.AttentionMask[start:end],
	}
}

// GenerateOptions holds configuration for generation requests.
type GenerateOptions struct {
	NumReturnSequences int // Decoded sequences requested per window
	MaxLength          int // Generation length cap
	NumBeams           int // Beam search width
}

// GenerateOption is a functional option for configuring generation requests.
type GenerateOption func(*GenerateOptions)

// WithNumReturnSequences returns a GenerateOption that sets how many decoded
// sequences the model returns per input window.
func WithNumReturnSequences(n int) GenerateOption {
	return func(o *GenerateOptions) {
		o.NumReturnSequences = n
	}
}

// WithMaxLength returns a GenerateOption that caps the generated sequence
// length.
func WithMaxLength(n int) GenerateOption {
	return func(o *GenerateOptions) {
		o.MaxLength = n
	}
}

// WithNumBeams returns a GenerateOption that sets the beam search width.
func WithNumBeams(n int) GenerateOption {
	return func(o *GenerateOptions) {
		o.NumBeams = n
	}
}

// RelationModelClient is the boundary to the sequence-to-sequence relation
// extraction model. The model itself is a black box: it tokenizes text and
// turns token windows into marker-delimited output strings.
//
// Generate consumes one window per entry and returns the decoded outputs in
// window-major order: all requested sequences for window 0, then all for
// window 1, and so on.
type RelationModelClient interface {
	Tokenize(ctx context.Context, text string) (TokenSequence, error)
	Generate(ctx context.Context, windows []TokenSequence, opts ...GenerateOption) ([]string, error)
}
