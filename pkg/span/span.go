package span

// Span is a half-open [Start, End) interval into a token sequence.
type Span struct {
	Start int
	End   int
}

// Len returns the window length of the span.
func (s Span) Len() int {
	return s.End - s.Start
}

// Clamp bounds the span to [0, numTokens) so it can be used to slice a
// token sequence directly. The last window regularly overextends past the
// end of the sequence.
func (s Span) Clamp(numTokens int) Span {
	c := s
	if c.Start < 0 {
		c.Start = 0
	}
	if c.End > numTokens {
		c.End = numTokens
	}
	if c.End < c.Start {
		c.End = c.Start
	}
	return c
}

// Compute splits a sequence of numTokens tokens into ceil(numTokens/spanLength)
// equal-length windows. When more than one window is needed, consecutive
// windows overlap by an evenly distributed amount (rounded down) so that the
// windows cover the whole sequence without gaps. The final window's End is
// always >= numTokens; callers clamp before slicing.
//
// numTokens <= spanLength (including numTokens == 0) yields the single window
// [0, spanLength).
func Compute(numTokens, spanLength int) []Span {
	if spanLength <= 0 {
		return nil
	}

	numSpans := (numTokens + spanLength - 1) / spanLength
	if numSpans <= 1 {
		return []Span{{Start: 0, End: spanLength}}
	}

	// Rounding the overlap down keeps the windows from drifting left past
	// the sequence end: the final window satisfies End >= numTokens because
	// (numSpans-1)*overlap <= slack.
	slack := numSpans*spanLength - numTokens
	overlap := slack / (numSpans - 1)

	spans := make([]Span, 0, numSpans)
	cursor := 0
	for i := 0; i < numSpans; i++ {
		spans = append(spans, Span{
			Start: cursor + spanLength*i,
			End:   cursor + spanLength*(i+1),
		})
		cursor -= overlap
	}

	return spans
}
