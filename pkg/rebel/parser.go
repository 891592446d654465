package rebel

import "strings"

// Reserved marker tokens of the relation-decoding grammar. The model emits
// them interleaved with plain word tokens; everything between two markers
// belongs to the field the last marker opened.
const (
	markerTriplet = "<triplet>"
	markerSubject = "<subj>"
	markerObject  = "<obj>"
)

// Format markers stripped before decoding.
var paddingMarkers = []string{"<s>", "</s>", "<pad>"}

type parseState int

const (
	stateIdle parseState = iota
	stateCollectHead
	stateCollectTail
	stateCollectRelation
)

// ExtractTriples decodes one raw model output string into the triples it
// encodes, in emission order.
//
// The flush timing is part of the grammar: a finished triple is emitted when
// the NEXT boundary marker arrives (or at end of stream), not when its last
// field completes. The relation accumulator doubles as the "triple in
// progress" flag.
func ExtractTriples(text string) []Triple {
	for _, m := range paddingMarkers {
		text = strings.ReplaceAll(text, m, "")
	}

	var (
		triples  []Triple
		head     strings.Builder
		relation strings.Builder
		tail     strings.Builder
	)
	state := stateIdle

	flush := func() {
		triples = append(triples, Triple{
			Head:     strings.TrimSpace(head.String()),
			Relation: strings.TrimSpace(relation.String()),
			Tail:     strings.TrimSpace(tail.String()),
		})
	}

	for _, token := range strings.Fields(strings.TrimSpace(text)) {
		switch token {
		case markerTriplet:
			if relation.Len() > 0 {
				flush()
				relation.Reset()
			}
			head.Reset()
			state = stateCollectHead
		case markerSubject:
			if relation.Len() > 0 {
				flush()
			}
			tail.Reset()
			state = stateCollectTail
		case markerObject:
			relation.Reset()
			state = stateCollectRelation
		default:
			switch state {
			case stateCollectHead:
				head.WriteString(" ")
				head.WriteString(token)
			case stateCollectTail:
				tail.WriteString(" ")
				tail.WriteString(token)
			case stateCollectRelation:
				relation.WriteString(" ")
				relation.WriteString(token)
			case stateIdle:
				// Tokens before the first marker carry no field.
			}
		}
	}

	if head.Len() > 0 && relation.Len() > 0 && tail.Len() > 0 {
		flush()
	}

	return triples
}
