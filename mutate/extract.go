package mutate

import (
	"fmt"

	"github.com/eringen/pubsplice/docstream"
)

type extractState int

const (
	seekMarker extractState = iota
	afterMarker
	inPreamble
	inBody
	finished
)

// ExtractInner recovers the body that Insert placed after the marker of a
// per-entry page. The generated preamble, bracketed by the PreambleOpen and
// PreambleClose comments, is skipped along with any whitespace between the
// marker and the preamble. The body runs until the BodyClose comment or the
// end of the element that holds the marker, whichever comes first. Body
// tokens are copied verbatim.
//
// Pages written before the preamble comments existed have no preamble to
// skip; the whole rest of the marker's element is returned.
func ExtractInner(doc []byte) ([]byte, error) {
	r := docstream.NewReader(doc)
	sink := docstream.NewSink(len(doc) / 2)

	var (
		state      = seekMarker
		depth      int
		innerLevel int
		markers    int
	)
	// whitespace between the marker and a possible preamble
	var held []docstream.Token
	for {
		tok, err := r.Next()
		if err != nil {
			return nil, err
		}
		if tok.Kind == docstream.EndOfInput {
			break
		}

		if IsMarker(tok) {
			markers++
			if markers > 1 {
				return nil, fmt.Errorf("%w (second one at byte %d)", ErrAmbiguousMarker, tok.Offset)
			}
		}

		closes := tok.Kind == docstream.ElementClose && !isVoid(tok.Name)
		if closes {
			depth--
		}

		if state == afterMarker {
			switch {
			case tok.IsBlank():
				held = append(held, tok)
				continue
			case isComment(tok, PreambleOpen):
				held = nil
				state = inPreamble
				continue
			}
			for _, h := range held {
				sink.Write(h)
			}
			held = nil
			state = inBody
		}

		switch state {
		case seekMarker:
			if IsMarker(tok) {
				innerLevel = depth
				state = afterMarker
			}
		case inPreamble:
			switch {
			case isComment(tok, PreambleClose):
				state = inBody
			case depth < innerLevel:
				return nil, fmt.Errorf("%w: container closed at byte %d", ErrPreambleMismatch, tok.Offset)
			}
		case inBody:
			if isComment(tok, BodyClose) || depth < innerLevel {
				state = finished
				break
			}
			sink.Write(tok)
		}

		if tok.OpensScope() {
			depth++
		}
	}

	for _, h := range held {
		sink.Write(h)
	}
	switch {
	case markers == 0:
		return nil, ErrMissingMarker
	case state == inPreamble:
		return nil, fmt.Errorf("%w: reached end of document", ErrPreambleMismatch)
	}
	return sink.Bytes(), nil
}

func isVoid(name string) bool {
	return !docstream.Token{Kind: docstream.ElementOpen, Name: name}.OpensScope()
}
