package mutate

import (
	"fmt"
	"html"

	"github.com/eringen/pubsplice/docstream"
)

// InsertRequest describes one Insert pass.
type InsertRequest struct {
	Kind Kind
	// Fragment is injected verbatim right after the marker.
	Fragment string
	// Name is written inside the first <title> element of a Template
	// document, ahead of the title text already there.
	Name string
	// Retention caps the number of feed items kept, the new one included.
	Retention int
}

// Insert splices req.Fragment in after the marker comment. For Feed documents
// the items past the retention window are dropped; since new items always go
// in at the marker, the oldest ones are the ones that fall off.
func Insert(doc []byte, req InsertRequest) ([]byte, error) {
	switch req.Kind {
	case Template, Index:
	case Feed:
		if req.Retention < 1 {
			return nil, fmt.Errorf("feed retention must be at least 1, got %d", req.Retention)
		}
	default:
		return nil, fmt.Errorf("unknown document kind %v", req.Kind)
	}

	r := docstream.NewReader(doc)
	sink := docstream.NewSink(len(doc) + len(req.Fragment))
	w := &cdataWriter{sink: sink}

	var (
		markers      int
		itemCount    = 1
		insideItem   bool
		nested       int
		titleWritten bool
	)
	for {
		tok, err := r.Next()
		if err != nil {
			return nil, err
		}
		if tok.Kind == docstream.EndOfInput {
			break
		}

		if req.Kind == Feed {
			if insideItem {
				switch {
				case tok.Kind == docstream.ElementOpen && tok.Name == FeedContainer && !tok.SelfClosing:
					nested++
				case tok.Kind == docstream.ElementClose && tok.Name == FeedContainer:
					if nested == 0 {
						insideItem = false
					} else {
						nested--
					}
				}
				w.skipped()
				continue
			}
			if tok.Kind == docstream.ElementOpen && tok.Name == FeedContainer {
				itemCount++
				if itemCount > req.Retention {
					insideItem = !tok.SelfClosing
					w.skipped()
					continue
				}
			}
		}

		switch {
		case IsMarker(tok):
			markers++
			if markers > 1 {
				return nil, fmt.Errorf("%w (second one at byte %d)", ErrAmbiguousMarker, tok.Offset)
			}
			w.write(tok)
			sink.WriteString(req.Fragment)
		case req.Kind == Template && !titleWritten &&
			tok.Kind == docstream.ElementOpen && tok.Name == titleTag && !tok.SelfClosing:
			w.write(tok)
			sink.WriteString(html.EscapeString(req.Name))
			titleWritten = true
		default:
			w.write(tok)
		}
	}

	w.flush()

	if markers == 0 {
		return nil, ErrMissingMarker
	}
	return sink.Bytes(), nil
}
