package mutate

import (
	"errors"

	"github.com/eringen/pubsplice/docstream"
)

// ErrEmptyID is returned by Remove when asked to remove an empty id, which
// would otherwise match any container with an empty attribute.
var ErrEmptyID = errors.New("empty entry id")

// Remove drops every container (li or item) that carries id as an attribute
// value, open tag through matching close tag, and copies everything else.
// removed is false when no container matched; the output is then the input
// with only CDATA normalization applied.
func Remove(doc []byte, id string) (out []byte, removed bool, err error) {
	if id == "" {
		return nil, false, ErrEmptyID
	}

	r := docstream.NewReader(doc)
	sink := docstream.NewSink(len(doc))
	w := &cdataWriter{sink: sink}

	var (
		skipTag string
		nested  int
	)
	for {
		tok, err := r.Next()
		if err != nil {
			return nil, false, err
		}
		if tok.Kind == docstream.EndOfInput {
			break
		}

		if skipTag != "" {
			switch {
			case tok.Kind == docstream.ElementOpen && tok.Name == skipTag && !tok.SelfClosing:
				nested++
			case tok.Kind == docstream.ElementClose && tok.Name == skipTag:
				if nested == 0 {
					skipTag = ""
				} else {
					nested--
				}
			}
			w.skipped()
			continue
		}

		if tok.Kind == docstream.ElementOpen && isContainer(tok.Name) && tok.HasAttrValue(id) {
			removed = true
			if !tok.SelfClosing {
				skipTag = tok.Name
			}
			w.skipped()
			continue
		}

		w.write(tok)
	}
	w.flush()
	return sink.Bytes(), removed, nil
}
