// Package mutate rewrites documents around the tool-owned marker comment.
//
// Every operation is a single forward pass: tokens are read from a
// docstream.Reader and each one is copied, substituted or dropped into a
// docstream.Sink before the next is requested. Operations take the document
// bytes and return new bytes; persisting them is the caller's job, so a
// failed pass never leaves a half-written file behind.
package mutate

import (
	"errors"
	"fmt"
	"strings"

	"github.com/eringen/pubsplice/docstream"
)

// Sentinel is the content of the marker comment, <!-- OB -->.
const Sentinel = "OB"

// Sub-markers written by Template fragments so ExtractInner can find the
// generated preamble and the end of the body.
const (
	PreambleOpen  = "OB:preamble"
	PreambleClose = "/OB:preamble"
	BodyClose     = "/OB:body"
)

var (
	ErrMissingMarker    = errors.New("document has no <!-- " + Sentinel + " --> marker")
	ErrAmbiguousMarker  = errors.New("document has more than one <!-- " + Sentinel + " --> marker")
	ErrPreambleMismatch = errors.New("generated preamble is not closed")
)

// Kind selects which document an Insert targets.
type Kind int

const (
	Template Kind = iota
	Index
	Feed
)

func (k Kind) String() string {
	switch k {
	case Template:
		return "template"
	case Index:
		return "index"
	case Feed:
		return "feed"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Container tag names: one entry per list item in the index, one per item in
// the feed.
const (
	IndexContainer = "li"
	FeedContainer  = "item"
	titleTag       = "title"
)

// IsMarker reports whether t is the marker comment.
func IsMarker(t docstream.Token) bool {
	return isComment(t, Sentinel)
}

func isComment(t docstream.Token, text string) bool {
	return t.Kind == docstream.Comment && strings.TrimSpace(t.Data) == text
}

func isContainer(name string) bool {
	return name == IndexContainer || name == FeedContainer
}

// Comment renders text as a comment token.
func Comment(text string) string {
	return "<!-- " + text + " -->"
}

// cdataWriter re-serializes CDATA in normalized form: a run of adjacent
// sections is followed by exactly one newline. A text token that already
// starts with a newline supplies it, so a document that went through a pass
// comes out byte-identical. Sections split to escape "]]>" stay adjacent.
type cdataWriter struct {
	sink        *docstream.Sink
	needNewline bool
}

func (w *cdataWriter) write(t docstream.Token) {
	if t.Kind == docstream.CData {
		w.sink.WriteCData(t.Data)
		w.needNewline = true
		return
	}
	if w.needNewline {
		w.needNewline = false
		if !(t.Kind == docstream.Text && len(t.Raw) > 0 && t.Raw[0] == '\n') {
			w.sink.WriteString("\n")
		}
	}
	w.sink.Write(t)
}

// skipped tells the writer a token was dropped. A pending newline is written
// before the gap.
func (w *cdataWriter) skipped() {
	w.flush()
}

// flush writes the newline owed to a trailing CDATA run.
func (w *cdataWriter) flush() {
	if w.needNewline {
		w.sink.WriteString("\n")
		w.needNewline = false
	}
}
