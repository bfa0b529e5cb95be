// Package docstream reads XML/HTML documents as a forward-only stream of
// structural tokens and writes them back out byte for byte.
//
// A Reader never builds a tree: each call to Next yields the next token along
// with the exact source bytes it was parsed from, so a Sink can reproduce the
// untouched parts of a document verbatim.
package docstream

import "strings"

// Kind identifies the structural role of a Token.
type Kind int

const (
	EndOfInput Kind = iota
	ElementOpen
	ElementClose
	Text
	Comment
	CData
	Directive
)

func (k Kind) String() string {
	switch k {
	case EndOfInput:
		return "end-of-input"
	case ElementOpen:
		return "element-open"
	case ElementClose:
		return "element-close"
	case Text:
		return "text"
	case Comment:
		return "comment"
	case CData:
		return "cdata"
	case Directive:
		return "directive"
	}
	return "unknown"
}

// Attr is a single element attribute with its unescaped value.
type Attr struct {
	Key string
	Val string
}

// Token is one structural unit of a document. Tokens are immutable once
// returned by a Reader.
type Token struct {
	Kind Kind
	// Name is the lower-cased element name for ElementOpen and ElementClose.
	Name  string
	Attrs []Attr
	// SelfClosing is set for ElementOpen tokens written as <name/>.
	SelfClosing bool
	// Data holds the content of Text, Comment and CData tokens. Comment data
	// excludes the <!-- --> delimiters, CData excludes <![CDATA[ ]]>.
	Data string
	// Raw is the verbatim source text of the token.
	Raw []byte
	// Offset is the byte offset of Raw within the document.
	Offset int
}

// HasAttrValue reports whether any attribute of t has exactly the value v.
func (t Token) HasAttrValue(v string) bool {
	for _, a := range t.Attrs {
		if a.Val == v {
			return true
		}
	}
	return false
}

// Attr returns the value of the attribute named key.
func (t Token) Attr(key string) (string, bool) {
	key = strings.ToLower(key)
	for _, a := range t.Attrs {
		if a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

// IsBlank reports whether t is a text token holding only whitespace.
func (t Token) IsBlank() bool {
	return t.Kind == Text && strings.TrimSpace(t.Data) == ""
}

// voidElements never take a closing tag in HTML documents.
var voidElements = map[string]struct{}{
	"area": {}, "base": {}, "br": {}, "col": {}, "embed": {}, "hr": {},
	"img": {}, "input": {}, "meta": {}, "param": {}, "source": {},
	"track": {}, "wbr": {},
}

// OpensScope reports whether t is an element open that a matching close is
// expected to end. Self-closing tags and HTML void elements do not.
func (t Token) OpensScope() bool {
	if t.Kind != ElementOpen || t.SelfClosing {
		return false
	}
	_, void := voidElements[t.Name]
	return !void
}
