package docstream

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"golang.org/x/net/html"
)

// ErrMalformedDocument is matched by every error a Reader returns for input
// it cannot tokenize.
var ErrMalformedDocument = errors.New("malformed document")

var (
	errSkippedInput   = errors.New("tokenizer skipped input")
	errTrailingInput  = errors.New("input left over at end of document")
	errUnterminated   = errors.New("unterminated markup")
	errReaderFinished = errors.New("reader already finished")
)

var (
	cdataOpen  = []byte("<![CDATA[")
	cdataClose = []byte("]]>")
)

// MalformedError reports where tokenization failed.
type MalformedError struct {
	Offset int
	Err    error
}

func (e *MalformedError) Error() string {
	return fmt.Sprintf("malformed document at byte %d: %v", e.Offset, e.Err)
}

func (e *MalformedError) Unwrap() error { return e.Err }

func (e *MalformedError) Is(target error) bool { return target == ErrMalformedDocument }

// Reader yields the tokens of a document in order. It is not restartable:
// once EndOfInput or an error has been returned, construct a new Reader to
// read the document again.
type Reader struct {
	z      *html.Tokenizer
	src    []byte
	offset int
	done   bool
	err    error
}

// NewReader returns a Reader over src. src must not be modified while the
// Reader is in use.
func NewReader(src []byte) *Reader {
	z := html.NewTokenizer(bytes.NewReader(src))
	z.AllowCDATA(true)
	return &Reader{z: z, src: src}
}

// Offset returns the number of bytes consumed so far.
func (r *Reader) Offset() int { return r.offset }

// Next returns the next token. After the final token it returns a token of
// kind EndOfInput; any failure is a *MalformedError.
func (r *Reader) Next() (Token, error) {
	if r.err != nil {
		return Token{}, r.err
	}
	if r.done {
		return Token{}, r.fail(r.offset, errReaderFinished)
	}

	tt := r.z.Next()
	if tt == html.ErrorToken {
		if err := r.z.Err(); err != io.EOF {
			return Token{}, r.fail(r.offset, err)
		}
		if r.offset != len(r.src) {
			return Token{}, r.fail(r.offset, errTrailingInput)
		}
		r.done = true
		return Token{Kind: EndOfInput, Offset: r.offset}, nil
	}

	// Raw must be copied before Text or Token, which may rewrite the
	// tokenizer's buffer in place.
	raw := append([]byte(nil), r.z.Raw()...)
	start := r.offset
	if !bytes.HasPrefix(r.src[start:], raw) {
		return Token{}, r.fail(start, errSkippedInput)
	}
	r.offset += len(raw)

	tok := Token{Raw: raw, Offset: start}
	switch tt {
	case html.TextToken:
		if bytes.HasPrefix(raw, cdataOpen) {
			if len(raw) < len(cdataOpen)+len(cdataClose) || !bytes.HasSuffix(raw, cdataClose) {
				return Token{}, r.fail(start, errUnterminated)
			}
			tok.Kind = CData
			tok.Data = string(raw[len(cdataOpen) : len(raw)-len(cdataClose)])
			return tok, nil
		}
		tok.Kind = Text
		tok.Data = string(r.z.Text())
	case html.StartTagToken, html.SelfClosingTagToken:
		if !bytes.HasSuffix(raw, []byte(">")) {
			return Token{}, r.fail(start, errUnterminated)
		}
		t := r.z.Token()
		tok.Kind = ElementOpen
		tok.Name = t.Data
		tok.SelfClosing = tt == html.SelfClosingTagToken
		if len(t.Attr) > 0 {
			tok.Attrs = make([]Attr, 0, len(t.Attr))
			for _, a := range t.Attr {
				tok.Attrs = append(tok.Attrs, Attr{Key: a.Key, Val: a.Val})
			}
		}
	case html.EndTagToken:
		if !bytes.HasSuffix(raw, []byte(">")) {
			return Token{}, r.fail(start, errUnterminated)
		}
		tok.Kind = ElementClose
		tok.Name = r.z.Token().Data
	case html.CommentToken:
		if !bytes.HasSuffix(raw, []byte(">")) {
			return Token{}, r.fail(start, errUnterminated)
		}
		tok.Kind = Comment
		tok.Data = string(r.z.Text())
	case html.DoctypeToken:
		tok.Kind = Directive
		tok.Data = string(r.z.Text())
	default:
		return Token{}, r.fail(start, fmt.Errorf("unexpected token type %v", tt))
	}
	return tok, nil
}

func (r *Reader) fail(offset int, err error) error {
	r.err = &MalformedError{Offset: offset, Err: err}
	return r.err
}
