package docstream

import (
	"errors"
	"testing"
)

const sampleFeed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
<channel>
<title>Notes</title>
<!-- OB -->
<item id='a1'>
<title>First &amp; foremost</title>
<description><![CDATA[<p>hello</p>]]>
</description>
</item>
<br/>
</channel>
</rss>
`

func readAll(t *testing.T, src string) []Token {
	t.Helper()
	r := NewReader([]byte(src))
	var toks []Token
	for {
		tok, err := r.Next()
		if err != nil {
			t.Fatalf("Next failed at offset %d: %v", r.Offset(), err)
		}
		toks = append(toks, tok)
		if tok.Kind == EndOfInput {
			return toks
		}
	}
}

func TestReaderRawRoundTrip(t *testing.T) {
	toks := readAll(t, sampleFeed)
	sink := NewSink(len(sampleFeed))
	for _, tok := range toks {
		sink.Write(tok)
	}
	if got := string(sink.Bytes()); got != sampleFeed {
		t.Errorf("round trip mismatch:\ngot  %q\nwant %q", got, sampleFeed)
	}
}

func TestReaderTokenKinds(t *testing.T) {
	toks := readAll(t, sampleFeed)

	var (
		sawMarker, sawCData, sawItem, sawSelfClosing bool
		offset                                       int
	)
	for _, tok := range toks {
		if tok.Offset != offset {
			t.Fatalf("token %s offset = %d, want %d", tok.Kind, tok.Offset, offset)
		}
		offset += len(tok.Raw)
		switch tok.Kind {
		case Comment:
			if tok.Data == " OB " {
				sawMarker = true
			}
		case CData:
			sawCData = true
			if tok.Data != "<p>hello</p>" {
				t.Errorf("CData = %q, want %q", tok.Data, "<p>hello</p>")
			}
		case ElementOpen:
			if tok.Name == "item" {
				sawItem = true
				if !tok.HasAttrValue("a1") {
					t.Errorf("item attrs = %v, want value a1", tok.Attrs)
				}
				if v, ok := tok.Attr("ID"); !ok || v != "a1" {
					t.Errorf("Attr(ID) = %q, %v", v, ok)
				}
			}
			if tok.Name == "br" {
				sawSelfClosing = tok.SelfClosing
				if tok.OpensScope() {
					t.Error("self-closing br should not open a scope")
				}
			}
		}
	}
	if !sawMarker || !sawCData || !sawItem || !sawSelfClosing {
		t.Errorf("marker=%v cdata=%v item=%v selfclosing=%v", sawMarker, sawCData, sawItem, sawSelfClosing)
	}
	if last := toks[len(toks)-1]; last.Kind != EndOfInput || last.Offset != len(sampleFeed) {
		t.Errorf("last token = %s at %d", last.Kind, last.Offset)
	}
}

func TestReaderTextIsUnescaped(t *testing.T) {
	toks := readAll(t, `<p>a &amp; b</p>`)
	if toks[1].Kind != Text || toks[1].Data != "a & b" {
		t.Errorf("text token = %s %q", toks[1].Kind, toks[1].Data)
	}
	if string(toks[1].Raw) != "a &amp; b" {
		t.Errorf("raw = %q", toks[1].Raw)
	}
}

func TestReaderMalformed(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		offset int
	}{
		{"unterminated comment", "<p>hi</p><!-- OB", 9},
		{"unterminated cdata", "<d><![CDATA[abc", 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewReader([]byte(tt.input))
			var err error
			for err == nil {
				var tok Token
				tok, err = r.Next()
				if err == nil && tok.Kind == EndOfInput {
					t.Fatal("expected malformed error, reached end of input")
				}
			}
			if !errors.Is(err, ErrMalformedDocument) {
				t.Fatalf("err = %v, want ErrMalformedDocument", err)
			}
			var me *MalformedError
			if !errors.As(err, &me) {
				t.Fatalf("err = %T, want *MalformedError", err)
			}
			if me.Offset != tt.offset {
				t.Errorf("Offset = %d, want %d", me.Offset, tt.offset)
			}
			if _, again := r.Next(); again == nil {
				t.Error("reader should stay failed")
			}
		})
	}
}

func TestReaderNotRestartable(t *testing.T) {
	r := NewReader([]byte("<p></p>"))
	for {
		tok, err := r.Next()
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		if tok.Kind == EndOfInput {
			break
		}
	}
	if _, err := r.Next(); err == nil {
		t.Error("expected error reading past end of input")
	}
}

func TestSinkWriteCData(t *testing.T) {
	s := NewSink(0)
	s.WriteString("<d>")
	s.WriteCData("x")
	s.WriteRaw([]byte("</d>"))
	if got, want := string(s.Bytes()), "<d><![CDATA[x]]></d>"; got != want {
		t.Errorf("Bytes = %q, want %q", got, want)
	}
	if s.Len() != len("<d><![CDATA[x]]></d>") {
		t.Errorf("Len = %d", s.Len())
	}
}
