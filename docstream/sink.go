package docstream

import "bytes"

// Sink accumulates output in exactly the order it is written. It never
// reorders, merges or drops anything on its own; every omission is a decision
// made by the caller.
type Sink struct {
	buf bytes.Buffer
}

// NewSink returns a Sink with capacity for roughly sizeHint bytes.
func NewSink(sizeHint int) *Sink {
	s := &Sink{}
	if sizeHint > 0 {
		s.buf.Grow(sizeHint)
	}
	return s
}

// Write copies the token's source text.
func (s *Sink) Write(t Token) {
	s.buf.Write(t.Raw)
}

// WriteRaw injects literal markup.
func (s *Sink) WriteRaw(b []byte) {
	s.buf.Write(b)
}

// WriteString injects literal markup.
func (s *Sink) WriteString(str string) {
	s.buf.WriteString(str)
}

// WriteCData writes content as a <![CDATA[...]]> section.
func (s *Sink) WriteCData(content string) {
	s.buf.Write(cdataOpen)
	s.buf.WriteString(content)
	s.buf.Write(cdataClose)
}

// Len returns the number of bytes written so far.
func (s *Sink) Len() int { return s.buf.Len() }

// Bytes returns the accumulated output. The slice aliases the Sink's buffer.
func (s *Sink) Bytes() []byte { return s.buf.Bytes() }
