// Package fragment renders the markup spliced into documents for one entry.
// The functions are pure: they know nothing about the documents the markup
// ends up in.
package fragment

import (
	"html"
	"strings"

	"github.com/eringen/pubsplice/mutate"
)

// Meta carries the entry fields that appear in rendered markup.
type Meta struct {
	ID     string
	Name   string
	Author string
	Date   string
	Image  string
}

// Permalink is the stable address of an entry: the configured base address
// followed by the entry id.
func Permalink(baseURL, id string) string {
	return baseURL + id
}

// Block renders the heading, byline and timestamp, preceded by the cover
// image when the entry has one.
func Block(m Meta) string {
	var b strings.Builder
	if m.Image != "" {
		b.WriteString("<img class='cover' src='")
		b.WriteString(html.EscapeString(m.Image))
		b.WriteString("' alt='")
		b.WriteString(html.EscapeString(m.Name))
		b.WriteString("'>\n")
	}
	b.WriteString("<h1>")
	b.WriteString(html.EscapeString(m.Name))
	b.WriteString("</h1>\n<p class='byline'>")
	b.WriteString(html.EscapeString(m.Author))
	b.WriteString("</p>\n<time>")
	b.WriteString(html.EscapeString(m.Date))
	b.WriteString("</time>\n")
	return b.String()
}

// Template renders a per-entry page fragment: the block bracketed by the
// preamble comments, then the body, then the body terminator. The body is
// written untouched so it can be recovered byte for byte.
func Template(m Meta, body string) string {
	var b strings.Builder
	b.WriteString(mutate.Comment(mutate.PreambleOpen))
	b.WriteByte('\n')
	b.WriteString(Block(m))
	b.WriteString(mutate.Comment(mutate.PreambleClose))
	b.WriteString(body)
	b.WriteString(mutate.Comment(mutate.BodyClose))
	return b.String()
}

// Index renders a list item linking to the entry's permalink.
func Index(m Meta, baseURL string) string {
	var b strings.Builder
	b.WriteString("\n<")
	b.WriteString(mutate.IndexContainer)
	b.WriteString(" id='")
	b.WriteString(html.EscapeString(m.ID))
	b.WriteString("'><a href='")
	b.WriteString(html.EscapeString(Permalink(baseURL, m.ID)))
	b.WriteString("'>\n")
	b.WriteString(Block(m))
	b.WriteString("</a></")
	b.WriteString(mutate.IndexContainer)
	b.WriteString(">")
	return b.String()
}

// Feed renders a syndication item. The description holds the block and the
// full body on a single line inside a CDATA section.
func Feed(m Meta, baseURL, body string) string {
	link := html.EscapeString(Permalink(baseURL, m.ID))
	var b strings.Builder
	b.WriteString("\n<")
	b.WriteString(mutate.FeedContainer)
	b.WriteString(" id='")
	b.WriteString(html.EscapeString(m.ID))
	b.WriteString("'>\n<title>")
	b.WriteString(html.EscapeString(m.Name))
	b.WriteString("</title>\n<link>")
	b.WriteString(link)
	b.WriteString("</link>\n<guid>")
	b.WriteString(link)
	b.WriteString("</guid>\n")
	if m.Author != "" {
		b.WriteString("<author>")
		b.WriteString(html.EscapeString(m.Author))
		b.WriteString("</author>\n")
	}
	b.WriteString("<pubDate>")
	b.WriteString(html.EscapeString(m.Date))
	b.WriteString("</pubDate>\n<description><![CDATA[")
	b.WriteString(escapeCDATA(stripNewlines(Block(m) + body)))
	b.WriteString("]]>\n</description>\n</")
	b.WriteString(mutate.FeedContainer)
	b.WriteString(">")
	return b.String()
}

func stripNewlines(s string) string {
	return strings.NewReplacer("\r", "", "\n", "").Replace(s)
}

// escapeCDATA splits any "]]>" so it cannot end the section early.
func escapeCDATA(s string) string {
	return strings.ReplaceAll(s, "]]>", "]]]]><![CDATA[>")
}
