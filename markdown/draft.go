package markdown

import (
	"bytes"
	"fmt"

	"github.com/adrg/frontmatter"
	"gopkg.in/yaml.v2"
)

// FrontMatter is the metadata block at the top of a draft. Non-empty fields
// override the entry's values when the draft is published.
type FrontMatter struct {
	Title  string `yaml:"title"`
	Author string `yaml:"author,omitempty"`
	Image  string `yaml:"image,omitempty"`
}

// ParseDraft splits a draft into its front matter and body. A draft without
// front matter is all body.
func ParseDraft(src []byte) (FrontMatter, []byte, error) {
	var fm FrontMatter
	body, err := frontmatter.Parse(bytes.NewReader(src), &fm)
	if err != nil {
		return FrontMatter{}, nil, fmt.Errorf("parse front matter: %w", err)
	}
	return fm, body, nil
}

// FormatDraft renders fm as a YAML front matter block followed by body.
// ParseDraft returns body unchanged.
func FormatDraft(fm FrontMatter, body []byte) ([]byte, error) {
	meta, err := yaml.Marshal(fm)
	if err != nil {
		return nil, fmt.Errorf("encode front matter: %w", err)
	}
	var buf bytes.Buffer
	buf.WriteString("---\n")
	buf.Write(meta)
	buf.WriteString("---\n")
	buf.Write(body)
	return buf.Bytes(), nil
}
