package pubsplice

import (
	"time"

	"github.com/eringen/pubsplice/fragment"
)

// DateLayout formats publication dates. It doubles as a valid RSS pubDate.
const DateLayout = time.RFC1123Z

// Entry is one article, draft or published. ID is assigned once when the
// draft is created and never reused.
type Entry struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Author    string `json:"author"`
	Date      string `json:"date"`
	Image     string `json:"image,omitempty"`
	Published bool   `json:"published"`
}

func (e Entry) meta() fragment.Meta {
	return fragment.Meta{
		ID:     e.ID,
		Name:   e.Name,
		Author: e.Author,
		Date:   e.Date,
		Image:  e.Image,
	}
}
