package pubsplice

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const (
	testTemplate = `<!DOCTYPE html>
<html>
<head><title> | Notes</title></head>
<body>
<main>
<!-- OB -->
</main>
</body>
</html>
`
	testIndex = `<!DOCTYPE html>
<html>
<body>
<ul>
<!-- OB -->
</ul>
</body>
</html>
`
	testFeed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
<channel>
<title>Notes</title>
<link>https://example.com/</link>
<!-- OB -->
</channel>
</rss>
`
)

var testNow = time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)

func setupWorkspace(t *testing.T) *Config {
	t.Helper()
	dir := t.TempDir()
	public := filepath.Join(dir, "public")

	cfg := DefaultConfig()
	cfg.Root = dir
	cfg.Paths = Paths{
		Template:  filepath.Join(dir, "template.html"),
		Index:     filepath.Join(public, "index.html"),
		Feed:      filepath.Join(public, "feed.xml"),
		OutputDir: public,
		DraftsDir: filepath.Join(dir, "drafts"),
		ImagesDir: filepath.Join(public, "images"),
	}
	cfg.Site = Site{BaseURL: "https://example.com/", Author: "Oliver"}
	cfg.Feed.Retention = 2
	cfg.Store = StoreSettings{Driver: "json", Path: filepath.Join(dir, "entries.json")}

	if err := os.MkdirAll(public, 0o755); err != nil {
		t.Fatal(err)
	}
	writeFile(t, cfg.Paths.Template, testTemplate)
	writeFile(t, cfg.Paths.Index, testIndex)
	writeFile(t, cfg.Paths.Feed, testFeed)
	return &cfg
}

func openTestPublisher(t *testing.T, cfg *Config) *Publisher {
	t.Helper()
	n := 0
	p, err := Open(cfg,
		WithClock(func() time.Time { return testNow }),
		WithIDGenerator(func() string {
			n++
			return fmt.Sprintf("id-%d", n)
		}),
	)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { p.Close() })
	return p
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return string(data)
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// newDraft creates a draft and replaces its body, keeping the front matter.
func newDraft(t *testing.T, p *Publisher, name, body string) Entry {
	t.Helper()
	e, path, err := p.NewDraft(DraftRequest{Name: name})
	if err != nil {
		t.Fatalf("NewDraft(%q) failed: %v", name, err)
	}
	writeFile(t, path, readFile(t, path)+body)
	return e
}

func TestNewDraft(t *testing.T) {
	cfg := setupWorkspace(t)
	p := openTestPublisher(t, cfg)

	e, path, err := p.NewDraft(DraftRequest{Name: "First Post"})
	if err != nil {
		t.Fatalf("NewDraft failed: %v", err)
	}
	if e.ID != "id-1" || e.Author != "Oliver" || e.Published || e.Date != "" {
		t.Errorf("entry = %+v", e)
	}
	if want := filepath.Join(cfg.Paths.DraftsDir, "id-1.md"); path != want {
		t.Errorf("draft path = %q, want %q", path, want)
	}
	if got := readFile(t, path); !strings.HasPrefix(got, "---\ntitle: First Post\nauthor: Oliver\n---\n") {
		t.Errorf("draft = %q", got)
	}

	stored, err := p.store.Get("id-1")
	if err != nil || stored != e {
		t.Errorf("stored = %+v, %v; want %+v", stored, err, e)
	}

	if _, _, err := p.NewDraft(DraftRequest{Name: "  "}); !errors.Is(err, ErrEmptyName) {
		t.Errorf("empty name error = %v, want ErrEmptyName", err)
	}
}

func TestNewDraftFromFile(t *testing.T) {
	cfg := setupWorkspace(t)
	p := openTestPublisher(t, cfg)

	src := filepath.Join(cfg.Root, "road-trip_notes.md")
	writeFile(t, src, "Day one.\n")
	e, path, err := p.NewDraft(DraftRequest{From: src})
	if err != nil {
		t.Fatalf("NewDraft failed: %v", err)
	}
	if e.Name != "Road Trip Notes" {
		t.Errorf("Name = %q, want %q", e.Name, "Road Trip Notes")
	}
	if got := readFile(t, path); !strings.HasSuffix(got, "---\nDay one.\n") {
		t.Errorf("draft = %q", got)
	}

	withMeta := filepath.Join(cfg.Root, "imported.html")
	writeFile(t, withMeta, "---\ntitle: Imported\nauthor: Guest\n---\n<p>hi</p>\n")
	e, path, err = p.NewDraft(DraftRequest{From: withMeta})
	if err != nil {
		t.Fatalf("NewDraft failed: %v", err)
	}
	if e.Name != "Imported" || e.Author != "Guest" {
		t.Errorf("entry = %+v", e)
	}
	if filepath.Ext(path) != ".html" {
		t.Errorf("draft path = %q, want .html draft", path)
	}
}

func TestPublish(t *testing.T) {
	cfg := setupWorkspace(t)
	p := openTestPublisher(t, cfg)
	e := newDraft(t, p, "Fish & Chips", "Hello *world*\n")

	published, err := p.Publish(e.ID)
	if err != nil {
		t.Fatalf("Publish failed: %v", err)
	}
	if !published.Published || published.Date != testNow.Format(DateLayout) {
		t.Errorf("published entry = %+v", published)
	}

	page := readFile(t, cfg.PagePath(e.ID))
	for _, want := range []string{
		"<title>Fish &amp; Chips | Notes</title>",
		"<!-- OB --><!-- OB:preamble -->\n<h1>Fish &amp; Chips</h1>\n",
		"<!-- /OB:preamble --><p>Hello <em>world</em></p>\n<!-- /OB:body -->\n</main>",
	} {
		if !strings.Contains(page, want) {
			t.Errorf("page missing %q:\n%s", want, page)
		}
	}

	index := readFile(t, cfg.Paths.Index)
	if !strings.Contains(index, "<!-- OB -->\n<li id='id-1'><a href='https://example.com/id-1'>") {
		t.Errorf("index missing entry:\n%s", index)
	}
	feed := readFile(t, cfg.Paths.Feed)
	if !strings.Contains(feed, "<guid>https://example.com/id-1</guid>") {
		t.Errorf("feed missing entry:\n%s", feed)
	}
	if !strings.HasPrefix(feed, `<?xml version="1.0" encoding="UTF-8"?>`) {
		t.Errorf("feed prolog changed:\n%s", feed)
	}
	if readFile(t, cfg.Paths.Template) != testTemplate {
		t.Error("template must not change")
	}
	if exists(filepath.Join(cfg.Paths.DraftsDir, e.ID+".md")) {
		t.Error("draft should be removed after publish")
	}

	if _, err := p.Publish(e.ID); !errors.Is(err, ErrAlreadyPublished) {
		t.Errorf("second Publish error = %v, want ErrAlreadyPublished", err)
	}
	if _, err := p.Publish("nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Publish(unknown) error = %v, want ErrNotFound", err)
	}
}

func TestPublishAppliesFrontMatterOverrides(t *testing.T) {
	cfg := setupWorkspace(t)
	p := openTestPublisher(t, cfg)
	e, path, err := p.NewDraft(DraftRequest{Name: "Working Title"})
	if err != nil {
		t.Fatal(err)
	}
	writeFile(t, path, "---\ntitle: Final Title\nimage: https://cdn.example.org/a.jpg\n---\nbody\n")

	published, err := p.Publish(e.ID)
	if err != nil {
		t.Fatalf("Publish failed: %v", err)
	}
	if published.Name != "Final Title" || published.Author != "Oliver" || published.Image != "https://cdn.example.org/a.jpg" {
		t.Errorf("published entry = %+v", published)
	}
	if page := readFile(t, cfg.PagePath(e.ID)); !strings.Contains(page, "<img class='cover' src='https://cdn.example.org/a.jpg' alt='Final Title'>") {
		t.Errorf("page missing cover:\n%s", page)
	}
}

func TestFeedRetention(t *testing.T) {
	cfg := setupWorkspace(t)
	p := openTestPublisher(t, cfg)
	for i := 1; i <= 3; i++ {
		e := newDraft(t, p, fmt.Sprintf("Entry %d", i), "text\n")
		if _, err := p.Publish(e.ID); err != nil {
			t.Fatalf("Publish(%s) failed: %v", e.ID, err)
		}
	}

	feed := readFile(t, cfg.Paths.Feed)
	if strings.Contains(feed, "id='id-1'") {
		t.Errorf("oldest item should fall out of the feed:\n%s", feed)
	}
	i3, i2 := strings.Index(feed, "id='id-3'"), strings.Index(feed, "id='id-2'")
	if i3 < 0 || i2 < 0 || i3 > i2 {
		t.Errorf("feed should hold id-3 then id-2:\n%s", feed)
	}
	index := readFile(t, cfg.Paths.Index)
	for _, id := range []string{"id-1", "id-2", "id-3"} {
		if !strings.Contains(index, "<li id='"+id+"'>") {
			t.Errorf("index missing %s", id)
		}
	}
}

func TestEditRoundTrip(t *testing.T) {
	cfg := setupWorkspace(t)
	p := openTestPublisher(t, cfg)
	e := newDraft(t, p, "Round Trip", "# Title\n\nSome <b>bold</b> text.\n")
	if _, err := p.Publish(e.ID); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}
	original := readFile(t, cfg.PagePath(e.ID))

	draftPath, err := p.Edit(e.ID)
	if err != nil {
		t.Fatalf("Edit failed: %v", err)
	}
	if want := filepath.Join(cfg.Paths.DraftsDir, e.ID+".html"); draftPath != want {
		t.Errorf("draft path = %q, want %q", draftPath, want)
	}
	if exists(cfg.PagePath(e.ID)) {
		t.Error("page should be removed by Edit")
	}
	if strings.Contains(readFile(t, cfg.Paths.Index), e.ID) || strings.Contains(readFile(t, cfg.Paths.Feed), e.ID) {
		t.Error("entry should be withdrawn from index and feed")
	}
	stored, _ := p.store.Get(e.ID)
	if stored.Published || stored.Date != "" {
		t.Errorf("stored entry = %+v, want unpublished", stored)
	}

	if _, err := p.Publish(e.ID); err != nil {
		t.Fatalf("republish failed: %v", err)
	}
	if got := readFile(t, cfg.PagePath(e.ID)); got != original {
		t.Errorf("republished page differs\n got: %q\nwant: %q", got, original)
	}

	if _, err := p.Edit("missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Edit(missing) error = %v, want ErrNotFound", err)
	}
	draft := newDraft(t, p, "Draft Only", "")
	if _, err := p.Edit(draft.ID); !errors.Is(err, ErrNotPublished) {
		t.Errorf("Edit(draft) error = %v, want ErrNotPublished", err)
	}
}

func TestRegenerate(t *testing.T) {
	cfg := setupWorkspace(t)
	p := openTestPublisher(t, cfg)
	a := newDraft(t, p, "Alpha", "alpha body\n")
	b := newDraft(t, p, "Beta", "beta body\n")
	newDraft(t, p, "Unpublished", "")
	for _, id := range []string{a.ID, b.ID} {
		if _, err := p.Publish(id); err != nil {
			t.Fatalf("Publish(%s) failed: %v", id, err)
		}
	}

	writeFile(t, cfg.Paths.Template, strings.Replace(testTemplate, " | Notes", " | Journal", 1))
	n, err := p.Regenerate()
	if err != nil {
		t.Fatalf("Regenerate failed: %v", err)
	}
	if n != 2 {
		t.Errorf("Regenerate rebuilt %d pages, want 2", n)
	}

	page := readFile(t, cfg.PagePath(a.ID))
	if !strings.Contains(page, "<title>Alpha | Journal</title>") {
		t.Errorf("page not rebuilt from new template:\n%s", page)
	}
	if !strings.Contains(page, "<!-- /OB:preamble --><p>alpha body</p>\n<!-- /OB:body -->") {
		t.Errorf("page body not preserved:\n%s", page)
	}
	if strings.Count(page, "<h1>Alpha</h1>") != 1 {
		t.Errorf("preamble duplicated:\n%s", page)
	}
}

func TestDelete(t *testing.T) {
	cfg := setupWorkspace(t)
	p := openTestPublisher(t, cfg)
	pub := newDraft(t, p, "Published", "x\n")
	if _, err := p.Publish(pub.ID); err != nil {
		t.Fatal(err)
	}
	draft := newDraft(t, p, "Draft", "")

	if err := p.Delete(pub.ID); err != nil {
		t.Fatalf("Delete(published) failed: %v", err)
	}
	if exists(cfg.PagePath(pub.ID)) {
		t.Error("page should be deleted")
	}
	if index := readFile(t, cfg.Paths.Index); strings.Contains(index, "<li") || !strings.Contains(index, "<!-- OB -->") {
		t.Errorf("index should keep only its marker:\n%s", index)
	}
	if feed := readFile(t, cfg.Paths.Feed); strings.Contains(feed, "<item") || !strings.Contains(feed, "<!-- OB -->") {
		t.Errorf("feed should keep only its marker:\n%s", feed)
	}

	if err := p.Delete(draft.ID); err != nil {
		t.Fatalf("Delete(draft) failed: %v", err)
	}
	if exists(filepath.Join(cfg.Paths.DraftsDir, draft.ID+".md")) {
		t.Error("draft file should be deleted")
	}

	entries, err := p.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("List = %+v, want empty", entries)
	}
	if err := p.Delete(pub.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("second Delete error = %v, want ErrNotFound", err)
	}
}

func TestPublishFailureWritesNothing(t *testing.T) {
	cfg := setupWorkspace(t)
	p := openTestPublisher(t, cfg)
	e := newDraft(t, p, "Doomed", "body\n")

	broken := "<ul>\n<!-- OB -->\n</ul>\n<!-- unterminated"
	writeFile(t, cfg.Paths.Index, broken)

	if _, err := p.Publish(e.ID); err == nil {
		t.Fatal("expected Publish to fail on a malformed index")
	}
	if exists(cfg.PagePath(e.ID)) {
		t.Error("page must not be written when a later pass fails")
	}
	if readFile(t, cfg.Paths.Feed) != testFeed {
		t.Error("feed must be untouched")
	}
	if readFile(t, cfg.Paths.Index) != broken {
		t.Error("index must be untouched")
	}
	if !exists(filepath.Join(cfg.Paths.DraftsDir, e.ID+".md")) {
		t.Error("draft must survive a failed publish")
	}
	stored, _ := p.store.Get(e.ID)
	if stored.Published {
		t.Error("entry must stay unpublished")
	}
}

func TestPublishMissingMarker(t *testing.T) {
	cfg := setupWorkspace(t)
	p := openTestPublisher(t, cfg)
	e := newDraft(t, p, "No Marker", "body\n")
	writeFile(t, cfg.Paths.Feed, "<rss><channel></channel></rss>")

	_, err := p.Publish(e.ID)
	if err == nil || !strings.Contains(err.Error(), cfg.Paths.Feed) {
		t.Fatalf("error = %v, want one naming %s", err, cfg.Paths.Feed)
	}
}

func TestPublishLocalCover(t *testing.T) {
	cfg := setupWorkspace(t)
	p := openTestPublisher(t, cfg)

	img := image.NewRGBA(image.Rect(0, 0, 1000, 500))
	for x := 0; x < 1000; x++ {
		img.Set(x, 250, color.RGBA{R: 255, A: 255})
	}
	f, err := os.Create(filepath.Join(cfg.Root, "Beach Day.png"))
	if err != nil {
		t.Fatal(err)
	}
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
	f.Close()

	e, _, err := p.NewDraft(DraftRequest{Name: "Beach", Image: "Beach Day.png"})
	if err != nil {
		t.Fatal(err)
	}
	published, err := p.Publish(e.ID)
	if err != nil {
		t.Fatalf("Publish failed: %v", err)
	}
	if want := "https://example.com/images/beach-day-id1.jpg"; published.Image != want {
		t.Errorf("Image = %q, want %q", published.Image, want)
	}

	out, err := os.Open(filepath.Join(cfg.Paths.ImagesDir, "beach-day-id1.jpg"))
	if err != nil {
		t.Fatalf("processed cover missing: %v", err)
	}
	defer out.Close()
	decoded, err := jpeg.DecodeConfig(out)
	if err != nil {
		t.Fatalf("decode cover: %v", err)
	}
	if decoded.Width != maxImageWidth || decoded.Height != 400 {
		t.Errorf("cover is %dx%d, want %dx400", decoded.Width, decoded.Height, maxImageWidth)
	}
}

func TestOpenLocksWorkspace(t *testing.T) {
	cfg := setupWorkspace(t)
	p := openTestPublisher(t, cfg)

	if _, err := Open(cfg); !errors.Is(err, ErrLocked) {
		t.Fatalf("second Open error = %v, want ErrLocked", err)
	}
	if err := p.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	again, err := Open(cfg)
	if err != nil {
		t.Fatalf("Open after Close failed: %v", err)
	}
	again.Close()
}
