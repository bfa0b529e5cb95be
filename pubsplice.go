// Package pubsplice manages a personal publishing workflow. Drafts are
// published by splicing generated markup into three hand-authored documents:
// a per-entry page built from a template, a rolling index, and a syndication
// feed. Documents are rewritten with the streaming passes in package mutate,
// never parsed into a tree, so everything outside the tool's own fragments
// survives byte for byte.
//
// A Publisher holds the workspace lock for its lifetime. Every operation
// stages its file changes in a ChangeSet and commits them only after every
// document pass has succeeded; the entry store is updated last.
package pubsplice

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"github.com/eringen/pubsplice/fragment"
	"github.com/eringen/pubsplice/markdown"
	"github.com/eringen/pubsplice/mutate"
)

// LockFileName is created in the workspace root while a Publisher is open.
const LockFileName = ".pubsplice.lock"

var (
	// ErrLocked is returned by Open when another process holds the workspace.
	ErrLocked = errors.New("workspace is locked by another pubsplice process")
	// ErrAlreadyPublished is returned when publishing a published entry.
	ErrAlreadyPublished = errors.New("entry is already published")
	// ErrNotPublished is returned when an operation needs a published entry.
	ErrNotPublished = errors.New("entry is not published")
	// ErrEmptyName is returned when a draft would have no name.
	ErrEmptyName = errors.New("entry name is empty")
	// ErrNoDraft is returned when an unpublished entry has no draft file.
	ErrNoDraft = errors.New("draft file not found")
)

// Publisher runs the workflow operations against one workspace.
type Publisher struct {
	cfg   *Config
	store EntryStore
	md    *markdown.Converter
	log   *slog.Logger
	lock  *flock.Flock
	now   func() time.Time
	newID func() string
}

// Option configures a Publisher.
type Option func(*Publisher)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *slog.Logger) Option {
	return func(p *Publisher) { p.log = l }
}

// WithClock sets the clock used to stamp publication dates.
func WithClock(now func() time.Time) Option {
	return func(p *Publisher) { p.now = now }
}

// WithIDGenerator sets the function that assigns ids to new drafts.
func WithIDGenerator(newID func() string) Option {
	return func(p *Publisher) { p.newID = newID }
}

// WithStore uses s instead of the store named in the config. The Publisher
// closes it.
func WithStore(s EntryStore) Option {
	return func(p *Publisher) { p.store = s }
}

// Open locks the workspace described by cfg and opens its entry store.
func Open(cfg *Config, opts ...Option) (*Publisher, error) {
	p := &Publisher{
		cfg: cfg,
		md: markdown.NewConverter(markdown.Options{
			Extensions: cfg.Markdown.Extensions,
			HardWraps:  cfg.Markdown.HardWraps,
		}),
		log:   slog.New(slog.DiscardHandler),
		now:   time.Now,
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(p)
	}

	if err := cfg.EnsureDirectories(); err != nil {
		return nil, err
	}
	p.lock = flock.New(filepath.Join(cfg.Root, LockFileName))
	locked, err := p.lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("lock workspace: %w", err)
	}
	if !locked {
		return nil, ErrLocked
	}

	if p.store == nil {
		store, err := OpenStore(cfg.Store)
		if err != nil {
			p.lock.Unlock()
			return nil, fmt.Errorf("open entry store: %w", err)
		}
		p.store = store
	}
	return p, nil
}

// Close closes the entry store and releases the workspace lock.
func (p *Publisher) Close() error {
	return errors.Join(p.store.Close(), p.lock.Unlock())
}

// Config returns the configuration the Publisher was opened with.
func (p *Publisher) Config() *Config { return p.cfg }

// DraftRequest describes a new draft.
type DraftRequest struct {
	Name   string
	Author string // defaults to the site author
	Image  string // cover image: an address or a local file
	// From imports an existing Markdown or HTML file as the draft body.
	// Its front matter, if any, fills in fields left empty above.
	From string
}

// NewDraft creates an unpublished entry and its draft file, and returns the
// entry and the draft path.
func (p *Publisher) NewDraft(req DraftRequest) (Entry, string, error) {
	var fm markdown.FrontMatter
	var body []byte
	ext := ".md"
	if req.From != "" {
		src, err := os.ReadFile(req.From)
		if err != nil {
			return Entry{}, "", fmt.Errorf("import draft: %w", err)
		}
		if fm, body, err = markdown.ParseDraft(src); err != nil {
			return Entry{}, "", fmt.Errorf("import draft %s: %w", req.From, err)
		}
		if isHTML(req.From) {
			ext = ".html"
		}
		if req.Name == "" && fm.Title == "" {
			fm.Title = DeriveName(req.From)
		}
	}

	e := Entry{
		ID:     p.newID(),
		Name:   strings.TrimSpace(firstNonEmpty(req.Name, fm.Title)),
		Author: strings.TrimSpace(firstNonEmpty(req.Author, fm.Author, p.cfg.Site.Author)),
		Image:  strings.TrimSpace(firstNonEmpty(req.Image, fm.Image)),
	}
	if e.Name == "" {
		return Entry{}, "", ErrEmptyName
	}
	if len(body) == 0 && ext == ".md" {
		body = []byte("\n")
	}

	draft, err := markdown.FormatDraft(markdown.FrontMatter{Title: e.Name, Author: e.Author, Image: e.Image}, body)
	if err != nil {
		return Entry{}, "", err
	}
	path := filepath.Join(p.cfg.Paths.DraftsDir, e.ID+ext)

	var cs ChangeSet
	cs.Write(path, draft)
	if err := cs.Commit(); err != nil {
		return Entry{}, "", err
	}
	if err := p.store.Save(e); err != nil {
		os.Remove(path)
		return Entry{}, "", fmt.Errorf("save entry %s: %w", e.ID, err)
	}
	p.log.Info("draft created", "id", e.ID, "name", e.Name, "draft", path)
	return e, path, nil
}

// Publish turns the draft of entry id into a page and adds the entry to the
// index and the feed. The draft file is removed.
func (p *Publisher) Publish(id string) (Entry, error) {
	e, err := p.store.Get(id)
	if err != nil {
		return Entry{}, fmt.Errorf("publish %s: %w", id, err)
	}
	if e.Published {
		return Entry{}, fmt.Errorf("publish %s: %w", id, ErrAlreadyPublished)
	}

	draftPath, err := p.draftPath(id)
	if err != nil {
		return Entry{}, fmt.Errorf("publish %s: %w", id, err)
	}
	src, err := os.ReadFile(draftPath)
	if err != nil {
		return Entry{}, fmt.Errorf("read draft: %w", err)
	}
	fm, body, err := markdown.ParseDraft(src)
	if err != nil {
		return Entry{}, fmt.Errorf("draft %s: %w", draftPath, err)
	}
	if !isHTML(draftPath) {
		if body, err = p.md.Convert(body); err != nil {
			return Entry{}, fmt.Errorf("draft %s: %w", draftPath, err)
		}
	}
	e.Name = strings.TrimSpace(firstNonEmpty(fm.Title, e.Name))
	e.Author = strings.TrimSpace(firstNonEmpty(fm.Author, e.Author))
	e.Image = strings.TrimSpace(firstNonEmpty(fm.Image, e.Image))
	if e.Name == "" {
		return Entry{}, fmt.Errorf("publish %s: %w", id, ErrEmptyName)
	}

	var cs ChangeSet
	if e.Image, err = p.resolveCover(&cs, e.ID, e.Image); err != nil {
		return Entry{}, err
	}
	e.Date = p.now().Format(DateLayout)
	e.Published = true

	if err := p.spliceEntry(&cs, e, string(body)); err != nil {
		return Entry{}, err
	}
	cs.Remove(draftPath)
	if err := p.commit(&cs, "publish", e.ID); err != nil {
		return Entry{}, err
	}
	if err := p.store.Save(e); err != nil {
		return Entry{}, fmt.Errorf("save entry %s: %w", e.ID, err)
	}
	return e, nil
}

// Delete removes entry id. A published entry is taken out of the index and
// the feed and its page is deleted; a draft just loses its draft file.
func (p *Publisher) Delete(id string) error {
	e, err := p.store.Get(id)
	if err != nil {
		return fmt.Errorf("delete %s: %w", id, err)
	}

	var cs ChangeSet
	if e.Published {
		if err := p.unlinkEntry(&cs, id); err != nil {
			return err
		}
	} else if path, err := p.draftPath(id); err == nil {
		cs.Remove(path)
	} else {
		p.log.Warn("entry has no draft file", "id", id)
	}

	if err := p.commit(&cs, "delete", id); err != nil {
		return err
	}
	if err := p.store.Delete(id); err != nil {
		return fmt.Errorf("delete entry %s: %w", id, err)
	}
	return nil
}

// Edit takes entry id back to a draft: its body is recovered from the page
// into an HTML draft, and the entry is withdrawn from the index and the
// feed. Returns the draft path.
func (p *Publisher) Edit(id string) (string, error) {
	e, err := p.store.Get(id)
	if err != nil {
		return "", fmt.Errorf("edit %s: %w", id, err)
	}
	if !e.Published {
		return "", fmt.Errorf("edit %s: %w", id, ErrNotPublished)
	}

	pagePath := p.cfg.PagePath(id)
	page, err := os.ReadFile(pagePath)
	if err != nil {
		return "", fmt.Errorf("read page: %w", err)
	}
	body, err := mutate.ExtractInner(page)
	if err != nil {
		return "", fmt.Errorf("recover body from %s: %w", pagePath, err)
	}
	draft, err := markdown.FormatDraft(markdown.FrontMatter{Title: e.Name, Author: e.Author, Image: e.Image}, body)
	if err != nil {
		return "", err
	}

	var cs ChangeSet
	draftPath := filepath.Join(p.cfg.Paths.DraftsDir, id+".html")
	cs.Write(draftPath, draft)
	if err := p.unlinkEntry(&cs, id); err != nil {
		return "", err
	}
	if err := p.commit(&cs, "edit", id); err != nil {
		return "", err
	}

	e.Published = false
	e.Date = ""
	if err := p.store.Save(e); err != nil {
		return "", fmt.Errorf("save entry %s: %w", id, err)
	}
	return draftPath, nil
}

// Regenerate rebuilds the page of every published entry from the current
// template, keeping each page's body. It returns the number of pages
// rebuilt.
func (p *Publisher) Regenerate() (int, error) {
	entries, err := p.store.List()
	if err != nil {
		return 0, err
	}
	tmpl, err := os.ReadFile(p.cfg.Paths.Template)
	if err != nil {
		return 0, fmt.Errorf("read template: %w", err)
	}

	var cs ChangeSet
	count := 0
	for _, e := range entries {
		if !e.Published {
			continue
		}
		pagePath := p.cfg.PagePath(e.ID)
		page, err := os.ReadFile(pagePath)
		if err != nil {
			return 0, fmt.Errorf("read page: %w", err)
		}
		body, err := mutate.ExtractInner(page)
		if err != nil {
			return 0, fmt.Errorf("recover body from %s: %w", pagePath, err)
		}
		out, err := p.renderPage(tmpl, e, string(body))
		if err != nil {
			return 0, err
		}
		cs.Write(pagePath, out)
		count++
	}
	if err := p.commit(&cs, "regenerate", ""); err != nil {
		return 0, err
	}
	return count, nil
}

// List returns every entry in creation order.
func (p *Publisher) List() ([]Entry, error) {
	return p.store.List()
}

// spliceEntry stages the page of e and its index and feed insertions.
func (p *Publisher) spliceEntry(cs *ChangeSet, e Entry, body string) error {
	tmpl, err := os.ReadFile(p.cfg.Paths.Template)
	if err != nil {
		return fmt.Errorf("read template: %w", err)
	}
	page, err := p.renderPage(tmpl, e, body)
	if err != nil {
		return err
	}
	cs.Write(p.cfg.PagePath(e.ID), page)

	if err := p.rewrite(cs, p.cfg.Paths.Index, func(doc []byte) ([]byte, error) {
		return mutate.Insert(doc, mutate.InsertRequest{
			Kind:     mutate.Index,
			Fragment: fragment.Index(e.meta(), p.cfg.Site.BaseURL),
		})
	}); err != nil {
		return err
	}
	return p.rewrite(cs, p.cfg.Paths.Feed, func(doc []byte) ([]byte, error) {
		return mutate.Insert(doc, mutate.InsertRequest{
			Kind:      mutate.Feed,
			Fragment:  fragment.Feed(e.meta(), p.cfg.Site.BaseURL, body),
			Retention: p.cfg.Feed.Retention,
		})
	})
}

// unlinkEntry stages the removal of entry id from the index and the feed
// and the deletion of its page.
func (p *Publisher) unlinkEntry(cs *ChangeSet, id string) error {
	for _, path := range []string{p.cfg.Paths.Index, p.cfg.Paths.Feed} {
		if err := p.rewrite(cs, path, func(doc []byte) ([]byte, error) {
			out, removed, err := mutate.Remove(doc, id)
			if err == nil && !removed {
				p.log.Warn("entry not present in document", "id", id, "document", path)
			}
			return out, err
		}); err != nil {
			return err
		}
	}
	cs.Remove(p.cfg.PagePath(id))
	return nil
}

func (p *Publisher) renderPage(tmpl []byte, e Entry, body string) ([]byte, error) {
	page, err := mutate.Insert(tmpl, mutate.InsertRequest{
		Kind:     mutate.Template,
		Fragment: fragment.Template(e.meta(), body),
		Name:     e.Name,
	})
	if err != nil {
		return nil, fmt.Errorf("template %s: %w", p.cfg.Paths.Template, err)
	}
	return page, nil
}

// rewrite reads path, passes it through fn and stages the result.
func (p *Publisher) rewrite(cs *ChangeSet, path string, fn func([]byte) ([]byte, error)) error {
	doc, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read document: %w", err)
	}
	out, err := fn(doc)
	if err != nil {
		return fmt.Errorf("document %s: %w", path, err)
	}
	cs.Write(path, out)
	return nil
}

func (p *Publisher) commit(cs *ChangeSet, op, id string) error {
	paths := cs.Paths()
	if err := cs.Commit(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	for _, path := range paths {
		p.log.Info("document written", "op", op, "id", id, "path", path)
	}
	return nil
}

// draftPath finds the draft file of entry id.
func (p *Publisher) draftPath(id string) (string, error) {
	for _, ext := range []string{".md", ".html"} {
		path := filepath.Join(p.cfg.Paths.DraftsDir, id+ext)
		if _, err := os.Stat(path); err == nil {
			return path, nil
		} else if !errors.Is(err, fs.ErrNotExist) {
			return "", err
		}
	}
	return "", ErrNoDraft
}

func isHTML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".html", ".htm":
		return true
	}
	return false
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
