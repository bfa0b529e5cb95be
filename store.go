package pubsplice

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when no entry has the requested id.
var ErrNotFound = errors.New("entry not found")

// EntryStore keeps the entry list. Entries are listed in creation order.
type EntryStore interface {
	List() ([]Entry, error)
	Get(id string) (Entry, error)
	// Save inserts e, or replaces the entry with the same id in place.
	Save(e Entry) error
	Delete(id string) error
	Close() error
}

// OpenStore opens the backend selected by s.
func OpenStore(s StoreSettings) (EntryStore, error) {
	switch s.Driver {
	case "json", "":
		return NewJSONStore(s.Path)
	case "sqlite":
		return NewSQLiteStore(s.Path)
	}
	return nil, fmt.Errorf("unknown store driver %q", s.Driver)
}

// SQLiteStore keeps entries in a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the SQLite database at path, ensures the
// data directory exists, and creates the schema.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(`
		PRAGMA journal_mode=WAL;
		PRAGMA busy_timeout=5000;
		PRAGMA synchronous=NORMAL;
	`); err != nil {
		db.Close()
		return nil, err
	}
	db.SetMaxOpenConns(1)
	s := &SQLiteStore{db: db}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) ensureSchema() error {
	_, err := s.db.Exec(`
CREATE TABLE IF NOT EXISTS entries (
    seq INTEGER PRIMARY KEY AUTOINCREMENT,
    id TEXT NOT NULL UNIQUE,
    name TEXT NOT NULL,
    author TEXT NOT NULL,
    date TEXT NOT NULL,
    image TEXT NOT NULL DEFAULT '',
    published INTEGER NOT NULL DEFAULT 0
);
`)
	return err
}

// List returns every entry in creation order.
func (s *SQLiteStore) List() ([]Entry, error) {
	rows, err := s.db.Query(`SELECT id, name, author, date, image, published FROM entries ORDER BY seq`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var published int
		if err := rows.Scan(&e.ID, &e.Name, &e.Author, &e.Date, &e.Image, &published); err != nil {
			return nil, err
		}
		e.Published = published == 1
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Get returns a single entry by id.
func (s *SQLiteStore) Get(id string) (Entry, error) {
	e := Entry{ID: id}
	var published int
	err := s.db.QueryRow(`SELECT name, author, date, image, published FROM entries WHERE id = ?`, id).
		Scan(&e.Name, &e.Author, &e.Date, &e.Image, &published)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, ErrNotFound
	}
	if err != nil {
		return Entry{}, err
	}
	e.Published = published == 1
	return e, nil
}

// Save upserts an entry, keeping its original position.
func (s *SQLiteStore) Save(e Entry) error {
	published := 0
	if e.Published {
		published = 1
	}
	_, err := s.db.Exec(`
INSERT INTO entries (id, name, author, date, image, published) VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
    name = excluded.name,
    author = excluded.author,
    date = excluded.date,
    image = excluded.image,
    published = excluded.published`,
		e.ID, e.Name, e.Author, e.Date, e.Image, published)
	return err
}

// Delete removes an entry by id.
func (s *SQLiteStore) Delete(id string) error {
	res, err := s.db.Exec(`DELETE FROM entries WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
