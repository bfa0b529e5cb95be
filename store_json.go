package pubsplice

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
)

// entryFile is the on-disk shape of the JSON entry list.
type entryFile struct {
	Entries []Entry `json:"entries"`
}

// JSONStore keeps the entry list in a single JSON file, rewritten whole on
// every change.
type JSONStore struct {
	path    string
	entries []Entry
}

// NewJSONStore loads the entry list at path. A missing file is an empty list.
func NewJSONStore(path string) (*JSONStore, error) {
	s := &JSONStore{path: path}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read entries: %w", err)
	}
	var f entryFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse entries %s: %w", path, err)
	}
	s.entries = f.Entries
	return s, nil
}

// List returns a copy of every entry in creation order.
func (s *JSONStore) List() ([]Entry, error) {
	return append([]Entry(nil), s.entries...), nil
}

// Get returns a single entry by id.
func (s *JSONStore) Get(id string) (Entry, error) {
	if i := s.index(id); i >= 0 {
		return s.entries[i], nil
	}
	return Entry{}, ErrNotFound
}

// Save replaces the entry with the same id in place, or appends e.
func (s *JSONStore) Save(e Entry) error {
	next := append([]Entry(nil), s.entries...)
	if i := s.index(e.ID); i >= 0 {
		next[i] = e
	} else {
		next = append(next, e)
	}
	return s.persist(next)
}

// Delete removes an entry by id.
func (s *JSONStore) Delete(id string) error {
	i := s.index(id)
	if i < 0 {
		return ErrNotFound
	}
	next := append(append([]Entry(nil), s.entries[:i]...), s.entries[i+1:]...)
	return s.persist(next)
}

// Close is a no-op; every change is already on disk.
func (s *JSONStore) Close() error { return nil }

func (s *JSONStore) index(id string) int {
	for i, e := range s.entries {
		if e.ID == id {
			return i
		}
	}
	return -1
}

func (s *JSONStore) persist(entries []Entry) error {
	if entries == nil {
		entries = []Entry{}
	}
	data, err := json.MarshalIndent(entryFile{Entries: entries}, "", "  ")
	if err != nil {
		return err
	}
	if err := writeFileAtomic(s.path, append(data, '\n')); err != nil {
		return fmt.Errorf("write entries: %w", err)
	}
	s.entries = entries
	return nil
}
