package pubsplice

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// ChangeSet stages the file writes and removals of one operation so that
// nothing touches the disk until every document pass has succeeded.
type ChangeSet struct {
	writes   []stagedWrite
	removals []string
}

type stagedWrite struct {
	path string
	data []byte
}

// Write stages data to replace the file at path. Staging the same path
// twice keeps the last data.
func (c *ChangeSet) Write(path string, data []byte) {
	for i := range c.writes {
		if c.writes[i].path == path {
			c.writes[i].data = data
			return
		}
	}
	c.writes = append(c.writes, stagedWrite{path: path, data: data})
}

// Remove stages the deletion of path. Missing files are ignored at commit.
func (c *ChangeSet) Remove(path string) {
	c.removals = append(c.removals, path)
}

// Paths lists the staged writes in order.
func (c *ChangeSet) Paths() []string {
	paths := make([]string, len(c.writes))
	for i, w := range c.writes {
		paths[i] = w.path
	}
	return paths
}

// Empty reports whether nothing is staged.
func (c *ChangeSet) Empty() bool {
	return len(c.writes) == 0 && len(c.removals) == 0
}

// Commit writes every staged file to a temporary sibling first and only then
// renames them into place. A failure while writing the temporaries leaves
// every target untouched. Each rename replaces one file atomically, but the
// files are not replaced together: if a rename fails, the targets renamed
// before it already hold their new contents. Removals run last.
func (c *ChangeSet) Commit() error {
	temps := make([]string, 0, len(c.writes))
	cleanup := func() {
		for _, t := range temps {
			os.Remove(t)
		}
	}
	for _, w := range c.writes {
		tmp, err := writeTemp(w.path, w.data)
		if err != nil {
			cleanup()
			return fmt.Errorf("stage %s: %w", w.path, err)
		}
		temps = append(temps, tmp)
	}
	for i, w := range c.writes {
		if err := os.Rename(temps[i], w.path); err != nil {
			cleanup()
			return fmt.Errorf("replace %s: %w", w.path, err)
		}
	}
	for _, path := range c.removals {
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("remove %s: %w", path, err)
		}
	}
	c.writes, c.removals = nil, nil
	return nil
}

func writeTemp(path string, data []byte) (string, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	f, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return "", err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", err
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", err
	}
	if err := os.Chmod(f.Name(), 0o644); err != nil {
		os.Remove(f.Name())
		return "", err
	}
	return f.Name(), nil
}

func writeFileAtomic(path string, data []byte) error {
	var c ChangeSet
	c.Write(path, data)
	return c.Commit()
}
