// Package file implements a store as a file hierarchy.
package file

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bobg/flock"
	"github.com/pkg/errors"

	"github.com/bobg/pngmsg/store"
)

var _ store.Store = &Store{}

// Store is a file-based implementation of a store.
// Names are slash-separated paths relative to the root.
//
// Update holds an advisory lock on a hidden sidecar file
// (".NAME.lock" in the same directory)
// and replaces the file by renaming a temporary file over it,
// so readers never see a partial write.
type Store struct {
	root    string
	flocker flock.Locker
}

// New produces a new Store storing files beneath `root`.
// If root is empty,
// names are interpreted as ordinary paths,
// relative to the current directory or absolute.
func New(root string) *Store {
	return &Store{root: root}
}

func (s *Store) path(name string) (string, error) {
	if s.root == "" {
		return filepath.Clean(name), nil
	}
	p := filepath.FromSlash(name)
	if !filepath.IsLocal(p) {
		return "", errors.Errorf("name %s is outside the store", name)
	}
	return filepath.Join(s.root, p), nil
}

func lockPath(path string) string {
	dir, base := filepath.Split(path)
	return filepath.Join(dir, "."+base+".lock")
}

// Get implements store.Getter.
func (s *Store) Get(_ context.Context, name string) ([]byte, error) {
	path, err := s.path(name)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, errors.Wrapf(store.ErrNotFound, "reading %s", path)
	}
	return data, errors.Wrapf(err, "reading %s", path)
}

// List implements store.Getter.
// It lists the non-hidden regular files beneath the root.
func (s *Store) List(ctx context.Context, start string, f func(string) error) error {
	root := s.root
	if root == "" {
		root = "."
	}

	var names []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if path != root && strings.HasPrefix(d.Name(), ".") {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return errors.Wrapf(err, "relativizing %s", path)
		}
		if name := filepath.ToSlash(rel); name > start {
			names = append(names, name)
		}
		return nil
	})
	if err != nil {
		return errors.Wrapf(err, "walking %s", root)
	}

	sort.Strings(names)
	for _, name := range names {
		if err := f(name); err != nil {
			return err
		}
	}
	return nil
}

// Put implements store.Store.
func (s *Store) Put(_ context.Context, name string, data []byte) error {
	path, err := s.path(name)
	if err != nil {
		return err
	}
	if err = os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.Wrapf(err, "ensuring directory for %s exists", path)
	}

	if err = s.lock(path); err != nil {
		return err
	}
	defer s.unlock(path)

	return writeFile(path, data)
}

// Delete implements store.Store.
func (s *Store) Delete(_ context.Context, name string) error {
	path, err := s.path(name)
	if err != nil {
		return err
	}

	if err = s.lockExisting(path); err != nil {
		return err
	}
	defer s.unlock(path)

	err = os.Remove(path)
	if errors.Is(err, fs.ErrNotExist) {
		return errors.Wrapf(store.ErrNotFound, "removing %s", path)
	}
	return errors.Wrapf(err, "removing %s", path)
}

// Update implements store.Store.
func (s *Store) Update(_ context.Context, name string, f store.UpdateFunc) error {
	path, err := s.path(name)
	if err != nil {
		return err
	}

	if err = s.lockExisting(path); err != nil {
		return err
	}
	defer s.unlock(path)

	old, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return errors.Wrapf(store.ErrNotFound, "reading %s", path)
	}
	if err != nil {
		return errors.Wrapf(err, "reading %s", path)
	}

	data, err := f(old)
	if err != nil {
		return err
	}
	return writeFile(path, data)
}

func (s *Store) lock(path string) error {
	return errors.Wrapf(s.flocker.Lock(lockPath(path)), "locking %s", path)
}

// lockExisting is like lock but fails with store.ErrNotFound,
// without creating a lock file,
// if path does not exist.
func (s *Store) lockExisting(path string) error {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return errors.Wrapf(store.ErrNotFound, "locking %s", path)
	}
	return s.lock(path)
}

func (s *Store) unlock(path string) error {
	return s.flocker.Unlock(lockPath(path))
}

// writeFile atomically replaces the file at path,
// keeping its permissions if it already exists.
func writeFile(path string, data []byte) error {
	mode := fs.FileMode(0644)
	if info, err := os.Stat(path); err == nil {
		mode = info.Mode().Perm()
	}

	dir, base := filepath.Split(path)
	if dir == "" {
		dir = "."
	}
	tmp, err := os.CreateTemp(dir, "."+base+".tmp*")
	if err != nil {
		return errors.Wrapf(err, "creating temp file for %s", path)
	}
	defer os.Remove(tmp.Name()) // no-op after a successful rename

	if _, err = tmp.Write(data); err != nil {
		tmp.Close()
		return errors.Wrapf(err, "writing %s", tmp.Name())
	}
	if err = tmp.Chmod(mode); err != nil {
		tmp.Close()
		return errors.Wrapf(err, "setting mode of %s", tmp.Name())
	}
	if err = tmp.Close(); err != nil {
		return errors.Wrapf(err, "closing %s", tmp.Name())
	}
	return errors.Wrapf(os.Rename(tmp.Name(), path), "renaming %s to %s", tmp.Name(), path)
}

func init() {
	store.Register("file", func(_ context.Context, conf map[string]interface{}) (store.Store, error) {
		root, ok := conf["root"].(string)
		if !ok {
			return nil, errors.New(`missing "root" parameter`)
		}
		return New(root), nil
	})
}
