// Package mem implements an in-memory store.
package mem

import (
	"context"
	"sort"
	"sync"

	"github.com/pkg/errors"

	"github.com/bobg/pngmsg/store"
)

var _ store.Store = &Store{}

// Store is a memory-based implementation of a store.
type Store struct {
	mu    sync.Mutex
	files map[string][]byte
}

// New produces a new, empty Store.
func New() *Store {
	return &Store{files: make(map[string][]byte)}
}

// Get implements store.Getter.
func (s *Store) Get(_ context.Context, name string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, ok := s.files[name]
	if !ok {
		return nil, errors.Wrapf(store.ErrNotFound, "getting %s", name)
	}
	return append([]byte(nil), data...), nil
}

// List implements store.Getter.
func (s *Store) List(ctx context.Context, start string, f func(string) error) error {
	s.mu.Lock()
	var names []string
	for name := range s.files {
		if name > start {
			names = append(names, name)
		}
	}
	s.mu.Unlock()

	sort.Strings(names)

	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := f(name); err != nil {
			return err
		}
	}
	return nil
}

// Put implements store.Store.
func (s *Store) Put(_ context.Context, name string, data []byte) error {
	s.mu.Lock()
	s.files[name] = append([]byte(nil), data...)
	s.mu.Unlock()
	return nil
}

// Delete implements store.Store.
func (s *Store) Delete(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.files[name]; !ok {
		return errors.Wrapf(store.ErrNotFound, "deleting %s", name)
	}
	delete(s.files, name)
	return nil
}

// Update implements store.Store.
// The store is locked for the duration of the callback.
func (s *Store) Update(_ context.Context, name string, f store.UpdateFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	old, ok := s.files[name]
	if !ok {
		return errors.Wrapf(store.ErrNotFound, "updating %s", name)
	}
	data, err := f(append([]byte(nil), old...))
	if err != nil {
		return err
	}
	s.files[name] = append([]byte(nil), data...)
	return nil
}

func init() {
	store.Register("mem", func(context.Context, map[string]interface{}) (store.Store, error) {
		return New(), nil
	})
}
