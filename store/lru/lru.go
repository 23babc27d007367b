// Package lru implements a store that acts as a least-recently-used cache for a nested store.
package lru

import (
	"context"
	"sync"

	lru "github.com/hashicorp/golang-lru"
	"github.com/pkg/errors"

	"github.com/bobg/pngmsg/store"
)

var _ store.Store = &Store{}

// Store implements a memory-based least-recently-used cache for a store.
// It caches file contents, not listings.
// Writes pass through to the underlying store.
type Store struct {
	c *lru.Cache // name -> []byte
	s store.Store

	mu  sync.Mutex // protects gen and orders cache fills after writes
	gen uint64     // incremented at the start and end of every write
}

// New produces a new Store backed by `s` and caching up to `size` files.
func New(s store.Store, size int) (*Store, error) {
	c, err := lru.New(size)
	return &Store{s: s, c: c}, err
}

// Get implements store.Getter.
// A miss fills the cache only if no write began or ended while the nested store was being read.
func (s *Store) Get(ctx context.Context, name string) ([]byte, error) {
	if got, ok := s.c.Get(name); ok {
		return append([]byte(nil), got.([]byte)...), nil
	}

	s.mu.Lock()
	gen := s.gen
	s.mu.Unlock()

	data, err := s.s.Get(ctx, name)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	if s.gen == gen {
		s.c.Add(name, append([]byte(nil), data...))
	}
	s.mu.Unlock()

	return data, nil
}

func (s *Store) beginWrite(name string) {
	s.mu.Lock()
	s.gen++
	s.c.Remove(name)
	s.mu.Unlock()
}

// endWrite caches data as the contents of name, unless data is nil.
func (s *Store) endWrite(name string, data []byte) {
	s.mu.Lock()
	s.gen++
	if data != nil {
		s.c.Add(name, data)
	}
	s.mu.Unlock()
}

// List implements store.Getter.
func (s *Store) List(ctx context.Context, start string, f func(string) error) error {
	return s.s.List(ctx, start, f)
}

// Put implements store.Store.
func (s *Store) Put(ctx context.Context, name string, data []byte) error {
	s.beginWrite(name)
	if err := s.s.Put(ctx, name, data); err != nil {
		s.endWrite(name, nil)
		return err
	}
	s.endWrite(name, append([]byte{}, data...))
	return nil
}

// Delete implements store.Store.
func (s *Store) Delete(ctx context.Context, name string) error {
	s.beginWrite(name)
	defer s.endWrite(name, nil)
	return s.s.Delete(ctx, name)
}

// Update implements store.Store.
// The nested store supplies the locking;
// the cache is refreshed with whatever was written.
func (s *Store) Update(ctx context.Context, name string, f store.UpdateFunc) error {
	s.beginWrite(name)
	var written []byte
	err := s.s.Update(ctx, name, func(old []byte) ([]byte, error) {
		data, err := f(old)
		written = data
		return data, err
	})
	if err != nil {
		s.endWrite(name, nil)
		return err
	}
	s.endWrite(name, append([]byte{}, written...))
	return nil
}

func init() {
	store.Register("lru", func(ctx context.Context, conf map[string]interface{}) (store.Store, error) {
		size, ok, err := store.Int(conf, "size")
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, errors.New(`missing "size" parameter`)
		}
		nested, err := store.Nested(ctx, conf)
		if err != nil {
			return nil, err
		}
		return New(nested, size)
	})
}
