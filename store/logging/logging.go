// Package logging implements a store that delegates everything to a nested store,
// logging operations as they happen.
package logging

import (
	"context"
	"log"

	"github.com/bobg/pngmsg/store"
)

var _ store.Store = &Store{}

// Store is a store that logs the operations on a nested store.
type Store struct {
	s store.Store
}

// New produces a new Store wrapping s.
func New(s store.Store) *Store {
	return &Store{s: s}
}

// Get implements store.Getter.
func (s *Store) Get(ctx context.Context, name string) ([]byte, error) {
	data, err := s.s.Get(ctx, name)
	if err != nil {
		log.Printf("ERROR Get %s: %s", name, err)
	} else {
		log.Printf("Get %s (%d bytes)", name, len(data))
	}
	return data, err
}

// List implements store.Getter.
func (s *Store) List(ctx context.Context, start string, f func(string) error) error {
	log.Printf("List, start=%q", start)
	return s.s.List(ctx, start, func(name string) error {
		err := f(name)
		if err != nil {
			log.Printf("  ERROR in List: %s: %s", name, err)
		} else {
			log.Printf("  List: %s", name)
		}
		return err
	})
}

// Put implements store.Store.
func (s *Store) Put(ctx context.Context, name string, data []byte) error {
	err := s.s.Put(ctx, name, data)
	if err != nil {
		log.Printf("ERROR in Put %s: %s", name, err)
	} else {
		log.Printf("Put %s (%d bytes)", name, len(data))
	}
	return err
}

// Delete implements store.Store.
func (s *Store) Delete(ctx context.Context, name string) error {
	err := s.s.Delete(ctx, name)
	if err != nil {
		log.Printf("ERROR in Delete %s: %s", name, err)
	} else {
		log.Printf("Delete %s", name)
	}
	return err
}

// Update implements store.Store.
func (s *Store) Update(ctx context.Context, name string, f store.UpdateFunc) error {
	var before, after int
	err := s.s.Update(ctx, name, func(old []byte) ([]byte, error) {
		data, err := f(old)
		before, after = len(old), len(data)
		return data, err
	})
	if err != nil {
		log.Printf("ERROR in Update %s: %s", name, err)
	} else {
		log.Printf("Update %s (%d -> %d bytes)", name, before, after)
	}
	return err
}

func init() {
	store.Register("logging", func(ctx context.Context, conf map[string]interface{}) (store.Store, error) {
		nested, err := store.Nested(ctx, conf)
		if err != nil {
			return nil, err
		}
		return New(nested), nil
	})
}
