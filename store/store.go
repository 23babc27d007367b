// Package store describes storage for PNG files.
//
// A store maps names to the complete bytes of PNG files.
// The chunk-level work happens elsewhere;
// a store only has to get, put, list, and delete files,
// and to let a caller read, modify, and write back a file
// without interference from concurrent updaters.
//
// Implementations live in subpackages
// and register themselves by name (see Register and Create)
// so that a program can select one from a config file.
package store

import (
	"context"
	stderrs "errors"
)

// Getter is a read-only Store (qv).
type Getter interface {
	// Get gets the contents of the named file.
	// The error is ErrNotFound if there is no such file.
	Get(ctx context.Context, name string) ([]byte, error)

	// List calls a function for each file name in the store in lexicographic order,
	// beginning with the first name _after_ the specified one.
	//
	// If the callback function returns an error,
	// List exits with that error.
	List(ctx context.Context, start string, f func(name string) error) error
}

// Store is a store for PNG files.
type Store interface {
	Getter

	// Put stores data under the given name,
	// replacing any existing file.
	Put(ctx context.Context, name string, data []byte) error

	// Delete removes the named file.
	// The error is ErrNotFound if there is no such file.
	Delete(ctx context.Context, name string) error

	// Update reads the named file,
	// passes its contents to f,
	// and stores the result in its place.
	// No other Update (or Put) of the same name in the same store
	// can intervene.
	// If f returns an error,
	// the file is unchanged and Update returns that error.
	// The error is ErrNotFound if there is no such file.
	Update(ctx context.Context, name string, f UpdateFunc) error
}

// UpdateFunc is the type of the callback passed to Store.Update.
// It receives the current contents of a file and returns the new contents.
type UpdateFunc func(old []byte) ([]byte, error)

// ErrNotFound is the error returned
// when a Getter tries to access a non-existent file.
var ErrNotFound = stderrs.New("not found")
