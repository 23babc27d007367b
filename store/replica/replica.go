// Package replica implements a store that copies its changes to other stores.
package replica

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/bobg/pngmsg/store"
)

var _ store.Store = (*Store)(nil)

// Store is a store that delegates reads and writes to a primary nested store
// and copies every successful write to a set of replica stores.
// Writes to the primary are synchronous.
// Writes to replicas are queued and do not delay the caller.
// However, if any replica write encounters an error,
// the whole Store is put into an error state and further operations will fail.
type Store struct {
	primary store.Store
	queues  []chan<- op
	done    <-chan struct{}
	eg      *errgroup.Group
	cancel  context.CancelFunc

	wmu sync.Mutex // serializes writes, so replicas see them in the primary's order

	mu     sync.Mutex // protects err and closed
	err    error      // the error from a replica goroutine, if any
	closed bool
}

type op struct {
	name   string
	data   []byte
	delete bool
}

// New produces a new Store.
// Goroutines are launched for the replicas,
// and canceling the given context object causes those to exit,
// placing the Store in an error state.
//
// The queue for each replica has a fixed length given by n,
// which must be 1 or greater.
// If any replica falls too far behind,
// writes block until all requests can be queued.
func New(ctx context.Context, primary store.Store, replicas []store.Store, n int) *Store {
	ctx, cancel := context.WithCancel(ctx)
	eg, ctx := errgroup.WithContext(ctx)

	result := &Store{
		primary: primary,
		done:    ctx.Done(),
		eg:      eg,
		cancel:  cancel,
	}

	for _, r := range replicas {
		var (
			r  = r
			ch = make(chan op, n)
		)
		result.queues = append(result.queues, ch)
		eg.Go(func() error {
			err := runAsync(ctx, r, ch)
			if err != nil {
				result.setErr(err)
			}
			return err
		})
	}

	return result
}

// Runs as a goroutine until ops is closed, ctx is canceled, or an error occurs.
func runAsync(ctx context.Context, r store.Store, ops <-chan op) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case o, ok := <-ops:
			if !ok {
				return ctx.Err()
			}
			var err error
			if o.delete {
				err = r.Delete(ctx, o.name)
				if errors.Is(err, store.ErrNotFound) {
					err = nil
				}
			} else {
				err = r.Put(ctx, o.name, o.data)
			}
			if err != nil {
				return errors.Wrapf(err, "replicating %s", o.name)
			}
		}
	}
}

func (s *Store) setErr(err error) {
	s.mu.Lock()
	if s.err == nil {
		s.err = err
	}
	s.mu.Unlock()
}

func (s *Store) checkErr() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return errors.Wrap(s.err, "in replica goroutine")
	}
	if s.closed {
		return errors.New("store closed")
	}
	return nil
}

func (s *Store) queue(ctx context.Context, o op) error {
	for _, q := range s.queues {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.done:
			return s.checkErr()
		case q <- o:
		}
	}
	return nil
}

// Get implements store.Getter.
// It reads from the primary store.
func (s *Store) Get(ctx context.Context, name string) ([]byte, error) {
	if err := s.checkErr(); err != nil {
		return nil, err
	}
	return s.primary.Get(ctx, name)
}

// List implements store.Getter.
// It lists the primary store.
func (s *Store) List(ctx context.Context, start string, f func(string) error) error {
	if err := s.checkErr(); err != nil {
		return err
	}
	return s.primary.List(ctx, start, f)
}

// Put implements store.Store.
func (s *Store) Put(ctx context.Context, name string, data []byte) error {
	s.wmu.Lock()
	defer s.wmu.Unlock()

	if err := s.checkErr(); err != nil {
		return err
	}

	if err := s.primary.Put(ctx, name, data); err != nil {
		return err
	}
	return s.queue(ctx, op{name: name, data: append([]byte(nil), data...)})
}

// Delete implements store.Store.
func (s *Store) Delete(ctx context.Context, name string) error {
	s.wmu.Lock()
	defer s.wmu.Unlock()

	if err := s.checkErr(); err != nil {
		return err
	}

	if err := s.primary.Delete(ctx, name); err != nil {
		return err
	}
	return s.queue(ctx, op{name: name, delete: true})
}

// Update implements store.Store.
// Exclusivity is provided by the primary store.
// Replicas receive the updated file as a Put.
func (s *Store) Update(ctx context.Context, name string, f store.UpdateFunc) error {
	s.wmu.Lock()
	defer s.wmu.Unlock()

	if err := s.checkErr(); err != nil {
		return err
	}

	var updated []byte
	err := s.primary.Update(ctx, name, func(old []byte) ([]byte, error) {
		data, err := f(old)
		if err != nil {
			return nil, err
		}
		updated = append([]byte(nil), data...)
		return data, nil
	})
	if err != nil {
		return err
	}
	return s.queue(ctx, op{name: name, data: updated})
}

// Close waits for queued writes to reach the replicas
// and stops their goroutines.
// It returns the first error from any replica.
// The Store may not be used after Close.
func (s *Store) Close() error {
	s.wmu.Lock()
	defer s.wmu.Unlock()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	for _, q := range s.queues {
		close(q)
	}
	err := s.eg.Wait()
	s.cancel()
	return err
}

func init() {
	store.Register("replica", func(ctx context.Context, conf map[string]interface{}) (store.Store, error) {
		primaryConf, ok := conf["primary"]
		if !ok {
			return nil, errors.New(`missing "primary" parameter`)
		}
		primary, err := store.FromConf(ctx, primaryConf)
		if err != nil {
			return nil, errors.Wrap(err, "creating primary store")
		}

		var replicas []store.Store
		if rconf, ok := conf["replicas"].([]interface{}); ok {
			for i, r := range rconf {
				replica, err := store.FromConf(ctx, r)
				if err != nil {
					return nil, errors.Wrapf(err, "creating replica %d", i)
				}
				replicas = append(replicas, replica)
			}
		}

		queueLen, ok, err := store.Int(conf, "queuelen")
		if err != nil {
			return nil, err
		}
		if !ok {
			queueLen = 10
		}

		return New(ctx, primary, replicas, queueLen), nil
	})
}
