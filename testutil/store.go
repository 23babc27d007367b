// Package testutil contains fixtures and conformance tests shared by the tests of other packages.
package testutil

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/bobg/pngmsg/store"
)

// Store permits testing a store.Store implementation
// by exercising each of its methods
// and checking the results.
// If concurrent is true,
// it also checks that simultaneous Updates don't lose writes.
func Store(ctx context.Context, t *testing.T, s store.Store, concurrent bool) {
	t.Helper()

	if _, err := s.Get(ctx, "nonexistent.png"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Get of nonexistent file: got error %v, want ErrNotFound", err)
	}
	if err := s.Delete(ctx, "nonexistent.png"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Delete of nonexistent file: got error %v, want ErrNotFound", err)
	}
	err := s.Update(ctx, "nonexistent.png", func(old []byte) ([]byte, error) {
		t.Error("Update callback called for nonexistent file")
		return old, nil
	})
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Update of nonexistent file: got error %v, want ErrNotFound", err)
	}

	files := map[string][]byte{
		"d.png":   []byte("dddd"),
		"a.png":   PNG(t, 2, 2),
		"b/c.png": {},
	}
	for name, data := range files {
		if err := s.Put(ctx, name, data); err != nil {
			t.Fatalf("putting %s: %s", name, err)
		}
	}
	for name, want := range files {
		got, err := s.Get(ctx, name)
		if err != nil {
			t.Fatalf("getting %s: %s", name, err)
		}
		if !cmp.Equal(want, got, cmp.Comparer(bytesEqual)) {
			t.Errorf("getting %s: got %x, want %x", name, got, want)
		}
	}

	if diff := cmp.Diff([]string{"a.png", "b/c.png", "d.png"}, list(ctx, t, s, "")); diff != "" {
		t.Errorf("List mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"b/c.png", "d.png"}, list(ctx, t, s, "a.png")); diff != "" {
		t.Errorf("List from a.png mismatch (-want +got):\n%s", diff)
	}

	stop := errors.New("stop")
	err = s.List(ctx, "", func(string) error { return stop })
	if !errors.Is(err, stop) {
		t.Errorf("List: got error %v, want %v", err, stop)
	}

	// Replacing.
	if err = s.Put(ctx, "d.png", []byte("DDDD")); err != nil {
		t.Fatal(err)
	}
	if got, err := s.Get(ctx, "d.png"); err != nil {
		t.Fatal(err)
	} else if string(got) != "DDDD" {
		t.Errorf("after replacing d.png, got %q, want DDDD", got)
	}

	// A failing update changes nothing.
	err = s.Update(ctx, "d.png", func([]byte) ([]byte, error) { return []byte("xxx"), stop })
	if !errors.Is(err, stop) {
		t.Errorf("Update: got error %v, want %v", err, stop)
	}
	if got, err := s.Get(ctx, "d.png"); err != nil {
		t.Fatal(err)
	} else if string(got) != "DDDD" {
		t.Errorf("after failed update, got %q, want DDDD", got)
	}

	err = s.Update(ctx, "d.png", func(old []byte) ([]byte, error) {
		if string(old) != "DDDD" {
			t.Errorf("Update callback got %q, want DDDD", old)
		}
		return append(old, "EE"...), nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if got, err := s.Get(ctx, "d.png"); err != nil {
		t.Fatal(err)
	} else if string(got) != "DDDDEE" {
		t.Errorf("after update, got %q, want DDDDEE", got)
	}

	if concurrent {
		const n = 10
		var wg sync.WaitGroup
		errs := make([]error, n)
		for i := 0; i < n; i++ {
			i := i
			wg.Add(1)
			go func() {
				defer wg.Done()
				errs[i] = s.Update(ctx, "d.png", func(old []byte) ([]byte, error) {
					return append(old, '+'), nil
				})
			}()
		}
		wg.Wait()
		for i, err := range errs {
			if err != nil {
				t.Errorf("concurrent update %d: %s", i, err)
			}
		}
		if got, err := s.Get(ctx, "d.png"); err != nil {
			t.Fatal(err)
		} else if want := "DDDDEE" + strings.Repeat("+", n); string(got) != want {
			t.Errorf("after %d concurrent updates, got %q, want %q", n, got, want)
		}
	}

	if err = s.Delete(ctx, "a.png"); err != nil {
		t.Fatal(err)
	}
	if _, err = s.Get(ctx, "a.png"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Get after Delete: got error %v, want ErrNotFound", err)
	}
	if diff := cmp.Diff([]string{"b/c.png", "d.png"}, list(ctx, t, s, "")); diff != "" {
		t.Errorf("List after Delete mismatch (-want +got):\n%s", diff)
	}
}

func list(ctx context.Context, t *testing.T, s store.Getter, start string) []string {
	t.Helper()

	var names []string
	err := s.List(ctx, start, func(name string) error {
		names = append(names, name)
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	return names
}

// bytesEqual treats nil and empty as equal,
// since not every store can tell them apart.
func bytesEqual(a, b []byte) bool {
	return string(a) == string(b)
}
