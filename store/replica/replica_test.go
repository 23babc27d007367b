package replica

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/bobg/pngmsg/store"
	"github.com/bobg/pngmsg/store/mem"
	"github.com/bobg/pngmsg/testutil"
)

func TestStore(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var (
		primary = mem.New()
		r1      = mem.New()
		r2      = mem.New()
		s       = New(ctx, primary, []store.Store{r1, r2}, 1)
	)

	testutil.Store(ctx, t, s, true)

	if err := s.Close(); err != nil {
		t.Fatal(err)
	}

	want := contents(ctx, t, primary)
	for _, r := range []*mem.Store{r1, r2} {
		if diff := cmp.Diff(want, contents(ctx, t, r)); diff != "" {
			t.Errorf("replica mismatch (-want +got):\n%s", diff)
		}
	}

	if err := s.Put(ctx, "x", nil); err == nil {
		t.Error("Put after Close succeeded")
	}
}

func TestReplicaError(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var (
		primary = mem.New()
		r1      = mem.New()
		s       = New(ctx, primary, []store.Store{r1}, 1)
	)

	// A delete of a name the replica lacks is not an error.
	if err := primary.Put(ctx, "only-primary", []byte("x")); err != nil {
		t.Fatal(err)
	}
	if err := s.Delete(ctx, "only-primary"); err != nil {
		t.Fatal(err)
	}

	// An update of a name the replica lacks arrives there as a Put.
	if err := primary.Put(ctx, "p", []byte("1")); err != nil {
		t.Fatal(err)
	}
	err := s.Update(ctx, "p", func(old []byte) ([]byte, error) {
		return append(old, '2'), nil
	})
	if err != nil {
		t.Fatal(err)
	}

	if err = s.Close(); err != nil {
		t.Fatal(err)
	}
	got, err := r1.Get(ctx, "p")
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "12" {
		t.Errorf("got %q, want 12", got)
	}
}

func TestCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	s := New(ctx, mem.New(), []store.Store{mem.New()}, 1)
	cancel()

	if err := s.Close(); err == nil {
		t.Error("got no error from Close after cancel")
	}
	if _, err := s.Get(context.Background(), "x"); err == nil {
		t.Error("got no error from Get after cancel")
	}
}

func TestCloseDuringWrites(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s := New(ctx, mem.New(), []store.Store{mem.New()}, 1)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				if err := s.Put(ctx, "x", []byte("x")); err != nil {
					return
				}
			}
		}()
	}

	time.Sleep(10 * time.Millisecond)
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}
	wg.Wait()
}

func TestCreate(t *testing.T) {
	ctx := context.Background()
	conf := map[string]interface{}{
		"primary":  map[string]interface{}{"type": "mem"},
		"replicas": []interface{}{map[string]interface{}{"type": "mem"}},
		"queuelen": "3",
	}
	s, err := store.Create(ctx, "replica", conf)
	if err != nil {
		t.Fatal(err)
	}
	rs, ok := s.(*Store)
	if !ok {
		t.Fatalf("got %T, want *Store", s)
	}
	if len(rs.queues) != 1 {
		t.Errorf("got %d replicas, want 1", len(rs.queues))
	}
	if err = rs.Close(); err != nil {
		t.Fatal(err)
	}
}

func contents(ctx context.Context, t *testing.T, s store.Getter) map[string]string {
	t.Helper()

	result := make(map[string]string)
	err := s.List(ctx, "", func(name string) error {
		data, err := s.Get(ctx, name)
		if err != nil {
			return err
		}
		result[name] = string(data)
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	return result
}
