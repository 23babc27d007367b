package file

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/bobg/pngmsg/testutil"
)

func TestStore(t *testing.T) {
	testutil.Store(context.Background(), t, New(t.TempDir()), false)
}

func TestOutsideRoot(t *testing.T) {
	var (
		ctx = context.Background()
		s   = New(t.TempDir())
	)
	for _, name := range []string{"../x.png", "/etc/passwd", "a/../../x.png"} {
		if _, err := s.Get(ctx, name); err == nil {
			t.Errorf("Get(%s) succeeded", name)
		}
		if err := s.Put(ctx, name, nil); err == nil {
			t.Errorf("Put(%s) succeeded", name)
		}
	}
}

func TestEmptyRoot(t *testing.T) {
	var (
		ctx  = context.Background()
		dir  = t.TempDir()
		path = filepath.Join(dir, "img.png")
		s    = New("")
	)
	if err := os.WriteFile(path, []byte("before"), 0600); err != nil {
		t.Fatal(err)
	}
	err := s.Update(ctx, path, func(old []byte) ([]byte, error) {
		return append(old, "+after"...), nil
	})
	if err != nil {
		t.Fatal(err)
	}
	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "before+after" {
		t.Errorf("got %q, want before+after", got)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("got mode %v, want 0600", info.Mode().Perm())
	}
}
