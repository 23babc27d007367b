package sqlite3

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/bobg/pngmsg/testutil"
)

func TestStore(t *testing.T) {
	ctx := context.Background()
	err := withTestStore(ctx, t, func(s *Store) error {
		testutil.Store(ctx, t, s, false)
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
}

func withTestStore(ctx context.Context, t *testing.T, fn func(*Store) error) error {
	db, err := sql.Open("sqlite3", filepath.Join(t.TempDir(), "pngmsg.db"))
	if err != nil {
		return err
	}
	defer db.Close()

	s, err := New(ctx, db)
	if err != nil {
		return err
	}

	return fn(s)
}
