// Package sqlite3 implements a store in a Sqlite database.
package sqlite3

import (
	"context"
	"database/sql"
	stderrs "errors"

	"github.com/bobg/sqlutil"
	_ "github.com/mattn/go-sqlite3" // register the sqlite3 type for sql.Open
	"github.com/pkg/errors"

	"github.com/bobg/pngmsg/store"
)

var _ store.Store = &Store{}

// Store is a Sqlite-based store.
type Store struct {
	db *sql.DB
}

// Schema is the SQL that New executes.
// It creates the `images` table if it does not exist.
// (If it does exist, it must have the columns and constraints described here.)
const Schema = `
CREATE TABLE IF NOT EXISTS images (
  name TEXT PRIMARY KEY NOT NULL,
  data BLOB NOT NULL
);
`

// New produces a new Store using `db` for storage.
func New(ctx context.Context, db *sql.DB) (*Store, error) {
	_, err := db.ExecContext(ctx, Schema)
	return &Store{db: db}, errors.Wrap(err, "creating schema")
}

// Get implements store.Getter.
func (s *Store) Get(ctx context.Context, name string) ([]byte, error) {
	const q = `SELECT data FROM images WHERE name = $1`

	var data []byte
	err := s.db.QueryRowContext(ctx, q, name).Scan(&data)
	if stderrs.Is(err, sql.ErrNoRows) {
		return nil, errors.Wrapf(store.ErrNotFound, "getting %s", name)
	}
	return data, errors.Wrapf(err, "getting %s", name)
}

// List implements store.Getter.
func (s *Store) List(ctx context.Context, start string, f func(string) error) error {
	const q = `SELECT name FROM images WHERE name > $1 ORDER BY name`
	return sqlutil.ForQueryRows(ctx, s.db, q, start, f)
}

// Put implements store.Store.
func (s *Store) Put(ctx context.Context, name string, data []byte) error {
	if data == nil {
		data = []byte{} // NOT NULL
	}
	const q = `INSERT INTO images (name, data) VALUES ($1, $2) ON CONFLICT (name) DO UPDATE SET data = excluded.data`
	_, err := s.db.ExecContext(ctx, q, name, data)
	return errors.Wrapf(err, "storing %s", name)
}

// Delete implements store.Store.
func (s *Store) Delete(ctx context.Context, name string) error {
	const q = `DELETE FROM images WHERE name = $1`
	res, err := s.db.ExecContext(ctx, q, name)
	if err != nil {
		return errors.Wrapf(err, "deleting %s", name)
	}
	aff, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "counting affected rows")
	}
	if aff == 0 {
		return errors.Wrapf(store.ErrNotFound, "deleting %s", name)
	}
	return nil
}

// Update implements store.Store.
// The read and the write happen in one transaction.
func (s *Store) Update(ctx context.Context, name string, f store.UpdateFunc) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "beginning transaction")
	}
	defer tx.Rollback()

	// A no-op write takes Sqlite's write lock now,
	// rather than at the UPDATE below,
	// so a concurrent Update waits instead of reading stale data.
	const q1 = `UPDATE images SET name = name WHERE name = $1`
	res, err := tx.ExecContext(ctx, q1, name)
	if err != nil {
		return errors.Wrapf(err, "locking %s", name)
	}
	aff, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "counting affected rows")
	}
	if aff == 0 {
		return errors.Wrapf(store.ErrNotFound, "updating %s", name)
	}

	const q2 = `SELECT data FROM images WHERE name = $1`
	var old []byte
	if err = tx.QueryRowContext(ctx, q2, name).Scan(&old); err != nil {
		return errors.Wrapf(err, "reading %s", name)
	}

	data, err := f(old)
	if err != nil {
		return err
	}
	if data == nil {
		data = []byte{}
	}

	const q3 = `UPDATE images SET data = $1 WHERE name = $2`
	if _, err = tx.ExecContext(ctx, q3, data, name); err != nil {
		return errors.Wrapf(err, "writing %s", name)
	}
	return errors.Wrap(tx.Commit(), "committing transaction")
}

func init() {
	store.Register("sqlite3", func(ctx context.Context, conf map[string]interface{}) (store.Store, error) {
		conn, ok := conf["conn"].(string)
		if !ok {
			return nil, errors.New(`missing "conn" parameter`)
		}
		db, err := sql.Open("sqlite3", conn)
		if err != nil {
			return nil, errors.Wrap(err, "opening db")
		}
		return New(ctx, db)
	})
}
