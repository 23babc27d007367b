// Package gcs implements a store on Google Cloud Storage.
package gcs

import (
	"context"
	stderrs "errors"
	"io"
	"net/http"

	"cloud.google.com/go/storage"
	"github.com/pkg/errors"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/bobg/pngmsg/store"
)

var _ store.Store = &Store{}

// Store is a Google Cloud Storage-based implementation of a store.
// Each file is an object whose name is the file's name.
type Store struct {
	bucket *storage.BucketHandle
}

// New produces a new Store.
func New(bucket *storage.BucketHandle) *Store {
	return &Store{bucket: bucket}
}

// Get implements store.Getter.
func (s *Store) Get(ctx context.Context, name string) ([]byte, error) {
	return s.read(ctx, s.bucket.Object(name))
}

func (s *Store) read(ctx context.Context, obj *storage.ObjectHandle) ([]byte, error) {
	r, err := obj.NewReader(ctx)
	if stderrs.Is(err, storage.ErrObjectNotExist) {
		return nil, errors.Wrapf(store.ErrNotFound, "reading object %s", obj.ObjectName())
	}
	if err != nil {
		return nil, errors.Wrapf(err, "reading info of object %s", obj.ObjectName())
	}
	defer r.Close()

	b := make([]byte, r.Attrs.Size)
	_, err = io.ReadFull(r, b)
	return b, errors.Wrapf(err, "reading contents of object %s", obj.ObjectName())
}

// List implements store.Getter.
func (s *Store) List(ctx context.Context, start string, f func(string) error) error {
	iter := s.bucket.Objects(ctx, nil)
	for {
		attrs, err := iter.Next()
		if stderrs.Is(err, iterator.Done) {
			return nil
		}
		if err != nil {
			return errors.Wrap(err, "iterating over objects")
		}
		if attrs.Name <= start {
			continue
		}
		if err = f(attrs.Name); err != nil {
			return err
		}
	}
}

// Put implements store.Store.
func (s *Store) Put(ctx context.Context, name string, data []byte) error {
	return s.write(ctx, s.bucket.Object(name), data)
}

func (s *Store) write(ctx context.Context, obj *storage.ObjectHandle, data []byte) error {
	w := obj.NewWriter(ctx)
	w.ContentType = "image/png"
	if _, err := w.Write(data); err != nil {
		w.Close()
		return errors.Wrapf(err, "writing object %s", obj.ObjectName())
	}
	return errors.Wrapf(w.Close(), "finishing object %s", obj.ObjectName())
}

// Delete implements store.Store.
func (s *Store) Delete(ctx context.Context, name string) error {
	err := s.bucket.Object(name).Delete(ctx)
	if stderrs.Is(err, storage.ErrObjectNotExist) {
		return errors.Wrapf(store.ErrNotFound, "deleting object %s", name)
	}
	return errors.Wrapf(err, "deleting object %s", name)
}

// maxUpdateAttempts bounds how many times Update retries
// when another writer changes the object between its read and its write.
const maxUpdateAttempts = 5

// Update implements store.Store.
// It reads a specific generation of the object
// and writes the new contents on the condition that the generation is unchanged,
// starting over if the condition fails.
func (s *Store) Update(ctx context.Context, name string, f store.UpdateFunc) error {
	obj := s.bucket.Object(name)
	for i := 0; i < maxUpdateAttempts; i++ {
		attrs, err := obj.Attrs(ctx)
		if stderrs.Is(err, storage.ErrObjectNotExist) {
			return errors.Wrapf(store.ErrNotFound, "updating object %s", name)
		}
		if err != nil {
			return errors.Wrapf(err, "getting object attrs for %s", name)
		}

		old, err := s.read(ctx, obj.Generation(attrs.Generation))
		if err != nil {
			return err
		}
		data, err := f(old)
		if err != nil {
			return err
		}

		err = s.write(ctx, obj.If(storage.Conditions{GenerationMatch: attrs.Generation}), data)
		var e *googleapi.Error
		if stderrs.As(err, &e) && e.Code == http.StatusPreconditionFailed {
			continue
		}
		return err
	}
	return errors.Errorf("object %s changed during each of %d update attempts", name, maxUpdateAttempts)
}

func init() {
	store.Register("gcs", func(ctx context.Context, conf map[string]interface{}) (store.Store, error) {
		var options []option.ClientOption
		creds, ok := conf["creds"].(string)
		if !ok {
			return nil, errors.New(`missing "creds" parameter`)
		}
		bucketName, ok := conf["bucket"].(string)
		if !ok {
			return nil, errors.New(`missing "bucket" parameter`)
		}
		options = append(options, option.WithCredentialsFile(creds))
		c, err := storage.NewClient(ctx, options...)
		if err != nil {
			return nil, errors.Wrap(err, "creating cloud storage client")
		}
		return New(c.Bucket(bucketName)), nil
	})
}
