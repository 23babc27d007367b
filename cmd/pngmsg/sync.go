package main

import (
	"context"
	"flag"

	"github.com/pkg/errors"

	"github.com/bobg/pngmsg/store"
)

// sync copies files between the main store and the stores described by other config files
// until they all contain the same names.
func (c maincmd) sync(ctx context.Context, fs *flag.FlagSet, args []string) error {
	err := fs.Parse(args)
	if err != nil {
		return errors.Wrap(err, "parsing args")
	}

	stores := []store.Store{c.s}
	for _, arg := range fs.Args() {
		s, err := storeFromConfig(ctx, arg)
		if err != nil {
			return errors.Wrapf(err, "reading %s", arg)
		}
		stores = append(stores, s)
	}
	if len(stores) < 2 {
		return errors.New("usage: sync CONFIG...")
	}

	return store.Sync(ctx, stores)
}
