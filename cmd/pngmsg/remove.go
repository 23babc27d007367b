package main

import (
	"context"
	"flag"
	"fmt"

	"github.com/pkg/errors"

	"github.com/bobg/pngmsg/stash"
)

func (c maincmd) remove(ctx context.Context, fs *flag.FlagSet, args []string) error {
	all := fs.Bool("all", false, "remove every chunk with the tag, not just the first")
	err := fs.Parse(args)
	if err != nil {
		return errors.Wrap(err, "parsing args")
	}

	args = fs.Args()
	if len(args) != 2 {
		return errors.New("usage: remove [-all] FILE TAG")
	}

	removed, err := stash.Remove(ctx, c.s, args[0], args[1], *all)
	if err != nil {
		return err
	}
	for _, chunk := range removed {
		fmt.Println(chunk)
	}
	return nil
}
