package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/pkg/errors"

	"github.com/bobg/pngmsg/stash"
)

// print describes the chunks of each file.
// The name "-" means standard input,
// which is read one chunk at a time.
func (c maincmd) print(ctx context.Context, fs *flag.FlagSet, args []string) error {
	err := fs.Parse(args)
	if err != nil {
		return errors.Wrap(err, "parsing args")
	}

	args = fs.Args()
	switch len(args) {
	case 0:
		return errors.New("usage: print FILE...")
	case 1:
		if args[0] == "-" {
			return errors.Wrap(stash.PrintStream(os.Stdin, os.Stdout), "printing stdin")
		}
		return stash.Print(ctx, c.s, args[0], os.Stdout)
	}
	return stash.PrintAll(ctx, c.s, args, os.Stdout)
}

func (c maincmd) list(ctx context.Context, fs *flag.FlagSet, args []string) error {
	start := fs.String("start", "", "list names after this one")
	err := fs.Parse(args)
	if err != nil {
		return errors.Wrap(err, "parsing args")
	}

	return c.s.List(ctx, *start, func(name string) error {
		_, err := fmt.Println(name)
		return err
	})
}
