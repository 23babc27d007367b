package main

import (
	"context"
	"flag"
	"io"
	"os"

	"github.com/pkg/errors"

	"github.com/bobg/pngmsg/stash"
)

func (c maincmd) encode(ctx context.Context, fs *flag.FlagSet, args []string) error {
	var (
		output  = fs.String("o", "", "write the result to this file instead of modifying FILE")
		dosplit = fs.Bool("split", false, "divide a long message among several chunks")
		force   = fs.Bool("force", false, "allow a tag whose third letter is lowercase")
		tf      = addTransformFlags(fs)
	)
	err := fs.Parse(args)
	if err != nil {
		return errors.Wrap(err, "parsing args")
	}

	args = fs.Args()
	if len(args) < 3 || len(args) > 4 {
		return errors.New("usage: encode [flags] FILE TAG MESSAGE [OUTPUT]")
	}
	name, tag, msg := args[0], args[1], []byte(args[2])
	if len(args) == 4 {
		if *output != "" && *output != args[3] {
			return errors.New("conflicting -o and OUTPUT")
		}
		*output = args[3]
	}

	if args[2] == "-" {
		msg, err = io.ReadAll(os.Stdin)
		if err != nil {
			return errors.Wrap(err, "reading message from stdin")
		}
	}

	x, err := c.conf.transformer(tf)
	if err != nil {
		return err
	}

	_, err = stash.Encode(ctx, c.s, name, tag, msg, &stash.Options{
		Transformer: x,
		Split:       *dosplit,
		Output:      *output,

		AllowNonconforming: *force,
	})
	return err
}

func (c maincmd) decode(ctx context.Context, fs *flag.FlagSet, args []string) error {
	var (
		dosplit = fs.Bool("split", false, "reassemble a message divided among several chunks")
		tf      = addTransformFlags(fs)
	)
	err := fs.Parse(args)
	if err != nil {
		return errors.Wrap(err, "parsing args")
	}

	args = fs.Args()
	if len(args) != 2 {
		return errors.New("usage: decode [flags] FILE TAG")
	}

	x, err := c.conf.transformer(tf)
	if err != nil {
		return err
	}

	msg, err := stash.Decode(ctx, c.s, args[0], args[1], &stash.Options{Transformer: x, Split: *dosplit})
	if err != nil {
		return err
	}
	_, err = os.Stdout.Write(msg)
	return errors.Wrap(err, "writing message to stdout")
}
