package main

import (
	"context"
	"flag"
	"log"
	"net"
	"net/http"

	"github.com/pkg/errors"

	"github.com/bobg/pngmsg/server"
)

func (c maincmd) serve(ctx context.Context, fs *flag.FlagSet, args []string) error {
	var (
		addr = fs.String("addr", "localhost:8080", "address to listen on")
		tf   = addTransformFlags(fs)
	)
	err := fs.Parse(args)
	if err != nil {
		return errors.Wrap(err, "parsing args")
	}

	x, err := c.conf.transformer(tf)
	if err != nil {
		return err
	}

	lis, err := net.Listen("tcp", *addr)
	if err != nil {
		return errors.Wrapf(err, "listening on %s", *addr)
	}
	defer lis.Close()

	srv := &http.Server{
		Handler:     server.New(c.s, x).Handler(),
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	log.Printf("Listening on %s", lis.Addr())

	err = srv.Serve(lis)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}
