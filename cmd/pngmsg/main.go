// Command pngmsg hides messages in PNG files and recovers them.
//
// Usage:
//
//	pngmsg [-config FILE] [-v] encode [-o OUTPUT] [-split] [-force] [transform flags] FILE TAG MESSAGE [OUTPUT]
//	pngmsg [-config FILE] [-v] decode [-split] [transform flags] FILE TAG
//	pngmsg [-config FILE] [-v] remove [-all] FILE TAG
//	pngmsg [-config FILE] [-v] print FILE...
//	pngmsg [-config FILE] [-v] list [-start NAME]
//	pngmsg [-config FILE] [-v] sync CONFIG...
//	pngmsg [-config FILE] [-v] serve [-addr ADDR] [transform flags]
//
// Without -config, FILE names are paths in the local filesystem.
package main

import (
	"context"
	"flag"
	"io"
	"log"

	"github.com/bobg/subcmd"

	"github.com/bobg/pngmsg/store"
	_ "github.com/bobg/pngmsg/store/file"
	_ "github.com/bobg/pngmsg/store/gcs"
	"github.com/bobg/pngmsg/store/logging"
	_ "github.com/bobg/pngmsg/store/lru"
	_ "github.com/bobg/pngmsg/store/mem"
	_ "github.com/bobg/pngmsg/store/pg"
	_ "github.com/bobg/pngmsg/store/replica"
	_ "github.com/bobg/pngmsg/store/sqlite3"
)

type maincmd struct {
	s    store.Store
	conf *config
}

func main() {
	var (
		configFile = flag.String("config", "", "path to config file (JSON, YAML, or TOML)")
		verbose    = flag.Bool("v", false, "log store operations")
	)
	flag.Parse()

	ctx := context.Background()

	conf, err := loadConfig(*configFile)
	if err != nil {
		log.Fatal(err)
	}

	s, err := conf.store(ctx)
	if err != nil {
		log.Fatal(err)
	}
	closer, _ := s.(io.Closer) // e.g. a replica store, which must flush its queues
	if *verbose {
		s = logging.New(s)
	}

	err = subcmd.Run(ctx, maincmd{s: s, conf: conf}, flag.Args())
	if closer != nil {
		if cerr := closer.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	if err != nil {
		log.Fatal(err)
	}
}

func (c maincmd) Subcmds() map[string]subcmd.Subcmd {
	return map[string]subcmd.Subcmd{
		"decode": c.decode,
		"encode": c.encode,
		"list":   c.list,
		"print":  c.print,
		"remove": c.remove,
		"serve":  c.serve,
		"sync":   c.sync,
	}
}
