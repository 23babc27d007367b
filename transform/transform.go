// Package transform implements reversible transformations of messages,
// such as compression and encryption,
// applied before a message is hidden in a PNG file and after it is recovered.
package transform

import (
	"compress/lzw"
	"context"
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cast"
)

// Transformer tells how to transform a message on its way into and out of a PNG file.
// Out should be the inverse of In.
type Transformer interface {
	// In transforms a message on its way into a file.
	In(context.Context, []byte) ([]byte, error)

	// Out transforms a message on its way out of a file.
	Out(context.Context, []byte) ([]byte, error)
}

// Chain is a Transformer that applies a sequence of Transformers.
// In applies them in order,
// Out in reverse order.
type Chain []Transformer

// In implements Transformer.In.
func (c Chain) In(ctx context.Context, inp []byte) ([]byte, error) {
	for i, x := range c {
		var err error
		inp, err = x.In(ctx, inp)
		if err != nil {
			return nil, errors.Wrapf(err, "in step %d (%T)", i, x)
		}
	}
	return inp, nil
}

// Out implements Transformer.Out.
func (c Chain) Out(ctx context.Context, inp []byte) ([]byte, error) {
	for i := len(c) - 1; i >= 0; i-- {
		var err error
		inp, err = c[i].Out(ctx, inp)
		if err != nil {
			return nil, errors.Wrapf(err, "in step %d (%T)", i, c[i])
		}
	}
	return inp, nil
}

// Identity is the Transformer that changes nothing.
type Identity struct{}

// In implements Transformer.In.
func (Identity) In(_ context.Context, inp []byte) ([]byte, error) { return inp, nil }

// Out implements Transformer.Out.
func (Identity) Out(_ context.Context, inp []byte) ([]byte, error) { return inp, nil }

// Parse produces a Transformer from a comma-separated list of names,
// such as "zstd,age",
// each built with New from the same conf.
// The empty string produces Identity.
func Parse(names string, conf map[string]interface{}) (Transformer, error) {
	if names == "" {
		return Identity{}, nil
	}
	var c Chain
	for _, name := range strings.Split(names, ",") {
		x, err := New(strings.TrimSpace(name), conf)
		if err != nil {
			return nil, err
		}
		c = append(c, x)
	}
	if len(c) == 1 {
		return c[0], nil
	}
	return c, nil
}

// New produces the Transformer with the given name,
// configured from the parameters in conf
// (which may be nil).
func New(name string, conf map[string]interface{}) (Transformer, error) {
	switch name {
	case "lzw":
		order := lzw.LSB
		if o, err := intParam(conf, "order", int(lzw.LSB)); err != nil {
			return nil, err
		} else if lzw.Order(o) == lzw.MSB {
			order = lzw.MSB
		}
		return LZW{Order: order}, nil

	case "flate":
		level, err := intParam(conf, "level", -1)
		if err != nil {
			return nil, err
		}
		return Flate{Level: level}, nil

	case "zstd":
		level, err := intParam(conf, "level", 3)
		if err != nil {
			return nil, err
		}
		return NewZstd(level)

	case "lz4":
		level, err := intParam(conf, "level", 0)
		if err != nil {
			return nil, err
		}
		return LZ4{Level: level}, nil

	case "bzip2":
		level, err := intParam(conf, "level", 6)
		if err != nil {
			return nil, err
		}
		return Bzip2{Level: level}, nil

	case "age":
		return ageFromConf(conf)

	default:
		return nil, fmt.Errorf(`unknown transformer "%s"`, name)
	}
}

func intParam(conf map[string]interface{}, key string, dflt int) (int, error) {
	v, ok := conf[key]
	if !ok {
		return dflt, nil
	}
	n, err := cast.ToIntE(v)
	return n, errors.Wrapf(err, "parameter %q", key)
}

func ageFromConf(conf map[string]interface{}) (Transformer, error) {
	workFactor, err := intParam(conf, "workfactor", 0)
	if err != nil {
		return nil, err
	}
	if pass, ok := conf["passphrase"].(string); ok && pass != "" {
		return NewPassphrase(pass, workFactor)
	}

	recipients := stringsParam(conf, "recipients")
	identities := stringsParam(conf, "identities")
	if len(recipients) == 0 && len(identities) == 0 {
		return nil, errors.New(`age needs "passphrase", "recipients", or "identities"`)
	}
	return NewKeys(recipients, identities)
}

// stringsParam accepts a single string or a list of them.
func stringsParam(conf map[string]interface{}, key string) []string {
	switch v := conf[key].(type) {
	case string:
		if v == "" {
			return nil
		}
		return []string{v}
	case []string:
		return v
	case []interface{}:
		var result []string
		for _, s := range v {
			if s, ok := s.(string); ok {
				result = append(result, s)
			}
		}
		return result
	}
	return nil
}
