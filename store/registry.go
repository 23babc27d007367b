package store

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	"github.com/spf13/cast"
)

// Factory creates a Store from the parameters in a config map.
type Factory func(context.Context, map[string]interface{}) (Store, error)

var registry = make(map[string]Factory)

// Register makes a Store type available to Create under the given key.
// It is normally called from the init function of the package implementing the Store.
func Register(key string, f Factory) {
	registry[key] = f
}

// Create creates a Store of the type registered under key.
func Create(ctx context.Context, key string, conf map[string]interface{}) (Store, error) {
	f, ok := registry[key]
	if !ok {
		return nil, fmt.Errorf("key %s not found in registry", key)
	}
	return f(ctx, conf)
}

// Nested creates the Store described by the "nested" parameter of conf.
// It is for Store types that wrap another.
func Nested(ctx context.Context, conf map[string]interface{}) (Store, error) {
	nested, ok := conf["nested"]
	if !ok {
		return nil, errors.New(`missing "nested" parameter`)
	}
	s, err := FromConf(ctx, nested)
	return s, errors.Wrap(err, "creating nested store")
}

// FromConf creates the Store described by v,
// a map with a "type" key and the parameters for that type.
func FromConf(ctx context.Context, v interface{}) (Store, error) {
	conf, err := cast.ToStringMapE(v)
	if err != nil {
		return nil, errors.Wrap(err, "store config is not a map")
	}
	typ, ok := conf["type"].(string)
	if !ok {
		return nil, errors.New(`store config missing "type"`)
	}
	s, err := Create(ctx, typ, conf)
	return s, errors.Wrapf(err, "creating %s store", typ)
}

// Int gets an integer parameter from conf.
// Config files in different formats decode numbers as different types,
// so this accepts any of them.
func Int(conf map[string]interface{}, key string) (int, bool, error) {
	v, ok := conf[key]
	if !ok {
		return 0, false, nil
	}
	n, err := cast.ToIntE(v)
	return n, true, errors.Wrapf(err, "parameter %q", key)
}
