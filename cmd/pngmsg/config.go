package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/viper"

	"github.com/bobg/pngmsg/store"
	"github.com/bobg/pngmsg/transform"
)

// config is the contents of a config file.
// Its "store" section describes the store
// (a "type" plus the parameters for that type),
// and its "transform" section describes message transformation
// (a comma-separated list of transformer "names" plus their parameters).
// Values in the transform section can also come from PNGMSG_ environment variables,
// e.g. PNGMSG_TRANSFORM_PASSPHRASE.
type config struct {
	v *viper.Viper
}

func loadConfig(filename string) (*config, error) {
	v := viper.New()
	v.SetDefault("store.type", "file")
	v.SetDefault("store.root", "")
	v.SetEnvPrefix("pngmsg")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	for _, key := range []string{"transform.names", "transform.passphrase", "transform.workfactor"} {
		if err := v.BindEnv(key); err != nil {
			return nil, errors.Wrapf(err, "binding %s", key)
		}
	}

	if filename != "" {
		v.SetConfigFile(filename)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "reading config file %s", filename)
		}
	}

	return &config{v: v}, nil
}

func (c *config) store(ctx context.Context) (store.Store, error) {
	return storeFromSettings(ctx, c.v.GetStringMap("store"))
}

func storeFromSettings(ctx context.Context, conf map[string]interface{}) (store.Store, error) {
	typ, ok := conf["type"].(string)
	if !ok {
		return nil, errors.New("config missing store `type` parameter")
	}
	s, err := store.Create(ctx, typ, conf)
	return s, errors.Wrapf(err, "creating %s-type store", typ)
}

// storeFromConfig creates the store described by another config file.
func storeFromConfig(ctx context.Context, filename string) (store.Store, error) {
	c, err := loadConfig(filename)
	if err != nil {
		return nil, err
	}
	return c.store(ctx)
}

// transformFlags are the flags that override the transform section of the config.
type transformFlags struct {
	names      *string
	passphrase *string
	recipients *string
	identity   *string
}

func addTransformFlags(fs *flag.FlagSet) *transformFlags {
	return &transformFlags{
		names:      fs.String("transform", "", "comma-separated transformers, e.g. zstd,age (default from config)"),
		passphrase: fs.String("passphrase", "", "passphrase for the age transformer"),
		recipients: fs.String("recipient", "", "comma-separated age recipients (public keys)"),
		identity:   fs.String("identity", "", "file of age identities (private keys)"),
	}
}

func (c *config) transformer(tf *transformFlags) (transform.Transformer, error) {
	conf := make(map[string]interface{})
	for k, v := range c.v.GetStringMap("transform") {
		conf[k] = v
	}
	names := c.v.GetString("transform.names")
	if pass := c.v.GetString("transform.passphrase"); pass != "" {
		conf["passphrase"] = pass
	}
	if wf := c.v.GetString("transform.workfactor"); wf != "" {
		conf["workfactor"] = wf
	}

	if tf != nil {
		if *tf.names != "" {
			names = *tf.names
		}
		if *tf.passphrase != "" {
			conf["passphrase"] = *tf.passphrase
		}
		if *tf.recipients != "" {
			conf["recipients"] = strings.Split(*tf.recipients, ",")
		}
		if *tf.identity != "" {
			ids, err := readIdentities(*tf.identity)
			if err != nil {
				return nil, err
			}
			conf["identities"] = ids
		}
	}

	x, err := transform.Parse(names, conf)
	return x, errors.Wrapf(err, "building transformer %s", names)
}

// readIdentities reads age identities from a file,
// one per line,
// skipping blank lines and # comments.
func readIdentities(filename string) ([]string, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, errors.Wrapf(err, "opening %s", filename)
	}
	defer f.Close()

	var result []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		result = append(result, line)
	}
	if err := sc.Err(); err != nil {
		return nil, errors.Wrapf(err, "reading %s", filename)
	}
	if len(result) == 0 {
		return nil, fmt.Errorf("no identities in %s", filename)
	}
	return result, nil
}
