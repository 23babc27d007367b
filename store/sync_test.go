package store_test

import (
	"context"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	. "github.com/bobg/pngmsg/store"
	"github.com/bobg/pngmsg/store/mem"
)

func TestSync(t *testing.T) {
	const text = `abc def ghi jkl mno pqr stu`

	var (
		ctx    = context.Background()
		words  = strings.Fields(text)
		stores = make([]Store, 0, len(words))
	)
	for i := range words {
		s := mem.New()
		stores = append(stores, s)
		for j, word := range words {
			if i == j {
				continue
			}
			if err := s.Put(ctx, word+".png", []byte(word)); err != nil {
				t.Fatal(err)
			}
		}
	}

	err := Sync(ctx, stores)
	if err != nil {
		t.Fatal(err)
	}

	var want []string
	for _, word := range words {
		want = append(want, word+".png")
	}

	for i, s := range stores {
		var got []string
		err = s.List(ctx, "", func(name string) error {
			got = append(got, name)
			return nil
		})
		if err != nil {
			t.Fatal(err)
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("store %d mismatch (-want +got):\n%s", i, diff)
		}
		data, err := s.Get(ctx, words[i]+".png")
		if err != nil {
			t.Fatal(err)
		}
		if string(data) != words[i] {
			t.Errorf("store %d: got %q for %s.png", i, data, words[i])
		}
	}
}

func TestCreate(t *testing.T) {
	ctx := context.Background()

	s, err := Create(ctx, "mem", nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := s.(*mem.Store); !ok {
		t.Errorf("got a %T, want *mem.Store", s)
	}

	if _, err = Create(ctx, "nonesuch", nil); err == nil {
		t.Error("Create of unknown type succeeded")
	}
}

func TestInt(t *testing.T) {
	conf := map[string]interface{}{"a": 7, "b": 7.0, "c": "7", "d": "seven"}
	for _, key := range []string{"a", "b", "c"} {
		n, ok, err := Int(conf, key)
		if err != nil {
			t.Fatal(err)
		}
		if !ok || n != 7 {
			t.Errorf("%s: got %d, %v; want 7, true", key, n, ok)
		}
	}
	if _, _, err := Int(conf, "d"); err == nil {
		t.Error("no error for non-numeric parameter")
	}
	if _, ok, err := Int(conf, "e"); ok || err != nil {
		t.Errorf("missing parameter: got %v, %v; want false, nil", ok, err)
	}
}

func TestFromConf(t *testing.T) {
	ctx := context.Background()

	s, err := FromConf(ctx, map[interface{}]interface{}{"type": "mem"})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := s.(*mem.Store); !ok {
		t.Errorf("got a %T, want *mem.Store", s)
	}

	for _, bad := range []interface{}{"mem", map[string]interface{}{"size": 1}} {
		if _, err = FromConf(ctx, bad); err == nil {
			t.Errorf("FromConf(%v) succeeded", bad)
		}
	}
}
