package stash

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/bobg/pngmsg"
	"github.com/bobg/pngmsg/split"
	"github.com/bobg/pngmsg/store"
	"github.com/bobg/pngmsg/store/mem"
	"github.com/bobg/pngmsg/testutil"
	"github.com/bobg/pngmsg/transform"
)

func newStore(ctx context.Context, t *testing.T, names ...string) (*mem.Store, []byte) {
	s := mem.New()
	img := testutil.PNG(t, 4, 4)
	for _, name := range names {
		if err := s.Put(ctx, name, img); err != nil {
			t.Fatal(err)
		}
	}
	return s, img
}

func TestEncodeDecode(t *testing.T) {
	ctx := context.Background()
	s, img := newStore(ctx, t, "a.png")

	const msg = "This is where your secret message will be!"

	chunks, err := Encode(ctx, s, "a.png", "ruSt", []byte(msg), nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(chunks) != 1 {
		t.Fatalf("got %d chunks, want 1", len(chunks))
	}

	got, err := DecodeString(ctx, s, "a.png", "ruSt", nil)
	if err != nil {
		t.Fatal(err)
	}
	if got != msg {
		t.Errorf("got %q, want %q", got, msg)
	}

	b, err := s.Get(ctx, "a.png")
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(b, img) {
		t.Error("existing chunks changed")
	}
	p, err := pngmsg.Parse(b)
	if err != nil {
		t.Fatal(err)
	}
	all := p.Chunks()
	if last := all[len(all)-1]; last.Tag().String() != "ruSt" {
		t.Errorf("last chunk is %s, want ruSt", last.Tag())
	}

	removed, err := Remove(ctx, s, "a.png", "ruSt", false)
	if err != nil {
		t.Fatal(err)
	}
	if len(removed) != 1 || string(removed[0].Data()) != msg {
		t.Errorf("removed %v", removed)
	}

	b, err = s.Get(ctx, "a.png")
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(b, img) {
		t.Error("file not restored after remove")
	}

	if _, err = Decode(ctx, s, "a.png", "ruSt", nil); !errors.Is(err, pngmsg.ErrNotFound) {
		t.Errorf("got error %v after remove, want %v", err, pngmsg.ErrNotFound)
	}
}

func TestEncodeOutput(t *testing.T) {
	ctx := context.Background()
	s, img := newStore(ctx, t, "in.png")

	if _, err := Encode(ctx, s, "in.png", "ruSt", []byte("hello"), &Options{Output: "out.png"}); err != nil {
		t.Fatal(err)
	}

	b, err := s.Get(ctx, "in.png")
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(b, img) {
		t.Error("input changed")
	}

	got, err := Decode(ctx, s, "out.png", "ruSt", nil)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "hello" {
		t.Errorf("got %q, want hello", got)
	}
}

func TestEncodeErrors(t *testing.T) {
	ctx := context.Background()
	s, _ := newStore(ctx, t, "a.png")

	cases := []struct {
		name, tag string
		want      error
	}{
		{name: "a.png", tag: "rust", want: ErrNonconforming},
		{name: "a.png", tag: "ru1t", want: pngmsg.ErrInvalidTagBytes},
		{name: "a.png", tag: "rustacean", want: pngmsg.ErrInvalidTagLength},
		{name: "missing.png", tag: "ruSt", want: store.ErrNotFound},
	}
	for _, c := range cases {
		t.Run(c.tag+"_"+c.name, func(t *testing.T) {
			_, err := Encode(ctx, s, c.name, c.tag, []byte("x"), nil)
			if !errors.Is(err, c.want) {
				t.Errorf("got error %v, want %v", err, c.want)
			}
		})
	}

	chunks, err := Encode(ctx, s, "a.png", "rust", []byte("x"), &Options{AllowNonconforming: true})
	if err != nil {
		t.Fatal(err)
	}
	if len(chunks) != 1 || chunks[0].Tag().IsValid() {
		t.Errorf("got chunks %v, want one nonconforming rust chunk", chunks)
	}
	got, err := DecodeString(ctx, s, "a.png", "rust", nil)
	if err != nil {
		t.Fatal(err)
	}
	if got != "x" {
		t.Errorf("got %q, want x", got)
	}

	if err := s.Put(ctx, "junk.png", []byte("not a png at all")); err != nil {
		t.Fatal(err)
	}
	if _, err := Encode(ctx, s, "junk.png", "ruSt", []byte("x"), nil); !errors.Is(err, pngmsg.ErrBadSignature) {
		t.Errorf("got error %v, want %v", err, pngmsg.ErrBadSignature)
	}
	b, err := s.Get(ctx, "junk.png")
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != "not a png at all" {
		t.Error("junk.png changed by failed encode")
	}
}

func TestTransformSplit(t *testing.T) {
	ctx := context.Background()
	s, _ := newStore(ctx, t, "a.png")

	x, err := transform.Parse("zstd,age", map[string]interface{}{"passphrase": "sekrit", "workfactor": 10})
	if err != nil {
		t.Fatal(err)
	}
	opts := &Options{
		Transformer:  x,
		Split:        true,
		SplitOptions: []split.Option{split.Bits(6), split.MinSize(16)},
	}

	var msg []byte
	for i := 0; i < 200; i++ {
		msg = append(msg, []byte(strings.Repeat(string(rune('a'+i%26)), i%7+1))...)
	}

	chunks, err := Encode(ctx, s, "a.png", "ruSt", msg, opts)
	if err != nil {
		t.Fatal(err)
	}
	if len(chunks) < 2 {
		t.Logf("message stored in %d chunk(s)", len(chunks))
	}

	got, err := Decode(ctx, s, "a.png", "ruSt", opts)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(msg, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}

	before, err := s.Get(ctx, "a.png")
	if err != nil {
		t.Fatal(err)
	}
	if _, err = Encode(ctx, s, "a.png", "ruSt", []byte("second message"), opts); !errors.Is(err, ErrTagInUse) {
		t.Errorf("got error %v for a second split message, want %v", err, ErrTagInUse)
	}
	after, err := s.Get(ctx, "a.png")
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(before, after) {
		t.Error("a.png changed by refused encode")
	}

	removed, err := Remove(ctx, s, "a.png", "ruSt", true)
	if err != nil {
		t.Fatal(err)
	}
	if len(removed) != len(chunks) {
		t.Errorf("removed %d chunks, want %d", len(removed), len(chunks))
	}
}

func TestRemove(t *testing.T) {
	ctx := context.Background()
	s, _ := newStore(ctx, t, "a.png")

	for _, m := range []string{"one", "two", "three"} {
		if _, err := Encode(ctx, s, "a.png", "ruSt", []byte(m), nil); err != nil {
			t.Fatal(err)
		}
	}

	removed, err := Remove(ctx, s, "a.png", "ruSt", false)
	if err != nil {
		t.Fatal(err)
	}
	if len(removed) != 1 || string(removed[0].Data()) != "one" {
		t.Fatalf("removed %v, want [one]", removed)
	}

	got, err := DecodeString(ctx, s, "a.png", "ruSt", nil)
	if err != nil {
		t.Fatal(err)
	}
	if got != "two" {
		t.Errorf("got %q, want two", got)
	}

	removed, err = Remove(ctx, s, "a.png", "ruSt", true)
	if err != nil {
		t.Fatal(err)
	}
	if len(removed) != 2 {
		t.Errorf("removed %d chunks, want 2", len(removed))
	}

	if _, err = Remove(ctx, s, "a.png", "ruSt", true); !errors.Is(err, pngmsg.ErrNotFound) {
		t.Errorf("got error %v, want %v", err, pngmsg.ErrNotFound)
	}
}

func TestDecodeInvalidUTF8(t *testing.T) {
	ctx := context.Background()
	s, _ := newStore(ctx, t, "a.png")

	if _, err := Encode(ctx, s, "a.png", "ruSt", []byte{0xff, 0xfe}, nil); err != nil {
		t.Fatal(err)
	}
	if _, err := DecodeString(ctx, s, "a.png", "ruSt", nil); !errors.Is(err, pngmsg.ErrInvalidUTF8) {
		t.Errorf("got error %v, want %v", err, pngmsg.ErrInvalidUTF8)
	}
}

func TestChunksAndPrint(t *testing.T) {
	ctx := context.Background()
	s, _ := newStore(ctx, t, "a.png", "b.png")

	if _, err := Encode(ctx, s, "b.png", "ruSt", []byte("hello"), nil); err != nil {
		t.Fatal(err)
	}

	infos, err := Chunks(ctx, s, "b.png")
	if err != nil {
		t.Fatal(err)
	}
	if infos[0].Tag != "IHDR" || !infos[0].Critical {
		t.Errorf("first chunk is %+v, want critical IHDR", infos[0])
	}
	last := infos[len(infos)-1]
	want := ChunkInfo{
		Index:      len(infos) - 1,
		Tag:        "ruSt",
		Length:     5,
		CRC:        pngmsg.Checksum([]byte("ruSthello")),
		SafeToCopy: true,
		Valid:      true,
	}
	if diff := cmp.Diff(want, last); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}

	buf := new(bytes.Buffer)
	if err = PrintAll(ctx, s, []string{"b.png", "a.png"}, buf); err != nil {
		t.Fatal(err)
	}
	out := buf.String()

	ib, ia := strings.Index(out, "==> b.png <=="), strings.Index(out, "==> a.png <==")
	if ib != 0 || ia < 0 {
		t.Fatalf("headers out of order:\n%s", out)
	}
	if !strings.Contains(out[:ia], "ruSt") {
		t.Errorf("ruSt not listed for b.png:\n%s", out)
	}
	if strings.Contains(out[ia:], "ruSt") {
		t.Errorf("ruSt listed for a.png:\n%s", out)
	}
	if n := strings.Count(out, "\n"); n != 2*len(infos)+1 {
		t.Errorf("got %d lines, want %d", n, 2*len(infos)+1)
	}

	if err = PrintAll(ctx, s, []string{"a.png", "missing.png"}, buf); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("got error %v, want %v", err, store.ErrNotFound)
	}
}
