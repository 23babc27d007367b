package transform

import (
	"bytes"
	"compress/flate"
	"compress/lzw"
	"context"
	"io"

	"filippo.io/age"
	"github.com/dsnet/compress/bzip2"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
	"github.com/pkg/errors"
)

// LZW is a Transformer implementing lzw compression.
type LZW struct {
	Order lzw.Order
}

// In implements Transformer.In.
func (l LZW) In(_ context.Context, inp []byte) ([]byte, error) {
	buf := new(bytes.Buffer)
	w := lzw.NewWriter(buf, l.Order, 8)
	if _, err := w.Write(inp); err != nil {
		return nil, errors.Wrap(err, "lzw compressing")
	}
	err := w.Close()
	return buf.Bytes(), errors.Wrap(err, "lzw compressing")
}

// Out implements Transformer.Out.
func (l LZW) Out(_ context.Context, inp []byte) ([]byte, error) {
	rr := lzw.NewReader(bytes.NewReader(inp), l.Order, 8)
	defer rr.Close()
	out, err := io.ReadAll(rr)
	return out, errors.Wrap(err, "lzw decompressing")
}

// Flate is a Transformer implementing RFC1951 DEFLATE compression.
type Flate struct {
	Level int
}

// In implements Transformer.In.
func (f Flate) In(_ context.Context, inp []byte) ([]byte, error) {
	level := f.Level
	if level < flate.HuffmanOnly || level > flate.BestCompression {
		level = flate.DefaultCompression
	}
	buf := new(bytes.Buffer)
	w, err := flate.NewWriter(buf, level)
	if err != nil {
		return nil, errors.Wrap(err, "creating flate writer")
	}
	if _, err = w.Write(inp); err != nil {
		return nil, errors.Wrap(err, "flate compressing")
	}
	err = w.Close()
	return buf.Bytes(), errors.Wrap(err, "flate compressing")
}

// Out implements Transformer.Out.
func (f Flate) Out(_ context.Context, inp []byte) ([]byte, error) {
	rr := flate.NewReader(bytes.NewReader(inp))
	defer rr.Close()
	out, err := io.ReadAll(rr)
	return out, errors.Wrap(err, "flate decompressing")
}

// Zstd is a Transformer implementing Zstandard compression.
// Create one with NewZstd.
type Zstd struct {
	enc *zstd.Encoder
	dec *zstd.Decoder
}

// NewZstd produces a Zstd compressing at the given zstd level
// (1 through 22, 3 being zstd's own default).
// The result is safe for concurrent use.
func NewZstd(level int) (*Zstd, error) {
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(level)))
	if err != nil {
		return nil, errors.Wrap(err, "creating zstd encoder")
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, errors.Wrap(err, "creating zstd decoder")
	}
	return &Zstd{enc: enc, dec: dec}, nil
}

// In implements Transformer.In.
func (z *Zstd) In(_ context.Context, inp []byte) ([]byte, error) {
	return z.enc.EncodeAll(inp, nil), nil
}

// Out implements Transformer.Out.
func (z *Zstd) Out(_ context.Context, inp []byte) ([]byte, error) {
	out, err := z.dec.DecodeAll(inp, nil)
	return out, errors.Wrap(err, "zstd decompressing")
}

// LZ4 is a Transformer implementing LZ4 compression in the LZ4 frame format.
// Level 0 is LZ4's fast mode;
// 1 through 9 select increasingly thorough high-compression modes.
type LZ4 struct {
	Level int
}

var lz4Levels = []lz4.CompressionLevel{
	lz4.Fast,
	lz4.Level1, lz4.Level2, lz4.Level3,
	lz4.Level4, lz4.Level5, lz4.Level6,
	lz4.Level7, lz4.Level8, lz4.Level9,
}

// In implements Transformer.In.
func (l LZ4) In(_ context.Context, inp []byte) ([]byte, error) {
	level := lz4.Fast
	if l.Level > 0 && l.Level < len(lz4Levels) {
		level = lz4Levels[l.Level]
	}
	buf := new(bytes.Buffer)
	w := lz4.NewWriter(buf)
	if err := w.Apply(lz4.CompressionLevelOption(level)); err != nil {
		return nil, errors.Wrap(err, "configuring lz4 writer")
	}
	if _, err := w.Write(inp); err != nil {
		return nil, errors.Wrap(err, "lz4 compressing")
	}
	err := w.Close()
	return buf.Bytes(), errors.Wrap(err, "lz4 compressing")
}

// Out implements Transformer.Out.
func (l LZ4) Out(_ context.Context, inp []byte) ([]byte, error) {
	out, err := io.ReadAll(lz4.NewReader(bytes.NewReader(inp)))
	return out, errors.Wrap(err, "lz4 decompressing")
}

// Bzip2 is a Transformer implementing bzip2 compression.
type Bzip2 struct {
	Level int
}

// In implements Transformer.In.
func (b Bzip2) In(_ context.Context, inp []byte) ([]byte, error) {
	level := b.Level
	if level < bzip2.BestSpeed || level > bzip2.BestCompression {
		level = bzip2.DefaultCompression
	}
	buf := new(bytes.Buffer)
	w, err := bzip2.NewWriter(buf, &bzip2.WriterConfig{Level: level})
	if err != nil {
		return nil, errors.Wrap(err, "creating bzip2 writer")
	}
	if _, err = w.Write(inp); err != nil {
		return nil, errors.Wrap(err, "bzip2 compressing")
	}
	err = w.Close()
	return buf.Bytes(), errors.Wrap(err, "bzip2 compressing")
}

// Out implements Transformer.Out.
func (b Bzip2) Out(_ context.Context, inp []byte) ([]byte, error) {
	r, err := bzip2.NewReader(bytes.NewReader(inp), nil)
	if err != nil {
		return nil, errors.Wrap(err, "creating bzip2 reader")
	}
	defer r.Close()
	out, err := io.ReadAll(r)
	return out, errors.Wrap(err, "bzip2 decompressing")
}

// Age is a Transformer implementing age encryption.
// Create one with NewPassphrase or NewKeys.
// In needs recipients and Out needs identities;
// an Age with only one kind can only transform in one direction.
type Age struct {
	recipients []age.Recipient
	identities []age.Identity
}

// NewPassphrase produces an Age that encrypts and decrypts with a passphrase.
// A workFactor of 0 means age's default;
// lower values are faster and weaker.
func NewPassphrase(pass string, workFactor int) (*Age, error) {
	r, err := age.NewScryptRecipient(pass)
	if err != nil {
		return nil, errors.Wrap(err, "creating scrypt recipient")
	}
	if workFactor > 0 {
		r.SetWorkFactor(workFactor)
	}
	id, err := age.NewScryptIdentity(pass)
	if err != nil {
		return nil, errors.Wrap(err, "creating scrypt identity")
	}
	return &Age{recipients: []age.Recipient{r}, identities: []age.Identity{id}}, nil
}

// NewKeys produces an Age that encrypts to the given X25519 public keys ("age1...")
// and decrypts with the given X25519 private keys ("AGE-SECRET-KEY-1...").
func NewKeys(recipients, identities []string) (*Age, error) {
	a := new(Age)
	for _, s := range recipients {
		r, err := age.ParseX25519Recipient(s)
		if err != nil {
			return nil, errors.Wrapf(err, "parsing recipient %s", s)
		}
		a.recipients = append(a.recipients, r)
	}
	for i, s := range identities {
		id, err := age.ParseX25519Identity(s)
		if err != nil {
			return nil, errors.Wrapf(err, "parsing identity %d", i)
		}
		a.identities = append(a.identities, id)
		if len(recipients) == 0 {
			a.recipients = append(a.recipients, id.Recipient())
		}
	}
	return a, nil
}

// In implements Transformer.In.
func (a *Age) In(_ context.Context, inp []byte) ([]byte, error) {
	if len(a.recipients) == 0 {
		return nil, errors.New("no age recipients")
	}
	buf := new(bytes.Buffer)
	w, err := age.Encrypt(buf, a.recipients...)
	if err != nil {
		return nil, errors.Wrap(err, "creating age encryptor")
	}
	if _, err = w.Write(inp); err != nil {
		return nil, errors.Wrap(err, "encrypting")
	}
	err = w.Close()
	return buf.Bytes(), errors.Wrap(err, "finalizing encryption")
}

// Out implements Transformer.Out.
func (a *Age) Out(_ context.Context, inp []byte) ([]byte, error) {
	if len(a.identities) == 0 {
		return nil, errors.New("no age identities")
	}
	r, err := age.Decrypt(bytes.NewReader(inp), a.identities...)
	if err != nil {
		return nil, errors.Wrap(err, "decrypting")
	}
	out, err := io.ReadAll(r)
	return out, errors.Wrap(err, "reading decrypted message")
}
