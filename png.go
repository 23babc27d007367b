package pngmsg

import (
	"bytes"

	"github.com/pkg/errors"
)

// Signature is the eight-byte prefix of every PNG file.
var Signature = [8]byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}

// PNG is a PNG file as an ordered sequence of chunks.
// Chunks it does not create,
// including IHDR and IEND,
// are carried opaquely and kept in their original order.
//
// A PNG has no internal locking.
// Callers sharing one must serialize mutations.
type PNG struct {
	chunks []*Chunk
}

// New produces a PNG containing the given chunks.
func New(chunks ...*Chunk) *PNG {
	return &PNG{chunks: chunks}
}

// Parse parses a complete PNG file.
// Every chunk's CRC is verified.
func Parse(b []byte) (*PNG, error) {
	p := new(PNG)
	err := ForEachChunk(b, func(c *Chunk) error {
		p.chunks = append(p.chunks, c)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

// ForEachChunk parses the chunks of the PNG file in b one at a time,
// calling f on each in order.
// It stops at the first parse error or the first error from f,
// returning it.
func ForEachChunk(b []byte, f func(*Chunk) error) error {
	if err := checkSignature(b); err != nil {
		return err
	}
	for pos, i := len(Signature), 0; pos < len(b); i++ {
		c, n, err := readChunk(b[pos:])
		if err != nil {
			return errors.Wrapf(err, "parsing chunk %d at offset %d", i, pos)
		}
		if err = f(c); err != nil {
			return err
		}
		pos += n
	}
	return nil
}

func checkSignature(b []byte) error {
	if len(b) < len(Signature) {
		return errors.Wrapf(ErrTruncated, "%d bytes is too short for a signature", len(b))
	}
	if !bytes.Equal(b[:len(Signature)], Signature[:]) {
		return errors.Wrapf(ErrBadSignature, "got % x", b[:len(Signature)])
	}
	return nil
}

// AppendChunk adds a chunk at the end of p.
// Duplicate tags are allowed.
func (p *PNG) AppendChunk(c *Chunk) {
	p.chunks = append(p.chunks, c)
}

// ChunkByTag returns the first chunk whose tag is the given text,
// or nil if there is none.
func (p *PNG) ChunkByTag(tag string) *Chunk {
	if i := p.index(tag); i >= 0 {
		return p.chunks[i]
	}
	return nil
}

// ChunksByTag returns all chunks whose tag is the given text, in order.
func (p *PNG) ChunksByTag(tag string) []*Chunk {
	var result []*Chunk
	for _, c := range p.chunks {
		if c.tag.String() == tag {
			result = append(result, c)
		}
	}
	return result
}

// RemoveChunk removes the first chunk whose tag is the given text and returns it.
// The error is ErrNotFound if there is no such chunk.
func (p *PNG) RemoveChunk(tag string) (*Chunk, error) {
	i := p.index(tag)
	if i < 0 {
		return nil, errors.Wrapf(ErrNotFound, "chunk %s", tag)
	}
	c := p.chunks[i]
	p.chunks = append(p.chunks[:i:i], p.chunks[i+1:]...)
	return c, nil
}

func (p *PNG) index(tag string) int {
	for i, c := range p.chunks {
		if c.tag.String() == tag {
			return i
		}
	}
	return -1
}

// Chunks returns p's chunks in order.
// Callers must not modify the slice.
func (p *PNG) Chunks() []*Chunk {
	return p.chunks
}

// Bytes produces the serialized PNG file.
func (p *PNG) Bytes() []byte {
	size := len(Signature)
	for _, c := range p.chunks {
		size += chunkFraming + len(c.data)
	}
	buf := make([]byte, 0, size)
	buf = append(buf, Signature[:]...)
	for _, c := range p.chunks {
		buf = c.appendTo(buf)
	}
	return buf
}
