package pngmsg

import (
	"encoding/binary"
	"fmt"
	"unicode/utf8"

	"github.com/pkg/errors"
)

// Chunk is one record of a PNG file:
// a tag,
// some data,
// and the CRC of both.
// A Chunk is immutable once constructed.
type Chunk struct {
	tag  Tag
	data []byte
	crc  uint32
}

const (
	lengthSize   = 4
	tagSize      = 4
	crcSize      = 4
	chunkFraming = lengthSize + tagSize + crcSize

	// MaxDataLen is the largest amount of data a chunk may carry.
	MaxDataLen = 1<<31 - 1
)

// NewChunk produces a new Chunk with the given tag and data,
// computing its CRC.
// The Chunk takes ownership of data.
func NewChunk(tag Tag, data []byte) *Chunk {
	return &Chunk{tag: tag, data: data, crc: chunkCRC(tag, data)}
}

// ParseChunk parses the serialized form of a single chunk.
// The buffer must contain exactly one chunk.
func ParseChunk(b []byte) (*Chunk, error) {
	c, n, err := readChunk(b)
	if err != nil {
		return nil, err
	}
	if n != len(b) {
		return nil, errors.Wrapf(ErrTrailingData, "%d bytes after chunk %s", len(b)-n, c.tag)
	}
	return c, nil
}

// readChunk parses the chunk at the start of b,
// returning it and the number of bytes it occupies.
func readChunk(b []byte) (*Chunk, int, error) {
	if len(b) < chunkFraming {
		return nil, 0, errors.Wrapf(ErrTruncated, "%d bytes is too short for a chunk", len(b))
	}
	n := binary.BigEndian.Uint32(b)
	if n > MaxDataLen {
		return nil, 0, errors.Wrapf(ErrTruncated, "chunk length %d exceeds maximum %d", n, MaxDataLen)
	}
	end := chunkFraming + int(n)
	if len(b) < end {
		return nil, 0, errors.Wrapf(ErrTruncated, "chunk declares %d data bytes, %d available", n, len(b)-chunkFraming)
	}

	var raw [4]byte
	copy(raw[:], b[lengthSize:])
	tag, err := ParseTag(raw)
	if err != nil {
		return nil, 0, err
	}

	data := make([]byte, n)
	copy(data, b[lengthSize+tagSize:])

	c, err := checkedChunk(tag, data, binary.BigEndian.Uint32(b[end-crcSize:]))
	return c, end, err
}

func checkedChunk(tag Tag, data []byte, stored uint32) (*Chunk, error) {
	c := NewChunk(tag, data)
	if c.crc != stored {
		return nil, &ChecksumError{Tag: tag, Stored: stored, Actual: c.crc}
	}
	return c, nil
}

// Tag returns the chunk's tag.
func (c *Chunk) Tag() Tag { return c.tag }

// Data returns the chunk's data.
// Callers must not modify it.
func (c *Chunk) Data() []byte { return c.data }

// Length returns the length of the chunk's data.
func (c *Chunk) Length() uint32 { return uint32(len(c.data)) }

// CRC returns the chunk's checksum.
func (c *Chunk) CRC() uint32 { return c.crc }

// DataString returns the chunk's data as text.
func (c *Chunk) DataString() (string, error) {
	if !utf8.Valid(c.data) {
		return "", errors.Wrapf(ErrInvalidUTF8, "data of chunk %s", c.tag)
	}
	return string(c.data), nil
}

// Bytes produces the serialized form of the chunk.
func (c *Chunk) Bytes() []byte {
	return c.appendTo(make([]byte, 0, chunkFraming+len(c.data)))
}

func (c *Chunk) appendTo(buf []byte) []byte {
	buf = binary.BigEndian.AppendUint32(buf, uint32(len(c.data)))
	buf = append(buf, c.tag[:]...)
	buf = append(buf, c.data...)
	return binary.BigEndian.AppendUint32(buf, c.crc)
}

func (c *Chunk) String() string {
	return fmt.Sprintf("%s len=%d crc=%08x critical=%v public=%v safe-to-copy=%v", c.tag, len(c.data), c.crc, c.tag.IsCritical(), c.tag.IsPublic(), c.tag.IsSafeToCopy())
}
