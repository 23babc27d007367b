package pngmsg

import (
	"bufio"
	"encoding/binary"
	"io"

	"github.com/pkg/errors"
)

// Reader reads the chunks of a PNG stream one at a time.
type Reader struct {
	r *bufio.Reader
	n int // index of the next chunk
}

// NewReader reads and checks the signature from r
// and produces a Reader for the chunks that follow.
func NewReader(r io.Reader) (*Reader, error) {
	br := bufio.NewReader(r)
	sig := make([]byte, len(Signature))
	if _, err := io.ReadFull(br, sig); err != nil {
		return nil, truncated(err, "reading signature")
	}
	if err := checkSignature(sig); err != nil {
		return nil, err
	}
	return &Reader{r: br}, nil
}

// Next returns the next chunk in the stream.
// At the end of the stream it returns io.EOF.
func (r *Reader) Next() (*Chunk, error) {
	var hdr [lengthSize + tagSize]byte
	if _, err := io.ReadFull(r.r, hdr[:]); err == io.EOF {
		return nil, io.EOF
	} else if err != nil {
		return nil, truncated(err, "reading header of chunk %d", r.n)
	}

	n := binary.BigEndian.Uint32(hdr[:])
	if n > MaxDataLen {
		return nil, errors.Wrapf(ErrTruncated, "chunk %d length %d exceeds maximum %d", r.n, n, MaxDataLen)
	}

	var raw [4]byte
	copy(raw[:], hdr[lengthSize:])
	tag, err := ParseTag(raw)
	if err != nil {
		return nil, errors.Wrapf(err, "chunk %d", r.n)
	}

	data := make([]byte, n)
	if _, err = io.ReadFull(r.r, data); err != nil {
		return nil, truncated(err, "reading data of chunk %d (%s)", r.n, tag)
	}

	var crc [crcSize]byte
	if _, err = io.ReadFull(r.r, crc[:]); err != nil {
		return nil, truncated(err, "reading CRC of chunk %d (%s)", r.n, tag)
	}

	c, err := checkedChunk(tag, data, binary.BigEndian.Uint32(crc[:]))
	if err != nil {
		return nil, errors.Wrapf(err, "chunk %d", r.n)
	}
	r.n++
	return c, nil
}

func truncated(err error, format string, args ...interface{}) error {
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		err = ErrTruncated
	}
	return errors.Wrapf(err, format, args...)
}
