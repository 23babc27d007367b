// Package split divides long messages into pieces,
// each small enough to be the data of one PNG chunk,
// using content-defined boundaries.
// See github.com/bobg/hashsplit for more information.
//
// Since boundaries depend on content rather than on position,
// an edit to one part of a message changes only the pieces near the edit.
package split

import (
	"bytes"

	"github.com/bobg/hashsplit"
	"github.com/pkg/errors"

	"github.com/bobg/pngmsg"
)

type splitter struct {
	bits    uint
	minSize int
	maxSize int
}

// Option is the type of an option passed to Split.
type Option func(*splitter)

// Bits sets the number of trailing zero bits in the rolling checksum that mark a boundary.
// Pieces average 2^n bytes.
// The default is 14.
func Bits(n uint) Option {
	return func(s *splitter) {
		s.bits = n
	}
}

// MinSize sets the smallest piece size, except for the last piece.
// The default is 1024.
func MinSize(n int) Option {
	return func(s *splitter) {
		s.minSize = n
	}
}

// MaxSize sets the largest piece size.
// Longer pieces are cut at this size.
// The default, and the upper limit, is pngmsg.MaxDataLen.
func MaxSize(n int) Option {
	return func(s *splitter) {
		s.maxSize = n
	}
}

// Split divides msg into pieces whose concatenation is msg.
// An empty message produces a single empty piece,
// so that it still occupies a chunk.
func Split(msg []byte, opts ...Option) ([][]byte, error) {
	s := &splitter{bits: 14, minSize: 1024, maxSize: pngmsg.MaxDataLen}
	for _, opt := range opts {
		opt(s)
	}
	if s.maxSize <= 0 || s.maxSize > pngmsg.MaxDataLen {
		s.maxSize = pngmsg.MaxDataLen
	}

	if len(msg) == 0 {
		return [][]byte{{}}, nil
	}

	var pieces [][]byte
	spl := hashsplit.NewSplitter(func(piece []byte, _ uint) error {
		for len(piece) > s.maxSize {
			pieces = append(pieces, append([]byte(nil), piece[:s.maxSize]...))
			piece = piece[s.maxSize:]
		}
		if len(piece) > 0 {
			pieces = append(pieces, append([]byte(nil), piece...))
		}
		return nil
	})
	spl.MinSize = s.minSize
	spl.SplitBits = s.bits

	if _, err := spl.Write(msg); err != nil {
		return nil, errors.Wrap(err, "splitting message")
	}
	if err := spl.Close(); err != nil {
		return nil, errors.Wrap(err, "splitting message")
	}
	return pieces, nil
}

// Join reassembles the pieces produced by Split.
func Join(pieces [][]byte) []byte {
	return bytes.Join(pieces, nil)
}
