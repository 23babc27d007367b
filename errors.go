package pngmsg

import (
	stderrs "errors"
	"fmt"
)

var (
	// ErrInvalidTagBytes is the error for a tag containing a byte that is not an ASCII letter.
	ErrInvalidTagBytes = stderrs.New("invalid tag bytes")

	// ErrInvalidTagLength is the error for tag text that is not exactly four bytes long.
	ErrInvalidTagLength = stderrs.New("invalid tag length")

	// ErrTruncated is the error for a buffer or stream shorter than its length fields require,
	// including a chunk length beyond MaxDataLen, which no buffer can satisfy.
	ErrTruncated = stderrs.New("truncated")

	// ErrTrailingData is the error for bytes left over after the single chunk ParseChunk expects.
	ErrTrailingData = stderrs.New("trailing data")

	// ErrBadSignature is the error for input that does not begin with Signature.
	ErrBadSignature = stderrs.New("bad PNG signature")

	// ErrChecksumMismatch is the error for a chunk whose stored CRC disagrees with its content.
	// The concrete error is a *ChecksumError.
	ErrChecksumMismatch = stderrs.New("checksum mismatch")

	// ErrNotFound is the error for a lookup of a tag that no chunk has.
	ErrNotFound = stderrs.New("not found")

	// ErrInvalidUTF8 is the error for chunk data that is not valid UTF-8 text.
	ErrInvalidUTF8 = stderrs.New("invalid UTF-8")
)

// ChecksumError reports a chunk whose stored CRC does not match the CRC computed from its tag and data.
type ChecksumError struct {
	Tag            Tag
	Stored, Actual uint32
}

func (e *ChecksumError) Error() string {
	return fmt.Sprintf("%s: chunk %s has CRC %08x, computed %08x", ErrChecksumMismatch, e.Tag, e.Stored, e.Actual)
}

// Is makes errors.Is(err, ErrChecksumMismatch) true for a *ChecksumError.
func (e *ChecksumError) Is(target error) bool {
	return target == ErrChecksumMismatch
}
