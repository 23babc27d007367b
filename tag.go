package pngmsg

import "github.com/pkg/errors"

// Tag is a chunk's four-byte type code.
// Each byte is an ASCII letter,
// and the case of each letter is a flag
// (see IsCritical, IsPublic, IsReservedBitValid, and IsSafeToCopy).
type Tag [4]byte

// caseBit is clear in an uppercase ASCII letter and set in a lowercase one.
const caseBit = 0x20

// ParseTag produces a Tag from four raw bytes.
// It fails with ErrInvalidTagBytes if any byte is not an ASCII letter.
func ParseTag(b [4]byte) (Tag, error) {
	for i, c := range b {
		if !isLetter(c) {
			return Tag{}, errors.Wrapf(ErrInvalidTagBytes, "byte %d is 0x%02x", i, c)
		}
	}
	return Tag(b), nil
}

// TagFromString produces a Tag from its text form.
func TagFromString(s string) (Tag, error) {
	if len(s) != 4 {
		return Tag{}, errors.Wrapf(ErrInvalidTagLength, "%q has length %d", s, len(s))
	}
	var b [4]byte
	copy(b[:], s)
	return ParseTag(b)
}

// Bytes returns the tag's raw bytes.
func (t Tag) Bytes() [4]byte { return t }

func (t Tag) String() string { return string(t[:]) }

// IsCritical tells whether the chunk must be understood by any decoder.
func (t Tag) IsCritical() bool { return isUpper(t[0]) }

// IsPublic tells whether the tag belongs to the registered public vocabulary
// (as opposed to private use).
func (t Tag) IsPublic() bool { return isUpper(t[1]) }

// IsReservedBitValid tells whether the reserved (third) letter is uppercase,
// as the format requires.
func (t Tag) IsReservedBitValid() bool { return isUpper(t[2]) }

// IsSafeToCopy tells whether editors that don't recognize the chunk
// may copy it into a modified file.
func (t Tag) IsSafeToCopy() bool { return !isUpper(t[3]) }

// IsValid tells whether t conforms to the format.
// Letters-only is guaranteed by construction,
// so this is the reserved-bit check.
func (t Tag) IsValid() bool { return t.IsReservedBitValid() }

func isLetter(c byte) bool {
	c &^= caseBit
	return 'A' <= c && c <= 'Z'
}

func isUpper(c byte) bool {
	return c&caseBit == 0
}
