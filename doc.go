// Package pngmsg reads and writes PNG files at the chunk level,
// for hiding messages in them.
//
// A PNG file is an eight-byte signature
// followed by a sequence of _chunks_.
// Each chunk is a four-byte big-endian data length,
// a four-letter tag,
// the data,
// and a CRC-32 of the tag and data.
// The case of each letter in a tag is a flag:
// whether the chunk is critical,
// whether its tag is public,
// whether the reserved bit is set properly,
// and whether the chunk is safe to copy.
//
// Most chunks hold image data and metadata,
// but a decoder skips ancillary chunks it does not recognize.
// So a chunk with a private, ancillary tag like "ruSt"
// can carry an arbitrary message
// without affecting how the image looks.
//
// This package never interprets chunk data.
// It verifies every chunk's CRC when parsing
// and computes it when creating a chunk,
// and it preserves the order of chunks it does not create
// so that a parsed file serializes back to the same bytes.
//
// The subpackages supply the rest:
// storage for PNG files (store),
// transformations such as compression and encryption for messages (transform),
// splitting of long messages across chunks (split),
// the encode/decode/remove/print operations themselves (stash),
// and an HTTP interface (server).
package pngmsg
