package pngmsg

import "hash/crc32"

// Checksum computes the CRC-32 (IEEE) of b,
// the checksum used for chunk integrity.
func Checksum(b []byte) uint32 {
	return crc32.ChecksumIEEE(b)
}

func chunkCRC(tag Tag, data []byte) uint32 {
	crc := crc32.Update(0, crc32.IEEETable, tag[:])
	return crc32.Update(crc, crc32.IEEETable, data)
}
