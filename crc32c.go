package snappy

import "hash/crc32"

// crcTable is the Castagnoli CRC32 table (polynomial 0x1EDC6F41) used by both
// framed stream formats.
var crcTable = crc32.MakeTable(crc32.Castagnoli)

// CRC32C returns the Castagnoli CRC32 checksum of buf.
func CRC32C(buf []byte) uint32 {
	return crc32.Checksum(buf, crcTable)
}

// MaskCRC32C applies the Snappy mask transform to a raw CRC32C value so that
// the checksum of a checksum can never equal the checksum of the original
// bytes.
func MaskCRC32C(crc uint32) uint32 {
	return ((crc >> 15) | (crc << 17)) + 0xa282ead8
}

// UnmaskCRC32C reverses MaskCRC32C.
func UnmaskCRC32C(masked uint32) uint32 {
	x := masked - 0xa282ead8
	return (x >> 17) | (x << 15)
}

// MaskedCRC32C returns the masked Castagnoli CRC32 checksum of buf, the form
// stored on the wire by both the framed and legacy stream formats.
func MaskedCRC32C(buf []byte) uint32 {
	return MaskCRC32C(CRC32C(buf))
}
