package snappy

import "encoding/binary"

// maxVarintLen is the largest number of bytes a 32-bit length prefix can
// occupy: ceil(32/7) = 5.
const maxVarintLen = 5

// putUvarint writes the varint encoding of u into dst and returns the number
// of bytes written (1..5). dst must have length >= maxVarintLen.
func putUvarint(dst []byte, u uint32) int {
	return binary.PutUvarint(dst, uint64(u))
}

// getUvarint decodes a little-endian base-128 varint from src[off:] giving
// the uncompressed length. It fails with Corruption if the varint would not
// fit in 32 bits, is truncated, or its fifth byte carries bits above 0x0f in
// its high nibble (per the Snappy block format's 32-bit length ceiling).
func getUvarint(src []byte, off int) (value uint32, n int, err error) {
	v, n := binary.Uvarint(src[off:])
	if n == 0 {
		return 0, 0, corruptf(off, "truncated varint length prefix")
	}
	if n < 0 {
		// binary.Uvarint returns n < 0 when the value overflows 64 bits.
		return 0, 0, corruptf(off-n, "varint length prefix overflows 64 bits")
	}
	if n > maxVarintLen || v > 0xffffffff {
		return 0, 0, corruptf(off+maxVarintLen-1, "varint length prefix exceeds 32 bits")
	}
	return uint32(v), n, nil
}
