// Package snappyio provides the unaligned little-endian word loads used by
// the compressor and decompressor hot loops.
//
// The Snappy match finder and copy-length scanner both benefit from reading
// 4 and 8 byte little-endian words from arbitrary (unaligned) byte offsets.
// Load32/Load64 assemble those words byte-by-byte, which is portable across
// every architecture Go targets and lets the compiler eliminate bounds
// checks on the subsequent indexing (the three-index slice below is the same
// trick golang/snappy's encode.go uses). A build that additionally wanted a
// raw-unaligned-load fast path on strict little-endian architectures would
// add it behind a second file picked by a build tag; this package holds a
// single implementation because no build in the retrieved corpus pairs the
// unsafe fast path with this exact helper shape, and an unverified unsafe
// cast is a worse trade than the bounds-check-eliminated byte assembly here.
package snappyio

// Load32 reads a 4-byte little-endian word from b starting at i.
func Load32(b []byte, i int) uint32 {
	b = b[i : i+4 : len(b)]
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}

// Load64 reads an 8-byte little-endian word from b starting at i.
func Load64(b []byte, i int) uint64 {
	b = b[i : i+8 : len(b)]
	return uint64(b[0]) | uint64(b[1])<<8 | uint64(b[2])<<16 | uint64(b[3])<<24 |
		uint64(b[4])<<32 | uint64(b[5])<<40 | uint64(b[6])<<48 | uint64(b[7])<<56
}
