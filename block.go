package snappy

// Compress returns src encoded as a self-contained Snappy block: a varint
// uncompressed-length prefix followed by the compressed opcode stream. The
// returned slice is freshly allocated and trimmed to its actual length.
func Compress(src []byte) []byte {
	dst := make([]byte, MaxCompressedLength(len(src)))
	n, err := CompressInto(src, 0, len(src), dst, 0)
	if err != nil {
		// CompressInto only fails on programming errors (bad ranges), and
		// the ranges constructed above are always in bounds.
		panic(err)
	}
	return dst[:n]
}

// Uncompress decodes the Snappy block at src[off:off+length], returning a
// freshly allocated slice of exactly the block's declared uncompressed
// length. It fails with Corruption if the block is malformed or the decoded
// length does not match the declared length.
func Uncompress(src []byte, off, length int) ([]byte, error) {
	if off < 0 || length < 0 || off+length > len(src) {
		return nil, invalidArgf("source range [%d:%d+%d] out of bounds (len %d)", off, off, length, len(src))
	}
	u, err := GetUncompressedLength(src, off)
	if err != nil {
		return nil, err
	}
	dst := make([]byte, u)
	n, err := UncompressInto(src, off, length, dst, 0, len(dst))
	if err != nil {
		return nil, err
	}
	if n != len(dst) {
		return nil, corruptf(off, "decoded length %d does not match declared length %d", n, len(dst))
	}
	return dst, nil
}
