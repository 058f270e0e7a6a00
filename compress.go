package snappy

import "github.com/snappyframed/snappy/internal/snappyio"

// kBlockSize is the maximum number of uncompressed bytes compressed
// independently against a single hash table. Larger inputs are split into
// consecutive blocks, each compressed as if the other blocks did not exist.
const kBlockSize = 32768

// inputMargin is the number of extra bytes kept past sLimit so emitLiteral's
// fast path never has to bounds-check its copy.
const inputMargin = 16 - 1

// minNonLiteralBlockSize is the smallest block that can contain a copy
// opcode: at least one literal byte, one copy, and inputMargin bytes of
// lookahead.
const minNonLiteralBlockSize = 1 + 1 + inputMargin

const (
	tagLiteral = 0x00
	tagCopy1   = 0x01
	tagCopy2   = 0x02
	tagCopy4   = 0x03
)

// CompressionContext is a reusable hash-table scratch buffer for Compress.
// It is caller-owned: construct one, reuse it across calls, and do not read
// its contents as meaningful between calls (Compress treats it as scratch,
// not as a dictionary).
type CompressionContext struct {
	table []uint16
}

// NewCompressionContext returns an empty CompressionContext ready for use.
func NewCompressionContext() *CompressionContext {
	return &CompressionContext{}
}

// hashTableSize returns the smallest power of two in [256, 16384] that is
// greater than or equal to n.
func hashTableSize(n int) int {
	const (
		minTableSize = 1 << 8
		maxTableSize = 1 << 14
	)
	size := minTableSize
	for size < maxTableSize && size < n {
		size <<= 1
	}
	return size
}

func (c *CompressionContext) tableFor(blockLen int) []uint16 {
	size := hashTableSize(blockLen)
	if cap(c.table) < size {
		c.table = make([]uint16, size)
	} else {
		c.table = c.table[:size]
		for i := range c.table {
			c.table[i] = 0
		}
	}
	return c.table
}

// MaxCompressedLength returns a safe upper bound on the number of bytes
// Compress can write for an input of length n. It returns a negative value
// if n is too large to be representable.
func MaxCompressedLength(n int) int {
	if n < 0 {
		return -1
	}
	u := uint64(n)
	if u > 0xffffffff {
		return -1
	}
	u = 32 + u + u/6
	if u > 0xffffffff {
		return -1
	}
	return int(u)
}

// CompressInto compresses src[srcOff:srcOff+srcLen] into dst starting at
// dstOff, using a fresh CompressionContext, and returns the number of bytes
// written.
func CompressInto(src []byte, srcOff, srcLen int, dst []byte, dstOff int) (int, error) {
	return CompressCtx(src, srcOff, srcLen, dst, dstOff, len(dst)-dstOff, NewCompressionContext())
}

// CompressCtx is the fully explicit form of Compress: it takes an explicit
// destination capacity and a caller-owned scratch hash table, and never
// allocates on the hot path (the hash table grows only if ctx is reused
// across larger and larger inputs).
func CompressCtx(src []byte, srcOff, srcLen int, dst []byte, dstOff, dstCapacity int, ctx *CompressionContext) (int, error) {
	if srcOff < 0 || srcLen < 0 || srcOff+srcLen > len(src) {
		return 0, invalidArgf("source range [%d:%d+%d] out of bounds (len %d)", srcOff, srcOff, srcLen, len(src))
	}
	if dstOff < 0 || dstCapacity < 0 || dstOff+dstCapacity > len(dst) {
		return 0, invalidArgf("destination range [%d:%d+%d] out of bounds (len %d)", dstOff, dstOff, dstCapacity, len(dst))
	}
	need := MaxCompressedLength(srcLen)
	if need < 0 || dstCapacity < need {
		return 0, invalidArgf("destination capacity %d smaller than MaxCompressedLength(%d)=%d", dstCapacity, srcLen, need)
	}
	if ctx == nil {
		ctx = NewCompressionContext()
	}

	d := dstOff
	d += putUvarint(dst[d:], uint32(srcLen))

	src = src[srcOff : srcOff+srcLen]
	for len(src) > 0 {
		p := src
		if len(p) > kBlockSize {
			p, src = p[:kBlockSize], p[kBlockSize:]
		} else {
			src = nil
		}
		if len(p) < minNonLiteralBlockSize {
			d += emitLiteral(dst[d:], p)
		} else {
			d += compressBlock(dst[d:], p, ctx)
		}
	}
	return d - dstOff, nil
}

// emitLiteral writes a literal opcode for lit and returns the bytes written.
func emitLiteral(dst, lit []byte) int {
	i, n := 0, uint(len(lit)-1)
	switch {
	case n < 60:
		dst[0] = uint8(n)<<2 | tagLiteral
		i = 1
	case n < 1<<8:
		dst[0] = 60<<2 | tagLiteral
		dst[1] = uint8(n)
		i = 2
	case n < 1<<16:
		dst[0] = 61<<2 | tagLiteral
		dst[1] = uint8(n)
		dst[2] = uint8(n >> 8)
		i = 3
	case n < 1<<24:
		dst[0] = 62<<2 | tagLiteral
		dst[1] = uint8(n)
		dst[2] = uint8(n >> 8)
		dst[3] = uint8(n >> 16)
		i = 4
	default:
		dst[0] = 63<<2 | tagLiteral
		dst[1] = uint8(n)
		dst[2] = uint8(n >> 8)
		dst[3] = uint8(n >> 16)
		dst[4] = uint8(n >> 24)
		i = 5
	}
	return i + copy(dst[i:], lit)
}

// emitCopy writes one or more copy opcodes covering length bytes at offset
// and returns the bytes written. Because compressBlock never matches across
// more than kBlockSize (32768) bytes, offset always fits in copy-1/copy-2;
// the copy-4 form is only ever produced by third-party encoders and is
// handled on the decode side.
func emitCopy(dst []byte, offset, length int) int {
	i := 0
	for length >= 68 {
		dst[i+0] = 63<<2 | tagCopy2
		dst[i+1] = uint8(offset)
		dst[i+2] = uint8(offset >> 8)
		i += 3
		length -= 64
	}
	if length > 64 {
		dst[i+0] = 59<<2 | tagCopy2
		dst[i+1] = uint8(offset)
		dst[i+2] = uint8(offset >> 8)
		i += 3
		length -= 60
	}
	if length >= 12 || offset >= 2048 {
		dst[i+0] = uint8(length-1)<<2 | tagCopy2
		dst[i+1] = uint8(offset)
		dst[i+2] = uint8(offset >> 8)
		return i + 3
	}
	dst[i+0] = uint8(offset>>8)<<5 | uint8(length-4)<<2 | tagCopy1
	dst[i+1] = uint8(offset)
	return i + 2
}

func hash(u, shift uint32) uint32 {
	return (u * 0x1e35a7bd) >> shift
}

// compressBlock encodes a single block (len(src) in
// [minNonLiteralBlockSize, kBlockSize]) using ctx's hash table, which is
// reset (logically, by resizing and zeroing) for this block.
func compressBlock(dst, src []byte, ctx *CompressionContext) (d int) {
	table := ctx.tableFor(len(src))
	tableMask := uint32(len(table) - 1)
	shift := uint32(32)
	for sz := len(table); sz > 1; sz >>= 1 {
		shift--
	}

	sLimit := len(src) - inputMargin
	nextEmit := 0

	s := 1
	nextHash := hash(snappyio.Load32(src, s), shift)

	for {
		skip := 32

		nextS := s
		var candidate int
		for {
			s = nextS
			bytesBetweenHashLookups := skip >> 5
			nextS = s + bytesBetweenHashLookups
			skip += bytesBetweenHashLookups
			if nextS > sLimit {
				goto emitRemainder
			}
			candidate = int(table[nextHash&tableMask])
			table[nextHash&tableMask] = uint16(s)
			nextHash = hash(snappyio.Load32(src, nextS), shift)
			if snappyio.Load32(src, s) == snappyio.Load32(src, candidate) {
				break
			}
		}

		d += emitLiteral(dst[d:], src[nextEmit:s])

		for {
			base := s
			s += 4
			for i := candidate + 4; s < len(src) && src[i] == src[s]; i, s = i+1, s+1 {
			}
			d += emitCopy(dst[d:], base-candidate, s-base)
			nextEmit = s
			if s >= sLimit {
				goto emitRemainder
			}

			x := snappyio.Load64(src, s-1)
			prevHash := hash(uint32(x>>0), shift)
			table[prevHash&tableMask] = uint16(s - 1)
			currHash := hash(uint32(x>>8), shift)
			candidate = int(table[currHash&tableMask])
			table[currHash&tableMask] = uint16(s)
			if uint32(x>>8) != snappyio.Load32(src, candidate) {
				nextHash = hash(uint32(x>>16), shift)
				s++
				break
			}
		}
	}

emitRemainder:
	if nextEmit < len(src) {
		d += emitLiteral(dst[d:], src[nextEmit:])
	}
	return d
}
