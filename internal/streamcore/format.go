// Package streamcore implements the shared skeleton behind both stream
// formats this module supports (x-snappy-framed and the legacy Snappy
// stream format): buffered block segmentation on write, and chunk-header
// parsing / dispatch / checksum verification on read. Each format supplies a
// small Format implementation carrying its header shape, flag values, and
// block-size limit; everything else (buffering, growth, the read/write
// plumbing) lives here once.
//
// This mirrors the "Polymorphism over stream formats" design note: a shared
// state machine plus a couple of pure, format-specific functions, instead of
// a deep inheritance chain.
package streamcore

// ChunkKind classifies a parsed chunk header for the generic reader loop.
type ChunkKind int

const (
	// ChunkData carries compressed or raw user bytes (distinguished by the
	// flag returned alongside it).
	ChunkData ChunkKind = iota
	// ChunkStreamIdentifier is a (possibly repeated) zero-effect
	// resynchronization marker; its declared payload, if any, has already
	// been validated by the Format and is discarded.
	ChunkStreamIdentifier
	// ChunkSkippable must be silently discarded without inspection.
	ChunkSkippable
)

// Format captures everything that differs between the two stream formats
// this module implements. All sizes are in bytes; all multi-byte integers
// are as they appear on the wire (the Format implementation owns byte order).
type Format interface {
	// StreamHeader returns the literal bytes every stream must begin with.
	StreamHeader() []byte

	// HeaderSize returns the fixed size of a per-chunk header.
	HeaderSize() int

	// MaxBlockSize returns the largest number of uncompressed bytes a single
	// block may carry.
	MaxBlockSize() int

	// DefaultMinRatio returns the writer's default compressed/raw ratio
	// threshold: a block is emitted compressed only if
	// len(compressed)/len(raw) <= DefaultMinRatio().
	DefaultMinRatio() float64

	FlagCompressed() byte
	FlagRaw() byte

	// PayloadCarriesCRC reports whether a data chunk's checksum is the first
	// 4 bytes of its payload (true, x-snappy-framed) or lives entirely in
	// the chunk header (false, legacy).
	PayloadCarriesCRC() bool

	// EncodeHeader writes HeaderSize() bytes into hdr for a data chunk
	// carrying payloadLen bytes on the wire (including a payload-embedded
	// CRC, which the writer writes separately after the header) under the
	// given flag. If PayloadCarriesCRC is false, crc is also encoded into
	// the header.
	EncodeHeader(hdr []byte, flag byte, payloadLen int, crc uint32)

	// DecodeHeader parses a just-read HeaderSize()-byte buffer. For
	// ChunkData it returns the flag and the number of payload bytes that
	// follow on the wire (including any payload-embedded CRC). For
	// ChunkStreamIdentifier and ChunkSkippable it returns the number of
	// payload bytes that follow (0 for legacy's embedded resync marker).
	// An error return is typically *InvalidStreamHeader or
	// *InvalidChunkLength; *UnsupportedChunk is also valid for formats with
	// reserved unskippable ranges.
	DecodeHeader(hdr []byte) (kind ChunkKind, flag byte, length uint32, err error)

	// HeaderCRC extracts the checksum from a header for which
	// PayloadCarriesCRC is false.
	HeaderCRC(hdr []byte) uint32

	// CheckStreamIdentifierPayload validates a stream-identifier chunk's
	// payload bytes (after DecodeHeader has already validated its length).
	CheckStreamIdentifierPayload(payload []byte) error
}
