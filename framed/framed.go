// Package framed implements the x-snappy-framed stream format: a
// self-delimiting sequence of chunks, each either a compressed or raw block
// of user data, a stream-identifier marker, or a skippable chunk, preceded
// by a CRC32C checksum of the decoded bytes.
//
// It is a thin Format adapter over internal/streamcore, which owns the
// actual buffering, chunking, and checksum-verification state machine
// shared with package legacy.
package framed

import (
	"bytes"
	"io"

	"github.com/snappyframed/snappy/bufferpool"
	"github.com/snappyframed/snappy/internal/streamcore"
)

// MediaType is the IANA media type associated with this stream format.
const MediaType = "application/x-snappy-framed"

const (
	// MaxBlockSize is the largest number of uncompressed bytes a single
	// chunk may carry.
	MaxBlockSize = 65536

	// DefaultMinRatio is the writer's default compressed/raw size
	// threshold: a block is emitted compressed only if its compressed size
	// is at most this fraction of its uncompressed size.
	DefaultMinRatio = 0.85

	headerSize = 4

	flagCompressed       = 0x00
	flagRaw              = 0x01
	flagStreamIdentifier = 0xff
	minUnskippableFlag   = 0x02
	maxUnskippableFlag   = 0x7f
	minSkippableFlag     = 0x80
	maxSkippableFlag     = 0xfe
)

var streamIdentifierPayload = []byte("sNaPpY")
var streamHeaderBytes = append([]byte{flagStreamIdentifier, 6, 0, 0}, streamIdentifierPayload...)

type format struct{}

func (format) StreamHeader() []byte { return streamHeaderBytes }
func (format) HeaderSize() int      { return headerSize }
func (format) MaxBlockSize() int    { return MaxBlockSize }
func (format) DefaultMinRatio() float64 { return DefaultMinRatio }
func (format) FlagCompressed() byte { return flagCompressed }
func (format) FlagRaw() byte        { return flagRaw }
func (format) PayloadCarriesCRC() bool { return true }

func (format) EncodeHeader(hdr []byte, flag byte, payloadLen int, _ uint32) {
	hdr[0] = flag
	hdr[1] = byte(payloadLen)
	hdr[2] = byte(payloadLen >> 8)
	hdr[3] = byte(payloadLen >> 16)
}

func (format) DecodeHeader(hdr []byte) (streamcore.ChunkKind, byte, uint32, error) {
	flag := hdr[0]
	length := uint32(hdr[1]) | uint32(hdr[2])<<8 | uint32(hdr[3])<<16

	switch {
	case flag == flagStreamIdentifier:
		if length != uint32(len(streamIdentifierPayload)) {
			return 0, 0, 0, &streamcore.InvalidChunkLength{Flag: flag, Length: length}
		}
		return streamcore.ChunkStreamIdentifier, flag, length, nil
	case flag == flagCompressed || flag == flagRaw:
		// A data chunk's payload is a 4-byte CRC32C plus at least one byte
		// of (compressed or raw) data; a length of 4 or less can never hold
		// a real block.
		if length < 5 {
			return 0, 0, 0, &streamcore.InvalidChunkLength{Flag: flag, Length: length}
		}
		return streamcore.ChunkData, flag, length, nil
	case flag >= minSkippableFlag && flag <= maxSkippableFlag:
		return streamcore.ChunkSkippable, flag, length, nil
	case flag >= minUnskippableFlag && flag <= maxUnskippableFlag:
		return 0, 0, 0, &streamcore.UnsupportedChunk{Flag: flag}
	default:
		return 0, 0, 0, &streamcore.UnsupportedChunk{Flag: flag}
	}
}

func (format) HeaderCRC(hdr []byte) uint32 {
	// x-snappy-framed carries its checksum in the payload, never the header.
	panic("framed: HeaderCRC called on a format with a payload-embedded CRC")
}

func (format) CheckStreamIdentifierPayload(payload []byte) error {
	if !bytes.Equal(payload, streamIdentifierPayload) {
		return &streamcore.InvalidStreamHeader{Message: "stream identifier payload does not match \"sNaPpY\""}
	}
	return nil
}

var theFormat format

// Writer compresses and frames data written to it as x-snappy-framed chunks
// written to an underlying io.Writer.
type Writer struct {
	core *streamcore.Writer
}

// WriterOptions configures a Writer beyond its defaults.
type WriterOptions struct {
	// BlockSize is the uncompressed size threshold above which a chunk is
	// emitted. 0 selects MaxBlockSize.
	BlockSize int
	// MinRatio overrides DefaultMinRatio. 0 selects DefaultMinRatio.
	MinRatio float64
	// Pool supplies the Writer's scratch buffers. nil selects
	// bufferpool.Default.
	Pool bufferpool.Pool
}

// NewWriter returns a Writer that writes framed chunks to w, writing the
// stream header immediately.
func NewWriter(w io.Writer) (*Writer, error) {
	return NewWriterOptions(w, WriterOptions{})
}

// NewWriterOptions is like NewWriter but accepts WriterOptions.
func NewWriterOptions(w io.Writer, opts WriterOptions) (*Writer, error) {
	core, err := streamcore.NewWriter(theFormat, w, opts.BlockSize, opts.MinRatio, opts.Pool)
	if err != nil {
		return nil, err
	}
	return &Writer{core: core}, nil
}

// Write implements io.Writer.
func (w *Writer) Write(p []byte) (int, error) { return w.core.Write(p) }

// ReadFrom implements io.ReaderFrom.
func (w *Writer) ReadFrom(r io.Reader) (int64, error) { return w.core.ReadFrom(r) }

// Flush forces emission of any buffered block.
func (w *Writer) Flush() error { return w.core.Flush() }

// Close flushes the Writer and releases its internal buffers. It does not
// close the underlying io.Writer.
func (w *Writer) Close() error { return w.core.Close() }

// Reset discards the Writer's state and redirects it at sink, writing a new
// stream header immediately. Pass nil to release buffers without writing,
// e.g. before returning the Writer to a sync.Pool.
func (w *Writer) Reset(sink io.Writer) error { return w.core.Reset(sink) }

// Reader decodes an x-snappy-framed stream read from an underlying
// io.Reader.
type Reader struct {
	core *streamcore.Reader
}

// ReaderOptions configures a Reader beyond its defaults.
type ReaderOptions struct {
	// VerifyChecksums disables CRC32C verification when false. Default true
	// via NewReader.
	VerifyChecksums bool
	// MaxFrameSize caps the payload length a data chunk header may declare;
	// skippable and stream-identifier chunks are not checked against it. 0
	// leaves it uncapped.
	MaxFrameSize int
	// Pool supplies the Reader's scratch buffers. nil selects
	// bufferpool.Default.
	Pool bufferpool.Pool
}

// NewReader returns a Reader that reads framed chunks from r, validating the
// stream header immediately and verifying chunk checksums.
func NewReader(r io.Reader) (*Reader, error) {
	return NewReaderOptions(r, ReaderOptions{VerifyChecksums: true})
}

// NewReaderOptions is like NewReader but accepts ReaderOptions.
func NewReaderOptions(r io.Reader, opts ReaderOptions) (*Reader, error) {
	core, err := streamcore.NewReader(theFormat, r, opts.VerifyChecksums, opts.MaxFrameSize, opts.Pool)
	if err != nil {
		return nil, err
	}
	return &Reader{core: core}, nil
}

// Read implements io.Reader.
func (r *Reader) Read(p []byte) (int, error) { return r.core.Read(p) }

// WriteTo implements io.WriterTo.
func (r *Reader) WriteTo(w io.Writer) (int64, error) { return r.core.WriteTo(w) }

// Close releases the Reader's internal buffers and closes the underlying
// io.Reader if it implements io.Closer.
func (r *Reader) Close() error { return r.core.Close() }

// Reset discards the Reader's state and redirects it at source, validating
// its stream header immediately. Pass nil to release buffers without
// reading, e.g. before returning the Reader to a sync.Pool.
func (r *Reader) Reset(source io.Reader) error { return r.core.Reset(source) }
