// Package legacy implements the legacy Snappy stream format predating
// x-snappy-framed: a 7-byte "snappy\0" stream header, 7-byte per-chunk
// headers carrying the checksum directly (rather than in the payload), and
// a smaller maximum block size. The stream header bytes, repeated anywhere
// in the stream, act as a zero-length resynchronization marker.
//
// It is a thin Format adapter over internal/streamcore, which owns the
// actual buffering, chunking, and checksum-verification state machine
// shared with package framed.
package legacy

import (
	"bytes"
	"io"

	"github.com/snappyframed/snappy/bufferpool"
	"github.com/snappyframed/snappy/internal/streamcore"
)

// MediaType is the media type historically associated with this stream
// format.
const MediaType = "application/x-snappy"

const (
	// MaxBlockSize is the largest number of uncompressed bytes a single
	// chunk may carry.
	MaxBlockSize = 32768

	// DefaultMinRatio is the writer's default compressed/raw size
	// threshold.
	DefaultMinRatio = 7.0 / 8.0

	headerSize = 7

	flagRaw        = 0x00
	flagCompressed = 0x01
)

var streamHeaderBytes = []byte("snappy\x00")

type format struct{}

func (format) StreamHeader() []byte     { return streamHeaderBytes }
func (format) HeaderSize() int          { return headerSize }
func (format) MaxBlockSize() int        { return MaxBlockSize }
func (format) DefaultMinRatio() float64 { return DefaultMinRatio }
func (format) FlagCompressed() byte     { return flagCompressed }
func (format) FlagRaw() byte            { return flagRaw }
func (format) PayloadCarriesCRC() bool  { return false }

func (format) EncodeHeader(hdr []byte, flag byte, payloadLen int, crc uint32) {
	hdr[0] = flag
	hdr[1] = byte(payloadLen >> 8)
	hdr[2] = byte(payloadLen)
	hdr[3] = byte(crc >> 24)
	hdr[4] = byte(crc >> 16)
	hdr[5] = byte(crc >> 8)
	hdr[6] = byte(crc)
}

func (format) DecodeHeader(hdr []byte) (streamcore.ChunkKind, byte, uint32, error) {
	if bytes.Equal(hdr, streamHeaderBytes) {
		return streamcore.ChunkStreamIdentifier, 0, 0, nil
	}

	flag := hdr[0]
	length := uint32(hdr[1])<<8 | uint32(hdr[2])

	switch flag {
	case flagRaw, flagCompressed:
		return streamcore.ChunkData, flag, length, nil
	default:
		return 0, 0, 0, &streamcore.UnsupportedChunk{Flag: flag}
	}
}

func (format) HeaderCRC(hdr []byte) uint32 {
	return uint32(hdr[3])<<24 | uint32(hdr[4])<<16 | uint32(hdr[5])<<8 | uint32(hdr[6])
}

func (format) CheckStreamIdentifierPayload(payload []byte) error {
	// The legacy marker carries no payload beyond the 7 literal header
	// bytes already matched by DecodeHeader.
	return nil
}

var theFormat format

// Writer compresses and frames data written to it as legacy Snappy stream
// chunks written to an underlying io.Writer.
type Writer struct {
	core *streamcore.Writer
}

// WriterOptions configures a Writer beyond its defaults.
type WriterOptions struct {
	BlockSize int
	MinRatio  float64
	Pool      bufferpool.Pool
}

// NewWriter returns a Writer that writes legacy-format chunks to w, writing
// the stream header immediately.
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

func (w *Writer) Write(p []byte) (int, error)         { return w.core.Write(p) }
func (w *Writer) ReadFrom(r io.Reader) (int64, error) { return w.core.ReadFrom(r) }
func (w *Writer) Flush() error                        { return w.core.Flush() }
func (w *Writer) Close() error                        { return w.core.Close() }
func (w *Writer) Reset(sink io.Writer) error           { return w.core.Reset(sink) }

// Reader decodes a legacy Snappy stream read from an underlying io.Reader.
type Reader struct {
	core *streamcore.Reader
}

// ReaderOptions configures a Reader beyond its defaults.
type ReaderOptions struct {
	VerifyChecksums bool
	MaxFrameSize    int
	Pool            bufferpool.Pool
}

// NewReader returns a Reader that reads legacy-format chunks from r,
// validating the stream header immediately and verifying chunk checksums.
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

func (r *Reader) Read(p []byte) (int, error)          { return r.core.Read(p) }
func (r *Reader) WriteTo(w io.Writer) (int64, error)  { return r.core.WriteTo(w) }
func (r *Reader) Close() error                        { return r.core.Close() }
func (r *Reader) Reset(source io.Reader) error        { return r.core.Reset(source) }
