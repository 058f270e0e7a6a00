package streamcore

import (
	"io"

	"github.com/snappyframed/snappy"
	"github.com/snappyframed/snappy/bufferpool"
)

// Reader parses chunks from a stream written by the matching Writer,
// decompressing data chunks, verifying their checksum, skipping skippable
// chunks, and re-synchronizing on repeated stream-identifier chunks
// anywhere in the stream.
type Reader struct {
	format       Format
	pool         bufferpool.Pool
	verifyCRC    bool
	maxFrameSize int

	r   io.Reader
	hdr []byte

	payload []byte
	decoded []byte
	cur     []byte

	closed bool
	err    error
}

// NewReader constructs a Reader around source. If source is non-nil its
// stream header is read and validated immediately, returning
// *InvalidStreamHeader or *UnexpectedEOF on failure. Passing a nil source
// constructs an unattached Reader suitable as a sync.Pool.New value; call
// Reset before using it.
//
// maxFrameSize caps the payload length a single data chunk header may
// declare (skippable and stream-identifier chunks are not checked against
// it); 0 leaves it uncapped.
func NewReader(format Format, source io.Reader, verifyCRC bool, maxFrameSize int, pool bufferpool.Pool) (*Reader, error) {
	if pool == nil {
		pool = bufferpool.Default
	}
	rd := &Reader{
		format:       format,
		pool:         pool,
		verifyCRC:    verifyCRC,
		maxFrameSize: maxFrameSize,
		hdr:          make([]byte, format.HeaderSize()),
	}
	if err := rd.Reset(source); err != nil {
		return nil, err
	}
	return rd, nil
}

// Reset discards the Reader's buffered state and directs subsequent reads
// at source, validating its stream header immediately. Passing nil releases
// the Reader's buffers back to its pool without reading anything.
func (rd *Reader) Reset(source io.Reader) error {
	rd.r = source
	rd.err = nil
	rd.closed = false
	rd.cur = nil
	if source == nil {
		if rd.payload != nil {
			rd.pool.ReleaseInput(rd.payload[:cap(rd.payload)])
			rd.payload = nil
		}
		if rd.decoded != nil {
			rd.pool.ReleaseDecode(rd.decoded[:cap(rd.decoded)])
			rd.decoded = nil
		}
		return nil
	}
	kind, _, length, err := rd.readHeader()
	if err != nil {
		if err == io.EOF {
			return &UnexpectedEOF{}
		}
		return &InvalidStreamHeader{Message: "stream does not begin with expected magic"}
	}
	if kind != ChunkStreamIdentifier {
		return &InvalidStreamHeader{Message: "stream does not begin with expected magic"}
	}
	if err := rd.consumeStreamIdentifier(length); err != nil {
		return &InvalidStreamHeader{Message: "stream does not begin with expected magic"}
	}
	return nil
}

// Read implements io.Reader.
func (rd *Reader) Read(p []byte) (int, error) {
	if rd.err != nil {
		return 0, rd.err
	}
	if rd.r == nil {
		return 0, &ErrClosed{}
	}
	for len(rd.cur) == 0 {
		if err := rd.nextChunk(); err != nil {
			rd.err = err
			return 0, err
		}
	}
	n := copy(p, rd.cur)
	rd.cur = rd.cur[n:]
	return n, nil
}

// WriteTo implements io.WriterTo, delivering decoded bytes directly without
// an intermediate caller-provided buffer.
func (rd *Reader) WriteTo(w io.Writer) (int64, error) {
	if rd.err != nil {
		if rd.err == io.EOF {
			return 0, nil
		}
		return 0, rd.err
	}
	if rd.r == nil {
		return 0, &ErrClosed{}
	}
	var total int64
	for {
		for len(rd.cur) > 0 {
			n, err := w.Write(rd.cur)
			total += int64(n)
			rd.cur = rd.cur[n:]
			if err != nil {
				rd.err = err
				return total, err
			}
		}
		if err := rd.nextChunk(); err != nil {
			if err == io.EOF {
				rd.err = io.EOF
				return total, nil
			}
			rd.err = err
			return total, err
		}
	}
}

// Close releases the Reader's scratch buffers and closes the underlying
// source if it implements io.Closer. A second call is a no-op.
func (rd *Reader) Close() error {
	if rd.closed {
		return nil
	}
	rd.closed = true
	rd.err = io.EOF
	if rd.payload != nil {
		rd.pool.ReleaseInput(rd.payload[:cap(rd.payload)])
		rd.payload = nil
	}
	if rd.decoded != nil {
		rd.pool.ReleaseDecode(rd.decoded[:cap(rd.decoded)])
		rd.decoded = nil
	}
	rd.cur = nil
	if c, ok := rd.r.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// readHeader reads one HeaderSize()-byte chunk header and classifies it.
// A clean, zero-byte EOF is returned as io.EOF; any other short read is
// *UnexpectedEOF.
func (rd *Reader) readHeader() (ChunkKind, byte, uint32, error) {
	n, err := io.ReadFull(rd.r, rd.hdr)
	if err != nil {
		if err == io.EOF && n == 0 {
			return 0, 0, 0, io.EOF
		}
		return 0, 0, 0, &UnexpectedEOF{}
	}
	kind, flag, length, err := rd.format.DecodeHeader(rd.hdr)
	if err != nil {
		return 0, 0, 0, err
	}
	if rd.maxFrameSize > 0 && kind == ChunkData && int(length) > rd.maxFrameSize {
		return 0, 0, 0, &InvalidChunkLength{Flag: flag, Length: length}
	}
	return kind, flag, length, nil
}

// consumeStreamIdentifier reads and validates a stream-identifier chunk's
// payload, if it has one.
func (rd *Reader) consumeStreamIdentifier(length uint32) error {
	if length == 0 {
		return rd.format.CheckStreamIdentifierPayload(nil)
	}
	payload := rd.ensurePayload(int(length))
	if _, err := io.ReadFull(rd.r, payload); err != nil {
		return &UnexpectedEOF{}
	}
	return rd.format.CheckStreamIdentifierPayload(payload)
}

// nextChunk advances past any stream-identifier and skippable chunks,
// leaving rd.cur holding the decoded bytes of the next data chunk. It
// returns io.EOF once the source is cleanly exhausted.
func (rd *Reader) nextChunk() error {
	for {
		kind, flag, length, err := rd.readHeader()
		if err != nil {
			return err
		}
		switch kind {
		case ChunkStreamIdentifier:
			if err := rd.consumeStreamIdentifier(length); err != nil {
				return err
			}
		case ChunkSkippable:
			if err := rd.discard(int(length)); err != nil {
				return err
			}
		default:
			return rd.decodeDataChunk(flag, length)
		}
	}
}

func (rd *Reader) decodeDataChunk(flag byte, length uint32) error {
	buf := rd.ensurePayload(int(length))
	if _, err := io.ReadFull(rd.r, buf); err != nil {
		return &UnexpectedEOF{}
	}

	var crc uint32
	var body []byte
	if rd.format.PayloadCarriesCRC() {
		if len(buf) < 5 {
			return &InvalidChunkLength{Flag: flag, Length: length}
		}
		crc = uint32(buf[0]) | uint32(buf[1])<<8 | uint32(buf[2])<<16 | uint32(buf[3])<<24
		body = buf[4:]
	} else {
		crc = rd.format.HeaderCRC(rd.hdr)
		body = buf
	}

	var dec []byte
	switch flag {
	case rd.format.FlagCompressed():
		u, err := snappy.GetUncompressedLength(body, 0)
		if err != nil {
			return err
		}
		if int(u) > rd.format.MaxBlockSize() {
			return &InvalidChunkLength{Flag: flag, Length: length}
		}
		rd.decoded = rd.ensureDecoded(int(u))
		n, err := snappy.UncompressInto(body, 0, len(body), rd.decoded, 0, int(u))
		if err != nil {
			return err
		}
		dec = rd.decoded[:n]
	case rd.format.FlagRaw():
		if len(body) > rd.format.MaxBlockSize() {
			return &InvalidChunkLength{Flag: flag, Length: length}
		}
		dec = body
	default:
		return &UnsupportedChunk{Flag: flag}
	}

	if rd.verifyCRC {
		if actual := snappy.MaskedCRC32C(dec); actual != crc {
			return &CorruptChecksum{Expected: crc, Actual: actual}
		}
	}
	rd.cur = dec
	return nil
}

func (rd *Reader) discard(n int) error {
	if n == 0 {
		return nil
	}
	if seeker, ok := rd.r.(io.Seeker); ok {
		if _, err := seeker.Seek(int64(n), io.SeekCurrent); err == nil {
			return nil
		}
	}
	_, err := io.CopyN(io.Discard, rd.r, int64(n))
	if err != nil {
		return &UnexpectedEOF{}
	}
	return nil
}

func (rd *Reader) ensurePayload(size int) []byte {
	if cap(rd.payload) < size {
		if rd.payload != nil {
			rd.pool.ReleaseInput(rd.payload[:cap(rd.payload)])
		}
		rd.payload = rd.pool.AllocInput(size)
	}
	return rd.payload[:size]
}

func (rd *Reader) ensureDecoded(size int) []byte {
	if cap(rd.decoded) < size {
		if rd.decoded != nil {
			rd.pool.ReleaseDecode(rd.decoded[:cap(rd.decoded)])
		}
		rd.decoded = rd.pool.AllocDecode(size)
	}
	return rd.decoded[:size]
}
