package streamcore

import (
	"io"

	"github.com/snappyframed/snappy"
	"github.com/snappyframed/snappy/bufferpool"
)

// Writer buffers input up to a block size, compresses each block, and emits
// it as a framed chunk using its Format's header layout. It is the shared
// skeleton behind both the x-snappy-framed and legacy stream writers: per
// spec §4.6, construction writes the stream header immediately, Write
// buffers until a block is full (emitting one chunk per full block), Flush
// forces emission of a partial block, and Close flushes and releases
// internal buffers.
type Writer struct {
	format Format
	pool   bufferpool.Pool

	blockSize int
	minRatio  float64

	w   io.Writer
	buf []byte
	enc []byte
	hdr []byte
	ctx *snappy.CompressionContext

	err       error
	closedErr error
}

// NewWriter constructs a Writer around sink using blockSize and minRatio (0
// for either selects the Format's defaults), acquiring its scratch buffers
// from pool, and writes the stream header to sink immediately.
func NewWriter(format Format, sink io.Writer, blockSize int, minRatio float64, pool bufferpool.Pool) (*Writer, error) {
	if blockSize == 0 {
		blockSize = format.MaxBlockSize()
	}
	if minRatio == 0 {
		minRatio = format.DefaultMinRatio()
	}
	if blockSize < 0 || blockSize > format.MaxBlockSize() {
		return nil, invalidArgf("block size %d out of range (0, %d]", blockSize, format.MaxBlockSize())
	}
	if minRatio <= 0 || minRatio > 1 {
		return nil, invalidArgf("min ratio %v out of range (0, 1]", minRatio)
	}
	if pool == nil {
		pool = bufferpool.Default
	}
	w := &Writer{
		format:    format,
		pool:      pool,
		blockSize: blockSize,
		minRatio:  minRatio,
		hdr:       make([]byte, format.HeaderSize()),
		ctx:       snappy.NewCompressionContext(),
	}
	if err := w.Reset(sink); err != nil {
		return nil, err
	}
	return w, nil
}

// Reset discards the Writer's buffered state, directs subsequent writes at
// sink, and immediately writes sink's stream header. Passing a nil sink
// releases the Writer's buffers back to its pool without writing anything,
// matching the drop-for-pooling pattern a sync.Pool-backed caller uses
// between checkouts; writes then fail with *ErrClosed until the next Reset
// with a non-nil sink.
func (w *Writer) Reset(sink io.Writer) error {
	w.err = nil
	w.closedErr = nil
	w.w = sink
	if sink == nil {
		if w.buf != nil {
			w.pool.ReleaseInput(w.buf[:cap(w.buf)])
		}
		if w.enc != nil {
			w.pool.ReleaseEncode(w.enc[:cap(w.enc)])
		}
		w.buf, w.enc = nil, nil
		w.closedErr = &ErrClosed{}
		return nil
	}
	if w.buf == nil {
		w.buf = w.pool.AllocInput(w.blockSize)
	}
	w.buf = w.buf[:0:w.blockSize]
	maxEnc := snappy.MaxCompressedLength(w.blockSize)
	if cap(w.enc) < maxEnc {
		w.enc = w.pool.AllocEncode(maxEnc)
	}
	_, err := sink.Write(w.format.StreamHeader())
	if err != nil {
		w.err = err
	}
	return err
}

// Write buffers p, emitting one compressed-or-raw chunk each time the
// buffer fills to the block size.
func (w *Writer) Write(p []byte) (int, error) {
	if err := w.checkOpen(); err != nil {
		return 0, err
	}
	total := 0
	for len(p) > 0 {
		n := copy(w.buf[len(w.buf):cap(w.buf)], p)
		w.buf = w.buf[:len(w.buf)+n]
		p = p[n:]
		total += n
		if len(w.buf) == cap(w.buf) {
			if err := w.flushBlock(); err != nil {
				return total, err
			}
		}
	}
	return total, nil
}

// ReadFrom implements io.ReaderFrom, reading directly into the block buffer
// and flushing whenever it fills, mirroring bufio.Writer.ReadFrom.
func (w *Writer) ReadFrom(r io.Reader) (int64, error) {
	if err := w.checkOpen(); err != nil {
		return 0, err
	}
	var total int64
	for {
		if len(w.buf) == cap(w.buf) {
			if err := w.flushBlock(); err != nil {
				return total, err
			}
		}
		n, err := r.Read(w.buf[len(w.buf):cap(w.buf)])
		w.buf = w.buf[:len(w.buf)+n]
		total += int64(n)
		if err != nil {
			if err == io.EOF {
				return total, nil
			}
			w.err = err
			return total, err
		}
	}
}

// Flush emits the currently buffered block, if any. A flush with nothing
// buffered is a no-op.
func (w *Writer) Flush() error {
	if err := w.checkOpen(); err != nil {
		return err
	}
	return w.flushBlock()
}

// Close flushes any buffered block and releases the Writer's scratch
// buffers. It does not close the underlying sink. A second call to Close is
// a no-op and returns nil; writes after Close fail with *ErrClosed.
func (w *Writer) Close() error {
	if w.closedErr != nil {
		return nil
	}
	ferr := w.flushBlock()
	w.pool.ReleaseInput(w.buf[:cap(w.buf)])
	w.pool.ReleaseEncode(w.enc[:cap(w.enc)])
	w.buf, w.enc = nil, nil
	w.closedErr = &ErrClosed{}
	if ferr != nil {
		return ferr
	}
	return nil
}

func (w *Writer) checkOpen() error {
	if w.closedErr != nil {
		return w.closedErr
	}
	if w.err != nil {
		return w.err
	}
	return nil
}

func (w *Writer) flushBlock() error {
	if len(w.buf) == 0 {
		return nil
	}
	data := w.buf
	crc := snappy.MaskedCRC32C(data)
	maxLen := snappy.MaxCompressedLength(len(data))
	if cap(w.enc) < maxLen {
		w.enc = w.pool.AllocEncode(maxLen)
	}
	enc := w.enc[:maxLen]
	n, err := snappy.CompressCtx(data, 0, len(data), enc, 0, maxLen, w.ctx)
	if err != nil {
		w.err = err
		return err
	}

	flag := w.format.FlagCompressed()
	payload := enc[:n]
	if float64(n) > float64(len(data))*w.minRatio {
		flag = w.format.FlagRaw()
		payload = data
	}

	if err := w.emit(flag, payload, crc); err != nil {
		w.err = err
		return err
	}
	w.buf = w.buf[:0]
	return nil
}

func (w *Writer) emit(flag byte, payload []byte, crc uint32) error {
	payloadLen := len(payload)
	if w.format.PayloadCarriesCRC() {
		payloadLen += 4
	}
	w.format.EncodeHeader(w.hdr, flag, payloadLen, crc)
	if _, err := w.w.Write(w.hdr); err != nil {
		return err
	}
	if w.format.PayloadCarriesCRC() {
		var crcBuf [4]byte
		crcBuf[0] = byte(crc)
		crcBuf[1] = byte(crc >> 8)
		crcBuf[2] = byte(crc >> 16)
		crcBuf[3] = byte(crc >> 24)
		if _, err := w.w.Write(crcBuf[:]); err != nil {
			return err
		}
	}
	_, err := w.w.Write(payload)
	return err
}
