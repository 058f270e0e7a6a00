package framed

import (
	"bytes"
	"io"
	"math/rand"
	"testing"

	"github.com/snappyframed/snappy"
	"github.com/snappyframed/snappy/internal/streamcore"
)

func TestRoundTripSmall(t *testing.T) {
	cases := [][]byte{
		nil,
		[]byte("a"),
		[]byte("hello, snappy framed world"),
		bytes.Repeat([]byte("ab"), 1000),
	}
	for _, in := range cases {
		var buf bytes.Buffer
		w, err := NewWriter(&buf)
		if err != nil {
			t.Fatalf("NewWriter: %v", err)
		}
		if _, err := w.Write(in); err != nil {
			t.Fatalf("Write: %v", err)
		}
		if err := w.Close(); err != nil {
			t.Fatalf("Close: %v", err)
		}

		r, err := NewReader(&buf)
		if err != nil {
			t.Fatalf("NewReader: %v", err)
		}
		got, err := io.ReadAll(r)
		if err != nil {
			t.Fatalf("ReadAll: %v", err)
		}
		if !bytes.Equal(got, in) {
			t.Fatalf("round trip mismatch: got %d bytes, want %d", len(got), len(in))
		}
	}
}

func TestEmptyInputIsJustStreamHeader(t *testing.T) {
	var buf bytes.Buffer
	w, err := NewWriter(&buf)
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if !bytes.Equal(buf.Bytes(), streamHeaderBytes) {
		t.Fatalf("got %x, want stream header %x", buf.Bytes(), streamHeaderBytes)
	}

	r, err := NewReader(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	got, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("got %d bytes, want 0", len(got))
	}
}

func TestLargeBlockSpansMultipleChunks(t *testing.T) {
	data := make([]byte, MaxBlockSize*3+17)
	rand.New(rand.NewSource(1)).Read(data)

	var buf bytes.Buffer
	w, err := NewWriter(&buf)
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}
	if _, err := w.Write(data); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	r, err := NewReader(&buf)
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	got, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Fatalf("round trip mismatch over %d bytes", len(data))
	}
}

func TestSkippableChunkIsIgnored(t *testing.T) {
	for _, flag := range []byte{minSkippableFlag, 0x81, 0xab, maxSkippableFlag} {
		var buf bytes.Buffer
		buf.Write(streamHeaderBytes)
		buf.Write([]byte{flag, 3, 0, 0, 'x', 'y', 'z'})

		w, err := NewWriterOptions(&buf, WriterOptions{})
		if err != nil {
			t.Fatalf("flag %#x: NewWriterOptions: %v", flag, err)
		}
		if _, err := w.Write([]byte("payload")); err != nil {
			t.Fatalf("flag %#x: Write: %v", flag, err)
		}
		if err := w.Close(); err != nil {
			t.Fatalf("flag %#x: Close: %v", flag, err)
		}

		r, err := NewReader(bytes.NewReader(buf.Bytes()))
		if err != nil {
			t.Fatalf("flag %#x: NewReader: %v", flag, err)
		}
		got, err := io.ReadAll(r)
		if err != nil {
			t.Fatalf("flag %#x: ReadAll: %v", flag, err)
		}
		if string(got) != "payload" {
			t.Fatalf("flag %#x: got %q, want %q", flag, got, "payload")
		}
	}
}

func TestUnsupportedChunkFlagErrors(t *testing.T) {
	for _, flag := range []byte{minUnskippableFlag, 0x11, 0x6a, maxUnskippableFlag} {
		var raw bytes.Buffer
		raw.Write(streamHeaderBytes)
		raw.Write([]byte{flag, 3, 0, 0, 'x', 'y', 'z'})

		r, err := NewReader(&raw)
		if err != nil {
			t.Fatalf("flag %#x: NewReader: %v", flag, err)
		}
		_, err = io.ReadAll(r)
		uc, ok := err.(*streamcore.UnsupportedChunk)
		if !ok {
			t.Fatalf("flag %#x: got %v (%T), want *streamcore.UnsupportedChunk", flag, err, err)
		}
		if uc.Flag != flag {
			t.Fatalf("flag %#x: UnsupportedChunk reported flag %#x", flag, uc.Flag)
		}
	}
}

func TestStreamIdentifierResyncMidStream(t *testing.T) {
	var buf bytes.Buffer
	w, err := NewWriter(&buf)
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}
	if _, err := w.Write([]byte("first")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := w.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	buf.Write(streamHeaderBytes)
	if _, err := w.Write([]byte("second")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	r, err := NewReader(&buf)
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	got, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if string(got) != "firstsecond" {
		t.Fatalf("got %q, want %q", got, "firstsecond")
	}
}

func TestCorruptChecksumDetected(t *testing.T) {
	var buf bytes.Buffer
	w, err := NewWriter(&buf)
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}
	if _, err := w.Write([]byte("corrupt me")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	raw := buf.Bytes()
	// Invert the first byte of the payload-embedded CRC, just past the
	// 10-byte stream header and 4-byte chunk header.
	raw[len(streamHeaderBytes)+4] ^= 0xff

	r, err := NewReader(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	_, err = io.ReadAll(r)
	if _, ok := err.(*streamcore.CorruptChecksum); !ok {
		t.Fatalf("got %v (%T), want *streamcore.CorruptChecksum", err, err)
	}
}

func TestCorruptChecksumIgnoredWhenVerificationDisabled(t *testing.T) {
	var buf bytes.Buffer
	w, err := NewWriter(&buf)
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}
	if _, err := w.Write([]byte("corrupt me")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	raw := buf.Bytes()
	raw[len(streamHeaderBytes)+4] ^= 0xff

	r, err := NewReaderOptions(bytes.NewReader(raw), ReaderOptions{VerifyChecksums: false})
	if err != nil {
		t.Fatalf("NewReaderOptions: %v", err)
	}
	got, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if string(got) != "corrupt me" {
		t.Fatalf("got %q, want %q", got, "corrupt me")
	}
}

func TestInvalidStreamHeaderOnGarbage(t *testing.T) {
	r, err := NewReader(bytes.NewReader([]byte("not a snappy stream")))
	if err == nil {
		_, err = io.ReadAll(r)
	}
	if _, ok := err.(*streamcore.InvalidStreamHeader); !ok {
		t.Fatalf("got %v (%T), want *streamcore.InvalidStreamHeader", err, err)
	}
}

func TestResetReusesWriter(t *testing.T) {
	var buf1, buf2 bytes.Buffer
	w, err := NewWriter(&buf1)
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}
	if _, err := w.Write([]byte("one")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	if err := w.Reset(&buf2); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if _, err := w.Write([]byte("two")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	r, err := NewReader(&buf2)
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	got, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if string(got) != "two" {
		t.Fatalf("got %q, want %q", got, "two")
	}
}

func TestCloseIsIdempotentForWriter(t *testing.T) {
	var buf bytes.Buffer
	w, err := NewWriter(&buf)
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("first Close: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
}

// TestFormatStabilityCompressedLiteral pins the exact wire bytes produced for
// a known input: 10-byte stream identifier, compressed-flag chunk header
// with a 3-byte little-endian length, and a little-endian CRC32C.
func TestFormatStabilityCompressedLiteral(t *testing.T) {
	input := []byte("aaaaaaaaaaaabbbbbbbaaaaaa")
	if len(input) != 25 {
		t.Fatalf("test input length %d, want 25", len(input))
	}

	var buf bytes.Buffer
	w, err := NewWriter(&buf)
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}
	if _, err := w.Write(input); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	out := buf.Bytes()
	if len(out) != 37 {
		t.Fatalf("got %d total bytes, want 37", len(out))
	}
	if !bytes.Equal(out[:10], streamHeaderBytes) {
		t.Fatalf("bytes 0..9 = %x, want stream identifier %x", out[:10], streamHeaderBytes)
	}
	if out[10] != flagCompressed {
		t.Fatalf("byte 10 = %#x, want compressed flag %#x", out[10], flagCompressed)
	}
	if !bytes.Equal(out[11:14], []byte{0x17, 0x00, 0x00}) {
		t.Fatalf("bytes 11..13 = % x, want 17 00 00", out[11:14])
	}
	wantCRC := []byte{0xa8, 0xcd, 0x74, 0x92}
	if !bytes.Equal(out[14:18], wantCRC) {
		t.Fatalf("bytes 14..17 = % x, want % x", out[14:18], wantCRC)
	}
	if snappy.MaskedCRC32C(input) != uint32(wantCRC[0])|uint32(wantCRC[1])<<8|uint32(wantCRC[2])<<16|uint32(wantCRC[3])<<24 {
		t.Fatalf("MaskedCRC32C(input) does not match the documented wire CRC")
	}

	compressedBlock := out[18:]
	if len(compressedBlock) != 19 {
		t.Fatalf("got %d-byte compressed block, want 19", len(compressedBlock))
	}
	if !bytes.Equal(compressedBlock, snappy.Compress(input)) {
		t.Fatalf("compressed block does not match snappy.Compress(input)")
	}

	r, err := NewReader(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	got, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if !bytes.Equal(got, input) {
		t.Fatalf("round trip mismatch: got %q, want %q", got, input)
	}
}

// TestInvalidChunkLengthRejectsEmptyDataChunk exercises the spec's concrete
// scenario 4: a compressed- or raw-flagged chunk whose declared length is 4
// (leaving room for a CRC but no actual block byte) must be rejected, even
// though its CRC happens to match a zero-length decode.
func TestInvalidChunkLengthRejectsEmptyDataChunk(t *testing.T) {
	var raw bytes.Buffer
	raw.Write(streamHeaderBytes)
	// flag 0x01 (raw), 3-byte length 04 00 00, payload = masked CRC32C of
	// zero bytes (d8 ea 82 a2) and nothing else.
	raw.Write([]byte{flagRaw, 0x04, 0x00, 0x00, 0xd8, 0xea, 0x82, 0xa2})

	r, err := NewReader(&raw)
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	_, err = io.ReadAll(r)
	ic, ok := err.(*streamcore.InvalidChunkLength)
	if !ok {
		t.Fatalf("got %v (%T), want *streamcore.InvalidChunkLength", err, err)
	}
	if ic.Flag != flagRaw || ic.Length != 4 {
		t.Fatalf("got %+v, want {Flag:%#x Length:4}", ic, flagRaw)
	}
}
