// Package stream auto-detects which of the two stream formats this module
// supports — x-snappy-framed or the legacy Snappy stream format — a given
// io.Reader holds, by inspecting its leading bytes without consuming them,
// and constructs the matching reader.
//
// It depends on both framed and legacy, so it lives in its own package
// rather than either of theirs to avoid a cycle.
package stream

import (
	"bufio"
	"bytes"
	"io"

	"github.com/snappyframed/snappy/framed"
	"github.com/snappyframed/snappy/legacy"
)

var framedMagic = []byte{0xff, 0x06, 0x00, 0x00, 's', 'N', 'a', 'P', 'p', 'Y'}
var legacyMagic = []byte("snappy\x00")

// Kind identifies which stream format DetermineStream found.
type Kind int

const (
	KindUnknown Kind = iota
	KindFramed
	KindLegacy
)

// UnrecognizedFormat is returned when neither stream format's magic bytes
// are found at the start of a source.
type UnrecognizedFormat struct{}

func (e *UnrecognizedFormat) Error() string { return "stream: unrecognized snappy stream format" }

// DetermineStream peeks at r's leading bytes to classify which stream
// format it holds. It returns an io.Reader that replays those bytes to
// subsequent reads — r itself if it is already a *bufio.Reader, or a newly
// wrapped one otherwise — since Peek does not consume from its source.
func DetermineStream(r io.Reader) (Kind, *bufio.Reader, error) {
	br, ok := r.(*bufio.Reader)
	if !ok || br.Size() < len(framedMagic) {
		br = bufio.NewReaderSize(r, len(framedMagic))
	}

	peek, err := br.Peek(len(framedMagic))
	if err == nil {
		if bytes.Equal(peek, framedMagic) {
			return KindFramed, br, nil
		}
		if bytes.Equal(peek[:len(legacyMagic)], legacyMagic) {
			return KindLegacy, br, nil
		}
		return KindUnknown, br, nil
	}

	// Fewer bytes than the framed magic are available; the source may
	// still be a (necessarily short) valid legacy stream.
	peek, err2 := br.Peek(len(legacyMagic))
	if err2 != nil {
		return KindUnknown, br, err
	}
	if bytes.Equal(peek, legacyMagic) {
		return KindLegacy, br, nil
	}
	return KindUnknown, br, nil
}

// Reader is the interface common to *framed.Reader and *legacy.Reader.
type Reader interface {
	io.Reader
	io.WriterTo
	io.Closer
}

// NewReader auto-detects r's stream format and returns a Reader that
// decodes it, verifying chunk checksums.
func NewReader(r io.Reader) (Reader, error) {
	return NewReaderVerify(r, true)
}

// NewReaderVerify is like NewReader but lets the caller control whether
// chunk checksums are verified, mirroring framed.NewReaderOptions's and
// legacy.NewReaderOptions's VerifyChecksums field for the auto-detecting
// entry point.
func NewReaderVerify(r io.Reader, verifyCRC bool) (Reader, error) {
	kind, br, err := DetermineStream(r)
	if err != nil {
		return nil, err
	}
	switch kind {
	case KindFramed:
		return framed.NewReaderOptions(br, framed.ReaderOptions{VerifyChecksums: verifyCRC})
	case KindLegacy:
		return legacy.NewReaderOptions(br, legacy.ReaderOptions{VerifyChecksums: verifyCRC})
	default:
		return nil, &UnrecognizedFormat{}
	}
}
