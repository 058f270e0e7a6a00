package snappy

import "fmt"

// Corruption is returned whenever a Snappy block fails to parse: a bad
// varint, an opcode with an out-of-range offset or length, a truncated
// literal, or a decoded length that does not match the declared length.
// Offset is the byte offset into the compressed input where the fault was
// detected.
type Corruption struct {
	Offset  int
	Message string
}

func (e *Corruption) Error() string {
	return fmt.Sprintf("snappy: corrupt input at offset %d: %s", e.Offset, e.Message)
}

func corruptf(offset int, format string, args ...interface{}) error {
	return &Corruption{Offset: offset, Message: fmt.Sprintf(format, args...)}
}

// InvalidArgument is returned for programming errors: an out-of-range
// offset/length pair, a nil buffer where one is required, or a scratch
// buffer too small for the operation requested of it.
type InvalidArgument struct {
	Message string
}

func (e *InvalidArgument) Error() string {
	return "snappy: invalid argument: " + e.Message
}

func invalidArgf(format string, args ...interface{}) error {
	return &InvalidArgument{Message: fmt.Sprintf(format, args...)}
}
