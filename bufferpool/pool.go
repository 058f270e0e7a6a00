// Package bufferpool defines the pluggable buffer-pool capability shared by
// the framed and legacy stream readers/writers, and ships a default
// sync.Pool-backed implementation.
//
// The interface is deliberately minimal (four role-keyed allocate/release
// pairs) so a caller can substitute a no-op pool, a size-bucketed pool, or an
// arena allocator without touching the stream code, per the "buffer pool
// abstraction" design note: a capability of acquire/release pairs keyed by
// role, not a single general-purpose allocator.
package bufferpool

import "sync"

// Pool acquires and releases byte slices for the four roles a stream
// reader/writer needs: the raw bytes read off the wire (input), the raw
// bytes about to be written to the wire (output), the block about to be
// handed to the compressor (encode), and the block just produced by the
// decompressor (decode).
//
// AllocX(size) returns a buffer of length >= size (it may be larger, never
// smaller). ReleaseX(buf) returns a buffer for reuse; a released buffer must
// not be touched again by the caller. Implementations must be safe to call
// from multiple goroutines, since one pool commonly backs many independent
// streams; they may also legitimately drop buffers instead of pooling them
// under memory pressure.
type Pool interface {
	AllocInput(size int) []byte
	ReleaseInput(buf []byte)

	AllocOutput(size int) []byte
	ReleaseOutput(buf []byte)

	AllocEncode(size int) []byte
	ReleaseEncode(buf []byte)

	AllocDecode(size int) []byte
	ReleaseDecode(buf []byte)
}

// Default is a process-wide Pool backed by four sync.Pools, one per role.
// It is the zero-config pool used when a stream constructor is not given one
// explicitly.
var Default Pool = newSyncPool()

// syncPool implements Pool with one sync.Pool per role, mirroring the
// readerPool/writerPool pattern in the teacher's pooling example: a
// sync.Pool.New that allocates a starter buffer, grown on demand by the
// caller and handed back on Put.
type syncPool struct {
	input, output, encode, decode sync.Pool
}

func newSyncPool() *syncPool {
	p := &syncPool{}
	newSlice := func() interface{} { return make([]byte, 0, 4096) }
	p.input.New = newSlice
	p.output.New = newSlice
	p.encode.New = newSlice
	p.decode.New = newSlice
	return p
}

func allocFrom(pool *sync.Pool, size int) []byte {
	buf := pool.Get().([]byte)
	if cap(buf) < size {
		return make([]byte, size)
	}
	return buf[:size]
}

func releaseTo(pool *sync.Pool, buf []byte) {
	pool.Put(buf[:0]) //nolint:staticcheck // intentionally retains capacity
}

func (p *syncPool) AllocInput(size int) []byte    { return allocFrom(&p.input, size) }
func (p *syncPool) ReleaseInput(buf []byte)       { releaseTo(&p.input, buf) }
func (p *syncPool) AllocOutput(size int) []byte   { return allocFrom(&p.output, size) }
func (p *syncPool) ReleaseOutput(buf []byte)      { releaseTo(&p.output, buf) }
func (p *syncPool) AllocEncode(size int) []byte   { return allocFrom(&p.encode, size) }
func (p *syncPool) ReleaseEncode(buf []byte)      { releaseTo(&p.encode, buf) }
func (p *syncPool) AllocDecode(size int) []byte   { return allocFrom(&p.decode, size) }
func (p *syncPool) ReleaseDecode(buf []byte)      { releaseTo(&p.decode, buf) }

// NewSyncPool returns a new independent Pool backed by sync.Pool, for
// callers that want pooling scoped more narrowly than the process-wide
// Default (e.g. one pool per tenant).
func NewSyncPool() Pool { return newSyncPool() }

// NoPool is a Pool that allocates fresh buffers on every call and drops them
// on release, useful for tests or for callers who want to opt out of pooling
// altogether (e.g. to isolate a benchmark from pool effects, as the
// teacher's own NoReset/NoCopy benchmark variants do for other concerns).
var NoPool Pool = noPool{}

type noPool struct{}

func (noPool) AllocInput(size int) []byte  { return make([]byte, size) }
func (noPool) ReleaseInput([]byte)         {}
func (noPool) AllocOutput(size int) []byte { return make([]byte, size) }
func (noPool) ReleaseOutput([]byte)        {}
func (noPool) AllocEncode(size int) []byte { return make([]byte, size) }
func (noPool) ReleaseEncode([]byte)        {}
func (noPool) AllocDecode(size int) []byte { return make([]byte, size) }
func (noPool) ReleaseDecode([]byte)        {}
