package proto

import "fmt"

// Reader walks a message body. The first out-of-bounds access is recorded
// and turns every following read into a zero-value no-op, so decoders can
// read a whole structure and check Err once at the end.
type Reader struct {
	buf []byte
	off int
	err error
}

func newReader(buf []byte) *Reader {
	return &Reader{buf: buf}
}

// Err returns the first error observed by this reader, if any.
func (r *Reader) Err() error { return r.err }

func (r *Reader) need(n int) bool {
	if r.err != nil {
		return false
	}
	if len(r.buf)-r.off < n {
		r.err = fmt.Errorf("%w: need %d bytes at offset %d, have %d", ErrShortBody, n, r.off, len(r.buf)-r.off)
		return false
	}
	return true
}

func (r *Reader) fail(err error) {
	if r.err == nil {
		r.err = err
	}
}

func (r *Reader) u8() uint8 {
	if !r.need(1) {
		return 0
	}
	v := r.buf[r.off]
	r.off++
	return v
}

func (r *Reader) u16() uint16 {
	if !r.need(2) {
		return 0
	}
	v := u16Unmarshal(r.buf[r.off:])
	r.off += 2
	return v
}

func (r *Reader) u32() uint32 {
	if !r.need(4) {
		return 0
	}
	v := u32Unmarshal(r.buf[r.off:])
	r.off += 4
	return v
}

func (r *Reader) u64() uint64 {
	if !r.need(8) {
		return 0
	}
	v := u64Unmarshal(r.buf[r.off:])
	r.off += 8
	return v
}

func (r *Reader) skip(n int) {
	if r.need(n) {
		r.off += n
	}
}

// fixed copies exactly len(into) bytes.
func (r *Reader) fixed(into []byte) {
	if !r.need(len(into)) {
		return
	}
	copy(into, r.buf[r.off:])
	r.off += len(into)
}

func (r *Reader) bytes(n int) []byte {
	if !r.need(n) {
		return nil
	}
	out := make([]byte, n)
	copy(out, r.buf[r.off:])
	r.off += n
	return out
}

// area returns a Reader bounded to the next n bytes and advances past them.
// Errors of the returned reader must be folded back through absorb.
func (r *Reader) area(n int) *Reader {
	if !r.need(n) {
		return &Reader{err: r.err}
	}
	sub := &Reader{buf: r.buf[r.off : r.off+n]}
	r.off += n
	return sub
}

func (r *Reader) absorb(sub *Reader) {
	if sub.err != nil {
		r.fail(sub.err)
	}
}

func (r *Reader) rest() []byte {
	if r.err != nil || r.off >= len(r.buf) {
		return nil
	}
	return r.bytes(len(r.buf) - r.off)
}

func (r *Reader) remaining() int { return len(r.buf) - r.off }
