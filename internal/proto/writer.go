package proto

func newWriter(buf []byte) *Writer {
	return &Writer{buffer: buf, cursor: 0}
}

// Writer sequentially fills a pre-sized buffer. Callers size the buffer
// through RequiredSize, so no bounds are checked beyond the runtime's.
type Writer struct {
	buffer []byte
	cursor int
}

func (w *Writer) u8(b uint8) *Writer {
	w.buffer[w.cursor] = b
	w.cursor++
	return w
}

func (w *Writer) u16(val uint16) *Writer {
	u16Marshal(w.buffer[w.cursor:], val)
	w.cursor += 2
	return w
}

func (w *Writer) u32(val uint32) *Writer {
	u32Marshal(w.buffer[w.cursor:], val)
	w.cursor += 4
	return w
}

func (w *Writer) u64(val uint64) *Writer {
	u64Marshal(w.buffer[w.cursor:], val)
	w.cursor += 8
	return w
}

func (w *Writer) bytes(value []byte) *Writer {
	copy(w.buffer[w.cursor:], value)
	w.cursor += len(value)
	return w
}

// pad writes n zero bytes.
func (w *Writer) pad(n int) *Writer {
	clear(w.buffer[w.cursor : w.cursor+n])
	w.cursor += n
	return w
}

// fixed writes value into an n-byte area, truncating or zero-filling it.
func (w *Writer) fixed(value []byte, n int) *Writer {
	area := w.buffer[w.cursor : w.cursor+n]
	clear(area)
	copy(area, value)
	w.cursor += n
	return w
}

func (w *Writer) str(value string, n int) *Writer {
	return w.fixed([]byte(value), n)
}

func (w *Writer) encoder(obj Encoder) *Writer {
	obj.Encode(w.buffer[w.cursor:])
	w.cursor += obj.RequiredSize()
	return w
}

// area runs fn against a writer bounded to the next n bytes, zero-filling
// whatever fn leaves untouched.
func (w *Writer) area(n int, fn func(sub *Writer)) *Writer {
	sub := newWriter(w.buffer[w.cursor : w.cursor+n])
	clear(sub.buffer)
	fn(sub)
	w.cursor += n
	return w
}
