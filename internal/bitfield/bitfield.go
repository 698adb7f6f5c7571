package bitfield

import (
	"fmt"
	"math/bits"
)

// Bits are numbered MSB-first: bit 0 is the most significant bit of the
// first byte of a buffer, bit 8 the most significant bit of the second byte,
// and so on. Every function in this package uses that numbering.

// ErrShortBuffer indicates that a buffer is smaller than the bit range an
// operation was asked to touch.
var ErrShortBuffer = fmt.Errorf("buffer too short for bit range")

// ErrFieldRange indicates that a sub-field does not fit in its enclosing tag.
var ErrFieldRange = fmt.Errorf("field exceeds tag length")

// BytesFor returns the amount of bytes required to hold n bits.
func BytesFor(n uint32) int { return int((n + 7) / 8) }

// OverwriteBits writes length bits taken from the start of src into dst,
// beginning at bit pos. Bits of dst outside [pos, pos+length) are left
// untouched. dst must hold at least ceil((pos+length)/8) bytes, and src at
// least ceil(length/8) bytes; otherwise ErrShortBuffer is returned and dst
// is not modified.
func OverwriteBits(dst, src []byte, pos, length uint16) error {
	if length == 0 {
		return nil
	}
	end := uint32(pos) + uint32(length)
	if len(dst) < BytesFor(end) || len(src) < BytesFor(uint32(length)) {
		return fmt.Errorf("%w: overwrite %d bits at %d (dst=%d, src=%d bytes)",
			ErrShortBuffer, length, pos, len(dst), len(src))
	}

	shift := uint(pos % 8)
	idx := int(pos / 8)
	n := uint(length)

	if shift+n <= 8 {
		// The whole run lives inside dst[idx].
		mask := byte((0xFF >> shift) & (0xFF << (8 - shift - n)))
		dst[idx] = dst[idx]&^mask | (src[0]>>shift)&mask
		return nil
	}

	// Leading partial byte: everything from shift to the end of dst[idx].
	head := byte(0xFF >> shift)
	dst[idx] = dst[idx]&^head | src[0]>>shift
	written := 8 - shift
	idx++

	// Intermediate bytes are replaced entirely by a shifted merge of two
	// consecutive source bytes.
	for n-written >= 8 {
		dst[idx] = bitsAt(src, written, n)
		written += 8
		idx++
	}

	// Trailing partial byte keeps its low bits.
	if rem := n - written; rem > 0 {
		mask := byte(0xFF << (8 - rem))
		dst[idx] = dst[idx]&^mask | bitsAt(src, written, n)&mask
	}
	return nil
}

// bitsAt returns the 8 bits of src that start at bit offset off. Bits that
// lie beyond limit (in bits) are returned as zero and the byte holding them
// is never read.
func bitsAt(src []byte, off, limit uint) byte {
	j := off / 8
	s := off % 8
	b := src[j] << s
	if s != 0 && (j+1)*8 < limit {
		b |= src[j+1] >> (8 - s)
	}
	return b
}

// ExtractBits returns length bits of src starting at bit offset, packed
// MSB-first into ceil(length/8) bytes. Bits of the last output byte past
// length are zero. src must hold at least ceil((offset+length)/8) bytes and
// no byte beyond that is read. A zero length yields a nil slice.
func ExtractBits(src []byte, offset, length uint16) ([]byte, error) {
	if length == 0 {
		return nil, nil
	}
	end := uint(offset) + uint(length)
	if len(src) < BytesFor(uint32(end)) {
		return nil, fmt.Errorf("%w: extract %d bits at %d (src=%d bytes)",
			ErrShortBuffer, length, offset, len(src))
	}

	out := make([]byte, BytesFor(uint32(length)))
	for k := range out {
		bitOff := uint(offset) + uint(k)*8
		j := bitOff / 8
		s := bitOff % 8
		b := src[j] << s
		if s != 0 && (j+1)*8 < end {
			b |= src[j+1] >> (8 - s)
		}
		out[k] = b
	}

	if r := uint(length) % 8; r != 0 {
		out[len(out)-1] &= byte(0xFF << (8 - r))
	}
	return out, nil
}

// PopCount returns the amount of bits set across the whole buffer.
func PopCount(b []byte) int {
	cnt := 0
	for _, v := range b {
		cnt += bits.OnesCount8(v)
	}
	return cnt
}

// ExtractField returns the length-bit integer found pos bits after the most
// significant bit of a tagLen-bit tag held in the low bits of value. pos is
// zero-based. A zero length yields zero.
func ExtractField(value uint64, pos, length uint16, tagLen uint32) (uint64, error) {
	if length == 0 {
		return 0, nil
	}
	if tagLen > 64 || uint32(pos)+uint32(length) > tagLen {
		return 0, fmt.Errorf("%w: field %d+%d in %d-bit tag", ErrFieldRange, pos, length, tagLen)
	}

	shift := tagLen - uint32(pos) - uint32(length)
	v := value >> shift
	if length < 64 {
		v &= (uint64(1) << length) - 1
	}
	return v, nil
}
