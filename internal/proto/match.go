package proto

import (
	"fmt"

	"github.com/heyvito/pofswitch/internal/bitfield"
)

const (
	matchSize  = 8
	matchXSize = matchSize + 2*MaxFieldBytes
)

// Match locates a field inside a packet: Offset and Length are in bits.
type Match struct {
	FieldID uint16
	Offset  uint16
	Length  uint16
}

func (m Match) RequiredSize() int { return matchSize }

func (m Match) Encode(into []byte) {
	newWriter(into).
		u16(m.FieldID).
		u16(m.Offset).
		u16(m.Length).
		pad(2)
}

func (m Match) String() string {
	return fmt.Sprintf("field(%d)@%d/%d", m.FieldID, m.Offset, m.Length)
}

func decodeMatch(r *Reader) Match {
	m := Match{
		FieldID: r.u16(),
		Offset:  r.u16(),
		Length:  r.u16(),
	}
	r.skip(2)
	return m
}

// MatchX is a Match carrying a value and a mask. Only the first
// ceil(Length/8) bytes of Value and Mask are significant.
type MatchX struct {
	Match
	Value [MaxFieldBytes]byte
	Mask  [MaxFieldBytes]byte
}

func (m MatchX) RequiredSize() int { return matchXSize }

func (m MatchX) Encode(into []byte) {
	newWriter(into).
		encoder(m.Match).
		bytes(m.Value[:]).
		bytes(m.Mask[:])
}

// SignificantBytes returns the amount of Value/Mask bytes the field covers.
func (m MatchX) SignificantBytes() int {
	return min(bitfield.BytesFor(uint32(m.Length)), MaxFieldBytes)
}

// FieldValue returns the significant bytes of Value.
func (m MatchX) FieldValue() []byte { return m.Value[:m.SignificantBytes()] }

// FieldMask returns the significant bytes of Mask.
func (m MatchX) FieldMask() []byte { return m.Mask[:m.SignificantBytes()] }

// Apply writes the field's value into pkt at the field's bit offset.
func (m MatchX) Apply(pkt []byte) error {
	return bitfield.OverwriteBits(pkt, m.FieldValue(), m.Offset, m.Length)
}

// Matches reports whether pkt carries the field's value under its mask.
func (m MatchX) Matches(pkt []byte) (bool, error) {
	if int(m.Length) > MaxFieldBytes*8 {
		return false, fmt.Errorf("%w: %d-bit field", ErrTooMany, m.Length)
	}
	got, err := bitfield.ExtractBits(pkt, m.Offset, m.Length)
	if err != nil {
		return false, err
	}
	value, mask := m.FieldValue(), m.FieldMask()
	for i := range got {
		if got[i]&mask[i] != value[i]&mask[i] {
			return false, nil
		}
	}
	return true, nil
}

func decodeMatchX(r *Reader) MatchX {
	m := MatchX{Match: decodeMatch(r)}
	r.fixed(m.Value[:])
	r.fixed(m.Mask[:])
	return m
}
