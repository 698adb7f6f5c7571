package proto

// HeaderSize is the encoded size of Header.
const HeaderSize = 8

// Header prefixes every message. Length covers the header itself plus the
// body that follows it, and Xid correlates a reply to its request.
type Header struct {
	Version uint8
	Type    MsgType
	Length  uint16
	Xid     uint32
}

func (h Header) Encode(into []byte) {
	newWriter(into).
		u8(h.Version).
		u8(uint8(h.Type)).
		u16(h.Length).
		u32(h.Xid)
}

func (h Header) RequiredSize() int { return HeaderSize }

// BodyLength returns the amount of bytes declared for the body.
func (h Header) BodyLength() int {
	if int(h.Length) < HeaderSize {
		return 0
	}
	return int(h.Length) - HeaderSize
}

func decodeHeader(b []byte) Header {
	return Header{
		Version: b[0],
		Type:    MsgType(b[1]),
		Length:  u16Unmarshal(b[2:]),
		Xid:     u32Unmarshal(b[4:]),
	}
}
