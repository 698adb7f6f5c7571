package proto

import "fmt"

// Packet contains a Header and the Message it announces.
type Packet struct {
	Header  Header
	Message Message
}

func (p Packet) Encode(into []byte) {
	p.Header.Encode(into)
	p.Message.Encode(into[HeaderSize:])
}

func (p Packet) RequiredSize() int {
	return HeaderSize + p.Message.RequiredSize()
}

// Bytes returns the encoded packet.
func (p Packet) Bytes() []byte {
	buf := make([]byte, p.RequiredSize())
	p.Encode(buf)
	return buf
}

// Pkt wraps msg in a Packet carrying xid, filling version, type and length.
func Pkt(xid uint32, msg Message) *Packet {
	return &Packet{
		Header: Header{
			Version: ProtocolVersion,
			Type:    msg.Type(),
			Length:  uint16(HeaderSize + msg.RequiredSize()),
			Xid:     xid,
		},
		Message: msg,
	}
}

// Raw is the body of a message type this package has no decoder for. It is
// kept verbatim so that the receiver can still reply to it.
type Raw struct {
	Kind MsgType
	Data []byte
}

func (r *Raw) Type() MsgType      { return r.Kind }
func (r *Raw) RequiredSize() int  { return len(r.Data) }
func (r *Raw) Encode(into []byte) { copy(into, r.Data) }

// ParseMessage decodes body as the message announced by h. Types without a
// decoder are returned as *Raw. A body shorter than its fixed layout, or
// carrying counts above their protocol maximum, yields a MalformedError.
func ParseMessage(h Header, body []byte) (Message, error) {
	decoder, ok := bodyDecoderList[h.Type]
	if !ok {
		return &Raw{Kind: h.Type, Data: body}, nil
	}

	r := newReader(body)
	msg, err := decoder(r)
	if err == nil {
		err = r.Err()
	}
	if err != nil {
		return nil, MalformedError{Type: h.Type, Xid: h.Xid, Err: err}
	}
	return msg, nil
}

// ParsePacket decodes a complete encoded packet held in data.
func ParsePacket(data []byte) (*Packet, error) {
	if len(data) < HeaderSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrShortBody, len(data))
	}
	h := decodeHeader(data)
	if h.Version != ProtocolVersion {
		return nil, fmt.Errorf("%w: 0x%02x", ErrBadVersion, h.Version)
	}
	if int(h.Length) < HeaderSize || int(h.Length) > len(data) {
		return nil, fmt.Errorf("%w: declared %d, have %d", ErrBadLength, h.Length, len(data))
	}
	return Frame{Header: h, Body: data[HeaderSize:h.Length]}.Parse()
}
