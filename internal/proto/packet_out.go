package proto

import "fmt"

// PacketOut asks the switch to run Actions against Data as if it had been
// received on InPort.
type PacketOut struct {
	BufferID uint32
	InPort   uint32
	Actions  []Action
	Data     []byte
}

func (*PacketOut) Type() MsgType { return TypePacketOut }

func (p *PacketOut) RequiredSize() int {
	return 16 + MaxActionsPerInstruction*actionSize + len(p.Data)
}

func (p *PacketOut) Encode(into []byte) {
	w := newWriter(into).
		u32(p.BufferID).
		u32(p.InPort).
		u8(uint8(len(p.Actions))).
		pad(3).
		u32(uint32(len(p.Data)))
	encodeActions(w, p.Actions)
	w.bytes(p.Data)
}

func decodePacketOut(r *Reader) (*PacketOut, error) {
	p := &PacketOut{
		BufferID: r.u32(),
		InPort:   r.u32(),
	}
	n := r.u8()
	r.skip(3)
	size := r.u32()
	p.Actions = decodeActions(r, n)
	if r.Err() != nil {
		return nil, r.Err()
	}
	if int64(size) > int64(r.remaining()) {
		return nil, fmt.Errorf("%w: packet of %d bytes, %d available", ErrShortBody, size, r.remaining())
	}
	p.Data = r.bytes(int(size))
	return p, r.Err()
}
