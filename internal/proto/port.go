package proto

import (
	"fmt"
	"net"
)

const (
	portSize       = 120
	portStatusSize = 8 + portSize
	hwAddrLength   = 6
)

// Port describes a switch port.
type Port struct {
	SlotID     uint16
	PortID     uint32
	HWAddr     net.HardwareAddr
	Name       string
	Config     uint32
	State      uint32
	Curr       uint32
	Advertised uint32
	Supported  uint32
	Peer       uint32
	CurrSpeed  uint32
	MaxSpeed   uint32
	OFEnable   bool
}

func (p Port) RequiredSize() int { return portSize }

func (p Port) Encode(into []byte) {
	newWriter(into).
		u16(p.SlotID).
		pad(2).
		u32(p.PortID).
		fixed(p.HWAddr, hwAddrLength).
		pad(2).
		str(p.Name, MaxNameLength).
		u32(p.Config).
		u32(p.State).
		u32(p.Curr).
		u32(p.Advertised).
		u32(p.Supported).
		u32(p.Peer).
		u32(p.CurrSpeed).
		u32(p.MaxSpeed).
		u8(boolByte(p.OFEnable)).
		pad(7)
}

func (p Port) String() string {
	return fmt.Sprintf("port %d/%d (%s)", p.SlotID, p.PortID, p.Name)
}

func decodePort(r *Reader) Port {
	p := Port{SlotID: r.u16()}
	r.skip(2)
	p.PortID = r.u32()
	p.HWAddr = r.bytes(hwAddrLength)
	r.skip(2)
	p.Name = fixedString(r.bytes(MaxNameLength))
	p.Config = r.u32()
	p.State = r.u32()
	p.Curr = r.u32()
	p.Advertised = r.u32()
	p.Supported = r.u32()
	p.Peer = r.u32()
	p.CurrSpeed = r.u32()
	p.MaxSpeed = r.u32()
	p.OFEnable = r.u8() != 0
	r.skip(7)
	return p
}

// PortReason tells why a PortStatus was emitted.
type PortReason uint8

const (
	PortAdded    PortReason = 0
	PortDeleted  PortReason = 1
	PortModified PortReason = 2
)

// PortStatus reports a port. One PortStatus is sent per port when the
// controller requests the switch configuration.
type PortStatus struct {
	Reason PortReason
	Port   Port
}

func (*PortStatus) Type() MsgType     { return TypePortStatus }
func (*PortStatus) RequiredSize() int { return portStatusSize }

func (s *PortStatus) Encode(into []byte) {
	newWriter(into).
		u8(uint8(s.Reason)).
		pad(7).
		encoder(s.Port)
}

func decodePortStatus(r *Reader) (*PortStatus, error) {
	s := &PortStatus{Reason: PortReason(r.u8())}
	r.skip(7)
	s.Port = decodePort(r)
	return s, r.Err()
}

// PortMod changes the protocol enable flag of a port. It shares the layout
// of PortStatus.
type PortMod struct {
	Reason PortReason
	Port   Port
}

func (*PortMod) Type() MsgType     { return TypePortMod }
func (*PortMod) RequiredSize() int { return portStatusSize }

func (m *PortMod) Encode(into []byte) {
	newWriter(into).
		u8(uint8(m.Reason)).
		pad(7).
		encoder(m.Port)
}

func decodePortMod(r *Reader) (*PortMod, error) {
	m := &PortMod{Reason: PortReason(r.u8())}
	r.skip(7)
	m.Port = decodePort(r)
	return m, r.Err()
}

func boolByte(v bool) uint8 {
	if v {
		return 1
	}
	return 0
}
