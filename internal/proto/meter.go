package proto

import "fmt"

// EntryCommand is the operation requested by MeterMod and GroupMod.
type EntryCommand uint8

const (
	EntryAdd    EntryCommand = 0
	EntryModify EntryCommand = 1
	EntryDelete EntryCommand = 2
)

func (c EntryCommand) String() string {
	switch c {
	case EntryAdd:
		return "ADD"
	case EntryModify:
		return "MODIFY"
	case EntryDelete:
		return "DELETE"
	}
	return fmt.Sprintf("EntryCommand(%d)", uint8(c))
}

// MeterMod adds, modifies or deletes a meter.
type MeterMod struct {
	Command EntryCommand
	SlotID  uint16
	Rate    uint32
	MeterID uint32
}

func (*MeterMod) Type() MsgType     { return TypeMeterMod }
func (*MeterMod) RequiredSize() int { return 16 }

func (m *MeterMod) Encode(into []byte) {
	newWriter(into).
		u8(uint8(m.Command)).
		pad(1).
		u16(m.SlotID).
		u32(m.Rate).
		u32(m.MeterID).
		pad(4)
}

func decodeMeter(r *Reader) (*MeterMod, error) {
	m := &MeterMod{Command: EntryCommand(r.u8())}
	r.skip(1)
	m.SlotID = r.u16()
	m.Rate = r.u32()
	m.MeterID = r.u32()
	r.skip(4)
	return m, r.Err()
}
