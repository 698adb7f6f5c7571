package proto

// GroupType is the bucket discipline of a group.
type GroupType uint8

const (
	GroupAll      GroupType = 0
	GroupSelect   GroupType = 1
	GroupIndirect GroupType = 2
	GroupFastFail GroupType = 3
)

// GroupMod adds, modifies or deletes a group.
type GroupMod struct {
	Command   EntryCommand
	GroupType GroupType
	GroupID   uint32
	CounterID uint32
	SlotID    uint16
	Actions   []Action
}

func (*GroupMod) Type() MsgType     { return TypeGroupMod }
func (*GroupMod) RequiredSize() int { return 16 + MaxActionsPerInstruction*actionSize }

func (g *GroupMod) Encode(into []byte) {
	w := newWriter(into).
		u8(uint8(g.Command)).
		u8(uint8(g.GroupType)).
		u8(uint8(len(g.Actions))).
		pad(1).
		u32(g.GroupID).
		u32(g.CounterID).
		u16(g.SlotID).
		pad(2)
	encodeActions(w, g.Actions)
}

func decodeGroup(r *Reader) (*GroupMod, error) {
	g := &GroupMod{
		Command:   EntryCommand(r.u8()),
		GroupType: GroupType(r.u8()),
	}
	n := r.u8()
	r.skip(1)
	g.GroupID = r.u32()
	g.CounterID = r.u32()
	g.SlotID = r.u16()
	r.skip(2)
	g.Actions = decodeActions(r, n)
	return g, r.Err()
}
