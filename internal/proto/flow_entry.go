package proto

import "fmt"

// FlowCommand is the operation requested by a FlowMod or an
// InstructionBlockMod.
type FlowCommand uint8

const (
	FlowAdd          FlowCommand = 0
	FlowModify       FlowCommand = 1
	FlowModifyStrict FlowCommand = 2
	FlowDelete       FlowCommand = 3
	FlowDeleteStrict FlowCommand = 4
)

var flowCommandNames = map[FlowCommand]string{
	FlowAdd:          "ADD",
	FlowModify:       "MODIFY",
	FlowModifyStrict: "MODIFY_STRICT",
	FlowDelete:       "DELETE",
	FlowDeleteStrict: "DELETE_STRICT",
}

func (c FlowCommand) String() string {
	if n, ok := flowCommandNames[c]; ok {
		return n
	}
	return fmt.Sprintf("FlowCommand(%d)", uint8(c))
}

const flowEntrySize = 40 + MaxMatchFields*matchXSize + MaxInstructions*instructionSize

// FlowEntry is the body of a FlowMod message.
type FlowEntry struct {
	Command      FlowCommand
	CounterID    uint32
	Cookie       uint64
	CookieMask   uint64
	TableID      uint8
	TableType    TableType
	IdleTimeout  uint16
	HardTimeout  uint16
	Priority     uint16
	Index        uint32
	Match        []MatchX
	Instructions []Instruction
}

func (*FlowEntry) Type() MsgType     { return TypeFlowMod }
func (*FlowEntry) RequiredSize() int { return flowEntrySize }

func (f *FlowEntry) Encode(into []byte) {
	w := newWriter(into).
		u8(uint8(f.Command)).
		u8(uint8(len(f.Match))).
		u8(uint8(len(f.Instructions))).
		pad(1).
		u32(f.CounterID).
		u64(f.Cookie).
		u64(f.CookieMask).
		u8(f.TableID).
		u8(uint8(f.TableType)).
		u16(f.IdleTimeout).
		u16(f.HardTimeout).
		u16(f.Priority).
		u32(f.Index).
		pad(4)
	for i := 0; i < MaxMatchFields; i++ {
		if i < len(f.Match) {
			w.encoder(f.Match[i])
		} else {
			w.pad(matchXSize)
		}
	}
	for i := 0; i < MaxInstructions; i++ {
		if i < len(f.Instructions) {
			w.encoder(f.Instructions[i])
		} else {
			w.pad(instructionSize)
		}
	}
}

func (f *FlowEntry) String() string {
	return fmt.Sprintf("flow %s table=%d index=%d priority=%d match=%d instructions=%d",
		f.Command, f.TableID, f.Index, f.Priority, len(f.Match), len(f.Instructions))
}

func decodeFlowEntry(r *Reader) (*FlowEntry, error) {
	f := &FlowEntry{Command: FlowCommand(r.u8())}
	matchNum := r.u8()
	insNum := r.u8()
	r.skip(1)
	f.CounterID = r.u32()
	f.Cookie = r.u64()
	f.CookieMask = r.u64()
	f.TableID = r.u8()
	f.TableType = TableType(r.u8())
	f.IdleTimeout = r.u16()
	f.HardTimeout = r.u16()
	f.Priority = r.u16()
	f.Index = r.u32()
	r.skip(4)

	if int(matchNum) > MaxMatchFields {
		return nil, fmt.Errorf("%w: %d match fields", ErrTooMany, matchNum)
	}
	if int(insNum) > MaxInstructions {
		return nil, fmt.Errorf("%w: %d instructions", ErrTooMany, insNum)
	}

	f.Match = make([]MatchX, 0, matchNum)
	for i := 0; i < MaxMatchFields; i++ {
		m := decodeMatchX(r)
		if i < int(matchNum) {
			f.Match = append(f.Match, m)
		}
	}
	f.Instructions = make([]Instruction, 0, insNum)
	for i := 0; i < MaxInstructions; i++ {
		ins := decodeInstruction(r)
		if i < int(insNum) {
			f.Instructions = append(f.Instructions, ins)
		}
	}
	return f, r.Err()
}
