package proto

import "fmt"

const (
	instructionSize     = 304
	instructionDataSize = instructionSize - 8
)

// InstructionType identifies the variant carried by an Instruction.
type InstructionType uint16

const (
	InstructionGotoTable               InstructionType = 1
	InstructionWriteMetadata           InstructionType = 2
	InstructionWriteActions            InstructionType = 3
	InstructionApplyActions            InstructionType = 4
	InstructionClearActions            InstructionType = 5
	InstructionMeter                   InstructionType = 6
	InstructionWriteMetadataFromPacket InstructionType = 7
	InstructionGotoDirectTable         InstructionType = 8
)

var instructionTypeNames = map[InstructionType]string{
	InstructionGotoTable:               "GOTO_TABLE",
	InstructionWriteMetadata:           "WRITE_METADATA",
	InstructionWriteActions:            "WRITE_ACTIONS",
	InstructionApplyActions:            "APPLY_ACTIONS",
	InstructionClearActions:            "CLEAR_ACTIONS",
	InstructionMeter:                   "METER",
	InstructionWriteMetadataFromPacket: "WRITE_METADATA_FROM_PACKET",
	InstructionGotoDirectTable:         "GOTO_DIRECT_TABLE",
}

func (t InstructionType) String() string {
	if n, ok := instructionTypeNames[t]; ok {
		return n
	}
	return fmt.Sprintf("InstructionType(%d)", uint16(t))
}

// InstructionData is implemented by every instruction variant.
type InstructionData interface {
	Encoder
	InstructionType() InstructionType
}

// Instruction is a single tagged instruction. Its encoded form is always
// instructionSize bytes regardless of the variant.
type Instruction struct {
	Data InstructionData
}

// Ins wraps an instruction variant.
func Ins(data InstructionData) Instruction { return Instruction{Data: data} }

func (i Instruction) Type() InstructionType { return i.Data.InstructionType() }

func (i Instruction) RequiredSize() int { return instructionSize }

func (i Instruction) Encode(into []byte) {
	newWriter(into).
		u16(uint16(i.Type())).
		u16(instructionSize).
		pad(4).
		area(instructionDataSize, func(w *Writer) { w.encoder(i.Data) })
}

func (i Instruction) String() string { return i.Type().String() }

// ApplyActions runs its actions immediately.
type ApplyActions struct {
	Actions []Action
}

func (ApplyActions) InstructionType() InstructionType { return InstructionApplyActions }
func (ApplyActions) RequiredSize() int                { return 8 + MaxActionsPerInstruction*actionSize }

func (a ApplyActions) Encode(into []byte) {
	w := newWriter(into).
		u8(uint8(len(a.Actions))).
		pad(7)
	encodeActions(w, a.Actions)
}

// WriteActions adds its actions to the packet's action set.
type WriteActions struct {
	Actions []Action
}

func (WriteActions) InstructionType() InstructionType { return InstructionWriteActions }
func (WriteActions) RequiredSize() int                { return 8 + MaxActionsPerInstruction*actionSize }

func (a WriteActions) Encode(into []byte) {
	w := newWriter(into).
		u8(uint8(len(a.Actions))).
		pad(7)
	encodeActions(w, a.Actions)
}

// ClearActions empties the packet's action set.
type ClearActions struct{}

func (ClearActions) InstructionType() InstructionType { return InstructionClearActions }
func (ClearActions) RequiredSize() int                { return 0 }
func (ClearActions) Encode([]byte)                    {}

// GotoTable continues processing at NextTableID, keyed on Match.
type GotoTable struct {
	NextTableID  uint8
	PacketOffset uint16
	Match        []Match
}

func (GotoTable) InstructionType() InstructionType { return InstructionGotoTable }
func (GotoTable) RequiredSize() int                { return 8 + MaxMatchFields*matchSize }

func (g GotoTable) Encode(into []byte) {
	w := newWriter(into).
		u8(g.NextTableID).
		u8(uint8(len(g.Match))).
		u16(g.PacketOffset).
		pad(4)
	encodeMatches(w, g.Match)
}

// GotoDirectTable continues processing at a fixed entry of a linear table.
type GotoDirectTable struct {
	NextTableID     uint8
	IndexType       uint8
	PacketOffset    uint16
	TableEntryIndex uint32
}

func (GotoDirectTable) InstructionType() InstructionType { return InstructionGotoDirectTable }
func (GotoDirectTable) RequiredSize() int                { return 8 }

func (g GotoDirectTable) Encode(into []byte) {
	newWriter(into).
		u8(g.NextTableID).
		u8(g.IndexType).
		u16(g.PacketOffset).
		u32(g.TableEntryIndex)
}

// Meter rate-limits the packet through MeterID.
type Meter struct {
	MeterID uint32
}

func (Meter) InstructionType() InstructionType { return InstructionMeter }
func (Meter) RequiredSize() int                { return 4 }
func (m Meter) Encode(into []byte)             { u32Marshal(into, m.MeterID) }

// WriteMetadata stores Value into the packet metadata.
type WriteMetadata struct {
	MetadataOffset uint16
	Length         uint16
	Value          [MaxFieldBytes]byte
}

func (WriteMetadata) InstructionType() InstructionType { return InstructionWriteMetadata }
func (WriteMetadata) RequiredSize() int                { return 8 + MaxFieldBytes }

func (m WriteMetadata) Encode(into []byte) {
	newWriter(into).
		u16(m.MetadataOffset).
		u16(m.Length).
		pad(4).
		bytes(m.Value[:])
}

// WriteMetadataFromPacket copies packet bits into the packet metadata.
type WriteMetadataFromPacket struct {
	MetadataOffset uint16
	PacketOffset   uint16
	Length         uint16
}

func (WriteMetadataFromPacket) InstructionType() InstructionType {
	return InstructionWriteMetadataFromPacket
}
func (WriteMetadataFromPacket) RequiredSize() int { return 8 }

func (m WriteMetadataFromPacket) Encode(into []byte) {
	newWriter(into).
		u16(m.MetadataOffset).
		u16(m.PacketOffset).
		u16(m.Length).
		pad(2)
}

// RawInstruction holds an instruction variant the control plane does not
// interpret.
type RawInstruction struct {
	Kind InstructionType
	Body [instructionDataSize]byte
}

func (r RawInstruction) InstructionType() InstructionType { return r.Kind }
func (RawInstruction) RequiredSize() int                  { return instructionDataSize }
func (r RawInstruction) Encode(into []byte)               { copy(into, r.Body[:]) }

func decodeInstruction(r *Reader) Instruction {
	kind := InstructionType(r.u16())
	r.skip(6)
	d := r.area(instructionDataSize)
	defer r.absorb(d)

	switch kind {
	case InstructionApplyActions, InstructionWriteActions:
		n := d.u8()
		d.skip(7)
		actions := decodeActions(d, n)
		if kind == InstructionApplyActions {
			return Ins(ApplyActions{Actions: actions})
		}
		return Ins(WriteActions{Actions: actions})
	case InstructionClearActions:
		return Ins(ClearActions{})
	case InstructionGotoTable:
		g := GotoTable{NextTableID: d.u8()}
		n := d.u8()
		g.PacketOffset = d.u16()
		d.skip(4)
		g.Match = decodeMatches(d, n)
		return Ins(g)
	case InstructionGotoDirectTable:
		return Ins(GotoDirectTable{
			NextTableID:     d.u8(),
			IndexType:       d.u8(),
			PacketOffset:    d.u16(),
			TableEntryIndex: d.u32(),
		})
	case InstructionMeter:
		return Ins(Meter{MeterID: d.u32()})
	case InstructionWriteMetadata:
		m := WriteMetadata{MetadataOffset: d.u16(), Length: d.u16()}
		d.skip(4)
		d.fixed(m.Value[:])
		return Ins(m)
	case InstructionWriteMetadataFromPacket:
		m := WriteMetadataFromPacket{
			MetadataOffset: d.u16(),
			PacketOffset:   d.u16(),
			Length:         d.u16(),
		}
		return Ins(m)
	default:
		raw := RawInstruction{Kind: kind}
		d.fixed(raw.Body[:])
		return Ins(raw)
	}
}

// decodeMatches reads a fixed array of MaxMatchFields matches, of which only
// the first n are kept.
func decodeMatches(r *Reader, n uint8) []Match {
	if int(n) > MaxMatchFields {
		r.fail(fmt.Errorf("%w: %d match fields", ErrTooMany, n))
		return nil
	}
	out := make([]Match, 0, n)
	for i := 0; i < MaxMatchFields; i++ {
		m := decodeMatch(r)
		if i < int(n) {
			out = append(out, m)
		}
	}
	return out
}

func encodeMatches(w *Writer, matches []Match) {
	for i := 0; i < MaxMatchFields; i++ {
		if i < len(matches) {
			w.encoder(matches[i])
		} else {
			w.pad(matchSize)
		}
	}
}
