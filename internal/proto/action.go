package proto

import "fmt"

const (
	actionSize     = 48
	actionDataSize = actionSize - 4
)

// ActionType identifies the variant carried by an Action.
type ActionType uint16

const (
	ActionOutput               ActionType = 0
	ActionSetField             ActionType = 1
	ActionSetFieldFromMetadata ActionType = 2
	ActionModifyField          ActionType = 3
	ActionAddField             ActionType = 4
	ActionDeleteField          ActionType = 5
	ActionCalculateChecksum    ActionType = 6
	ActionGroup                ActionType = 7
	ActionDrop                 ActionType = 8
	ActionPacketIn             ActionType = 9
	ActionCounter              ActionType = 10
)

var actionTypeNames = map[ActionType]string{
	ActionOutput:               "OUTPUT",
	ActionSetField:             "SET_FIELD",
	ActionSetFieldFromMetadata: "SET_FIELD_FROM_METADATA",
	ActionModifyField:          "MODIFY_FIELD",
	ActionAddField:             "ADD_FIELD",
	ActionDeleteField:          "DELETE_FIELD",
	ActionCalculateChecksum:    "CALCULATE_CHECKSUM",
	ActionGroup:                "GROUP",
	ActionDrop:                 "DROP",
	ActionPacketIn:             "PACKET_IN",
	ActionCounter:              "COUNTER",
}

func (t ActionType) String() string {
	if n, ok := actionTypeNames[t]; ok {
		return n
	}
	return fmt.Sprintf("ActionType(%d)", uint16(t))
}

// ActionData is implemented by every action variant.
type ActionData interface {
	Encoder
	ActionType() ActionType
}

// Action is a single tagged action. Its encoded form is always actionSize
// bytes regardless of the variant.
type Action struct {
	Data ActionData
}

// Act wraps an action variant.
func Act(data ActionData) Action { return Action{Data: data} }

func (a Action) Type() ActionType { return a.Data.ActionType() }

func (a Action) RequiredSize() int { return actionSize }

func (a Action) Encode(into []byte) {
	newWriter(into).
		u16(uint16(a.Type())).
		u16(actionSize).
		area(actionDataSize, func(w *Writer) { w.encoder(a.Data) })
}

func (a Action) String() string { return a.Type().String() }

// Output forwards the packet through OutputPortID.
type Output struct {
	PortIDType     uint8
	OutputPortID   uint32
	MetadataOffset uint16
	MetadataLength uint16
	PacketOffset   uint16
}

func (Output) ActionType() ActionType { return ActionOutput }
func (Output) RequiredSize() int      { return 14 }

func (o Output) Encode(into []byte) {
	newWriter(into).
		u8(o.PortIDType).
		pad(3).
		u32(o.OutputPortID).
		u16(o.MetadataOffset).
		u16(o.MetadataLength).
		u16(o.PacketOffset)
}

// SetField overwrites a packet field with a value.
type SetField struct {
	Field MatchX
}

func (SetField) ActionType() ActionType { return ActionSetField }
func (SetField) RequiredSize() int      { return matchXSize }
func (s SetField) Encode(into []byte)   { s.Field.Encode(into) }

// ModifyField adds Increment to a packet field.
type ModifyField struct {
	Field     Match
	Increment int32
}

func (ModifyField) ActionType() ActionType { return ActionModifyField }
func (ModifyField) RequiredSize() int      { return matchSize + 4 }

func (m ModifyField) Encode(into []byte) {
	newWriter(into).
		encoder(m.Field).
		u32(uint32(m.Increment))
}

// AddField inserts a TagLen-bit tag at bit TagPos.
type AddField struct {
	TagID    uint16
	TagPos   uint16
	TagLen   uint32
	TagValue [MaxFieldBytes]byte
}

func (AddField) ActionType() ActionType { return ActionAddField }
func (AddField) RequiredSize() int      { return 8 + MaxFieldBytes }

func (a AddField) Encode(into []byte) {
	newWriter(into).
		u16(a.TagID).
		u16(a.TagPos).
		u32(a.TagLen).
		bytes(a.TagValue[:])
}

// DeleteField removes TagLen bits starting at bit TagPos.
type DeleteField struct {
	TagPos  uint16
	LenType uint8
	TagLen  uint32
}

func (DeleteField) ActionType() ActionType { return ActionDeleteField }
func (DeleteField) RequiredSize() int      { return 8 }

func (d DeleteField) Encode(into []byte) {
	newWriter(into).
		u16(d.TagPos).
		u8(d.LenType).
		pad(1).
		u32(d.TagLen)
}

// CalculateChecksum recomputes a checksum over a range of the packet.
type CalculateChecksum struct {
	ChecksumPosType uint8
	CalcPosType     uint8
	ChecksumPos     uint16
	ChecksumLen     uint16
	CalcStartPos    uint16
	CalcLen         uint16
}

func (CalculateChecksum) ActionType() ActionType { return ActionCalculateChecksum }
func (CalculateChecksum) RequiredSize() int      { return 10 }

func (c CalculateChecksum) Encode(into []byte) {
	newWriter(into).
		u8(c.ChecksumPosType).
		u8(c.CalcPosType).
		u16(c.ChecksumPos).
		u16(c.ChecksumLen).
		u16(c.CalcStartPos).
		u16(c.CalcLen)
}

// Drop discards the packet.
type Drop struct {
	ReasonCode uint32
}

func (Drop) ActionType() ActionType { return ActionDrop }
func (Drop) RequiredSize() int      { return 4 }
func (d Drop) Encode(into []byte)   { u32Marshal(into, d.ReasonCode) }

// PacketIn sends the packet to the controller.
type PacketIn struct {
	ReasonCode uint32
}

func (PacketIn) ActionType() ActionType { return ActionPacketIn }
func (PacketIn) RequiredSize() int      { return 4 }
func (p PacketIn) Encode(into []byte)   { u32Marshal(into, p.ReasonCode) }

// RawAction holds an action variant the control plane does not interpret.
type RawAction struct {
	Kind ActionType
	Body [actionDataSize]byte
}

func (r RawAction) ActionType() ActionType { return r.Kind }
func (RawAction) RequiredSize() int        { return actionDataSize }
func (r RawAction) Encode(into []byte)     { copy(into, r.Body[:]) }

func decodeAction(r *Reader) Action {
	kind := ActionType(r.u16())
	r.skip(2)
	d := r.area(actionDataSize)
	defer r.absorb(d)

	switch kind {
	case ActionOutput:
		o := Output{PortIDType: d.u8()}
		d.skip(3)
		o.OutputPortID = d.u32()
		o.MetadataOffset = d.u16()
		o.MetadataLength = d.u16()
		o.PacketOffset = d.u16()
		return Act(o)
	case ActionSetField:
		return Act(SetField{Field: decodeMatchX(d)})
	case ActionModifyField:
		return Act(ModifyField{Field: decodeMatch(d), Increment: int32(d.u32())})
	case ActionAddField:
		a := AddField{TagID: d.u16(), TagPos: d.u16(), TagLen: d.u32()}
		d.fixed(a.TagValue[:])
		return Act(a)
	case ActionDeleteField:
		del := DeleteField{TagPos: d.u16(), LenType: d.u8()}
		d.skip(1)
		del.TagLen = d.u32()
		return Act(del)
	case ActionCalculateChecksum:
		return Act(CalculateChecksum{
			ChecksumPosType: d.u8(),
			CalcPosType:     d.u8(),
			ChecksumPos:     d.u16(),
			ChecksumLen:     d.u16(),
			CalcStartPos:    d.u16(),
			CalcLen:         d.u16(),
		})
	case ActionDrop:
		return Act(Drop{ReasonCode: d.u32()})
	case ActionPacketIn:
		return Act(PacketIn{ReasonCode: d.u32()})
	default:
		raw := RawAction{Kind: kind}
		d.fixed(raw.Body[:])
		return Act(raw)
	}
}

// decodeActions reads a fixed array of MaxActionsPerInstruction actions, of
// which only the first n are kept.
func decodeActions(r *Reader, n uint8) []Action {
	if int(n) > MaxActionsPerInstruction {
		r.fail(fmt.Errorf("%w: %d actions", ErrTooMany, n))
		return nil
	}
	actions := make([]Action, 0, n)
	for i := 0; i < MaxActionsPerInstruction; i++ {
		a := decodeAction(r)
		if i < int(n) {
			actions = append(actions, a)
		}
	}
	return actions
}

func encodeActions(w *Writer, actions []Action) {
	for i := 0; i < MaxActionsPerInstruction; i++ {
		if i < len(actions) {
			w.encoder(actions[i])
		} else {
			w.pad(actionSize)
		}
	}
}
