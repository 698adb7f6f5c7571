package proto

import "fmt"

// TableType is the lookup discipline of a flow table.
type TableType uint8

const (
	TableMaskedMatch  TableType = 0
	TableLongestMatch TableType = 1
	TableExactMatch   TableType = 2
	TableLinear       TableType = 3
)

var tableTypeNames = map[TableType]string{
	TableMaskedMatch:  "MM",
	TableLongestMatch: "LPM",
	TableExactMatch:   "EM",
	TableLinear:       "LINEAR",
}

func (t TableType) String() string {
	if n, ok := tableTypeNames[t]; ok {
		return n
	}
	return fmt.Sprintf("TableType(%d)", uint8(t))
}

// TableCommand is the operation requested by a TableMod.
type TableCommand uint8

const (
	TableAdd    TableCommand = 0
	TableModify TableCommand = 1
	TableDelete TableCommand = 2
)

func (c TableCommand) String() string {
	switch c {
	case TableAdd:
		return "ADD"
	case TableModify:
		return "MODIFY"
	case TableDelete:
		return "DELETE"
	}
	return fmt.Sprintf("TableCommand(%d)", uint8(c))
}

const flowTableSize = 16 + MaxNameLength + MaxMatchFields*matchSize

// FlowTable is the body of a TableMod message. Ingress, ActionsMask and
// Valid travel in bytes the base layout reserves as padding, and are only
// consumed by the offload translator.
type FlowTable struct {
	Command     TableCommand
	TableID     uint8
	TableType   TableType
	Size        uint32
	KeyLength   uint16
	Ingress     uint8
	ActionsMask uint8
	Valid       uint8
	Name        string
	Match       []Match
}

func (*FlowTable) Type() MsgType     { return TypeTableMod }
func (*FlowTable) RequiredSize() int { return flowTableSize }

func (t *FlowTable) Encode(into []byte) {
	w := newWriter(into).
		u8(uint8(t.Command)).
		u8(t.TableID).
		u8(uint8(t.TableType)).
		u8(uint8(len(t.Match))).
		u32(t.Size).
		u16(t.KeyLength).
		u8(t.Ingress).
		u8(t.ActionsMask).
		u8(t.Valid).
		pad(3).
		str(t.Name, MaxNameLength)
	encodeMatches(w, t.Match)
}

func decodeFlowTable(r *Reader) (*FlowTable, error) {
	t := &FlowTable{
		Command:   TableCommand(r.u8()),
		TableID:   r.u8(),
		TableType: TableType(r.u8()),
	}
	n := r.u8()
	t.Size = r.u32()
	t.KeyLength = r.u16()
	t.Ingress = r.u8()
	t.ActionsMask = r.u8()
	t.Valid = r.u8()
	r.skip(3)
	t.Name = fixedString(r.bytes(MaxNameLength))
	t.Match = decodeMatches(r, n)
	return t, r.Err()
}
