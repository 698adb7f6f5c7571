package proto

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoleRequest_Decode(t *testing.T) {
	pkt, err := ParsePacket(hex2Bytes(`04 19 0018 00000011  02 00000000000000 0000000000000005`))
	require.NoError(t, err)
	assert.Equal(t, &RoleRequest{RoleBody{Role: RoleMaster, GenerationID: 5}}, pkt.Message)
}

func TestErrorMessage_Encode(t *testing.T) {
	msg := NewError(ErrTableModFailed, CodeTableModBadCommand, 0x0A0B0C0D, "bad")
	data := encodeEncoder(msg)
	require.Len(t, data, 264)
	assert.Equal(t, hex2Bytes(`0008 0003 0A0B0C0D 626164 00`), data[:12])

	decoded := roundTrip(t, msg)
	assert.Equal(t, msg, decoded)
}

func TestErrorMessage_Truncates(t *testing.T) {
	long := make([]byte, 300)
	for i := range long {
		long[i] = 'x'
	}
	msg := NewError(ErrSoftwareFailed, CodeResourceFailure, 0, string(long))
	assert.Len(t, msg.Text, MaxErrorStringLength)
}

func TestFlowTable_Decode(t *testing.T) {
	table := &FlowTable{
		Command:     TableAdd,
		TableID:     3,
		TableType:   TableLongestMatch,
		Size:        1024,
		KeyLength:   32,
		Ingress:     1,
		ActionsMask: 0x05,
		Valid:       1,
		Name:        "FirstEntryTable",
		Match:       []Match{{FieldID: 9, Offset: 240, Length: 32}},
	}
	data := encodeEncoder(table)
	require.Len(t, data, 144)
	assert.Equal(t, hex2Bytes(`00 03 01 01 00000400 0020 01 05 01 000000`), data[:16])
	assert.Equal(t, table, roundTrip(t, table))
}

func TestFlowTable_Short(t *testing.T) {
	_, err := ParseMessage(Header{Type: TypeTableMod}, hex2Bytes(`09 03 01 00`))
	assert.ErrorIs(t, err, ErrShortBody)
}

func TestPortMod_Decode(t *testing.T) {
	mod := &PortMod{
		Reason: PortModified,
		Port: Port{
			SlotID:    1,
			PortID:    7,
			HWAddr:    net.HardwareAddr{0x02, 0, 0, 0, 0, 7},
			Name:      "eth7",
			CurrSpeed: 10000,
			MaxSpeed:  10000,
			OFEnable:  true,
		},
	}
	data := encodeEncoder(mod)
	require.Len(t, data, 128)
	assert.Equal(t, hex2Bytes(`02 00000000000000 0001 0000 00000007 020000000007 0000`), data[:24])
	assert.Equal(t, byte(1), data[8+112])
	assert.Equal(t, mod, roundTrip(t, mod))
}

func TestPacketOut_Decode(t *testing.T) {
	out := &PacketOut{
		BufferID: 0xFFFFFFFF,
		InPort:   1,
		Actions:  []Action{Act(Output{OutputPortID: 3})},
		Data:     []byte{0xDE, 0xAD, 0xBE, 0xEF},
	}
	assert.Equal(t, out, roundTrip(t, out))
}

func TestPacketOut_DeclaredLengthBeyondBody(t *testing.T) {
	out := &PacketOut{Actions: []Action{Act(Drop{})}, Data: []byte{1, 2}}
	data := encodeEncoder(out)
	u32Marshal(data[12:], 3)

	_, err := ParseMessage(Header{Type: TypePacketOut}, data)
	assert.ErrorIs(t, err, ErrShortBody)
}

func TestGroupMod_Decode(t *testing.T) {
	g := &GroupMod{
		Command:   EntryModify,
		GroupType: GroupSelect,
		GroupID:   4,
		CounterID: 8,
		SlotID:    1,
		Actions:   []Action{Act(Output{OutputPortID: 1}), Act(PacketIn{ReasonCode: 2})},
	}
	data := encodeEncoder(g)
	require.Len(t, data, 304)
	assert.Equal(t, g, roundTrip(t, g))
}

func TestGroupMod_TooManyActions(t *testing.T) {
	data := encodeEncoder(&GroupMod{Actions: []Action{Act(Drop{})}})
	data[2] = MaxActionsPerInstruction + 1
	_, err := ParseMessage(Header{Type: TypeGroupMod}, data)
	assert.ErrorIs(t, err, ErrTooMany)
}

func TestCounter_Layout(t *testing.T) {
	reply := &CounterReply{Counter{SlotID: 2, CounterID: 9, Value: 100, ByteValue: 6400}}
	assert.Equal(t,
		hex2Bytes(`00 00 0002 00000009 0000000000000064 0000000000001900`),
		encodeEncoder(reply))
}

func TestSmallBodies(t *testing.T) {
	assert.Equal(t, hex2Bytes(`00 00 0001 000003E8 00000005 00000000`),
		encodeEncoder(&MeterMod{Command: EntryAdd, SlotID: 1, Rate: 1000, MeterID: 5}))
	assert.Equal(t, hex2Bytes(`FFFF 000000000000`), encodeEncoder(&QueryAllRequest{SlotID: SlotIDAll}))
	assert.Equal(t, hex2Bytes(`0003 01 0000000000`), encodeEncoder(&SlotConfig{SlotID: 3, Enable: true}))
	assert.Equal(t, hex2Bytes(`0003 01 01 00000000`),
		encodeEncoder(&SlotStatus{SlotID: 3, State: SlotUp, Reason: SlotReasonResend}))
	assert.Equal(t, hex2Bytes(`0001 0080`), encodeEncoder(&GetConfigReply{SwitchConfig{Flags: 1, MissSendLen: 128}}))
}

func TestFeaturesReply_Layout(t *testing.T) {
	f := &FeaturesReply{DeviceID: 1, PortNum: 4, TableNum: 8, SlotID: 2, VendorID: "pof"}
	data := encodeEncoder(f)
	require.Len(t, data, 208)
	assert.Equal(t, hex2Bytes(`00000001 0004 0008 00000000 0002 0000 706f66 00`), data[:20])
	assert.Equal(t, f, roundTrip(t, f))
}

func TestResourceReport_Layout(t *testing.T) {
	rr := &ResourceReport{
		SlotID:     1,
		CounterNum: 512,
		Tables: [MaxTableTypes]TableCapacity{
			{Type: TableMaskedMatch, TableNum: 4, KeyLength: 320, TotalSize: 1000},
			{Type: TableLongestMatch},
			{Type: TableExactMatch},
			{Type: TableLinear},
		},
	}
	data := encodeEncoder(rr)
	require.Len(t, data, 48)
	assert.Equal(t, hex2Bytes(`00 00 0001 00000200 00000000 00000000 00 04 0140 000003E8`), data[:24])
	assert.Equal(t, rr, roundTrip(t, rr))
}

func TestInstructionBlock_Decode(t *testing.T) {
	b := &InstructionBlock{
		Command:        FlowModify,
		BlockID:        12,
		RelatedTableID: 1,
		Instructions: []Instruction{
			Ins(Meter{MeterID: 3}),
			Ins(WriteMetadataFromPacket{MetadataOffset: 32, PacketOffset: 96, Length: 16}),
		},
	}
	assert.Equal(t, b, roundTrip(t, b))
}
