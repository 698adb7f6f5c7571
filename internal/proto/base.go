package proto

import (
	"encoding/binary"
	"fmt"
)

// MsgType identifies the body carried by a message.
type MsgType uint8

const (
	TypeHello                 MsgType = 0
	TypeError                 MsgType = 1
	TypeEchoRequest           MsgType = 2
	TypeEchoReply             MsgType = 3
	TypeExperimenter          MsgType = 4
	TypeFeaturesRequest       MsgType = 5
	TypeFeaturesReply         MsgType = 6
	TypeGetConfigRequest      MsgType = 7
	TypeGetConfigReply        MsgType = 8
	TypeSetConfig             MsgType = 9
	TypePacketIn              MsgType = 10
	TypeFlowRemoved           MsgType = 11
	TypePortStatus            MsgType = 12
	TypeResourceReport        MsgType = 13
	TypePacketOut             MsgType = 14
	TypeFlowMod               MsgType = 15
	TypeGroupMod              MsgType = 16
	TypePortMod               MsgType = 17
	TypeTableMod              MsgType = 18
	TypeMultipartRequest      MsgType = 19
	TypeMultipartReply        MsgType = 20
	TypeBarrierRequest        MsgType = 21
	TypeBarrierReply          MsgType = 22
	TypeQueueGetConfigRequest MsgType = 23
	TypeQueueGetConfigReply   MsgType = 24
	TypeRoleRequest           MsgType = 25
	TypeRoleReply             MsgType = 26
	TypeGetAsyncRequest       MsgType = 27
	TypeGetAsyncReply         MsgType = 28
	TypeSetAsync              MsgType = 29
	TypeMeterMod              MsgType = 30
	TypeCounterMod            MsgType = 31
	TypeCounterRequest        MsgType = 32
	TypeCounterReply          MsgType = 33
	TypeQueryAllRequest       MsgType = 34
	TypeQueryAllFin           MsgType = 35
	TypeSlotConfig            MsgType = 36
	TypeSlotStatus            MsgType = 37
	TypeInstructionBlockMod   MsgType = 38
)

var msgTypeNames = map[MsgType]string{
	TypeHello:                 "HELLO",
	TypeError:                 "ERROR",
	TypeEchoRequest:           "ECHO_REQUEST",
	TypeEchoReply:             "ECHO_REPLY",
	TypeExperimenter:          "EXPERIMENTER",
	TypeFeaturesRequest:       "FEATURES_REQUEST",
	TypeFeaturesReply:         "FEATURES_REPLY",
	TypeGetConfigRequest:      "GET_CONFIG_REQUEST",
	TypeGetConfigReply:        "GET_CONFIG_REPLY",
	TypeSetConfig:             "SET_CONFIG",
	TypePacketIn:              "PACKET_IN",
	TypeFlowRemoved:           "FLOW_REMOVED",
	TypePortStatus:            "PORT_STATUS",
	TypeResourceReport:        "RESOURCE_REPORT",
	TypePacketOut:             "PACKET_OUT",
	TypeFlowMod:               "FLOW_MOD",
	TypeGroupMod:              "GROUP_MOD",
	TypePortMod:               "PORT_MOD",
	TypeTableMod:              "TABLE_MOD",
	TypeMultipartRequest:      "MULTIPART_REQUEST",
	TypeMultipartReply:        "MULTIPART_REPLY",
	TypeBarrierRequest:        "BARRIER_REQUEST",
	TypeBarrierReply:          "BARRIER_REPLY",
	TypeQueueGetConfigRequest: "QUEUE_GET_CONFIG_REQUEST",
	TypeQueueGetConfigReply:   "QUEUE_GET_CONFIG_REPLY",
	TypeRoleRequest:           "ROLE_REQUEST",
	TypeRoleReply:             "ROLE_REPLY",
	TypeGetAsyncRequest:       "GET_ASYNC_REQUEST",
	TypeGetAsyncReply:         "GET_ASYNC_REPLY",
	TypeSetAsync:              "SET_ASYNC",
	TypeMeterMod:              "METER_MOD",
	TypeCounterMod:            "COUNTER_MOD",
	TypeCounterRequest:        "COUNTER_REQUEST",
	TypeCounterReply:          "COUNTER_REPLY",
	TypeQueryAllRequest:       "QUERYALL_REQUEST",
	TypeQueryAllFin:           "QUERYALL_FIN",
	TypeSlotConfig:            "SLOT_CONFIG",
	TypeSlotStatus:            "SLOT_STATUS",
	TypeInstructionBlockMod:   "INSTRUCTION_BLOCK_MOD",
}

func (t MsgType) String() string {
	if n, ok := msgTypeNames[t]; ok {
		return n
	}
	return fmt.Sprintf("MsgType(%d)", uint8(t))
}

const (
	// ProtocolVersion is the version byte carried by every header.
	ProtocolVersion uint8 = 0x04

	// MaxMessageSize bounds the declared length of a single message.
	MaxMessageSize = 8192

	MaxFieldBytes            = 16
	MaxMatchFields           = 8
	MaxInstructions          = 6
	MaxActionsPerInstruction = 6
	MaxNameLength            = 64
	MaxErrorStringLength     = 256
	MaxTableTypes            = 4

	// SlotIDAll is the wildcard slot used by QueryAllRequest.
	SlotIDAll uint16 = 0xFFFF
)

// Message abstracts relevant methods of a message body
type Message interface {
	Type() MsgType
	Encoder
}

// Encoder represents any structure that can be encoded by Writer or any
// other encoding facility
type Encoder interface {
	// RequiredSize returns the amount of bytes required to encode the current
	// structure.
	RequiredSize() int

	// Encode takes a slice of bytes and writes the current structure's
	// serialized representation into it. It assumes that len(into) is equal or
	// greater to the value returned by RequiredSize.
	Encode(into []byte)
}

var (
	u16Marshal   = binary.BigEndian.PutUint16
	u32Marshal   = binary.BigEndian.PutUint32
	u64Marshal   = binary.BigEndian.PutUint64
	u16Unmarshal = binary.BigEndian.Uint16
	u32Unmarshal = binary.BigEndian.Uint32
	u64Unmarshal = binary.BigEndian.Uint64
)

// bodyDecoderList associates each MsgType with a function that decodes its
// body. Types absent from this list are kept as Raw messages so that the
// dispatcher can reject them.
var bodyDecoderList = map[MsgType]func(r *Reader) (Message, error){
	TypeHello:               func(r *Reader) (Message, error) { return &HelloBody{Data: r.rest()}, nil },
	TypeEchoRequest:         func(r *Reader) (Message, error) { return &EchoRequest{Data: r.rest()}, nil },
	TypeEchoReply:           func(r *Reader) (Message, error) { return &EchoReply{Data: r.rest()}, nil },
	TypeFeaturesRequest:     func(r *Reader) (Message, error) { return &FeaturesRequest{}, nil },
	TypeGetConfigRequest:    func(r *Reader) (Message, error) { return &GetConfigRequest{}, nil },
	TypeQueryAllFin:         func(r *Reader) (Message, error) { return &QueryAllFin{}, nil },
	TypeError:               decodeAs(decodeErrorMessage),
	TypeFeaturesReply:       decodeAs(decodeFeaturesReply),
	TypeGetConfigReply:      decodeAs(decodeGetConfigReply),
	TypeSetConfig:           decodeAs(decodeSwitchConfig),
	TypePortStatus:          decodeAs(decodePortStatus),
	TypeResourceReport:      decodeAs(decodeResourceReport),
	TypePortMod:             decodeAs(decodePortMod),
	TypeTableMod:            decodeAs(decodeFlowTable),
	TypeFlowMod:             decodeAs(decodeFlowEntry),
	TypeRoleRequest:         decodeAs(decodeRoleRequest),
	TypeRoleReply:           decodeAs(decodeRoleReply),
	TypePacketOut:           decodeAs(decodePacketOut),
	TypeMeterMod:            decodeAs(decodeMeter),
	TypeGroupMod:            decodeAs(decodeGroup),
	TypeCounterMod:          decodeAs(decodeCounterMod),
	TypeCounterRequest:      decodeAs(decodeCounterRequest),
	TypeCounterReply:        decodeAs(decodeCounterReply),
	TypeQueryAllRequest:     decodeAs(decodeQueryAllRequest),
	TypeSlotConfig:          decodeAs(decodeSlotConfig),
	TypeSlotStatus:          decodeAs(decodeSlotStatus),
	TypeInstructionBlockMod: decodeAs(decodeInstructionBlock),
}

func decodeAs[T Message](fn func(r *Reader) (T, error)) func(r *Reader) (Message, error) {
	return func(r *Reader) (Message, error) {
		v, err := fn(r)
		if err != nil {
			return nil, err
		}
		return v, nil
	}
}

// fixedString returns the string stored in a NUL-padded buffer.
func fixedString(b []byte) string {
	for i, c := range b {
		if c == 0 {
			return string(b[:i])
		}
	}
	return string(b)
}
