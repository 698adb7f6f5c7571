package dispatch

import (
	"github.com/google/gopacket"
	"github.com/heyvito/pofswitch/internal/proto"
	"github.com/heyvito/pofswitch/internal/resource"
	"github.com/heyvito/pofswitch/internal/role"
)

// ReplySender delivers a message to a controller connection, tagged with
// xid. Implementations must not block indefinitely.
type ReplySender interface {
	SendReply(conn role.ConnID, xid uint32, msg proto.Message) error
}

// ConfigStore holds the switch-wide configuration.
type ConfigStore interface {
	SetConfig(flags, missSendLen uint16) error
	Config() proto.SwitchConfig

	// ResetDeviceID assigns, and returns, the device id reported in
	// feature replies.
	ResetDeviceID() (uint32, error)

	// DeviceID returns the current device id.
	DeviceID() uint32
}

// PacketContext describes a packet injected by a PacketOut.
type PacketContext struct {
	Conn     role.ConnID
	Slot     uint16
	InPort   uint32
	BufferID uint32
	Data     []byte

	// Packet is a lazily decoded view of Data.
	Packet gopacket.Packet

	// Resource is the local resource of Slot. It may only be used during
	// the Execute call that received this context.
	Resource resource.Resource
}

// ActionExecutor runs actions against an injected packet.
type ActionExecutor interface {
	Execute(ctx *PacketContext, actions []proto.Action) error
}

// OffloadTranslator mirrors applied tables and flows to an offload target.
// Both methods must return without waiting for the target.
type OffloadTranslator interface {
	SubmitFlow(entry proto.FlowEntry, cmd proto.FlowCommand)
	SubmitTable(table proto.FlowTable)
}

type nopOffload struct{}

func (nopOffload) SubmitFlow(proto.FlowEntry, proto.FlowCommand) {}
func (nopOffload) SubmitTable(proto.FlowTable)                   {}

type nopExecutor struct{}

func (nopExecutor) Execute(*PacketContext, []proto.Action) error { return nil }
