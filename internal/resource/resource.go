package resource

import (
	"fmt"

	"github.com/heyvito/pofswitch/internal/proto"
)

// Resource is the local-resource store of a single slot. Implementations do
// not need to be safe for concurrent use: Datapath serialises every call made
// against the same slot.
type Resource interface {
	SlotID() uint16

	CreateTable(table proto.FlowTable) error
	DeleteTable(tableID uint8, tableType proto.TableType) error

	AddFlow(entry proto.FlowEntry) error
	DeleteFlow(entry proto.FlowEntry) error
	ModifyFlow(entry proto.FlowEntry) error

	AddMeter(meterID, rate uint32) error
	ModifyMeter(meterID, rate uint32) error
	DeleteMeter(meterID uint32) error

	AddGroup(group proto.GroupMod) error
	ModifyGroup(group proto.GroupMod) error
	DeleteGroup(groupID uint32) error

	InitCounter(counterID uint32) error
	ClearCounter(counterID uint32) error
	DeleteCounter(counterID uint32) error

	SetPortEnable(portID uint32, enable bool) error

	AddInstructionBlock(block proto.InstructionBlock) error
	ModifyInstructionBlock(block proto.InstructionBlock) error
	DeleteInstructionBlock(blockID uint16) error

	// TableResource reports the table, counter, meter and group capacity of
	// the slot.
	TableResource() proto.ResourceReport

	// PortResources reports every port of the slot.
	PortResources() []proto.PortStatus

	// FeatureResource reports the features of the slot.
	FeatureResource(deviceID uint32) proto.FeaturesReply

	// CounterValue returns the current value of a counter.
	CounterValue(counterID uint32) (proto.Counter, error)

	// QueryAll dumps every resource the slot holds, as the messages that
	// would recreate them.
	QueryAll() []proto.Message

	// PortIDs lists the ports of the slot in a stable order.
	PortIDs() []uint32
}

// Error is a typed failure a Resource reports for the controller's benefit.
// The dispatcher forwards Type and Code in the error reply.
type Error struct {
	Type proto.ErrorType
	Code uint16
	Msg  string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s/0x%04x: %s", e.Type, e.Code, e.Msg)
}

// Errorf returns a new *Error.
func Errorf(typ proto.ErrorType, code uint16, format string, args ...any) *Error {
	return &Error{Type: typ, Code: code, Msg: fmt.Sprintf(format, args...)}
}
