package resource

import (
	"fmt"

	"github.com/heyvito/pofswitch/internal/proto"
)

// Op is a single mutation applied to a Resource.
type Op interface {
	Name() string
	Apply(r Resource) error
}

type CreateTable struct{ Table proto.FlowTable }

func (CreateTable) Name() string             { return "create_table" }
func (o CreateTable) Apply(r Resource) error { return r.CreateTable(o.Table) }

type DeleteTable struct {
	TableID   uint8
	TableType proto.TableType
}

func (DeleteTable) Name() string             { return "delete_table" }
func (o DeleteTable) Apply(r Resource) error { return r.DeleteTable(o.TableID, o.TableType) }

type AddFlow struct{ Entry proto.FlowEntry }

func (AddFlow) Name() string             { return "add_flow" }
func (o AddFlow) Apply(r Resource) error { return r.AddFlow(o.Entry) }

type DeleteFlow struct{ Entry proto.FlowEntry }

func (DeleteFlow) Name() string             { return "delete_flow" }
func (o DeleteFlow) Apply(r Resource) error { return r.DeleteFlow(o.Entry) }

type ModifyFlow struct{ Entry proto.FlowEntry }

func (ModifyFlow) Name() string             { return "modify_flow" }
func (o ModifyFlow) Apply(r Resource) error { return r.ModifyFlow(o.Entry) }

type AddMeter struct{ MeterID, Rate uint32 }

func (AddMeter) Name() string             { return "add_meter" }
func (o AddMeter) Apply(r Resource) error { return r.AddMeter(o.MeterID, o.Rate) }

type ModifyMeter struct{ MeterID, Rate uint32 }

func (ModifyMeter) Name() string             { return "modify_meter" }
func (o ModifyMeter) Apply(r Resource) error { return r.ModifyMeter(o.MeterID, o.Rate) }

type DeleteMeter struct{ MeterID uint32 }

func (DeleteMeter) Name() string             { return "delete_meter" }
func (o DeleteMeter) Apply(r Resource) error { return r.DeleteMeter(o.MeterID) }

type AddGroup struct{ Group proto.GroupMod }

func (AddGroup) Name() string             { return "add_group" }
func (o AddGroup) Apply(r Resource) error { return r.AddGroup(o.Group) }

type ModifyGroup struct{ Group proto.GroupMod }

func (ModifyGroup) Name() string             { return "modify_group" }
func (o ModifyGroup) Apply(r Resource) error { return r.ModifyGroup(o.Group) }

type DeleteGroup struct{ GroupID uint32 }

func (DeleteGroup) Name() string             { return "delete_group" }
func (o DeleteGroup) Apply(r Resource) error { return r.DeleteGroup(o.GroupID) }

type InitCounter struct{ CounterID uint32 }

func (InitCounter) Name() string             { return "init_counter" }
func (o InitCounter) Apply(r Resource) error { return r.InitCounter(o.CounterID) }

type ClearCounter struct{ CounterID uint32 }

func (ClearCounter) Name() string             { return "clear_counter" }
func (o ClearCounter) Apply(r Resource) error { return r.ClearCounter(o.CounterID) }

type DeleteCounter struct{ CounterID uint32 }

func (DeleteCounter) Name() string             { return "delete_counter" }
func (o DeleteCounter) Apply(r Resource) error { return r.DeleteCounter(o.CounterID) }

type SetPortEnable struct {
	PortID uint32
	Enable bool
}

func (SetPortEnable) Name() string             { return "set_port_enable" }
func (o SetPortEnable) Apply(r Resource) error { return r.SetPortEnable(o.PortID, o.Enable) }

// SetSlotPortsEnable toggles every port of a slot, stopping at the first
// port that fails.
type SetSlotPortsEnable struct{ Enable bool }

func (SetSlotPortsEnable) Name() string { return "set_slot_ports_enable" }

func (o SetSlotPortsEnable) Apply(r Resource) error {
	for _, id := range r.PortIDs() {
		if err := r.SetPortEnable(id, o.Enable); err != nil {
			return fmt.Errorf("port %d: %w", id, err)
		}
	}
	return nil
}

type AddInstructionBlock struct{ Block proto.InstructionBlock }

func (AddInstructionBlock) Name() string             { return "add_instruction_block" }
func (o AddInstructionBlock) Apply(r Resource) error { return r.AddInstructionBlock(o.Block) }

type ModifyInstructionBlock struct{ Block proto.InstructionBlock }

func (ModifyInstructionBlock) Name() string             { return "modify_instruction_block" }
func (o ModifyInstructionBlock) Apply(r Resource) error { return r.ModifyInstructionBlock(o.Block) }

type DeleteInstructionBlock struct{ BlockID uint16 }

func (DeleteInstructionBlock) Name() string             { return "delete_instruction_block" }
func (o DeleteInstructionBlock) Apply(r Resource) error { return r.DeleteInstructionBlock(o.BlockID) }
