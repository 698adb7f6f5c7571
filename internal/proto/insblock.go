package proto

import "fmt"

// InstructionBlock is a named, reusable list of instructions bound to a
// table. It is the body of an InstructionBlockMod message, whose Command
// takes FlowAdd, FlowModify or FlowDelete.
type InstructionBlock struct {
	Command        FlowCommand
	BlockID        uint16
	RelatedTableID uint8
	Instructions   []Instruction
}

func (*InstructionBlock) Type() MsgType { return TypeInstructionBlockMod }

func (*InstructionBlock) RequiredSize() int {
	return 8 + MaxInstructions*instructionSize
}

func (b *InstructionBlock) Encode(into []byte) {
	w := newWriter(into).
		u8(uint8(b.Command)).
		u8(uint8(len(b.Instructions))).
		u16(b.BlockID).
		u8(b.RelatedTableID).
		pad(3)
	for i := 0; i < MaxInstructions; i++ {
		if i < len(b.Instructions) {
			w.encoder(b.Instructions[i])
		} else {
			w.pad(instructionSize)
		}
	}
}

func decodeInstructionBlock(r *Reader) (*InstructionBlock, error) {
	b := &InstructionBlock{Command: FlowCommand(r.u8())}
	n := r.u8()
	b.BlockID = r.u16()
	b.RelatedTableID = r.u8()
	r.skip(3)
	if int(n) > MaxInstructions {
		return nil, fmt.Errorf("%w: %d instructions", ErrTooMany, n)
	}
	b.Instructions = make([]Instruction, 0, n)
	for i := 0; i < MaxInstructions; i++ {
		ins := decodeInstruction(r)
		if i < int(n) {
			b.Instructions = append(b.Instructions, ins)
		}
	}
	return b, r.Err()
}
