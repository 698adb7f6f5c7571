package proto

import "fmt"

// CounterCommand is the operation requested by a CounterMod.
type CounterCommand uint8

const (
	CounterAdd    CounterCommand = 0
	CounterDelete CounterCommand = 1
	CounterClear  CounterCommand = 2
	CounterQuery  CounterCommand = 3
)

func (c CounterCommand) String() string {
	switch c {
	case CounterAdd:
		return "ADD"
	case CounterDelete:
		return "DELETE"
	case CounterClear:
		return "CLEAR"
	case CounterQuery:
		return "QUERY"
	}
	return fmt.Sprintf("CounterCommand(%d)", uint8(c))
}

// Counter is shared by CounterMod, CounterRequest and CounterReply.
type Counter struct {
	Command   CounterCommand
	SlotID    uint16
	CounterID uint32
	Value     uint64
	ByteValue uint64
}

func (c Counter) RequiredSize() int { return 24 }

func (c Counter) Encode(into []byte) {
	newWriter(into).
		u8(uint8(c.Command)).
		pad(1).
		u16(c.SlotID).
		u32(c.CounterID).
		u64(c.Value).
		u64(c.ByteValue)
}

func readCounter(r *Reader) Counter {
	c := Counter{Command: CounterCommand(r.u8())}
	r.skip(1)
	c.SlotID = r.u16()
	c.CounterID = r.u32()
	c.Value = r.u64()
	c.ByteValue = r.u64()
	return c
}

// CounterMod adds, clears or deletes a counter.
type CounterMod struct{ Counter }

func (*CounterMod) Type() MsgType { return TypeCounterMod }

func decodeCounterMod(r *Reader) (*CounterMod, error) {
	return &CounterMod{readCounter(r)}, r.Err()
}

// CounterRequest asks for the value of a counter on every slot.
type CounterRequest struct{ Counter }

func (*CounterRequest) Type() MsgType { return TypeCounterRequest }

func decodeCounterRequest(r *Reader) (*CounterRequest, error) {
	return &CounterRequest{readCounter(r)}, r.Err()
}

// CounterReply reports the value of a counter on one slot.
type CounterReply struct{ Counter }

func (*CounterReply) Type() MsgType { return TypeCounterReply }

func decodeCounterReply(r *Reader) (*CounterReply, error) {
	return &CounterReply{readCounter(r)}, r.Err()
}
