package proto

// QueryAllRequest asks for a dump of every resource on one slot, or on every
// slot when SlotID is SlotIDAll.
type QueryAllRequest struct {
	SlotID uint16
}

func (*QueryAllRequest) Type() MsgType     { return TypeQueryAllRequest }
func (*QueryAllRequest) RequiredSize() int { return 8 }

func (q *QueryAllRequest) Encode(into []byte) {
	newWriter(into).
		u16(q.SlotID).
		pad(6)
}

func decodeQueryAllRequest(r *Reader) (*QueryAllRequest, error) {
	q := &QueryAllRequest{SlotID: r.u16()}
	r.skip(6)
	return q, r.Err()
}

// SlotConfig enables or disables the protocol on every port of a slot.
type SlotConfig struct {
	SlotID uint16
	Enable bool
}

func (*SlotConfig) Type() MsgType     { return TypeSlotConfig }
func (*SlotConfig) RequiredSize() int { return 8 }

func (s *SlotConfig) Encode(into []byte) {
	newWriter(into).
		u16(s.SlotID).
		u8(boolByte(s.Enable)).
		pad(5)
}

func decodeSlotConfig(r *Reader) (*SlotConfig, error) {
	s := &SlotConfig{SlotID: r.u16(), Enable: r.u8() != 0}
	r.skip(5)
	return s, r.Err()
}

// SlotState is the operational state of a slot.
type SlotState uint8

const (
	SlotDown SlotState = 0
	SlotUp   SlotState = 1
)

// SlotStatusReason tells why a SlotStatus was emitted.
type SlotStatusReason uint8

const (
	SlotReasonChanged SlotStatusReason = 0
	SlotReasonResend  SlotStatusReason = 1
)

// SlotStatus reports the state of one slot.
type SlotStatus struct {
	SlotID uint16
	State  SlotState
	Reason SlotStatusReason
}

func (*SlotStatus) Type() MsgType     { return TypeSlotStatus }
func (*SlotStatus) RequiredSize() int { return 8 }

func (s *SlotStatus) Encode(into []byte) {
	newWriter(into).
		u16(s.SlotID).
		u8(uint8(s.State)).
		u8(uint8(s.Reason)).
		pad(4)
}

func decodeSlotStatus(r *Reader) (*SlotStatus, error) {
	s := &SlotStatus{
		SlotID: r.u16(),
		State:  SlotState(r.u8()),
		Reason: SlotStatusReason(r.u8()),
	}
	r.skip(4)
	return s, r.Err()
}
