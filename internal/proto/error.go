package proto

import "fmt"

var (
	// ErrShortBody indicates that a body is shorter than its fixed layout.
	ErrShortBody = fmt.Errorf("body too short")

	// ErrTooMany indicates that a count field exceeds its protocol maximum.
	ErrTooMany = fmt.Errorf("count exceeds protocol maximum")

	// ErrBadVersion indicates a header carrying a version other than
	// ProtocolVersion.
	ErrBadVersion = fmt.Errorf("unsupported protocol version")

	// ErrBadLength indicates a header whose length cannot frame a message.
	ErrBadLength = fmt.Errorf("invalid message length")
)

// MalformedError indicates that a message body could not be decoded
// according to the layout announced by its header.
type MalformedError struct {
	Type MsgType
	Xid  uint32
	Err  error
}

func (m MalformedError) Error() string {
	return fmt.Sprintf("malformed %s (xid %d): %s", m.Type, m.Xid, m.Err)
}

func (m MalformedError) Unwrap() error { return m.Err }

// ErrorType is the category of an error reply.
type ErrorType uint16

const (
	ErrHelloFailed         ErrorType = 0
	ErrBadRequest          ErrorType = 1
	ErrBadAction           ErrorType = 2
	ErrBadInstruction      ErrorType = 3
	ErrBadMatch            ErrorType = 4
	ErrFlowModFailed       ErrorType = 5
	ErrGroupModFailed      ErrorType = 6
	ErrPortModFailed       ErrorType = 7
	ErrTableModFailed      ErrorType = 8
	ErrQueueOpFailed       ErrorType = 9
	ErrSwitchConfigFailed  ErrorType = 10
	ErrRoleRequestFailed   ErrorType = 11
	ErrMeterModFailed      ErrorType = 12
	ErrTableFeaturesFailed ErrorType = 13
	ErrSoftwareFailed      ErrorType = 14
	ErrCounterModFailed    ErrorType = 15
	ErrInsBlockModFailed   ErrorType = 16
)

var errorTypeNames = map[ErrorType]string{
	ErrHelloFailed:         "HELLO_FAILED",
	ErrBadRequest:          "BAD_REQUEST",
	ErrBadAction:           "BAD_ACTION",
	ErrBadInstruction:      "BAD_INSTRUCTION",
	ErrBadMatch:            "BAD_MATCH",
	ErrFlowModFailed:       "FLOW_MOD_FAILED",
	ErrGroupModFailed:      "GROUP_MOD_FAILED",
	ErrPortModFailed:       "PORT_MOD_FAILED",
	ErrTableModFailed:      "TABLE_MOD_FAILED",
	ErrQueueOpFailed:       "QUEUE_OP_FAILED",
	ErrSwitchConfigFailed:  "SWITCH_CONFIG_FAILED",
	ErrRoleRequestFailed:   "ROLE_REQUEST_FAILED",
	ErrMeterModFailed:      "METER_MOD_FAILED",
	ErrTableFeaturesFailed: "TABLE_FEATURES_FAILED",
	ErrSoftwareFailed:      "SOFTWARE_FAILED",
	ErrCounterModFailed:    "COUNTER_MOD_FAILED",
	ErrInsBlockModFailed:   "INSBLOCK_MOD_FAILED",
}

func (t ErrorType) String() string {
	if n, ok := errorTypeNames[t]; ok {
		return n
	}
	return fmt.Sprintf("ErrorType(%d)", uint16(t))
}

// Error codes. Their meaning depends on the ErrorType they are paired with.
const (
	CodeBadType uint16 = 1 // with ErrBadRequest

	CodeTableModBadCommand    uint16 = 3
	CodeFlowModBadCommand     uint16 = 6
	CodeMeterModBadCommand    uint16 = 1
	CodeGroupModBadCommand    uint16 = 11
	CodeCounterModBadCommand  uint16 = 1
	CodeInsBlockModBadCommand uint16 = 1

	// Codes paired with ErrSoftwareFailed, and with ErrRoleRequestFailed for
	// CodeWriteFailure.
	CodeWriteFailure     uint16 = 0x4001
	CodeInvalidSlotID    uint16 = 0x4002
	CodeResourceFailure  uint16 = 0x4003
	CodeMalformedMessage uint16 = 0x4004

	// Codes reported by local resources, paired with the ErrorType of the
	// operation that failed.
	CodeEntryExists  uint16 = 0x4010
	CodeEntryMissing uint16 = 0x4011
	CodeTableFull    uint16 = 0x4012
	CodeBadTable     uint16 = 0x4013
	CodePortDisabled uint16 = 0x4014
)

// ErrorMessage is the body of an error reply.
type ErrorMessage struct {
	ErrType  ErrorType
	Code     uint16
	DeviceID uint32
	Text     string
}

// NewError returns an ErrorMessage, truncating text to MaxErrorStringLength.
func NewError(typ ErrorType, code uint16, deviceID uint32, text string) *ErrorMessage {
	if len(text) > MaxErrorStringLength {
		text = text[:MaxErrorStringLength]
	}
	return &ErrorMessage{ErrType: typ, Code: code, DeviceID: deviceID, Text: text}
}

func (e *ErrorMessage) Type() MsgType     { return TypeError }
func (e *ErrorMessage) RequiredSize() int { return 8 + MaxErrorStringLength }

func (e *ErrorMessage) Encode(into []byte) {
	newWriter(into).
		u16(uint16(e.ErrType)).
		u16(e.Code).
		u32(e.DeviceID).
		str(e.Text, MaxErrorStringLength)
}

func (e *ErrorMessage) String() string {
	return fmt.Sprintf("%s/0x%04x: %s", e.ErrType, e.Code, e.Text)
}

func decodeErrorMessage(r *Reader) (*ErrorMessage, error) {
	e := &ErrorMessage{
		ErrType:  ErrorType(r.u16()),
		Code:     r.u16(),
		DeviceID: r.u32(),
	}
	e.Text = fixedString(r.bytes(MaxErrorStringLength))
	return e, r.Err()
}
