package dispatch

import (
	"errors"
	"fmt"

	"github.com/heyvito/pofswitch/internal/proto"
	"github.com/heyvito/pofswitch/internal/resource"
)

// ErrNoSlots indicates that the datapath has no slot to act upon.
var ErrNoSlots = fmt.Errorf("datapath has no slots")

// ReplyError is returned by Dispatch when a request failed and the failure
// was reported to the controller through an error reply carrying the
// request's xid. SendErr is set when that reply could not be delivered.
type ReplyError struct {
	Type    proto.ErrorType
	Code    uint16
	Err     error
	SendErr error
}

func (r *ReplyError) Error() string {
	msg := fmt.Sprintf("%s/0x%04x: %s", r.Type, r.Code, r.Err)
	if r.SendErr != nil {
		msg += fmt.Sprintf(" (error reply not sent: %s)", r.SendErr)
	}
	return msg
}

func (r *ReplyError) Unwrap() error { return r.Err }

func upward(typ proto.ErrorType, code uint16, format string, args ...any) *ReplyError {
	return &ReplyError{Type: typ, Code: code, Err: fmt.Errorf(format, args...)}
}

func badCommand(typ proto.ErrorType, code uint16, cmd fmt.Stringer) *ReplyError {
	return upward(typ, code, "unsupported command %s", cmd)
}

// fanoutFailure converts a gateway error into the error reply owed to the
// controller. Typed resource failures keep their type and code.
func fanoutFailure(err error) *ReplyError {
	if errors.Is(err, resource.ErrInvalidSlot) {
		return &ReplyError{Type: proto.ErrSoftwareFailed, Code: proto.CodeInvalidSlotID, Err: err}
	}
	var resErr *resource.Error
	if errors.As(err, &resErr) {
		return &ReplyError{Type: resErr.Type, Code: resErr.Code, Err: err}
	}
	return &ReplyError{Type: proto.ErrSoftwareFailed, Code: proto.CodeResourceFailure, Err: err}
}
