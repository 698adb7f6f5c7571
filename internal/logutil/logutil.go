package logutil

import (
	"fmt"

	"github.com/heyvito/pofswitch/internal/containers"
	"github.com/heyvito/pofswitch/internal/proto"
	"go.uber.org/zap"
)

// StringerArr is a utility zap.Field that takes a name and a list of items
// that implements fmt.Stringer, including in the string slice returned the
// value returned by each item's String() method.
func StringerArr[S interface{ ~[]E }, E fmt.Stringer](name string, arr S) zap.Field {
	return zap.Strings(name, containers.StrMapper(arr))
}

// Header returns the fields identifying a message in log entries.
func Header(h proto.Header) []zap.Field {
	return []zap.Field{
		zap.Stringer("type", h.Type),
		zap.Uint32("xid", h.Xid),
		zap.Uint16("length", h.Length),
	}
}

// Conn identifies a controller connection.
func Conn[T ~uint32](id T) zap.Field { return zap.Uint32("conn", uint32(id)) }

// Slot identifies a device slot.
func Slot(id uint16) zap.Field { return zap.Uint16("slot", id) }
