package proto

// HelloBody is the body of the HELLO message exchanged when a connection is
// established.
type HelloBody struct {
	Data []byte
}

func (*HelloBody) Type() MsgType        { return TypeHello }
func (h *HelloBody) RequiredSize() int  { return len(h.Data) }
func (h *HelloBody) Encode(into []byte) { copy(into, h.Data) }

// EchoRequest is a keepalive probe. Its payload is opaque.
type EchoRequest struct {
	Data []byte
}

func (*EchoRequest) Type() MsgType        { return TypeEchoRequest }
func (e *EchoRequest) RequiredSize() int  { return len(e.Data) }
func (e *EchoRequest) Encode(into []byte) { copy(into, e.Data) }

// EchoReply answers an EchoRequest.
type EchoReply struct {
	Data []byte
}

func (*EchoReply) Type() MsgType        { return TypeEchoReply }
func (e *EchoReply) RequiredSize() int  { return len(e.Data) }
func (e *EchoReply) Encode(into []byte) { copy(into, e.Data) }

// empty is embedded by messages without a body.
type empty struct{}

func (empty) RequiredSize() int { return 0 }
func (empty) Encode([]byte)     {}

// FeaturesRequest asks for the feature report of every slot.
type FeaturesRequest struct{ empty }

func (*FeaturesRequest) Type() MsgType { return TypeFeaturesRequest }

// GetConfigRequest asks for the switch configuration.
type GetConfigRequest struct{ empty }

func (*GetConfigRequest) Type() MsgType { return TypeGetConfigRequest }

// QueryAllFin terminates a query-all exchange.
type QueryAllFin struct{ empty }

func (*QueryAllFin) Type() MsgType { return TypeQueryAllFin }
