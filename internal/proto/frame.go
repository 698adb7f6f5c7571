package proto

import (
	"fmt"

	"github.com/heyvito/pofswitch/internal/fsm"
)

// Frame is a single undecoded message cut from a byte stream: its header and
// exactly Header.BodyLength() body bytes.
type Frame struct {
	Header Header
	Body   []byte
}

// Parse decodes the frame's body according to its header type.
func (f Frame) Parse() (*Packet, error) {
	msg, err := ParseMessage(f.Header, f.Body)
	if err != nil {
		return nil, err
	}
	return &Packet{Header: f.Header, Message: msg}, nil
}

// fsmStates: frameDecoder header, body

type frameDecoderState uint8

const (
	frameDecoderStateHeader frameDecoderState = iota
	frameDecoderStateBody
)

// fsmStatesEnd

// FrameDecoder is responsible for cutting a controller stream into Frame(s).
// A header announcing an unsupported version, or a length outside
// [HeaderSize, MaxMessageSize], yields an error since the stream cannot be
// resynchronised afterwards.
var FrameDecoder = fsm.Def[Frame, frameDecoderState, struct{}]{
	InitialSize: HeaderSize,
	Feed: func(f *fsm.FSM[Frame, frameDecoderState, struct{}], state frameDecoderState, ctx *struct{}, b byte) error {
		switch state {
		case frameDecoderStateHeader:
			h := decodeHeader(f.Payload)
			if h.Version != ProtocolVersion {
				return fmt.Errorf("%w: 0x%02x", ErrBadVersion, h.Version)
			}
			if h.Length < HeaderSize || h.Length > MaxMessageSize {
				return fmt.Errorf("%w: %d", ErrBadLength, h.Length)
			}
			f.Value.Header = h
			if h.BodyLength() == 0 {
				return fsm.Done
			}
			f.TransitionSatisfySize(frameDecoderStateBody, h.BodyLength())

		case frameDecoderStateBody:
			f.Value.Body = make([]byte, len(f.Payload))
			f.CopyPayload(f.Value.Body)
			return fsm.Done
		}

		return nil
	},
}.IntoExported()
