package fsm

import "errors"

// Initializer allows FSMs to automatically initialize custom contexts (provided
// as type C to the FSM). Contexts implementing this interface will have Init
// called during the FSM initialization.
type Initializer interface {
	Init()
}

// Resetter allows FSMs to automatically reset custom contexts (provided
// as type C to the FSM). Contexts implementing this interface will have Reset
// called whenever the FSM is resetting its internal values to their initial
// states.
type Resetter interface {
	Reset()
}

// ExportedFSM provides an adapter to allow FSMs to be used across packages
// without exposing explicit types used internally.
type ExportedFSM[T any] interface {
	Init()
	Feed(b byte) (*T, error)
	Buffered() int
}

// FSM represents a finite state machine built from a Def.
type FSM[T any, S ~uint8, C any] struct {
	Value   *T
	Size    int
	Payload []byte

	feedFn          func(f *FSM[T, S, C], state S, ctx *C, b byte) error
	initialSize     int
	initialState    S
	state           S
	context         *C
	currentByte     byte
	mustSatisfySize bool
	fed             int
}

// Append appends the current byte being fed to the internal payload buffer,
// and decrements the size counter.
func (i *FSM[T, S, C]) Append() {
	i.Payload = append(i.Payload, i.currentByte)
	i.Size--
}

// ResetPayload clears the internal payload buffer, retaining its capacity.
func (i *FSM[T, S, C]) ResetPayload() {
	i.Payload = i.Payload[:0]
}

// Init sets all required internal state, and automatically calls the
// resetter for any custom data associated, if any.
func (i *FSM[T, S, C]) Init() {
	i.Size = i.initialSize
	i.mustSatisfySize = false
	if i.initialSize != 0 {
		i.SatisfySize()
	}
	if r, ok := any(i.context).(Resetter); ok {
		r.Reset()
	}
	i.currentByte = 0
	i.fed = 0
	i.state = i.initialState
	i.ResetPayload()
	i.Value = new(T)
}

// Feed feeds a given byte to the decoder. It returns a T pointer once a value
// is complete, or nil when more data is required. Any error other than Done
// returned by the definition resets the FSM and is handed to the caller.
func (i *FSM[T, S, C]) Feed(b byte) (*T, error) {
	i.currentByte = b
	i.fed++
	if i.mustSatisfySize {
		if !i.SizeSatisfied() {
			return nil, nil
		}
		i.mustSatisfySize = false
	}
	err := i.feedFn(i, i.state, i.context, b)
	switch {
	case err == nil:
		return nil, nil
	case errors.Is(err, Done):
		defer i.Reset()
		return copyIndirect(i.Value), nil
	default:
		i.Reset()
		return nil, err
	}
}

// Buffered returns how many bytes were fed since the last value was emitted.
func (i *FSM[T, S, C]) Buffered() int { return i.fed }

// SatisfySize indicates that the decoder must not call the delegate feed
// function until payload receives size bytes.
func (i *FSM[T, S, C]) SatisfySize() {
	i.mustSatisfySize = true
}

// Reset resets the current decoder to its initial state.
func (i *FSM[T, S, C]) Reset() { i.Init() }

// CopyPayload copies bytes present in payload to another provided buffer.
// It will copy at most min(len(payload), len(into)) bytes.
func (i *FSM[T, S, C]) CopyPayload(into []byte) { copy(into, i.Payload) }

// TransitionSize transitions the decoder to a given state, and automatically
// sets its internal size to the provided value, also invoking ResetPayload.
func (i *FSM[T, S, C]) TransitionSize(next S, size int) {
	i.Size = size
	i.state = next
	i.ResetPayload()
}

// TransitionSatisfySize acts as TransitionSize, except that it also invokes
// SatisfySize, meaning that the next call to the delegate feed function will
// only occur for the provided state S after size bytes have been consumed.
func (i *FSM[T, S, C]) TransitionSatisfySize(next S, size int) {
	i.TransitionSize(next, size)
	i.SatisfySize()
}

// SizeSatisfied invokes Append and returns whether the amount of bytes fed up
// to this point has satisfied the size condition set previously.
func (i *FSM[T, S, C]) SizeSatisfied() bool {
	i.Append()
	return i.Size == 0
}

func copyIndirect[T any](obj *T) *T {
	other := *obj
	return &other
}
