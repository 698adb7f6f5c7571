package fsm

type ExportedFSMDef[T any] interface {
	New() ExportedFSM[T]
}

type exportedDefinitionAdapter[T any, S ~uint8, C any] struct {
	def Def[T, S, C]
}

func (e exportedDefinitionAdapter[T, S, C]) New() ExportedFSM[T] {
	return e.def.New()
}

// Def represents a definition of a decoder that emits a result T based
// on a set of states S, and an optional custom state C. In case C is not
// required, use struct{} as its value. C may implement Resetter or Initializer
// as it deems fit.
type Def[T any, S ~uint8, C any] struct {
	// InitialSize represents the amount of bytes the decoder must consume
	// before invoking the delegated feed function with the first S state as the
	// current state. Optional.
	InitialSize int

	// InitialState represents the initial state the FSM must be after a reset
	// or initialization. Optional. By default, it will use S's zero value.
	InitialState S

	// Feed handles either each incoming byte or a single call once a sized
	// run is satisfied. Returning Done hands the associated value T to the
	// caller. Returning nil indicates that more data is expected. Any other
	// error resets the FSM state and is returned to the caller. Required.
	Feed func(f *FSM[T, S, C], state S, ctx *C, b byte) error
}

// New returns a new FSM instance based on this definition.
func (d Def[T, S, C]) New() *FSM[T, S, C] {
	var fsm = &FSM[T, S, C]{
		feedFn:       d.Feed,
		initialSize:  d.InitialSize,
		initialState: d.InitialState,
		context:      new(C),
	}

	if i, ok := any(fsm.context).(Initializer); ok {
		i.Init()
	}
	fsm.Init()
	return fsm
}

// IntoExported returns the current fsm Def as an exported counterpart, allowing
// it to be used across packages without exposing internal types.
func (d Def[T, S, C]) IntoExported() ExportedFSMDef[T] {
	return exportedDefinitionAdapter[T, S, C]{d}
}
