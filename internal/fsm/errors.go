package fsm

import "fmt"

// Done is returned by a Def's Feed function to signal that the FSM has
// received enough data to compose its value, and such value is ready to be
// returned to the caller.
var Done = fmt.Errorf("FSM Stop Signal")
