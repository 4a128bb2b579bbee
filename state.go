package evcore

// loopState represents the current state of the event loop: at most one
// Dispatch call is active at a time.
//
// State Machine:
//
//	stateIdle (0)       -> stateDispatching (1)  [Dispatch entry]
//	stateDispatching (1) -> stateIdle (0)        [Dispatch return]
//	stateDispatching (1) -> stateBreaking (2)    [BreakNow from a callback]
//	stateBreaking (2)    -> stateIdle (0)        [Dispatch return]
//	any                  -> stateClosed (3)      [Free]
//
// This is a plain field, not a CAS-guarded atomic: the loop is
// single-threaded, so no concurrent transition can race with Dispatch.
type loopState uint8

const (
	stateIdle loopState = iota
	stateDispatching
	stateBreaking
	stateClosed
)

func (s loopState) String() string {
	switch s {
	case stateIdle:
		return "idle"
	case stateDispatching:
		return "dispatching"
	case stateBreaking:
		return "breaking"
	case stateClosed:
		return "closed"
	default:
		return "unknown"
	}
}
