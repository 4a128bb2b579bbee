package evcore

import (
	"container/list"
	"time"
)

// Mask is a bitset of interests/triggers an Event can carry: READ,
// WRITE, SIGNAL, TIMEOUT, PERSIST.
type Mask uint16

const (
	// Read indicates interest in (or triggering on) read-readiness.
	Read Mask = 1 << iota
	// Write indicates interest in (or triggering on) write-readiness.
	Write
	// Signal indicates the Event targets a process signal number.
	Signal
	// Timeout indicates the Event fired because its deadline elapsed.
	Timeout
	// Persist keeps the Event registered after its callback runs,
	// instead of fully removing it.
	Persist
)

// ioMask is the subset of Mask that corresponds to backend-registered
// interests, as opposed to pure timeout/lifecycle bits.
const ioMask = Read | Write | Signal

// flags are the lifecycle bits of an Event, independent of each other
// and of Mask.
type flags uint8

const (
	flagInit flags = 1 << iota
	flagInserted
	flagActive
	flagTimeout
	flagInternal
)

func (f flags) has(bit flags) bool { return f&bit != 0 }

// Callback is invoked when an Event fires. triggeredMask is the union of
// causes that fired since the Event was last dispatched (multiple
// triggers between iterations coalesce into one callback). data is
// whatever was passed to NewEvent.
type Callback func(ev *Event, triggeredMask Mask, data any)

// Event is a registered interest: an fd, a signal number, or neither
// (a pure timer), plus a callback, a priority, and a set of lifecycle
// flags. Events are caller-allocated; a Loop only ever holds a
// reference to a bound, registered Event and never frees one.
//
// The zero value is not usable; construct with NewEvent.
type Event struct { //nolint:govet
	loop *Loop

	// ident is the fd or signal number this event targets; -1 for a
	// pure timer with no fd/signal interest.
	ident int
	mask  Mask
	cb    Callback
	data  any
	pri   int

	flags    flags
	deadline time.Time // valid iff flags.has(flagTimeout)
	res      Mask      // ev_res: last-triggered mask, coalesced
	ncalls   int       // pending-call counter
	pncalls  *int      // weak back-pointer to a live drain's abort cell

	heapIndex int // position in the loop's timerHeap, -1 if absent

	regElem   *list.Element // element in loop.registry, nil if not inserted
	queueElem *list.Element // element in loop.queues[pri], nil unless ACTIVE
}

// NewEvent creates a new, unbound Event in the pristine INIT state.
//
// ident is a file descriptor or signal number; pass -1 for a pure timer
// (mask should then carry no READ/WRITE/SIGNAL bit).
func NewEvent(ident int, mask Mask, cb Callback, data any) *Event {
	return &Event{
		ident:     ident,
		mask:      mask,
		cb:        cb,
		data:      data,
		flags:     flagInit,
		heapIndex: -1,
	}
}

// Bind attaches ev to loop while ev is still in the pristine INIT state.
// Corresponds to event_base_set / Event.bind(loop).
func (ev *Event) Bind(loop *Loop) error {
	if !ev.flags.has(flagInit) || ev.loop != nil {
		return ErrInvalidState
	}
	ev.loop = loop
	ev.pri = loop.defaultPri
	return nil
}

// Pending reports which of mask's bits currently apply to ev: the
// INSERTED-associated interest, the ACTIVE-triggered mask, and whether
// TIMEOUT is set. If ev has a deadline and outDeadline is non-nil, the
// absolute deadline is written back in wall-clock terms.
func (ev *Event) Pending(mask Mask, outDeadline *time.Time) Mask {
	var out Mask
	if ev.flags.has(flagInserted) {
		out |= ev.mask & mask & ioMask
	}
	if ev.flags.has(flagActive) {
		out |= ev.res & mask
	}
	if ev.flags.has(flagTimeout) {
		out |= Timeout & mask
		if outDeadline != nil {
			*outDeadline = ev.deadline
		}
	}
	return out
}

// PrioritySet changes ev's priority level. Fails with ErrInvalidState if
// ev is currently ACTIVE or pri is out of the loop's configured range.
func (ev *Event) PrioritySet(pri int) error {
	if ev.loop == nil {
		return ErrEventNotBound
	}
	if ev.flags.has(flagActive) {
		return ErrInvalidState
	}
	if pri < 0 || pri >= len(ev.loop.queues) {
		return ErrInvalidState
	}
	ev.pri = pri
	return nil
}

// Add registers ev with its loop. If timeout is negative, no deadline
// is set/changed; zero or positive re-arms (or arms) the timeout to
// now+timeout, cancelling any previously scheduled deadline.
func (ev *Event) Add(timeout time.Duration) error {
	if ev.loop == nil {
		return ErrEventNotBound
	}
	return ev.loop.add(ev, timeout)
}

// Del removes ev from all three sets (INSERTED, TIMEOUT, ACTIVE) and
// returns it to the quiescent state. Safe to call on an event already in
// none of the three sets.
func (ev *Event) Del() error {
	if ev.loop == nil {
		return ErrEventNotBound
	}
	return ev.loop.del(ev)
}

// activate is the internal entry point backends and the timer drain use
// to mark ev ready. Multiple triggers between iterations coalesce into
// the union of their masks rather than re-enqueuing.
func (ev *Event) activate(loop *Loop, triggeredMask Mask, ncalls int) {
	if ev.flags.has(flagActive) {
		ev.res |= triggeredMask
		return
	}
	ev.res = triggeredMask
	ev.ncalls = ncalls
	ev.flags |= flagActive
	ev.queueElem = loop.queues[ev.pri].PushBack(ev)
	loop.activeCount++
}
