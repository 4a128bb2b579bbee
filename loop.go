// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package evcore

import (
	"container/list"
	"os"
	"time"
)

// NoTimeout, passed to Event.Add, means "leave any existing deadline
// untouched." Any non-negative duration arms/re-arms the deadline to
// now+timeout.
const NoTimeout time.Duration = -1

// DispatchFlags narrows a single Dispatch call's behavior.
type DispatchFlags uint8

const (
	// FlagOnce returns after draining exactly one priority level's
	// worth of active events, instead of looping until BreakNow/
	// ExitAfter or NO_EVENTS.
	FlagOnce DispatchFlags = 1 << iota
	// FlagNonBlock never blocks in the backend: a zero timeout is used
	// for the poll regardless of pending timers.
	FlagNonBlock
)

// Result is Dispatch's non-error outcome.
type Result int

const (
	// ResultOK means Dispatch returned due to termination (BreakNow,
	// ExitAfter firing, FlagOnce, or FlagNonBlock), not because the
	// loop ran out of work.
	ResultOK Result = iota
	// ResultNoEvents means the registry and timer heap were both empty,
	// and no event was active, when Dispatch checked.
	ResultNoEvents
)

// Loop is the single-threaded cooperative dispatcher: it owns the
// registry of bound events, the timer min-heap, the priority
// run-queues, and the backend Multiplexer handle. A Loop must not be
// used from more than one goroutine concurrently, and Dispatch must not
// be called re-entrantly from within a callback it is already running.
type Loop struct { //nolint:govet
	mux             Multiplexer
	backendOverride string
	clock           Clock
	monotonic       bool
	logger          *Logger
	sigCB           func() error

	registry    *list.List // every Event currently INSERTED or TIMEOUT
	timers      timerHeap
	queues      []*list.List
	defaultPri  int
	activeCount int

	nowCache      time.Time
	nowCacheValid bool
	eventTV       time.Time // wall-clock snapshot taken just before the last backend Dispatch call

	gotTerm bool
	brk     bool

	sigBridge *sigBridge
	exitEvent *Event

	state loopState
}

// New constructs a Loop, selecting a Multiplexer backend (event ports >
// kqueue > epoll > /dev/poll > poll > select > win32, or the
// WithBackend override) and probing the configured Clock for monotonic
// behavior.
func New(opts ...LoopOption) (*Loop, error) {
	cfg, err := resolveLoopOptions(opts)
	if err != nil {
		return nil, err
	}

	l := &Loop{
		backendOverride: cfg.backend,
		clock:           cfg.clock,
		monotonic:       monotonicAvailable(cfg.clock),
		logger:          cfg.logger,
		sigCB:           cfg.sigCB,
		registry:        list.New(),
		queues:          newQueues(cfg.priorities),
		defaultPri:      cfg.priorities / 2,
		state:           stateIdle,
	}

	mux, err := selectMultiplexer(cfg.backend)
	if err != nil {
		logErr(l.logger, "construct", "no readiness mechanism available", err, nil)
		return nil, err
	}
	if err := mux.Init(l); err != nil {
		wrapped := newBackendError("init", mux.Name(), err)
		logErr(l.logger, "construct", "backend init failed", wrapped, map[string]any{"backend": mux.Name()})
		return nil, wrapped
	}
	l.mux = mux

	if os.Getenv("EVENT_SHOW_METHOD") != "" {
		logInfo(l.logger, "construct", "selected backend", map[string]any{"backend": mux.Name()})
	}
	return l, nil
}

// MethodName returns the name of the Multiplexer backend in use.
func (l *Loop) MethodName() string { return l.mux.Name() }

// EventCount returns the number of user-visible Events currently
// INSERTED or TIMEOUT, excluding the loop's own internal signal-wake
// event.
func (l *Loop) EventCount() int {
	n := 0
	for e := l.registry.Front(); e != nil; e = e.Next() {
		if ev := e.Value.(*Event); !ev.flags.has(flagInternal) {
			n++
		}
	}
	return n
}

// ActiveCount returns the number of user-visible Events currently
// ACTIVE, excluding internal events.
func (l *Loop) ActiveCount() int {
	n := 0
	for _, q := range l.queues {
		for e := q.Front(); e != nil; e = e.Next() {
			if ev := e.Value.(*Event); !ev.flags.has(flagInternal) {
				n++
			}
		}
	}
	return n
}

// BreakNow requests that the current or next Dispatch call return as
// soon as possible: before the next backend call, or between events
// (and between coalesced calls of the same event) during an active-queue
// drain. Safe to call from within a callback.
func (l *Loop) BreakNow() {
	l.brk = true
	if l.state == stateDispatching {
		l.state = stateBreaking
	}
}

// ExitAfter arms (or re-arms) a one-shot internal timer that sets the
// termination flag checked at the top of every dispatch cycle, so the
// next or current Dispatch call returns ResultOK once it elapses.
func (l *Loop) ExitAfter(d time.Duration) error {
	if l.exitEvent == nil {
		ev := NewEvent(-1, Timeout, func(ev *Event, res Mask, data any) {
			l.gotTerm = true
		}, nil)
		ev.flags |= flagInternal
		if err := ev.Bind(l); err != nil {
			return err
		}
		l.exitEvent = ev
	}
	return l.exitEvent.Add(d)
}

// SetPriorities resizes the priority run-queue array to n levels
// (1 <= n). Refuses with ErrInvalidState while any event is active,
// since resizing would strand queued events at out-of-range indices.
func (l *Loop) SetPriorities(n int) error {
	if n < 1 {
		return ErrInvalidState
	}
	if l.activeCount > 0 {
		return ErrInvalidState
	}
	l.queues = newQueues(n)
	l.defaultPri = n / 2
	return nil
}

// Free tears down the Loop: every still-registered Event is deleted
// (INSERTED/TIMEOUT/ACTIVE state cleared) and the backend handle is
// released. Event storage itself is caller-owned and is never freed
// here. Once the Loop is freed, Free and Dispatch return ErrClosed;
// the other methods do not check for a freed Loop.
func (l *Loop) Free() error {
	if l.state == stateClosed {
		return ErrClosed
	}
	for e := l.registry.Front(); e != nil; {
		next := e.Next()
		_ = l.del(e.Value.(*Event))
		e = next
	}
	l.state = stateClosed
	if l.sigBridge != nil {
		l.sigBridge.shutdown()
	}
	return l.mux.Dealloc()
}

// now returns the cached wall-clock reading taken after the last backend
// Dispatch call if one is available, otherwise samples the Clock fresh.
func (l *Loop) now() time.Time {
	if l.nowCacheValid {
		return l.nowCache
	}
	return l.clock.Now()
}

// simulateClockJump is a test hook: it advances the recorded "time just
// before the last backend call" without moving the Clock itself, so the
// next cycle's correctClock observes what looks like a backward
// system-clock jump and exercises the deadline-shifting correction path
// deterministically.
func (l *Loop) simulateClockJump(d time.Duration) {
	l.eventTV = l.eventTV.Add(d)
}

// correctClock handles backward clock jumps: when the configured Clock
// is not known-monotonic and a backward jump is observed relative to
// the last recorded event_tv, every timer heap deadline is shifted by
// the same offset, preserving relative firing order without a
// re-heapify (the heap property depends only on relative order between
// deadlines, and a uniform shift preserves it).
func (l *Loop) correctClock() {
	if l.monotonic {
		return
	}
	now := l.clock.Now()
	if now.Before(l.eventTV) {
		off := l.eventTV.Sub(now)
		for _, ev := range l.timers.items {
			ev.deadline = ev.deadline.Add(-off)
		}
	}
}

// processSignals implements dispatch step 2: drain the signal bridge (if
// any signal Event has ever been registered) and invoke the optional
// sig-callback once per cycle.
func (l *Loop) processSignals() error {
	if l.sigBridge != nil {
		return l.sigBridge.drain(l.sigCB)
	}
	if l.sigCB != nil {
		if err := l.sigCB(); err != nil {
			return ErrInterrupted
		}
	}
	return nil
}

func (l *Loop) signalRaised() bool {
	return l.sigBridge != nil && l.sigBridge.peekRaised()
}

// Dispatch runs the cooperative event loop until it returns due to
// BreakNow, ExitAfter firing, FlagOnce/FlagNonBlock, or running out of
// registered work (ResultNoEvents). Dispatch is not re-entrant: calling
// it from within a callback it is already running returns
// ErrInvalidState.
func (l *Loop) Dispatch(flags DispatchFlags) (Result, error) {
	if l.state == stateClosed {
		return ResultOK, ErrClosed
	}
	if l.state == stateDispatching || l.state == stateBreaking {
		return ResultOK, ErrInvalidState
	}
	l.state = stateDispatching
	defer func() {
		if l.state != stateClosed {
			l.state = stateIdle
		}
	}()

	for {
		// 1. termination check.
		if l.gotTerm || l.brk {
			l.gotTerm = false
			l.brk = false
			return ResultOK, nil
		}

		// 2. signal bridge + sig-callback.
		if err := l.processSignals(); err != nil {
			return ResultOK, err
		}
		if l.gotTerm || l.brk {
			l.gotTerm = false
			l.brk = false
			return ResultOK, nil
		}

		// 3. backward-clock correction.
		l.correctClock()

		// 4. compute backend deadline.
		nonBlocking := l.activeCount > 0 || flags&FlagNonBlock != 0
		var timeout time.Duration
		switch {
		case nonBlocking:
			timeout = 0
		case l.timers.Len() > 0:
			timeout = l.timers.peekMin().deadline.Sub(l.now())
			if timeout < 0 {
				timeout = 0
			}
		default:
			timeout = -1
		}

		// 5. nothing registered at all.
		if l.registry.Len() == 0 && l.timers.Len() == 0 && l.activeCount == 0 {
			return ResultNoEvents, nil
		}

		// 6. snapshot event_tv, invalidate the now() cache.
		l.eventTV = l.clock.Now()
		l.nowCacheValid = false

		// 7. backend poll.
		if err := l.mux.Dispatch(timeout); err != nil {
			return ResultOK, newBackendError("dispatch", l.mux.Name(), err)
		}

		// 8. refresh the now() cache.
		l.nowCache = l.clock.Now()
		l.nowCacheValid = true

		// 9. drain elapsed timers into the run-queue.
		l.drainTimers()

		// 10-12. drain exactly one priority level, or exit per flags.
		if lowestNonEmpty(l.queues) >= 0 {
			emptied, aborted := l.drainActive()
			if aborted {
				// Back to the top: a BreakNow is cleared and returned
				// there, a raised signal is drained by processSignals.
				continue
			}
			if emptied && flags&FlagOnce != 0 {
				return ResultOK, nil
			}
		} else if flags&FlagNonBlock != 0 {
			return ResultOK, nil
		}
	}
}

// drainTimers moves every Event whose deadline has elapsed from the
// timer heap to its priority run-queue.
func (l *Loop) drainTimers() {
	now := l.now()
	for {
		top := l.timers.peekMin()
		if top == nil || top.deadline.After(now) {
			return
		}
		ev := top
		// PERSIST only protects backend (fd) registration across a
		// firing; a fired deadline is always consumed. A pure-timer
		// PERSIST event (no fd/signal interest) has nothing left to
		// persist, so it gets the same full teardown as non-persist.
		if ev.mask&Persist != 0 && ev.mask&ioMask != 0 {
			l.timers.erase(ev)
			ev.flags &^= flagTimeout
			ev.deadline = time.Time{}
		} else {
			_ = l.del(ev)
		}
		ev.activate(l, Timeout, 1)
	}
}

// drainActive drains exactly the lowest-indexed non-empty priority
// queue, bounded to the number of events present when the drain began:
// an event that re-activates at the same priority mid-drain lands at
// the tail and is left for the next iteration, not revisited here.
// Returns whether that level's queue is now empty, and whether
// processing was cut short by BreakNow or a raised signal.
func (l *Loop) drainActive() (emptied bool, aborted bool) {
	idx := lowestNonEmpty(l.queues)
	if idx < 0 {
		return false, false
	}
	q := l.queues[idx]
	n := q.Len()
	for i := 0; i < n && q.Len() > 0; i++ {
		ev := popFront(q)
		if ev.mask&Persist != 0 {
			ev.flags &^= flagActive
			l.activeCount--
		} else {
			_ = l.del(ev)
		}
		if l.runEvent(ev) {
			return q.Len() == 0, true
		}
	}
	return q.Len() == 0, false
}

// runEvent invokes ev's callback once per coalesced ncalls, honoring
// the per-drain abort cell that a del() of ev (e.g. the callback
// deleting its own event) can zero to stop the remaining calls. Returns true
// if BreakNow or a raised signal cut the sequence short, so the caller
// should stop processing the rest of this priority level too.
func (l *Loop) runEvent(ev *Event) bool {
	local := ev.ncalls
	ev.pncalls = &local
	for local > 0 {
		local--
		ev.ncalls = local
		ev.cb(ev, ev.res, ev.data)
		if l.brk || l.signalRaised() {
			ev.pncalls = nil
			return true
		}
	}
	ev.pncalls = nil
	return false
}

// add reserves timer-heap capacity first so the whole call is atomic on
// out-of-memory, registers fd/signal interest with the backend (or
// signal bridge) if not already INSERTED, and arms/re-arms the deadline
// if timeout >= 0.
func (l *Loop) add(ev *Event, timeout time.Duration) error {
	hasTimeout := timeout >= 0
	wasTracked := ev.flags.has(flagInserted) || ev.flags.has(flagTimeout)

	if hasTimeout && !ev.flags.has(flagTimeout) {
		l.timers.reserve(1)
	}

	ioInterest := ev.mask & ioMask
	if ioInterest != 0 && !ev.flags.has(flagInserted) {
		var err error
		if ev.mask&Signal != 0 {
			if l.sigBridge == nil {
				l.sigBridge = newSigBridge(l)
			}
			err = l.sigBridge.register(ev)
		} else {
			err = l.mux.Add(ev)
		}
		if err != nil {
			return newBackendError("add", l.mux.Name(), err)
		}
		ev.flags |= flagInserted
	}

	if hasTimeout {
		if ev.flags.has(flagTimeout) {
			l.timers.erase(ev)
		}
		if ev.flags.has(flagActive) {
			removeFromQueue(l.queues[ev.pri], ev)
			ev.flags &^= flagActive
			l.activeCount--
			if ev.pncalls != nil {
				*ev.pncalls = 0
			}
		}
		ev.deadline = l.now().Add(timeout)
		ev.flags |= flagTimeout
		l.timers.push(ev)
	}

	isTracked := ev.flags.has(flagInserted) || ev.flags.has(flagTimeout)
	if !wasTracked && isTracked {
		ev.regElem = l.registry.PushBack(ev)
	}
	return nil
}

// del removes ev from whichever of the three sets (INSERTED, TIMEOUT,
// ACTIVE) it currently belongs to. Idempotent:
// a no-op on an event in none of them. Also zeroes ev's live drain
// abort cell, if any, so a callback that deletes its own event mid-drain
// stops that event's remaining coalesced calls immediately.
func (l *Loop) del(ev *Event) error {
	if ev.pncalls != nil {
		*ev.pncalls = 0
	}

	if ev.flags.has(flagTimeout) {
		l.timers.erase(ev)
		ev.flags &^= flagTimeout
		ev.deadline = time.Time{}
	}

	if ev.flags.has(flagActive) {
		if ev.queueElem != nil {
			removeFromQueue(l.queues[ev.pri], ev)
		}
		ev.flags &^= flagActive
		l.activeCount--
	}

	var err error
	if ev.flags.has(flagInserted) {
		if ev.mask&Signal != 0 {
			if l.sigBridge != nil {
				l.sigBridge.unregister(ev)
			}
		} else if ev.mask&ioMask != 0 {
			err = l.mux.Del(ev)
		}
		ev.flags &^= flagInserted
	}

	if ev.regElem != nil && !ev.flags.has(flagInserted) && !ev.flags.has(flagTimeout) {
		l.registry.Remove(ev.regElem)
		ev.regElem = nil
	}

	if err != nil {
		return newBackendError("del", l.mux.Name(), err)
	}
	return nil
}

// pruneInternalEvent strips ev out of the registry/queues/heap without
// touching the (already-torn-down) backend, for use during
// reinitAfterFork where the old Multiplexer handle is no longer valid to
// call Del against.
func (l *Loop) pruneInternalEvent(ev *Event) {
	if ev.regElem != nil {
		l.registry.Remove(ev.regElem)
		ev.regElem = nil
	}
	if ev.queueElem != nil {
		removeFromQueue(l.queues[ev.pri], ev)
		l.activeCount--
	}
	if ev.flags.has(flagTimeout) {
		l.timers.erase(ev)
	}
	ev.flags = flagInit
	ev.loop = nil
}

// reinitAfterFork is the body of ReinitAfterFork in fork_unix.go (the
// Windows ReinitAfterFork in fork_windows.go is a no-op): destroy and recreate the backend handle, prune the
// internal signal-wake event without running its normal delete side
// effects, then re-register every surviving event with the fresh
// backend. Timer heap and run-queue contents are untouched. Done
// unconditionally, regardless of the old backend's NeedsReinit(), per
// the decision recorded in DESIGN.md.
func (l *Loop) reinitAfterFork() error {
	_ = l.mux.Dealloc()

	mux, err := selectMultiplexer(l.backendOverride)
	if err != nil {
		return err
	}
	if err := mux.Init(l); err != nil {
		return newBackendError("init", mux.Name(), err)
	}
	l.mux = mux

	if l.sigBridge != nil && l.sigBridge.pipeEv != nil {
		l.pruneInternalEvent(l.sigBridge.pipeEv)
		l.sigBridge.pipeEv = nil
		l.sigBridge.wake = nil
	}

	for e := l.registry.Front(); e != nil; e = e.Next() {
		ev := e.Value.(*Event)
		if !ev.flags.has(flagInserted) || ev.mask&Signal != 0 || ev.mask&ioMask == 0 {
			continue
		}
		ev.flags &^= flagInserted
		if err := l.mux.Add(ev); err != nil {
			return newBackendError("add", l.mux.Name(), err)
		}
		ev.flags |= flagInserted
	}

	if l.sigBridge != nil && len(l.sigBridge.events) > 0 {
		if err := l.sigBridge.ensureWake(); err != nil {
			return err
		}
		l.sigBridge.applyWatchSet()
	}
	return nil
}
