package evcore

import "time"

// Multiplexer is the capability this core requires of any OS readiness
// backend. Concrete backends (epoll, kqueue, poll, IOCP) are out of
// scope for the core itself; it only depends on this interface.
type Multiplexer interface {
	// Init binds the backend to loop, constructing any per-loop state
	// (e.g. an epoll/kqueue fd). Dispatch may call ev.activate(loop, ...)
	// for events previously passed to Add.
	Init(loop *Loop) error

	// Add registers fd/signal interest for ev with the backend.
	Add(ev *Event) error

	// Del unregisters ev from the backend.
	Del(ev *Event) error

	// Dispatch blocks until readiness or timeout elapses, calling
	// ev.activate for each event that became ready. A negative timeout
	// blocks indefinitely; zero performs a non-blocking poll.
	Dispatch(timeout time.Duration) error

	// Dealloc tears down backend state (e.g. closes the epoll/kqueue fd).
	Dealloc() error

	// NeedsReinit reports whether this backend holds fork-invalid kernel
	// state and must be destroyed/recreated after fork.
	NeedsReinit() bool

	// Name identifies the backend for diagnostics (EVENT_SHOW_METHOD).
	Name() string
}

// wakeable is implemented by backends with no fd-based wake path (IOCP);
// newSignalWake in wakeup_windows.go uses it to interrupt a blocked
// Dispatch.
type wakeable interface {
	wake() error
}

// backendFactory constructs a fresh, uninitialized Multiplexer.
type backendFactory struct {
	name string
	new  func() Multiplexer
}

// preferenceOrder lists backendFactory entries in platform-preference
// order: event ports -> kqueue -> epoll -> /dev/poll -> poll -> select
// -> win32. Each platform file (backend_*.go) appends the
// factories it can actually build via its init(); backend_poll.go is
// built only alongside the epoll or kqueue backend and appends "poll"
// after it, so "poll" is only chosen through an override.
var preferenceOrder []backendFactory

func registerBackend(name string, new func() Multiplexer) {
	preferenceOrder = append(preferenceOrder, backendFactory{name: name, new: new})
}

// selectMultiplexer picks the first available backend, or the one named
// by override (set with WithBackend).
// Returns ErrNoMechanism if none are available or override doesn't match
// any registered backend.
func selectMultiplexer(override string) (Multiplexer, error) {
	if override != "" {
		for _, f := range preferenceOrder {
			if f.name == override {
				return f.new(), nil
			}
		}
		return nil, ErrNoMechanism
	}
	if len(preferenceOrder) == 0 {
		return nil, ErrNoMechanism
	}
	return preferenceOrder[0].new(), nil
}
