// Package evcore implements the core dispatch loop of a portable
// asynchronous I/O library: a single-threaded, cooperative reactor that
// multiplexes file-descriptor readiness, process signals, and timeouts
// onto one [Loop], backed by a pluggable [Multiplexer].
//
// # Architecture
//
// A [Loop] owns the registered-event set, a [timerHeap] keyed by
// absolute deadline, a priority run-queue, and a [Multiplexer] handle.
// [Event] values are caller-allocated: the loop only ever holds a
// reference to a bound event, never frees one, and a single [Event] can
// move between INSERTED (backend-registered), TIMEOUT (in the heap),
// and ACTIVE (linked into a priority queue) independently.
//
// # Platform support
//
// I/O readiness is detected using platform-native mechanisms selected
// in preference order at construction:
//   - Linux: epoll
//   - Darwin/BSD: kqueue
//   - Windows: IOCP
//
// A poll(2) backend is also built on Linux and Darwin/BSD; it is used
// only when requested with [WithBackend]("poll"). No other platform has
// a backend.
//
// # Concurrency
//
// The loop is single-threaded by design (see [Loop.Dispatch]): every
// public method must be called either from the goroutine currently
// running [Loop.Dispatch], or while the loop is quiescent. There is no
// internal locking. The only operation that may block is the
// configured [Multiplexer]'s Dispatch call.
//
// # Usage
//
//	loop, err := evcore.New()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer loop.Free()
//
//	ev := evcore.NewEvent(fd, evcore.Read|evcore.Persist, func(ev *evcore.Event, res evcore.Mask, data any) {
//	    fmt.Println("fd ready:", res)
//	}, nil)
//	ev.Bind(loop)
//	if err := ev.Add(evcore.NoTimeout); err != nil {
//	    log.Fatal(err)
//	}
//
//	if _, err := loop.Dispatch(0); err != nil {
//	    log.Fatal(err)
//	}
package evcore
