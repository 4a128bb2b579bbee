//go:build windows

package evcore

import (
	"syscall"
	"time"

	"golang.org/x/sys/windows"
)

func init() {
	registerBackend("iocp", func() Multiplexer { return &iocpBackend{} })
}

// iocpBackend is a Multiplexer backed by a Windows I/O completion port:
// CreateIoCompletionPort/GetQueuedCompletionStatus/
// PostQueuedCompletionStatus. Registrations live in a plain map rather
// than a mutex-guarded table, since this core is single-threaded and
// every Add/Del/Dispatch call happens from inside Loop.Dispatch.
type iocpBackend struct {
	iocp windows.Handle
	loop *Loop
	byFD map[int]*Event
}

func (b *iocpBackend) Init(loop *Loop) error {
	iocp, err := windows.CreateIoCompletionPort(windows.InvalidHandle, 0, 0, 0)
	if err != nil {
		return err
	}
	b.iocp = iocp
	b.loop = loop
	b.byFD = make(map[int]*Event)
	return nil
}

func (b *iocpBackend) Add(ev *Event) error {
	if _, ok := b.byFD[ev.ident]; !ok {
		handle := windows.Handle(ev.ident)
		if _, err := windows.CreateIoCompletionPort(handle, b.iocp, 0, 0); err != nil {
			return err
		}
	}
	b.byFD[ev.ident] = ev
	return nil
}

func (b *iocpBackend) Del(ev *Event) error {
	delete(b.byFD, ev.ident)
	return nil
}

// Dispatch waits for a single completion packet. IOCP has no native
// level-triggered readiness notion for arbitrary handles, and overlapped
// I/O integration is out of scope here, so this backend treats any
// non-wakeup completion as "some registered fd may be ready" and
// re-activates every currently registered event, leaving the
// callback to determine actual readiness (e.g. via a non-blocking read).
func (b *iocpBackend) Dispatch(timeout time.Duration) error {
	var timeoutMs *uint32
	if timeout >= 0 {
		t := uint32(timeout.Milliseconds())
		timeoutMs = &t
	}

	var bytes uint32
	var key uintptr
	var overlapped *windows.Overlapped

	err := windows.GetQueuedCompletionStatus(b.iocp, &bytes, &key, &overlapped, timeoutMs)
	if err != nil {
		if errno, ok := err.(syscall.Errno); ok && errno == windows.WAIT_TIMEOUT {
			return nil
		}
		return err
	}
	if overlapped == nil {
		// Wakeup posted via PostQueuedCompletionStatus (signal bridge).
		return nil
	}
	for _, ev := range b.byFD {
		ev.activate(b.loop, ev.mask&ioMask, 1)
	}
	return nil
}

func (b *iocpBackend) Dealloc() error {
	return windows.CloseHandle(b.iocp)
}

func (b *iocpBackend) NeedsReinit() bool { return true }

func (b *iocpBackend) Name() string { return "iocp" }

// wake posts an empty completion packet to unblock Dispatch, used by the
// signal bridge's wakeup path on Windows (wakeup_windows.go).
func (b *iocpBackend) wake() error {
	return windows.PostQueuedCompletionStatus(b.iocp, 0, 0, nil)
}
