//go:build linux || darwin || netbsd || freebsd || openbsd || dragonfly

package evcore

import (
	"time"

	"golang.org/x/sys/unix"
)

func init() {
	registerBackend("poll", func() Multiplexer { return &pollBackend{} })
}

// pollBackend is the poll(2) rung of the backend preference ladder. It
// is built only on the platforms that also build epoll or kqueue and is
// registered after them, so it is used only through an explicit
// WithBackend("poll") override. Implements the same
// register/modify/delete/wait quartet as the epoll and kqueue backends,
// but directly over unix.Poll instead of a kernel-side readiness set,
// since poll(2) has no persistent kernel object to register against.
type pollBackend struct {
	loop *Loop
	byFD map[int]*Event
}

func (b *pollBackend) Init(loop *Loop) error {
	b.loop = loop
	b.byFD = make(map[int]*Event)
	return nil
}

func (b *pollBackend) Add(ev *Event) error {
	b.byFD[ev.ident] = ev
	return nil
}

func (b *pollBackend) Del(ev *Event) error {
	delete(b.byFD, ev.ident)
	return nil
}

func (b *pollBackend) Dispatch(timeout time.Duration) error {
	if len(b.byFD) == 0 {
		if timeout > 0 {
			time.Sleep(timeout)
		}
		return nil
	}

	fds := make([]unix.PollFd, 0, len(b.byFD))
	events := make([]*Event, 0, len(b.byFD))
	for _, ev := range b.byFD {
		var flags int16
		if ev.mask&Read != 0 {
			flags |= unix.POLLIN
		}
		if ev.mask&Write != 0 {
			flags |= unix.POLLOUT
		}
		fds = append(fds, unix.PollFd{Fd: int32(ev.ident), Events: flags})
		events = append(events, ev)
	}

	timeoutMs := -1
	if timeout >= 0 {
		timeoutMs = int(timeout.Milliseconds())
	}

	n, err := unix.Poll(fds, timeoutMs)
	if err != nil {
		if err == unix.EINTR {
			return nil
		}
		return err
	}
	if n == 0 {
		return nil
	}
	for i, pfd := range fds {
		if pfd.Revents == 0 {
			continue
		}
		var mask Mask
		if pfd.Revents&unix.POLLIN != 0 {
			mask |= Read
		}
		if pfd.Revents&unix.POLLOUT != 0 {
			mask |= Write
		}
		if mask != 0 {
			events[i].activate(b.loop, mask, 1)
		}
	}
	return nil
}

func (b *pollBackend) Dealloc() error { return nil }

func (b *pollBackend) NeedsReinit() bool { return false }

func (b *pollBackend) Name() string { return "poll" }
