//go:build linux

package evcore

import (
	"time"

	"golang.org/x/sys/unix"
)

func init() {
	registerBackend("epoll", func() Multiplexer { return &epollBackend{} })
}

// epollBackend is a Multiplexer backed by Linux epoll. Since this core
// is single-threaded and every Add/Del/Dispatch call happens from
// inside Loop.Dispatch, registrations live in a plain, unsynchronized
// map from fd to the registered *Event rather than a mutex-guarded
// table sized for concurrent access.
type epollBackend struct {
	epfd     int
	loop     *Loop
	byFD     map[int]*Event
	eventBuf [256]unix.EpollEvent
}

func (b *epollBackend) Init(loop *Loop) error {
	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return err
	}
	b.epfd = epfd
	b.loop = loop
	b.byFD = make(map[int]*Event)
	return nil
}

func (b *epollBackend) Add(ev *Event) error {
	fd := ev.ident
	_, existed := b.byFD[fd]
	epEv := &unix.EpollEvent{Events: eventsToEpoll(ev.mask), Fd: int32(fd)}
	op := unix.EPOLL_CTL_ADD
	if existed {
		op = unix.EPOLL_CTL_MOD
	}
	if err := unix.EpollCtl(b.epfd, op, fd, epEv); err != nil {
		return err
	}
	b.byFD[fd] = ev
	return nil
}

func (b *epollBackend) Del(ev *Event) error {
	fd := ev.ident
	if _, ok := b.byFD[fd]; !ok {
		return nil
	}
	delete(b.byFD, fd)
	if err := unix.EpollCtl(b.epfd, unix.EPOLL_CTL_DEL, fd, nil); err != nil {
		return err
	}
	return nil
}

func (b *epollBackend) Dispatch(timeout time.Duration) error {
	n, err := unix.EpollWait(b.epfd, b.eventBuf[:], epollTimeoutMs(timeout))
	if err != nil {
		if err == unix.EINTR {
			return nil
		}
		return err
	}
	for i := 0; i < n; i++ {
		fd := int(b.eventBuf[i].Fd)
		ev, ok := b.byFD[fd]
		if !ok {
			continue
		}
		ev.activate(b.loop, epollToEvents(b.eventBuf[i].Events), 1)
	}
	return nil
}

func (b *epollBackend) Dealloc() error {
	return unix.Close(b.epfd)
}

func (b *epollBackend) NeedsReinit() bool { return true }

func (b *epollBackend) Name() string { return "epoll" }

func epollTimeoutMs(d time.Duration) int {
	if d < 0 {
		return -1
	}
	return int(d.Milliseconds())
}

func eventsToEpoll(mask Mask) uint32 {
	var e uint32
	if mask&Read != 0 {
		e |= unix.EPOLLIN
	}
	if mask&Write != 0 {
		e |= unix.EPOLLOUT
	}
	return e
}

func epollToEvents(e uint32) Mask {
	var mask Mask
	if e&unix.EPOLLIN != 0 {
		mask |= Read
	}
	if e&unix.EPOLLOUT != 0 {
		mask |= Write
	}
	return mask
}
