//go:build darwin || netbsd || freebsd || openbsd || dragonfly

package evcore

import (
	"time"

	"golang.org/x/sys/unix"
)

func init() {
	registerBackend("kqueue", func() Multiplexer { return &kqueueBackend{} })
}

// kqueueBackend is a Multiplexer backed by kqueue: one registered
// kevent filter per interest bit. Registrations live in a plain map
// rather than a mutex-guarded slice, since this core is
// single-threaded.
type kqueueBackend struct {
	kq       int
	loop     *Loop
	byFD     map[int]*Event
	eventBuf [256]unix.Kevent_t
}

func (b *kqueueBackend) Init(loop *Loop) error {
	kq, err := unix.Kqueue()
	if err != nil {
		return err
	}
	unix.CloseOnExec(kq)
	b.kq = kq
	b.loop = loop
	b.byFD = make(map[int]*Event)
	return nil
}

func (b *kqueueBackend) Add(ev *Event) error {
	changes := kqueueChanges(ev.ident, ev.mask, unix.EV_ADD|unix.EV_ENABLE)
	if _, err := unix.Kevent(b.kq, changes, nil, nil); err != nil {
		return err
	}
	b.byFD[ev.ident] = ev
	return nil
}

func (b *kqueueBackend) Del(ev *Event) error {
	if _, ok := b.byFD[ev.ident]; !ok {
		return nil
	}
	delete(b.byFD, ev.ident)
	changes := kqueueChanges(ev.ident, ev.mask, unix.EV_DELETE)
	_, err := unix.Kevent(b.kq, changes, nil, nil)
	return err
}

func (b *kqueueBackend) Dispatch(timeout time.Duration) error {
	var ts *unix.Timespec
	if timeout >= 0 {
		t := unix.NsecToTimespec(timeout.Nanoseconds())
		ts = &t
	}
	n, err := unix.Kevent(b.kq, nil, b.eventBuf[:], ts)
	if err != nil {
		if err == unix.EINTR {
			return nil
		}
		return err
	}
	for i := 0; i < n; i++ {
		kev := b.eventBuf[i]
		fd := int(kev.Ident)
		ev, ok := b.byFD[fd]
		if !ok {
			continue
		}
		var mask Mask
		switch kev.Filter {
		case unix.EVFILT_READ:
			mask = Read
		case unix.EVFILT_WRITE:
			mask = Write
		}
		ev.activate(b.loop, mask, 1)
	}
	return nil
}

func (b *kqueueBackend) Dealloc() error {
	return unix.Close(b.kq)
}

func (b *kqueueBackend) NeedsReinit() bool { return true }

func (b *kqueueBackend) Name() string { return "kqueue" }

func kqueueChanges(fd int, mask Mask, flags uint16) []unix.Kevent_t {
	var changes []unix.Kevent_t
	if mask&Read != 0 {
		changes = append(changes, unix.Kevent_t{
			Ident: uint64(fd), Filter: unix.EVFILT_READ, Flags: flags,
		})
	}
	if mask&Write != 0 {
		changes = append(changes, unix.Kevent_t{
			Ident: uint64(fd), Filter: unix.EVFILT_WRITE, Flags: flags,
		})
	}
	return changes
}
