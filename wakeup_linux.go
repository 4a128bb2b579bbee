//go:build linux

package evcore

import "golang.org/x/sys/unix"

// waker is what the signal bridge (signal.go) uses to unblock a
// Dispatch call that is blocked in the Multiplexer waiting for fd/timer
// readiness: a single non-blocking, close-on-exec eventfd serves as
// both the read and write end.
type waker struct {
	fd int
}

func newWaker() (*waker, error) {
	fd, err := unix.Eventfd(0, unix.EFD_CLOEXEC|unix.EFD_NONBLOCK)
	if err != nil {
		return nil, err
	}
	return &waker{fd: fd}, nil
}

func (w *waker) readFD() int { return w.fd }

func (w *waker) write() error {
	var buf [8]byte
	buf[7] = 1
	_, err := unix.Write(w.fd, buf[:])
	if err == unix.EAGAIN {
		return nil
	}
	return err
}

func (w *waker) drain() {
	var buf [8]byte
	for {
		if _, err := unix.Read(w.fd, buf[:]); err != nil {
			return
		}
	}
}

func (w *waker) close() error {
	return unix.Close(w.fd)
}
