//go:build darwin || netbsd || freebsd || openbsd || dragonfly

package evcore

import "golang.org/x/sys/unix"

// waker is the self-pipe wake mechanism for BSD-family kernels: a
// non-blocking, close-on-exec pipe pair. Unlike Linux, these platforms
// have no eventfd, so a real read/write pipe pair is used instead of a
// single fd playing both roles.
type waker struct {
	readFd, writeFd int
}

func newWaker() (*waker, error) {
	var fds [2]int
	if err := unix.Pipe(fds[:]); err != nil {
		return nil, err
	}
	unix.CloseOnExec(fds[0])
	unix.CloseOnExec(fds[1])
	if err := unix.SetNonblock(fds[0], true); err != nil {
		_ = unix.Close(fds[0])
		_ = unix.Close(fds[1])
		return nil, err
	}
	if err := unix.SetNonblock(fds[1], true); err != nil {
		_ = unix.Close(fds[0])
		_ = unix.Close(fds[1])
		return nil, err
	}
	return &waker{readFd: fds[0], writeFd: fds[1]}, nil
}

func (w *waker) readFD() int { return w.readFd }

func (w *waker) write() error {
	_, err := unix.Write(w.writeFd, []byte{1})
	if err == unix.EAGAIN {
		return nil
	}
	return err
}

func (w *waker) drain() {
	var buf [64]byte
	for {
		if _, err := unix.Read(w.readFd, buf[:]); err != nil {
			return
		}
	}
}

func (w *waker) close() error {
	_ = unix.Close(w.writeFd)
	return unix.Close(w.readFd)
}
