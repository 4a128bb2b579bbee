//go:build windows

package evcore

// ReinitAfterFork is a no-op on Windows: there is no fork(2) equivalent,
// and an IOCP handle is not invalidated by CreateProcess the way an
// epoll/kqueue fd is invalidated by fork. Kept as a real method, not a
// stub that errors, so callers can call it unconditionally in
// cross-platform code.
func (l *Loop) ReinitAfterFork() error {
	return nil
}
