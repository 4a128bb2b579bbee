//go:build linux || darwin || netbsd || freebsd || openbsd || dragonfly

package evcore

// ReinitAfterFork rebuilds backend state after fork(2). A forked child
// inherits epoll/kqueue fd numbers that are either invalid or shared
// with the parent's kernel object, so the backend handle must be
// destroyed and recreated; every surviving registered event is
// re-registered with the fresh one, keeping the existing event set.
func (l *Loop) ReinitAfterFork() error {
	return l.reinitAfterFork()
}
