//go:build windows

package evcore

// On Windows the signal bridge wakes Dispatch by posting an empty
// completion packet directly to the IOCP handle (backend_iocp_windows.go's
// wake method) rather than through a self-pipe fd, so there is no waker
// type here. newSignalWake type-asserts the active Multiplexer against
// the wakeable interface declared in multiplexer.go when it needs to
// interrupt a blocked Dispatch.
func newSignalWake(loop *Loop) (*Event, func() error, error) {
	return nil, func() error {
		if w, ok := loop.mux.(wakeable); ok {
			return w.wake()
		}
		return nil
	}, nil
}
