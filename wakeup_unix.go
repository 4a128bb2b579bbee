//go:build linux || darwin || netbsd || freebsd || openbsd || dragonfly

package evcore

// newSignalWake builds the internal, PERSIST, INTERNAL-flagged Event
// that lets a signal delivery unblock a Dispatch call parked in the
// backend. The returned wake closure is safe to call from the
// signal-delivery goroutine in signal.go.
func newSignalWake(loop *Loop) (*Event, func() error, error) {
	w, err := newWaker()
	if err != nil {
		return nil, nil, err
	}
	ev := NewEvent(w.readFD(), Read|Persist, func(ev *Event, res Mask, data any) {
		w.drain()
	}, nil)
	ev.flags |= flagInternal
	if err := ev.Bind(loop); err != nil {
		_ = w.close()
		return nil, nil, err
	}
	if err := ev.Add(NoTimeout); err != nil {
		_ = w.close()
		return nil, nil, err
	}
	return ev, w.write, nil
}
