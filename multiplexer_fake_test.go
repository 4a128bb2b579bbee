package evcore

import "time"

func init() {
	registerBackend("fake", func() Multiplexer { return &fakeMux{} })
}

// fakeMux is a deterministic, in-memory Multiplexer used by this
// package's own tests: it never touches a real fd or blocks, so tests
// control exactly what becomes ready and when via fire.
type fakeMux struct {
	loop       *Loop
	registered map[int]*Event
	pending    []fakeFire
	dispatches int
}

type fakeFire struct {
	fd   int
	mask Mask
}

func (m *fakeMux) Init(loop *Loop) error {
	m.loop = loop
	m.registered = make(map[int]*Event)
	return nil
}

func (m *fakeMux) Add(ev *Event) error {
	m.registered[ev.ident] = ev
	return nil
}

func (m *fakeMux) Del(ev *Event) error {
	delete(m.registered, ev.ident)
	return nil
}

func (m *fakeMux) Dispatch(timeout time.Duration) error {
	m.dispatches++
	fires := m.pending
	m.pending = nil
	for _, f := range fires {
		if ev, ok := m.registered[f.fd]; ok {
			ev.activate(m.loop, f.mask, 1)
		}
	}
	return nil
}

func (m *fakeMux) Dealloc() error { return nil }

func (m *fakeMux) NeedsReinit() bool { return false }

func (m *fakeMux) Name() string { return "fake" }

// fire schedules fd to appear ready with mask on the next Dispatch call.
func (m *fakeMux) fire(fd int, mask Mask) {
	m.pending = append(m.pending, fakeFire{fd: fd, mask: mask})
}

// fakeClock is a manually-advanced, non-monotonic Clock for deterministic
// timer and clock-correction tests.
type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time { return c.t }

func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestLoop(t interface {
	Helper()
	Fatalf(format string, args ...any)
}, clock *fakeClock, opts ...LoopOption) *Loop {
	t.Helper()
	base := []LoopOption{WithBackend("fake"), WithClock(clock)}
	l, err := New(append(base, opts...)...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return l
}
