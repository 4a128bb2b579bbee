package evcore

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestEvent_BindRejectsDoubleBind(t *testing.T) {
	clock := &fakeClock{t: time.Unix(100, 0)}
	loop := newTestLoop(t, clock)
	defer loop.Free()

	ev := NewEvent(-1, Timeout, func(ev *Event, res Mask, data any) {}, nil)
	require.NoError(t, ev.Bind(loop))
	require.ErrorIs(t, ev.Bind(loop), ErrInvalidState)
}

func TestEvent_UnboundOperationsFail(t *testing.T) {
	ev := NewEvent(-1, Timeout, func(ev *Event, res Mask, data any) {}, nil)
	require.ErrorIs(t, ev.Add(0), ErrEventNotBound)
	require.ErrorIs(t, ev.Del(), ErrEventNotBound)
	require.ErrorIs(t, ev.PrioritySet(0), ErrEventNotBound)
}

func TestEvent_PrioritySetValidation(t *testing.T) {
	clock := &fakeClock{t: time.Unix(200, 0)}
	loop := newTestLoop(t, clock, WithPriorities(3))
	defer loop.Free()

	ev := NewEvent(-1, Timeout, func(ev *Event, res Mask, data any) {}, nil)
	require.NoError(t, ev.Bind(loop))

	require.ErrorIs(t, ev.PrioritySet(-1), ErrInvalidState)
	require.ErrorIs(t, ev.PrioritySet(3), ErrInvalidState)
	require.NoError(t, ev.PrioritySet(2))
	require.Equal(t, 2, ev.pri)

	require.NoError(t, ev.Add(0))
	clock.advance(time.Millisecond)
	loop.drainTimers()
	require.True(t, ev.flags.has(flagActive))
	require.ErrorIs(t, ev.PrioritySet(0), ErrInvalidState)
}

func TestEvent_PendingReportsEachSet(t *testing.T) {
	clock := &fakeClock{t: time.Unix(300, 0)}
	loop := newTestLoop(t, clock)
	defer loop.Free()

	mux := loop.mux.(*fakeMux)
	ev := NewEvent(5, Read|Persist, func(ev *Event, res Mask, data any) {}, nil)
	require.NoError(t, ev.Bind(loop))
	require.NoError(t, ev.Add(50*time.Millisecond))

	var deadline time.Time
	got := ev.Pending(Read|Write|Timeout, &deadline)
	require.Equal(t, Read|Timeout, got)
	require.True(t, deadline.Equal(clock.t.Add(50*time.Millisecond)))

	mux.fire(5, Read)
	_, err := loop.Dispatch(FlagOnce | FlagNonBlock)
	require.NoError(t, err)
	require.Equal(t, Read, ev.Pending(Read, nil))
}

func TestEvent_DelIsNoopWhenQuiescent(t *testing.T) {
	clock := &fakeClock{t: time.Unix(400, 0)}
	loop := newTestLoop(t, clock)
	defer loop.Free()

	ev := NewEvent(-1, Timeout, func(ev *Event, res Mask, data any) {}, nil)
	require.NoError(t, ev.Bind(loop))
	require.NoError(t, ev.Del())
	require.NoError(t, ev.Del())
}

func TestEvent_ActivateCoalescesTriggeredMask(t *testing.T) {
	clock := &fakeClock{t: time.Unix(500, 0)}
	loop := newTestLoop(t, clock)
	defer loop.Free()

	ev := NewEvent(6, Read|Write, func(ev *Event, res Mask, data any) {}, nil)
	require.NoError(t, ev.Bind(loop))
	require.NoError(t, ev.Add(NoTimeout))

	ev.activate(loop, Read, 1)
	require.Equal(t, 1, loop.activeCount)
	ev.activate(loop, Write, 1)
	require.Equal(t, 1, loop.activeCount) // still just one queue entry
	require.Equal(t, Read|Write, ev.res)
}
