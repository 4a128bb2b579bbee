package evcore

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newHeapEvent(d time.Time) *Event {
	ev := NewEvent(-1, Timeout, func(ev *Event, res Mask, data any) {}, nil)
	ev.deadline = d
	return ev
}

func TestTimerHeap_OrdersByDeadlineAscending(t *testing.T) {
	var h timerHeap
	base := time.Unix(1000, 0)

	evC := newHeapEvent(base.Add(30 * time.Second))
	evA := newHeapEvent(base.Add(10 * time.Second))
	evB := newHeapEvent(base.Add(20 * time.Second))

	h.push(evC)
	h.push(evA)
	h.push(evB)

	require.Equal(t, evA, h.peekMin())
	require.Equal(t, evA, h.popMin())
	require.Equal(t, evB, h.popMin())
	require.Equal(t, evC, h.popMin())
	require.Nil(t, h.popMin())
}

func TestTimerHeap_EraseByStoredIndex(t *testing.T) {
	var h timerHeap
	base := time.Unix(2000, 0)

	evA := newHeapEvent(base.Add(time.Second))
	evB := newHeapEvent(base.Add(2 * time.Second))
	evC := newHeapEvent(base.Add(3 * time.Second))

	h.push(evA)
	h.push(evB)
	h.push(evC)

	h.erase(evB)
	require.Equal(t, 2, h.Len())
	require.Equal(t, -1, evB.heapIndex)

	require.Equal(t, evA, h.popMin())
	require.Equal(t, evC, h.popMin())
}

func TestTimerHeap_EraseIsNoopForAbsentEvent(t *testing.T) {
	var h timerHeap
	ev := newHeapEvent(time.Unix(3000, 0))
	h.push(ev)

	other := newHeapEvent(time.Unix(3000, 0))
	h.erase(other) // never pushed; heapIndex still -1

	require.Equal(t, 1, h.Len())
	h.erase(ev)
	h.erase(ev) // second erase is a no-op, not a panic
	require.Equal(t, 0, h.Len())
}

func TestTimerHeap_ReserveGrowsCapacityWithoutMutating(t *testing.T) {
	var h timerHeap
	ev := newHeapEvent(time.Unix(4000, 0))
	h.push(ev)

	h.reserve(10)
	require.GreaterOrEqual(t, cap(h.items), 11)
	require.Equal(t, 1, h.Len())
	require.Equal(t, ev, h.peekMin())
}
