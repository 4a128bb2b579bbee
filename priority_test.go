package evcore

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func newQueueEvent() *Event {
	return NewEvent(-1, Timeout, func(ev *Event, res Mask, data any) {}, nil)
}

func TestPriority_LowestNonEmpty(t *testing.T) {
	qs := newQueues(4)
	require.Equal(t, -1, lowestNonEmpty(qs))

	ev := newQueueEvent()
	ev.queueElem = qs[2].PushBack(ev)
	require.Equal(t, 2, lowestNonEmpty(qs))

	high := newQueueEvent()
	high.queueElem = qs[0].PushBack(high)
	require.Equal(t, 0, lowestNonEmpty(qs))
}

func TestPriority_PopFrontClearsQueueElem(t *testing.T) {
	qs := newQueues(1)
	a := newQueueEvent()
	b := newQueueEvent()
	a.queueElem = qs[0].PushBack(a)
	b.queueElem = qs[0].PushBack(b)

	got := popFront(qs[0])
	require.Equal(t, a, got)
	require.Nil(t, a.queueElem)
	require.Equal(t, 1, qs[0].Len())
}

func TestPriority_RemoveFromQueueIsNoopWhenUnlinked(t *testing.T) {
	qs := newQueues(1)
	ev := newQueueEvent()

	removeFromQueue(qs[0], ev) // never linked; must not panic

	ev.queueElem = qs[0].PushBack(ev)
	removeFromQueue(qs[0], ev)
	require.Nil(t, ev.queueElem)
	require.Equal(t, 0, qs[0].Len())
}
