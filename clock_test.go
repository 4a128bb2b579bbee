package evcore

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestClock_SystemClockIsMonotonic(t *testing.T) {
	require.True(t, monotonicAvailable(systemClock{}))
}

func TestClock_FakeClockIsNotTreatedAsMonotonic(t *testing.T) {
	require.False(t, monotonicAvailable(&fakeClock{t: time.Unix(0, 0)}))
}

func TestClock_SystemClockAdvances(t *testing.T) {
	var c systemClock
	first := c.Now()
	time.Sleep(time.Millisecond)
	second := c.Now()
	require.True(t, second.After(first))
}
