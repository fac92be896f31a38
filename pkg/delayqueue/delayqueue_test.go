package delayqueue

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScheduleFires(t *testing.T) {
	q := New()
	defer q.Stop()

	var fired atomic.Int32
	q.Schedule("a", 10*time.Millisecond, func() { fired.Add(1) })

	require.Eventually(t, func() bool {
		return fired.Load() == 1
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, 0, q.Len(), "fired task must be removed from the queue")
}

func TestCancelPreventsRun(t *testing.T) {
	q := New()
	defer q.Stop()

	var fired atomic.Int32
	q.Schedule("a", 20*time.Millisecond, func() { fired.Add(1) })

	require.True(t, q.Cancel("a"))
	assert.False(t, q.Cancel("a"), "second cancel must report nothing pending")

	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, int32(0), fired.Load(), "cancelled task must not run")
}

func TestScheduleReplacesPending(t *testing.T) {
	q := New()
	defer q.Stop()

	var first, second atomic.Int32
	q.Schedule("a", 20*time.Millisecond, func() { first.Add(1) })
	q.Schedule("a", 20*time.Millisecond, func() { second.Add(1) })

	require.Eventually(t, func() bool {
		return second.Load() == 1
	}, time.Second, 5*time.Millisecond)

	time.Sleep(40 * time.Millisecond)
	assert.Equal(t, int32(0), first.Load(), "replaced task must not run")
}

func TestStopCancelsAll(t *testing.T) {
	q := New()

	var fired atomic.Int32
	q.Schedule("a", 20*time.Millisecond, func() { fired.Add(1) })
	q.Schedule("b", 20*time.Millisecond, func() { fired.Add(1) })

	q.Stop()
	assert.Equal(t, 0, q.Len())

	q.Schedule("c", time.Millisecond, func() { fired.Add(1) })

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(0), fired.Load(), "stopped queue must not run tasks")
}
