package delayqueue

import (
	"sync"
	"time"
)

// DelayQueue runs named tasks once after a delay. Scheduling an existing key
// replaces its pending task; Cancel removes it. A cancelled task never runs.
type DelayQueue struct {
	mu      sync.Mutex
	timers  map[string]*time.Timer
	stopped bool
}

func New() *DelayQueue {
	return &DelayQueue{timers: make(map[string]*time.Timer)}
}

func (q *DelayQueue) Schedule(key string, delay time.Duration, fn func()) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.stopped {
		return
	}

	if prev, ok := q.timers[key]; ok {
		prev.Stop()
	}

	var t *time.Timer
	t = time.AfterFunc(delay, func() {
		q.mu.Lock()
		cur, ok := q.timers[key]
		if !ok || cur != t {
			// replaced or cancelled between firing and acquiring the lock
			q.mu.Unlock()
			return
		}
		delete(q.timers, key)
		q.mu.Unlock()

		fn()
	})
	q.timers[key] = t
}

// Cancel removes the pending task for key. Returns true if a task was
// pending; the task is guaranteed not to run afterwards.
func (q *DelayQueue) Cancel(key string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	t, ok := q.timers[key]
	if !ok {
		return false
	}

	delete(q.timers, key)
	t.Stop()

	return true
}

func (q *DelayQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	return len(q.timers)
}

// Stop cancels every pending task and rejects further scheduling.
func (q *DelayQueue) Stop() {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.stopped = true
	for key, t := range q.timers {
		t.Stop()
		delete(q.timers, key)
	}
}
