package queue

import (
	"context"
	"sync"

	// Packages
	relay "github.com/mutablelogic/go-relay"
)

///////////////////////////////////////////////////////////////////////////////
// TYPES

// Queue is the FIFO of tasks for one conversation. Producers push from any
// goroutine; exactly one worker pops.
type Queue struct {
	mu     sync.Mutex
	items  []Task
	closed bool
	notify chan struct{}
}

///////////////////////////////////////////////////////////////////////////////
// LIFECYCLE

func newQueue() *Queue {
	return &Queue{
		notify: make(chan struct{}, 1),
	}
}

///////////////////////////////////////////////////////////////////////////////
// PUBLIC METHODS

// Len returns the number of tasks waiting in the queue
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Empty returns true if no tasks are waiting
func (q *Queue) Empty() bool {
	return q.Len() == 0
}

///////////////////////////////////////////////////////////////////////////////
// PRIVATE METHODS

func (q *Queue) push(t Task) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return relay.ErrClosed.Withf("conversation %v", t.Key)
	}
	q.items = append(q.items, t)
	q.mu.Unlock()

	// Wake the worker
	select {
	case q.notify <- struct{}{}:
	default:
	}
	return nil
}

// pop blocks until a task is available or the context is done
func (q *Queue) pop(ctx context.Context) (Task, error) {
	for {
		q.mu.Lock()
		if len(q.items) > 0 {
			t := q.items[0]
			q.items[0] = Task{}
			q.items = q.items[1:]
			q.mu.Unlock()
			return t, nil
		}
		q.mu.Unlock()

		select {
		case <-ctx.Done():
			return Task{}, ctx.Err()
		case <-q.notify:
		}
	}
}

// takeWhile removes and returns the longest prefix of waiting tasks for
// which accept returns true. accept is called in queue order and may keep
// state. Tasks after the first rejected task stay in place, in order.
func (q *Queue) takeWhile(accept func(Task) bool) []Task {
	q.mu.Lock()
	defer q.mu.Unlock()

	n := 0
	for n < len(q.items) && accept(q.items[n]) {
		n++
	}
	if n == 0 {
		return nil
	}
	taken := make([]Task, n)
	copy(taken, q.items[:n])
	for i := 0; i < n; i++ {
		q.items[i] = Task{}
	}
	q.items = q.items[n:]
	return taken
}

// close rejects further pushes and returns the tasks which were never
// delivered
func (q *Queue) close() []Task {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	items := q.items
	q.items = nil
	return items
}
