package queue

import (
	"context"
	"testing"
	"time"

	// Packages
	relay "github.com/mutablelogic/go-relay"
	assert "github.com/stretchr/testify/assert"
)

///////////////////////////////////////////////////////////////////////////////
// QUEUE TESTS

func contentTask(window string, parts ...string) Task {
	task := newTask(KindContent, relay.Key(1, 0), window, "test")
	task.Parts = parts
	return task
}

// Test tasks are popped in push order
func Test_queue_001(t *testing.T) {
	assert := assert.New(t)
	q := newQueue()

	assert.True(q.Empty())
	assert.NoError(q.push(contentTask("w1", "A")))
	assert.NoError(q.push(contentTask("w1", "B")))
	assert.NoError(q.push(contentTask("w1", "C")))
	assert.Equal(3, q.Len())

	for _, want := range []string{"A", "B", "C"} {
		task, err := q.pop(context.Background())
		assert.NoError(err)
		assert.Equal([]string{want}, task.Parts)
	}
	assert.True(q.Empty())
}

// Test pop observes cancellation
func Test_queue_002(t *testing.T) {
	assert := assert.New(t)
	q := newQueue()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := q.pop(ctx)
	assert.ErrorIs(err, context.Canceled)
}

// Test pop blocks until a task is pushed
func Test_queue_003(t *testing.T) {
	assert := assert.New(t)
	q := newQueue()

	go func() {
		time.Sleep(10 * time.Millisecond)
		q.push(contentTask("w1", "late"))
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	task, err := q.pop(ctx)
	assert.NoError(err)
	assert.Equal([]string{"late"}, task.Parts)
}

// Test takeWhile removes a prefix and keeps the rest in order
func Test_queue_004(t *testing.T) {
	assert := assert.New(t)
	q := newQueue()
	for _, part := range []string{"A", "B", "C", "D"} {
		assert.NoError(q.push(contentTask("w1", part)))
	}

	taken := q.takeWhile(func(t Task) bool {
		return t.Parts[0] != "C"
	})
	assert.Len(taken, 2)
	assert.Equal(2, q.Len())

	task, err := q.pop(context.Background())
	assert.NoError(err)
	assert.Equal([]string{"C"}, task.Parts)

	assert.Nil(q.takeWhile(func(Task) bool { return false }))
	assert.Equal(1, q.Len())
}

// Test close returns waiting tasks and rejects pushes
func Test_queue_005(t *testing.T) {
	assert := assert.New(t)
	q := newQueue()
	assert.NoError(q.push(contentTask("w1", "A")))

	remaining := q.close()
	assert.Len(remaining, 1)
	assert.True(q.Empty())
	assert.ErrorIs(q.push(contentTask("w1", "B")), relay.ErrClosed)
}

///////////////////////////////////////////////////////////////////////////////
// ACK TESTS

// Test an ack resolves once
func Test_ack_001(t *testing.T) {
	assert := assert.New(t)
	ack := newAck()

	assert.NoError(ack.Err())
	ack.resolve(relay.ErrTransient)
	ack.resolve(nil)

	<-ack.Done()
	assert.ErrorIs(ack.Err(), relay.ErrTransient)
	assert.ErrorIs(ack.Wait(context.Background()), relay.ErrTransient)
}

// Test waiting on an unresolved ack observes cancellation
func Test_ack_002(t *testing.T) {
	assert := assert.New(t)
	ack := newAck()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(ack.Wait(ctx), context.DeadlineExceeded)

	// Resolving a nil ack is allowed
	var none *Ack
	none.resolve(nil)
}

///////////////////////////////////////////////////////////////////////////////
// FLOOD GATE TESTS

func Test_flood_001(t *testing.T) {
	assert := assert.New(t)
	var gate floodGate
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	assert.False(gate.active(now))
	assert.False(gate.lift())

	gate.ban(now.Add(30 * time.Second))
	assert.True(gate.active(now))
	assert.Equal(30*time.Second, gate.remaining(now))

	// A shorter ban does not shorten the existing one
	gate.ban(now.Add(5 * time.Second))
	assert.Equal(20*time.Second, gate.remaining(now.Add(10*time.Second)))

	// Expired
	assert.False(gate.active(now.Add(time.Minute)))
	assert.True(gate.lift())
	assert.False(gate.lift())
}

///////////////////////////////////////////////////////////////////////////////
// PROBE SET TESTS

func Test_probeset_001(t *testing.T) {
	assert := assert.New(t)
	p := newProbeSet()
	a, b := relay.Key(1, 0), relay.Key(1, 7)

	assert.True(p.acquire(a, "w1"))
	assert.False(p.acquire(a, "w1"))
	assert.True(p.acquire(a, "w2"))
	assert.True(p.acquire(b, "w1"))

	p.release(a, "w1")
	assert.False(p.pendingFor(a, "w1"))
	assert.True(p.acquire(a, "w1"))

	p.clearConversation(a)
	assert.False(p.pendingFor(a, "w1"))
	assert.False(p.pendingFor(a, "w2"))
	assert.True(p.pendingFor(b, "w1"))
}
