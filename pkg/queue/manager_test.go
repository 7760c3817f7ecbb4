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
// MANAGER TESTS

var key = relay.Key(1, 0)

// Test New validates its arguments
func Test_manager_001(t *testing.T) {
	assert := assert.New(t)

	_, err := New(nil, new(mockRenderer), newMockInspector())
	assert.ErrorIs(err, relay.ErrBadParameter)
	_, err = New(newMockChat(), nil, newMockInspector())
	assert.ErrorIs(err, relay.ErrBadParameter)
	_, err = New(newMockChat(), new(mockRenderer), nil)
	assert.ErrorIs(err, relay.ErrBadParameter)
	_, err = New(newMockChat(), new(mockRenderer), newMockInspector(), WithMergeBudget(0))
	assert.ErrorIs(err, relay.ErrBadParameter)
	_, err = New(newMockChat(), new(mockRenderer), newMockInspector(), WithLogger(nil))
	assert.ErrorIs(err, relay.ErrBadParameter)
}

// Test side effects follow enqueue order
func Test_manager_002(t *testing.T) {
	assert := assert.New(t)
	f := newFixture(t)
	f.inspector.set("w1", "status:Working")

	assert.NoError(f.EnqueueContent(key, "w1", []string{"A"}))
	assert.NoError(f.EnqueueInteractiveClear(key))
	assert.NoError(f.EnqueueContent(key, "w1", []string{"B"}))
	f.drain(key)

	// The status check after A is skipped while B is waiting
	assert.Equal([]string{"send:A", "send:B", "send:Working"}, f.chat.Trace())
}

// Test two plain content tasks are delivered in one send
func Test_manager_003(t *testing.T) {
	assert := assert.New(t)
	f := newFixture(t)

	assert.NoError(f.EnqueueContent(key, "w1", []string{"A"}))
	assert.NoError(f.EnqueueContent(key, "w1", []string{"B"}))
	f.drain(key)

	assert.Equal([]string{"send:A\n\nB"}, f.chat.Trace())
}

// Test two tool_use tasks are never merged
func Test_manager_004(t *testing.T) {
	assert := assert.New(t)
	f := newFixture(t)

	assert.NoError(f.EnqueueContent(key, "w1", []string{"Read a.go"}, WithToolUse("t1")))
	assert.NoError(f.EnqueueContent(key, "w1", []string{"Read b.go"}, WithToolUse("t2")))
	f.drain(key)

	assert.Equal([]string{"send:Read a.go", "send:Read b.go"}, f.chat.Trace())
}

// Test a task with an ack is delivered on its own and resolved
func Test_manager_005(t *testing.T) {
	assert := assert.New(t)
	f := newFixture(t)

	ack, err := f.enqueueContent(key, "w1", []string{"A"}, true)
	assert.NoError(err)
	assert.NotNil(ack)
	assert.NoError(f.EnqueueContent(key, "w1", []string{"B"}))
	f.drain(key)

	assert.Equal([]string{"send:A", "send:B"}, f.chat.Trace())
	select {
	case <-ack.Done():
		assert.NoError(ack.Err())
	default:
		assert.Fail("ack not resolved")
	}
}

// Test probes for the same window are coalesced while one is waiting
func Test_manager_006(t *testing.T) {
	assert := assert.New(t)
	f := newFixture(t)

	for i := 0; i < 3; i++ {
		assert.NoError(f.EnqueuePaneProbe(key, "w1", "poll", true))
	}
	assert.Equal(1, f.Queue(key).Len())

	// Another window is a separate probe
	assert.NoError(f.EnqueuePaneProbe(key, "w2", "poll", true))
	assert.Equal(2, f.Queue(key).Len())

	// Processing releases the window
	f.drain(key)
	assert.False(f.probes.pendingFor(key, "w1"))
	assert.NoError(f.EnqueuePaneProbe(key, "w1", "poll", true))
	assert.Equal(1, f.Queue(key).Len())

	assert.ErrorIs(f.EnqueuePaneProbe(key, "", "poll", true), relay.ErrBadParameter)
}

// Test a tool_result edits the message of its tool_use
func Test_manager_007(t *testing.T) {
	assert := assert.New(t)
	f := newFixture(t)

	assert.NoError(f.EnqueueContent(key, "w1", []string{"Read a.go"}, WithToolUse("t1")))
	f.drain(key)
	assert.NoError(f.EnqueueContent(key, "w1", []string{"Read a.go (42 lines)"}, WithToolResult("t1")))
	f.drain(key)

	ops := f.chat.Ops()
	if assert.Len(ops, 2) {
		assert.Equal("send", ops[0].Op)
		assert.Equal("edit", ops[1].Op)
		assert.Equal(ops[0].ID, ops[1].ID)
		assert.Equal("Read a.go (42 lines)", ops[1].Text)
	}

	// The edit target is consumed
	_, exists := f.lookup(key).display.takeTool("t1")
	assert.False(exists)
}

// Test a tool_result without a known tool_use is sent as a new message
func Test_manager_008(t *testing.T) {
	assert := assert.New(t)
	f := newFixture(t)

	assert.NoError(f.EnqueueContent(key, "w1", []string{"orphan result"}, WithToolResult("t9")))
	f.drain(key)
	assert.Equal([]string{"send:orphan result"}, f.chat.Trace())
}

// Test a long rate limit bans non-content tasks while content waits
func Test_manager_009(t *testing.T) {
	assert := assert.New(t)
	f := newFixture(t)

	f.chat.fail("send", &relay.RateLimitError{RetryAfter: 30 * time.Second})
	assert.NoError(f.EnqueueContent(key, "w1", []string{"A"}))
	f.drain(key)
	assert.True(f.lookup(key).gate.active(f.clock.Now()))

	// Status updates are not enqueued during the ban
	assert.NoError(f.EnqueueStatusUpdate(key, "w1", "Working"))
	assert.Equal(0, f.Queue(key).Len())

	// Probes and clears are dropped, content is delayed
	assert.NoError(f.EnqueuePaneProbe(key, "w1", "poll", true))
	assert.NoError(f.EnqueueInteractiveClear(key))
	assert.NoError(f.EnqueueContent(key, "w1", []string{"B"}))
	assert.Equal(3, f.Queue(key).Len())
	f.drain(key)

	assert.Equal([]string{"send:B"}, f.chat.Trace())
	assert.Equal([]time.Duration{30 * time.Second}, f.clock.Sleeps())
	assert.False(f.lookup(key).gate.active(f.clock.Now()))
	assert.False(f.probes.pendingFor(key, "w1"))
}

// Test a short rate limit is slept out inline without a ban
func Test_manager_010(t *testing.T) {
	assert := assert.New(t)
	f := newFixture(t)

	f.chat.fail("send", &relay.RateLimitError{RetryAfter: 3 * time.Second})
	assert.NoError(f.EnqueueContent(key, "w1", []string{"A"}))
	f.drain(key)

	assert.Equal([]time.Duration{3 * time.Second}, f.clock.Sleeps())
	assert.False(f.lookup(key).gate.active(f.clock.Now()))
	assert.NoError(f.EnqueueStatusUpdate(key, "w1", "Working"))
	assert.Equal(1, f.Queue(key).Len())
}

// Test a tool_use which opens an interactive UI skips the status check
func Test_manager_011(t *testing.T) {
	assert := assert.New(t)
	f := newFixture(t)
	f.inspector.set("w1", "ui:AskUserQuestion\nWhich option?\n1. yes\n2. no\nstatus:Waiting")

	assert.NoError(f.EnqueueContent(key, "w1", []string{"Asking"}, WithToolUse("t1")))
	f.drain(key)

	ops := f.chat.Ops()
	if assert.Len(ops, 2) {
		assert.Equal("send", ops[0].Op)
		assert.Equal("Asking", ops[0].Text)
		assert.Equal("send", ops[1].Op)
		assert.Equal("Which option?\n1. yes\n2. no\nstatus:Waiting", ops[1].Text)
		assert.NotEmpty(ops[1].Keyboard)
	}
	assert.Equal(1, f.inspector.Finds())

	// The tool_use message was recorded for its result
	msg, exists := f.lookup(key).display.takeTool("t1")
	assert.True(exists)
	assert.Equal(ops[0].ID, msg)
}

// Test the status check is skipped while tasks are waiting
func Test_manager_012(t *testing.T) {
	assert := assert.New(t)
	f := newFixture(t)
	f.inspector.set("w1", "status:Working")

	c, err := f.conversation(key)
	assert.NoError(err)
	assert.NoError(c.queue.push(contentTask("w1", "pending")))

	assert.NoError(f.checkAndSendStatus(context.Background(), c, "w1"))
	assert.Equal(0, f.inspector.Finds())
	assert.Empty(f.chat.Ops())

	// Once the queue is empty, the status line is sent
	f.drain(key)
	assert.Equal([]string{"send:pending", "send:Working"}, f.chat.Trace())
}

// Test clearing a conversation resolves waiting tasks and forgets state
func Test_manager_013(t *testing.T) {
	assert := assert.New(t)
	f := newFixture(t)

	ack, err := f.enqueueContent(key, "w1", []string{"A"}, true)
	assert.NoError(err)
	assert.NoError(f.EnqueuePaneProbe(key, "w1", "poll", true))

	f.ClearConversation(key)
	assert.ErrorIs(ack.Wait(context.Background()), relay.ErrClosed)
	assert.Nil(f.Queue(key))
	assert.False(f.Pending(key))
	assert.False(f.probes.pendingFor(key, "w1"))
	assert.Empty(f.chat.Ops())

	// A new conversation is created on the next enqueue
	assert.NoError(f.EnqueueContent(key, "w1", []string{"B"}))
	assert.True(f.Pending(key))
}

// Test delivery with running workers and shutdown
func Test_manager_014(t *testing.T) {
	assert := assert.New(t)
	chat := newMockChat()
	m, err := New(chat, new(mockRenderer), newMockInspector())
	if !assert.NoError(err) {
		t.FailNow()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	assert.NoError(m.DeliverContent(ctx, key, "w1", []string{"hello"}))
	assert.Equal(1, chat.Count("send"))

	// A permanent failure is returned to the waiting producer
	chat.fail("send", relay.ErrPermanent.With("forbidden"))
	assert.ErrorIs(m.DeliverContent(ctx, key, "w1", []string{"denied"}), relay.ErrPermanent)

	// Conversations are independent
	assert.NoError(m.DeliverContent(ctx, relay.Key(2, 5), "w2", []string{"other"}))
	assert.Equal(2, chat.Count("send"))

	assert.NoError(m.Shutdown(ctx))
	assert.ErrorIs(m.EnqueueContent(key, "w1", []string{"late"}), relay.ErrClosed)
	assert.Nil(m.Queue(key))
}

// Test content without parts is rejected
func Test_manager_015(t *testing.T) {
	assert := assert.New(t)
	f := newFixture(t)
	assert.ErrorIs(f.EnqueueContent(key, "w1", nil), relay.ErrBadParameter)
}

// Test the conversation target is resolved for every call
func Test_manager_016(t *testing.T) {
	assert := assert.New(t)
	f := newFixture(t, WithResolver(func(k relay.ConversationKey) relay.Target {
		return relay.Target{ChatID: -100, ThreadID: k.ThreadID}
	}))

	topic := relay.Key(1, 42)
	assert.NoError(f.EnqueueContent(topic, "w1", []string{"A"}))
	f.drain(topic)

	ops := f.chat.Ops()
	if assert.Len(ops, 1) {
		assert.Equal(relay.Target{ChatID: -100, ThreadID: 42}, ops[0].Target)
	}
}

// Test content merged at exactly the budget is delivered in one send
func Test_manager_017(t *testing.T) {
	assert := assert.New(t)

	f := newFixture(t, WithMergeBudget(10))
	assert.NoError(f.EnqueueContent(key, "w1", []string{"aaaaa"}))
	assert.NoError(f.EnqueueContent(key, "w1", []string{"bbbbb"}))
	f.drain(key)
	assert.Equal([]string{"send:aaaaa\n\nbbbbb"}, f.chat.Trace())

	// One character over the budget is two sends
	g := newFixture(t, WithMergeBudget(10))
	assert.NoError(g.EnqueueContent(key, "w1", []string{"aaaaa"}))
	assert.NoError(g.EnqueueContent(key, "w1", []string{"bbbbbb"}))
	g.drain(key)
	assert.Equal([]string{"send:aaaaa", "send:bbbbbb"}, g.chat.Trace())
}

// Test shutdown interrupts a worker waiting out a flood ban
func Test_manager_018(t *testing.T) {
	assert := assert.New(t)
	chat := newMockChat()
	m, err := New(chat, new(mockRenderer), newMockInspector())
	if !assert.NoError(err) {
		t.FailNow()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// A long rate limit installs a ban
	chat.fail("send", &relay.RateLimitError{RetryAfter: time.Minute})
	assert.ErrorIs(m.DeliverContent(ctx, key, "w1", []string{"A"}), relay.ErrRateLimited)

	// Content enqueued during the ban waits for it to expire
	ack, err := m.enqueueContent(key, "w1", []string{"B"}, true)
	if !assert.NoError(err) {
		t.FailNow()
	}
	select {
	case <-ack.Done():
		t.Fatal("content delivered during a flood ban")
	case <-time.After(50 * time.Millisecond):
	}

	shutdown, cancelShutdown := context.WithTimeout(context.Background(), time.Second)
	defer cancelShutdown()
	start := time.Now()
	assert.NoError(m.Shutdown(shutdown))
	assert.Less(time.Since(start), time.Second)

	assert.Error(ack.Wait(ctx))
	assert.Equal(0, chat.Count("send"))
}
