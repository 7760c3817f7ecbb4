package queue

import (
	"context"
	"time"

	// Packages
	otel "github.com/mutablelogic/go-client/pkg/otel"
	relay "github.com/mutablelogic/go-relay"
	attribute "go.opentelemetry.io/otel/attribute"
)

///////////////////////////////////////////////////////////////////////////////
// TYPES

// conversation is the queue, flood gate and display state of one
// conversation, which its worker owns
type conversation struct {
	key     relay.ConversationKey
	queue   *Queue
	gate    floodGate
	display *display
	cancel  context.CancelFunc
}

///////////////////////////////////////////////////////////////////////////////
// LIFECYCLE

func newConversation(key relay.ConversationKey, cancel context.CancelFunc) *conversation {
	return &conversation{
		key:     key,
		queue:   newQueue(),
		display: newDisplay(),
		cancel:  cancel,
	}
}

// close cancels the worker and resolves the tasks which were never
// delivered
func (c *conversation) close() {
	c.cancel()
	for _, task := range c.queue.close() {
		task.ack.resolve(relay.ErrClosed.Withf("conversation %v", c.key))
	}
}

///////////////////////////////////////////////////////////////////////////////
// PRIVATE METHODS - WORKER

// run delivers tasks until the context is cancelled
func (m *Manager) run(ctx context.Context, c *conversation) {
	m.logger.Info("message queue worker started", "conversation", c.key.String())
	defer m.logger.Info("message queue worker stopped", "conversation", c.key.String())

	for {
		task, err := c.queue.pop(ctx)
		if err != nil {
			return
		}
		m.step(ctx, c, task)
	}
}

// step executes one dequeued task. Flood control is applied first: while a
// ban is active, content waits for the ban to expire and every other task
// is dropped.
func (m *Manager) step(ctx context.Context, c *conversation, task Task) {
	if remaining := c.gate.remaining(m.now()); remaining > 0 {
		if task.Kind != KindContent {
			m.drop(ctx, c, task)
			return
		}
		m.logger.Debug("flood controlled, waiting for content", "conversation", c.key.String(), "wait", remaining)
		if err := m.sleep(ctx, remaining); err != nil {
			task.ack.resolve(err)
			return
		}
	}
	if c.gate.lift() {
		m.logger.Info("flood control lifted", "conversation", c.key.String())
	}

	// Fold adjacent content into this task
	if task.Kind == KindContent {
		merged, n := c.queue.mergeContent(task, m.mergeBudget)
		if n > 0 {
			add(ctx, m.metrics.taskMerged, int64(n))
			m.logger.Debug("merged content tasks", "conversation", c.key.String(), "merged", n)
		}
		task = merged
	}

	m.logger.Debug("queue task start",
		"conversation", c.key.String(),
		"kind", task.Kind.String(),
		"source", task.Source,
		"window", task.WindowID,
		"pending", c.queue.Len(),
	)

	// Chat calls run to completion even when the worker is cancelled
	err := m.execute(ctx, c, task)
	if retry, ok := relay.RetryAfter(err); ok {
		m.floodControl(ctx, c, retry)
	} else if err != nil {
		add(ctx, m.metrics.taskFailed, 1, attribute.String("kind", task.Kind.String()))
		m.logger.Error("message task failed", "conversation", c.key.String(), "kind", task.Kind.String(), "error", err)
	}
	task.ack.resolve(err)
}

// execute dispatches a task by kind within a span
func (m *Manager) execute(ctx context.Context, c *conversation, task Task) (err error) {
	ctx, endSpan := otel.StartSpan(m.tracer, ctx, "queue."+task.Kind.String(),
		attribute.String("conversation", c.key.String()),
		attribute.String("window", task.WindowID),
		attribute.String("source", task.Source),
	)
	defer func() { endSpan(err) }()
	ctx = context.WithoutCancel(ctx)

	switch task.Kind {
	case KindContent:
		return m.processContent(ctx, c, task)
	case KindStatusUpdate:
		return m.processStatusUpdate(ctx, c, task.WindowID, task.Text)
	case KindStatusClear:
		return m.clearStatus(ctx, c)
	case KindPaneProbe:
		defer m.probes.release(c.key, task.WindowID)
		_, err := m.probe(ctx, c, task)
		return err
	case KindInteractiveClear:
		return m.clearInteractive(ctx, c)
	default:
		return relay.ErrNotImplemented.Withf("task kind %v", task.Kind)
	}
}

// drop discards a task during a flood ban
func (m *Manager) drop(ctx context.Context, c *conversation, task Task) {
	if task.Kind == KindPaneProbe {
		m.probes.release(c.key, task.WindowID)
	}
	add(ctx, m.metrics.taskDropped, 1, attribute.String("kind", task.Kind.String()))
	task.ack.resolve(nil)
}

// floodControl installs a ban for long waits and sleeps out short ones
func (m *Manager) floodControl(ctx context.Context, c *conversation, retry time.Duration) {
	if retry > m.floodThreshold {
		c.gate.ban(m.now().Add(retry))
		add(ctx, m.metrics.floodBan, 1)
		m.logger.Warn("flood control, pausing queue until ban expires", "conversation", c.key.String(), "retry_after", retry)
		return
	}
	m.logger.Warn("flood control, waiting", "conversation", c.key.String(), "retry_after", retry)
	if err := m.sleep(ctx, retry); err != nil {
		m.logger.Debug("flood wait cancelled", "conversation", c.key.String())
	}
}
