package queue

import (
	"context"
	"errors"
	"sync"

	// Packages
	relay "github.com/mutablelogic/go-relay"
	attribute "go.opentelemetry.io/otel/attribute"
	errgroup "golang.org/x/sync/errgroup"
)

///////////////////////////////////////////////////////////////////////////////
// TYPES

// Manager owns one queue and one delivery worker per conversation. Producers
// enqueue tasks from any goroutine; each worker delivers the tasks for its
// conversation to the chat surface in order.
type Manager struct {
	*opts
	chat      relay.ChatClient
	renderer  relay.Renderer
	inspector relay.Inspector
	metrics   *metrics
	probes    *probeSet

	mu            sync.Mutex
	conversations map[relay.ConversationKey]*conversation
	closed        bool
	ctx           context.Context
	cancel        context.CancelFunc
	workers       errgroup.Group
}

///////////////////////////////////////////////////////////////////////////////
// LIFECYCLE

// New returns a manager which delivers to the chat client, rendering content
// with the renderer and probing windows with the inspector
func New(chat relay.ChatClient, renderer relay.Renderer, inspector relay.Inspector, opts ...Opt) (*Manager, error) {
	if chat == nil {
		return nil, relay.ErrBadParameter.With("chat client is nil")
	}
	if renderer == nil {
		return nil, relay.ErrBadParameter.With("renderer is nil")
	}
	if inspector == nil {
		return nil, relay.ErrBadParameter.With("inspector is nil")
	}

	o, err := applyOpts(opts...)
	if err != nil {
		return nil, err
	}
	metrics, err := newMetrics(o.meter)
	if err != nil {
		return nil, err
	}

	self := &Manager{
		opts:          o,
		chat:          chat,
		renderer:      renderer,
		inspector:     inspector,
		metrics:       metrics,
		probes:        newProbeSet(),
		conversations: make(map[relay.ConversationKey]*conversation),
	}
	self.ctx, self.cancel = context.WithCancel(context.Background())
	return self, nil
}

// Shutdown cancels every worker and waits for them to return, or until the
// context is done. Tasks which were never delivered are resolved with
// ErrClosed, and all display state is forgotten.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	m.closed = true
	conversations := m.conversations
	m.conversations = make(map[relay.ConversationKey]*conversation)
	m.mu.Unlock()

	// Cancel workers and reject further tasks
	m.cancel()
	for _, c := range conversations {
		c.close()
	}

	// Wait for workers to observe cancellation
	done := make(chan error, 1)
	go func() {
		done <- m.workers.Wait()
	}()
	var result error
	select {
	case err := <-done:
		result = err
	case <-ctx.Done():
		result = ctx.Err()
	}

	// Forget display state
	for _, c := range conversations {
		c.display.reset()
	}
	m.probes.reset()
	m.logger.Info("message queue workers stopped", "conversations", len(conversations))

	return result
}

///////////////////////////////////////////////////////////////////////////////
// PUBLIC METHODS - QUEUES

// Queue returns the queue for a conversation, or nil if the conversation has
// no queue
func (m *Manager) Queue(key relay.ConversationKey) *Queue {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, exists := m.conversations[key]; exists {
		return c.queue
	}
	return nil
}

// Pending returns true if the conversation has tasks which have not been
// delivered yet
func (m *Manager) Pending(key relay.ConversationKey) bool {
	q := m.Queue(key)
	return q != nil && !q.Empty()
}

// InteractiveWindow returns the window whose interactive UI is currently
// displayed in the conversation
func (m *Manager) InteractiveWindow(key relay.ConversationKey) (string, bool) {
	c := m.lookup(key)
	if c == nil {
		return "", false
	}
	if r := c.display.render(); r != nil {
		return r.Window, true
	}
	return "", false
}

// ClearConversation stops the worker for a conversation and forgets its
// queue and display state, for example when the conversation is closed.
// Nothing is deleted from the chat surface.
func (m *Manager) ClearConversation(key relay.ConversationKey) {
	m.mu.Lock()
	c, exists := m.conversations[key]
	delete(m.conversations, key)
	m.mu.Unlock()

	if exists {
		c.close()
		c.display.reset()
	}
	m.probes.clearConversation(key)
	m.logger.Debug("conversation cleared", "conversation", key.String())
}

///////////////////////////////////////////////////////////////////////////////
// PUBLIC METHODS - PRODUCERS

// EnqueueContent adds content for a window to the conversation queue and
// returns without waiting for delivery
func (m *Manager) EnqueueContent(key relay.ConversationKey, window string, parts []string, opts ...ContentOpt) error {
	_, err := m.enqueueContent(key, window, parts, false, opts...)
	return err
}

// DeliverContent adds content to the conversation queue and waits until it
// has been delivered, returning the delivery failure if any
func (m *Manager) DeliverContent(ctx context.Context, key relay.ConversationKey, window string, parts []string, opts ...ContentOpt) error {
	ack, err := m.enqueueContent(key, window, parts, true, opts...)
	if err != nil {
		return err
	}
	return ack.Wait(ctx)
}

// EnqueueStatusUpdate replaces the status line for a window. An empty text
// clears it. The update is skipped while the conversation is under a flood
// ban, or when the status line already shows the text.
func (m *Manager) EnqueueStatusUpdate(key relay.ConversationKey, window, text string) error {
	if c := m.lookup(key); c != nil {
		if c.gate.active(m.now()) {
			return nil
		}
		if text != "" && c.display.showsStatus(window, text) {
			return nil
		}
	}

	c, err := m.conversation(key)
	if err != nil {
		return err
	}
	if text == "" {
		return c.queue.push(newTask(KindStatusClear, key, "", "status"))
	}
	task := newTask(KindStatusUpdate, key, window, "status")
	task.Text = text
	return c.queue.push(task)
}

// EnqueuePaneProbe asks the worker to reconcile the interactive UI and
// status line of a window with what the chat surface shows. A probe is not
// added while another probe for the same window is waiting.
func (m *Manager) EnqueuePaneProbe(key relay.ConversationKey, window, source string, allowStatus bool) error {
	if window == "" {
		return relay.ErrBadParameter.With("window is empty")
	}
	if source == "" {
		source = "manual"
	}
	if !m.probes.acquire(key, window) {
		add(m.ctx, m.metrics.probeCoalesced, 1, attribute.String("source", source))
		m.logger.Debug("pane probe coalesced", "conversation", key.String(), "window", window, "source", source)
		return nil
	}

	c, err := m.conversation(key)
	if err != nil {
		m.probes.release(key, window)
		return err
	}
	task := newTask(KindPaneProbe, key, window, source)
	task.AllowStatus = allowStatus
	if err := c.queue.push(task); err != nil {
		m.probes.release(key, window)
		return err
	}
	add(m.ctx, m.metrics.probeEnqueued, 1, attribute.String("source", source))
	return nil
}

// EnqueueInteractiveClear removes the interactive UI message of the
// conversation
func (m *Manager) EnqueueInteractiveClear(key relay.ConversationKey) error {
	c, err := m.conversation(key)
	if err != nil {
		return err
	}
	return c.queue.push(newTask(KindInteractiveClear, key, "", "manual"))
}

///////////////////////////////////////////////////////////////////////////////
// PRIVATE METHODS

func (m *Manager) enqueueContent(key relay.ConversationKey, window string, parts []string, wait bool, opts ...ContentOpt) (*Ack, error) {
	if len(parts) == 0 {
		return nil, relay.ErrBadParameter.With("content has no parts")
	}
	c, err := m.conversation(key)
	if err != nil {
		return nil, err
	}

	task := newTask(KindContent, key, window, "monitor")
	task.Parts = append([]string(nil), parts...)
	for _, opt := range opts {
		opt(&task)
	}
	if wait {
		task.ack = newAck()
	}
	m.logger.Debug("enqueue content", "conversation", key.String(), "window", window, "content_type", task.ContentType.String())
	if err := c.queue.push(task); err != nil {
		return nil, err
	}
	return task.ack, nil
}

// lookup returns an existing conversation, or nil
func (m *Manager) lookup(key relay.ConversationKey) *conversation {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.conversations[key]
}

// conversation returns the conversation for the key, creating the queue and
// starting its worker on first use
func (m *Manager) conversation(key relay.ConversationKey) (*conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, relay.ErrClosed.With("manager is shut down")
	}
	if c, exists := m.conversations[key]; exists {
		return c, nil
	}

	ctx, cancel := context.WithCancel(m.ctx)
	c := newConversation(key, cancel)
	m.conversations[key] = c
	if !m.manual {
		m.workers.Go(func() error {
			m.run(ctx, c)
			return nil
		})
	}
	return c, nil
}

// isRateLimit returns true if the error asks the caller to back off
func isRateLimit(err error) bool {
	return errors.Is(err, relay.ErrRateLimited)
}
