package queue

import (
	"context"
	"strings"
)

///////////////////////////////////////////////////////////////////////////////
// GLOBALS

// Status line text shown while the assistant is working
const busyMarker = "esc to interrupt"

///////////////////////////////////////////////////////////////////////////////
// PRIVATE METHODS

// processStatusUpdate brings the status message in line with the status
// text of a window
func (m *Manager) processStatusUpdate(ctx context.Context, c *conversation, window, text string) error {
	if text == "" {
		return m.clearStatus(ctx, c)
	}

	target := m.resolve(c.key)
	current := c.display.statusLine()
	switch {
	case current == nil:
		return m.sendStatus(ctx, c, window, text)
	case current.Window != window:
		if err := m.clearStatus(ctx, c); err != nil {
			return err
		}
		return m.sendStatus(ctx, c, window, text)
	case current.Text == text:
		return nil
	}

	// Same window with new text, edit in place
	if _, err := m.editWithFallback(ctx, target, current.ID, text, ""); isRateLimit(err) {
		return err
	} else if err != nil {
		m.logger.Debug("status edit failed, sending new message", "conversation", c.key.String(), "message", current.ID, "error", err)
		c.display.takeStatus()
		return m.sendStatus(ctx, c, window, text)
	}
	c.display.setStatus(current.ID, window, text)
	if isBusy(text) {
		return m.typing(ctx, target)
	}
	return nil
}

// sendStatus sends a new status message and tracks it. A status message
// which is still tracked is deleted first, so it is never orphaned.
func (m *Manager) sendStatus(ctx context.Context, c *conversation, window, text string) error {
	target := m.resolve(c.key)
	if old := c.display.takeStatus(); old != nil {
		if err := m.deleteMessage(ctx, target, old.ID); err != nil {
			return err
		}
	}
	if isBusy(text) {
		if err := m.typing(ctx, target); err != nil {
			return err
		}
	}
	msg, err := m.sendWithFallback(ctx, target, text)
	if err != nil {
		return err
	}
	c.display.setStatus(msg, window, text)
	return nil
}

// clearStatus deletes the tracked status message
func (m *Manager) clearStatus(ctx context.Context, c *conversation) error {
	status := c.display.takeStatus()
	if status == nil {
		return nil
	}
	return m.deleteMessage(ctx, m.resolve(c.key), status.ID)
}

// checkAndSendStatus probes the window for its status line, unless more
// tasks are waiting which would replace it
func (m *Manager) checkAndSendStatus(ctx context.Context, c *conversation, window string) error {
	if window == "" || !c.queue.Empty() {
		return nil
	}
	_, err := m.probe(ctx, c, Task{
		Kind:        KindPaneProbe,
		Key:         c.key,
		WindowID:    window,
		Source:      "status_check",
		AllowStatus: true,
	})
	return err
}

func isBusy(text string) bool {
	return strings.Contains(strings.ToLower(text), busyMarker)
}
