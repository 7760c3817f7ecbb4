package queue

import (
	"context"
	"strings"

	// Packages
	xxhash "github.com/cespare/xxhash/v2"
	relay "github.com/mutablelogic/go-relay"
	attribute "go.opentelemetry.io/otel/attribute"
)

///////////////////////////////////////////////////////////////////////////////
// PRIVATE METHODS

// probe reconciles the interactive UI message of the conversation with a
// capture of the window, and returns true when an interactive UI is visible.
// When the task allows it and no UI is visible, the status line is synced.
func (m *Manager) probe(ctx context.Context, c *conversation, task Task) (bool, error) {
	window := task.WindowID
	if window == "" {
		return false, nil
	}
	log := m.logger.With("conversation", c.key.String(), "window", window, "source", task.Source)

	// Window gone
	handle, err := m.inspector.FindWindow(ctx, window)
	if err != nil {
		log.Debug("interactive probe skipped", "reason", "find_window", "error", err)
		return false, nil
	} else if handle == nil {
		if err := m.clearInteractive(ctx, c); err != nil {
			return false, err
		}
		if task.AllowStatus {
			if err := m.clearStatus(ctx, c); err != nil {
				return false, err
			}
		}
		log.Debug("interactive probe clear", "reason", "window_missing")
		return false, nil
	}

	// Keep what is displayed when the capture fails
	pane, err := m.inspector.CapturePane(ctx, handle)
	if err != nil || strings.TrimSpace(pane) == "" {
		log.Debug("interactive probe skipped", "reason", "capture_empty", "error", err)
		return false, nil
	}

	// No interactive UI, sync the status line instead
	ui := m.inspector.ExtractInteractiveUI(pane)
	if ui == nil {
		if err := m.clearInteractive(ctx, c); err != nil {
			return false, err
		}
		if task.AllowStatus {
			if line := m.inspector.ParseStatusLine(pane); line != "" {
				if err := m.processStatusUpdate(ctx, c, window, line); err != nil {
					return false, err
				}
			}
		}
		log.Debug("interactive probe clear", "reason", "ui_absent")
		return false, nil
	}

	// Nothing changed since the last render
	text := strings.TrimSpace(ui.Text)
	fp := fingerprint(window, ui.Name, text)
	current := c.display.render()
	if current != nil && current.Window == window && current.Fingerprint == fp {
		add(ctx, m.metrics.interactiveNoop, 1, attribute.String("ui", ui.Name))
		log.Debug("interactive probe noop", "ui", ui.Name)
		return true, nil
	}

	// The interactive UI displaces the status line and any UI of another window
	if err := m.clearStatus(ctx, c); err != nil {
		return false, err
	}
	if current != nil && current.Window != window {
		if err := m.clearInteractive(ctx, c); err != nil {
			return false, err
		}
		current = nil
	}

	target := m.resolve(c.key)
	content := relay.Content{Text: text}.WithKeyboard(Keyboard(window, ui.Name))

	// Edit the message in place
	if current != nil {
		result, err := m.chat.Edit(ctx, target, current.ID, content)
		switch {
		case err == nil:
			c.display.setInteractive(current.ID, window, fp)
			if result == relay.EditCurrent {
				add(ctx, m.metrics.interactiveNoop, 1, attribute.String("ui", ui.Name))
			} else {
				add(ctx, m.metrics.interactiveEdit, 1, attribute.String("ui", ui.Name))
			}
			log.Debug("interactive probe edit", "ui", ui.Name, "result", result.String())
			return true, nil
		case isRateLimit(err):
			return false, err
		default:
			log.Debug("interactive probe edit failed", "ui", ui.Name, "error", err)
			c.display.takeInteractive()
			if err := m.deleteMessage(ctx, target, current.ID); err != nil {
				return false, err
			}
		}
	}

	// Send a new message
	msg, err := m.chat.Send(ctx, target, content)
	if err != nil {
		return false, err
	}
	c.display.setInteractive(msg, window, fp)
	add(ctx, m.metrics.interactiveSend, 1, attribute.String("ui", ui.Name))
	log.Debug("interactive probe send", "ui", ui.Name)
	return true, nil
}

// clearInteractive deletes the tracked interactive UI message
func (m *Manager) clearInteractive(ctx context.Context, c *conversation) error {
	render := c.display.takeInteractive()
	if render == nil {
		return nil
	}
	return m.deleteMessage(ctx, m.resolve(c.key), render.ID)
}

// fingerprint identifies what an interactive UI message shows
func fingerprint(window, ui, text string) uint64 {
	return xxhash.Sum64String(window + "\n" + ui + "\n" + strings.TrimSpace(text))
}
