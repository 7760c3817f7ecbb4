package queue

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	// Packages
	relay "github.com/mutablelogic/go-relay"
)

///////////////////////////////////////////////////////////////////////////////
// PRIVATE METHODS - CONTENT

// processContent delivers a content task: a tool_result edits the message of
// its tool_use, other content converts the status line into its first
// message or is sent as new messages
func (m *Manager) processContent(ctx context.Context, c *conversation, task Task) error {
	target := m.resolve(c.key)

	// Tool results replace the tool_use message when it is known
	if task.ContentType == ContentToolResult && task.ToolUseID != "" {
		if msg, exists := c.display.takeTool(task.ToolUseID); exists {
			if done, err := m.editToolResult(ctx, c, target, msg, task); done || err != nil {
				return err
			}
		}
	}

	// Send the parts, converting the status line into the first message
	var last relay.MessageID
	var result error
	for i, text := range m.messages(task) {
		if i == 0 {
			if msg, converted, err := m.convertStatus(ctx, c, target, task.WindowID, text); err != nil {
				return err
			} else if converted {
				last = msg
				continue
			}
		}
		msg, err := m.sendWithFallback(ctx, target, text)
		if isRateLimit(err) {
			return err
		} else if err != nil {
			result = errors.Join(result, err)
			continue
		}
		last = msg
	}

	// Record the message before probing, so the tool_result always finds it
	if last != 0 && task.ContentType == ContentToolUse && task.ToolUseID != "" {
		c.display.setTool(task.ToolUseID, last)
	}

	// A tool call may open an interactive UI, which preempts the status line
	if task.ContentType == ContentToolUse && task.WindowID != "" {
		visible, err := m.probe(ctx, c, Task{
			Kind:     KindPaneProbe,
			Key:      c.key,
			WindowID: task.WindowID,
			Source:   "tool_use",
		})
		if err != nil {
			return errors.Join(result, err)
		}
		if visible {
			if err := m.sendImages(ctx, target, task.Images); err != nil {
				return err
			}
			return result
		}
	}

	if err := m.sendImages(ctx, target, task.Images); err != nil {
		return err
	}
	if err := m.checkAndSendStatus(ctx, c, task.WindowID); err != nil {
		return errors.Join(result, err)
	}
	return result
}

// editToolResult edits the tool_use message with the result. It returns
// true when the result is displayed and the task is complete, and false when
// the result should be sent as a new message instead.
func (m *Manager) editToolResult(ctx context.Context, c *conversation, target relay.Target, msg relay.MessageID, task Task) (bool, error) {
	if err := m.clearStatus(ctx, c); err != nil {
		return false, err
	}

	text := strings.Join(task.Parts, mergeSeparator)
	if _, err := m.editWithFallback(ctx, target, msg, text, task.Text); isRateLimit(err) {
		return false, err
	} else if err != nil {
		m.logger.Debug("tool result edit failed, sending new message", "conversation", c.key.String(), "message", msg, "error", err)
		return false, nil
	}

	if err := m.sendImages(ctx, target, task.Images); err != nil {
		return false, err
	}
	return true, m.checkAndSendStatus(ctx, c, task.WindowID)
}

// convertStatus edits the status message of the same window into content,
// saving a delete and a send. It returns false when the content must be
// sent as a new message.
func (m *Manager) convertStatus(ctx context.Context, c *conversation, target relay.Target, window, text string) (relay.MessageID, bool, error) {
	status := c.display.takeStatus()
	if status == nil {
		return 0, false, nil
	}
	if status.Window != window {
		return 0, false, m.deleteMessage(ctx, target, status.ID)
	}
	if _, err := m.editWithFallback(ctx, target, status.ID, text, ""); isRateLimit(err) {
		return 0, false, err
	} else if err != nil {
		m.logger.Debug("status conversion failed", "conversation", c.key.String(), "message", status.ID, "error", err)
		return 0, false, nil
	}
	return status.ID, true, nil
}

// messages returns the texts to send for a task. Plain text parts are packed
// into as few messages as the merge budget allows, measured the same way as
// the merge engine (part text only, separators not counted); tool calls keep
// one message per part.
func (m *Manager) messages(task Task) []string {
	if task.ContentType != ContentText {
		return task.Parts
	}

	var result []string
	var current []string
	size := 0
	for _, part := range task.Parts {
		n := utf8.RuneCountInString(part)
		if len(current) > 0 && size+n > m.mergeBudget {
			result = append(result, strings.Join(current, mergeSeparator))
			current, size = nil, 0
		}
		current = append(current, part)
		size += n
	}
	if len(current) > 0 {
		result = append(result, strings.Join(current, mergeSeparator))
	}
	return result
}

///////////////////////////////////////////////////////////////////////////////
// PRIVATE METHODS - CHAT

// sendWithFallback sends rendered text, falling back to plain text when
// rendering or the rich send fails
func (m *Manager) sendWithFallback(ctx context.Context, target relay.Target, text string) (relay.MessageID, error) {
	content, err := m.renderer.Render(text)
	if err == nil {
		msg, err := m.chat.Send(ctx, target, content)
		if err == nil || isRateLimit(err) || relay.IsPermanent(err) {
			return msg, err
		}
		m.logger.Debug("rich send failed, falling back to plain text", "target", target.String(), "error", err)
	} else {
		m.logger.Debug("render failed, falling back to plain text", "error", err)
	}
	return m.chat.Send(ctx, target, m.renderer.Plain(text))
}

// editWithFallback edits a message to rendered text, falling back to plain
// text of raw when set. A message which already shows the content is a
// success.
func (m *Manager) editWithFallback(ctx context.Context, target relay.Target, msg relay.MessageID, text, raw string) (relay.EditResult, error) {
	content, err := m.renderer.Render(text)
	if err == nil {
		result, err := m.chat.Edit(ctx, target, msg, content)
		if err == nil || isRateLimit(err) || relay.IsPermanent(err) {
			return result, err
		}
		m.logger.Debug("rich edit failed, falling back to plain text", "target", target.String(), "message", msg, "error", err)
	} else {
		m.logger.Debug("render failed, falling back to plain text", "error", err)
	}
	return m.chat.Edit(ctx, target, msg, m.renderer.Plain(fallbackText(text, raw)))
}

// deleteMessage deletes a message. Only a rate limit is returned; any other
// failure means the message is already gone or cannot be removed.
func (m *Manager) deleteMessage(ctx context.Context, target relay.Target, msg relay.MessageID) error {
	if err := m.chat.Delete(ctx, target, msg); isRateLimit(err) {
		return err
	} else if err != nil {
		m.logger.Debug("delete failed", "target", target.String(), "message", msg, "error", err)
	}
	return nil
}

// sendImages sends image attachments. Only a rate limit is returned.
func (m *Manager) sendImages(ctx context.Context, target relay.Target, images []relay.Image) error {
	if len(images) == 0 {
		return nil
	}
	m.logger.Info("sending images", "target", target.String(), "count", len(images))
	if err := m.chat.SendPhotos(ctx, target, images); isRateLimit(err) {
		return err
	} else if err != nil {
		m.logger.Warn("send images failed", "target", target.String(), "error", err)
	}
	return nil
}

// typing shows the typing indicator. Only a rate limit is returned.
func (m *Manager) typing(ctx context.Context, target relay.Target) error {
	if err := m.chat.SendTyping(ctx, target); isRateLimit(err) {
		return err
	} else if err != nil {
		m.logger.Debug("typing indicator failed", "target", target.String(), "error", err)
	}
	return nil
}

func fallbackText(text, raw string) string {
	if raw != "" {
		return raw
	}
	return text
}
