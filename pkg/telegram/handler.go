package telegram

import (
	"context"
	"io"
	"log/slog"
	"strings"

	// Packages
	relay "github.com/mutablelogic/go-relay"
)

///////////////////////////////////////////////////////////////////////////////
// TYPES

// Terminal delivers input to a terminal window
type Terminal interface {
	// SendText pastes text into the window and submits it
	SendText(ctx context.Context, windowID, text string) error

	// SendKey presses a single key in the window
	SendKey(ctx context.Context, windowID string, key relay.KeyPress) error
}

// Prober enqueues a coalesced pane probe for a conversation window
type Prober interface {
	EnqueuePaneProbe(key relay.ConversationKey, window, source string, allowStatus bool) error
}

// Handler turns inbound chat events into terminal input
type Handler struct {
	registry relay.Registry
	terminal Terminal
	prober   Prober
	logger   *slog.Logger
}

///////////////////////////////////////////////////////////////////////////////
// GLOBALS

const (
	replyUnbound  = "No terminal window is bound to this conversation"
	replyStale    = "This keyboard belongs to a window which is no longer bound"
	replyFailed   = "Could not reach the terminal window"
	probeCallback = "callback"
)

///////////////////////////////////////////////////////////////////////////////
// LIFECYCLE

// NewHandler returns a handler which resolves conversations through the
// registry, writes to the terminal and asks the prober to refresh the
// interactive UI after a key press. A nil logger discards output.
func NewHandler(registry relay.Registry, terminal Terminal, prober Prober, logger *slog.Logger) (*Handler, error) {
	if registry == nil || terminal == nil || prober == nil {
		return nil, relay.ErrBadParameter.With("registry, terminal and prober are required")
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Handler{
		registry: registry,
		terminal: terminal,
		prober:   prober,
		logger:   logger,
	}, nil
}

///////////////////////////////////////////////////////////////////////////////
// PUBLIC METHODS

// Text pastes a chat message into the window bound to the conversation. It
// returns a reply for the user when the message could not be delivered.
func (h *Handler) Text(ctx context.Context, key relay.ConversationKey, text string) (string, error) {
	window, ok := h.registry.Window(key)
	if !ok {
		return replyUnbound, nil
	}
	if strings.TrimSpace(text) == "" {
		return "", nil
	}
	if err := h.terminal.SendText(ctx, window, text); err != nil {
		h.logger.ErrorContext(ctx, "send text", "conversation", key.String(), "window", window, "error", err)
		return replyFailed, err
	}
	h.logger.DebugContext(ctx, "send text", "conversation", key.String(), "window", window, "length", len(text))
	return "", nil
}

// Callback handles an inline keyboard press. The key is sent to the window
// unless it is a refresh, then a pane probe is enqueued. It returns the text
// to show in the callback answer.
func (h *Handler) Callback(ctx context.Context, key relay.ConversationKey, data string) (string, error) {
	press, _, ok := relay.ParseCallbackData(data)
	if !ok {
		return "", relay.ErrBadParameter.Withf("callback data %q", data)
	}

	// Callback data may carry a truncated window identifier
	window, ok := h.registry.Window(key)
	if !ok || relay.CallbackData(press, window) != data {
		return replyStale, nil
	}

	if press != relay.KeyRefresh {
		if err := h.terminal.SendKey(ctx, window, press); err != nil {
			h.logger.ErrorContext(ctx, "send key", "conversation", key.String(), "window", window, "key", string(press), "error", err)
			return replyFailed, err
		}
	}
	if err := h.prober.EnqueuePaneProbe(key, window, probeCallback, false); err != nil {
		return "", err
	}
	return "", nil
}
