// Package tmux implements [relay.Inspector] over the tmux command line, and
// delivers text and key presses to tmux windows.
package tmux

import (
	"context"
	"strings"
	"time"

	// Packages
	uuid "github.com/google/uuid"
	relay "github.com/mutablelogic/go-relay"
)

///////////////////////////////////////////////////////////////////////////////
// TYPES

// Tmux inspects and drives windows of a tmux server
type Tmux struct {
	*opts
}

var _ relay.Inspector = (*Tmux)(nil)

///////////////////////////////////////////////////////////////////////////////
// GLOBALS

const (
	bufferPrefix = "relay-"
	windowFormat = "#{window_id}\t#{window_name}"
)

// tmux key names for inline keyboard presses
var keyNames = map[relay.KeyPress]string{
	relay.KeyUp:     "Up",
	relay.KeyDown:   "Down",
	relay.KeyLeft:   "Left",
	relay.KeyRight:  "Right",
	relay.KeySpace:  "Space",
	relay.KeyTab:    "Tab",
	relay.KeyEscape: "Escape",
	relay.KeyEnter:  "Enter",
}

///////////////////////////////////////////////////////////////////////////////
// LIFECYCLE

func New(opts ...Opt) (*Tmux, error) {
	o, err := applyOpts(opts...)
	if err != nil {
		return nil, err
	}
	return &Tmux{opts: o}, nil
}

///////////////////////////////////////////////////////////////////////////////
// INSPECTOR

// Windows returns all windows, or the windows of the configured session
func (t *Tmux) Windows(ctx context.Context) ([]relay.Window, error) {
	args := []string{"list-windows", "-F", windowFormat}
	if t.session != "" {
		args = append(args, "-t", t.session)
	} else {
		args = append(args, "-a")
	}
	out, err := t.exec.Output(ctx, "", args...)
	if err != nil {
		return nil, err
	}

	var result []relay.Window
	for _, line := range strings.Split(strings.TrimSpace(string(out)), "\n") {
		id, name, ok := strings.Cut(line, "\t")
		if !ok || id == "" {
			continue
		}
		result = append(result, relay.Window{ID: id, Name: name})
	}
	return result, nil
}

// FindWindow returns the window with the given identifier, or nil if it
// does not exist
func (t *Tmux) FindWindow(ctx context.Context, windowID string) (*relay.Window, error) {
	windows, err := t.Windows(ctx)
	if err != nil {
		return nil, err
	}
	for _, w := range windows {
		if w.ID == windowID {
			return &w, nil
		}
	}
	return nil, nil
}

// CapturePane returns the visible text of the window's active pane, with
// wrapped lines joined
func (t *Tmux) CapturePane(ctx context.Context, w *relay.Window) (string, error) {
	if w == nil {
		return "", relay.ErrBadParameter.With("window is nil")
	}
	out, err := t.exec.Output(ctx, "", "capture-pane", "-p", "-J", "-t", w.ID)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// ExtractInteractiveUI returns the interactive prompt shown in the pane, or
// nil when there is none
func (t *Tmux) ExtractInteractiveUI(pane string) *relay.InteractiveUI {
	return ExtractInteractiveUI(pane)
}

// ParseStatusLine returns the status line shown in the pane, or an empty
// string when the assistant is idle
func (t *Tmux) ParseStatusLine(pane string) string {
	return ParseStatusLine(pane)
}

///////////////////////////////////////////////////////////////////////////////
// INPUT

// SendText pastes text into the window as a bracketed paste and presses
// Enter to submit it
func (t *Tmux) SendText(ctx context.Context, windowID, text string) error {
	buffer := bufferPrefix + uuid.NewString()
	if _, err := t.exec.Output(ctx, text, "load-buffer", "-b", buffer, "-"); err != nil {
		return err
	}
	if _, err := t.exec.Output(ctx, "", "paste-buffer", "-pr", "-b", buffer, "-d", "-t", windowID); err != nil {
		return err
	}

	// Let the application render the paste before submitting
	if t.submitDelay > 0 {
		timer := time.NewTimer(t.submitDelay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}
	return t.sendKeys(ctx, windowID, "Enter")
}

// SendKey presses a single key in the window
func (t *Tmux) SendKey(ctx context.Context, windowID string, key relay.KeyPress) error {
	name, ok := keyNames[key]
	if !ok {
		return relay.ErrBadParameter.Withf("key %q", key)
	}
	return t.sendKeys(ctx, windowID, name)
}

///////////////////////////////////////////////////////////////////////////////
// PRIVATE METHODS

func (t *Tmux) sendKeys(ctx context.Context, windowID string, keys ...string) error {
	args := append([]string{"send-keys", "-t", windowID}, keys...)
	_, err := t.exec.Output(ctx, "", args...)
	return err
}
