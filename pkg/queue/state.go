package queue

import (
	"sync"

	// Packages
	relay "github.com/mutablelogic/go-relay"
)

///////////////////////////////////////////////////////////////////////////////
// TYPES

// statusMessage is the message currently showing the status line
type statusMessage struct {
	ID     relay.MessageID
	Window string
	Text   string
}

// interactiveRender is the message currently showing an interactive UI
type interactiveRender struct {
	ID          relay.MessageID
	Window      string
	Fingerprint uint64
}

// display records what a conversation currently shows on the chat surface.
// Only the conversation worker writes it; producers read it to skip
// redundant enqueues.
type display struct {
	sync.Mutex
	status      *statusMessage
	interactive *interactiveRender
	tools       map[string]relay.MessageID // tool_use id to message id
}

///////////////////////////////////////////////////////////////////////////////
// LIFECYCLE

func newDisplay() *display {
	return &display{
		tools: make(map[string]relay.MessageID),
	}
}

///////////////////////////////////////////////////////////////////////////////
// PRIVATE METHODS - STATUS

// statusLine returns a copy of the tracked status message, or nil
func (d *display) statusLine() *statusMessage {
	d.Lock()
	defer d.Unlock()
	if d.status == nil {
		return nil
	}
	s := *d.status
	return &s
}

func (d *display) setStatus(id relay.MessageID, window, text string) {
	d.Lock()
	defer d.Unlock()
	d.status = &statusMessage{ID: id, Window: window, Text: text}
}

// takeStatus removes and returns the tracked status message
func (d *display) takeStatus() *statusMessage {
	d.Lock()
	defer d.Unlock()
	s := d.status
	d.status = nil
	return s
}

// showsStatus returns true if the status line for the window already has
// the given text
func (d *display) showsStatus(window, text string) bool {
	d.Lock()
	defer d.Unlock()
	return d.status != nil && d.status.Window == window && d.status.Text == text
}

///////////////////////////////////////////////////////////////////////////////
// PRIVATE METHODS - INTERACTIVE

// render returns a copy of the tracked interactive render, or nil
func (d *display) render() *interactiveRender {
	d.Lock()
	defer d.Unlock()
	if d.interactive == nil {
		return nil
	}
	r := *d.interactive
	return &r
}

func (d *display) setInteractive(id relay.MessageID, window string, fp uint64) {
	d.Lock()
	defer d.Unlock()
	d.interactive = &interactiveRender{ID: id, Window: window, Fingerprint: fp}
}

// takeInteractive removes and returns the tracked interactive render
func (d *display) takeInteractive() *interactiveRender {
	d.Lock()
	defer d.Unlock()
	r := d.interactive
	d.interactive = nil
	return r
}

///////////////////////////////////////////////////////////////////////////////
// PRIVATE METHODS - TOOLS

func (d *display) setTool(id string, msg relay.MessageID) {
	d.Lock()
	defer d.Unlock()
	d.tools[id] = msg
}

// takeTool removes and returns the message recorded for a tool_use id, so
// that exactly one tool_result consumes it
func (d *display) takeTool(id string) (relay.MessageID, bool) {
	d.Lock()
	defer d.Unlock()
	msg, exists := d.tools[id]
	if exists {
		delete(d.tools, id)
	}
	return msg, exists
}

func (d *display) reset() {
	d.Lock()
	defer d.Unlock()
	d.status = nil
	d.interactive = nil
	clear(d.tools)
}
