package relay

import (
	"context"
)

///////////////////////////////////////////////////////////////////////////////
// INTERFACES

// Inspector queries terminal windows. FindWindow returns nil without error
// when the window no longer exists; CapturePane returns an empty string when
// no capture is available.
type Inspector interface {
	FindWindow(ctx context.Context, windowID string) (*Window, error)
	CapturePane(ctx context.Context, w *Window) (string, error)
	ExtractInteractiveUI(pane string) *InteractiveUI
	ParseStatusLine(pane string) string
}

///////////////////////////////////////////////////////////////////////////////
// TYPES

// Window is a handle on a terminal window
type Window struct {
	ID   string
	Name string
}

// InteractiveUI is a named, multi-line terminal prompt which needs remote
// directional or confirmation input
type InteractiveUI struct {
	Name string
	Text string
}
