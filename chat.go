package relay

import (
	"context"
)

///////////////////////////////////////////////////////////////////////////////
// INTERFACES

// ChatClient is the remote chat surface. Every method may fail with a
// *RateLimitError (wait and retry later), an error wrapping ErrTransient
// (a simpler payload may succeed) or an error wrapping ErrPermanent (give up).
type ChatClient interface {
	// Send a new message and return its identifier
	Send(ctx context.Context, target Target, content Content) (MessageID, error)

	// Edit replaces the content of an existing message. EditCurrent is
	// returned, without error, when the message already shows the content.
	Edit(ctx context.Context, target Target, id MessageID, content Content) (EditResult, error)

	// Delete removes a message
	Delete(ctx context.Context, target Target, id MessageID) error

	// SendPhotos sends one photo, or an album when there is more than one
	SendPhotos(ctx context.Context, target Target, images []Image) error

	// SendTyping shows a typing indicator
	SendTyping(ctx context.Context, target Target) error
}

///////////////////////////////////////////////////////////////////////////////
// TYPES

// MessageID identifies a message on the chat surface. Zero is not a valid
// message identifier.
type MessageID int64

// EditResult is the outcome of an edit operation
type EditResult int

// Content is a renderable payload for the chat surface: text plus optional
// style annotations and an optional inline keyboard. Plain content is sent
// without entities.
type Content struct {
	Text     string
	Entities []Entity
	Keyboard Keyboard
}

// Entity is a style annotation over a range of Content.Text. Offset and
// Length are expressed in UTF-16 code units.
type Entity struct {
	Type     string
	Offset   int
	Length   int
	URL      string
	Language string
}

// Keyboard is an inline keyboard: rows of buttons
type Keyboard [][]Button

// Button is an inline keyboard button which returns Data when pressed
type Button struct {
	Text string
	Data string
}

// Image is an image attachment
type Image struct {
	MIME string
	Data []byte
}

///////////////////////////////////////////////////////////////////////////////
// GLOBALS

const (
	EditFailed  EditResult = iota // Edit was not applied
	EditApplied                   // Edit changed the message
	EditCurrent                   // Message already showed the content
)

// Entity types understood by the chat surface
const (
	EntityBold                 = "bold"
	EntityItalic               = "italic"
	EntityUnderline            = "underline"
	EntityStrikethrough        = "strikethrough"
	EntityCode                 = "code"
	EntityCodeBlock            = "pre"
	EntityTextLink             = "text_link"
	EntityBlockquote           = "blockquote"
	EntityExpandableBlockquote = "expandable_blockquote"
)

///////////////////////////////////////////////////////////////////////////////
// STRINGIFY

func (r EditResult) String() string {
	switch r {
	case EditFailed:
		return "failed"
	case EditApplied:
		return "applied"
	case EditCurrent:
		return "current"
	default:
		return "unknown"
	}
}

///////////////////////////////////////////////////////////////////////////////
// PUBLIC METHODS

// Ok returns true if the message shows the requested content after the edit
func (r EditResult) Ok() bool {
	return r == EditApplied || r == EditCurrent
}

// WithKeyboard returns a copy of the content with an inline keyboard
func (c Content) WithKeyboard(k Keyboard) Content {
	c.Keyboard = k
	return c
}
