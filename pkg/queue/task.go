package queue

import (
	"unicode/utf8"

	// Packages
	uuid "github.com/google/uuid"
	relay "github.com/mutablelogic/go-relay"
)

///////////////////////////////////////////////////////////////////////////////
// TYPES

// Kind is the delivery action a task performs
type Kind int

// ContentType distinguishes plain content from the two halves of a tool call
type ContentType int

// Task is one pending delivery action for a conversation. Tasks are values
// and are not modified once enqueued.
type Task struct {
	ID          string // diagnostic identifier
	Kind        Kind
	Key         relay.ConversationKey
	WindowID    string
	Parts       []string      // content parts, delivered in order
	Text        string        // status text, or the unrendered content for plain fallback
	ToolUseID   string        // correlates a tool_use message with its tool_result
	ContentType ContentType   // merge eligibility and edit-vs-send behaviour
	Images      []relay.Image // sent after the content
	Source      string        // diagnostic label
	AllowStatus bool          // for probes, whether a status sync may happen
	ack         *Ack
}

// ContentOpt configures a content task
type ContentOpt func(*Task)

///////////////////////////////////////////////////////////////////////////////
// GLOBALS

const (
	KindContent Kind = iota
	KindStatusUpdate
	KindStatusClear
	KindPaneProbe
	KindInteractiveClear
)

const (
	ContentText ContentType = iota
	ContentToolUse
	ContentToolResult
)

///////////////////////////////////////////////////////////////////////////////
// LIFECYCLE

func newTask(kind Kind, key relay.ConversationKey, window, source string) Task {
	return Task{
		ID:       uuid.NewString(),
		Kind:     kind,
		Key:      key,
		WindowID: window,
		Source:   source,
	}
}

// WithToolUse marks content as the announcement of a tool call. The message
// is later edited by the tool_result with the same id.
func WithToolUse(id string) ContentOpt {
	return func(t *Task) {
		t.ContentType = ContentToolUse
		t.ToolUseID = id
	}
}

// WithToolResult marks content as the result of a tool call, which edits
// the tool_use message with the same id when it is still known
func WithToolResult(id string) ContentOpt {
	return func(t *Task) {
		t.ContentType = ContentToolResult
		t.ToolUseID = id
	}
}

// WithRawText sets the unrendered text used for plain-text fallback
func WithRawText(text string) ContentOpt {
	return func(t *Task) {
		t.Text = text
	}
}

// WithImages attaches images which are sent after the content
func WithImages(images ...relay.Image) ContentOpt {
	return func(t *Task) {
		t.Images = append(t.Images, images...)
	}
}

// WithSource sets the diagnostic source label
func WithSource(source string) ContentOpt {
	return func(t *Task) {
		t.Source = source
	}
}

///////////////////////////////////////////////////////////////////////////////
// STRINGIFY

func (k Kind) String() string {
	switch k {
	case KindContent:
		return "content"
	case KindStatusUpdate:
		return "status_update"
	case KindStatusClear:
		return "status_clear"
	case KindPaneProbe:
		return "pane_probe"
	case KindInteractiveClear:
		return "interactive_clear"
	default:
		return "unknown"
	}
}

func (c ContentType) String() string {
	switch c {
	case ContentText:
		return "text"
	case ContentToolUse:
		return "tool_use"
	case ContentToolResult:
		return "tool_result"
	default:
		return "unknown"
	}
}

///////////////////////////////////////////////////////////////////////////////
// PUBLIC METHODS

// HasAck returns true if a producer is waiting for this task
func (t Task) HasAck() bool {
	return t.ack != nil
}

// isTool returns true for either half of a tool call
func (c ContentType) isTool() bool {
	return c == ContentToolUse || c == ContentToolResult
}

// length returns the number of characters in the task parts
func (t Task) length() int {
	n := 0
	for _, part := range t.Parts {
		n += utf8.RuneCountInString(part)
	}
	return n
}
