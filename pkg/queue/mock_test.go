package queue

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	// Packages
	relay "github.com/mutablelogic/go-relay"
	assert "github.com/stretchr/testify/assert"
)

///////////////////////////////////////////////////////////////////////////////
// MOCK CHAT

type mockOp struct {
	Op       string // send, edit, delete, photos, typing
	Target   relay.Target
	ID       relay.MessageID
	Text     string
	Rich     bool
	Keyboard relay.Keyboard
	Images   int
}

type mockChat struct {
	sync.Mutex
	ops    []mockOp
	errs   map[string][]error
	nextID relay.MessageID
}

func newMockChat() *mockChat {
	return &mockChat{errs: make(map[string][]error), nextID: 100}
}

// fail queues an error returned by the next call of op
func (c *mockChat) fail(op string, err error) {
	c.Lock()
	defer c.Unlock()
	c.errs[op] = append(c.errs[op], err)
}

func (c *mockChat) next(op string) error {
	if errs := c.errs[op]; len(errs) > 0 {
		c.errs[op] = errs[1:]
		return errs[0]
	}
	return nil
}

func (c *mockChat) Send(_ context.Context, target relay.Target, content relay.Content) (relay.MessageID, error) {
	c.Lock()
	defer c.Unlock()
	if err := c.next("send"); err != nil {
		return 0, err
	}
	c.nextID++
	c.ops = append(c.ops, mockOp{Op: "send", Target: target, ID: c.nextID, Text: content.Text, Rich: len(content.Entities) > 0, Keyboard: content.Keyboard})
	return c.nextID, nil
}

func (c *mockChat) Edit(_ context.Context, target relay.Target, id relay.MessageID, content relay.Content) (relay.EditResult, error) {
	c.Lock()
	defer c.Unlock()
	if err := c.next("edit"); errors.Is(err, relay.ErrNotModified) {
		return relay.EditCurrent, nil
	} else if err != nil {
		return relay.EditFailed, err
	}
	c.ops = append(c.ops, mockOp{Op: "edit", Target: target, ID: id, Text: content.Text, Rich: len(content.Entities) > 0, Keyboard: content.Keyboard})
	return relay.EditApplied, nil
}

func (c *mockChat) Delete(_ context.Context, target relay.Target, id relay.MessageID) error {
	c.Lock()
	defer c.Unlock()
	if err := c.next("delete"); err != nil {
		return err
	}
	c.ops = append(c.ops, mockOp{Op: "delete", Target: target, ID: id})
	return nil
}

func (c *mockChat) SendPhotos(_ context.Context, target relay.Target, images []relay.Image) error {
	c.Lock()
	defer c.Unlock()
	if err := c.next("photos"); err != nil {
		return err
	}
	c.ops = append(c.ops, mockOp{Op: "photos", Target: target, Images: len(images)})
	return nil
}

func (c *mockChat) SendTyping(_ context.Context, target relay.Target) error {
	c.Lock()
	defer c.Unlock()
	if err := c.next("typing"); err != nil {
		return err
	}
	c.ops = append(c.ops, mockOp{Op: "typing", Target: target})
	return nil
}

// Ops returns a copy of the recorded calls
func (c *mockChat) Ops() []mockOp {
	c.Lock()
	defer c.Unlock()
	return append([]mockOp(nil), c.ops...)
}

// Count returns the number of recorded calls of op
func (c *mockChat) Count(op string) int {
	n := 0
	for _, o := range c.Ops() {
		if o.Op == op {
			n++
		}
	}
	return n
}

// Trace returns the recorded calls as "op:text" or "op:id" strings
func (c *mockChat) Trace() []string {
	var result []string
	for _, o := range c.Ops() {
		switch o.Op {
		case "send", "edit":
			result = append(result, o.Op+":"+o.Text)
		default:
			result = append(result, o.Op)
		}
	}
	return result
}

///////////////////////////////////////////////////////////////////////////////
// MOCK RENDERER

type mockRenderer struct {
	sync.Mutex
	broken bool
}

func (r *mockRenderer) Render(text string) (relay.Content, error) {
	r.Lock()
	defer r.Unlock()
	if r.broken {
		return relay.Content{}, relay.ErrBadParameter.With("cannot render")
	}
	return relay.Content{
		Text:     text,
		Entities: []relay.Entity{{Type: relay.EntityBold, Offset: 0, Length: len(text)}},
	}, nil
}

func (r *mockRenderer) Plain(text string) relay.Content {
	return relay.Content{Text: text}
}

///////////////////////////////////////////////////////////////////////////////
// MOCK INSPECTOR

// mockInspector holds one pane per window. A pane whose first line is
// "ui:<name>" shows an interactive UI with the remaining lines as text, and
// a line "status:<text>" is a status line.
type mockInspector struct {
	sync.Mutex
	panes map[string]string
	finds int
}

func newMockInspector() *mockInspector {
	return &mockInspector{panes: make(map[string]string)}
}

func (i *mockInspector) set(window, pane string) {
	i.Lock()
	defer i.Unlock()
	i.panes[window] = pane
}

func (i *mockInspector) remove(window string) {
	i.Lock()
	defer i.Unlock()
	delete(i.panes, window)
}

func (i *mockInspector) Finds() int {
	i.Lock()
	defer i.Unlock()
	return i.finds
}

func (i *mockInspector) FindWindow(_ context.Context, id string) (*relay.Window, error) {
	i.Lock()
	defer i.Unlock()
	i.finds++
	if _, exists := i.panes[id]; !exists {
		return nil, nil
	}
	return &relay.Window{ID: id, Name: "window-" + id}, nil
}

func (i *mockInspector) CapturePane(_ context.Context, w *relay.Window) (string, error) {
	i.Lock()
	defer i.Unlock()
	return i.panes[w.ID], nil
}

func (i *mockInspector) ExtractInteractiveUI(pane string) *relay.InteractiveUI {
	first, rest, _ := strings.Cut(pane, "\n")
	name, ok := strings.CutPrefix(first, "ui:")
	if !ok {
		return nil
	}
	return &relay.InteractiveUI{Name: name, Text: rest}
}

func (i *mockInspector) ParseStatusLine(pane string) string {
	for _, line := range strings.Split(pane, "\n") {
		if status, ok := strings.CutPrefix(line, "status:"); ok {
			return status
		}
	}
	return ""
}

///////////////////////////////////////////////////////////////////////////////
// MOCK CLOCK

type mockClock struct {
	sync.Mutex
	t      time.Time
	sleeps []time.Duration
}

func newMockClock() *mockClock {
	return &mockClock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *mockClock) Now() time.Time {
	c.Lock()
	defer c.Unlock()
	return c.t
}

func (c *mockClock) Sleep(ctx context.Context, d time.Duration) error {
	c.Lock()
	defer c.Unlock()
	c.sleeps = append(c.sleeps, d)
	c.t = c.t.Add(d)
	return ctx.Err()
}

func (c *mockClock) Sleeps() []time.Duration {
	c.Lock()
	defer c.Unlock()
	return append([]time.Duration(nil), c.sleeps...)
}

///////////////////////////////////////////////////////////////////////////////
// HELPERS

type fixture struct {
	*Manager
	chat      *mockChat
	renderer  *mockRenderer
	inspector *mockInspector
	clock     *mockClock
}

// newFixture returns a manager whose conversations are stepped by drain
func newFixture(t *testing.T, opts ...Opt) *fixture {
	t.Helper()
	f := &fixture{
		chat:      newMockChat(),
		renderer:  new(mockRenderer),
		inspector: newMockInspector(),
		clock:     newMockClock(),
	}
	opts = append([]Opt{withoutWorkers(), withClock(f.clock.Now, f.clock.Sleep)}, opts...)
	m, err := New(f.chat, f.renderer, f.inspector, opts...)
	if !assert.NoError(t, err) {
		t.FailNow()
	}
	f.Manager = m
	return f
}

// drain executes the queued tasks of a conversation until its queue is empty
func (f *fixture) drain(key relay.ConversationKey) {
	c := f.lookup(key)
	if c == nil {
		return
	}
	for !c.queue.Empty() {
		task, err := c.queue.pop(context.Background())
		if err != nil {
			return
		}
		f.step(context.Background(), c, task)
	}
}
