// Package poller periodically inspects every bound terminal window and
// feeds status lines and interactive prompts into the delivery queue.
package poller

import (
	"context"
	"errors"
	"time"

	// Packages
	relay "github.com/mutablelogic/go-relay"
	errgroup "golang.org/x/sync/errgroup"
)

///////////////////////////////////////////////////////////////////////////////
// TYPES

// Queue is the producer side of the delivery queue
type Queue interface {
	Pending(key relay.ConversationKey) bool
	InteractiveWindow(key relay.ConversationKey) (string, bool)
	ClearConversation(key relay.ConversationKey)
	EnqueueStatusUpdate(key relay.ConversationKey, window, text string) error
	EnqueuePaneProbe(key relay.ConversationKey, window, source string, allowStatus bool) error
	EnqueueInteractiveClear(key relay.ConversationKey) error
}

// Poller inspects bound windows on an interval
type Poller struct {
	*opts
	registry  relay.Registry
	inspector relay.Inspector
	queue     Queue
}

///////////////////////////////////////////////////////////////////////////////
// GLOBALS

const probeSource = "poller"

///////////////////////////////////////////////////////////////////////////////
// LIFECYCLE

func New(registry relay.Registry, inspector relay.Inspector, queue Queue, opts ...Opt) (*Poller, error) {
	if registry == nil || inspector == nil || queue == nil {
		return nil, relay.ErrBadParameter.With("registry, inspector and queue are required")
	}
	o, err := applyOpts(opts...)
	if err != nil {
		return nil, err
	}
	return &Poller{
		opts:      o,
		registry:  registry,
		inspector: inspector,
		queue:     queue,
	}, nil
}

///////////////////////////////////////////////////////////////////////////////
// PUBLIC METHODS

// Run polls until the context is cancelled
func (p *Poller) Run(ctx context.Context) error {
	p.logger.InfoContext(ctx, "status polling started", "interval", p.interval)
	defer p.logger.InfoContext(ctx, "status polling stopped")

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		if err := p.Poll(ctx); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil
			}
			return err
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// Poll inspects every bound window once. Failures for one window are
// logged and do not affect the others.
func (p *Poller) Poll(ctx context.Context) error {
	var group errgroup.Group
	group.SetLimit(p.concurrency)
	for _, binding := range p.registry.Bindings() {
		if err := ctx.Err(); err != nil {
			break
		}
		group.Go(func() error {
			if err := p.poll(ctx, binding); err != nil {
				p.logger.DebugContext(ctx, "status poll", "conversation", binding.Key.String(), "window", binding.WindowID, "error", err)
			}
			return nil
		})
	}
	group.Wait()
	return ctx.Err()
}

///////////////////////////////////////////////////////////////////////////////
// PRIVATE METHODS

func (p *Poller) poll(ctx context.Context, binding relay.Binding) error {
	key, window := binding.Key, binding.WindowID

	w, err := p.inspector.FindWindow(ctx, window)
	if err != nil {
		return err
	} else if w == nil {
		// The window has gone away
		if err := p.registry.Unbind(key); err != nil && !errors.Is(err, relay.ErrNotFound) {
			return err
		}
		p.queue.ClearConversation(key)
		p.logger.InfoContext(ctx, "removed stale binding", "conversation", key.String(), "window", window)
		return nil
	}

	// An empty capture is a momentary failure which keeps the current state
	pane, err := p.inspector.CapturePane(ctx, w)
	if err != nil || pane == "" {
		return err
	}

	status := p.inspector.ParseStatusLine(pane)
	visible := p.inspector.ExtractInteractiveUI(pane) != nil
	_, tracked := p.queue.InteractiveWindow(key)
	pending := p.queue.Pending(key)

	// A live status line wins over prompts left in the scrollback
	if status != "" {
		if tracked {
			if err := p.queue.EnqueueInteractiveClear(key); err != nil {
				return err
			}
		}
		if pending {
			return nil
		}
		return p.queue.EnqueueStatusUpdate(key, window, status)
	}

	if visible || tracked {
		return p.queue.EnqueuePaneProbe(key, window, probeSource, false)
	}
	return nil
}
