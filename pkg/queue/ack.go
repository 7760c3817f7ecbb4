package queue

import (
	"context"
	"sync"
)

///////////////////////////////////////////////////////////////////////////////
// TYPES

// Ack is resolved exactly once, when the side effects of one task have
// completed or failed
type Ack struct {
	once sync.Once
	done chan struct{}
	err  error
}

///////////////////////////////////////////////////////////////////////////////
// LIFECYCLE

func newAck() *Ack {
	return &Ack{done: make(chan struct{})}
}

///////////////////////////////////////////////////////////////////////////////
// PUBLIC METHODS

// Done is closed when the ack is resolved
func (a *Ack) Done() <-chan struct{} {
	return a.done
}

// Err returns the failure the task was resolved with, or nil
func (a *Ack) Err() error {
	select {
	case <-a.done:
		return a.err
	default:
		return nil
	}
}

// Wait blocks until the ack is resolved or the context is done
func (a *Ack) Wait(ctx context.Context) error {
	select {
	case <-a.done:
		return a.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

///////////////////////////////////////////////////////////////////////////////
// PRIVATE METHODS

func (a *Ack) resolve(err error) {
	if a == nil {
		return
	}
	a.once.Do(func() {
		a.err = err
		close(a.done)
	})
}
