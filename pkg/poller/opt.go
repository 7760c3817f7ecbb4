package poller

import (
	"io"
	"log/slog"
	"time"

	// Packages
	relay "github.com/mutablelogic/go-relay"
)

///////////////////////////////////////////////////////////////////////////////
// TYPES

// Opt configures a Poller
type Opt func(*opts) error

type opts struct {
	logger      *slog.Logger
	interval    time.Duration
	concurrency int
}

///////////////////////////////////////////////////////////////////////////////
// GLOBALS

const (
	DefaultInterval    = time.Second
	DefaultConcurrency = 8
)

///////////////////////////////////////////////////////////////////////////////
// LIFECYCLE

func applyOpts(o ...Opt) (*opts, error) {
	self := &opts{
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		interval:    DefaultInterval,
		concurrency: DefaultConcurrency,
	}
	for _, fn := range o {
		if err := fn(self); err != nil {
			return nil, err
		}
	}
	return self, nil
}

///////////////////////////////////////////////////////////////////////////////
// PUBLIC METHODS

func WithLogger(logger *slog.Logger) Opt {
	return func(o *opts) error {
		if logger == nil {
			return relay.ErrBadParameter.With("logger is nil")
		}
		o.logger = logger
		return nil
	}
}

// WithInterval sets the time between polls
func WithInterval(d time.Duration) Opt {
	return func(o *opts) error {
		if d <= 0 {
			return relay.ErrBadParameter.Withf("poll interval %v", d)
		}
		o.interval = d
		return nil
	}
}

// WithConcurrency sets how many windows are inspected at the same time
func WithConcurrency(n int) Opt {
	return func(o *opts) error {
		if n < 1 {
			return relay.ErrBadParameter.Withf("concurrency %d", n)
		}
		o.concurrency = n
		return nil
	}
}
