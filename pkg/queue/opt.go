package queue

import (
	"context"
	"io"
	"log/slog"
	"time"

	// Packages
	relay "github.com/mutablelogic/go-relay"
	metric "go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	trace "go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

///////////////////////////////////////////////////////////////////////////////
// TYPES

// Opt is an option which configures a Manager
type Opt func(*opts) error

type opts struct {
	logger         *slog.Logger
	tracer         trace.Tracer
	meter          metric.Meter
	resolve        func(relay.ConversationKey) relay.Target
	mergeBudget    int
	floodThreshold time.Duration
	now            func() time.Time
	sleep          func(context.Context, time.Duration) error
	manual         bool // do not start workers; used by tests to step conversations
}

///////////////////////////////////////////////////////////////////////////////
// GLOBALS

const (
	// Default upper bound on the concatenated length of merged content parts,
	// leaving headroom under the 4096 character message limit for markup.
	DefaultMergeBudget = 3800

	// Rate-limit waits above this duration install a flood ban instead of
	// blocking the worker inline
	DefaultFloodThreshold = 10 * time.Second

	instrumentationName = "github.com/mutablelogic/go-relay/pkg/queue"
)

///////////////////////////////////////////////////////////////////////////////
// LIFECYCLE

func applyOpts(o ...Opt) (*opts, error) {
	self := &opts{
		logger:         slog.New(slog.NewTextHandler(io.Discard, nil)),
		tracer:         tracenoop.NewTracerProvider().Tracer(instrumentationName),
		meter:          metricnoop.NewMeterProvider().Meter(instrumentationName),
		resolve:        defaultResolve,
		mergeBudget:    DefaultMergeBudget,
		floodThreshold: DefaultFloodThreshold,
		now:            time.Now,
		sleep:          sleep,
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

// WithLogger sets the structured logger
func WithLogger(logger *slog.Logger) Opt {
	return func(o *opts) error {
		if logger == nil {
			return relay.ErrBadParameter.With("logger is nil")
		}
		o.logger = logger
		return nil
	}
}

// WithTracer sets the tracer used to record one span per executed task
func WithTracer(tracer trace.Tracer) Opt {
	return func(o *opts) error {
		if tracer == nil {
			return relay.ErrBadParameter.With("tracer is nil")
		}
		o.tracer = tracer
		return nil
	}
}

// WithMeter sets the meter used for delivery counters
func WithMeter(meter metric.Meter) Opt {
	return func(o *opts) error {
		if meter == nil {
			return relay.ErrBadParameter.With("meter is nil")
		}
		o.meter = meter
		return nil
	}
}

// WithResolver sets the function which resolves a conversation to a chat
// target. By default the chat is the user and the thread is the sub-thread.
func WithResolver(fn func(relay.ConversationKey) relay.Target) Opt {
	return func(o *opts) error {
		if fn == nil {
			return relay.ErrBadParameter.With("resolver is nil")
		}
		o.resolve = fn
		return nil
	}
}

// WithMergeBudget sets the maximum number of characters merged content may
// carry
func WithMergeBudget(n int) Opt {
	return func(o *opts) error {
		if n <= 0 {
			return relay.ErrBadParameter.Withf("merge budget %d", n)
		}
		o.mergeBudget = n
		return nil
	}
}

// WithFloodThreshold sets the rate-limit wait above which a flood ban is
// installed
func WithFloodThreshold(d time.Duration) Opt {
	return func(o *opts) error {
		if d < 0 {
			return relay.ErrBadParameter.Withf("flood threshold %v", d)
		}
		o.floodThreshold = d
		return nil
	}
}

///////////////////////////////////////////////////////////////////////////////
// PRIVATE METHODS

func defaultResolve(key relay.ConversationKey) relay.Target {
	return relay.Target{ChatID: key.UserID, ThreadID: key.ThreadID}
}

// sleep waits for the duration or until the context is cancelled
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// withoutWorkers creates conversations without starting their workers, so
// that tasks can be stepped one at a time
func withoutWorkers() Opt {
	return func(o *opts) error {
		o.manual = true
		return nil
	}
}

// withClock replaces the clock and the sleep function
func withClock(now func() time.Time, sleep func(context.Context, time.Duration) error) Opt {
	return func(o *opts) error {
		o.now = now
		o.sleep = sleep
		return nil
	}
}
