package queue

import (
	"context"

	// Packages
	attribute "go.opentelemetry.io/otel/attribute"
	metric "go.opentelemetry.io/otel/metric"
)

///////////////////////////////////////////////////////////////////////////////
// TYPES

type metrics struct {
	probeEnqueued   metric.Int64Counter
	probeCoalesced  metric.Int64Counter
	interactiveNoop metric.Int64Counter
	interactiveSend metric.Int64Counter
	interactiveEdit metric.Int64Counter
	taskDropped     metric.Int64Counter
	taskMerged      metric.Int64Counter
	taskFailed      metric.Int64Counter
	floodBan        metric.Int64Counter
}

///////////////////////////////////////////////////////////////////////////////
// LIFECYCLE

func newMetrics(meter metric.Meter) (*metrics, error) {
	self := new(metrics)
	for _, c := range []struct {
		counter     *metric.Int64Counter
		name        string
		description string
	}{
		{&self.probeEnqueued, "relay.probe.enqueued", "Pane probes added to a queue"},
		{&self.probeCoalesced, "relay.probe.coalesced", "Pane probes suppressed because one was pending"},
		{&self.interactiveNoop, "relay.interactive.noop", "Probes which found the interactive UI already displayed"},
		{&self.interactiveSend, "relay.interactive.send", "Interactive UI messages sent"},
		{&self.interactiveEdit, "relay.interactive.edit", "Interactive UI messages edited in place"},
		{&self.taskDropped, "relay.task.dropped", "Tasks dropped during a flood ban"},
		{&self.taskMerged, "relay.task.merged", "Content tasks folded into a preceding task"},
		{&self.taskFailed, "relay.task.failed", "Tasks which failed"},
		{&self.floodBan, "relay.flood.ban", "Flood bans installed after a rate limit"},
	} {
		counter, err := meter.Int64Counter(c.name, metric.WithDescription(c.description))
		if err != nil {
			return nil, err
		}
		*c.counter = counter
	}
	return self, nil
}

///////////////////////////////////////////////////////////////////////////////
// PRIVATE METHODS

func add(ctx context.Context, counter metric.Int64Counter, n int64, attrs ...attribute.KeyValue) {
	if n == 0 {
		return
	}
	counter.Add(ctx, n, metric.WithAttributes(attrs...))
}
