package dispatcher

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/arenalab/arena-recorder/internal/dispatcher"

// Metric names. Every series carries a command attribute.
const (
	MetricQueueDepth = "recorder.command.queue.depth"
	MetricProcessed  = "recorder.command.processed"
	MetricDropped    = "recorder.command.dropped"
	MetricUnknown    = "recorder.command.unknown"
	MetricLatency    = "recorder.command.latency"
)

// NewOption configures a Dispatcher at construction.
type NewOption func(*Dispatcher)

// WithMeter records command metrics on m instead of the global meter provider.
func WithMeter(m metric.Meter) NewOption {
	return func(d *Dispatcher) {
		if m != nil {
			d.meter = m
		}
	}
}

type instruments struct {
	queueDepth metric.Int64ObservableGauge
	processed  metric.Int64Counter
	dropped    metric.Int64Counter
	unknown    metric.Int64Counter
	latency    metric.Float64Histogram
}

func commandAttr(command string) metric.MeasurementOption {
	return metric.WithAttributes(attribute.String("command", command))
}

func (d *Dispatcher) initInstruments() error {
	m := d.meter
	if m == nil {
		m = otel.Meter(instrumentationName)
	}

	var err error
	ins := &d.metrics

	if ins.queueDepth, err = m.Int64ObservableGauge(MetricQueueDepth,
		metric.WithDescription("Commands waiting in a buffered handler queue")); err != nil {
		return fmt.Errorf("creating queue depth gauge: %w", err)
	}
	if _, err = m.RegisterCallback(d.observeQueues, ins.queueDepth); err != nil {
		return fmt.Errorf("registering queue callback: %w", err)
	}
	if ins.processed, err = m.Int64Counter(MetricProcessed,
		metric.WithDescription("Commands handled by a buffered worker")); err != nil {
		return fmt.Errorf("creating processed counter: %w", err)
	}
	if ins.dropped, err = m.Int64Counter(MetricDropped,
		metric.WithDescription("Commands rejected because their queue was full")); err != nil {
		return fmt.Errorf("creating dropped counter: %w", err)
	}
	if ins.unknown, err = m.Int64Counter(MetricUnknown,
		metric.WithDescription("Commands with no registered handler")); err != nil {
		return fmt.Errorf("creating unknown counter: %w", err)
	}
	if ins.latency, err = m.Float64Histogram(MetricLatency,
		metric.WithDescription("Handler latency"),
		metric.WithUnit("ms")); err != nil {
		return fmt.Errorf("creating latency histogram: %w", err)
	}
	return nil
}

func (d *Dispatcher) observeQueues(_ context.Context, o metric.Observer) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for cmd, buf := range d.buffers {
		o.ObserveInt64(d.metrics.queueDepth, int64(len(buf)), commandAttr(cmd))
	}
	return nil
}
