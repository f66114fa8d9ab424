package watch

import (
	"context"

	"go.uber.org/zap"

	"github.com/ozwatch/ozwatch/internal/metrics"
	"github.com/ozwatch/ozwatch/internal/track"
)

// Dispatcher consumes the transition events produced by a poll cycle and
// performs the actual sends, keeping the decision logic pure. Delivery is
// best effort: failures are logged and counted, never retried.
type Dispatcher struct {
	notifier track.Notifier
	sink     track.EventSink
	logger   *zap.Logger
}

// NewDispatcher builds a Dispatcher. The sink may be nil.
func NewDispatcher(notifier track.Notifier, sink track.EventSink, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{notifier: notifier, sink: sink, logger: logger}
}

// Dispatch delivers every event to the owner and the optional event sink.
func (d *Dispatcher) Dispatch(ctx context.Context, events []track.TransitionEvent) {
	for _, event := range events {
		metrics.ObserveTransition(string(event.To))

		if err := d.notifier.Send(ctx, event.Owner, event.Message()); err != nil {
			d.logger.Warn("notification failed",
				zap.String("owner", event.Owner),
				zap.String("number", event.Number),
				zap.Error(err))
			metrics.ObserveNotification("error")
		} else {
			metrics.ObserveNotification("sent")
		}

		if d.sink == nil {
			continue
		}
		if err := d.sink.Publish(ctx, event); err != nil {
			d.logger.Warn("event publish failed",
				zap.String("number", event.Number),
				zap.Error(err))
		}
	}
}
