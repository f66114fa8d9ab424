// Package pubsub publishes transition events to a Google Cloud Pub/Sub
// topic for downstream consumers.
package pubsub

import (
	"context"
	"encoding/json"
	"fmt"

	pubsub "cloud.google.com/go/pubsub/v2"

	"github.com/ozwatch/ozwatch/internal/track"
)

// Sink implements track.EventSink on a Pub/Sub publisher.
type Sink struct {
	publisher *pubsub.Publisher
}

// New wraps a topic publisher.
func New(publisher *pubsub.Publisher) *Sink {
	return &Sink{publisher: publisher}
}

// Publish marshals the event to JSON and publishes it, waiting for the
// server ack.
func (s *Sink) Publish(ctx context.Context, event track.TransitionEvent) error {
	if s.publisher == nil {
		return fmt.Errorf("pubsub publisher is not configured")
	}
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	result := s.publisher.Publish(ctx, &pubsub.Message{
		Data: data,
		Attributes: map[string]string{
			"number": event.Number,
			"to":     string(event.To),
		},
	})
	if _, err := result.Get(ctx); err != nil {
		return fmt.Errorf("publish event: %w", err)
	}
	return nil
}
