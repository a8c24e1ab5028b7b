package events

import (
	"context"
	"encoding/json"

	"premarket-access-be/internal/pkg/logger"
	pkgEvents "premarket-access-be/pkg/events"

	"github.com/ThreeDotsLabs/watermill/message"
)

// EventPublisher is the external bus the relay forwards to
type EventPublisher interface {
	Publish(ctx context.Context, event pkgEvents.Event) error
}

// Relay drains the in-process topic into the external bus. A nil publisher
// turns the relay into a logging sink.
type Relay struct {
	subscriber message.Subscriber
	publisher  EventPublisher
	logger     logger.ILogger
}

func NewRelay(subscriber message.Subscriber, publisher EventPublisher, logger logger.ILogger) *Relay {
	return &Relay{
		subscriber: subscriber,
		publisher:  publisher,
		logger:     logger,
	}
}

// Run blocks until ctx is cancelled.
func (r *Relay) Run(ctx context.Context) error {
	messages, err := r.subscriber.Subscribe(ctx, Topic)
	if err != nil {
		return err
	}

	for msg := range messages {
		r.forward(msg)
	}
	return nil
}

func (r *Relay) forward(msg *message.Message) {
	// acked regardless: delivery is best effort
	defer msg.Ack()

	var evt pkgEvents.BaseEvent
	if err := json.Unmarshal(msg.Payload, &evt); err != nil {
		r.logger.Error(logger.ModuleEvents, "Dropping undecodable event", map[string]interface{}{"uuid": msg.UUID, "error": err.Error()})
		return
	}

	if r.publisher == nil {
		r.logger.Info(logger.ModuleEvents, "Event not relayed, no external bus", map[string]interface{}{"type": evt.Type, "id": evt.Id})
		return
	}

	if err := r.publisher.Publish(msg.Context(), evt); err != nil {
		r.logger.Error(logger.ModuleEvents, "Failed to relay event", map[string]interface{}{"type": evt.Type, "id": evt.Id, "error": err.Error()})
		return
	}
	r.logger.Debug(logger.ModuleEvents, "Event relayed", map[string]interface{}{"type": evt.Type, "id": evt.Id})
}
