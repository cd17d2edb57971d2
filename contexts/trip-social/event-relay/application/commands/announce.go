package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	application "waypoint/contexts/trip-social/event-relay/application"
	"waypoint/contexts/trip-social/event-relay/domain/entities"
	"waypoint/contexts/trip-social/event-relay/ports"
)

// Announcer turns a completed local mutation into an envelope addressed to
// the exchanges of the downstream contexts that care. The payload is made
// durable in the event store before any publish is attempted; publishing
// itself is best-effort and never fails the caller.
type Announcer struct {
	Events    ports.EventStore
	Publisher ports.EventPublisher
	Exchanges []string
	Logger    *slog.Logger
}

func (a Announcer) AnnounceUserCreated(ctx context.Context, user entities.UserSnapshot) error {
	return a.announce(ctx, entities.EventCreateUser, user)
}

func (a Announcer) AnnounceTripCreated(ctx context.Context, trip entities.TripSnapshot) error {
	return a.announce(ctx, entities.EventCreateTrip, trip)
}

func (a Announcer) AnnouncePostCreated(ctx context.Context, post entities.PostSnapshot) error {
	return a.announce(ctx, entities.EventCreatePost, post)
}

func (a Announcer) announce(ctx context.Context, eventType entities.EventType, payload any) error {
	logger := application.ResolveLogger(a.Logger)

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode %s payload: %w", eventType, err)
	}

	record, err := a.Events.Accept(ctx, data)
	if err != nil {
		logger.Error("event accept failed",
			"event", "event_relay_accept_failed",
			"module", "trip-social/event-relay",
			"layer", "application",
			"event_type", string(eventType),
			"error", err.Error(),
		)
		return err
	}

	envelope := ports.Envelope{
		ID:   record.ID,
		Type: eventType,
		Data: data,
	}

	for _, exchange := range a.Exchanges {
		if err := a.Publisher.Publish(ctx, envelope, exchange); err != nil {
			// Publish is outside the business transaction: log and move on,
			// durable delivery comes from the queue/log side.
			logger.Error("event publish failed",
				"event", "event_relay_publish_failed",
				"module", "trip-social/event-relay",
				"layer", "application",
				"event_id", envelope.ID,
				"event_type", string(eventType),
				"exchange", exchange,
				"error", err.Error(),
			)
			continue
		}
		logger.Info("event published",
			"event", "event_relay_published",
			"module", "trip-social/event-relay",
			"layer", "application",
			"event_id", envelope.ID,
			"event_type", string(eventType),
			"exchange", exchange,
		)
	}
	return nil
}
