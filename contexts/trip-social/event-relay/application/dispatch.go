package application

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"waypoint/contexts/trip-social/event-relay/domain/entities"
	domainerrors "waypoint/contexts/trip-social/event-relay/domain/errors"
	"waypoint/contexts/trip-social/event-relay/ports"
)

// Dispatcher routes a received envelope to the single domain write matching
// its type. Unknown types are dropped without error so a newer producer
// never crashes an older consumer.
type Dispatcher struct {
	Users  ports.UserWriter
	Trips  ports.TripWriter
	Posts  ports.PostWriter
	Logger *slog.Logger
}

func (d Dispatcher) Dispatch(ctx context.Context, envelope ports.Envelope) error {
	logger := ResolveLogger(d.Logger)

	switch envelope.Type {
	case entities.EventCreateUser:
		var user entities.UserSnapshot
		if err := json.Unmarshal(envelope.Data, &user); err != nil {
			return fmt.Errorf("decode %s payload: %w", envelope.Type, err)
		}
		return d.Users.CreateUser(ctx, user)

	case entities.EventUpdateUserPassword:
		var update entities.PasswordUpdate
		if err := json.Unmarshal(envelope.Data, &update); err != nil {
			return fmt.Errorf("decode %s payload: %w", envelope.Type, err)
		}
		return d.Users.UpdateUserPassword(ctx, update)

	case entities.EventUpdateUserAdditionalInfo:
		var info entities.UserAdditionalInfo
		if err := json.Unmarshal(envelope.Data, &info); err != nil {
			return fmt.Errorf("decode %s payload: %w", envelope.Type, err)
		}
		return d.Users.UpdateUserAdditionalInfo(ctx, info)

	case entities.EventSoftDeleteUser:
		var del entities.UserDelete
		if err := json.Unmarshal(envelope.Data, &del); err != nil {
			return fmt.Errorf("decode %s payload: %w", envelope.Type, err)
		}
		return d.Users.SoftDeleteUser(ctx, del)

	case entities.EventCreateTrip:
		var trip entities.TripSnapshot
		if err := json.Unmarshal(envelope.Data, &trip); err != nil {
			return fmt.Errorf("decode %s payload: %w", envelope.Type, err)
		}
		return d.Trips.CreateTrip(ctx, trip)

	case entities.EventCreatePost:
		var post entities.PostSnapshot
		if err := json.Unmarshal(envelope.Data, &post); err != nil {
			return fmt.Errorf("decode %s payload: %w", envelope.Type, err)
		}
		return d.Posts.CreatePost(ctx, post)

	default:
		logger.Warn("envelope type not handled by this service",
			"event", "event_relay_dispatch_skipped",
			"module", "trip-social/event-relay",
			"layer", "application",
			"event_id", envelope.ID,
			"event_type", string(envelope.Type),
			"error", domainerrors.ErrUnknownEventType.Error(),
		)
		return nil
	}
}
