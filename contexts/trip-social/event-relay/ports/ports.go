package ports

import (
	"context"
	"encoding/json"

	"waypoint/contexts/trip-social/event-relay/domain/entities"
)

// Envelope is the wire message representing one domain event. ID is the
// event store row id and is stable across transports.
type Envelope struct {
	ID   string             `json:"id"`
	Type entities.EventType `json:"type"`
	Data json.RawMessage    `json:"data"`
}

// EventStore is the single synchronization point for delivery bookkeeping:
// every "already processed?" check and "mark processed" write goes through it.
type EventStore interface {
	// Accept durably creates a row for the payload before any transport
	// delivery is attempted and returns it with a generated id.
	Accept(ctx context.Context, payload json.RawMessage) (entities.EventRecord, error)
	// GetByID returns domainerrors.ErrEventNotFound when the id is unknown.
	GetByID(ctx context.Context, id string) (entities.EventRecord, error)
	// RegisterDelivery appends topic to the row's delivery history under a
	// pessimistic write lock. Registration is idempotent: repeating the same
	// (id, topic) pair leaves the history unchanged.
	RegisterDelivery(ctx context.Context, id string, topic string) (entities.EventRecord, error)
}

// EventPublisher broadcasts an envelope on a fanout exchange, best-effort.
// An empty exchange selects the adapter's configured default.
type EventPublisher interface {
	Publish(ctx context.Context, envelope Envelope, exchange string) error
}

// LogMessage is one record read from the partitioned log. Partition and
// Offset locate the record for watermark-style commits; Raw is retained so
// the reader can commit the exact records it handed out.
type LogMessage struct {
	Partition int
	Offset    int64
	Raw       any
	Value     []byte
}

// LogReader abstracts consumer-group access to the partitioned log.
type LogReader interface {
	// ReadBatch returns up to max messages without blocking once at least
	// one message (or none) is available for this poll.
	ReadBatch(ctx context.Context, max int) ([]LogMessage, error)
	// Commit acknowledges the given messages' offsets.
	Commit(ctx context.Context, msgs ...LogMessage) error
}

// UserWriter is the domain write surface invoked when user events arrive.
// Implementations belong to the CRUD layer; calls here are fire-and-forget
// from the relay's point of view.
type UserWriter interface {
	CreateUser(ctx context.Context, user entities.UserSnapshot) error
	UpdateUserPassword(ctx context.Context, update entities.PasswordUpdate) error
	UpdateUserAdditionalInfo(ctx context.Context, info entities.UserAdditionalInfo) error
	SoftDeleteUser(ctx context.Context, del entities.UserDelete) error
}

// TripWriter applies trip events broadcast by sibling services.
type TripWriter interface {
	CreateTrip(ctx context.Context, trip entities.TripSnapshot) error
}

// PostWriter applies post events broadcast by sibling services.
type PostWriter interface {
	CreatePost(ctx context.Context, post entities.PostSnapshot) error
}

// IDGenerator abstracts event identifier generation.
type IDGenerator interface {
	NewID(ctx context.Context) (string, error)
}
