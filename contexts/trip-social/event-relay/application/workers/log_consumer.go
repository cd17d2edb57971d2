package workers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	application "waypoint/contexts/trip-social/event-relay/application"
	"waypoint/contexts/trip-social/event-relay/domain/entities"
	domainerrors "waypoint/contexts/trip-social/event-relay/domain/errors"
	"waypoint/contexts/trip-social/event-relay/ports"
)

const defaultBatchMax = 10

// LogConsumer bridges the partitioned log into local user writes. A consumer
// group rejoining or rebalancing may redeliver messages already handled, so
// every message is checked against the event store's delivery history before
// the write, and registered after it. Offsets are committed only up to the
// first failure on each partition; everything at or beyond a failed offset
// stays uncommitted so the group redelivers it.
type LogConsumer struct {
	Reader        ports.LogReader
	Events        ports.EventStore
	Users         ports.UserWriter
	RegisterTopic string
	BatchMax      int
	Logger        *slog.Logger
}

// logEvent is the projection of an envelope the log carries: payload data
// lives in the event store, keyed by id.
type logEvent struct {
	ID   string             `json:"id"`
	Type entities.EventType `json:"type"`
}

func (c LogConsumer) RunOnce(ctx context.Context) error {
	logger := application.ResolveLogger(c.Logger)

	max := c.BatchMax
	if max <= 0 {
		max = defaultBatchMax
	}

	batch, err := c.Reader.ReadBatch(ctx, max)
	if err != nil {
		logger.Error("log read failed",
			"event", "event_relay_log_read_failed",
			"module", "trip-social/event-relay",
			"layer", "worker",
			"error", err.Error(),
		)
		return err
	}
	if len(batch) == 0 {
		return nil
	}

	// A consumer-group commit is a per-partition watermark, not a set:
	// committing a later offset advances the group past every earlier one.
	// After a failure nothing at or beyond it on that partition may reach
	// Commit, so the rest of the partition's batch waits for redelivery.
	failed := make(map[int]bool)
	done := make([]ports.LogMessage, 0, len(batch))
	for _, msg := range batch {
		if failed[msg.Partition] {
			continue
		}
		if err := c.process(ctx, logger, msg.Value); err != nil {
			logger.Error("log message processing failed",
				"event", "event_relay_log_process_failed",
				"module", "trip-social/event-relay",
				"layer", "worker",
				"partition", msg.Partition,
				"offset", msg.Offset,
				"error", err.Error(),
			)
			failed[msg.Partition] = true
			continue
		}
		done = append(done, msg)
	}

	if len(done) == 0 {
		return nil
	}
	if err := c.Reader.Commit(ctx, done...); err != nil {
		logger.Error("offset commit failed",
			"event", "event_relay_log_commit_failed",
			"module", "trip-social/event-relay",
			"layer", "worker",
			"committed_count", len(done),
			"error", err.Error(),
		)
		return err
	}
	return nil
}

func (c LogConsumer) process(ctx context.Context, logger *slog.Logger, value []byte) error {
	var event logEvent
	if err := json.Unmarshal(value, &event); err != nil {
		// An unparseable record can never succeed on redelivery; drop it.
		logger.Warn("log message decode failed, dropping",
			"event", "event_relay_log_decode_failed",
			"module", "trip-social/event-relay",
			"layer", "worker",
			"error", err.Error(),
		)
		return nil
	}

	if !event.Type.Known() {
		logger.Warn("log message type not recognized",
			"event", "event_relay_log_type_unknown",
			"module", "trip-social/event-relay",
			"layer", "worker",
			"event_id", event.ID,
			"event_type", string(event.Type),
			"error", domainerrors.ErrUnknownEventType.Error(),
		)
		return nil
	}
	if event.Type != entities.EventCreateUser {
		return nil
	}

	record, err := c.Events.GetByID(ctx, event.ID)
	if err != nil {
		if errors.Is(err, domainerrors.ErrEventNotFound) {
			logger.Warn("log message references unknown event",
				"event", "event_relay_log_event_missing",
				"module", "trip-social/event-relay",
				"layer", "worker",
				"event_id", event.ID,
			)
			return nil
		}
		return err
	}
	if len(record.Payload) == 0 {
		logger.Warn("stored event has no payload",
			"event", "event_relay_log_payload_empty",
			"module", "trip-social/event-relay",
			"layer", "worker",
			"event_id", event.ID,
			"error", domainerrors.ErrEmptyEventPayload.Error(),
		)
		return nil
	}
	if record.DeliveredTo(c.RegisterTopic) {
		logger.Debug("event already delivered for topic",
			"event", "event_relay_log_event_replayed",
			"module", "trip-social/event-relay",
			"layer", "worker",
			"event_id", event.ID,
			"topic", c.RegisterTopic,
		)
		return nil
	}

	var user entities.UserSnapshot
	if err := json.Unmarshal(record.Payload, &user); err != nil {
		return err
	}
	if err := c.Users.CreateUser(ctx, user); err != nil {
		return err
	}

	if _, err := c.Events.RegisterDelivery(ctx, event.ID, c.RegisterTopic); err != nil {
		return err
	}

	logger.Info("log event processed",
		"event", "event_relay_log_event_processed",
		"module", "trip-social/event-relay",
		"layer", "worker",
		"event_id", event.ID,
		"event_type", string(event.Type),
		"topic", c.RegisterTopic,
	)
	return nil
}
