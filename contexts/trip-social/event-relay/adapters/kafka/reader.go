package kafkaadapter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"waypoint/contexts/trip-social/event-relay/ports"

	"github.com/segmentio/kafka-go"
)

const fetchWait = 500 * time.Millisecond

// Reader adapts a consumer-group kafka reader to the relay's poll-batch
// contract. Offsets move only through Commit, so a message the worker did
// not finish stays owned by the group and comes back on the next poll.
type Reader struct {
	reader *kafka.Reader
	logger *slog.Logger
}

type Config struct {
	Brokers []string
	GroupID string
	Topic   string
}

func NewReader(cfg Config, logger *slog.Logger) *Reader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reader{
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers: cfg.Brokers,
			GroupID: cfg.GroupID,
			Topic:   cfg.Topic,
			// New groups start from the beginning of the log.
			StartOffset: kafka.FirstOffset,
			MinBytes:    1,
			MaxBytes:    10e6,
		}),
		logger: logger,
	}
}

// ReadBatch fetches up to max messages, waiting at most fetchWait for each.
// An empty poll is not an error.
func (r *Reader) ReadBatch(ctx context.Context, max int) ([]ports.LogMessage, error) {
	if max <= 0 {
		max = 1
	}

	batch := make([]ports.LogMessage, 0, max)
	for len(batch) < max {
		fetchCtx, cancel := context.WithTimeout(ctx, fetchWait)
		msg, err := r.reader.FetchMessage(fetchCtx)
		cancel()
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				break
			}
			if errors.Is(err, context.Canceled) && ctx.Err() != nil {
				return batch, ctx.Err()
			}
			if len(batch) > 0 {
				// Deliver what we have; the failure repeats on the next poll
				// if it is persistent.
				r.logger.Warn("log fetch interrupted",
					"event", "event_relay_log_fetch_interrupted",
					"module", "trip-social/event-relay",
					"layer", "adapter",
					"error", err.Error(),
				)
				break
			}
			return nil, fmt.Errorf("fetch message: %w", err)
		}
		batch = append(batch, ports.LogMessage{
			Partition: msg.Partition,
			Offset:    msg.Offset,
			Raw:       msg,
			Value:     append([]byte(nil), msg.Value...),
		})
	}
	return batch, nil
}

func (r *Reader) Commit(ctx context.Context, msgs ...ports.LogMessage) error {
	if len(msgs) == 0 {
		return nil
	}
	kafkaMsgs := make([]kafka.Message, 0, len(msgs))
	for _, msg := range msgs {
		raw, ok := msg.Raw.(kafka.Message)
		if !ok {
			return fmt.Errorf("commit: message does not originate from this reader")
		}
		kafkaMsgs = append(kafkaMsgs, raw)
	}
	if err := r.reader.CommitMessages(ctx, kafkaMsgs...); err != nil {
		return fmt.Errorf("commit offsets: %w", err)
	}
	return nil
}

func (r *Reader) Close() error {
	return r.reader.Close()
}
