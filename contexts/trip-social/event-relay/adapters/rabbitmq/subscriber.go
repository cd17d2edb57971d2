package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"waypoint/contexts/trip-social/event-relay/ports"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Subscriber consumes one exchange's fanout broadcast through an exclusive
// queue. Messages are acknowledged only after the dispatched domain write
// returns, so a crash mid-write leads to redelivery instead of loss.
type Subscriber struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	queue   string
	logger  *slog.Logger
}

// NewSubscriber declares the fanout exchange, an exclusive queue (broker
// names it when queueName is empty) and binds the two with an empty key.
func NewSubscriber(url string, queueName string, exchange string, logger *slog.Logger) (*Subscriber, error) {
	if logger == nil {
		logger = slog.Default()
	}

	conn, err := amqp.DialConfig(url, amqp.Config{Heartbeat: 60 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("dial broker: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	if err := declareFanout(channel, exchange); err != nil {
		channel.Close()
		conn.Close()
		return nil, err
	}

	queue, err := channel.QueueDeclare(queueName, false, false, true, false, nil)
	if err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("declare queue %q: %w", queueName, err)
	}

	if err := channel.QueueBind(queue.Name, "", exchange, false, nil); err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("bind queue %s to exchange %s: %w", queue.Name, exchange, err)
	}

	logger.Info("subscriber bound",
		"event", "event_relay_subscriber_bound",
		"module", "trip-social/event-relay",
		"layer", "adapter",
		"queue", queue.Name,
		"exchange", exchange,
	)

	return &Subscriber{
		conn:    conn,
		channel: channel,
		queue:   queue.Name,
		logger:  logger,
	}, nil
}

// Run consumes until ctx is cancelled or the channel closes. Dispatch
// failures nack with requeue; undecodable bodies are dropped after logging
// since redelivering them can never succeed.
func (s *Subscriber) Run(ctx context.Context, dispatch func(context.Context, ports.Envelope) error) error {
	deliveries, err := s.channel.Consume(s.queue, "", false, true, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume queue %s: %w", s.queue, err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case delivery, ok := <-deliveries:
			if !ok {
				return nil
			}
			s.handle(ctx, delivery, dispatch)
		}
	}
}

func (s *Subscriber) handle(ctx context.Context, delivery amqp.Delivery, dispatch func(context.Context, ports.Envelope) error) {
	var envelope ports.Envelope
	if err := json.Unmarshal(delivery.Body, &envelope); err != nil {
		s.logger.Warn("envelope decode failed, dropping",
			"event", "event_relay_subscriber_decode_failed",
			"module", "trip-social/event-relay",
			"layer", "adapter",
			"queue", s.queue,
			"error", err.Error(),
		)
		_ = delivery.Ack(false)
		return
	}

	if err := dispatch(ctx, envelope); err != nil {
		s.logger.Error("envelope dispatch failed, requeueing",
			"event", "event_relay_subscriber_dispatch_failed",
			"module", "trip-social/event-relay",
			"layer", "adapter",
			"queue", s.queue,
			"event_id", envelope.ID,
			"event_type", string(envelope.Type),
			"error", err.Error(),
		)
		_ = delivery.Nack(false, true)
		return
	}
	_ = delivery.Ack(false)
}

func (s *Subscriber) Close() error {
	if s.channel != nil {
		_ = s.channel.Close()
	}
	if s.conn != nil {
		return s.conn.Close()
	}
	return nil
}
