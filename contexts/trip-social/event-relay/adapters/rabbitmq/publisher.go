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

// Publisher broadcasts envelopes on non-durable fanout exchanges. Each call
// dials its own connection so a broker outage never poisons a shared handle;
// the announce layer treats failures as best-effort anyway.
type Publisher struct {
	URL             string
	DefaultExchange string
	Logger          *slog.Logger
}

func (p Publisher) Publish(ctx context.Context, envelope ports.Envelope, exchange string) error {
	if exchange == "" {
		exchange = p.DefaultExchange
	}

	body, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("encode envelope: %w", err)
	}

	conn, err := amqp.DialConfig(p.URL, amqp.Config{Heartbeat: 60 * time.Second})
	if err != nil {
		return fmt.Errorf("dial broker: %w", err)
	}
	defer conn.Close()

	channel, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("open channel: %w", err)
	}
	defer channel.Close()

	if err := declareFanout(channel, exchange); err != nil {
		return err
	}

	// Fanout ignores routing keys; every bound queue gets a copy.
	err = channel.PublishWithContext(ctx, exchange, "", false, false, amqp.Publishing{
		ContentType: "application/json",
		Body:        body,
	})
	if err != nil {
		return fmt.Errorf("publish to exchange %s: %w", exchange, err)
	}

	if p.Logger != nil {
		p.Logger.Debug("envelope published",
			"event", "event_relay_broker_published",
			"module", "trip-social/event-relay",
			"layer", "adapter",
			"event_id", envelope.ID,
			"event_type", string(envelope.Type),
			"exchange", exchange,
		)
	}
	return nil
}

func declareFanout(channel *amqp.Channel, exchange string) error {
	if err := channel.ExchangeDeclare(exchange, "fanout", false, false, false, false, nil); err != nil {
		return fmt.Errorf("declare exchange %s: %w", exchange, err)
	}
	return nil
}
