package config

import (
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config is centralized process configuration.
// Keep infra values here and pass typed config into builders.
type Config struct {
	ServiceName string
	PostgresDSN string

	BrokerProtocol string
	BrokerHost     string
	BrokerPort     string
	BrokerUsername string
	BrokerPassword string

	SubscribeQueue    string
	SubscribeExchange string
	DefaultExchange   string
	AnnounceExchanges []string

	KafkaBrokers  []string
	ConsumerGroup string
	SourceTopic   string
	RegisterTopic string

	PoolMin      int
	PoolMax      int
	BatchMax     int
	PollInterval time.Duration
}

func Load() (Config, error) {
	cfg := Config{
		ServiceName: envString("SERVICE_NAME", "waypoint-trip"),
		PostgresDSN: os.Getenv("POSTGRES_DSN"),

		BrokerProtocol: envString("EVENT_BROKER_PROTOCOL", "amqp"),
		BrokerHost:     envString("EVENT_BROKER_HOST", "localhost"),
		BrokerPort:     envString("EVENT_BROKER_PORT", "5672"),
		BrokerUsername: envString("EVENT_BROKER_USERNAME", "guest"),
		BrokerPassword: envString("EVENT_BROKER_PASSWORD", "guest"),

		SubscribeQueue:    envString("SUBSCRIBE_QUEUE", "waypoint_trip_queue"),
		SubscribeExchange: envString("SUBSCRIBE_EXCHANGE", "waypoint-trip"),
		DefaultExchange:   envString("DEFAULT_EXCHANGE", "waypoint-trip"),
		AnnounceExchanges: envList("ANNOUNCE_EXCHANGES", []string{"waypoint-user"}),

		KafkaBrokers:  envList("KAFKA_BROKERS", []string{"localhost:9092"}),
		ConsumerGroup: envString("CONSUMER_GROUP", "waypoint-trip-cg"),
		SourceTopic:   envString("SOURCE_TOPIC", "user-event"),
		RegisterTopic: envString("REGISTER_TOPIC", "trip-event"),

		PoolMin:      envInt("EVENT_BROKER_POOL_MIN", 1),
		PoolMax:      envInt("EVENT_BROKER_POOL_MAX", 10),
		BatchMax:     envInt("CONSUME_BATCH_MAX", 10),
		PollInterval: envDuration("POLL_INTERVAL", time.Second),
	}
	return cfg, nil
}

// BrokerURL assembles the AMQP connection string the transport adapters dial.
func (c Config) BrokerURL() string {
	u := url.URL{
		Scheme:   c.BrokerProtocol,
		User:     url.UserPassword(c.BrokerUsername, c.BrokerPassword),
		Host:     net.JoinHostPort(c.BrokerHost, c.BrokerPort),
		Path:     "/",
		RawQuery: "heartbeat=60",
	}
	return u.String()
}

func envString(name string, fallback string) string {
	value := strings.TrimSpace(os.Getenv(name))
	if value == "" {
		return fallback
	}
	return value
}

func envList(name string, fallback []string) []string {
	var values []string
	for _, value := range strings.Split(os.Getenv(name), ",") {
		value = strings.TrimSpace(value)
		if value != "" {
			values = append(values, value)
		}
	}
	if len(values) == 0 {
		return fallback
	}
	return values
}

func envInt(name string, fallback int) int {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value <= 0 {
		return fallback
	}
	return value
}

func envDuration(name string, fallback time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return fallback
	}
	value, err := time.ParseDuration(raw)
	if err != nil || value <= 0 {
		return fallback
	}
	return value
}
