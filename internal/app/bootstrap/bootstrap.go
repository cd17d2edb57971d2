package bootstrap

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	eventrelay "waypoint/contexts/trip-social/event-relay"
	kafkaadapter "waypoint/contexts/trip-social/event-relay/adapters/kafka"
	"waypoint/contexts/trip-social/event-relay/adapters/memory"
	postgresadapter "waypoint/contexts/trip-social/event-relay/adapters/postgres"
	"waypoint/contexts/trip-social/event-relay/adapters/rabbitmq"
	"waypoint/internal/platform/config"
	"waypoint/internal/platform/db"
)

// Package bootstrap is the composition root.
// Keep construction/wiring here so module code stays framework-agnostic.

type WorkerApp struct {
	postgres     *db.Postgres
	subscriber   *rabbitmq.Subscriber
	reader       *kafkaadapter.Reader
	module       eventrelay.Module
	pollInterval time.Duration
	logger       *slog.Logger
}

func BuildWorker() (*WorkerApp, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger := slog.Default().With("service", cfg.ServiceName, "process", "worker")
	if strings.TrimSpace(cfg.PostgresDSN) == "" {
		return nil, errors.New("POSTGRES_DSN is required")
	}

	pg, err := db.Connect(cfg.PostgresDSN, cfg.PoolMin, cfg.PoolMax)
	if err != nil {
		return nil, err
	}

	subscriber, err := rabbitmq.NewSubscriber(cfg.BrokerURL(), cfg.SubscribeQueue, cfg.SubscribeExchange, logger)
	if err != nil {
		_ = pg.Close()
		return nil, err
	}

	reader := kafkaadapter.NewReader(kafkaadapter.Config{
		Brokers: cfg.KafkaBrokers,
		GroupID: cfg.ConsumerGroup,
		Topic:   cfg.SourceTopic,
	}, logger)

	module := eventrelay.NewModule(eventrelay.Dependencies{
		Events:    postgresadapter.NewEventStore(pg.DB, postgresadapter.UUIDGenerator{}, logger),
		Publisher: rabbitmq.Publisher{URL: cfg.BrokerURL(), DefaultExchange: cfg.DefaultExchange, Logger: logger},
		Reader:    reader,
		Users:     postgresadapter.NewUserWriter(pg.DB, logger),
		// Trip and post persistence stay with the CRUD layer; the relay only
		// needs writers it can dispatch to when their events arrive.
		Trips:             memory.NewTripStore(),
		Posts:             memory.NewPostStore(),
		AnnounceExchanges: cfg.AnnounceExchanges,
		RegisterTopic:     cfg.RegisterTopic,
		BatchMax:          cfg.BatchMax,
		Logger:            logger,
	})

	return &WorkerApp{
		postgres:     pg,
		subscriber:   subscriber,
		reader:       reader,
		module:       module,
		pollInterval: cfg.PollInterval,
		logger:       logger,
	}, nil
}

func (w *WorkerApp) Run(ctx context.Context) error {
	subscriberErr := make(chan error, 1)
	go func() {
		subscriberErr <- w.subscriber.Run(ctx, w.module.Dispatcher.Dispatch)
	}()

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	w.logger.Info("worker app started",
		"event", "bootstrap_worker_started",
		"module", "internal/app/bootstrap",
		"layer", "platform",
		"poll_interval", w.pollInterval.String(),
	)

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-subscriberErr:
			return err
		case <-ticker.C:
			// Consumption retries forever; a failed poll is logged inside
			// the worker and must not stop the daemon.
			_ = w.module.LogConsumer.RunOnce(ctx)
		}
	}
}

func (w *WorkerApp) Close() error {
	var first error
	if w.subscriber != nil {
		if err := w.subscriber.Close(); err != nil && first == nil {
			first = err
		}
	}
	if w.reader != nil {
		if err := w.reader.Close(); err != nil && first == nil {
			first = err
		}
	}
	if w.postgres != nil {
		if err := w.postgres.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
