package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"waypoint/internal/app/bootstrap"
)

// Worker process entrypoint.
// Data flow:
// 1) Load config.
// 2) Build relay wiring (event store, subscriber, log reader).
// 3) Consume the fanout queue and poll the partitioned log until stopped.
func main() {
	log.Println("waypoint worker starting")
	app, err := bootstrap.BuildWorker()
	if err != nil {
		log.Fatalf("bootstrap worker failed: %v", err)
	}
	defer func() {
		if err := app.Close(); err != nil {
			log.Printf("worker shutdown close failed: %v", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := app.Run(ctx); err != nil {
		log.Fatalf("waypoint worker stopped with error: %v", err)
	}
}
