package eventrelay

import (
	"log/slog"

	"waypoint/contexts/trip-social/event-relay/application"
	"waypoint/contexts/trip-social/event-relay/application/commands"
	"waypoint/contexts/trip-social/event-relay/application/workers"
	"waypoint/contexts/trip-social/event-relay/ports"
)

// Module is the composition surface of the event relay within waypoint.
type Module struct {
	Announcer   commands.Announcer
	Dispatcher  application.Dispatcher
	LogConsumer workers.LogConsumer
}

type Dependencies struct {
	Events            ports.EventStore
	Publisher         ports.EventPublisher
	Reader            ports.LogReader
	Users             ports.UserWriter
	Trips             ports.TripWriter
	Posts             ports.PostWriter
	AnnounceExchanges []string
	RegisterTopic     string
	BatchMax          int
	Logger            *slog.Logger
}

// NewModule wires the relay use-cases against explicit ports.
func NewModule(deps Dependencies) Module {
	return Module{
		Announcer: commands.Announcer{
			Events:    deps.Events,
			Publisher: deps.Publisher,
			Exchanges: deps.AnnounceExchanges,
			Logger:    deps.Logger,
		},
		Dispatcher: application.Dispatcher{
			Users:  deps.Users,
			Trips:  deps.Trips,
			Posts:  deps.Posts,
			Logger: deps.Logger,
		},
		LogConsumer: workers.LogConsumer{
			Reader:        deps.Reader,
			Events:        deps.Events,
			Users:         deps.Users,
			RegisterTopic: deps.RegisterTopic,
			BatchMax:      deps.BatchMax,
			Logger:        deps.Logger,
		},
	}
}
