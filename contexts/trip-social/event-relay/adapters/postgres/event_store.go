package postgresadapter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"waypoint/contexts/trip-social/event-relay/domain/entities"
	domainerrors "waypoint/contexts/trip-social/event-relay/domain/errors"
	"waypoint/contexts/trip-social/event-relay/ports"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// EventStore persists the durable event log in the user_events table.
// Topics is the append-only delivery history; registration holds a row-level
// write lock for the whole read-modify-write so concurrent registrations of
// different topics serialize instead of racing.
type EventStore struct {
	db     *gorm.DB
	ids    ports.IDGenerator
	logger *slog.Logger
}

func NewEventStore(db *gorm.DB, ids ports.IDGenerator, logger *slog.Logger) *EventStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &EventStore{
		db:     db,
		ids:    ids,
		logger: logger,
	}
}

func (s *EventStore) Accept(ctx context.Context, payload json.RawMessage) (entities.EventRecord, error) {
	id, err := s.ids.NewID(ctx)
	if err != nil {
		return entities.EventRecord{}, fmt.Errorf("generate event id: %w", err)
	}

	now := time.Now().UTC()
	row := userEventModel{
		ID:        id,
		Payload:   append([]byte(nil), payload...),
		Topics:    "[]",
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return entities.EventRecord{}, fmt.Errorf("insert user event: %w", err)
	}
	return row.toEntity()
}

func (s *EventStore) GetByID(ctx context.Context, id string) (entities.EventRecord, error) {
	var row userEventModel
	err := s.db.WithContext(ctx).
		Where("id = ?", id).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.EventRecord{}, domainerrors.ErrEventNotFound
		}
		return entities.EventRecord{}, err
	}
	return row.toEntity()
}

func (s *EventStore) RegisterDelivery(ctx context.Context, id string, topic string) (entities.EventRecord, error) {
	var updated userEventModel
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row userEventModel
		if err := tx.
			Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", id).
			First(&row).
			Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domainerrors.ErrEventNotFound
			}
			return err
		}

		topics, err := row.topicList()
		if err != nil {
			return err
		}
		for _, existing := range topics {
			if existing == topic {
				updated = row
				return nil
			}
		}

		encoded, err := json.Marshal(append(topics, topic))
		if err != nil {
			return err
		}
		result := tx.Model(&userEventModel{}).
			Where("id = ?", id).
			Updates(map[string]any{
				"topics":     string(encoded),
				"version":    row.Version + 1,
				"updated_at": time.Now().UTC(),
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return domainerrors.ErrRepositoryInvariantBroke
		}

		return tx.Where("id = ?", id).First(&updated).Error
	})
	if err != nil {
		return entities.EventRecord{}, err
	}
	return updated.toEntity()
}

type userEventModel struct {
	ID        string    `gorm:"column:id;primaryKey"`
	Payload   []byte    `gorm:"column:payload"`
	Topics    string    `gorm:"column:topics"`
	Version   int       `gorm:"column:version"`
	CreatedAt time.Time `gorm:"column:created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

func (userEventModel) TableName() string {
	return "user_events"
}

func (m userEventModel) topicList() ([]string, error) {
	if m.Topics == "" {
		return []string{}, nil
	}
	var topics []string
	if err := json.Unmarshal([]byte(m.Topics), &topics); err != nil {
		return nil, fmt.Errorf("decode topics for event %s: %w", m.ID, err)
	}
	if topics == nil {
		topics = []string{}
	}
	return topics, nil
}

func (m userEventModel) toEntity() (entities.EventRecord, error) {
	topics, err := m.topicList()
	if err != nil {
		return entities.EventRecord{}, err
	}
	return entities.EventRecord{
		ID:        m.ID,
		Payload:   append(json.RawMessage(nil), m.Payload...),
		Topics:    topics,
		Version:   m.Version,
		CreatedAt: m.CreatedAt.UTC(),
		UpdatedAt: m.UpdatedAt.UTC(),
	}, nil
}
