package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"waypoint/contexts/trip-social/event-relay/domain/entities"
	domainerrors "waypoint/contexts/trip-social/event-relay/domain/errors"
)

// Store is an in-memory event store for local runtime and tests.
// It is not intended as production persistence.
type Store struct {
	mu       sync.Mutex
	events   map[string]entities.EventRecord
	sequence uint64
}

func NewStore(seed []entities.EventRecord) *Store {
	events := make(map[string]entities.EventRecord, len(seed))
	for _, record := range seed {
		events[record.ID] = cloneRecord(record)
	}
	return &Store{events: events}
}

func (s *Store) Accept(_ context.Context, payload json.RawMessage) (entities.EventRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	record := entities.EventRecord{
		ID:        fmt.Sprintf("event-%d", atomic.AddUint64(&s.sequence, 1)),
		Payload:   append(json.RawMessage(nil), payload...),
		Topics:    []string{},
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.events[record.ID] = record
	return cloneRecord(record), nil
}

func (s *Store) GetByID(_ context.Context, id string) (entities.EventRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.events[id]
	if !ok {
		return entities.EventRecord{}, domainerrors.ErrEventNotFound
	}
	return cloneRecord(record), nil
}

func (s *Store) RegisterDelivery(_ context.Context, id string, topic string) (entities.EventRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.events[id]
	if !ok {
		return entities.EventRecord{}, domainerrors.ErrEventNotFound
	}
	if !record.DeliveredTo(topic) {
		record.Topics = append(record.Topics, topic)
		record.Version++
		record.UpdatedAt = time.Now().UTC()
		s.events[id] = record
	}
	return cloneRecord(record), nil
}

func cloneRecord(record entities.EventRecord) entities.EventRecord {
	clone := record
	clone.Payload = append(json.RawMessage(nil), record.Payload...)
	clone.Topics = append([]string(nil), record.Topics...)
	return clone
}
