package memory

import (
	"context"
	"sync"

	"waypoint/contexts/trip-social/event-relay/domain/entities"
	domainerrors "waypoint/contexts/trip-social/event-relay/domain/errors"
)

// UserStore is an in-memory user write surface for local runtime and tests.
type UserStore struct {
	mu      sync.Mutex
	users   map[string]entities.UserSnapshot
	deleted map[string]bool
}

func NewUserStore() *UserStore {
	return &UserStore{
		users:   make(map[string]entities.UserSnapshot),
		deleted: make(map[string]bool),
	}
}

func (s *UserStore) CreateUser(_ context.Context, user entities.UserSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[user.ID]; ok {
		return domainerrors.ErrDuplicateUser
	}
	s.users[user.ID] = user
	return nil
}

func (s *UserStore) UpdateUserPassword(_ context.Context, update entities.PasswordUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[update.ID]; !ok {
		return domainerrors.ErrUserNotFound
	}
	return nil
}

func (s *UserStore) UpdateUserAdditionalInfo(_ context.Context, info entities.UserAdditionalInfo) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[info.ID]; !ok {
		return domainerrors.ErrUserNotFound
	}
	return nil
}

func (s *UserStore) SoftDeleteUser(_ context.Context, del entities.UserDelete) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[del.ID]
	if !ok {
		return domainerrors.ErrUserNotFound
	}
	user.Status = false
	s.users[del.ID] = user
	s.deleted[del.ID] = true
	return nil
}

// GetUser exposes state for tests.
func (s *UserStore) GetUser(id string) (entities.UserSnapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[id]
	return user, ok
}

// TripStore is an in-memory trip write surface.
type TripStore struct {
	mu    sync.Mutex
	trips map[string]entities.TripSnapshot
}

func NewTripStore() *TripStore {
	return &TripStore{trips: make(map[string]entities.TripSnapshot)}
}

func (s *TripStore) CreateTrip(_ context.Context, trip entities.TripSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.trips[trip.ID] = trip
	return nil
}

// GetTrip exposes state for tests.
func (s *TripStore) GetTrip(id string) (entities.TripSnapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	trip, ok := s.trips[id]
	return trip, ok
}

// PostStore is an in-memory post write surface.
type PostStore struct {
	mu    sync.Mutex
	posts map[string]entities.PostSnapshot
}

func NewPostStore() *PostStore {
	return &PostStore{posts: make(map[string]entities.PostSnapshot)}
}

func (s *PostStore) CreatePost(_ context.Context, post entities.PostSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.posts[post.ID] = post
	return nil
}

// GetPost exposes state for tests.
func (s *PostStore) GetPost(id string) (entities.PostSnapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	post, ok := s.posts[id]
	return post, ok
}
