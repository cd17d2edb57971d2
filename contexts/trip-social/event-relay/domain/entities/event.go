package entities

import (
	"encoding/json"
	"time"
)

// EventType tags the payload shape of a relayed domain event.
// The tag fully determines how Data decodes; consumers ignore unknown tags.
type EventType string

const (
	EventCreateUser               EventType = "CREATE_USER"
	EventUpdateUserPassword       EventType = "UPDATE_USER_PASSWORD"
	EventUpdateUserAdditionalInfo EventType = "UPDATE_USER_ADDITIONAL_INFO"
	EventSoftDeleteUser           EventType = "SOFT_DELETE_USER"
	EventCreateTrip               EventType = "CREATE_TRIP"
	EventCreatePost               EventType = "CREATE_POST"
)

// Known reports whether the type is one this service dispatches.
func (t EventType) Known() bool {
	switch t {
	case EventCreateUser,
		EventUpdateUserPassword,
		EventUpdateUserAdditionalInfo,
		EventSoftDeleteUser,
		EventCreateTrip,
		EventCreatePost:
		return true
	default:
		return false
	}
}

// UserSnapshot is the user state carried by CREATE_USER.
type UserSnapshot struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	Email       string `json:"email"`
	Role        string `json:"role"`
	Status      bool   `json:"status"`
	ExpiredDate string `json:"expiredDate,omitempty"`
}

// PasswordUpdate carries already-hashed credential material; this service
// never sees plaintext.
type PasswordUpdate struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Salt     string `json:"salt"`
	Password string `json:"password"`
}

// UserAdditionalInfo is the optional profile blob attached after signup.
type UserAdditionalInfo struct {
	ID           string `json:"id"`
	Gender       string `json:"gender,omitempty"`
	Age          int    `json:"age,omitempty"`
	Desc         string `json:"desc,omitempty"`
	ProfileImage string `json:"profileImage,omitempty"`
}

// UserDelete carries the id of a user being soft-deleted.
type UserDelete struct {
	ID string `json:"id"`
}

// TripSnapshot is the trip state carried by CREATE_TRIP.
type TripSnapshot struct {
	ID          string `json:"id"`
	StartDate   string `json:"startDate"`
	EndDate     string `json:"endDate"`
	PublisherID string `json:"publisherId"`
	CompanyName string `json:"companyName,omitempty"`
	ShipNumber  string `json:"shipNumber,omitempty"`
}

// PostSnapshot is the post state carried by CREATE_POST.
type PostSnapshot struct {
	ID          string `json:"id"`
	Content     string `json:"content"`
	Image       string `json:"image,omitempty"`
	PublisherID string `json:"publisherId"`
	TripID      string `json:"tripId,omitempty"`
}

// EventRecord is one row of the durable event store. Topics is the
// append-only delivery history; a topic name appears at most once.
type EventRecord struct {
	ID        string
	Payload   json.RawMessage
	Topics    []string
	Version   int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// DeliveredTo reports whether the record was already registered for topic.
func (r EventRecord) DeliveredTo(topic string) bool {
	for _, t := range r.Topics {
		if t == topic {
			return true
		}
	}
	return false
}
