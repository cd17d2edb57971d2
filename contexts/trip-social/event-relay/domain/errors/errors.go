package errors

import "errors"

var (
	ErrEventNotFound            = errors.New("event not found")
	ErrEmptyEventPayload        = errors.New("event payload is empty")
	ErrUnknownEventType         = errors.New("unknown event type")
	ErrUserNotFound             = errors.New("user not found")
	ErrDuplicateUser            = errors.New("user already exists")
	ErrRepositoryInvariantBroke = errors.New("repository invariant violated")
)
