package notification

import "errors"

var (
	ErrNotFound       = errors.New("notification not found")
	ErrInvalidRequest = errors.New("notification needs a user, a type and a message")
	ErrNoChannel      = errors.New("user has no reachable delivery channel")
)
