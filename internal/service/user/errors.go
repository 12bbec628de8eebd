package user

import "errors"

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrUnauthorized       = errors.New("not allowed to act on this user")
	ErrInvalidName        = errors.New("name and last name must be between 1 and 100 characters")
	ErrInvalidEmail       = errors.New("invalid email address")
	ErrInvalidPhone       = errors.New("invalid phone number for the configured region")
	ErrInvalidRole        = errors.New("role must be patient, doctor or admin")
	ErrPasswordTooShort   = errors.New("password must be at least 8 characters")
	ErrEmailAlreadyExists = errors.New("email address is already in use")
	ErrSelfDemotion       = errors.New("administrators cannot change their own role or deactivate themselves")
)
