package user

import "errors"

var (
	// ErrUserNotFound is returned when a user ID does not exist.
	ErrUserNotFound = errors.New("user not found")

	// ErrEmailExists is returned when an insert or update would
	// duplicate an email address already held by another record.
	ErrEmailExists = errors.New("email already exists")
)
