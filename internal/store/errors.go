package store

import "errors"

// Sentinel errors returned by store implementations. Wrap them with
// context; callers match with errors.Is.
var (
	ErrNotFound           = errors.New("not found")
	ErrAlreadyExists      = errors.New("already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
)
