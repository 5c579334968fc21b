package repositories

import "errors"

// Errors shared by every repository implementation.
var (
	ErrNotFound           = errors.New("not found")
	ErrDuplicate          = errors.New("already exists")
	ErrPreconditionFailed = errors.New("precondition failed")
)
