package errs

import (
	"errors"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrDuplicate          = errors.New("already exists")
	ErrValidation         = errors.New("validation failed")
	ErrForbidden          = errors.New("forbidden")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidConfig      = errors.New("invalid policy configuration")
)

// ErrOutOfStock is returned by the guarded stock decrement when no copy is left.
var ErrOutOfStock = errors.New("no copies available")
