package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound             = errors.New("not found")
	ErrDuplicateEmail       = errors.New("email already exists")
	ErrUnauthorized         = errors.New("unauthorized")
	ErrInvalidInput         = errors.New("invalid input")
	ErrRecordStore          = errors.New("record store")
	ErrBlobStore            = errors.New("blob store")
	ErrConfirmationRequired = errors.New("confirmation required")
)

// AuthError is returned by signup and login. It carries the failing step and
// the unchanged gateway or record store error.
type AuthError struct {
	Op  string
	Err error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("auth %s: %v", e.Op, e.Err)
}

func (e *AuthError) Unwrap() error { return e.Err }
