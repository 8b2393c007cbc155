package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrInvalidInput  = errors.New("invalid input")
	ErrAlreadyLinked = errors.New("amenity already linked")
)

// NotFoundError names the missing object.
type NotFoundError struct {
	Kind Kind
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.ID)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

func NewNotFound(kind Kind, id string) error { return &NotFoundError{Kind: kind, ID: id} }

// MissingFieldError is returned when a required request field is absent.
type MissingFieldError struct{ Field string }

func (e *MissingFieldError) Error() string { return "Missing " + e.Field }

func (e *MissingFieldError) Is(target error) bool { return target == ErrInvalidInput }

func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }
