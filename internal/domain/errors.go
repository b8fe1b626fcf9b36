package domain

import "errors"

var (
	ErrInvalidID       = errors.New("invalid id")
	ErrInvalidText     = errors.New("invalid todo text")
	ErrInvalidOwner    = errors.New("invalid owner id")
	ErrInvalidStatus   = errors.New("invalid status")
	ErrInvalidPosition = errors.New("invalid position")
)
