package model

import "errors"

var (
	ErrInvalidRequest      = errors.New("invalid request")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrUserNotFound        = errors.New("user not found")
	ErrJobNotFound         = errors.New("job not found")
	ErrForbidden           = errors.New("forbidden")
	// ErrJobNotActive is returned when a conditional status transition finds the job
	// already moved on (canceled, deleted or finished by someone else).
	ErrJobNotActive = errors.New("job is no longer active")
)
