package entity

import "errors"

var (
	ErrNotFound          = errors.New("not found")
	ErrInvalidTransition = errors.New("invalid transition")
	ErrInvalidArgument   = errors.New("invalid argument")
	ErrSchedulerDelivery = errors.New("scheduler delivery failure")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrForbidden         = errors.New("forbidden")
)
