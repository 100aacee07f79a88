package domain

import "errors"

var (
	ErrNotFound           = errors.New("not found")
	ErrRateLimited        = errors.New("rate limited")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrInvalidConfig      = errors.New("invalid configuration")
	ErrInvariantViolation = errors.New("invariant violation")
	ErrSigningFailed      = errors.New("signing failed")
	ErrWSDisconnect       = errors.New("websocket disconnected")
	ErrContextDone        = errors.New("context cancelled")
)
