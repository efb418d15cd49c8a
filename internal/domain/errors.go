package domain

import "errors"

var (
	ErrNotFound       = errors.New("not found")
	ErrInvalidEvent   = errors.New("invalid event")
	ErrNotConnected   = errors.New("distributor not connected")
	ErrNotRunning     = errors.New("engine not running")
	ErrAlreadyRunning = errors.New("engine already running")
)
