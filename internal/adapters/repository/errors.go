package repository

import "errors"

// Sentinel kinds for store errors.
var (
	ErrInvalidToken = errors.New("invalid scan token")
	ErrInvalidRange = errors.New("invalid scan range")
	ErrClosed       = errors.New("store closed")
)
