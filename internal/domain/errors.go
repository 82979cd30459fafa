package domain

import "errors"

var (
	ErrNotFound          = errors.New("not found")
	ErrEmptyBook         = errors.New("order book side is empty")
	ErrUnknownProduct    = errors.New("unknown product")
	ErrMalformedRecord   = errors.New("malformed record")
	ErrInvalidTransition = errors.New("invalid state transition")
	ErrUnknownCategory   = errors.New("unknown historical category")
	ErrRateLimited       = errors.New("rate limited")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrLockHeld          = errors.New("lock already held")
)
