package domain

import "errors"

var (
	ErrNotFound      = errors.New("not found")
	ErrRateLimited   = errors.New("rate limited")
	ErrUnauthorized  = errors.New("unauthorized")
	ErrInvalidParams = errors.New("invalid parameters")

	// Instrument normalization failures. A record that yields one of these is
	// dropped from its batch.
	ErrMissingKeyText  = errors.New("missing key text")
	ErrMissingPrice    = errors.New("missing price")
	ErrPriceOutOfRange = errors.New("price out of range")
	ErrInvalidRate     = errors.New("invalid funding rate")
)
