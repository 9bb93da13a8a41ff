package challenge

import "errors"

// Sentinel errors for the challenge package.
var (
	ErrMalformedResponse = errors.New("malformed challenge response")
	ErrInvalidFactory    = errors.New("invalid challenge factory configuration")
)
