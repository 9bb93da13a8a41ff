package bank

import "errors"

// Sentinel errors for bank construction.
var (
	ErrEmptyBank       = errors.New("question bank is empty")
	ErrInvalidQuestion = errors.New("invalid question")
	ErrLoadBank        = errors.New("load question bank failed")
)
