package models

import "errors"

// Error taxonomy shared by services and mapped to HTTP status codes by handlers.
var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrForbidden    = errors.New("forbidden")
	ErrEncoding     = errors.New("ticket encoding failed")
	ErrUpstream     = errors.New("upstream failure")
)
