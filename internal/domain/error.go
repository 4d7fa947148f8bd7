package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound            = errors.New("entity not found")
	ErrInvalidArgument     = errors.New("invalid argument")
	ErrMissingAPIKey       = errors.New("api key is not configured")
	ErrUnauthorized        = errors.New("provider rejected credentials")
	ErrInsufficientBalance = errors.New("insufficient provider balance")
	ErrUnsupported         = errors.New("operation not supported by provider")
	ErrInvalidTransition   = errors.New("invalid task status transition")
)
