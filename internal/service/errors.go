package service

import "errors"

var (
	// ErrGenerationBusy means the identity already has a generation in flight.
	ErrGenerationBusy = errors.New("a generation is already in progress")
	// ErrNotFound covers missing history items, shares and plans.
	ErrNotFound = errors.New("not found")
	// ErrUnavailable is returned when a feature needs the database and the
	// service is running on the in-memory fallback.
	ErrUnavailable = errors.New("service unavailable without a database")

	ErrOTPInvalid     = errors.New("invalid verification code")
	ErrOTPExpired     = errors.New("verification code expired")
	ErrOTPMaxAttempts = errors.New("too many verification attempts")
)
