// Package common defines sentinel errors and small helpers shared by the
// server, the honeychecker and the admin CLI. Callers should use errors.Is to
// match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Service-level errors (generic/internal flow control).
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")
	ErrInvalidToken   = errors.New("invalid token")

	// Validation errors: bad initialization parameters, out-of-range indexes.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrGeneratorExhaustion means the honeyword generator could not produce
	// enough distinct candidates; the password is too short for the requested k.
	ErrGeneratorExhaustion = errors.New("honeyword generator exhausted")

	// ErrNotInitialized is returned when a user has no active credential set.
	ErrNotInitialized = errors.New("credentials not initialized")

	// ErrHoneycheckerUnavailable covers timeouts, network failures and
	// unexpected responses from a remote honeychecker.
	ErrHoneycheckerUnavailable = errors.New("honeychecker unavailable")

	// Policy gate errors. They never leave the authenticator: clients only
	// ever see ErrorUnauthorized.
	ErrLocked    = errors.New("account locked")
	ErrMustReset = errors.New("password reset required")
)
