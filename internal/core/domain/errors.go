package domain

import "errors"

var (
	// ErrGatewayFailure wraps every search provider error, cancellation and timeout.
	ErrGatewayFailure = errors.New("search gateway failure")

	// ErrMalformedPayload marks a provider candidate that cannot become a PlaceRecord.
	ErrMalformedPayload = errors.New("malformed place payload")

	ErrEmptyQuery      = errors.New("search query must not be empty")
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionClosed   = errors.New("session closed")
	ErrPlaceNotFound   = errors.New("place not found")
	ErrTooManySessions = errors.New("too many active sessions")
)
