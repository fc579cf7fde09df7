// Package services holds the intake pipeline: the dedup gate, the activity
// tracker and burst stager, the process tracker, the session cache, the
// handoff marker, the catalog lookup and the coordinator that ties them to the
// rule engine and the external collaborators.
//
// This file centralizes service-level error values so that callers can match
// them with errors.Is and the HTTP layer can map them to status codes.
package services

import "errors"

var (
	// ErrInvalidEvent indicates a payload without the identity fields the
	// pipeline needs (message id, buyer uid).
	ErrInvalidEvent = errors.New("invalid inbound event")

	// ErrTrackingNotFound indicates that no tracking record exists for the
	// requested message id.
	ErrTrackingNotFound = errors.New("tracking record not found")

	// ErrProductNotFound indicates that a merchant code is not in the catalog.
	ErrProductNotFound = errors.New("product not found")

	// ErrPanic wraps a panic recovered while processing one message.
	ErrPanic = errors.New("panic while processing message")
)
