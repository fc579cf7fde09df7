// Package handlers defines HTTP-layer error codes used across all API endpoints.
//
// These codes are part of the error envelope written by fail(). Clients are
// expected to branch on the code rather than the message.
//
// Example response:
//
//	{
//	  "request_id": "e1b9be03-4999-4289-9f03-999b042d65d6",
//	  "code": "not_found",
//	  "message": "tracking record not found"
//	}
package handlers

const (
	ErrCodeBadRequest       = "bad_request"
	ErrCodeNotFound         = "not_found"
	ErrCodeMethodNotAllowed = "method_not_allowed"
	ErrCodeRateLimited      = "too_many_requests"
	ErrCodeInternal         = "internal_error"
	ErrCodeUnavailable      = "unavailable"

	// Domain-specific:
	ErrCodeInvalidEvent  = "invalid_event"
	ErrCodeProcessFailed = "process_failed"
	ErrCodeListFailed    = "list_failed"
	ErrCodeLookupFailed  = "lookup_failed"
)
