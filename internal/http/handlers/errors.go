// Package handlers defines HTTP-layer error codes used across all API endpoints.
//
// Codes are stable, lowercase snake_case strings that clients branch on.
// Generic codes mirror HTTP status semantics; domain codes name report
// conditions that a status alone cannot convey.
//
// Example response:
//
//	{
//	  "request_id": "e1b9be03-4999-4289-9f03-999b042d65d6",
//	  "code": "not_enough_diaries",
//	  "message": "at least 6 qualifying diary entries are required"
//	}
package handlers

const (
	ErrCodeBadRequest       = "bad_request"
	ErrCodeUnauthorized     = "unauthorized"
	ErrCodeForbidden        = "forbidden"
	ErrCodeNotFound         = "not_found"
	ErrCodeConflict         = "conflict"
	ErrCodeRateLimited      = "too_many_requests"
	ErrCodeInternal         = "internal_error"
	ErrCodeMethodNotAllowed = "method_not_allowed"

	// Domain-specific:
	ErrCodeInvalidPeriod    = "invalid_period"
	ErrCodeNotInCouple      = "not_in_couple"
	ErrCodeNotSubscribed    = "not_subscribed"
	ErrCodeNotEnoughDiaries = "not_enough_diaries"
	ErrCodeGenerateFailed   = "generate_failed"
	ErrCodeListFailed       = "list_failed"
	ErrCodeJobRunning       = "job_running"
	ErrCodeUnknownJob       = "unknown_job"
)
