// Package services defines the business logic of the reporting engine: the
// weekly score run, the monthly emotional-track run, and the read side used
// by the HTTP API. This file centralizes service-level error values so that
// they can be consistently returned by service methods and checked by
// callers.
//
// Translation into user-facing messages or HTTP status codes is performed at
// the handler layer.
package services

import "errors"

var (
	// ErrNotEnoughDiaries is returned when a month has fewer qualifying
	// diary entries than the configured minimum. No report is written.
	ErrNotEnoughDiaries = errors.New("not enough qualifying diary entries")

	// ErrMemberNotFound indicates that the caller is not a known member.
	ErrMemberNotFound = errors.New("member not found")

	// ErrNotInCouple is returned for couple-scoped reads by a member who is
	// not paired.
	ErrNotInCouple = errors.New("member is not in a couple")

	// ErrNotSubscribed is returned when monthly tracking is requested for a
	// member without a subscription start date.
	ErrNotSubscribed = errors.New("member has no tracking subscription")

	// ErrReportNotFound indicates that no report exists for the period.
	ErrReportNotFound = errors.New("report not found")

	// ErrInvalidPeriod is returned for an out-of-range year/week/month.
	ErrInvalidPeriod = errors.New("invalid report period")
)
