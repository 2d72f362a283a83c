// Package analytics turns activity records of one subject and one window into
// report metrics. Everything here is pure: no I/O, no clocks, no logging.
// Missing or malformed fields are simply not counted.
package analytics

import (
	"github.com/tbourn/go-couple-reports/internal/domain"
	"github.com/tbourn/go-couple-reports/internal/periods"
)

// WeeklyMetrics are the per-category counts of one couple-week.
type WeeklyMetrics struct {
	CardsSent           int
	ChallengesCompleted int
	ChallengesFailed    int
	DiagnosisCount      int

	// NoChallengeActivity is true when no challenge was started in the window.
	NoChallengeActivity bool
}

// ComputeWeekly counts couple activity inside w. Records outside the window
// or with a zero timestamp are ignored. Every assessment submission counts as
// a diagnosis regardless of its kind.
func ComputeWeekly(records []domain.ActivityRecord, w periods.Window) WeeklyMetrics {
	var m WeeklyMetrics
	started := 0
	for _, r := range records {
		if r.At.IsZero() || !w.Contains(r.At) {
			continue
		}
		switch r.Kind {
		case domain.KindCardSent:
			m.CardsSent++
		case domain.KindChallengeStarted:
			started++
		case domain.KindChallengeCompleted:
			m.ChallengesCompleted++
		case domain.KindChallengeFailed:
			m.ChallengesFailed++
		case domain.KindAssessmentSubmitted:
			m.DiagnosisCount++
		}
	}
	m.NoChallengeActivity = started == 0
	return m
}
