// Package scoring evolves a couple's weekly relationship score from a
// baseline and the week's activity counts.
package scoring

import (
	"fmt"
	"math"
	"strings"

	"github.com/tbourn/go-couple-reports/internal/analytics"
)

const (
	// MinScore and MaxScore bound every score Clamp returns.
	MinScore = 0.0
	MaxScore = 100.0

	// DefaultBaseline is the starting score when no history exists.
	DefaultBaseline = 61.0
)

// Reason texts.
const (
	reasonSuffix   = "로 점수가 변동되었어요."
	reasonNoChange = "이번 주는 큰 변화가 없었어요."
)

// Weights are the per-unit contributions of each activity category.
// ChallengeFailed is subtracted.
type Weights struct {
	CardSent           float64
	ChallengeCompleted float64
	ChallengeFailed    float64
	Diagnosis          float64

	// NoActivityPenalty belongs to a disabled rule and is never applied.
	NoActivityPenalty float64
}

// DefaultWeights returns the tuned product weights.
func DefaultWeights() Weights {
	return Weights{
		CardSent:           0.005,
		ChallengeCompleted: 0.1,
		ChallengeFailed:    0.025,
		Diagnosis:          0.5,
	}
}

// Result is an evolved score with the reason text shown to the couple.
type Result struct {
	Score   float64
	Reason  string
	Clauses []string
}

// Evolve applies the week's contributions to baseline in a fixed order:
// cards, completed challenges, failed challenges, the no-activity rule, and
// diagnoses. The score is then clamped to [0,100] and rounded to 3 decimals.
// Each contribution that fired adds a clause to the reason, in that order.
func Evolve(baseline float64, m analytics.WeeklyMetrics, w Weights) Result {
	score := baseline
	var clauses []string

	if m.CardsSent > 0 {
		score += float64(m.CardsSent) * w.CardSent
		clauses = append(clauses, fmt.Sprintf("마음 카드 교환(%d회)", m.CardsSent))
	}
	if m.ChallengesCompleted > 0 {
		score += float64(m.ChallengesCompleted) * w.ChallengeCompleted
		clauses = append(clauses, fmt.Sprintf("챌린지 완료(%d회)", m.ChallengesCompleted))
	}
	if m.ChallengesFailed > 0 {
		score -= float64(m.ChallengesFailed) * w.ChallengeFailed
		clauses = append(clauses, fmt.Sprintf("챌린지 실패(%d회)", m.ChallengesFailed))
	}
	score -= noActivityPenalty(m, w)
	if m.DiagnosisCount > 0 {
		score += float64(m.DiagnosisCount) * w.Diagnosis
		clauses = append(clauses, fmt.Sprintf("관계 진단 참여(%d회)", m.DiagnosisCount))
	}

	r := Result{Score: Clamp(score), Clauses: clauses}
	if len(clauses) == 0 {
		r.Reason = reasonNoChange
	} else {
		r.Reason = strings.Join(clauses, ", ") + reasonSuffix
	}
	return r
}

// noActivityPenalty is switched off: a week without a started challenge does
// not lower the score. The configured weight is deliberately ignored.
func noActivityPenalty(_ analytics.WeeklyMetrics, _ Weights) float64 {
	return 0
}

// Clamp bounds a score to [MinScore, MaxScore] and rounds it to 3 decimals.
func Clamp(v float64) float64 {
	if math.IsNaN(v) {
		return MinScore
	}
	v = math.Max(MinScore, math.Min(MaxScore, v))
	return math.Round(v*1000) / 1000
}
