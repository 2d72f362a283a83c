package scoring

import (
	"context"
	"fmt"
	"time"
)

// Source records which step of the lookup produced a baseline.
type Source string

const (
	SourcePreviousWeek Source = "previous_week"
	SourceEarlierWeek  Source = "earlier_week"
	SourceAssessment   Source = "baseline_assessment"
	SourceDefault      Source = "default"
)

// DefaultLookbackWeeks is how many prior weeks, N-1 included, are searched.
const DefaultLookbackWeeks = 4

// History is what baseline resolution needs from storage. Found is false
// when the row does not exist; err is reserved for real failures.
type History interface {
	WeeklyScore(ctx context.Context, coupleID string, weekStart time.Time) (score float64, found bool, err error)
	BaselineAssessmentScore(ctx context.Context, coupleID string) (score float64, found bool, err error)
}

// BaselineConfig holds the configurable parts of the lookup.
type BaselineConfig struct {
	Default       float64
	LookbackWeeks int
}

// Baseline is a resolved starting score.
type Baseline struct {
	Score  float64
	Source Source
	// Week is the week start of the report used, zero for other sources.
	Week time.Time
}

// ResolveBaseline finds the starting score for the week starting at
// weekStart:
//  1. the report of week N-1;
//  2. otherwise the nearest report among weeks N-2 .. N-LookbackWeeks;
//  3. otherwise the couple's earliest baseline-kind assessment;
//  4. otherwise cfg.Default.
func ResolveBaseline(ctx context.Context, h History, coupleID string, weekStart time.Time, cfg BaselineConfig) (Baseline, error) {
	for back := 1; back <= max(1, cfg.LookbackWeeks); back++ {
		week := weekStart.AddDate(0, 0, -7*back)
		score, ok, err := h.WeeklyScore(ctx, coupleID, week)
		if err != nil {
			return Baseline{}, fmt.Errorf("weekly score %s: %w", week.Format(time.DateOnly), err)
		}
		if ok {
			src := SourceEarlierWeek
			if back == 1 {
				src = SourcePreviousWeek
			}
			return Baseline{Score: score, Source: src, Week: week}, nil
		}
	}

	score, ok, err := h.BaselineAssessmentScore(ctx, coupleID)
	if err != nil {
		return Baseline{}, fmt.Errorf("baseline assessment: %w", err)
	}
	if ok {
		return Baseline{Score: Clamp(score), Source: SourceAssessment}, nil
	}
	return Baseline{Score: cfg.Default, Source: SourceDefault}, nil
}
