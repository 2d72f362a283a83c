// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides the report repository: idempotent
// upserts keyed by (subject, period start) and the read queries behind the
// report API and the baseline lookup.
//
// Error semantics follow the rest of the package: a missing row is
// ErrNotFound, anything else is the raw gorm error.
package repo

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/go-couple-reports/internal/domain"
	"github.com/tbourn/go-couple-reports/internal/periods"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for convenience and consistency
// across the service layer and handlers.
var ErrNotFound = gorm.ErrRecordNotFound

var weeklyUpdateColumns = []string{
	"overall_score", "reason", "cards_sent", "challenges_completed",
	"challenges_failed", "diagnosis_count", "expert_solutions",
	"baseline_score", "baseline_source", "updated_at",
}

var monthlyUpdateColumns = []string{
	"emotion_stats", "trigger_stats", "ai_analysis", "total_diary_count",
	"valid_diary_count", "narrative_source", "updated_at",
}

// UpsertWeekly inserts r or overwrites the existing row with the same
// (couple_id, week_start). The persisted row is returned; its ID is the
// original one when the row already existed.
func UpsertWeekly(ctx context.Context, db *gorm.DB, r *domain.WeeklyReport) (*domain.WeeklyReport, error) {
	now := time.Now().UTC()
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	r.WeekStart = r.WeekStart.UTC()
	if r.CreatedAt.IsZero() {
		r.CreatedAt = now
	}
	r.UpdatedAt = now

	err := db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "couple_id"}, {Name: "week_start"}},
			DoUpdates: clause.AssignmentColumns(weeklyUpdateColumns),
		}).
		Create(r).Error
	if err != nil {
		return nil, err
	}
	return FindWeekly(ctx, db, r.CoupleID, r.WeekStart)
}

// UpsertMonthly inserts r or overwrites the existing row with the same
// (user_id, month_start) and returns the persisted row.
func UpsertMonthly(ctx context.Context, db *gorm.DB, r *domain.MonthlyTrackReport) (*domain.MonthlyTrackReport, error) {
	now := time.Now().UTC()
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	r.MonthStart = r.MonthStart.UTC()
	if r.CreatedAt.IsZero() {
		r.CreatedAt = now
	}
	r.UpdatedAt = now

	err := db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "month_start"}},
			DoUpdates: clause.AssignmentColumns(monthlyUpdateColumns),
		}).
		Create(r).Error
	if err != nil {
		return nil, err
	}
	return FindMonthly(ctx, db, r.UserID, r.MonthStart)
}

// FindWeekly fetches the report of coupleID for the week starting at
// weekStart, or ErrNotFound.
func FindWeekly(ctx context.Context, db *gorm.DB, coupleID string, weekStart time.Time) (*domain.WeeklyReport, error) {
	var r domain.WeeklyReport
	err := db.WithContext(ctx).
		Where("couple_id = ? AND week_start = ?", coupleID, weekStart.UTC()).
		First(&r).Error
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// ListWeeklyForCouple returns a page of a couple's weekly reports, newest
// week first.
func ListWeeklyForCouple(ctx context.Context, db *gorm.DB, coupleID string, offset, limit int) ([]domain.WeeklyReport, error) {
	var out []domain.WeeklyReport
	err := db.WithContext(ctx).
		Where("couple_id = ?", coupleID).
		Order("week_start desc").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// FindAvailableWeeks lists the weeks a couple has reports for, newest first,
// labeled for navigation.
func FindAvailableWeeks(ctx context.Context, db *gorm.DB, coupleID string) ([]domain.WeekLabel, error) {
	var rows []domain.WeeklyReport
	err := db.WithContext(ctx).
		Select("week_start").
		Where("couple_id = ?", coupleID).
		Order("week_start desc").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]domain.WeekLabel, 0, len(rows))
	for _, r := range rows {
		out = append(out, periods.Label(r.WeekStart.UTC()))
	}
	return out, nil
}

// FindMonthly fetches the report of userID for the month starting at
// monthStart, or ErrNotFound.
func FindMonthly(ctx context.Context, db *gorm.DB, userID string, monthStart time.Time) (*domain.MonthlyTrackReport, error) {
	var r domain.MonthlyTrackReport
	err := db.WithContext(ctx).
		Where("user_id = ? AND month_start = ?", userID, monthStart.UTC()).
		First(&r).Error
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// FindMonthlyByID fetches a monthly report by primary key, or ErrNotFound.
func FindMonthlyByID(ctx context.Context, db *gorm.DB, id string) (*domain.MonthlyTrackReport, error) {
	var r domain.MonthlyTrackReport
	if err := db.WithContext(ctx).Where("id = ?", id).First(&r).Error; err != nil {
		return nil, err
	}
	return &r, nil
}

// ListMonthlyForUser returns a page of a user's monthly reports, newest
// month first.
func ListMonthlyForUser(ctx context.Context, db *gorm.DB, userID string, offset, limit int) ([]domain.MonthlyTrackReport, error) {
	var out []domain.MonthlyTrackReport
	err := db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("month_start desc").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// WeeklyHistory adapts the weekly report table and the assessment table to
// the lookups baseline resolution performs.
type WeeklyHistory struct {
	DB *gorm.DB
}

// WeeklyScore returns the stored score of one week, if any.
func (h WeeklyHistory) WeeklyScore(ctx context.Context, coupleID string, weekStart time.Time) (float64, bool, error) {
	r, err := FindWeekly(ctx, h.DB, coupleID, weekStart)
	if errors.Is(err, ErrNotFound) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return r.OverallScore, true, nil
}

// BaselineAssessmentScore returns the score of the couple's earliest
// baseline assessment, if any.
func (h WeeklyHistory) BaselineAssessmentScore(ctx context.Context, coupleID string) (float64, bool, error) {
	a, err := EarliestBaselineAssessment(ctx, h.DB, coupleID)
	if errors.Is(err, ErrNotFound) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return a.Score, true, nil
}
