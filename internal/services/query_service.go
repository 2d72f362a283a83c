// Package services – ReportQueryService
//
// This file implements the read side of the report API. Lookups resolve the
// caller's couple, translate (year, week) and (year, month) into period
// starts, and read through the report cache.

package services

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/tbourn/go-couple-reports/internal/cache"
	"github.com/tbourn/go-couple-reports/internal/domain"
	"github.com/tbourn/go-couple-reports/internal/periods"
	"github.com/tbourn/go-couple-reports/internal/repo"
)

// ReportQueryService serves stored reports to members.
type ReportQueryService struct {
	DB    *gorm.DB
	Cache cache.ReportCache
}

// Version identifies the state of a report list for conditional requests.
type Version struct {
	Count        int64
	MaxUpdatedAt *time.Time
}

// CoupleOf returns the couple id of userID.
func (s *ReportQueryService) CoupleOf(ctx context.Context, userID string) (string, error) {
	m, err := repo.GetMember(ctx, s.DB, userID)
	if errors.Is(err, repo.ErrNotFound) {
		return "", ErrMemberNotFound
	}
	if err != nil {
		return "", err
	}
	if m.CoupleID == nil || *m.CoupleID == "" {
		return "", ErrNotInCouple
	}
	return *m.CoupleID, nil
}

// GetWeeklyReport returns the caller's couple report for ISO week
// (isoYear, isoWeek).
func (s *ReportQueryService) GetWeeklyReport(ctx context.Context, userID string, isoYear, isoWeek int) (*domain.WeeklyReport, error) {
	tr := otel.Tracer("services/ReportQueryService")
	ctx, span := tr.Start(ctx, "GetWeeklyReport",
		trace.WithAttributes(
			attribute.String("user.id", userID),
			attribute.Int("iso.year", isoYear),
			attribute.Int("iso.week", isoWeek),
		),
	)
	defer span.End()

	weekStart, err := periods.ISOWeekStart(isoYear, isoWeek)
	if err != nil {
		return nil, ErrInvalidPeriod
	}
	coupleID, err := s.CoupleOf(ctx, userID)
	if err != nil {
		return nil, err
	}

	if r, err := s.cache().GetWeekly(ctx, coupleID, weekStart); err != nil {
		log.Warn().Err(err).Str("component", "query").Msg("weekly cache read failed")
	} else if r != nil {
		span.SetAttributes(attribute.Bool("cache.hit", true))
		return r, nil
	}

	r, err := repo.FindWeekly(ctx, s.DB, coupleID, weekStart)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrReportNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := s.cache().SetWeekly(ctx, r); err != nil {
		log.Warn().Err(err).Str("component", "query").Msg("weekly cache write failed")
	}
	return r, nil
}

// AvailableWeeks lists the weeks the caller's couple has reports for.
func (s *ReportQueryService) AvailableWeeks(ctx context.Context, userID string) ([]domain.WeekLabel, error) {
	coupleID, err := s.CoupleOf(ctx, userID)
	if err != nil {
		return nil, err
	}
	return repo.FindAvailableWeeks(ctx, s.DB, coupleID)
}

// ListWeekly returns a page of the caller's couple reports, newest first,
// and the total count.
func (s *ReportQueryService) ListWeekly(ctx context.Context, userID string, page, pageSize int) ([]domain.WeeklyReport, int64, error) {
	coupleID, err := s.CoupleOf(ctx, userID)
	if err != nil {
		return nil, 0, err
	}
	total, _, err := repo.WeeklyStats(ctx, s.DB, coupleID)
	if err != nil || total == 0 {
		return []domain.WeeklyReport{}, total, err
	}
	offset, limit := pageBounds(page, pageSize)
	items, err := repo.ListWeeklyForCouple(ctx, s.DB, coupleID, offset, limit)
	return items, total, err
}

// WeeklyVersion returns the count and latest update of the caller's couple
// reports.
func (s *ReportQueryService) WeeklyVersion(ctx context.Context, userID string) (Version, error) {
	coupleID, err := s.CoupleOf(ctx, userID)
	if err != nil {
		return Version{}, err
	}
	n, ts, err := repo.WeeklyStats(ctx, s.DB, coupleID)
	return Version{Count: n, MaxUpdatedAt: ts}, err
}

// GetMonthlyReport returns the caller's report for (year, month).
func (s *ReportQueryService) GetMonthlyReport(ctx context.Context, userID string, year, month int) (*domain.MonthlyTrackReport, error) {
	tr := otel.Tracer("services/ReportQueryService")
	ctx, span := tr.Start(ctx, "GetMonthlyReport",
		trace.WithAttributes(
			attribute.String("user.id", userID),
			attribute.Int("year", year),
			attribute.Int("month", month),
		),
	)
	defer span.End()

	monthStart, err := periods.MonthOf(year, month)
	if err != nil {
		return nil, ErrInvalidPeriod
	}

	if r, err := s.cache().GetMonthly(ctx, userID, monthStart); err != nil {
		log.Warn().Err(err).Str("component", "query").Msg("monthly cache read failed")
	} else if r != nil {
		span.SetAttributes(attribute.Bool("cache.hit", true))
		return r, nil
	}

	r, err := repo.FindMonthly(ctx, s.DB, userID, monthStart)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrReportNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := s.cache().SetMonthly(ctx, r); err != nil {
		log.Warn().Err(err).Str("component", "query").Msg("monthly cache write failed")
	}
	return r, nil
}

// MonthlyReportByID returns the caller's report with the given id. Reports
// of other members read as not found.
func (s *ReportQueryService) MonthlyReportByID(ctx context.Context, userID, id string) (*domain.MonthlyTrackReport, error) {
	r, err := repo.FindMonthlyByID(ctx, s.DB, id)
	if errors.Is(err, repo.ErrNotFound) || (err == nil && r.UserID != userID) {
		return nil, ErrReportNotFound
	}
	if err != nil {
		return nil, err
	}
	return r, nil
}

// ListMonthly returns a page of the caller's monthly reports, newest first,
// and the total count.
func (s *ReportQueryService) ListMonthly(ctx context.Context, userID string, page, pageSize int) ([]domain.MonthlyTrackReport, int64, error) {
	total, _, err := repo.MonthlyStats(ctx, s.DB, userID)
	if err != nil || total == 0 {
		return []domain.MonthlyTrackReport{}, total, err
	}
	offset, limit := pageBounds(page, pageSize)
	items, err := repo.ListMonthlyForUser(ctx, s.DB, userID, offset, limit)
	return items, total, err
}

// MonthlyVersion returns the count and latest update of the caller's
// monthly reports.
func (s *ReportQueryService) MonthlyVersion(ctx context.Context, userID string) (Version, error) {
	n, ts, err := repo.MonthlyStats(ctx, s.DB, userID)
	return Version{Count: n, MaxUpdatedAt: ts}, err
}

func (s *ReportQueryService) cache() cache.ReportCache {
	if s.Cache == nil {
		return cache.Noop{}
	}
	return s.Cache
}

func pageBounds(page, pageSize int) (offset, limit int) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	return (page - 1) * pageSize, pageSize
}
