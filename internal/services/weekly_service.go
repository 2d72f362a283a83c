// Package services – WeeklyReportService
//
// This file implements the weekly relationship-score run for one couple:
// count the week's activity, resolve the baseline, evolve the score, and
// persist the report together with every member's temperature in a single
// transaction.
//
// Observability: RunForCouple is OpenTelemetry-instrumented; the span carries
// the couple id, the week and the baseline source.

package services

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/tbourn/go-couple-reports/internal/analytics"
	"github.com/tbourn/go-couple-reports/internal/cache"
	"github.com/tbourn/go-couple-reports/internal/domain"
	"github.com/tbourn/go-couple-reports/internal/periods"
	"github.com/tbourn/go-couple-reports/internal/repo"
	"github.com/tbourn/go-couple-reports/internal/scoring"
)

// WeeklyReportService computes and stores weekly couple reports.
type WeeklyReportService struct {
	DB       *gorm.DB
	Cache    cache.ReportCache
	Location *time.Location

	Weights  scoring.Weights
	Baseline scoring.BaselineConfig
}

// RunForCouple computes the report of coupleID for the week starting at
// weekStart (a Monday date) and upserts it. Re-running the same week
// overwrites the previous result.
//
// The report row and the members' temperatures are written in one
// transaction; if not every member could be updated, neither write is kept.
func (s *WeeklyReportService) RunForCouple(ctx context.Context, coupleID string, weekStart time.Time) (*domain.WeeklyReport, error) {
	tr := otel.Tracer("services/WeeklyReportService")
	ctx, span := tr.Start(ctx, "RunForCouple",
		trace.WithAttributes(
			attribute.String("couple.id", coupleID),
			attribute.String("week.start", weekStart.Format(time.DateOnly)),
		),
	)
	defer span.End()

	report, err := s.run(ctx, coupleID, weekStart)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(
		attribute.String("baseline.source", report.BaselineSource),
		attribute.Float64("score", report.OverallScore),
	)
	return report, nil
}

func (s *WeeklyReportService) run(ctx context.Context, coupleID string, weekStart time.Time) (*domain.WeeklyReport, error) {
	weekStart = periods.WeekStart(weekStart, time.UTC)
	window := periods.WeekWindow(weekStart, s.Location)

	records, err := repo.ListCoupleActivities(ctx, s.DB, coupleID, window.Start, window.End)
	if err != nil {
		return nil, fmt.Errorf("load activity: %w", err)
	}
	metrics := analytics.ComputeWeekly(records, window)

	base, err := scoring.ResolveBaseline(ctx, repo.WeeklyHistory{DB: s.DB}, coupleID, weekStart, s.Baseline)
	if err != nil {
		return nil, fmt.Errorf("resolve baseline: %w", err)
	}
	result := scoring.Evolve(base.Score, metrics, s.Weights)

	row := &domain.WeeklyReport{
		CoupleID:            coupleID,
		WeekStart:           weekStart,
		OverallScore:        result.Score,
		Reason:              result.Reason,
		CardsSent:           metrics.CardsSent,
		ChallengesCompleted: metrics.ChallengesCompleted,
		ChallengesFailed:    metrics.ChallengesFailed,
		DiagnosisCount:      metrics.DiagnosisCount,
		BaselineScore:       base.Score,
		BaselineSource:      string(base.Source),
	}

	var saved *domain.WeeklyReport
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		members, err := repo.CountCoupleMembers(ctx, tx, coupleID)
		if err != nil {
			return err
		}
		if saved, err = repo.UpsertWeekly(ctx, tx, row); err != nil {
			return err
		}
		return repo.UpdateTemperatures(ctx, tx, coupleID, result.Score, members)
	})
	if err != nil {
		return nil, fmt.Errorf("persist weekly report: %w", err)
	}

	if s.Cache != nil {
		if err := s.Cache.InvalidateWeekly(ctx, coupleID, weekStart); err != nil {
			log.Warn().Err(err).Str("component", "weekly").Str("couple_id", coupleID).Msg("cache invalidate failed")
		}
	}
	return saved, nil
}
