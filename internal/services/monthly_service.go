// Package services – MonthlyReportService
//
// This file implements the monthly emotional-track run for one member: load
// the month's diary entries inside the subscription window, refuse months
// below the qualifying minimum, compute statistics, obtain a narrative
// (external or fallback), and upsert the report.

package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/tbourn/go-couple-reports/internal/analytics"
	"github.com/tbourn/go-couple-reports/internal/cache"
	"github.com/tbourn/go-couple-reports/internal/domain"
	"github.com/tbourn/go-couple-reports/internal/narrative"
	"github.com/tbourn/go-couple-reports/internal/periods"
	"github.com/tbourn/go-couple-reports/internal/repo"
)

// DefaultMinDiaries is the qualifying-entry minimum when none is configured.
const DefaultMinDiaries = 6

// MonthlyReportService computes and stores monthly emotional-track reports.
type MonthlyReportService struct {
	DB       *gorm.DB
	Cache    cache.ReportCache
	Location *time.Location

	Calculator *analytics.Calculator
	Narrator   *narrative.Generator
	MinDiaries int

	// Now is the clock used by GenerateNow and Progress; nil means time.Now.
	Now func() time.Time
}

// Progress describes how close a member is to a report for the current month.
type Progress struct {
	MonthStart  time.Time `json:"month_start"`
	Total       int       `json:"total"`
	Valid       int       `json:"valid"`
	MinRequired int       `json:"min_required"`
	CanGenerate bool      `json:"can_generate"`
}

// Generate builds the report of userID for the month starting at monthStart
// from the diary entries inside window. It returns ErrNotEnoughDiaries, and
// writes nothing, when fewer than MinDiaries entries qualify.
func (s *MonthlyReportService) Generate(ctx context.Context, userID string, monthStart time.Time, window periods.Window) (*domain.MonthlyTrackReport, error) {
	tr := otel.Tracer("services/MonthlyReportService")
	ctx, span := tr.Start(ctx, "Generate",
		trace.WithAttributes(
			attribute.String("user.id", userID),
			attribute.String("month.start", monthStart.Format("2006-01")),
		),
	)
	defer span.End()

	metrics, err := s.metrics(ctx, userID, window)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(
		attribute.Int("diary.total", metrics.TotalCount),
		attribute.Int("diary.valid", metrics.QualifyingCount),
	)
	if metrics.QualifyingCount < s.minDiaries() {
		return nil, ErrNotEnoughDiaries
	}

	in := narrative.Input{
		UserID:   userID,
		Month:    monthStart,
		Location: s.loc(),
		Current:  metrics,
	}
	prevStart := monthStart.AddDate(0, -1, 0)
	prev, err := repo.FindMonthly(ctx, s.DB, userID, prevStart)
	switch {
	case err == nil:
		in.PriorEmotionStats = prev.EmotionStats.Data()
		in.PriorTriggerStats = prev.TriggerStats.Data()
	case !errors.Is(err, repo.ErrNotFound):
		return nil, fmt.Errorf("load prior month: %w", err)
	}

	narr := s.narrator().Generate(ctx, in)
	span.SetAttributes(attribute.String("narrative.source", narr.Source))

	saved, err := repo.UpsertMonthly(ctx, s.DB, &domain.MonthlyTrackReport{
		UserID:          userID,
		MonthStart:      monthStart,
		EmotionStats:    datatypes.NewJSONType(metrics.EmotionStats),
		TriggerStats:    datatypes.NewJSONType(metrics.TriggerStats),
		AIAnalysis:      datatypes.NewJSONType(narr.Narrative),
		TotalDiaryCount: metrics.TotalCount,
		ValidDiaryCount: metrics.QualifyingCount,
		NarrativeSource: narr.Source,
	})
	if err != nil {
		return nil, fmt.Errorf("persist monthly report: %w", err)
	}

	if s.Cache != nil {
		if err := s.Cache.InvalidateMonthly(ctx, userID, monthStart); err != nil {
			log.Warn().Err(err).Str("component", "monthly").Str("user_id", userID).Msg("cache invalidate failed")
		}
	}
	return saved, nil
}

// GenerateForMember runs Generate for the month starting at monthStart with
// the window clamped to the member's subscription start, so history from
// before the subscription is never analyzed.
func (s *MonthlyReportService) GenerateForMember(ctx context.Context, m domain.Member, monthStart time.Time) (*domain.MonthlyTrackReport, error) {
	window, err := s.memberWindow(m, monthStart)
	if err != nil {
		return nil, err
	}
	return s.Generate(ctx, m.ID, monthStart, window)
}

// GenerateNow builds (or rebuilds) the report for the current month.
func (s *MonthlyReportService) GenerateNow(ctx context.Context, userID string) (*domain.MonthlyTrackReport, error) {
	m, err := s.member(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.GenerateForMember(ctx, *m, periods.MonthStart(s.now(), s.loc()))
}

// Progress reports the current month's diary counts against the minimum.
func (s *MonthlyReportService) Progress(ctx context.Context, userID string) (Progress, error) {
	m, err := s.member(ctx, userID)
	if err != nil {
		return Progress{}, err
	}
	monthStart := periods.MonthStart(s.now(), s.loc())
	window, err := s.memberWindow(*m, monthStart)
	if err != nil {
		return Progress{}, err
	}
	metrics, err := s.metrics(ctx, userID, window)
	if err != nil {
		return Progress{}, err
	}
	need := s.minDiaries()
	return Progress{
		MonthStart:  monthStart,
		Total:       metrics.TotalCount,
		Valid:       metrics.QualifyingCount,
		MinRequired: need,
		CanGenerate: metrics.QualifyingCount >= need,
	}, nil
}

func (s *MonthlyReportService) metrics(ctx context.Context, userID string, window periods.Window) (analytics.MonthlyMetrics, error) {
	calc := s.Calculator
	if calc == nil {
		calc = analytics.NewCalculator(s.loc())
	}
	if window.Empty() {
		return calc.Monthly(nil), nil
	}
	entries, err := repo.ListActivities(ctx, s.DB, userID, domain.KindDiaryEntry, window.Start, window.End)
	if err != nil {
		return analytics.MonthlyMetrics{}, fmt.Errorf("load diaries: %w", err)
	}
	return calc.Monthly(entries), nil
}

func (s *MonthlyReportService) memberWindow(m domain.Member, monthStart time.Time) (periods.Window, error) {
	if m.SubscribedAt == nil {
		return periods.Window{}, ErrNotSubscribed
	}
	return periods.MonthWindow(monthStart, s.loc()).ClampStart(*m.SubscribedAt), nil
}

func (s *MonthlyReportService) member(ctx context.Context, userID string) (*domain.Member, error) {
	m, err := repo.GetMember(ctx, s.DB, userID)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrMemberNotFound
	}
	return m, err
}

func (s *MonthlyReportService) narrator() *narrative.Generator {
	if s.Narrator == nil {
		return narrative.New(nil)
	}
	return s.Narrator
}

func (s *MonthlyReportService) minDiaries() int {
	if s.MinDiaries <= 0 {
		return DefaultMinDiaries
	}
	return s.MinDiaries
}

func (s *MonthlyReportService) loc() *time.Location {
	if s.Location == nil {
		return time.UTC
	}
	return s.Location
}

func (s *MonthlyReportService) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}
